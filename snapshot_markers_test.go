// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocateStartMarkerExactMatch(t *testing.T) {
	r := bytes.NewReader(snapshotStartMarker[:])
	require.NoError(t, locateStartMarker(r))
}

func TestLocateStartMarkerWithGarbagePrefix(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x01})
	buf.Write(snapshotStartMarker[:])
	buf.WriteString("trailing")

	r := bytes.NewReader(buf.Bytes())
	require.NoError(t, locateStartMarker(r))

	rest := make([]byte, 8)
	n, err := r.Read(rest)
	require.NoError(t, err)
	require.Equal(t, "trailing", string(rest[:n]))
}

func TestLocateStartMarkerNeverFound(t *testing.T) {
	r := bytes.NewReader(make([]byte, 20))
	err := locateStartMarker(r)
	require.ErrorIs(t, err, ErrMarkerBytes)
}

func TestReadEndMarkerMismatch(t *testing.T) {
	r := bytes.NewReader(make([]byte, 12))
	err := readEndMarker(r)
	require.ErrorIs(t, err, ErrMarkerBytes)
}

func TestReadEndMarkerMatch(t *testing.T) {
	r := bytes.NewReader(snapshotEndMarker[:])
	require.NoError(t, readEndMarker(r))
}

func TestReadDebugMarker(t *testing.T) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(debugMarker0))
	require.NoError(t, readDebugMarker(bytes.NewReader(buf), binary.LittleEndian, debugMarker0))

	err := readDebugMarker(bytes.NewReader(buf), binary.LittleEndian, debugMarker1)
	require.ErrorIs(t, err, ErrDebugMarker)
}
