// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// snapshotStartMarker delimits the start of the recorder region within a
// possibly garbage-prefixed snapshot dump.
var snapshotStartMarker = [12]byte{0x01, 0x02, 0x03, 0x04, 0x71, 0x72, 0x73, 0x74, 0xF1, 0xF2, 0xF3, 0xF4}

// snapshotEndMarker delimits the end of the recorder region.
var snapshotEndMarker = [12]byte{0x0A, 0x0B, 0x0C, 0x0D, 0x71, 0x72, 0x73, 0x74, 0xF1, 0xF2, 0xF3, 0xF4}

// debugMarker is one of the four sentinel words interleaved through a
// snapshot header to catch layout drift between the recorder and this
// decoder.
type debugMarker uint32

const (
	debugMarker0 debugMarker = 0xF0F0F0F0
	debugMarker1 debugMarker = 0xF1F1F1F1
	debugMarker2 debugMarker = 0xF2F2F2F2
	debugMarker3 debugMarker = 0xF3F3F3F3
)

// locateStartMarker slides a 12-byte window across r until it matches the
// start marker, leaving the reader positioned immediately after the match.
// Returns ErrMarkerBytes if the stream ends before a match is found.
func locateStartMarker(r io.Reader) error {
	var window [12]byte
	n, err := io.ReadFull(r, window[:])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMarkerBytes, err)
	}
	_ = n
	for !bytes.Equal(window[:], snapshotStartMarker[:]) {
		copy(window[:11], window[1:])
		if _, err := io.ReadFull(r, window[11:12]); err != nil {
			return fmt.Errorf("%w: %w", ErrMarkerBytes, err)
		}
	}
	return nil
}

// readEndMarker reads and validates the fixed 12-byte end marker.
func readEndMarker(r io.Reader) error {
	var got [12]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return fmt.Errorf("%w: %w", ErrMarkerBytes, err)
	}
	if !bytes.Equal(got[:], snapshotEndMarker[:]) {
		return fmt.Errorf("%w: got %x", ErrMarkerBytes, got)
	}
	return nil
}

// readDebugMarker reads a 4-byte debug marker in the given byte order and
// validates it against want.
func readDebugMarker(r io.Reader, order binary.ByteOrder, want debugMarker) error {
	v, err := readU32(r, order)
	if err != nil {
		return err
	}
	if debugMarker(v) != want {
		return fmt.Errorf("%w: want %#x got %#x", ErrDebugMarker, uint32(want), v)
	}
	return nil
}
