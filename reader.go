// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import (
	"encoding/binary"
	"io"
)

// readU8 reads a single byte.
func readU8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// readU16 reads a 2-byte unsigned integer in the given byte order.
func readU16(r io.Reader, order binary.ByteOrder) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return order.Uint16(b[:]), nil
}

// readU32 reads a 4-byte unsigned integer in the given byte order.
func readU32(r io.Reader, order binary.ByteOrder) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return order.Uint32(b[:]), nil
}

// readBytes reads exactly n bytes.
func readBytes(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// roundUpNearest2 rounds n up to the next even number.
func roundUpNearest2(n uint32) uint32 {
	return 2 * ((n + 1) / 2)
}

// roundUpNearest4 rounds n up to the next multiple of 4.
func roundUpNearest4(n uint32) uint32 {
	return 4 * ((n + 3) / 4)
}
