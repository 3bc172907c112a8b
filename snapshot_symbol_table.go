// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import (
	"encoding/binary"
	"io"

	"github.com/go-kratos/kratos/v2/log"
)

// symbolCRC6 computes the 6-bit checksum of a raw (pre-UTF8-conversion)
// symbol byte sequence: the sum of its bytes, masked to 6 bits.
func symbolCRC6(raw []byte) uint8 {
	var sum uint32
	for _, b := range raw {
		sum += uint32(b)
	}
	return uint8(sum & 0x3F)
}

// SnapshotSymbolEntry is one decoded snapshot symbol-table entry.
type SnapshotSymbolEntry struct {
	Index        uint16
	ChannelIndex *uint16
	CRC          uint8
	Symbol       string
}

// SnapshotSymbolTable is the byte-offset-keyed symbol table decoded from a
// snapshot's header region.
type SnapshotSymbolTable struct {
	entries map[uint16]SnapshotSymbolEntry
}

// Entry looks up a symbol-table entry by its byte-offset index.
func (t *SnapshotSymbolTable) Entry(index uint16) (SnapshotSymbolEntry, bool) {
	e, ok := t.entries[index]
	return e, ok
}

// readSnapshotSymbolTable decodes the symbol-table section: a reserved
// slot 0, then double-null-terminated (4-byte-metadata-prefixed) entries
// until next_free_symbol_index worth of bytes are consumed, followed by
// the 64-entry checksum head-index table.
func readSnapshotSymbolTable(r io.Reader, order binary.ByteOrder, logger *log.Helper) (*SnapshotSymbolTable, error) {
	const numLatestEntryOfChecksums = 64

	tableSize, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	nextFreeIndex, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	if nextFreeIndex > tableSize {
		logger.Warnf("next free symbol index %d exceeds symbol table size %d", nextFreeIndex, tableSize)
	}

	unusedSlot, err := readU8(r)
	if err != nil {
		return nil, err
	}
	if unusedSlot != 0 {
		logger.Warnf("reserved symbol table slot 0 is non-zero: %#x", unusedSlot)
	}

	table := &SnapshotSymbolTable{entries: make(map[uint16]SnapshotSymbolEntry)}

	var consumed uint32 = 1
	for consumed < nextFreeIndex {
		startOffset := consumed

		if _, err := readU16(r, order); err != nil { // next-entry-index, discarded
			return nil, err
		}
		channel, err := readU16(r, order)
		if err != nil {
			return nil, err
		}
		consumed += 4

		var raw []byte
		for {
			b, err := readU8(r)
			if err != nil {
				return nil, err
			}
			consumed++
			if b == 0 {
				break
			}
			raw = append(raw, b)
		}
		trailing, err := readU8(r)
		if err != nil {
			return nil, err
		}
		consumed++
		if trailing != 0 {
			logger.Warnf("symbol table entry at offset %d missing double NUL terminator", startOffset)
		}

		index := uint16(startOffset & 0xFFFF)
		var channelIndex *uint16
		if channel != 0 {
			c := channel
			channelIndex = &c
		}
		table.entries[index] = SnapshotSymbolEntry{
			Index:        index,
			ChannelIndex: channelIndex,
			CRC:          symbolCRC6(raw),
			Symbol:       string(raw),
		}
	}

	if tableSize > consumed {
		if _, err := readBytes(r, int(tableSize-consumed)); err != nil {
			return nil, err
		}
	}

	if _, err := readBytes(r, numLatestEntryOfChecksums*2); err != nil {
		return nil, err
	}

	return table, nil
}
