// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import (
	"fmt"
	"io"

	"github.com/go-kratos/kratos/v2/log"
)

// systemInfoSize is the fixed width of the snapshot header's trailing
// null-trimmed system-info string.
const systemInfoSize = 80

// Snapshot is a fully decoded snapshot header plus the tables it seeds.
// Construct it with ReadSnapshot, then iterate its events with Events.
type Snapshot struct {
	KernelVersion    KernelVersion
	KernelPort       KernelPortIdentity
	Endianness       Endianness
	MinorVersion     uint8
	IrqPriorityOrder uint8

	Filesize                 uint32
	NumEvents                uint32
	MaxEvents                uint32
	NextFreeIndex            uint32
	BufferIsFull             uint32
	Frequency                Frequency
	AbsTimeLastEvent         uint32
	AbsTimeLastEventSecond   uint32
	RecorderActive           uint32
	IsrTailChainingThreshold uint32
	HeapMemUsage             uint32
	HeapMemMaxUsage          uint32

	ObjectProperties *ObjectPropertyTable
	Symbols          *SnapshotSymbolTable

	FloatEncoding         FloatEncoding
	InternalErrorOccurred uint32
	SystemInfo            string

	eventDataOffset int64
	r               io.ReadSeeker
	logger          *log.Helper
}

// Close releases the underlying reader if it implements io.Closer. Safe to
// call on a Snapshot built from a reader that doesn't own a file.
func (s *Snapshot) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ReadSnapshot locates the start marker, decodes the full snapshot header
// (kernel version, fixed fields, object property table, symbol table,
// trailing fields), and validates the end marker. The event ring itself
// is not read here; call Events to iterate it.
func ReadSnapshot(r io.ReadSeeker, logger *log.Helper) (*Snapshot, error) {
	if logger == nil {
		logger = log.NewHelper(log.NewFilter(log.DefaultLogger, log.FilterLevel(log.LevelError)))
	}

	if err := locateStartMarker(r); err != nil {
		return nil, err
	}

	var kv KernelVersion
	kvBytes, err := readBytes(r, 2)
	if err != nil {
		return nil, err
	}
	copy(kv[:], kvBytes)

	endianness, err := kv.Endianness()
	if err != nil {
		return nil, err
	}
	port, err := kv.PortIdentity()
	if err != nil {
		return nil, err
	}
	order := endianness.ByteOrder()

	minorVersion, err := readU8(r)
	if err != nil {
		return nil, err
	}
	if minorVersion != 7 {
		logger.Warnf("snapshot minor version %d is not officially supported", minorVersion)
	}
	irqPriorityOrder, err := readU8(r)
	if err != nil {
		return nil, err
	}

	s := &Snapshot{
		KernelVersion:    kv,
		KernelPort:       port,
		Endianness:       endianness,
		MinorVersion:     minorVersion,
		IrqPriorityOrder: irqPriorityOrder,
		r:                r,
		logger:           logger,
	}

	fields := []*uint32{
		&s.Filesize, &s.NumEvents, &s.MaxEvents, &s.NextFreeIndex, &s.BufferIsFull,
	}
	for _, f := range fields {
		v, err := readU32(r, order)
		if err != nil {
			return nil, err
		}
		*f = v
	}

	freq, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	s.Frequency = Frequency(freq)
	if s.Frequency.IsUnitless() {
		logger.Warnf("snapshot timer frequency is unitless")
	}

	for _, f := range []*uint32{&s.AbsTimeLastEvent, &s.AbsTimeLastEventSecond, &s.RecorderActive, &s.IsrTailChainingThreshold} {
		v, err := readU32(r, order)
		if err != nil {
			return nil, err
		}
		*f = v
	}

	if _, err := readBytes(r, 24); err != nil { // reserved
		return nil, err
	}

	maxUsage, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	usage, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	s.HeapMemMaxUsage = maxUsage
	s.HeapMemUsage = usage

	if err := readDebugMarker(r, order, debugMarker0); err != nil {
		return nil, err
	}

	uses16bit, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	if uses16bit != 0 {
		return nil, ErrUnsupported16bitHandles
	}

	objectProperties, err := readObjectPropertyTable(r, order, logger)
	if err != nil {
		return nil, err
	}
	s.ObjectProperties = objectProperties

	if err := readDebugMarker(r, order, debugMarker1); err != nil {
		return nil, err
	}

	symbols, err := readSnapshotSymbolTable(r, order, logger)
	if err != nil {
		return nil, err
	}
	s.Symbols = symbols

	floatBits, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	s.FloatEncoding = FloatEncodingFromBits(floatBits)
	if s.FloatEncoding == FloatEncodingUnsupported && floatBits != 0 {
		logger.Warnf("unrecognized float encoding probe word %#x", floatBits)
	}

	internalErr, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	s.InternalErrorOccurred = internalErr
	if internalErr != 0 {
		logger.Warnf("recorder reported an internal error: %#x", internalErr)
	}

	if err := readDebugMarker(r, order, debugMarker2); err != nil {
		return nil, err
	}

	sysInfo, err := readBytes(r, systemInfoSize)
	if err != nil {
		return nil, err
	}
	s.SystemInfo = TrimmedString(sysInfo)

	if err := readDebugMarker(r, order, debugMarker3); err != nil {
		return nil, err
	}

	offset, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	s.eventDataOffset = offset

	if _, err := r.Seek(int64(s.MaxEvents)*SnapshotEventSize, io.SeekCurrent); err != nil {
		return nil, err
	}

	maybeUserEventBufferID, err := readU16(r, order)
	if err != nil {
		return nil, err
	}
	if maybeUserEventBufferID == 0 {
		endOfSecondary, err := readU16(r, order)
		if err != nil {
			return nil, err
		}
		if endOfSecondary != 0 {
			logger.Warnf("unexpected non-zero end-of-secondary-blocks field: %#x", endOfSecondary)
		}
	} else {
		return nil, ErrUnsupportedUserEventBuffer
	}

	if err := readEndMarker(r); err != nil {
		return nil, err
	}

	return s, nil
}

// SnapshotEventIterator walks a snapshot's fixed-size event ring in wire
// order, starting at next_free_index when the ring has wrapped.
type SnapshotEventIterator struct {
	s         *Snapshot
	parser    *SnapshotEventParser
	remaining uint32
}

// Events returns a fresh iterator over this snapshot's event ring. The
// iterator owns the only mutable parser state; do not call Events again
// until the previous iterator is exhausted if both would read the same
// underlying reader.
func (s *Snapshot) Events() (*SnapshotEventIterator, error) {
	start := int64(s.eventDataOffset)
	count := s.NumEvents
	if s.BufferIsFull != 0 && s.MaxEvents != 0 {
		// The ring has wrapped at least once: the oldest surviving record
		// is the one about to be overwritten next, at next_free_index.
		start = s.eventDataOffset + int64(s.NextFreeIndex)*SnapshotEventSize
		count = s.MaxEvents
	}

	if _, err := s.r.Seek(start, io.SeekStart); err != nil {
		return nil, err
	}

	return &SnapshotEventIterator{
		s:         s,
		parser:    NewSnapshotEventParser(s.Endianness, s.ObjectProperties, s.Symbols, s.logger),
		remaining: count,
	}, nil
}

// Next reads and decodes the next record, returning (nil, io.EOF)
// once the ring is exhausted. It transparently skips records that
// intentionally produce no event (Xts8/Xts16/EventBeingWritten/user-event
// continuation records) and wraps from the end of the ring buffer back to
// its start when the read position reaches the buffer boundary mid-walk.
func (it *SnapshotEventIterator) Next() (*SnapshotEvent, error) {
	for it.remaining > 0 {
		pos, err := it.s.r.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		ringEnd := it.s.eventDataOffset + int64(it.s.MaxEvents)*SnapshotEventSize
		if pos >= ringEnd {
			if _, err := it.s.r.Seek(it.s.eventDataOffset, io.SeekStart); err != nil {
				return nil, err
			}
		}

		raw, err := readBytes(it.s.r, SnapshotEventSize)
		if err != nil {
			return nil, err
		}
		it.remaining--

		var record SnapshotEventRecord
		copy(record[:], raw)

		ev, err := it.parser.Parse(record)
		if err != nil {
			return nil, fmt.Errorf("snapshot event decode: %w", err)
		}
		if ev != nil {
			return ev, nil
		}
	}
	return nil, io.EOF
}
