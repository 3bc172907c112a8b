// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

// SnapshotEventParser is the stateful, single-threaded decoder that folds
// differential timestamps and reassembles multi-record user events while
// walking a snapshot's fixed-size event ring. It owns scratch state across
// calls and must not be used from more than one goroutine concurrently.
type SnapshotEventParser struct {
	endianness Endianness

	accumulatedTime  Timestamp
	dtsForNextEvent  DifferentialTimestamp

	userEventArgCount int
	userEventRecords  []SnapshotEventRecord

	properties *ObjectPropertyTable
	symbols    *SnapshotSymbolTable
	logger     *log.Helper
}

// NewSnapshotEventParser constructs a parser bound to the given endianness
// and the decoded header's object property and symbol tables.
func NewSnapshotEventParser(endianness Endianness, properties *ObjectPropertyTable, symbols *SnapshotSymbolTable, logger *log.Helper) *SnapshotEventParser {
	return &SnapshotEventParser{
		endianness: endianness,
		properties: properties,
		symbols:    symbols,
		logger:     logger,
	}
}

func (p *SnapshotEventParser) isCapturingUserEventRecords() bool {
	return len(p.userEventRecords) > 0
}

func (p *SnapshotEventParser) beginUserEvent(argCount uint8, record SnapshotEventRecord) {
	p.userEventArgCount = int(argCount)
	p.userEventRecords = p.userEventRecords[:0]
	p.userEventRecords = append(p.userEventRecords, record)
}

func (p *SnapshotEventParser) endUserEvent() {
	p.userEventRecords = p.userEventRecords[:0]
	p.userEventArgCount = 0
}

// dtsFromByte folds an 8-bit DTS suffix into the running accumulator and
// returns the resulting, clock-correct Timestamp.
func (p *SnapshotEventParser) dtsFromByte(v uint8) Timestamp {
	p.dtsForNextEvent.AddDts8(v)
	p.accumulatedTime = p.accumulatedTime.Add(p.dtsForNextEvent)
	p.dtsForNextEvent.Clear()
	return p.accumulatedTime
}

// dtsFromWord folds a 16-bit DTS suffix into the running accumulator and
// returns the resulting, clock-correct Timestamp.
func (p *SnapshotEventParser) dtsFromWord(v uint16) Timestamp {
	p.dtsForNextEvent.AddDts16(v)
	p.accumulatedTime = p.accumulatedTime.Add(p.dtsForNextEvent)
	p.dtsForNextEvent.Clear()
	return p.accumulatedTime
}

// Parse decodes one 4-byte record, returning (nil, nil) for records that
// intentionally produce no event (Xts8, Xts16, EventBeingWritten, and
// mid-reassembly user-event continuation records).
func (p *SnapshotEventParser) Parse(record SnapshotEventRecord) (*SnapshotEvent, error) {
	if p.isCapturingUserEventRecords() {
		p.userEventRecords = append(p.userEventRecords, record)
		if len(p.userEventRecords) == p.userEventArgCount+1 {
			return p.parseUserEvent()
		}
		return nil, nil
	}

	code := record.EventCode()
	t := SnapshotEventTypeFromCode(code)

	switch {
	case t.IsXts8():
		xts8 := record[1]
		order := p.endianness.ByteOrder()
		xts16 := order.Uint16(record[2:4])
		p.dtsForNextEvent = DifferentialTimestampFromXts8(xts8, xts16)
		return nil, nil

	case t.IsXts16():
		order := p.endianness.ByteOrder()
		xts16 := order.Uint16(record[2:4])
		p.dtsForNextEvent = DifferentialTimestampFromXts16(xts16)
		return nil, nil

	case t.IsEventBeingWritten():
		return nil, nil

	case t.IsTaskSwitchIsrBegin(), t.IsTaskSwitchIsrResume():
		handle, ok := NewObjectHandle(uint32(record[1]))
		if !ok {
			return nil, fmt.Errorf("%w: isr event", ErrInvalidObjectHandle)
		}
		dts := p.endianness.ByteOrder().Uint16(record[2:4])
		ts := p.dtsFromWord(dts)
		props, err := p.properties.Lookup(ObjectClassIsr, handle)
		if err != nil {
			return nil, err
		}
		ev := &IsrEvent{Handle: handle, Name: props.DisplayName(), Priority: Priority(props.Properties[0]), Timestamp: ts}
		if t.IsTaskSwitchIsrBegin() {
			return &SnapshotEvent{Kind: SnapshotEventIsrBegin, IsrBegin: ev}, nil
		}
		return &SnapshotEvent{Kind: SnapshotEventIsrResume, IsrResume: ev}, nil

	case t.IsTaskReady(), t.IsTaskSwitchTaskBegin(), t.IsTaskSwitchTaskResume():
		handle, ok := NewObjectHandle(uint32(record[1]))
		if !ok {
			return nil, fmt.Errorf("%w: task event", ErrInvalidObjectHandle)
		}
		dts := p.endianness.ByteOrder().Uint16(record[2:4])
		ts := p.dtsFromWord(dts)
		props, err := p.properties.Lookup(ObjectClassTask, handle)
		if err != nil {
			return nil, err
		}
		ev := &TaskEvent{
			Handle:    handle,
			Name:      props.DisplayName(),
			Priority:  Priority(props.Properties[0]),
			State:     taskStateFromProperties(props),
			Timestamp: ts,
		}
		switch {
		case t.IsTaskReady():
			return &SnapshotEvent{Kind: SnapshotEventTaskReady, TaskReady: ev}, nil
		case t.IsTaskSwitchTaskBegin():
			return &SnapshotEvent{Kind: SnapshotEventTaskBegin, TaskBegin: ev}, nil
		default:
			return &SnapshotEvent{Kind: SnapshotEventTaskResume, TaskResume: ev}, nil
		}

	case t.IsLowPowerBegin(), t.IsLowPowerEnd():
		dts := p.endianness.ByteOrder().Uint16(record[2:4])
		ts := p.dtsFromWord(dts)
		if t.IsLowPowerBegin() {
			return &SnapshotEvent{Kind: SnapshotEventLowPowerBegin, LowPowerBegin: &LowPowerEvent{Timestamp: ts}}, nil
		}
		return &SnapshotEvent{Kind: SnapshotEventLowPowerEnd, LowPowerEnd: &LowPowerEvent{Timestamp: ts}}, nil

	case t.IsUserEvent():
		p.beginUserEvent(t.UserEventArgCount, record)
		if p.userEventArgCount == 0 {
			return p.parseUserEvent()
		}
		return nil, nil

	case t.IsCreateObject():
		handle, ok := NewObjectHandle(uint32(record[1]))
		if !ok {
			return nil, fmt.Errorf("%w: create object event", ErrInvalidObjectHandle)
		}
		p.dtsFromByte(record[3])
		if t.Class == ObjectClassTask {
			props, err := p.properties.Lookup(ObjectClassTask, handle)
			if err != nil {
				return nil, err
			}
			ev := &TaskEvent{
				Handle:    handle,
				Name:      props.DisplayName(),
				Priority:  Priority(props.Properties[0]),
				State:     taskStateFromProperties(props),
				Timestamp: p.accumulatedTime,
			}
			return &SnapshotEvent{Kind: SnapshotEventTaskCreate, TaskCreate: ev}, nil
		}
		return &SnapshotEvent{Kind: SnapshotEventUnknown, UnknownTimestamp: p.accumulatedTime, UnknownRecord: record}, nil

	case t.Kind == snapshotKindClassIndexed:
		// The remaining kernel-call shapes (send/receive/peek/delete/...)
		// share a handle+Dts8 layout. They intentionally have no typed
		// decoder, but the clock must stay correct, so Unknown is emitted
		// with the advanced accumulated time.
		p.dtsFromByte(record[3])
		return &SnapshotEvent{Kind: SnapshotEventUnknown, UnknownTimestamp: p.accumulatedTime, UnknownRecord: record}, nil

	default:
		// Fixed codes with no further structure: DTS byte 3 still
		// advances the clock for the same reason.
		p.dtsFromByte(record[3])
		return &SnapshotEvent{Kind: SnapshotEventUnknown, UnknownTimestamp: p.accumulatedTime, UnknownRecord: record}, nil
	}
}

func taskStateFromProperties(props *ObjectProperties) TaskState {
	if len(props.Properties) > 1 && props.Properties[1] != 0 {
		return TaskStateActive
	}
	return TaskStateInactive
}

func (p *SnapshotEventParser) parseUserEvent() (*SnapshotEvent, error) {
	defer p.endUserEvent()

	base := p.userEventRecords[0]
	dts := base[1]
	order := p.endianness.ByteOrder()
	fmtIndex := order.Uint16(base[2:4])
	ts := p.dtsFromByte(dts)

	if fmtIndex == 0 {
		return nil, ErrInvalidSymbolTableIndex
	}
	entry, ok := p.symbols.Entry(fmtIndex)
	if !ok {
		return nil, fmt.Errorf("%w: index %d", ErrFormatSymbolLookup, fmtIndex)
	}

	channel := DefaultUserEventChannel
	if entry.ChannelIndex != nil {
		if ch, ok := p.symbols.Entry(*entry.ChannelIndex); ok {
			channel = UserEventChannel{Custom: ch.Symbol}
		}
	}

	var argBytes []byte
	for _, r := range p.userEventRecords[1:] {
		argBytes = append(argBytes, r[:]...)
	}

	lookup := func(h ObjectHandle) (string, bool) {
		e, ok := p.symbols.Entry(uint16(h))
		if !ok {
			return "", false
		}
		return e.Symbol, true
	}

	formatted, args, err := FormatSymbolString(p.logger, ProtocolSnapshot, order, entry.Symbol, argBytes, lookup)
	if err != nil {
		return nil, err
	}

	ev := &SnapshotUserEvent{
		Timestamp:       ts,
		Channel:         channel,
		FormatString:    entry.Symbol,
		FormattedString: formatted,
		Args:            args,
	}
	return &SnapshotEvent{Kind: SnapshotEventUser, User: ev}, nil
}
