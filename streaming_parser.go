// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-kratos/kratos/v2/log"
)

// StreamingEventParser is the stateful decoder that walks a streaming
// trace's event records. It owns scratch buffers across calls and must
// not be used from more than one goroutine concurrently.
type StreamingEventParser struct {
	endianness Endianness
	order      binary.ByteOrder
	entries    *EntryTable
	logger     *log.Helper

	instant StreamingInstant
	counter TrackingEventCounter
	heap    Heap

	customPrintfEventID *uint16
}

// SetCustomPrintfEventID configures the event ID a target was set up to
// emit its custom-printf-shaped user events under, enabling decoding of
// that third user-event shape alongside the standard 0x90-0x9F ones.
func (p *StreamingEventParser) SetCustomPrintfEventID(id uint16) {
	p.customPrintfEventID = &id
}

// NewStreamingEventParser constructs a parser bound to the given
// endianness and entry table.
func NewStreamingEventParser(endianness Endianness, entries *EntryTable, logger *log.Helper) *StreamingEventParser {
	return &StreamingEventParser{
		endianness: endianness,
		order:      endianness.ByteOrder(),
		entries:    entries,
		logger:     logger,
	}
}

// Next reads and decodes the next event record from r. It returns
// (nil, io.EOF) at a clean end of stream, and *ErrTraceRestarted when the
// first 4 bytes of what was expected to be a record header instead match
// a PSF sentinel: the caller should stop reading from this parser and
// build a fresh one via ReadStreamingWithEndianness at the same reader
// position.
func (p *StreamingEventParser) Next(r io.Reader) (*StreamingEvent, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, err
	}
	if bytes.Equal(head[:], psfWordLittle[:]) {
		return nil, &ErrTraceRestarted{Endianness: LittleEndian}
	}
	if bytes.Equal(head[:], psfWordBig[:]) {
		return nil, &ErrTraceRestarted{Endianness: BigEndian}
	}

	code := StreamingEventCode(p.order.Uint16(head[0:2]))
	eventCount, err := readU16(r, p.order)
	if err != nil {
		return nil, err
	}
	timestamp, err := readU32(r, p.order)
	if err != nil {
		return nil, err
	}
	numParams := code.ParameterCount()

	base := BaseEvent{
		Code:       code,
		EventCount: StreamingEventCount(eventCount),
		Timestamp:  p.instant.Elapsed(timestamp),
	}
	if dropped, hadDrop := p.counter.Update(eventCount); hadDrop {
		base.DroppedEvents = dropped
	}

	if p.customPrintfEventID != nil && code.EventID() == *p.customPrintfEventID {
		return p.decodeCustomPrintfEvent(r, base)
	}

	t := StreamingEventTypeFromID(code.EventID())

	expect := func(want uint8) error {
		if numParams != want {
			return fmt.Errorf("%w: id %#x want %d got %d", ErrInvalidEventParameterCount, code.EventID(), want, numParams)
		}
		return nil
	}
	atLeast := func(want uint8) error {
		if numParams < want {
			return fmt.Errorf("%w: id %#x want at least %d got %d", ErrInvalidEventParameterCount, code.EventID(), want, numParams)
		}
		return nil
	}
	readHandle := func() (ObjectHandle, error) {
		raw, err := readU32(r, p.order)
		if err != nil {
			return 0, err
		}
		h, ok := NewObjectHandle(raw)
		if !ok {
			return 0, fmt.Errorf("%w: id %#x", ErrInvalidObjectHandle, code.EventID())
		}
		return h, nil
	}
	symbolOf := func(h ObjectHandle) (string, error) {
		sym, ok := p.entries.Symbol(h)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrObjectLookup, h)
		}
		return sym, nil
	}

	switch t.Kind {
	case StreamingEventTraceStart:
		if err := expect(3); err != nil {
			return nil, err
		}
		osTicks, err := readU32(r, p.order)
		if err != nil {
			return nil, err
		}
		handle, err := readHandle()
		if err != nil {
			return nil, err
		}
		sessionCounter, err := readU32(r, p.order)
		if err != nil {
			return nil, err
		}
		sym, err := symbolOf(handle)
		if err != nil {
			return nil, err
		}
		ev := &TraceStartEvent{BaseEvent: base, OsTicks: osTicks, CurrentTask: sym, SessionCounter: sessionCounter}
		return &StreamingEvent{Kind: t.Kind, Base: base, TraceStart: ev}, nil

	case StreamingEventTsConfig:
		var usesCustomTimer bool
		switch numParams {
		case 4:
			usesCustomTimer = false
		case 5:
			usesCustomTimer = true
		default:
			return nil, fmt.Errorf("%w: id %#x want 4 or 5 got %d", ErrInvalidEventParameterCount, code.EventID(), numParams)
		}
		freq, err := readU32(r, p.order)
		if err != nil {
			return nil, err
		}
		tickRate, err := readU32(r, p.order)
		if err != nil {
			return nil, err
		}
		hwtcType, err := readU32(r, p.order)
		if err != nil {
			return nil, err
		}
		isrThreshold, err := readU32(r, p.order)
		if err != nil {
			return nil, err
		}
		var period *uint32
		if usesCustomTimer {
			v, err := readU32(r, p.order)
			if err != nil {
				return nil, err
			}
			period = &v
		}
		ev := &TsConfigEvent{
			BaseEvent:            base,
			Frequency:            Frequency(freq),
			TickRateHz:           tickRate,
			HwtcType:             hwtcType,
			IsrChainingThreshold: isrThreshold,
			CustomTimerPeriod:    period,
		}
		return &StreamingEvent{Kind: t.Kind, Base: base, TsConfig: ev}, nil

	case StreamingEventObjectName:
		if err := atLeast(1); err != nil {
			return nil, err
		}
		handle, err := readHandle()
		if err != nil {
			return nil, err
		}
		name, err := readTrimmedString(r, (int(numParams)-1)*4)
		if err != nil {
			return nil, err
		}
		p.entries.setSymbol(handle, name)
		ev := &ObjectNameEvent{BaseEvent: base, Handle: handle, Name: name}
		return &StreamingEvent{Kind: t.Kind, Base: base, ObjectName: ev}, nil

	case StreamingEventTaskPriority:
		if err := expect(2); err != nil {
			return nil, err
		}
		handle, err := readHandle()
		if err != nil {
			return nil, err
		}
		priority, err := readU32(r, p.order)
		if err != nil {
			return nil, err
		}
		p.entries.setPriority(handle, Priority(priority))
		sym, err := symbolOf(handle)
		if err != nil {
			return nil, err
		}
		ev := &TaskEvent{BaseEvent: base, Handle: handle, Name: sym, Priority: Priority(priority)}
		return &StreamingEvent{Kind: t.Kind, Base: base, TaskPriority: ev}, nil

	case StreamingEventDefineIsr:
		if err := atLeast(1); err != nil {
			return nil, err
		}
		handle, err := readHandle()
		if err != nil {
			return nil, err
		}
		priority, err := readU32(r, p.order)
		if err != nil {
			return nil, err
		}
		p.entries.setPriority(handle, Priority(priority))
		p.entries.setClass(handle, ObjectClassIsr)
		name, err := readTrimmedString(r, (int(numParams)-2)*4)
		if err != nil {
			return nil, err
		}
		p.entries.setSymbol(handle, name)
		ev := &IsrEvent{BaseEvent: base, Handle: handle, Name: name, Priority: Priority(priority)}
		return &StreamingEvent{Kind: t.Kind, Base: base, IsrDefine: ev}, nil

	case StreamingEventTaskCreate:
		if err := expect(2); err != nil {
			return nil, err
		}
		handle, err := readHandle()
		if err != nil {
			return nil, err
		}
		priority, err := readU32(r, p.order)
		if err != nil {
			return nil, err
		}
		p.entries.setPriority(handle, Priority(priority))
		p.entries.setClass(handle, ObjectClassTask)
		sym, err := symbolOf(handle)
		if err != nil {
			return nil, err
		}
		ev := &TaskEvent{BaseEvent: base, Handle: handle, Name: sym, Priority: Priority(priority)}
		return &StreamingEvent{Kind: t.Kind, Base: base, TaskCreate: ev}, nil

	case StreamingEventTaskReady:
		if err := expect(1); err != nil {
			return nil, err
		}
		handle, err := readHandle()
		if err != nil {
			return nil, err
		}
		priority, ok := p.entries.Priority(handle)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrObjectLookup, handle)
		}
		sym, err := symbolOf(handle)
		if err != nil {
			return nil, err
		}
		ev := &TaskEvent{BaseEvent: base, Handle: handle, Name: sym, Priority: priority}
		return &StreamingEvent{Kind: t.Kind, Base: base, TaskReady: ev}, nil

	case StreamingEventTaskSwitchIsrBegin, StreamingEventTaskSwitchIsrResume:
		if err := expect(1); err != nil {
			return nil, err
		}
		handle, err := readHandle()
		if err != nil {
			return nil, err
		}
		priority, ok := p.entries.Priority(handle)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrObjectLookup, handle)
		}
		sym, err := symbolOf(handle)
		if err != nil {
			return nil, err
		}
		ev := &IsrEvent{BaseEvent: base, Handle: handle, Name: sym, Priority: priority}
		if t.Kind == StreamingEventTaskSwitchIsrBegin {
			return &StreamingEvent{Kind: t.Kind, Base: base, IsrBegin: ev}, nil
		}
		return &StreamingEvent{Kind: t.Kind, Base: base, IsrResume: ev}, nil

	case StreamingEventTaskSwitchTaskBegin, StreamingEventTaskSwitchTaskResume:
		if err := expect(1); err != nil {
			return nil, err
		}
		handle, err := readHandle()
		if err != nil {
			return nil, err
		}
		priority, ok := p.entries.Priority(handle)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrObjectLookup, handle)
		}
		sym, err := symbolOf(handle)
		if err != nil {
			return nil, err
		}
		ev := &TaskEvent{BaseEvent: base, Handle: handle, Name: sym, Priority: priority}
		if t.Kind == StreamingEventTaskSwitchTaskBegin {
			return &StreamingEvent{Kind: t.Kind, Base: base, TaskBegin: ev}, nil
		}
		return &StreamingEvent{Kind: t.Kind, Base: base, TaskResume: ev}, nil

	case StreamingEventTaskActivate:
		if err := expect(2); err != nil {
			return nil, err
		}
		handle, err := readHandle()
		if err != nil {
			return nil, err
		}
		priority, err := readU32(r, p.order)
		if err != nil {
			return nil, err
		}
		p.entries.setPriority(handle, Priority(priority))
		sym, err := symbolOf(handle)
		if err != nil {
			return nil, err
		}
		ev := &TaskEvent{BaseEvent: base, Handle: handle, Name: sym, Priority: Priority(priority)}
		return &StreamingEvent{Kind: t.Kind, Base: base, TaskActivate: ev}, nil

	case StreamingEventUserEvent:
		if err := atLeast(1); err != nil {
			return nil, err
		}

		channelHandle, err := readHandle()
		if err != nil {
			return nil, err
		}
		channel := DefaultUserEventChannel
		if sym, ok := p.entries.Symbol(channelHandle); ok {
			channel = UserEventChannel{Custom: sym}
		}

		lookup := func(h ObjectHandle) (string, bool) { return p.entries.Symbol(h) }

		// IDs 0x98-0x9F are "fixed" user events: the low nibble (offset
		// from streamingFixedUserEventBase, not streamingUserEventBase)
		// is the plain arg-record count, the record carries exactly
		// channel + args + a trailing format-string handle, and the
		// format string is resolved from the symbol table instead of
		// read inline.
		if code.EventID() >= streamingFixedUserEventBase {
			argCount := uint8(code.EventID() - streamingFixedUserEventBase)
			if err := expect(argCount + 2); err != nil {
				return nil, err
			}
			argBytes, err := readBytes(r, int(argCount)*4)
			if err != nil {
				return nil, err
			}
			fmtHandle, err := readHandle()
			if err != nil {
				return nil, err
			}
			formatString, ok := p.entries.Symbol(fmtHandle)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrFixedUserEventFmtStringLookup, fmtHandle)
			}
			formatted, args, ferr := FormatSymbolString(p.logger, ProtocolStreaming, p.order, formatString, argBytes, lookup)
			if ferr != nil {
				return nil, ferr
			}
			ev := &StreamingUserEvent{
				BaseEvent:       base,
				Channel:         channel,
				FormatString:    formatString,
				FormattedString: formatted,
				Args:            args,
			}
			return &StreamingEvent{Kind: t.Kind, Base: base, User: ev}, nil
		}

		if t.UserEventArgCount >= numParams {
			return nil, fmt.Errorf("%w: id %#x arg count %d >= params %d", ErrInvalidEventParameterCount, code.EventID(), t.UserEventArgCount, numParams)
		}

		notFmtArgCount := 0
		if t.UserEventArgCount != 0 {
			notFmtArgCount = int(t.UserEventArgCount) - 1
		}
		argBytes, err := readBytes(r, notFmtArgCount*4)
		if err != nil {
			return nil, err
		}

		fmtByteCount := (int(numParams) - 1 - notFmtArgCount) * 4
		formatString, err := readTrimmedString(r, fmtByteCount)
		if err != nil {
			return nil, err
		}

		formatted, args, ferr := FormatSymbolString(p.logger, ProtocolStreaming, p.order, formatString, argBytes, lookup)
		if ferr != nil {
			return nil, ferr
		}

		ev := &StreamingUserEvent{
			BaseEvent:       base,
			Channel:         channel,
			FormatString:    formatString,
			FormattedString: formatted,
			Args:            args,
		}
		return &StreamingEvent{Kind: t.Kind, Base: base, User: ev}, nil

	case StreamingEventQueue, StreamingEventSemaphore, StreamingEventMutex,
		StreamingEventEventGroup, StreamingEventStreamBuffer, StreamingEventMessageBuffer:
		spec, ok := kernelObjectSpecForID(code.EventID())
		if !ok {
			return nil, fmt.Errorf("%w: id %#x", ErrInvalidObjectHandle, code.EventID())
		}

		want := uint8(1)
		if spec.ticksToWait {
			want++
		}
		if spec.value {
			want++
		}
		if err := expect(want); err != nil {
			return nil, err
		}

		handle, err := readHandle()
		if err != nil {
			return nil, err
		}
		p.entries.setClass(handle, spec.class)

		var ticksToWait *uint32
		if spec.ticksToWait {
			v, err := readU32(r, p.order)
			if err != nil {
				return nil, err
			}
			ticksToWait = &v
		}

		var value uint32
		if spec.value {
			v, err := readU32(r, p.order)
			if err != nil {
				return nil, err
			}
			value = v
		}

		name, _ := p.entries.Symbol(handle)
		ev := &KernelObjectEvent{
			BaseEvent:   base,
			Class:       spec.class,
			Handle:      handle,
			Name:        name,
			Operation:   spec.operation,
			TicksToWait: ticksToWait,
			Value:       value,
			HasValue:    spec.value,
		}
		se := &StreamingEvent{Kind: t.Kind, Base: base}
		switch t.Kind {
		case StreamingEventQueue:
			se.Queue = ev
		case StreamingEventSemaphore:
			se.Semaphore = ev
		case StreamingEventMutex:
			se.Mutex = ev
		case StreamingEventEventGroup:
			se.EventGroup = ev
		case StreamingEventStreamBuffer:
			se.StreamBuffer = ev
		case StreamingEventMessageBuffer:
			se.MessageBuffer = ev
		}
		return se, nil

	case StreamingEventMemoryAlloc, StreamingEventMemoryFree:
		if err := expect(2); err != nil {
			return nil, err
		}
		address, err := readU32(r, p.order)
		if err != nil {
			return nil, err
		}
		size, err := readU32(r, p.order)
		if err != nil {
			return nil, err
		}
		if t.Kind == StreamingEventMemoryAlloc {
			p.heap.HandleAlloc(size)
		} else {
			p.heap.HandleFree(size)
		}
		ev := &MemoryEvent{BaseEvent: base, Address: address, Size: size, Heap: p.heap}
		se := &StreamingEvent{Kind: t.Kind, Base: base}
		if t.Kind == StreamingEventMemoryAlloc {
			se.MemoryAlloc = ev
		} else {
			se.MemoryFree = ev
		}
		return se, nil

	default:
		params := make([]uint32, numParams)
		for i := range params {
			v, err := readU32(r, p.order)
			if err != nil {
				return nil, err
			}
			params[i] = v
		}
		base.Parameters = params
		return &StreamingEvent{Kind: StreamingEventUnknown, Base: base}, nil
	}
}

// decodeCustomPrintfEvent decodes the third user-event shape: a target
// configured with a custom printf event ID emits it with an explicit
// channel handle, then u16 args-byte-length and u16 format-string-byte-
// length words, followed by the args and the (non-trimmed-on-the-wire,
// length-prefixed) format string, rather than the standard inline
// word-counted shape.
func (p *StreamingEventParser) decodeCustomPrintfEvent(r io.Reader, base BaseEvent) (*StreamingEvent, error) {
	raw, err := readU32(r, p.order)
	if err != nil {
		return nil, err
	}
	channelHandle, ok := NewObjectHandle(raw)
	if !ok {
		return nil, fmt.Errorf("%w: custom printf event", ErrInvalidObjectHandle)
	}
	channel := DefaultUserEventChannel
	if sym, ok := p.entries.Symbol(channelHandle); ok {
		channel = UserEventChannel{Custom: sym}
	}

	argsLen, err := readU16(r, p.order)
	if err != nil {
		return nil, err
	}
	fmtLen, err := readU16(r, p.order)
	if err != nil {
		return nil, err
	}
	argBytes, err := readBytes(r, int(argsLen))
	if err != nil {
		return nil, err
	}
	formatString, err := readTrimmedString(r, int(fmtLen))
	if err != nil {
		return nil, err
	}

	lookup := func(h ObjectHandle) (string, bool) { return p.entries.Symbol(h) }
	formatted, args, err := FormatSymbolString(p.logger, ProtocolStreaming, p.order, formatString, argBytes, lookup)
	if err != nil {
		return nil, err
	}

	ev := &StreamingUserEvent{
		BaseEvent:       base,
		Channel:         channel,
		FormatString:    formatString,
		FormattedString: formatted,
		Args:            args,
	}
	return &StreamingEvent{Kind: StreamingEventUserEvent, Base: base, User: ev}, nil
}

func readTrimmedString(r io.Reader, n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	raw, err := readBytes(r, n)
	if err != nil {
		return "", err
	}
	return TrimmedString(raw), nil
}
