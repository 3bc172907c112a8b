// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import "errors"

// Errors returned by the snapshot and streaming decoders. These are the
// closed taxonomy surfaced to callers; wrap them with fmt.Errorf("%w", ...)
// when positional context (an offset, a handle, an event id) is useful,
// and unwrap with errors.Is/errors.As.
var (
	// ErrMarkerBytes is returned when a fixed 12-byte snapshot marker
	// (start or end) does not match at the expected position.
	ErrMarkerBytes = errors.New("marker bytes mismatch")

	// ErrDebugMarker is returned when a 4-byte snapshot debug marker
	// does not match its expected sentinel value.
	ErrDebugMarker = errors.New("debug marker mismatch")

	// ErrKernelVersion is returned when the 2-byte kernel version field
	// does not encode a recognized endianness/port sentinel pair.
	ErrKernelVersion = errors.New("invalid kernel version bytes")

	// ErrPSFEndiannessIdentifier is returned when the 4-byte streaming
	// PSF word does not match either endianness encoding.
	ErrPSFEndiannessIdentifier = errors.New("invalid PSF endianness identifier")

	// ErrInvalidSymbolTableIndex is returned when a symbol-table handle
	// referenced by an event is zero or otherwise cannot be a valid index.
	ErrInvalidSymbolTableIndex = errors.New("invalid symbol table index")

	// ErrInvalidObjectHandle is returned when an object handle decoded
	// from an event record is zero.
	ErrInvalidObjectHandle = errors.New("invalid object handle")

	// ErrObjectLookup is returned when a decoded object handle has no
	// corresponding entry in the object property table / entry table.
	ErrObjectLookup = errors.New("object handle lookup failed")

	// ErrChannelSymbolLookup is returned when a user event's channel
	// handle cannot be resolved in the symbol table.
	ErrChannelSymbolLookup = errors.New("channel symbol lookup failed")

	// ErrFormatSymbolLookup is returned when a user event's format
	// string handle cannot be resolved in the symbol table.
	ErrFormatSymbolLookup = errors.New("format string symbol lookup failed")

	// ErrFixedUserEventFmtStringLookup is returned when a fixed-shape
	// user event's format string handle cannot be resolved.
	ErrFixedUserEventFmtStringLookup = errors.New("fixed user event format string lookup failed")

	// ErrInvalidEventParameterCount is returned when a streaming event's
	// wire parameter count does not match what its type requires.
	ErrInvalidEventParameterCount = errors.New("invalid event parameter count")

	// ErrInvalidTimerCounter is returned when the streaming timestamp
	// info's hardware timer counter type is outside 1..=6.
	ErrInvalidTimerCounter = errors.New("invalid timer counter type")

	// ErrInvalidEntryTableSymbolSize is returned when the streaming
	// entry table's symbol_size field is less than 1.
	ErrInvalidEntryTableSymbolSize = errors.New("invalid entry table symbol size")

	// ErrInvalidEntryTableStateCount is returned when the streaming
	// entry table's state_count field is less than 3.
	ErrInvalidEntryTableStateCount = errors.New("invalid entry table state count")

	// ErrUnsupported16bitHandles is returned when a snapshot trace
	// declares 16-bit object handles, which this decoder does not support.
	ErrUnsupported16bitHandles = errors.New("16-bit object handles are not supported")

	// ErrUnsupportedUserEventBuffer is returned when a snapshot trace
	// uses secondary user event buffers, which are not supported.
	ErrUnsupportedUserEventBuffer = errors.New("user event buffer is not supported")

	// ErrFormattedString wraps a failure formatting a user event's
	// printf-style payload.
	ErrFormattedString = errors.New("formatted string error")
)

// ErrTraceRestarted is a control signal, not a terminal failure: the
// on-target stream restarted mid-capture (detected via an embedded PSF
// sentinel where an event header was expected). The caller should stop
// reading from the current Streaming decoder and build a new one with
// ReadStreamingWithEndianness, resuming from the same reader position.
type ErrTraceRestarted struct {
	Endianness Endianness
}

func (e *ErrTraceRestarted) Error() string {
	return "trace restarted, endianness " + e.Endianness.String()
}
