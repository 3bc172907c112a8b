// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import "fmt"

// StreamingEventCode is the raw 2-byte event code of a streaming record:
// the low 12 bits are the event ID, the high 4 bits are the parameter
// count.
type StreamingEventCode uint16

// EventID returns the low 12 bits of the code.
func (c StreamingEventCode) EventID() uint16 { return uint16(c) & 0x0FFF }

// ParameterCount returns the number of 32-bit parameters the record body
// carries, per the high 4 bits of the code.
func (c StreamingEventCode) ParameterCount() uint8 { return uint8(uint16(c) >> 12) }

// streamingUserEventBase is the first event ID in the user-event range;
// the low nibble offset from this base is the event's declared argument
// record count (format string + args, word-counted).
const streamingUserEventBase = 0x90

// streamingFixedUserEventBase is the first event ID that may carry the
// fixed user-event shape (channel, args, trailing format-string handle)
// instead of the standard inline-format-string shape.
const streamingFixedUserEventBase = 0x98

// StreamingEventType is the closed enumeration of streaming event
// meanings, derived from an event ID. Unknown IDs still decode, carrying
// the raw ID, so the ID<->type mapping is total and round-trips exactly.
type StreamingEventType struct {
	Kind              streamingEventKind
	UserEventArgCount uint8
	KernelObject      KernelObjectOperation
	Class             ObjectClass
	rawID             uint16
}

type streamingEventKind uint8

const (
	StreamingEventNull streamingEventKind = iota
	StreamingEventTraceStart
	StreamingEventTsConfig
	StreamingEventObjectName
	StreamingEventTaskPriority
	StreamingEventDefineIsr
	StreamingEventTaskCreate
	StreamingEventTaskReady
	StreamingEventTaskSwitchIsrBegin
	StreamingEventTaskSwitchIsrResume
	StreamingEventTaskSwitchTaskBegin
	StreamingEventTaskSwitchTaskResume
	StreamingEventTaskActivate
	StreamingEventUserEvent

	StreamingEventQueue
	StreamingEventSemaphore
	StreamingEventMutex
	StreamingEventEventGroup
	StreamingEventStreamBuffer
	StreamingEventMessageBuffer
	StreamingEventMemoryAlloc
	StreamingEventMemoryFree

	StreamingEventUnknown
)

func (k streamingEventKind) String() string {
	switch k {
	case StreamingEventNull:
		return "NULL"
	case StreamingEventTraceStart:
		return "TRACE_START"
	case StreamingEventTsConfig:
		return "TS_CONFIG"
	case StreamingEventObjectName:
		return "OBJECT_NAME"
	case StreamingEventTaskPriority:
		return "TASK_PRIORITY"
	case StreamingEventDefineIsr:
		return "DEFINE_ISR"
	case StreamingEventTaskCreate:
		return "TASK_CREATE"
	case StreamingEventTaskReady:
		return "TASK_READY"
	case StreamingEventTaskSwitchIsrBegin:
		return "TS_ISR_BEGIN"
	case StreamingEventTaskSwitchIsrResume:
		return "TS_ISR_RESUME"
	case StreamingEventTaskSwitchTaskBegin:
		return "TS_TASK_BEGIN"
	case StreamingEventTaskSwitchTaskResume:
		return "TS_TASK_RESUME"
	case StreamingEventTaskActivate:
		return "TASK_ACTIVATE"
	case StreamingEventUserEvent:
		return "USER_EVENT"
	case StreamingEventQueue:
		return "QUEUE"
	case StreamingEventSemaphore:
		return "SEMAPHORE"
	case StreamingEventMutex:
		return "MUTEX"
	case StreamingEventEventGroup:
		return "EVENT_GROUP"
	case StreamingEventStreamBuffer:
		return "STREAM_BUFFER"
	case StreamingEventMessageBuffer:
		return "MESSAGE_BUFFER"
	case StreamingEventMemoryAlloc:
		return "MEMORY_ALLOC"
	case StreamingEventMemoryFree:
		return "MEMORY_FREE"
	default:
		return "UNKNOWN"
	}
}

func (t StreamingEventType) String() string {
	if t.Kind == StreamingEventUserEvent {
		return fmt.Sprintf("USER_EVENT(%d)", t.UserEventArgCount)
	}
	if t.Kind == StreamingEventUnknown {
		return fmt.Sprintf("UNKNOWN(%#x)", t.rawID)
	}
	if class, ok := kernelObjectClassForKind(t.Kind); ok {
		return fmt.Sprintf("%s(%s)", class, t.KernelObject)
	}
	return t.Kind.String()
}

// StreamingEventTypeFromID maps a 12-bit event ID to its StreamingEventType.
func StreamingEventTypeFromID(id uint16) StreamingEventType {
	if spec, ok := kernelObjectSpecForID(id); ok {
		return StreamingEventType{Kind: spec.kind, KernelObject: spec.operation, Class: spec.class, rawID: id}
	}
	switch id {
	case 0x00:
		return StreamingEventType{Kind: StreamingEventNull, rawID: id}
	case 0x01:
		return StreamingEventType{Kind: StreamingEventTraceStart, rawID: id}
	case 0x02:
		return StreamingEventType{Kind: StreamingEventTsConfig, rawID: id}
	case 0x03:
		return StreamingEventType{Kind: StreamingEventObjectName, rawID: id}
	case 0x04:
		return StreamingEventType{Kind: StreamingEventTaskPriority, rawID: id}
	case 0x07:
		return StreamingEventType{Kind: StreamingEventDefineIsr, rawID: id}
	case 0x10:
		return StreamingEventType{Kind: StreamingEventTaskCreate, rawID: id}
	case 0x30:
		return StreamingEventType{Kind: StreamingEventTaskReady, rawID: id}
	case 0x33:
		return StreamingEventType{Kind: StreamingEventTaskSwitchIsrBegin, rawID: id}
	case 0x34:
		return StreamingEventType{Kind: StreamingEventTaskSwitchIsrResume, rawID: id}
	case 0x35:
		return StreamingEventType{Kind: StreamingEventTaskSwitchTaskBegin, rawID: id}
	case 0x36:
		return StreamingEventType{Kind: StreamingEventTaskSwitchTaskResume, rawID: id}
	case 0x37:
		return StreamingEventType{Kind: StreamingEventTaskActivate, rawID: id}
	case streamingEventMemoryAllocID:
		return StreamingEventType{Kind: StreamingEventMemoryAlloc, rawID: id}
	case streamingEventMemoryFreeID:
		return StreamingEventType{Kind: StreamingEventMemoryFree, rawID: id}
	default:
		if id >= streamingUserEventBase && id <= streamingUserEventBase+0x0F {
			return StreamingEventType{Kind: StreamingEventUserEvent, UserEventArgCount: uint8(id - streamingUserEventBase), rawID: id}
		}
		return StreamingEventType{Kind: StreamingEventUnknown, rawID: id}
	}
}

// StreamingEventIDFromType is the exact inverse of StreamingEventTypeFromID.
func StreamingEventIDFromType(t StreamingEventType) uint16 {
	switch t.Kind {
	case StreamingEventNull:
		return 0x00
	case StreamingEventTraceStart:
		return 0x01
	case StreamingEventTsConfig:
		return 0x02
	case StreamingEventObjectName:
		return 0x03
	case StreamingEventTaskPriority:
		return 0x04
	case StreamingEventDefineIsr:
		return 0x07
	case StreamingEventTaskCreate:
		return 0x10
	case StreamingEventTaskReady:
		return 0x30
	case StreamingEventTaskSwitchIsrBegin:
		return 0x33
	case StreamingEventTaskSwitchIsrResume:
		return 0x34
	case StreamingEventTaskSwitchTaskBegin:
		return 0x35
	case StreamingEventTaskSwitchTaskResume:
		return 0x36
	case StreamingEventTaskActivate:
		return 0x37
	case StreamingEventMemoryAlloc:
		return streamingEventMemoryAllocID
	case StreamingEventMemoryFree:
		return streamingEventMemoryFreeID
	case StreamingEventUserEvent:
		return streamingUserEventBase + uint16(t.UserEventArgCount)
	default:
		if id, ok := kernelObjectIDFor(t.Kind, t.KernelObject); ok {
			return id
		}
		return t.rawID
	}
}
