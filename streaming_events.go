// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

// StreamingEventCount is the wire event sequence counter carried by every
// streaming record, independent of TrackingEventCounter which is a
// higher-level wraparound-aware view of the same field.
type StreamingEventCount uint16

// BaseEvent is the common envelope shared by every decoded streaming
// event: its code, sequence counter, timestamp, and raw parameter words
// for variants without a typed decoder.
type BaseEvent struct {
	Code       StreamingEventCode
	EventCount StreamingEventCount
	Timestamp  Timestamp
	Parameters []uint32

	// DroppedEvents is the number of events TrackingEventCounter inferred
	// were missed between this event and the previous one (0 if none).
	DroppedEvents uint64
}

// TraceStartEvent marks the start of a streaming capture.
type TraceStartEvent struct {
	BaseEvent
	OsTicks        uint32
	CurrentTask    string
	SessionCounter uint32
}

// TsConfigEvent reports the streaming trace's timer configuration inline,
// mirroring the header's TimestampInfo but observed mid-stream.
type TsConfigEvent struct {
	BaseEvent
	Frequency            Frequency
	TickRateHz           uint32
	HwtcType             uint32
	IsrChainingThreshold uint32
	CustomTimerPeriod    *uint32
}

// ObjectNameEvent associates a handle with a symbol name.
type ObjectNameEvent struct {
	BaseEvent
	Handle ObjectHandle
	Name   string
}

// TaskEvent is the common shape of task-lifecycle events (priority change,
// create, ready, switch-resume, activate).
type TaskEvent struct {
	BaseEvent
	Handle   ObjectHandle
	Name     string
	Priority Priority
}

// IsrEvent is the common shape of ISR-lifecycle events (define, switch
// begin/resume).
type IsrEvent struct {
	BaseEvent
	Handle   ObjectHandle
	Name     string
	Priority Priority
}

// StreamingUserEvent is a fully decoded, formatted user event.
type StreamingUserEvent struct {
	BaseEvent
	Channel         UserEventChannel
	FormatString    string
	FormattedString string
	Args            []Argument
}

// KernelObjectEvent is the common shape of queue/semaphore/mutex/event-
// group/stream-buffer/message-buffer lifecycle and operation events: a
// handle resolved against the entry table's class and name, an
// operation-specific optional ticks-to-wait, and an operation-specific
// trailing value (queue length, semaphore/event-group count or bits,
// buffer byte count) whose meaning is fixed by Operation and absent
// (Value == 0, HasValue == false) for operations that carry none, such
// as mutex events.
type KernelObjectEvent struct {
	BaseEvent
	Class       ObjectClass
	Handle      ObjectHandle
	Name        string
	Operation   KernelObjectOperation
	TicksToWait *uint32
	Value       uint32
	HasValue    bool
}

// MemoryEvent reports a heap allocation or free, with the running Heap
// accounting (maintained by the parser via Heap.HandleAlloc/HandleFree)
// attached.
type MemoryEvent struct {
	BaseEvent
	Address uint32
	Size    uint32
	Heap    Heap
}

// StreamingEvent is the sum type of everything the streaming parser can
// emit. Exactly one field besides Kind/Base is meaningful.
type StreamingEvent struct {
	Kind streamingEventKind
	Base BaseEvent

	TraceStart *TraceStartEvent
	TsConfig   *TsConfigEvent
	ObjectName *ObjectNameEvent

	TaskPriority *TaskEvent
	TaskCreate   *TaskEvent
	TaskReady    *TaskEvent
	TaskBegin    *TaskEvent
	TaskResume   *TaskEvent
	TaskActivate *TaskEvent

	IsrDefine *IsrEvent
	IsrBegin  *IsrEvent
	IsrResume *IsrEvent

	User *StreamingUserEvent

	Queue         *KernelObjectEvent
	Semaphore     *KernelObjectEvent
	Mutex         *KernelObjectEvent
	EventGroup    *KernelObjectEvent
	StreamBuffer  *KernelObjectEvent
	MessageBuffer *KernelObjectEvent

	MemoryAlloc *MemoryEvent
	MemoryFree  *MemoryEvent
}
