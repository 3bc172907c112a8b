// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

// IsrEvent describes an ISR-related snapshot event (begin/resume).
type IsrEvent struct {
	Handle    ObjectHandle
	Name      string
	Priority  Priority
	Timestamp Timestamp
}

// TaskState is whether a task is active (running/ready) or inactive.
type TaskState uint8

const (
	TaskStateInactive TaskState = iota
	TaskStateActive
)

// TaskEvent describes a task-related snapshot event (ready/begin/resume).
type TaskEvent struct {
	Handle    ObjectHandle
	Name      string
	State     TaskState
	Priority  Priority
	Timestamp Timestamp
}

// LowPowerEvent describes entry into or exit from a low-power mode.
type LowPowerEvent struct {
	Timestamp Timestamp
}

// SnapshotUserEvent is a fully reassembled, decoded user event.
type SnapshotUserEvent struct {
	Timestamp       Timestamp
	Channel         UserEventChannel
	FormatString    string
	FormattedString string
	Args            []Argument
}

// SnapshotEvent is the sum type of everything the snapshot parser can
// emit. Exactly one field is meaningful per the Kind tag; Unknown is
// populated both for genuinely unrecognized codes and for known codes
// that intentionally have no typed decoder (many kernel-call events still
// advance the clock but are surfaced only as Unknown, by design).
type SnapshotEvent struct {
	Kind SnapshotEventKind

	IsrBegin  *IsrEvent
	IsrResume *IsrEvent

	TaskBegin  *TaskEvent
	TaskReady  *TaskEvent
	TaskResume *TaskEvent
	TaskCreate *TaskEvent

	LowPowerBegin *LowPowerEvent
	LowPowerEnd   *LowPowerEvent

	User *SnapshotUserEvent

	UnknownTimestamp Timestamp
	UnknownRecord    SnapshotEventRecord
}

// SnapshotEventKind discriminates which field of SnapshotEvent is populated.
type SnapshotEventKind uint8

const (
	SnapshotEventIsrBegin SnapshotEventKind = iota
	SnapshotEventIsrResume
	SnapshotEventTaskBegin
	SnapshotEventTaskReady
	SnapshotEventTaskResume
	SnapshotEventTaskCreate
	SnapshotEventLowPowerBegin
	SnapshotEventLowPowerEnd
	SnapshotEventUser
	SnapshotEventUnknown
)
