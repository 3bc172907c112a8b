// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import "fmt"

// SnapshotEventSize is the fixed size in bytes of a snapshot event record.
const SnapshotEventSize = 4

// SnapshotEventRecord is one raw 4-byte snapshot event record.
type SnapshotEventRecord [SnapshotEventSize]byte

// EventCode returns the record's event code (its first byte).
func (r SnapshotEventRecord) EventCode() SnapshotEventCode {
	return SnapshotEventCode(r[0])
}

// SnapshotEventCode is the raw 1-byte event code of a snapshot record.
type SnapshotEventCode uint8

// snapshotOperation names the 16 operations encoded in the upper 5 bits of
// the class-indexed event code range (0x08-0x87): op = code>>3, in
// [1,16]; class = code&0x07.
type snapshotOperation uint8

const (
	opObjectCloseName snapshotOperation = iota + 1
	opObjectCloseProperty
	opCreateObject
	opSend
	opReceive
	opSendFromIsr
	opReceiveFromIsr
	opCreateObjectFailed
	opSendFailed
	opReceiveFailed
	opSendFromIsrFailed
	opReceiveFromIsrFailed
	opReceiveBlock
	opSendBlock
	opPeek
	opDeleteObject
)

// SnapshotEventType is the closed enumeration of snapshot event meanings.
// Individually assigned low codes and the high 0x88-0xEA tail follow the
// fixed, version-stable mapping table of the on-target emitter; the
// 0x08-0x87 class-indexed range and the 0x98-0xA7 user-event range are
// derived algorithmically, matching the emitter's own bit layout.
type SnapshotEventType struct {
	// Class-indexed event: Op/Class are meaningful, fixedCode is ignored.
	Op    snapshotOperation
	Class ObjectClass
	// UserEventArgCount is meaningful only when Kind == snapshotKindUserEvent.
	UserEventArgCount uint8
	Kind              snapshotEventKind
	// fixedCode carries the exact byte for Kind == snapshotKindFixed so
	// the inverse mapping recovers it precisely.
	fixedCode SnapshotEventCode
}

type snapshotEventKind uint8

const (
	snapshotKindFixed snapshotEventKind = iota
	snapshotKindClassIndexed
	snapshotKindUserEvent
)

// Fixed, individually assigned snapshot event codes outside the
// class-indexed and user-event ranges.
const (
	codeNull                 SnapshotEventCode = 0x00
	codeXps                  SnapshotEventCode = 0x01
	codeTaskReady            SnapshotEventCode = 0x02
	codeNewTime              SnapshotEventCode = 0x03
	codeTaskSwitchIsrBegin   SnapshotEventCode = 0x04
	codeTaskSwitchIsrResume  SnapshotEventCode = 0x05
	codeTaskSwitchTaskBegin  SnapshotEventCode = 0x06
	codeTaskSwitchTaskResume SnapshotEventCode = 0x07

	codeLowPowerBegin     SnapshotEventCode = 0xAC
	codeLowPowerEnd       SnapshotEventCode = 0xAD
	codeXts8              SnapshotEventCode = 0xA8
	codeXts16             SnapshotEventCode = 0xA9
	codeEventBeingWritten SnapshotEventCode = 0xAA
	codeReservedDummy     SnapshotEventCode = 0xAB
	codeXid               SnapshotEventCode = 0xAE
	codeXts16l            SnapshotEventCode = 0xAF

	codeTimerExpired SnapshotEventCode = 0xDB
	codeUnusedStack  SnapshotEventCode = 0xEA
)

// fixedSnapshotEventNames gives display names to the individually assigned
// codes (not class-indexed, not user-event). The parser decodes some of
// them to typed events (task ready, task/ISR switch, low power), emits no
// event for XTS8, XTS16 and EVENT_BEING_WRITTEN, and surfaces the rest as
// Unknown with a correctly advanced clock.
var fixedSnapshotEventNames = map[SnapshotEventCode]string{
	codeNull:                 "NULL",
	codeXps:                  "XPS",
	codeTaskReady:            "TASK_READY",
	codeNewTime:              "NEW_TIME",
	codeTaskSwitchIsrBegin:   "TS_ISR_BEGIN",
	codeTaskSwitchIsrResume:  "TS_ISR_RESUME",
	codeTaskSwitchTaskBegin:  "TS_TASK_BEGIN",
	codeTaskSwitchTaskResume: "TS_TASK_RESUME",
	codeXts8:                 "XTS8",
	codeXts16:                "XTS16",
	codeEventBeingWritten:    "EVENT_BEING_WRITTEN",
	codeReservedDummy:        "RESERVED_DUMMY_CODE",
	codeLowPowerBegin:        "LOW_POWER_BEGIN",
	codeLowPowerEnd:          "LOW_POWER_END",
	codeXid:                  "XID",
	codeXts16l:               "XTS16L",
	codeTimerExpired:         "TIMER_EXPIRED",
	codeUnusedStack:          "UNUSED_STACK",
}

func snapshotOperationName(op snapshotOperation) string {
	switch op {
	case opObjectCloseName:
		return "OBJECT_CLOSE_NAME"
	case opObjectCloseProperty:
		return "OBJECT_CLOSE_PROPERTY"
	case opCreateObject:
		return "CREATE_OBJECT"
	case opSend:
		return "SEND"
	case opReceive:
		return "RECEIVE"
	case opSendFromIsr:
		return "SEND_FROM_ISR"
	case opReceiveFromIsr:
		return "RECEIVE_FROM_ISR"
	case opCreateObjectFailed:
		return "CREATE_OBJECT_FAILED"
	case opSendFailed:
		return "SEND_FAILED"
	case opReceiveFailed:
		return "RECEIVE_FAILED"
	case opSendFromIsrFailed:
		return "SEND_FROM_ISR_FAILED"
	case opReceiveFromIsrFailed:
		return "RECEIVE_FROM_ISR_FAILED"
	case opReceiveBlock:
		return "RECEIVE_BLOCK"
	case opSendBlock:
		return "SEND_BLOCK"
	case opPeek:
		return "PEEK"
	case opDeleteObject:
		return "DELETE_OBJECT"
	default:
		return "UNKNOWN_OP"
	}
}

func (t SnapshotEventType) String() string {
	switch t.Kind {
	case snapshotKindClassIndexed:
		return fmt.Sprintf("%s(%s)", snapshotOperationName(t.Op), t.Class)
	case snapshotKindUserEvent:
		return fmt.Sprintf("USER_EVENT(%d)", t.UserEventArgCount)
	default:
		if name, ok := fixedSnapshotEventNames[t.fixedCode]; ok {
			return name
		}
		return fmt.Sprintf("UNKNOWN(%#x)", uint8(t.fixedCode))
	}
}

// SnapshotEventTypeFromCode maps a raw event code to its SnapshotEventType.
// This is total: codes matching no known shape still decode, as an
// unnamed fixed event, so that the code->type->code round trip always
// succeeds (invariant 1 in the testable properties).
func SnapshotEventTypeFromCode(code SnapshotEventCode) SnapshotEventType {
	switch {
	case code >= 0x08 && code <= 0x87:
		return SnapshotEventType{
			Kind:  snapshotKindClassIndexed,
			Op:    snapshotOperation((code >> 3) & 0x1F),
			Class: ObjectClassFromSnapshotCode(uint8(code)),
		}
	case code >= 0x98 && code <= 0xA7:
		return SnapshotEventType{
			Kind:              snapshotKindUserEvent,
			UserEventArgCount: uint8(code - 0x98),
		}
	default:
		return SnapshotEventType{Kind: snapshotKindFixed, fixedCode: code}
	}
}

// fixedCode is unexported state carried only for fixed-kind events so the
// inverse mapping (SnapshotEventCodeFromType) can recover the exact byte.
// It is not part of the public Kind/Op/Class/UserEventArgCount surface.

// SnapshotEventCodeFromType is the exact inverse of
// SnapshotEventTypeFromCode.
func SnapshotEventCodeFromType(t SnapshotEventType) SnapshotEventCode {
	switch t.Kind {
	case snapshotKindClassIndexed:
		return SnapshotEventCode(uint8(t.Op)<<3 | SnapshotCodeFromObjectClass(t.Class))
	case snapshotKindUserEvent:
		return SnapshotEventCode(0x98 + t.UserEventArgCount)
	default:
		return t.fixedCode
	}
}

func (t SnapshotEventType) IsXts8() bool {
	return t.Kind == snapshotKindFixed && t.fixedCode == codeXts8
}

func (t SnapshotEventType) IsXts16() bool {
	return t.Kind == snapshotKindFixed && t.fixedCode == codeXts16
}

func (t SnapshotEventType) IsEventBeingWritten() bool {
	return t.Kind == snapshotKindFixed && t.fixedCode == codeEventBeingWritten
}

func (t SnapshotEventType) IsLowPowerBegin() bool {
	return t.Kind == snapshotKindFixed && t.fixedCode == codeLowPowerBegin
}

func (t SnapshotEventType) IsLowPowerEnd() bool {
	return t.Kind == snapshotKindFixed && t.fixedCode == codeLowPowerEnd
}

func (t SnapshotEventType) IsTaskSwitchIsrBegin() bool {
	return t.Kind == snapshotKindFixed && t.fixedCode == codeTaskSwitchIsrBegin
}

func (t SnapshotEventType) IsTaskSwitchIsrResume() bool {
	return t.Kind == snapshotKindFixed && t.fixedCode == codeTaskSwitchIsrResume
}

func (t SnapshotEventType) IsTaskReady() bool {
	return t.Kind == snapshotKindFixed && t.fixedCode == codeTaskReady
}

func (t SnapshotEventType) IsTaskSwitchTaskBegin() bool {
	return t.Kind == snapshotKindFixed && t.fixedCode == codeTaskSwitchTaskBegin
}

func (t SnapshotEventType) IsTaskSwitchTaskResume() bool {
	return t.Kind == snapshotKindFixed && t.fixedCode == codeTaskSwitchTaskResume
}

func (t SnapshotEventType) IsCreateObject() bool {
	return t.Kind == snapshotKindClassIndexed && t.Op == opCreateObject
}

func (t SnapshotEventType) IsUserEvent() bool {
	return t.Kind == snapshotKindUserEvent
}
