// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

// KernelObjectOperation names the specific lifecycle or API call a
// KernelObjectEvent reports. One streaming event kind covers every
// operation of a kernel-primitive family (Queue, Semaphore, Mutex,
// EventGroup, StreamBuffer, MessageBuffer); Operation distinguishes them.
type KernelObjectOperation uint8

const (
	KernelObjectCreate KernelObjectOperation = iota
	KernelObjectSend
	KernelObjectSendBlock
	KernelObjectSendFromIsr
	KernelObjectSendFront
	KernelObjectSendFrontBlock
	KernelObjectSendFrontFromIsr
	KernelObjectReceive
	KernelObjectReceiveBlock
	KernelObjectReceiveFromIsr
	KernelObjectPeek
	KernelObjectPeekBlock
	KernelObjectGive
	KernelObjectGiveBlock
	KernelObjectGiveRecursive
	KernelObjectGiveFromIsr
	KernelObjectTake
	KernelObjectTakeBlock
	KernelObjectTakeRecursive
	KernelObjectTakeRecursiveBlock
	KernelObjectTakeFromIsr
	KernelObjectSync
	KernelObjectSyncBlock
	KernelObjectWaitBits
	KernelObjectWaitBitsBlock
	KernelObjectClearBits
	KernelObjectClearBitsFromIsr
	KernelObjectSetBits
	KernelObjectSetBitsFromIsr
	KernelObjectReset
)

func (o KernelObjectOperation) String() string {
	switch o {
	case KernelObjectCreate:
		return "CREATE"
	case KernelObjectSend:
		return "SEND"
	case KernelObjectSendBlock:
		return "SEND_BLOCK"
	case KernelObjectSendFromIsr:
		return "SEND_FROM_ISR"
	case KernelObjectSendFront:
		return "SEND_FRONT"
	case KernelObjectSendFrontBlock:
		return "SEND_FRONT_BLOCK"
	case KernelObjectSendFrontFromIsr:
		return "SEND_FRONT_FROM_ISR"
	case KernelObjectReceive:
		return "RECEIVE"
	case KernelObjectReceiveBlock:
		return "RECEIVE_BLOCK"
	case KernelObjectReceiveFromIsr:
		return "RECEIVE_FROM_ISR"
	case KernelObjectPeek:
		return "PEEK"
	case KernelObjectPeekBlock:
		return "PEEK_BLOCK"
	case KernelObjectGive:
		return "GIVE"
	case KernelObjectGiveBlock:
		return "GIVE_BLOCK"
	case KernelObjectGiveRecursive:
		return "GIVE_RECURSIVE"
	case KernelObjectGiveFromIsr:
		return "GIVE_FROM_ISR"
	case KernelObjectTake:
		return "TAKE"
	case KernelObjectTakeBlock:
		return "TAKE_BLOCK"
	case KernelObjectTakeRecursive:
		return "TAKE_RECURSIVE"
	case KernelObjectTakeRecursiveBlock:
		return "TAKE_RECURSIVE_BLOCK"
	case KernelObjectTakeFromIsr:
		return "TAKE_FROM_ISR"
	case KernelObjectSync:
		return "SYNC"
	case KernelObjectSyncBlock:
		return "SYNC_BLOCK"
	case KernelObjectWaitBits:
		return "WAIT_BITS"
	case KernelObjectWaitBitsBlock:
		return "WAIT_BITS_BLOCK"
	case KernelObjectClearBits:
		return "CLEAR_BITS"
	case KernelObjectClearBitsFromIsr:
		return "CLEAR_BITS_FROM_ISR"
	case KernelObjectSetBits:
		return "SET_BITS"
	case KernelObjectSetBitsFromIsr:
		return "SET_BITS_FROM_ISR"
	case KernelObjectReset:
		return "RESET"
	default:
		return "UNKNOWN"
	}
}

// kernelObjectSpec describes one streaming event ID belonging to a kernel
// object family: its class and operation (identity), plus the wire shape
// a decoder needs (whether the record carries a ticks-to-wait word ahead
// of the trailing value word, and whether it carries a value word at all).
type kernelObjectSpec struct {
	id          uint16
	kind        streamingEventKind
	class       ObjectClass
	operation   KernelObjectOperation
	ticksToWait bool
	value       bool
}

// kernelObjectSpecs is the event-ID table for the kernel-primitive
// families the spec's ObjectClassOrder names beyond Task/Isr: Queue,
// Semaphore, Mutex, EventGroup, StreamBuffer, MessageBuffer. The event
// IDs themselves are not fixed by the reference implementation kept for
// this port (its wired decoders stop at Task/Isr/UserEvent); see
// DESIGN.md for the grounding and the scheme chosen to fill this gap.
var kernelObjectSpecs = []kernelObjectSpec{
	{0x38, StreamingEventQueue, ObjectClassQueue, KernelObjectCreate, false, true},
	{0x39, StreamingEventQueue, ObjectClassQueue, KernelObjectSend, false, true},
	{0x3A, StreamingEventQueue, ObjectClassQueue, KernelObjectSendBlock, true, true},
	{0x3B, StreamingEventQueue, ObjectClassQueue, KernelObjectSendFromIsr, false, true},
	{0x3C, StreamingEventQueue, ObjectClassQueue, KernelObjectSendFront, false, true},
	{0x3D, StreamingEventQueue, ObjectClassQueue, KernelObjectSendFrontBlock, true, true},
	{0x3E, StreamingEventQueue, ObjectClassQueue, KernelObjectSendFrontFromIsr, false, true},
	{0x3F, StreamingEventQueue, ObjectClassQueue, KernelObjectReceive, false, true},
	{0x40, StreamingEventQueue, ObjectClassQueue, KernelObjectReceiveBlock, true, true},
	{0x41, StreamingEventQueue, ObjectClassQueue, KernelObjectReceiveFromIsr, false, true},
	{0x42, StreamingEventQueue, ObjectClassQueue, KernelObjectPeek, false, true},
	{0x43, StreamingEventQueue, ObjectClassQueue, KernelObjectPeekBlock, true, true},

	{0x44, StreamingEventSemaphore, ObjectClassSemaphore, KernelObjectCreate, false, true},
	{0x45, StreamingEventSemaphore, ObjectClassSemaphore, KernelObjectGive, false, true},
	{0x46, StreamingEventSemaphore, ObjectClassSemaphore, KernelObjectGiveBlock, true, true},
	{0x47, StreamingEventSemaphore, ObjectClassSemaphore, KernelObjectGiveFromIsr, false, true},
	{0x48, StreamingEventSemaphore, ObjectClassSemaphore, KernelObjectTake, false, true},
	{0x49, StreamingEventSemaphore, ObjectClassSemaphore, KernelObjectTakeBlock, true, true},
	{0x4A, StreamingEventSemaphore, ObjectClassSemaphore, KernelObjectTakeFromIsr, false, true},
	{0x4B, StreamingEventSemaphore, ObjectClassSemaphore, KernelObjectPeek, false, true},
	{0x4C, StreamingEventSemaphore, ObjectClassSemaphore, KernelObjectPeekBlock, true, true},

	{0x4D, StreamingEventMutex, ObjectClassMutex, KernelObjectCreate, false, false},
	{0x4E, StreamingEventMutex, ObjectClassMutex, KernelObjectGive, false, false},
	{0x4F, StreamingEventMutex, ObjectClassMutex, KernelObjectGiveBlock, true, false},
	{0x50, StreamingEventMutex, ObjectClassMutex, KernelObjectGiveRecursive, false, false},
	{0x51, StreamingEventMutex, ObjectClassMutex, KernelObjectTake, false, false},
	{0x52, StreamingEventMutex, ObjectClassMutex, KernelObjectTakeBlock, true, false},
	{0x53, StreamingEventMutex, ObjectClassMutex, KernelObjectTakeRecursive, false, false},
	{0x54, StreamingEventMutex, ObjectClassMutex, KernelObjectTakeRecursiveBlock, true, false},

	{0x55, StreamingEventEventGroup, ObjectClassEventGroup, KernelObjectCreate, false, true},
	{0x56, StreamingEventEventGroup, ObjectClassEventGroup, KernelObjectSync, false, true},
	{0x57, StreamingEventEventGroup, ObjectClassEventGroup, KernelObjectSyncBlock, true, true},
	{0x58, StreamingEventEventGroup, ObjectClassEventGroup, KernelObjectWaitBits, false, true},
	{0x59, StreamingEventEventGroup, ObjectClassEventGroup, KernelObjectWaitBitsBlock, true, true},
	{0x5A, StreamingEventEventGroup, ObjectClassEventGroup, KernelObjectClearBits, false, true},
	{0x5B, StreamingEventEventGroup, ObjectClassEventGroup, KernelObjectClearBitsFromIsr, false, true},
	{0x5C, StreamingEventEventGroup, ObjectClassEventGroup, KernelObjectSetBits, false, true},
	{0x5D, StreamingEventEventGroup, ObjectClassEventGroup, KernelObjectSetBitsFromIsr, false, true},

	{0x5E, StreamingEventStreamBuffer, ObjectClassStreamBuffer, KernelObjectCreate, false, true},
	{0x5F, StreamingEventStreamBuffer, ObjectClassStreamBuffer, KernelObjectSend, false, true},
	{0x60, StreamingEventStreamBuffer, ObjectClassStreamBuffer, KernelObjectSendBlock, true, true},
	{0x61, StreamingEventStreamBuffer, ObjectClassStreamBuffer, KernelObjectSendFromIsr, false, true},
	{0x62, StreamingEventStreamBuffer, ObjectClassStreamBuffer, KernelObjectReceive, false, true},
	{0x63, StreamingEventStreamBuffer, ObjectClassStreamBuffer, KernelObjectReceiveBlock, true, true},
	{0x64, StreamingEventStreamBuffer, ObjectClassStreamBuffer, KernelObjectReceiveFromIsr, false, true},
	{0x65, StreamingEventStreamBuffer, ObjectClassStreamBuffer, KernelObjectReset, false, true},

	{0x66, StreamingEventMessageBuffer, ObjectClassMessageBuffer, KernelObjectCreate, false, true},
	{0x67, StreamingEventMessageBuffer, ObjectClassMessageBuffer, KernelObjectSend, false, true},
	{0x68, StreamingEventMessageBuffer, ObjectClassMessageBuffer, KernelObjectSendBlock, true, true},
	{0x69, StreamingEventMessageBuffer, ObjectClassMessageBuffer, KernelObjectSendFromIsr, false, true},
	{0x6A, StreamingEventMessageBuffer, ObjectClassMessageBuffer, KernelObjectReceive, false, true},
	{0x6B, StreamingEventMessageBuffer, ObjectClassMessageBuffer, KernelObjectReceiveBlock, true, true},
	{0x6C, StreamingEventMessageBuffer, ObjectClassMessageBuffer, KernelObjectReceiveFromIsr, false, true},
	{0x6D, StreamingEventMessageBuffer, ObjectClassMessageBuffer, KernelObjectReset, false, true},
}

// streamingEventMemoryAllocID and streamingEventMemoryFreeID are the wire
// IDs for heap accounting events, assigned from the same unused range as
// kernelObjectSpecs for the same reason (see DESIGN.md).
const (
	streamingEventMemoryAllocID uint16 = 0x6E
	streamingEventMemoryFreeID  uint16 = 0x6F
)

func kernelObjectSpecForID(id uint16) (kernelObjectSpec, bool) {
	for _, s := range kernelObjectSpecs {
		if s.id == id {
			return s, true
		}
	}
	return kernelObjectSpec{}, false
}

func kernelObjectIDFor(kind streamingEventKind, op KernelObjectOperation) (uint16, bool) {
	for _, s := range kernelObjectSpecs {
		if s.kind == kind && s.operation == op {
			return s.id, true
		}
	}
	return 0, false
}

func kernelObjectClassForKind(kind streamingEventKind) (ObjectClass, bool) {
	switch kind {
	case StreamingEventQueue:
		return ObjectClassQueue, true
	case StreamingEventSemaphore:
		return ObjectClassSemaphore, true
	case StreamingEventMutex:
		return ObjectClassMutex, true
	case StreamingEventEventGroup:
		return ObjectClassEventGroup, true
	case StreamingEventStreamBuffer:
		return ObjectClassStreamBuffer, true
	case StreamingEventMessageBuffer:
		return ObjectClassMessageBuffer, true
	default:
		return 0, false
	}
}
