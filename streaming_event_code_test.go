// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStreamingEventIDRoundTrip covers invariant 1 (streaming half): every
// possible 12-bit event ID decodes to a StreamingEventType that encodes
// back to the exact same ID, across the whole closed ID space.
func TestStreamingEventIDRoundTrip(t *testing.T) {
	for id := uint16(0); id <= 0x0FFF; id++ {
		typ := StreamingEventTypeFromID(id)
		got := StreamingEventIDFromType(typ)
		require.Equal(t, id, got, "id %#x", id)
	}
}

func TestStreamingEventCodeFields(t *testing.T) {
	code := StreamingEventCode(0x3<<12 | 0x10)
	require.Equal(t, uint16(0x10), code.EventID())
	require.Equal(t, uint8(3), code.ParameterCount())
}

func TestStreamingEventTypeUserEventRange(t *testing.T) {
	typ := StreamingEventTypeFromID(streamingUserEventBase + 2)
	require.Equal(t, StreamingEventUserEvent, typ.Kind)
	require.Equal(t, uint8(2), typ.UserEventArgCount)
}

func TestStreamingEventTypeUnknownPreservesRawID(t *testing.T) {
	const unassigned = 0x20
	typ := StreamingEventTypeFromID(unassigned)
	require.Equal(t, StreamingEventUnknown, typ.Kind)
	require.Equal(t, uint16(unassigned), StreamingEventIDFromType(typ))
}

func TestStreamingEventTypeStringDoesNotPanic(t *testing.T) {
	for id := uint16(0); id <= 0x0FFF; id += 0x11 {
		_ = StreamingEventTypeFromID(id).String()
	}
}

func TestStreamingEventKindNamesKnownKinds(t *testing.T) {
	require.Equal(t, "TASK_CREATE", StreamingEventTaskCreate.String())
	require.Equal(t, "TS_TASK_BEGIN", StreamingEventTaskSwitchTaskBegin.String())
	require.Equal(t, "TS_TASK_RESUME", StreamingEventTaskSwitchTaskResume.String())
}
