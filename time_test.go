// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDifferentialTimestampFolding(t *testing.T) {
	var d DifferentialTimestamp
	d.AddDts8(0x10)
	require.Equal(t, DifferentialTimestamp(0x10), d)
	d.AddDts16(0x0100)
	require.Equal(t, DifferentialTimestamp(0x0110), d)
	d.Clear()
	require.Equal(t, DifferentialTimestamp(0), d)
}

func TestDifferentialTimestampFromXts(t *testing.T) {
	require.Equal(t, DifferentialTimestamp(0x01000200), DifferentialTimestampFromXts8(0x01, 0x0002))
	require.Equal(t, DifferentialTimestamp(0x00020000), DifferentialTimestampFromXts16(0x0002))
}

func TestTimestampAdd(t *testing.T) {
	ts := Timestamp(100)
	require.Equal(t, Timestamp(150), ts.Add(DifferentialTimestamp(50)))
}

func TestTimestampAddOverflowPanics(t *testing.T) {
	defer func() {
		require.NotNil(t, recover())
	}()
	ts := Timestamp(^uint64(0))
	ts.Add(DifferentialTimestamp(1))
}

// TestStreamingInstantMonotonic covers invariant: widened instants are
// monotonically non-decreasing across a 32-bit wraparound.
func TestStreamingInstantMonotonic(t *testing.T) {
	var s StreamingInstant
	var prev Timestamp
	observations := []uint32{10, 100, 1000, 50, 60, 4294967290, 5, 6}
	for i, now := range observations {
		got := s.Elapsed(now)
		if i > 0 {
			require.GreaterOrEqual(t, uint64(got), uint64(prev), "observation %d (now=%d)", i, now)
		}
		prev = got
	}
}

func TestTimerCounterFromHwtcType(t *testing.T) {
	for v := uint32(1); v <= 6; v++ {
		tc, err := TimerCounterFromHwtcType(v)
		require.NoError(t, err)
		require.Equal(t, TimerCounter(v), tc)
	}

	_, err := TimerCounterFromHwtcType(0)
	require.ErrorIs(t, err, ErrInvalidTimerCounter)
	_, err = TimerCounterFromHwtcType(7)
	require.ErrorIs(t, err, ErrInvalidTimerCounter)
}

func TestTimerCounterUsesCustomTimer(t *testing.T) {
	require.True(t, TimerCounterCustomTimerIncr.UsesCustomTimer())
	require.True(t, TimerCounterCustomTimerDecr.UsesCustomTimer())
	require.False(t, TimerCounterOsTimer.UsesCustomTimer())
}
