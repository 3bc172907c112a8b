// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

// TrackingEventCounter recovers an absolute, monotonic event count from a
// 16-bit wire counter that rolls over, and reports gaps (dropped events)
// between successive updates.
type TrackingEventCounter struct {
	lower     uint16
	rollovers uint32
}

// SetInitialCount resets both the lower count and rollover counter, used
// when re-seeding a decoder after a trace restart.
func (t *TrackingEventCounter) SetInitialCount(count uint16) {
	t.lower = count
	t.rollovers = 0
}

// Update folds a newly observed 16-bit wire count into the tracker. It
// returns the number of dropped events (gap - 1) if more than one event's
// worth of count elapsed since the previous update, else false.
func (t *TrackingEventCounter) Update(count uint16) (dropped uint64, hadDrop bool) {
	before := t.combined()
	if count <= t.lower {
		t.rollovers++
	}
	t.lower = count
	after := t.combined()

	delta := after - before
	if delta > 1 {
		return delta - 1, true
	}
	return 0, false
}

// Count returns the current 48-bit combined absolute count.
func (t *TrackingEventCounter) Count() uint64 {
	return t.combined()
}

func (t *TrackingEventCounter) combined() uint64 {
	return uint64(t.rollovers)<<16 | uint64(t.lower)
}
