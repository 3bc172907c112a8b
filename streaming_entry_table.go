// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import (
	"encoding/binary"
	"io"

	"github.com/go-kratos/kratos/v2/log"
)

// entryTableMinSymbolSize is the minimum symbol_size the entry table header
// may declare (TRC_ENTRY_TABLE_SLOT_SYMBOL_SIZE's lower bound).
const entryTableMinSymbolSize = 1

// entryTableNumStates is the minimum number of per-entry state words the
// entry table header may declare (TRC_ENTRY_TABLE_STATE_COUNT).
const entryTableNumStates = 3

// systemHeapSymbol is the well-known entry-table symbol whose state words
// report current/high-water-mark/max heap usage.
const systemHeapSymbol = "System Heap"

// EntryStates holds an entry's raw state words. Their meaning is
// class-dependent: for Task entries, state 0 is priority; for the
// well-known System Heap entry, the three words are current, high water
// mark, and max heap usage.
type EntryStates [entryTableNumStates]uint32

// Priority returns state 0 interpreted as a task priority.
func (s EntryStates) Priority() Priority { return Priority(s[0]) }

// StreamingEntry is one decoded or synthesized entry-table slot.
type StreamingEntry struct {
	Symbol  *string
	Options uint32
	States  EntryStates
	Class   *ObjectClass
}

// EntryTable is the streaming-mode handle-to-metadata map, pre-seeded with
// a synthetic startup task and populated incrementally as object-naming and
// object-creation events are parsed.
type EntryTable struct {
	entries map[ObjectHandle]*StreamingEntry
}

// newEntryTable returns a table pre-seeded with the synthetic startup task
// entry at NoTaskHandle, matching the on-target recorder's own bootstrap
// state before any ObjectName/TaskCreate event is observed.
func newEntryTable() *EntryTable {
	t := &EntryTable{entries: make(map[ObjectHandle]*StreamingEntry)}
	name := StartupTaskName
	class := ObjectClassTask
	states := EntryStates{}
	states[0] = uint32(Priority(1))
	t.entries[NoTaskHandle] = &StreamingEntry{Symbol: &name, States: states, Class: &class}
	return t
}

// Symbol returns the resolved symbol text for handle, if any.
func (t *EntryTable) Symbol(handle ObjectHandle) (string, bool) {
	e, ok := t.entries[handle]
	if !ok || e.Symbol == nil {
		return "", false
	}
	return *e.Symbol, true
}

// Class returns the resolved object class for handle, if any.
func (t *EntryTable) Class(handle ObjectHandle) (ObjectClass, bool) {
	e, ok := t.entries[handle]
	if !ok || e.Class == nil {
		return 0, false
	}
	return *e.Class, true
}

// Priority returns the resolved priority for handle, if any.
func (t *EntryTable) Priority(handle ObjectHandle) (Priority, bool) {
	e, ok := t.entries[handle]
	if !ok {
		return 0, false
	}
	return e.States.Priority(), true
}

func (t *EntryTable) entry(handle ObjectHandle) *StreamingEntry {
	e, ok := t.entries[handle]
	if !ok {
		e = &StreamingEntry{}
		t.entries[handle] = e
	}
	return e
}

func (t *EntryTable) setSymbol(handle ObjectHandle, symbol string) {
	e := t.entry(handle)
	e.Symbol = &symbol
	if symbol == TzCtrlTaskName {
		class := ObjectClassTask
		e.Class = &class
	}
}

func (t *EntryTable) setPriority(handle ObjectHandle, priority Priority) {
	e := t.entry(handle)
	e.States[0] = uint32(priority)
}

func (t *EntryTable) setClass(handle ObjectHandle, class ObjectClass) {
	e := t.entry(handle)
	e.Class = &class
}

// SystemHeap returns the decoded System Heap entry's state words as a
// Heap, if the entry table has seen one.
func (t *EntryTable) SystemHeap() (Heap, bool) {
	for _, e := range t.entries {
		if e.Symbol != nil && *e.Symbol == systemHeapSymbol {
			return Heap{Current: e.States[0], HighWaterMark: e.States[1], Max: e.States[2]}, true
		}
	}
	return Heap{}, false
}

// readEntryTable decodes the streaming entry-table block: a header of
// num_entries/symbol_size/state_count, followed by that many fixed-width
// address+states+options+symbol records.
func readEntryTable(r io.Reader, order binary.ByteOrder, logger *log.Helper) (*EntryTable, error) {
	numEntries, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	symbolSize, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	stateCount, err := readU32(r, order)
	if err != nil {
		return nil, err
	}

	if symbolSize < entryTableMinSymbolSize {
		return nil, ErrInvalidEntryTableSymbolSize
	}
	if stateCount < entryTableNumStates {
		return nil, ErrInvalidEntryTableStateCount
	}

	table := newEntryTable()
	for i := uint32(0); i < numEntries; i++ {
		address, err := readU32(r, order)
		if err != nil {
			return nil, err
		}

		states := make([]uint32, stateCount)
		for j := range states {
			v, err := readU32(r, order)
			if err != nil {
				return nil, err
			}
			states[j] = v
		}

		options, err := readU32(r, order)
		if err != nil {
			return nil, err
		}

		symBuf, err := readBytes(r, int(symbolSize))
		if err != nil {
			return nil, err
		}

		handle, ok := NewObjectHandle(address)
		if !ok {
			logger.Warnf("entry table record %d has a zero address, skipping", i)
			continue
		}

		symbol := TrimmedString(symBuf)
		var es EntryStates
		copy(es[:], states[:entryTableNumStates])

		entry := &StreamingEntry{Options: options, States: es}
		if symbol != "" {
			entry.Symbol = &symbol
			if symbol == TzCtrlTaskName {
				class := ObjectClassTask
				entry.Class = &class
			}
		}
		table.entries[handle] = entry
	}

	return table, nil
}
