// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEntryTablePreseedsStartupTask(t *testing.T) {
	tbl := newEntryTable()
	sym, ok := tbl.Symbol(NoTaskHandle)
	require.True(t, ok)
	require.Equal(t, StartupTaskName, sym)

	class, ok := tbl.Class(NoTaskHandle)
	require.True(t, ok)
	require.Equal(t, ObjectClassTask, class)
}

func TestEntryTableSetSymbolAutoTagsTzCtrl(t *testing.T) {
	tbl := newEntryTable()
	tbl.setSymbol(ObjectHandle(99), TzCtrlTaskName)
	class, ok := tbl.Class(ObjectHandle(99))
	require.True(t, ok)
	require.Equal(t, ObjectClassTask, class)
}

func TestEntryTableSystemHeap(t *testing.T) {
	tbl := newEntryTable()
	tbl.setSymbol(ObjectHandle(42), systemHeapSymbol)
	e := tbl.entry(ObjectHandle(42))
	e.States = EntryStates{1000, 2000, 4000}

	heap, ok := tbl.SystemHeap()
	require.True(t, ok)
	require.Equal(t, uint32(1000), heap.Current)
	require.Equal(t, uint32(2000), heap.HighWaterMark)
	require.Equal(t, uint32(4000), heap.Max)
}

func TestEntryTableSystemHeapAbsent(t *testing.T) {
	tbl := newEntryTable()
	_, ok := tbl.SystemHeap()
	require.False(t, ok)
}

func buildEntryTableBuffer(order binary.ByteOrder, entries []struct {
	address uint32
	states  [3]uint32
	options uint32
	symbol  string
}) []byte {
	var buf bytes.Buffer
	put32 := func(v uint32) {
		var b [4]byte
		order.PutUint32(b[:], v)
		buf.Write(b[:])
	}
	const symbolSize = 16
	put32(uint32(len(entries)))
	put32(symbolSize)
	put32(3)

	for _, e := range entries {
		put32(e.address)
		put32(e.states[0])
		put32(e.states[1])
		put32(e.states[2])
		put32(e.options)
		name := make([]byte, symbolSize)
		copy(name, e.symbol)
		buf.Write(name)
	}
	return buf.Bytes()
}

func TestReadEntryTable(t *testing.T) {
	entries := []struct {
		address uint32
		states  [3]uint32
		options uint32
		symbol  string
	}{
		{address: 0x1000, states: [3]uint32{5, 0, 0}, options: 0, symbol: "idle-task"},
		{address: 0x2000, states: [3]uint32{1, 2, 3}, options: 0, symbol: "System Heap"},
	}
	buf := buildEntryTableBuffer(binary.LittleEndian, entries)

	tbl, err := readEntryTable(bytes.NewReader(buf), binary.LittleEndian, testLogger())
	require.NoError(t, err)

	sym, ok := tbl.Symbol(ObjectHandle(0x1000))
	require.True(t, ok)
	require.Equal(t, "idle-task", sym)

	heap, ok := tbl.SystemHeap()
	require.True(t, ok)
	require.Equal(t, uint32(1), heap.Current)
	require.Equal(t, uint32(2), heap.HighWaterMark)
	require.Equal(t, uint32(3), heap.Max)
}

func TestReadEntryTableInvalidSymbolSize(t *testing.T) {
	var buf bytes.Buffer
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], 0)
	buf.Write(b[:])
	binary.LittleEndian.PutUint32(b[:], 0) // symbol_size = 0, invalid
	buf.Write(b[:])
	binary.LittleEndian.PutUint32(b[:], 3)
	buf.Write(b[:])

	_, err := readEntryTable(bytes.NewReader(buf.Bytes()), binary.LittleEndian, testLogger())
	require.ErrorIs(t, err, ErrInvalidEntryTableSymbolSize)
}
