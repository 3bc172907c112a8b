// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func taskPropertyTable(handle ObjectHandle, name string, priority, active byte) *ObjectPropertyTable {
	tbl := newObjectPropertyTable()
	tbl.classes[ObjectClassTask][handle] = &ObjectProperties{
		Name:       &name,
		Properties: [4]byte{priority, active, 0, 0},
		Class:      ObjectClassTask,
	}
	return tbl
}

func isrPropertyTable(handle ObjectHandle, name string, priority byte) *ObjectPropertyTable {
	tbl := newObjectPropertyTable()
	tbl.classes[ObjectClassIsr][handle] = &ObjectProperties{
		Name:       &name,
		Properties: [4]byte{priority, 0, 0, 0},
		Class:      ObjectClassIsr,
	}
	return tbl
}

func TestSnapshotEventParserTaskReady(t *testing.T) {
	props := taskPropertyTable(ObjectHandle(1), "worker", 5, 1)
	symbols := &SnapshotSymbolTable{entries: make(map[uint16]SnapshotSymbolEntry)}
	p := NewSnapshotEventParser(LittleEndian, props, symbols, testLogger())

	record := SnapshotEventRecord{byte(codeTaskReady), 1, 0x10, 0x00}
	ev, err := p.Parse(record)
	require.NoError(t, err)
	require.NotNil(t, ev)
	require.Equal(t, SnapshotEventTaskReady, ev.Kind)
	require.Equal(t, "worker", ev.TaskReady.Name)
	require.Equal(t, Priority(5), ev.TaskReady.Priority)
	require.Equal(t, TaskStateActive, ev.TaskReady.State)
}

func TestSnapshotEventParserIsrBegin(t *testing.T) {
	props := isrPropertyTable(ObjectHandle(2), "uart-isr", 9)
	symbols := &SnapshotSymbolTable{entries: make(map[uint16]SnapshotSymbolEntry)}
	p := NewSnapshotEventParser(LittleEndian, props, symbols, testLogger())

	record := SnapshotEventRecord{byte(codeTaskSwitchIsrBegin), 2, 0x00, 0x00}
	ev, err := p.Parse(record)
	require.NoError(t, err)
	require.Equal(t, SnapshotEventIsrBegin, ev.Kind)
	require.Equal(t, "uart-isr", ev.IsrBegin.Name)
	require.Equal(t, Priority(9), ev.IsrBegin.Priority)
}

func TestSnapshotEventParserXts8ThenEvent(t *testing.T) {
	props := newObjectPropertyTable()
	symbols := &SnapshotSymbolTable{entries: make(map[uint16]SnapshotSymbolEntry)}
	p := NewSnapshotEventParser(LittleEndian, props, symbols, testLogger())

	xts8 := SnapshotEventRecord{byte(codeXts8), 0x01, 0x00, 0x02}
	ev, err := p.Parse(xts8)
	require.NoError(t, err)
	require.Nil(t, ev)

	// A subsequent generic fixed-code event folds its own DTS byte on top
	// of the pending XTS fragment.
	generic := SnapshotEventRecord{byte(codeNewTime), 0x00, 0x00, 0x05}
	ev, err = p.Parse(generic)
	require.NoError(t, err)
	require.Equal(t, SnapshotEventUnknown, ev.Kind)
	require.Equal(t, Timestamp(0x01020005), ev.UnknownTimestamp)
}

func TestSnapshotEventParserUserEventSingleArg(t *testing.T) {
	props := newObjectPropertyTable()
	symbols := &SnapshotSymbolTable{entries: map[uint16]SnapshotSymbolEntry{
		1: {Index: 1, Symbol: "count=%d"},
	}}
	p := NewSnapshotEventParser(LittleEndian, props, symbols, testLogger())

	header := SnapshotEventRecord{byte(0x98 + 1), 0x03, 0x01, 0x00}
	ev, err := p.Parse(header)
	require.NoError(t, err)
	require.Nil(t, ev, "single-record header awaits its one argument record")

	argRec := SnapshotEventRecord{0x07, 0x00, 0x00, 0x00}
	ev, err = p.Parse(argRec)
	require.NoError(t, err)
	require.NotNil(t, ev)
	require.Equal(t, SnapshotEventUser, ev.Kind)
	require.Equal(t, "count=7", ev.User.FormattedString)
}

func TestSnapshotEventParserCreateObjectTask(t *testing.T) {
	props := taskPropertyTable(ObjectHandle(3), "new-task", 2, 0)
	symbols := &SnapshotSymbolTable{entries: make(map[uint16]SnapshotSymbolEntry)}
	p := NewSnapshotEventParser(LittleEndian, props, symbols, testLogger())

	code := SnapshotEventCode(uint8(opCreateObject)<<3 | SnapshotCodeFromObjectClass(ObjectClassTask))
	record := SnapshotEventRecord{byte(code), 3, 0x00, 0x01}
	ev, err := p.Parse(record)
	require.NoError(t, err)
	require.Equal(t, SnapshotEventTaskCreate, ev.Kind)
	require.Equal(t, "new-task", ev.TaskCreate.Name)
}

func TestSnapshotEventParserUnknownObjectLookupFails(t *testing.T) {
	props := newObjectPropertyTable()
	symbols := &SnapshotSymbolTable{entries: make(map[uint16]SnapshotSymbolEntry)}
	p := NewSnapshotEventParser(LittleEndian, props, symbols, testLogger())

	record := SnapshotEventRecord{byte(codeTaskReady), 99, 0x00, 0x00}
	_, err := p.Parse(record)
	require.ErrorIs(t, err, ErrObjectLookup)
}
