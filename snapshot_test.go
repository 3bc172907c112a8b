// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type snapshotBuilder struct {
	buf bytes.Buffer
}

func (b *snapshotBuilder) u8(v uint8) *snapshotBuilder {
	b.buf.WriteByte(v)
	return b
}

func (b *snapshotBuilder) u16(v uint16) *snapshotBuilder {
	var raw [2]byte
	binary.LittleEndian.PutUint16(raw[:], v)
	b.buf.Write(raw[:])
	return b
}

func (b *snapshotBuilder) u32(v uint32) *snapshotBuilder {
	var raw [4]byte
	binary.LittleEndian.PutUint32(raw[:], v)
	b.buf.Write(raw[:])
	return b
}

func (b *snapshotBuilder) bytes(raw []byte) *snapshotBuilder {
	b.buf.Write(raw)
	return b
}

func (b *snapshotBuilder) zeros(n int) *snapshotBuilder {
	b.buf.Write(make([]byte, n))
	return b
}

// buildSnapshotBuffer assembles a minimal, fully valid little-endian
// FreeRTOS snapshot: one named Task object (handle 1, "worker", priority 5,
// active), one symbol-table format string ("tick=%d"), and a two-record
// event ring holding two TaskReady events for that task.
func buildSnapshotBuffer() []byte {
	b := &snapshotBuilder{}
	b.bytes(snapshotStartMarker[:])
	b.bytes([]byte{0xA1, 0x1A}) // KernelVersion: little-endian FreeRTOS
	b.u8(7)                     // minor version
	b.u8(0)                     // irq priority order

	b.u32(0) // filesize, unused by the decoder
	b.u32(2) // num_events
	b.u32(2) // max_events
	b.u32(0) // next_free_index
	b.u32(0) // buffer_is_full

	b.u32(1000) // frequency
	b.u32(0)    // abs_time_last_event
	b.u32(0)    // abs_time_last_event_second
	b.u32(1)    // recorder_active
	b.u32(0)    // isr_tail_chaining_threshold
	b.zeros(24) // reserved

	b.u32(4096) // heap_max_usage
	b.u32(2048) // heap_usage

	b.u32(uint32(debugMarker0))
	b.u32(0) // uses_16bit_handles = false

	// Object property table: 9 classes, only Task (index 3) populated.
	const numClasses = 9
	const taskIndex = 3
	const nameLen = 8
	b.u32(numClasses)
	b.u32(0) // table_size; 0 keeps the trailing padding calc a no-op
	numObjects := make([]byte, numClasses)
	numObjects[taskIndex] = 1
	b.bytes(numObjects)
	nameLens := make([]byte, numClasses)
	for i := range nameLens {
		nameLens[i] = nameLen
	}
	b.bytes(nameLens)
	totalBytes := make([]byte, numClasses)
	for i, c := range ObjectClassOrder {
		totalBytes[i] = c.PropertySize()
	}
	b.bytes(totalBytes)
	for i := 0; i < numClasses; i++ {
		b.u16(0) // start_index_of_class
	}
	b.bytes(fixedNameBytes("worker", nameLen))
	b.bytes([]byte{5, 1, 0, 0})

	b.u32(uint32(debugMarker1))

	// Symbol table: one format-string entry at offset 1, no channel.
	b.u32(14) // table_size
	b.u32(14) // next_free_symbol_index
	b.u8(0)   // reserved slot 0
	b.u16(0)  // next-entry-index, discarded
	b.u16(0)  // channel index
	b.bytes([]byte("tick=%d"))
	b.u8(0) // string NUL
	b.u8(0) // trailing double-NUL
	b.zeros(64 * 2)

	b.u32(0x3F800000) // float encoding probe: 1.0f little-endian
	b.u32(0)          // internal_error_occurred
	b.u32(uint32(debugMarker2))
	b.zeros(systemInfoSize)
	b.u32(uint32(debugMarker3))

	// Event ring: two TaskReady records for handle 1, Dts16 5 then 3.
	b.bytes([]byte{byte(codeTaskReady), 1, 5, 0})
	b.bytes([]byte{byte(codeTaskReady), 1, 3, 0})

	b.u16(0) // maybe_user_event_buffer_id = 0 (no secondary buffer)
	b.u16(0) // end_of_secondary_blocks

	b.bytes(snapshotEndMarker[:])

	return b.buf.Bytes()
}

func TestReadSnapshotFullScenario(t *testing.T) {
	buf := buildSnapshotBuffer()
	s, err := ReadSnapshot(bytes.NewReader(buf), testLogger())
	require.NoError(t, err)

	require.Equal(t, LittleEndian, s.Endianness)
	require.Equal(t, KernelPortFreeRtos, s.KernelPort)
	require.Equal(t, uint32(2), s.NumEvents)
	require.Equal(t, FloatEncodingLittle, s.FloatEncoding)

	props, err := s.ObjectProperties.Lookup(ObjectClassTask, ObjectHandle(1))
	require.NoError(t, err)
	require.Equal(t, "worker", props.DisplayName())

	entry, ok := s.Symbols.Entry(1)
	require.True(t, ok)
	require.Equal(t, "tick=%d", entry.Symbol)

	it, err := s.Events()
	require.NoError(t, err)

	ev1, err := it.Next()
	require.NoError(t, err)
	require.Equal(t, SnapshotEventTaskReady, ev1.Kind)
	require.Equal(t, "worker", ev1.TaskReady.Name)
	require.Equal(t, Timestamp(5), ev1.TaskReady.Timestamp)

	ev2, err := it.Next()
	require.NoError(t, err)
	require.Equal(t, SnapshotEventTaskReady, ev2.Kind)
	require.Equal(t, Timestamp(8), ev2.TaskReady.Timestamp)

	_, err = it.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestReadSnapshotToleratesGarbagePrefix(t *testing.T) {
	buf := append([]byte{0xDE, 0xAD, 0xBE, 0xEF}, buildSnapshotBuffer()...)
	s, err := ReadSnapshot(bytes.NewReader(buf), testLogger())
	require.NoError(t, err)
	require.Equal(t, KernelPortFreeRtos, s.KernelPort)
}

func TestReadSnapshotTruncatedFails(t *testing.T) {
	buf := buildSnapshotBuffer()
	truncated := buf[:len(buf)-20]
	_, err := ReadSnapshot(bytes.NewReader(truncated), testLogger())
	require.Error(t, err)
}
