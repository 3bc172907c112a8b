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

type headerBuilder struct {
	buf   bytes.Buffer
	order binary.ByteOrder
}

func newHeaderBuilder(order binary.ByteOrder) *headerBuilder {
	return &headerBuilder{order: order}
}

func (b *headerBuilder) u16(v uint16) *headerBuilder {
	var raw [2]byte
	b.order.PutUint16(raw[:], v)
	b.buf.Write(raw[:])
	return b
}

func (b *headerBuilder) u32(v uint32) *headerBuilder {
	var raw [4]byte
	b.order.PutUint32(raw[:], v)
	b.buf.Write(raw[:])
	return b
}

func (b *headerBuilder) u8(v uint8) *headerBuilder {
	b.buf.WriteByte(v)
	return b
}

func (b *headerBuilder) bytes(raw []byte) *headerBuilder {
	b.buf.Write(raw)
	return b
}

func fixedWidth(s string, n int) []byte {
	out := make([]byte, n)
	copy(out, s)
	return out
}

// TestReadStreamingHeaderV12NameBeforeVersion covers the v10/v12 ordering:
// platform_cfg name, then version.
func TestReadStreamingHeaderV12NameBeforeVersion(t *testing.T) {
	b := newHeaderBuilder(binary.LittleEndian)
	b.u16(12)             // format_version
	b.u16(0x1AA1)          // platform word, FreeRTOS under the little-endian kernel-version sentinel encoding
	b.u32(0)               // options
	b.u32(1)               // num_cores
	b.u32(0)               // isr_tail_chain_threshold
	b.bytes(fixedWidth("FreeRTOS", platformCfgNameSize))
	b.u8(10).u8(4).u16(2) // major, minor, patch

	h, err := readStreamingHeader(bytes.NewReader(b.buf.Bytes()), LittleEndian, testLogger())
	require.NoError(t, err)
	require.Equal(t, uint16(12), h.FormatVersion)
	require.Equal(t, "FreeRTOS", h.PlatformCfg)
	require.Equal(t, PlatformCfgVersion{Major: 10, Minor: 4, Patch: 2}, h.PlatformCfgVersion)
	require.Equal(t, KernelPortFreeRtos, h.KernelPort)
}

// TestReadStreamingHeaderV14VersionBeforeName covers the v13+ ordering:
// platform_cfg version, then name.
func TestReadStreamingHeaderV14VersionBeforeName(t *testing.T) {
	b := newHeaderBuilder(binary.LittleEndian)
	b.u16(14)
	b.u16(0x1AA1)
	b.u32(0)
	b.u32(2)
	b.u32(0)
	b.u8(1).u8(2).u16(3)
	b.bytes(fixedWidth("FreeRTOS", platformCfgNameSize))

	h, err := readStreamingHeader(bytes.NewReader(b.buf.Bytes()), LittleEndian, testLogger())
	require.NoError(t, err)
	require.Equal(t, "FreeRTOS", h.PlatformCfg)
	require.Equal(t, PlatformCfgVersion{Major: 1, Minor: 2, Patch: 3}, h.PlatformCfgVersion)
	require.Equal(t, uint32(2), h.NumCores)
}

func TestReadStreamingTimestampInfo(t *testing.T) {
	b := newHeaderBuilder(binary.LittleEndian)
	b.u32(1)        // hwtc_type: OsTimer
	b.u32(1000000)  // timer_frequency
	b.u32(0xFFFFFFFF)
	b.u32(3) // wraparounds
	b.u32(1000)
	b.u32(99999)
	b.u32(12345)
	b.u32(0xDEADBEEF) // reserved 8th word, discarded

	info, err := readStreamingTimestampInfo(bytes.NewReader(b.buf.Bytes()), binary.LittleEndian)
	require.NoError(t, err)
	require.Equal(t, TimerCounterOsTimer, info.TimerType)
	require.Equal(t, Frequency(1000000), info.TimerFrequency)
	require.Equal(t, uint32(3), info.TimerWraparounds)
	require.Equal(t, uint32(12345), info.OsTickCount)
}

func TestReadStreamingExtensionInfoNoEntries(t *testing.T) {
	b := newHeaderBuilder(binary.LittleEndian)
	b.u16(0).u16(300)

	info, err := readStreamingExtensionInfo(bytes.NewReader(b.buf.Bytes()), binary.LittleEndian, testLogger())
	require.NoError(t, err)
	require.Equal(t, uint16(0), info.EntryCount)
	require.Equal(t, uint16(300), info.BaseEventCode)
}

func TestReadStreamingExtensionInfoSkipsEntries(t *testing.T) {
	b := newHeaderBuilder(binary.LittleEndian)
	b.u16(2).u16(300) // 2 entries
	b.u8(16)          // entry_max_name_len
	b.u8(4)           // entry_size
	b.bytes(make([]byte, 2*4))

	info, err := readStreamingExtensionInfo(bytes.NewReader(b.buf.Bytes()), binary.LittleEndian, testLogger())
	require.NoError(t, err)
	require.Equal(t, uint16(2), info.EntryCount)
}

func TestReadPSFWordBothEndiannesses(t *testing.T) {
	e, err := readPSFWord(bytes.NewReader(psfWordLittle[:]))
	require.NoError(t, err)
	require.Equal(t, LittleEndian, e)

	e, err = readPSFWord(bytes.NewReader(psfWordBig[:]))
	require.NoError(t, err)
	require.Equal(t, BigEndian, e)
}

func TestLocatePSFWordWithGarbagePrefix(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x01, 0x02, 0x03})
	buf.Write(psfWordLittle[:])
	e, err := locatePSFWord(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, LittleEndian, e)
}
