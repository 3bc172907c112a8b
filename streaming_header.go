// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/go-kratos/kratos/v2/log"
)

// psfWordLittle and psfWordBig are the two valid byte sequences for the
// streaming PSF endianness sentinel, compared as raw bytes so the check
// does not itself depend on having already chosen an endianness.
var (
	psfWordLittle = [4]byte{0x50, 0x53, 0x46, 0x00}
	psfWordBig    = [4]byte{0x00, 0x46, 0x53, 0x50}
)

// readPSFWord reads the 4-byte PSF sentinel and returns the endianness it
// identifies.
func readPSFWord(r io.Reader) (Endianness, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	switch {
	case bytes.Equal(b[:], psfWordLittle[:]):
		return LittleEndian, nil
	case bytes.Equal(b[:], psfWordBig[:]):
		return BigEndian, nil
	default:
		return 0, ErrPSFEndiannessIdentifier
	}
}

// locatePSFWord slides a 4-byte window across r until it matches either
// PSF sentinel, supporting recovery from a leading garbage prefix.
func locatePSFWord(r io.Reader) (Endianness, error) {
	var window [4]byte
	if _, err := io.ReadFull(r, window[:]); err != nil {
		return 0, ErrPSFEndiannessIdentifier
	}
	for {
		if bytes.Equal(window[:], psfWordLittle[:]) {
			return LittleEndian, nil
		}
		if bytes.Equal(window[:], psfWordBig[:]) {
			return BigEndian, nil
		}
		copy(window[:3], window[1:])
		if _, err := io.ReadFull(r, window[3:4]); err != nil {
			return 0, ErrPSFEndiannessIdentifier
		}
	}
}

// StreamingHeaderInfo is the decoded fixed portion of a streaming trace's
// header: format/kernel identity plus the version-dispatched platform
// configuration fields.
type StreamingHeaderInfo struct {
	Endianness            Endianness
	FormatVersion         uint16
	KernelVersion         KernelVersion
	KernelPort            KernelPortIdentity
	Options               uint32
	NumCores              uint32
	IsrTailChainThreshold uint32
	PlatformCfg           string
	PlatformCfgVersion    PlatformCfgVersion
}

const platformCfgNameSize = 8

// readStreamingHeader decodes the header immediately following the PSF
// word (already consumed and latched as endianness).
func readStreamingHeader(r io.Reader, endianness Endianness, logger *log.Helper) (*StreamingHeaderInfo, error) {
	order := endianness.ByteOrder()

	formatVersion, err := readU16(r, order)
	if err != nil {
		return nil, err
	}
	if formatVersion != 10 && !(formatVersion >= 12 && formatVersion <= 14) {
		logger.Warnf("streaming format version %d is not officially supported", formatVersion)
	}

	platform, err := readU16(r, order)
	if err != nil {
		return nil, err
	}
	var kv KernelVersion
	// The platform word is stored kernel-version-compatible: low byte then
	// high byte, matching the snapshot KernelVersion's own byte order.
	binary.LittleEndian.PutUint16(kv[:], platform)
	port, err := kv.PortIdentity()
	if err != nil {
		return nil, err
	}
	if port != KernelPortFreeRtos {
		logger.Warnf("kernel port %s is not officially supported", port)
	}

	options, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	numCores, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	isrThreshold, err := readU32(r, order)
	if err != nil {
		return nil, err
	}

	h := &StreamingHeaderInfo{
		Endianness:            endianness,
		FormatVersion:         formatVersion,
		KernelVersion:         kv,
		KernelPort:            port,
		Options:               options,
		NumCores:              numCores,
		IsrTailChainThreshold: isrThreshold,
	}

	if formatVersion == 10 || formatVersion == 12 {
		cfg, err := readBytes(r, platformCfgNameSize)
		if err != nil {
			return nil, err
		}
		h.PlatformCfg = TrimmedString(cfg)
		if err := readPlatformCfgVersion(r, order, h); err != nil {
			return nil, err
		}
	} else {
		if err := readPlatformCfgVersion(r, order, h); err != nil {
			return nil, err
		}
		cfg, err := readBytes(r, platformCfgNameSize)
		if err != nil {
			return nil, err
		}
		h.PlatformCfg = TrimmedString(cfg)
	}

	return h, nil
}

func readPlatformCfgVersion(r io.Reader, order binary.ByteOrder, h *StreamingHeaderInfo) error {
	major, err := readU8(r)
	if err != nil {
		return err
	}
	minor, err := readU8(r)
	if err != nil {
		return err
	}
	patch, err := readU16(r, order)
	if err != nil {
		return err
	}
	h.PlatformCfgVersion = PlatformCfgVersion{Major: major, Minor: minor, Patch: patch}
	return nil
}

// StreamingTimestampInfo is the decoded timer-configuration block that
// follows the header.
type StreamingTimestampInfo struct {
	TimerType        TimerCounter
	TimerFrequency   Frequency
	TimerPeriod      uint32
	TimerWraparounds uint32
	OsTickRateHz     Frequency
	LatestTimestamp  Timestamp
	OsTickCount      uint32
}

// readStreamingTimestampInfo decodes the fixed timer-configuration block.
// The wire layout reserves 8 words; the 8th is unused padding in every
// known format version and is read and discarded. Words 2 and 3 are taken
// as frequency then period, the order of format versions 10 and 12;
// readStreamingAfterPSF swaps them for later versions.
func readStreamingTimestampInfo(r io.Reader, order binary.ByteOrder) (*StreamingTimestampInfo, error) {
	hwtcType, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	timerType, err := TimerCounterFromHwtcType(hwtcType)
	if err != nil {
		return nil, err
	}
	freq, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	period, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	wraparounds, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	osTickRate, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	latest, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	osTickCount, err := readU32(r, order)
	if err != nil {
		return nil, err
	}
	if _, err := readU32(r, order); err != nil { // reserved 8th word
		return nil, err
	}

	return &StreamingTimestampInfo{
		TimerType:        timerType,
		TimerFrequency:   Frequency(freq),
		TimerPeriod:      period,
		TimerWraparounds: wraparounds,
		OsTickRateHz:     Frequency(osTickRate),
		LatestTimestamp:  Timestamp(latest),
		OsTickCount:      osTickCount,
	}, nil
}

// StreamingExtensionInfo is the decoded trailing extension-descriptor
// block. Extension entries themselves are not officially supported and
// are consumed without interpretation.
type StreamingExtensionInfo struct {
	EntryCount    uint16
	BaseEventCode uint16
}

// extensionEventCodeBase is the minimum sane base_event_code
// (TRC_EXTENSION_EVENTCODE_BASE); values below this are logged, not
// rejected.
const extensionEventCodeBase = 256

func readStreamingExtensionInfo(r io.Reader, order binary.ByteOrder, logger *log.Helper) (*StreamingExtensionInfo, error) {
	entryCount, err := readU16(r, order)
	if err != nil {
		return nil, err
	}
	baseEventCode, err := readU16(r, order)
	if err != nil {
		return nil, err
	}
	if baseEventCode < extensionEventCodeBase {
		logger.Warnf("extension event code base %d should be greater than %d", baseEventCode, extensionEventCodeBase)
	}

	if entryCount != 0 {
		logger.Warnf("skipping over unsupported extension info")
		if _, err := readU8(r); err != nil { // entry_max_name_len
			return nil, err
		}
		entrySize, err := readU8(r)
		if err != nil {
			return nil, err
		}
		if _, err := readBytes(r, int(entryCount)*int(entrySize)); err != nil {
			return nil, err
		}
	}

	return &StreamingExtensionInfo{EntryCount: entryCount, BaseEventCode: baseEventCode}, nil
}
