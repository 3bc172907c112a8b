// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import (
	"io"

	"github.com/go-kratos/kratos/v2/log"
)

// Streaming is a fully decoded streaming header plus the auxiliary blocks
// it seeds. Construct it with ReadStreaming (or ReadStreamingLocate for a
// garbage-prefix-tolerant start), then iterate its events with Events.
type Streaming struct {
	Header        *StreamingHeaderInfo
	TimestampInfo *StreamingTimestampInfo
	Entries       *EntryTable
	ExtensionInfo *StreamingExtensionInfo

	// CustomPrintfEventID mirrors Options.CustomPrintfEventID; set by
	// NewStreamingReader, consumed by Events when building the parser.
	CustomPrintfEventID *uint16

	r      io.Reader
	logger *log.Helper
}

// ReadStreaming decodes a streaming trace starting at the PSF word, with
// no tolerance for a leading garbage prefix.
func ReadStreaming(r io.Reader, logger *log.Helper) (*Streaming, error) {
	if logger == nil {
		logger = log.NewHelper(log.NewFilter(log.DefaultLogger, log.FilterLevel(log.LevelError)))
	}
	endianness, err := readPSFWord(r)
	if err != nil {
		return nil, err
	}
	return readStreamingAfterPSF(r, endianness, logger)
}

// ReadStreamingLocate scans for the PSF word by sliding a 4-byte window,
// tolerating an arbitrary-length leading garbage prefix, then decodes the
// rest of the header normally.
func ReadStreamingLocate(r io.Reader, logger *log.Helper) (*Streaming, error) {
	if logger == nil {
		logger = log.NewHelper(log.NewFilter(log.DefaultLogger, log.FilterLevel(log.LevelError)))
	}
	endianness, err := locatePSFWord(r)
	if err != nil {
		return nil, err
	}
	return readStreamingAfterPSF(r, endianness, logger)
}

// ReadStreamingWithEndianness re-seeds a new Streaming decoder after a
// detected mid-stream restart: the caller has already consumed the PSF
// word (ErrTraceRestarted's sentinel peek does this), so only the
// remaining header fields are read.
func ReadStreamingWithEndianness(r io.Reader, endianness Endianness, logger *log.Helper) (*Streaming, error) {
	if logger == nil {
		logger = log.NewHelper(log.NewFilter(log.DefaultLogger, log.FilterLevel(log.LevelError)))
	}
	return readStreamingAfterPSF(r, endianness, logger)
}

func readStreamingAfterPSF(r io.Reader, endianness Endianness, logger *log.Helper) (*Streaming, error) {
	header, err := readStreamingHeader(r, endianness, logger)
	if err != nil {
		return nil, err
	}

	order := endianness.ByteOrder()

	timestampInfo, err := readStreamingTimestampInfo(r, order)
	if err != nil {
		return nil, err
	}
	// Format versions 10 and 12 store the timer frequency ahead of the
	// timer period; later versions store the period first.
	if header.FormatVersion != 10 && header.FormatVersion != 12 {
		timestampInfo.TimerFrequency, timestampInfo.TimerPeriod =
			Frequency(timestampInfo.TimerPeriod), uint32(timestampInfo.TimerFrequency)
	}

	entries, err := readEntryTable(r, order, logger)
	if err != nil {
		return nil, err
	}

	extensionInfo, err := readStreamingExtensionInfo(r, order, logger)
	if err != nil {
		return nil, err
	}

	return &Streaming{
		Header:        header,
		TimestampInfo: timestampInfo,
		Entries:       entries,
		ExtensionInfo: extensionInfo,
		r:             r,
		logger:        logger,
	}, nil
}

// Close releases the underlying reader if it implements io.Closer. Safe to
// call on a Streaming built from a reader that doesn't own a file.
func (s *Streaming) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SystemHeap returns the current heap accounting derived from the entry
// table's well-known System Heap entry, if the trace has reported one.
func (s *Streaming) SystemHeap() (Heap, bool) {
	return s.Entries.SystemHeap()
}

// Events returns an iterator over this trace's remaining event records.
func (s *Streaming) Events() *StreamingEventIterator {
	parser := NewStreamingEventParser(s.Header.Endianness, s.Entries, s.logger)
	if s.CustomPrintfEventID != nil {
		parser.SetCustomPrintfEventID(*s.CustomPrintfEventID)
	}
	return &StreamingEventIterator{
		s:      s,
		parser: parser,
	}
}

// StreamingEventIterator walks a streaming trace's event records in wire
// order.
type StreamingEventIterator struct {
	s      *Streaming
	parser *StreamingEventParser
}

// Next reads and decodes the next event, returning io.EOF at a clean end
// of stream. If the underlying parser detects a mid-stream restart, Next
// returns an *ErrTraceRestarted describing the newly observed endianness;
// the caller should build a fresh Streaming via ReadStreamingWithEndianness
// using the same reader and continue from there.
func (it *StreamingEventIterator) Next() (*StreamingEvent, error) {
	return it.parser.Next(it.s.r)
}
