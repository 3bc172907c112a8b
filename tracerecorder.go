// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package tracerecorder decodes Percepio TraceRecorder binary traces,
// both the post-mortem Snapshot dump format and the continuous Streaming
// wire format, across their FreeRTOS/Zephyr/ThreadX ports.
package tracerecorder

import (
	"io"
	"os"

	"github.com/go-kratos/kratos/v2/log"
)

// Options configures how a trace is located and decoded.
type Options struct {
	// Endianness, if non-nil, forces byte order instead of deriving it
	// from the trace itself. Used by streaming restart recovery, where
	// the PSF word has already been consumed by the caller.
	Endianness *Endianness

	// Locate enables garbage-prefix-tolerant scanning for the PSF word
	// (streaming) instead of requiring the reader to be positioned exactly
	// at the start of the trace. Snapshot decoding always scans for the
	// start marker, whatever this field says.
	Locate bool

	// Logger receives soft-anomaly diagnostics (unofficial format
	// versions, suspicious header fields, skipped table entries, ...).
	// Defaults to a kratos stdout logger filtered at LevelError.
	Logger log.Logger

	// CustomPrintfEventID, if non-nil, names the streaming event ID a
	// target was configured to emit its custom-printf-shaped user events
	// under (0 parameters, a channel handle, a u16 args length, a u16
	// fmt length, the args, then the trailing format string) instead of
	// the standard 0x90-0x9F variable/fixed user-event shapes.
	CustomPrintfEventID *uint16
}

func (o *Options) logger() *log.Helper {
	if o == nil || o.Logger == nil {
		return log.NewHelper(log.NewFilter(log.DefaultLogger, log.FilterLevel(log.LevelError)))
	}
	return log.NewHelper(o.Logger)
}

// New opens the file at path and decodes it as a snapshot trace. The
// returned Snapshot keeps the file open for its lazy event-ring reads;
// callers must call its Close method once done with it.
func New(path string, options *Options) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := NewReader(f, options)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// NewReader decodes a snapshot trace from r.
func NewReader(r io.ReadSeeker, options *Options) (*Snapshot, error) {
	return ReadSnapshot(r, options.logger())
}

// NewStreaming opens the file at path and decodes it as a streaming trace.
// The returned Streaming keeps the file open for its lazy event reads;
// callers must call its Close method once done with it.
func NewStreaming(path string, options *Options) (*Streaming, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := NewStreamingReader(f, options)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// NewStreamingReader decodes a streaming trace from r. If options.Locate
// is set, it tolerates a leading garbage prefix before the PSF word; if
// options.Endianness is set, the PSF word is assumed already consumed by
// the caller (streaming restart recovery) and that endianness is used
// directly.
func NewStreamingReader(r io.Reader, options *Options) (*Streaming, error) {
	logger := options.logger()
	var (
		s   *Streaming
		err error
	)
	switch {
	case options != nil && options.Endianness != nil:
		s, err = ReadStreamingWithEndianness(r, *options.Endianness, logger)
	case options != nil && options.Locate:
		s, err = ReadStreamingLocate(r, logger)
	default:
		s, err = ReadStreaming(r, logger)
	}
	if err != nil {
		return nil, err
	}
	if options != nil {
		s.CustomPrintfEventID = options.CustomPrintfEventID
	}
	return s, nil
}
