// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"log"
	"os"

	tracerecorder "github.com/saferwall/tracerecorder"
	"github.com/spf13/cobra"
)

var (
	streaming bool
	locate    bool
	summary   bool
)

func dumpSnapshot(filename string) {
	s, err := tracerecorder.New(filename, &tracerecorder.Options{})
	if err != nil {
		log.Printf("error while opening snapshot %s: %s", filename, err)
		return
	}
	defer s.Close()

	fmt.Printf("%s: kernel=%s port=%s events=%d/%d\n", filename, s.KernelVersion, s.KernelPort, s.NumEvents, s.MaxEvents)
	if summary {
		return
	}

	it, err := s.Events()
	if err != nil {
		log.Printf("error while reading snapshot events: %s", err)
		return
	}
	for {
		ev, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("error while decoding event: %s", err)
			return
		}
		fmt.Printf("%+v\n", ev)
	}
}

func dumpStreaming(filename string) {
	f, err := os.Open(filename)
	if err != nil {
		log.Printf("error while opening streaming trace %s: %s", filename, err)
		return
	}
	defer f.Close()

	opts := &tracerecorder.Options{Locate: locate}
	s, err := tracerecorder.NewStreamingReader(f, opts)
	if err != nil {
		log.Printf("error while opening streaming trace %s: %s", filename, err)
		return
	}

	fmt.Printf("%s: format_version=%d kernel=%s\n", filename, s.Header.FormatVersion, s.Header.KernelPort)
	if summary {
		return
	}

	events := s.Events()
	for {
		ev, err := events.Next()
		if err == io.EOF {
			break
		}
		var restarted *tracerecorder.ErrTraceRestarted
		if e, ok := err.(*tracerecorder.ErrTraceRestarted); ok {
			restarted = e
		}
		if restarted != nil {
			log.Printf("trace restarted, endianness %s; re-seeding", restarted.Endianness)
			s, err = tracerecorder.NewStreamingReader(f, &tracerecorder.Options{Endianness: &restarted.Endianness})
			if err != nil {
				log.Printf("error re-seeding after restart: %s", err)
				return
			}
			events = s.Events()
			continue
		}
		if err != nil {
			log.Printf("error while decoding event: %s", err)
			return
		}
		fmt.Printf("%+v\n", ev)
	}
}

func dump(cmd *cobra.Command, args []string) {
	filename := args[0]
	if streaming {
		dumpStreaming(filename)
	} else {
		dumpSnapshot(filename)
	}
}

func main() {
	var rootCmd = &cobra.Command{
		Use:   "tracedump",
		Short: "A TraceRecorder trace decoder",
		Long:  "Decodes Percepio TraceRecorder snapshot and streaming traces",
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("tracedump version 0.1.0")
		},
	}

	var dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Dumps a trace file",
		Args:  cobra.ExactArgs(1),
		Run:   dump,
	}
	dumpCmd.Flags().BoolVarP(&streaming, "streaming", "", false, "decode as a streaming trace instead of a snapshot")
	dumpCmd.Flags().BoolVarP(&locate, "locate", "", false, "tolerate a leading garbage prefix before the PSF word")
	dumpCmd.Flags().BoolVarP(&summary, "summary", "", false, "print only the header summary, not individual events")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(dumpCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
