// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrTraceRestartedMessage(t *testing.T) {
	err := &ErrTraceRestarted{Endianness: BigEndian}
	require.Equal(t, "trace restarted, endianness big", err.Error())
}

func TestErrTraceRestartedTypeAssertion(t *testing.T) {
	var err error = &ErrTraceRestarted{Endianness: LittleEndian}
	restarted, ok := err.(*ErrTraceRestarted)
	require.True(t, ok)
	require.Equal(t, LittleEndian, restarted.Endianness)
}

func TestSentinelErrorsWrapAndUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("while decoding event 3: %w", ErrObjectLookup)
	require.ErrorIs(t, wrapped, ErrObjectLookup)
	require.False(t, errors.Is(wrapped, ErrInvalidObjectHandle))
}
