// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package hresult_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drdotnet/agent/hresult"
)

func TestRawValues(t *testing.T) {
	tests := map[hresult.HRESULT]uint32{
		hresult.S_OK:                         0x00000000,
		hresult.E_NOTIMPL:                    0x80004001,
		hresult.E_NOINTERFACE:                0x80004002,
		hresult.E_POINTER:                    0x80004003,
		hresult.E_FAIL:                       0x80004005,
		hresult.E_OUTOFMEMORY:                0x8007000E,
		hresult.E_INVALIDARG:                 0x80070057,
		hresult.CLASS_E_NOAGGREGATION:        0x80040110,
		hresult.CLASS_E_CLASSNOTAVAILABLE:    0x80040111,
		hresult.CORPROF_E_PROFILER_DETACHING: 0x80131367,
	}
	for hr, raw := range tests {
		t.Run(hr.String(), func(t *testing.T) {
			assert.Equal(t, raw, hr.Uint32())
		})
	}
}

func TestFromError(t *testing.T) {
	tests := map[string]struct {
		err      error
		expected hresult.HRESULT
	}{
		"nil":     {err: nil, expected: hresult.S_OK},
		"plain":   {err: errors.New("boom"), expected: hresult.E_FAIL},
		"direct":  {err: hresult.E_POINTER, expected: hresult.E_POINTER},
		"wrapped": {err: fmt.Errorf("parse: %w", hresult.E_INVALIDARG), expected: hresult.E_INVALIDARG},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, hresult.FromError(tc.err))
		})
	}
}

func TestStatus(t *testing.T) {
	assert.True(t, hresult.S_FALSE.Succeeded())
	assert.True(t, hresult.E_FAIL.Failed())
	require.NoError(t, hresult.ToError(hresult.S_OK))
	require.ErrorIs(t, hresult.ToError(hresult.E_FAIL), hresult.E_FAIL)
	assert.Equal(t, "HRESULT(0x80001234)", hresult.HRESULT(-0x7fffedcc).String())
	assert.Contains(t, hresult.E_NOINTERFACE.Error(), "0x80004002")
}
