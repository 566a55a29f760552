// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package names_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drdotnet/agent/internal/simhost"
	"github.com/drdotnet/agent/libpf"
	"github.com/drdotnet/agent/names"
)

func newHost() *simhost.Host {
	h := simhost.New()
	h.AddFunction(10, "App.Program.Main")
	h.AddFunction(11, "System.Collections.Generic.List.Add")
	h.AddGenericFunction(libpf.Frame{Function: 11, Class: 5},
		"System.Collections.Generic.List<System.Int32>.Add")
	h.AddClass(5, "System.Collections.Generic.List<System.Int32>")
	h.AddClass(6, "System.InvalidOperationException")
	h.AddObject(0x1000, 6)
	h.AddObject(0x2000, 99)
	return h
}

func TestFunctionName(t *testing.T) {
	tests := map[string]struct {
		frame    libpf.Frame
		expected string
	}{
		"plain":    {frame: libpf.Frame{Function: 10}, expected: "App.Program.Main"},
		"generic":  {frame: libpf.Frame{Function: 11, Class: 5}, expected: "System.Collections.Generic.List<System.Int32>.Add"},
		"open":     {frame: libpf.Frame{Function: 11}, expected: "System.Collections.Generic.List.Add"},
		"native":   {frame: libpf.Frame{}, expected: names.Native},
		"unknown":  {frame: libpf.Frame{Function: 12}, expected: names.UnresolvedFunction(12)},
	}

	r, err := names.NewCachedResolver(newHost(), 0)
	require.NoError(t, err)
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, r.FunctionName(tc.frame))
		})
	}
}

func TestClassNames(t *testing.T) {
	r, err := names.NewCachedResolver(newHost(), 0)
	require.NoError(t, err)

	assert.Equal(t, "System.InvalidOperationException", r.ObjectClassName(0x1000))
	assert.Equal(t, names.UnresolvedClass(99), r.ObjectClassName(0x2000))
	assert.Equal(t, names.UnresolvedObject(0x3000), r.ObjectClassName(0x3000))
	assert.True(t, names.IsSentinel(r.ObjectClassName(0x3000)))
	assert.False(t, names.IsSentinel(r.ClassName(6)))
}

func TestCachesOnlySuccess(t *testing.T) {
	h := newHost()
	r, err := names.NewCachedResolver(h, 8)
	require.NoError(t, err)

	assert.Equal(t, "System.InvalidOperationException", r.ClassName(6))
	assert.Equal(t, names.UnresolvedClass(7), r.ClassName(7))

	// Cached answers survive host failures; failed lookups are retried.
	h.Fail("GetClassName", errors.New("runtime busy"))
	h.AddClass(7, "System.Exception")
	assert.Equal(t, "System.InvalidOperationException", r.ClassName(6))
	assert.Equal(t, names.UnresolvedClass(7), r.ClassName(7))
	h.Fail("GetClassName", nil)
	assert.Equal(t, "System.Exception", r.ClassName(7))

	stats := r.Stats()
	assert.Equal(t, uint64(2), stats.Success)
	assert.Equal(t, uint64(2), stats.Failure)
	assert.Equal(t, uint64(1), stats.Cache.Hit)
	assert.Equal(t, uint64(2), stats.Cache.Added)
}
