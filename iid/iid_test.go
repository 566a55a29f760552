// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package iid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drdotnet/agent/iid"
	"github.com/drdotnet/agent/libpf"
)

func TestChainRoundTrip(t *testing.T) {
	for v := iid.V1; v <= iid.Latest; v++ {
		t.Run(v.String(), func(t *testing.T) {
			id, ok := iid.Callback(v)
			require.True(t, ok)
			back, ok := iid.Lookup(id)
			require.True(t, ok)
			assert.Equal(t, v, back)
		})
	}

	_, ok := iid.Callback(iid.None)
	assert.False(t, ok)
	_, ok = iid.Callback(iid.Latest + 1)
	assert.False(t, ok)
}

func TestCallbackSet(t *testing.T) {
	v3, _ := iid.Callback(iid.V3)
	v4, _ := iid.Callback(iid.V4)
	v9, _ := iid.Callback(iid.V9)

	tests := map[string]struct {
		maxVersion iid.Version
		id         libpf.GUID
		expected   bool
	}{
		"unknown always":       {maxVersion: iid.V1, id: iid.IUnknown, expected: true},
		"same version":         {maxVersion: iid.V3, id: v3, expected: true},
		"older version":        {maxVersion: iid.V9, id: v3, expected: true},
		"newer version":        {maxVersion: iid.V3, id: v4, expected: false},
		"latest":               {maxVersion: iid.V9, id: v9, expected: true},
		"factory not callback": {maxVersion: iid.V9, id: iid.IClassFactory, expected: false},
		"random":               {maxVersion: iid.V9, id: libpf.NewRandomGUID(), expected: false},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, iid.CallbackSet(tc.maxVersion).Contains(tc.id))
		})
	}
}

func TestName(t *testing.T) {
	v7, _ := iid.Callback(iid.V7)
	assert.Equal(t, "IUnknown", iid.Name(iid.IUnknown))
	assert.Equal(t, "IClassFactory", iid.Name(iid.IClassFactory))
	assert.Equal(t, "ICorProfilerCallback7", iid.Name(v7))
	assert.True(t, iid.ClassFactorySet.Contains(iid.IClassFactory))
	assert.False(t, iid.ClassFactorySet.Contains(v7))
}
