// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package host_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drdotnet/agent/host"
)

func TestEventMaskString(t *testing.T) {
	tests := map[string]struct {
		mask     host.EventMask
		expected string
	}{
		"none":    {mask: host.MonitorNone, expected: "NONE"},
		"single":  {mask: host.MonitorExceptions, expected: "EXCEPTIONS"},
		"combo":   {mask: host.MonitorGC | host.MonitorSuspends, expected: "GC|SUSPENDS"},
		"unknown": {mask: host.MonitorThreads | 0x1, expected: "THREADS|0x1"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.mask.String())
		})
	}
}

func TestEventMaskHas(t *testing.T) {
	m := host.MonitorThreads | host.EnableStackSnapshot
	assert.True(t, m.Has(host.EnableStackSnapshot))
	assert.False(t, m.Has(host.MonitorGC))
	assert.Equal(t, "GC", host.SuspendForGC.String())
	assert.Equal(t, "SuspendReason(5)", host.SuspendReason(5).String())
	assert.Equal(t, "Induced", host.GCInduced.String())
}
