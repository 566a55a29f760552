// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitionsMatchIDs(t *testing.T) {
	defs := GetDefinitions()
	require.Len(t, defs, IDMax-1)
	seen := map[MetricID]bool{}
	for _, d := range defs {
		assert.False(t, seen[d.ID], "duplicate id %d", d.ID)
		seen[d.ID] = true
		assert.NotEmpty(t, d.Field, d.Name)
		assert.Contains(t, []MetricType{MetricTypeCounter, MetricTypeGauge}, d.Type)
	}
}

func TestAddAccumulates(t *testing.T) {
	before := Snapshot()

	Add(IDEventsDropped, 2)
	AddSlice([]Metric{
		{ID: IDEventsDropped, Value: 3},
		{ID: IDEventsDropped, Value: 0},
		{ID: IDAgentGoRoutines, Value: 12},
		{ID: IDAgentGoRoutines, Value: 7},
		{ID: IDMax, Value: 1},
		{ID: IDInvalid, Value: 1},
	})

	after := Snapshot()
	assert.Equal(t, before[IDEventsDropped]+5, after[IDEventsDropped])
	assert.Equal(t, MetricValue(7), after[IDAgentGoRoutines])
	_, ok := after[IDInvalid]
	assert.False(t, ok)
}
