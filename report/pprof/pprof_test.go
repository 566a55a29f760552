// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package pprof_test

import (
	"bytes"
	"testing"

	"github.com/google/pprof/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drdotnet/agent/calltree"
	"github.com/drdotnet/agent/report/pprof"
)

func sampleTree() *calltree.Tree[string, int64] {
	tree := calltree.New[string](calltree.Sum[int64])
	tree.Add([]string{"main", "run", "parse"}, 3)
	tree.Add([]string{"main", "run", "eval"}, 2)
	tree.Add([]string{"main"}, 1)
	return tree
}

func options(calleeFirst bool) pprof.Options[string, int64] {
	return pprof.Options[string, int64]{
		SampleType:  "samples",
		SampleUnit:  "count",
		PeriodType:  "cpu",
		PeriodUnit:  "nanoseconds",
		Period:      20_000_000,
		Label:       func(k string) string { return k },
		Value:       func(v int64) int64 { return v },
		CalleeFirst: calleeFirst,
	}
}

func stacks(p *profile.Profile) map[string]int64 {
	out := make(map[string]int64)
	for _, s := range p.Sample {
		var key string
		for i, loc := range s.Location {
			if i > 0 {
				key += ";"
			}
			key += loc.Line[0].Function.Name
		}
		out[key] += s.Value[0]
	}
	return out
}

func TestBuild(t *testing.T) {
	tests := map[string]struct {
		calleeFirst bool
		expected    map[string]int64
	}{
		"caller first tree": {
			expected: map[string]int64{
				"parse;run;main": 3,
				"eval;run;main":  2,
				"main":           1,
			},
		},
		"callee first tree": {
			calleeFirst: true,
			expected: map[string]int64{
				"main;run;parse": 3,
				"main;run;eval":  2,
				"main":           1,
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := pprof.Build(sampleTree(), options(tc.calleeFirst))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, stacks(p))
			assert.Len(t, p.Function, 4)
			assert.Len(t, p.Location, 4)
		})
	}
}

func TestWriteParses(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, pprof.Write(&buf, sampleTree(), options(false)))

	p, err := profile.Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, "samples", p.SampleType[0].Type)
	assert.Equal(t, int64(20_000_000), p.Period)
	assert.Equal(t, map[string]int64{
		"parse;run;main": 3,
		"eval;run;main":  2,
		"main":           1,
	}, stacks(p))
}
