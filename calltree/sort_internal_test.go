// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package calltree

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drdotnet/agent/libpf"
)

func TestPartitionDisjoint(t *testing.T) {
	tree := New[string](Sum[int64])
	for _, s := range [][]string{
		{"A", "B", "C"},
		{"A", "B", "D"},
		{"A", "E"},
		{"F"},
		{"G", "H", "I", "J"},
	} {
		tree.Add(s, 1)
	}

	tests := map[string]struct {
		want int
	}{
		"one":  {want: 1},
		"few":  {want: 3},
		"many": {want: 100},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			upper, frontier := partition(tree.Root, tc.want)

			seen := libpf.Set[*Node[string, int64]]{}
			for _, n := range append(append([]*Node[string, int64]{}, upper...), frontier...) {
				assert.True(t, seen.Add(n), "node %q listed twice", n.Key)
			}
			// Every frontier subtree plus the upper nodes cover the tree.
			covered := len(upper)
			for _, n := range frontier {
				sub := &Tree[string, int64]{Root: n, combine: Sum[int64]}
				covered += sub.Len()
			}
			assert.Equal(t, tree.Len(), covered)
		})
	}
}

func TestParallelSingleWorker(t *testing.T) {
	tree := New[string](Sum[int64])
	tree.Add([]string{"A", "B"}, 1)
	tree.Add([]string{"C"}, 5)
	tree.sortParallel(ByWeight[string](CountWeight, func(a, b string) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	}), 1)
	assert.Equal(t, "C", tree.Root.Children[0].Key)
}
