// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package calltree_test

import (
	"cmp"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drdotnet/agent/calltree"
	"github.com/drdotnet/agent/libpf"
)

func TestSortDescendingInclusive(t *testing.T) {
	tree := calltree.New[string](calltree.Sum[int64])
	tree.Add(seq("A"), 1)
	tree.Add(seq("B"), 2)
	tree.Add(seq("B,X"), 2)
	tree.Add(seq("C"), 3)

	for _, strategy := range calltree.Strategies {
		t.Run(strategy.String(), func(t *testing.T) {
			tree.Sort(strategy, calltree.ByWeight[string](calltree.CountWeight, cmp.Compare[string]))
			var keys []string
			for _, c := range tree.Root.Children {
				keys = append(keys, c.Key)
			}
			assert.Equal(t, []string{"B", "C", "A"}, keys)
		})
	}
}

func TestSortTieBreakByKey(t *testing.T) {
	tree := calltree.New[string](calltree.Sum[int64])
	for _, k := range []string{"D", "B", "C", "A"} {
		tree.Add(seq(k), 1)
	}
	tree.Sort(calltree.Cached, calltree.ByWeight[string](calltree.CountWeight, cmp.Compare[string]))

	var keys []string
	for _, c := range tree.Root.Children {
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, keys)
}

func TestStrategiesEquivalent(t *testing.T) {
	tests := map[string]struct {
		n, maxDepth, width int
	}{
		"small":  {n: 20, maxDepth: 3, width: 3},
		"wide":   {n: 2000, maxDepth: 3, width: 26},
		"deep":   {n: 400, maxDepth: 40, width: 2},
		"narrow": {n: 100, maxDepth: 12, width: 1},
	}
	byKey := calltree.ByWeight[string](calltree.CountWeight, cmp.Compare[string])

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewPCG(uint64(tc.n), uint64(tc.width)))
			obs := randomObservations(rng, tc.n, tc.maxDepth, tc.width)

			oracle := calltree.Build(calltree.Sum[int64], obs)
			oracle.Sort(calltree.Recursive, byKey)
			expected := oracle.Canonical()

			for _, strategy := range calltree.Strategies {
				tree := calltree.Build(calltree.Sum[int64], obs)
				tree.Sort(strategy, byKey)
				assert.Equal(t, expected, tree.Canonical(), strategy.String())
			}
		})
	}
}

func TestStrategiesEquivalentThreads(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	obs := make([]calltree.Observation[string, calltree.Threads], 0, 500)
	for _, o := range randomObservations(rng, 500, 10, 5) {
		obs = append(obs, calltree.Observation[string, calltree.Threads]{
			Sequence: o.Sequence,
			Payload:  calltree.Threads{libpf.ThreadID(o.Payload)},
		})
	}
	byThreads := calltree.ByWeight[string](calltree.ThreadsWeight, cmp.Compare[string])

	oracle := calltree.Build(calltree.MergeThreads, obs)
	oracle.Sort(calltree.Recursive, byThreads)
	for _, strategy := range calltree.Strategies {
		tree := calltree.Build(calltree.MergeThreads, obs)
		tree.Sort(strategy, byThreads)
		assert.Equal(t, oracle.Canonical(), tree.Canonical(), strategy.String())
	}
}

func TestSortDeepChain(t *testing.T) {
	const depth = 20000
	s := make([]string, depth)
	for i := range s {
		s[i] = strconv.Itoa(i)
	}
	for _, strategy := range []calltree.Strategy{calltree.Cached, calltree.Parallel} {
		t.Run(strategy.String(), func(t *testing.T) {
			tree := calltree.New[string](calltree.Sum[int64])
			tree.Add(s, 1)
			tree.Add(s[:depth/2], 1)
			tree.Sort(strategy, calltree.ByWeight[string](calltree.CountWeight, cmp.Compare[string]))
			require.Equal(t, depth+1, tree.Len())
			assert.Equal(t, int64(2), tree.Inclusive(tree.Root))
		})
	}
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "cached", calltree.Cached.String())
	assert.Equal(t, "Strategy(9)", calltree.Strategy(9).String())
}
