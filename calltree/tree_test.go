// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package calltree_test

import (
	"cmp"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drdotnet/agent/calltree"
	"github.com/drdotnet/agent/libpf"
	"github.com/drdotnet/agent/report"
)

type threadObs = calltree.Observation[string, calltree.Threads]

func threadTree(obs ...threadObs) *calltree.Tree[string, calltree.Threads] {
	return calltree.Build(calltree.MergeThreads, obs)
}

func seq(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func TestBuildLinearChain(t *testing.T) {
	tree := threadTree(threadObs{Sequence: seq("A,B,C"), Payload: calltree.Threads{1}})

	a := tree.Root.Child("A")
	require.NotNil(t, a)
	b := a.Child("B")
	require.NotNil(t, b)
	c := b.Child("C")
	require.NotNil(t, c)
	assert.Empty(t, c.Children)

	for _, n := range []*calltree.Node[string, calltree.Threads]{a, b, c} {
		assert.Equal(t, calltree.Threads{1}, tree.Inclusive(n), n.Key)
	}
	assert.Equal(t, calltree.Threads{1}, c.Own)
	assert.Empty(t, b.Own)
	assert.Equal(t, 4, tree.Len())
}

func TestBuildSharedPrefix(t *testing.T) {
	tree := threadTree(
		threadObs{Sequence: seq("A,B,C"), Payload: calltree.Threads{1}},
		threadObs{Sequence: seq("A,B,D"), Payload: calltree.Threads{1}},
	)

	a := tree.Root.Child("A")
	require.NotNil(t, a)
	require.Len(t, a.Children, 1)
	b := a.Child("B")
	require.Len(t, b.Children, 2)

	assert.Equal(t, calltree.Threads{1, 1}, tree.Inclusive(a))
	assert.Equal(t, calltree.Threads{1, 1}, tree.Inclusive(b))
	assert.Equal(t, calltree.Threads{1}, tree.Inclusive(b.Child("C")))
	assert.Equal(t, calltree.Threads{1}, tree.Inclusive(b.Child("D")))
}

func TestBuildAccumulates(t *testing.T) {
	tree := calltree.New[string](calltree.Sum[int64])
	tree.Add(seq("A,B"), 2)
	tree.Add(seq("A,B"), 3)
	tree.Add(nil, 7)

	assert.Equal(t, int64(5), tree.Root.Child("A").Child("B").Own)
	assert.Equal(t, int64(7), tree.Root.Own)
	assert.Equal(t, int64(12), tree.Inclusive(tree.Root))
}

func TestBuildOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	obs := randomObservations(rng, 300, 8, 4)

	byKey := calltree.ByWeight[string](calltree.CountWeight, cmp.Compare[string])
	reference := calltree.Build(calltree.Sum[int64], obs)
	reference.Sort(calltree.Cached, byKey)
	expected := reference.Canonical()

	for range 10 {
		shuffled := append([]calltree.Observation[string, int64](nil), obs...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		tree := calltree.Build(calltree.Sum[int64], shuffled)
		tree.Sort(calltree.Cached, byKey)
		assert.Equal(t, expected, tree.Canonical())
	}
}

func TestInclusiveAll(t *testing.T) {
	tree := calltree.New[string](calltree.Sum[int64])
	tree.Add(seq("A"), 1)
	tree.Add(seq("A,B"), 2)
	tree.Add(seq("C"), 4)

	memo := tree.InclusiveAll()
	assert.Equal(t, int64(7), memo[tree.Root])
	assert.Equal(t, int64(3), memo[tree.Root.Child("A")])
	assert.Equal(t, int64(4), memo[tree.Root.Child("C")])
}

func TestWalk(t *testing.T) {
	tree := calltree.New[string](calltree.Sum[int64])
	tree.Add(seq("A,B"), 1)
	tree.Add(seq("A,C"), 1)
	tree.Add(seq("D"), 1)

	var visited []string
	tree.Walk(func(n *calltree.Node[string, int64], depth int) bool {
		visited = append(visited, strings.Repeat(".", depth)+n.Key)
		return n.Key != "A"
	})
	assert.Equal(t, []string{"", ".A", ".D"}, visited)
}

func TestRender(t *testing.T) {
	tree := calltree.New[string](calltree.Sum[int64])
	tree.Add(seq("Main,Work,Hash"), 5)
	tree.Add(seq("Main,Work,Copy"), 3)
	tree.Add(seq("Main,Work,Log"), 1)
	tree.Add(seq("Main,Idle"), 2)
	tree.Sort(calltree.Cached, calltree.ByWeight[string](calltree.CountWeight, cmp.Compare[string]))

	var sink report.Memory
	err := tree.Render(&sink, calltree.RenderOptions[string, int64]{
		Title:       "Hot paths",
		MaxChildren: 2,
		Label:       func(k string) string { return k },
		Content: func(inclusive, _ int64) string {
			return strings.Repeat("*", int(inclusive))
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []report.Section{{
		Title: "Hot paths",
		Entries: []report.Entry{
			{Name: "Main", Content: "***********"},
			{Name: "  Work", Content: "*********"},
			{Name: "    Hash", Content: "*****"},
			{Name: "    Copy", Content: "***"},
			{Name: "    ...", Content: "1 more"},
			{Name: "  Idle", Content: "**"},
		},
	}}, sink.Sections())
}

func TestRenderDefaultLabel(t *testing.T) {
	tree := calltree.New[int](calltree.Sum[int64])
	tree.Add([]int{7, 42}, 1)

	var sink report.Memory
	require.NoError(t, tree.Render(&sink, calltree.RenderOptions[int, int64]{Title: "Ids"}))
	assert.Equal(t, []report.Section{{
		Title: "Ids",
		Entries: []report.Entry{
			{Name: "7"},
			{Name: "  42"},
		},
	}}, sink.Sections())
}

func TestThreads(t *testing.T) {
	merged := calltree.MergeThreads(calltree.Threads{1, 4, 9}, calltree.Threads{2, 4})
	assert.Equal(t, calltree.Threads{1, 2, 4, 4, 9}, merged)
	assert.Equal(t, int64(5), calltree.ThreadsWeight(merged))
	assert.Equal(t, calltree.Threads{3}, calltree.MergeThreads(nil, calltree.Threads{3}))

	tests := map[string]struct {
		threads  calltree.Threads
		expected string
	}{
		"empty":    {threads: nil, expected: ""},
		"under":    {threads: calltree.Threads{1, 2}, expected: "1, 2"},
		"at limit": {threads: calltree.Threads{1, 2, 3, 4}, expected: "1, 2, 3, 4"},
		"over":     {threads: calltree.Threads{1, 2, 3, 4, 5}, expected: "1, 2, 3, 4, ..."},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.threads.Format(4))
		})
	}
}

func TestFrameKeys(t *testing.T) {
	tree := calltree.New[libpf.Frame](calltree.Sum[int64])
	tree.Add([]libpf.Frame{{Function: 1}, {Function: 2, Class: 7}}, 1)
	tree.Add([]libpf.Frame{{Function: 1}, {Function: 2, Class: 8}}, 1)
	require.Len(t, tree.Root.Child(libpf.Frame{Function: 1}).Children, 2)
}

// randomObservations returns n sequences over an alphabet of width keys with
// depth up to maxDepth and payloads between 1 and 5.
func randomObservations(rng *rand.Rand, n, maxDepth, width int) []calltree.Observation[string, int64] {
	obs := make([]calltree.Observation[string, int64], 0, n)
	for range n {
		depth := rng.IntN(maxDepth + 1)
		s := make([]string, depth)
		for i := range s {
			s[i] = string(rune('A' + rng.IntN(width)))
		}
		obs = append(obs, calltree.Observation[string, int64]{
			Sequence: s,
			Payload:  int64(1 + rng.IntN(5)),
		})
	}
	return obs
}
