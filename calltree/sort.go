// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package calltree // import "github.com/drdotnet/agent/calltree"

import (
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Ranked is what a comparator sees of a node.
type Ranked[K comparable, V any] struct {
	Key       K
	Inclusive V
}

// CompareFunc orders two siblings. It must be a total order: two distinct
// siblings never compare equal, which ByWeight ensures with a key tie-break.
type CompareFunc[K comparable, V any] func(a, b Ranked[K, V]) int

// ByWeight orders siblings by descending weight of their inclusive payload,
// then by ascending key.
func ByWeight[K comparable, V any](weight func(V) int64,
	keyCmp func(a, b K) int) CompareFunc[K, V] {
	return func(a, b Ranked[K, V]) int {
		wa, wb := weight(a.Inclusive), weight(b.Inclusive)
		switch {
		case wa > wb:
			return -1
		case wa < wb:
			return 1
		}
		return keyCmp(a.Key, b.Key)
	}
}

// Strategy selects how Sort walks the tree. All strategies produce the same
// child order for the same tree and comparator.
type Strategy uint8

const (
	// Cached computes every inclusive payload once and sorts iteratively.
	Cached Strategy = iota
	// Iterative sorts with an explicit work list and recomputes inclusive
	// payloads on each comparison.
	Iterative
	// Recursive is the plain depth-first reference implementation.
	Recursive
	// Parallel sorts independent subtrees on a bounded worker pool.
	Parallel
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case Cached:
		return "cached"
	case Iterative:
		return "iterative"
	case Recursive:
		return "recursive"
	case Parallel:
		return "parallel"
	}
	return fmt.Sprintf("Strategy(%d)", uint8(s))
}

// Strategies lists every strategy.
var Strategies = []Strategy{Cached, Iterative, Recursive, Parallel}

// Sort orders the children of every node with cmp.
func (t *Tree[K, V]) Sort(strategy Strategy, cmp CompareFunc[K, V]) {
	switch strategy {
	case Iterative:
		t.sortIterative(cmp)
	case Recursive:
		t.sortRecursive(t.Root, cmp)
	case Parallel:
		t.sortParallel(cmp, runtime.GOMAXPROCS(0))
	default:
		t.sortCached(t.Root, cmp, make(map[*Node[K, V]]V))
	}
}

func (t *Tree[K, V]) naiveCompare(cmp CompareFunc[K, V]) func(a, b *Node[K, V]) int {
	return func(a, b *Node[K, V]) int {
		return cmp(Ranked[K, V]{Key: a.Key, Inclusive: t.Inclusive(a)},
			Ranked[K, V]{Key: b.Key, Inclusive: t.Inclusive(b)})
	}
}

func memoCompare[K comparable, V any](cmp CompareFunc[K, V],
	memo map[*Node[K, V]]V) func(a, b *Node[K, V]) int {
	return func(a, b *Node[K, V]) int {
		return cmp(Ranked[K, V]{Key: a.Key, Inclusive: memo[a]},
			Ranked[K, V]{Key: b.Key, Inclusive: memo[b]})
	}
}

func (t *Tree[K, V]) sortRecursive(n *Node[K, V], cmp CompareFunc[K, V]) {
	slices.SortStableFunc(n.Children, t.naiveCompare(cmp))
	for _, c := range n.Children {
		t.sortRecursive(c, cmp)
	}
}

func (t *Tree[K, V]) sortIterative(cmp CompareFunc[K, V]) {
	compare := t.naiveCompare(cmp)
	stack := []*Node[K, V]{t.Root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		slices.SortStableFunc(n.Children, compare)
		stack = append(stack, n.Children...)
	}
}

// sortCached sorts the subtree at n and returns its inclusive payload.
func (t *Tree[K, V]) sortCached(n *Node[K, V], cmp CompareFunc[K, V],
	memo map[*Node[K, V]]V) V {
	total := t.inclusiveAll(n, memo)
	compare := memoCompare(cmp, memo)
	stack := []*Node[K, V]{n}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		slices.SortStableFunc(top.Children, compare)
		stack = append(stack, top.Children...)
	}
	return total
}

// sortParallel splits the tree into an upper part and a frontier of
// disjoint subtrees. Each frontier subtree is sorted by one worker with a
// private memo. The upper part is sorted afterwards from the collected
// subtree totals, so the result does not depend on completion order.
func (t *Tree[K, V]) sortParallel(cmp CompareFunc[K, V], workers int) {
	workers = max(workers, 1)
	upper, frontier := partition(t.Root, 4*workers)

	totals := make([]V, len(frontier))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, n := range frontier {
		g.Go(func() error {
			totals[i] = t.sortCached(n, cmp, make(map[*Node[K, V]]V))
			return nil
		})
	}
	_ = g.Wait()

	memo := make(map[*Node[K, V]]V, len(upper)+len(frontier))
	for i, n := range frontier {
		memo[n] = totals[i]
	}
	// upper is in breadth-first order, so walking it backwards visits
	// children before parents.
	for i := len(upper) - 1; i >= 0; i-- {
		n := upper[i]
		total := n.Own
		for _, c := range n.Children {
			total = t.combine(total, memo[c])
		}
		memo[n] = total
	}
	compare := memoCompare(cmp, memo)
	for _, n := range upper {
		slices.SortStableFunc(n.Children, compare)
	}
}

// partition expands the tree level by level from root until the frontier
// holds at least want nodes or cannot grow. It returns the expanded nodes in
// breadth-first order and the frontier.
func partition[K comparable, V any](root *Node[K, V], want int) (upper, frontier []*Node[K, V]) {
	frontier = []*Node[K, V]{root}
	for len(frontier) < want {
		var next []*Node[K, V]
		grew := false
		for _, n := range frontier {
			if len(n.Children) == 0 {
				next = append(next, n)
				continue
			}
			upper = append(upper, n)
			next = append(next, n.Children...)
			grew = true
		}
		frontier = next
		if !grew {
			break
		}
	}
	return upper, frontier
}
