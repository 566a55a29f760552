// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package calltree merges observed call stack sequences into a prefix tree
// and orders it by the aggregate payload of each subtree.
//
// A Tree is not safe for concurrent mutation. Profilers feeding a tree from
// several host threads serialize Add calls under their own lock.
package calltree // import "github.com/drdotnet/agent/calltree"

// CombineFunc merges two payloads. It must be associative and commutative,
// and the zero value of V must be its identity. It must not modify its
// arguments.
type CombineFunc[V any] func(a, b V) V

// Node is one shared prefix of the observed sequences.
type Node[K comparable, V any] struct {
	// Key is the frame identifier, unique among siblings.
	Key K
	// Own is the combined payload of the sequences ending exactly here.
	Own V
	// Children in their current order. Sort reorders this slice in place.
	Children []*Node[K, V]

	index map[K]*Node[K, V]
}

// Child returns the child with the given key, or nil.
func (n *Node[K, V]) Child(key K) *Node[K, V] {
	return n.index[key]
}

func (n *Node[K, V]) childOrCreate(key K) *Node[K, V] {
	if child, ok := n.index[key]; ok {
		return child
	}
	if n.index == nil {
		n.index = make(map[K]*Node[K, V])
	}
	child := &Node[K, V]{Key: key}
	n.index[key] = child
	n.Children = append(n.Children, child)
	return child
}

// Tree is a prefix tree over sequences of K carrying payloads of V. The root
// has the zero key and stands for the empty sequence.
type Tree[K comparable, V any] struct {
	Root    *Node[K, V]
	combine CombineFunc[V]
}

// New returns an empty tree.
func New[K comparable, V any](combine CombineFunc[V]) *Tree[K, V] {
	return &Tree[K, V]{
		Root:    &Node[K, V]{},
		combine: combine,
	}
}

// Observation is one observed sequence and its payload.
type Observation[K comparable, V any] struct {
	Sequence []K
	Payload  V
}

// Build returns a tree holding all observations. The result does not depend
// on the order of observations, apart from the initial child order which
// Sort replaces.
func Build[K comparable, V any](combine CombineFunc[V],
	observations []Observation[K, V]) *Tree[K, V] {
	t := New[K](combine)
	for _, o := range observations {
		t.Add(o.Sequence, o.Payload)
	}
	return t
}

// Add walks sequence from the root, creating missing nodes, and combines
// payload into the node where the sequence ends. An empty sequence combines
// into the root.
func (t *Tree[K, V]) Add(sequence []K, payload V) {
	node := t.Root
	for _, key := range sequence {
		node = node.childOrCreate(key)
	}
	node.Own = t.combine(node.Own, payload)
}

// Len returns the number of nodes including the root.
func (t *Tree[K, V]) Len() int {
	n := 0
	t.Walk(func(*Node[K, V], int) bool {
		n++
		return true
	})
	return n
}

// Combine exposes the combine operation of the tree.
func (t *Tree[K, V]) Combine(a, b V) V {
	return t.combine(a, b)
}

// Inclusive returns the payload of n combined with the payloads of all its
// descendants. It is computed from the current Own values on every call.
func (t *Tree[K, V]) Inclusive(n *Node[K, V]) V {
	var total V
	stack := []*Node[K, V]{n}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		total = t.combine(total, top.Own)
		stack = append(stack, top.Children...)
	}
	return total
}

// inclusiveAll computes the inclusive payload of every node below and
// including n in one post-order pass.
func (t *Tree[K, V]) inclusiveAll(n *Node[K, V], memo map[*Node[K, V]]V) V {
	type frame struct {
		node    *Node[K, V]
		visited bool
	}
	stack := []frame{{node: n}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if !top.visited {
			stack[len(stack)-1].visited = true
			for _, c := range top.node.Children {
				stack = append(stack, frame{node: c})
			}
			continue
		}
		stack = stack[:len(stack)-1]
		total := top.node.Own
		for _, c := range top.node.Children {
			total = t.combine(total, memo[c])
		}
		memo[top.node] = total
	}
	return memo[n]
}

// InclusiveAll returns the inclusive payload of every node, computed once.
func (t *Tree[K, V]) InclusiveAll() map[*Node[K, V]]V {
	memo := make(map[*Node[K, V]]V)
	t.inclusiveAll(t.Root, memo)
	return memo
}

// Walk visits nodes in pre-order along the current child order, starting
// with the root at depth 0. Returning false from fn skips the children of
// that node.
func (t *Tree[K, V]) Walk(fn func(n *Node[K, V], depth int) bool) {
	type item struct {
		node  *Node[K, V]
		depth int
	}
	stack := []item{{node: t.Root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(top.node, top.depth) {
			continue
		}
		for i := len(top.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{node: top.node.Children[i], depth: top.depth + 1})
		}
	}
}
