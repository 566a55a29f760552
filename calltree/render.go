// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package calltree // import "github.com/drdotnet/agent/calltree"

import (
	"fmt"
	"strings"

	"github.com/drdotnet/agent/report"
)

// RenderOptions control how a tree is written to a report sink.
type RenderOptions[K comparable, V any] struct {
	// Title of the report section.
	Title string
	// MaxChildren caps the children written per node. Zero means no cap.
	MaxChildren int
	// Label names a node. Nil formats the key with fmt.Sprint.
	Label func(key K) string
	// Content formats the inclusive and own payloads of a node.
	Content func(inclusive, own V) string
}

// Render writes the tree below the root in its current order, one entry per
// node. Entry names are indented by two spaces per level.
func (t *Tree[K, V]) Render(sink report.Sink, opts RenderOptions[K, V]) error {
	if err := sink.BeginSection(opts.Title); err != nil {
		return err
	}
	label := opts.Label
	if label == nil {
		label = func(key K) string { return fmt.Sprint(key) }
	}
	memo := t.InclusiveAll()

	type item struct {
		node    *Node[K, V]
		depth   int
		skipped int
	}
	var stack []item
	pushChildren := func(n *Node[K, V], depth int) {
		children := n.Children
		skipped := 0
		if opts.MaxChildren > 0 && len(children) > opts.MaxChildren {
			skipped = len(children) - opts.MaxChildren
			children = children[:opts.MaxChildren]
			// A nil node stands for the "more" marker after the kept children.
			stack = append(stack, item{depth: depth, skipped: skipped})
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, item{node: children[i], depth: depth})
		}
	}
	pushChildren(t.Root, 0)

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		indent := strings.Repeat("  ", top.depth)
		if top.node == nil {
			if err := sink.WriteEntry(indent+"...",
				fmt.Sprintf("%d more", top.skipped)); err != nil {
				return err
			}
			continue
		}
		content := ""
		if opts.Content != nil {
			content = opts.Content(memo[top.node], top.node.Own)
		}
		if err := sink.WriteEntry(indent+label(top.node.Key), content); err != nil {
			return err
		}
		pushChildren(top.node, top.depth+1)
	}
	return sink.EndSection()
}

// Canonical returns a textual form of the tree that includes child order,
// keys and own payloads. Two trees with equal canonical forms have the same
// shape, order and payloads.
func (t *Tree[K, V]) Canonical() string {
	var sb strings.Builder
	t.Walk(func(n *Node[K, V], depth int) bool {
		fmt.Fprintf(&sb, "%s%v=%v\n", strings.Repeat(" ", depth), n.Key, n.Own)
		return true
	})
	return sb.String()
}
