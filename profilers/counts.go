// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profilers // import "github.com/drdotnet/agent/profilers"

import (
	"cmp"
	"maps"
	"slices"
	"sync"
)

// nameCounts counts occurrences by display name. It is safe for concurrent
// use.
type nameCounts struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newNameCounts() *nameCounts {
	return &nameCounts{counts: make(map[string]int64)}
}

func (c *nameCounts) add(name string, n int64) {
	c.mu.Lock()
	c.counts[name] += n
	c.mu.Unlock()
}

func (c *nameCounts) snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.counts)
}

// ranked returns one entry per name, highest count first and ties by name,
// along with the sum of all counts.
func (c *nameCounts) ranked() (entries [][2]string, total int64) {
	counts := c.snapshot()
	names := make([]string, 0, len(counts))
	for name, n := range counts {
		names = append(names, name)
		total += n
	}
	slices.SortFunc(names, func(a, b string) int {
		if byCount := cmp.Compare(counts[b], counts[a]); byCount != 0 {
			return byCount
		}
		return cmp.Compare(a, b)
	})
	entries = make([][2]string, 0, len(names))
	for _, name := range names {
		entries = append(entries, [2]string{name, itoa(counts[name])})
	}
	return entries, total
}
