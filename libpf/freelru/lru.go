// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package freelru wraps the synchronized go-freelru LRU and keeps hit and
// miss statistics next to it.
package freelru // import "github.com/drdotnet/agent/libpf/freelru"

import (
	"sync/atomic"
	"time"

	lru "github.com/elastic/go-freelru"
)

// LRU is a concurrency safe LRU with statistics.
type LRU[K comparable, V any] struct {
	lru      *lru.SyncedLRU[K, V]
	lifetime time.Duration

	hit     atomic.Uint64
	miss    atomic.Uint64
	added   atomic.Uint64
	evicted atomic.Uint64
}

// Statistics are the counters of an LRU since the last reset.
type Statistics struct {
	// Number of times for a hit of a cache entry.
	Hit uint64
	// Number of times for a miss of a cache entry.
	Miss uint64
	// Number of elements that were added to the cache.
	Added uint64
	// Number of elements that were evicted to make room.
	Evicted uint64
}

// New creates an LRU holding up to capacity entries. A non-zero lifetime
// expires entries that were not refreshed for that long.
func New[K comparable, V any](capacity uint32, hash lru.HashKeyCallback[K],
	lifetime time.Duration) (*LRU[K, V], error) {
	cache, err := lru.NewSynced[K, V](capacity, hash)
	if err != nil {
		return nil, err
	}
	if lifetime > 0 {
		cache.SetLifetime(lifetime)
	}
	return &LRU[K, V]{lru: cache, lifetime: lifetime}, nil
}

// Add inserts or replaces key.
func (c *LRU[K, V]) Add(key K, value V) (evicted bool) {
	evicted = c.lru.Add(key, value)
	if evicted {
		c.evicted.Add(1)
	}
	c.added.Add(1)
	return evicted
}

// Get returns the value of key and refreshes its lifetime.
func (c *LRU[K, V]) Get(key K) (value V, ok bool) {
	value, ok = c.lru.GetAndRefresh(key, c.lifetime)
	if ok {
		c.hit.Add(1)
	} else {
		c.miss.Add(1)
	}
	return value, ok
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	return c.lru.Len()
}

// Purge removes every entry.
func (c *LRU[K, V]) Purge() {
	c.lru.Purge()
}

// GetAndResetStatistics returns the internal statistics for this LRU and resets all values to 0.
func (c *LRU[K, V]) GetAndResetStatistics() Statistics {
	return Statistics{
		Hit:     c.hit.Swap(0),
		Miss:    c.miss.Swap(0),
		Added:   c.added.Swap(0),
		Evicted: c.evicted.Swap(0),
	}
}
