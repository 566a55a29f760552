// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package xsync // import "github.com/drdotnet/agent/libpf/xsync"

import "sync"

// RWMutex wraps sync.RWMutex and hides the data it protects, so the data can
// only be reached through RLock or WLock:
//
//	type HandleTable struct {
//		entries xsync.RWMutex[map[uintptr]*entry]
//	}
//
//	func (t *HandleTable) Get(h uintptr) *entry {
//		entries := t.entries.RLock()
//		defer t.entries.RUnlock(&entries)
//		return (*entries)[h]
//	}
//
// The unlock functions reset the caller's pointer to nil so that a use after
// unlock crashes in tests instead of racing silently.
type RWMutex[T any] struct {
	guarded T
	mutex   sync.RWMutex
}

// NewRWMutex creates a new read-write mutex.
func NewRWMutex[T any](guarded T) RWMutex[T] {
	return RWMutex[T]{
		guarded: guarded,
	}
}

// RLock locks the mutex for reading, returning a pointer to the protected data.
//
// The caller must not write through the returned pointer and must not keep
// it past the matching RUnlock.
func (mtx *RWMutex[T]) RLock() *T {
	mtx.mutex.RLock()
	return &mtx.guarded
}

// RUnlock unlocks the mutex after previously being locked by RLock.
func (mtx *RWMutex[T]) RUnlock(ref **T) {
	*ref = nil
	mtx.mutex.RUnlock()
}

// WLock locks the mutex for writing, returning a pointer to the protected data.
func (mtx *RWMutex[T]) WLock() *T {
	mtx.mutex.Lock()
	return &mtx.guarded
}

// WUnlock unlocks the mutex after previously being locked by WLock.
func (mtx *RWMutex[T]) WUnlock(ref **T) {
	*ref = nil
	mtx.mutex.Unlock()
}
