// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package refcount implements the reference counted object underlying every
// value handed across the binding boundary.
package refcount // import "github.com/drdotnet/agent/refcount"

import (
	"fmt"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/drdotnet/agent/hresult"
	"github.com/drdotnet/agent/iid"
	"github.com/drdotnet/agent/libpf"
)

// ViolationError is the panic value raised on a broken reference counting
// contract: releasing an object that is already gone, or calling into it
// afterwards. It is never recovered by the binding layer.
type ViolationError struct {
	Op     string
	Object string
}

// Error implements error.
func (e *ViolationError) Error() string {
	return fmt.Sprintf("reference count violation: %s on released object %s", e.Op, e.Object)
}

// Object pairs a payload with an atomic reference count and the set of
// interface identities it answers to. The count starts at zero; the creator
// takes the first reference through Query or Acquire.
type Object[T any] struct {
	count atomic.Int64
	freed atomic.Bool

	name   string
	ifaces iid.Set
	value  T
	onFree func(T)
}

// New wraps value. onFree, if non-nil, runs exactly once when the count
// drops from one to zero.
func New[T any](name string, value T, ifaces iid.Set, onFree func(T)) *Object[T] {
	return &Object[T]{
		name:   name,
		ifaces: ifaces,
		value:  value,
		onFree: onFree,
	}
}

func (o *Object[T]) violation(op string) {
	panic(&ViolationError{Op: op, Object: o.name})
}

// Acquire increments the count and returns it.
func (o *Object[T]) Acquire() uint32 {
	if o.freed.Load() {
		o.violation("Acquire")
	}
	return uint32(o.count.Add(1))
}

// Release decrements the count and returns it. Reaching zero frees the
// object; any further call panics with *ViolationError.
func (o *Object[T]) Release() uint32 {
	for {
		cur := o.count.Load()
		if cur <= 0 || o.freed.Load() {
			o.violation("Release")
		}
		if !o.count.CompareAndSwap(cur, cur-1) {
			continue
		}
		if cur == 1 {
			o.free()
		}
		return uint32(cur - 1)
	}
}

func (o *Object[T]) free() {
	if !o.freed.CompareAndSwap(false, true) {
		o.violation("Release")
	}
	log.Debugf("Freeing %s", o.name)
	if o.onFree != nil {
		o.onFree(o.value)
	}
	var zero T
	o.value = zero
}

// Query returns o with the count incremented when id is one of the object's
// interfaces. Otherwise it returns nil and E_NOINTERFACE and leaves the
// count untouched.
func (o *Object[T]) Query(id libpf.GUID) (*Object[T], hresult.HRESULT) {
	if o.freed.Load() {
		o.violation("QueryInterface")
	}
	if o.ifaces == nil || !o.ifaces.Contains(id) {
		log.Debugf("%s: no interface %s", o.name, iid.Name(id))
		return nil, hresult.E_NOINTERFACE
	}
	o.Acquire()
	return o, hresult.S_OK
}

// Value returns the payload. It panics once the object has been freed.
func (o *Object[T]) Value() T {
	if o.freed.Load() {
		o.violation("call")
	}
	return o.value
}

// Count returns the current count. Intended for diagnostics and tests.
func (o *Object[T]) Count() uint32 {
	return uint32(max(o.count.Load(), 0))
}

// Freed reports whether the count has reached zero.
func (o *Object[T]) Freed() bool {
	return o.freed.Load()
}

// Name returns the display name given at construction.
func (o *Object[T]) Name() string {
	return o.name
}
