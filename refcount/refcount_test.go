// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package refcount_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drdotnet/agent/hresult"
	"github.com/drdotnet/agent/iid"
	"github.com/drdotnet/agent/libpf"
	"github.com/drdotnet/agent/refcount"
)

type payload struct {
	events atomic.Int32
}

func newObject(frees *atomic.Int32) *refcount.Object[*payload] {
	return refcount.New("test", &payload{}, iid.CallbackSet(iid.V3),
		func(*payload) { frees.Add(1) })
}

func requireViolation(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a violation panic")
		_, ok := r.(*refcount.ViolationError)
		require.True(t, ok, "unexpected panic value %v", r)
	}()
	fn()
}

func TestAcquireReleaseFreesOnce(t *testing.T) {
	var frees atomic.Int32
	obj := newObject(&frees)

	assert.Equal(t, uint32(1), obj.Acquire())
	assert.Equal(t, uint32(2), obj.Acquire())
	assert.Equal(t, uint32(1), obj.Release())
	assert.Equal(t, int32(0), frees.Load())
	assert.Equal(t, uint32(0), obj.Release())
	assert.Equal(t, int32(1), frees.Load())
	assert.True(t, obj.Freed())

	requireViolation(t, func() { obj.Release() })
	requireViolation(t, func() { obj.Acquire() })
	requireViolation(t, func() { obj.Value() })
	requireViolation(t, func() { obj.Query(iid.IUnknown) })
	assert.Equal(t, int32(1), frees.Load())
}

func TestReleaseWithoutAcquire(t *testing.T) {
	var frees atomic.Int32
	obj := newObject(&frees)
	requireViolation(t, func() { obj.Release() })
	assert.Equal(t, int32(0), frees.Load())
}

func TestQuery(t *testing.T) {
	v3, _ := iid.Callback(iid.V3)
	v4, _ := iid.Callback(iid.V4)

	tests := map[string]struct {
		id       libpf.GUID
		status   hresult.HRESULT
		expected uint32
	}{
		"unknown":           {id: iid.IUnknown, status: hresult.S_OK, expected: 2},
		"declared version":  {id: v3, status: hresult.S_OK, expected: 2},
		"newer version":     {id: v4, status: hresult.E_NOINTERFACE, expected: 1},
		"class factory":     {id: iid.IClassFactory, status: hresult.E_NOINTERFACE, expected: 1},
		"unregistered guid": {id: libpf.NewRandomGUID(), status: hresult.E_NOINTERFACE, expected: 1},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var frees atomic.Int32
			obj := newObject(&frees)
			obj.Acquire()

			got, status := obj.Query(tc.id)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.expected, obj.Count())
			if status.Succeeded() {
				assert.Same(t, obj, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestConcurrentNetZero(t *testing.T) {
	var frees atomic.Int32
	obj := newObject(&frees)
	obj.Acquire()

	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				obj.Acquire()
				obj.Value().events.Add(1)
				obj.Release()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint32(1), obj.Count())
	assert.Equal(t, int32(6400), obj.Value().events.Load())
	assert.Equal(t, int32(0), frees.Load())
	obj.Release()
	assert.Equal(t, int32(1), frees.Load())
}
