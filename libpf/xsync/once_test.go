// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package xsync_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drdotnet/agent/libpf/xsync"
)

func TestOnceRetriesAfterFailure(t *testing.T) {
	var once xsync.Once[string]
	errNotYet := errors.New("not yet")
	attempts := 0 // guarded by the Once mutex

	assert.Nil(t, once.Get())

	var numOk atomic.Uint32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			val, err := once.GetOrInit(func() (string, error) {
				attempts++
				if attempts < 3 {
					return "", errNotYet
				}
				return "client", nil
			})
			if err != nil {
				assert.ErrorIs(t, err, errNotYet)
				assert.Nil(t, val)
				return
			}
			numOk.Add(1)
			assert.Equal(t, "client", *val)
		}()
	}
	wg.Wait()

	require.NotNil(t, once.Get())
	assert.Equal(t, "client", *once.Get())
	assert.Equal(t, uint32(16-2), numOk.Load())
	assert.Equal(t, 3, attempts)
}
