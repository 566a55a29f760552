// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package periodiccaller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodicCaller(t *testing.T) {
	interval := 10 * time.Millisecond
	var counter atomic.Int32

	stop := Start(context.Background(), interval, func() {
		counter.Add(1)
	})
	require.Eventually(t, func() bool { return counter.Load() >= 3 },
		time.Second, interval)

	stop()
	stopped := counter.Load()
	time.Sleep(5 * interval)
	assert.Equal(t, stopped, counter.Load())

	// A second stop is a no-op.
	stop()
}

func TestPeriodicCallerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var counter atomic.Int32
	stop := Start(ctx, time.Millisecond, func() { counter.Add(1) })
	defer stop()

	require.Eventually(t, func() bool { return counter.Load() > 0 },
		time.Second, time.Millisecond)
	cancel()
	// stop still returns once the loop noticed the cancellation.
	stop()
}

func TestStopWaitsForCallback(t *testing.T) {
	entered := make(chan struct{})
	var finished atomic.Bool

	stop := Start(context.Background(), time.Millisecond, func() {
		select {
		case entered <- struct{}{}:
		default:
			return
		}
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	})

	<-entered
	stop()
	assert.True(t, finished.Load())
}

func TestPeriodicCallerManualTrigger(t *testing.T) {
	trigger := make(chan bool)
	got := make(chan bool, 1)

	stop := StartWithManualTrigger(context.Background(), time.Hour, trigger,
		func(manualTrigger bool) {
			got <- manualTrigger
		})
	defer stop()

	trigger <- true
	select {
	case manual := <-got:
		assert.True(t, manual)
	case <-time.After(time.Second):
		t.Fatal("callback was not triggered")
	}
}
