// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package xsync_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drdotnet/agent/libpf/xsync"
)

func TestRWMutex(t *testing.T) {
	table := xsync.NewRWMutex(map[uintptr]string{})

	entries := table.WLock()
	(*entries)[1] = "factory"
	table.WUnlock(&entries)
	// WUnlock resets the reference.
	assert.Nil(t, entries)

	view := table.RLock()
	defer table.RUnlock(&view)
	assert.Equal(t, "factory", (*view)[1])
}

func TestRWMutex_CrashOnUseAfterUnlock(t *testing.T) {
	m := xsync.NewRWMutex(uint64(0))
	p := m.WLock()
	*p = 123
	m.WUnlock(&p)

	assert.Panics(t, func() {
		*p = 345
	})
}
