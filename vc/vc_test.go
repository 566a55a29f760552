// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package vc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionFallback(t *testing.T) {
	saved := version
	defer func() { version = saved }()

	version = ""
	assert.Equal(t, "dev", Version())

	version = "v1.2.3"
	assert.Equal(t, "v1.2.3", Version())
	assert.Contains(t, String(), "v1.2.3")
}
