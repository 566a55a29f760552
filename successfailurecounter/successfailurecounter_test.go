// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package successfailurecounter

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drdotnet/agent/metrics"
)

func outcome(success, fail *atomic.Uint64, n int, defaultSuccess bool) {
	sfc := New(success, fail, metrics.IDInvalid, metrics.IDInvalid)
	if defaultSuccess {
		defer sfc.DefaultToSuccess()
	} else {
		defer sfc.DefaultToFailure()
	}

	if n%2 == 0 {
		sfc.ReportSuccess()
	} else if n%3 == 0 {
		sfc.ReportFailure()
	}
}

func TestSuccessFailureCounter(t *testing.T) {
	tests := map[string]struct {
		input           int
		defaultSuccess  bool
		expectedSuccess uint64
		expectedFailure uint64
	}{
		"default success - no report":      {input: 1, defaultSuccess: true, expectedSuccess: 1},
		"default failure - no report":      {input: 5, expectedFailure: 1},
		"default success - report success": {input: 2, defaultSuccess: true, expectedSuccess: 1},
		"default success - report failure": {input: 3, defaultSuccess: true, expectedFailure: 1},
		"default failure - report success": {input: 4, expectedSuccess: 1},
		"default failure - report failure": {input: 9, expectedFailure: 1},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var success, fail atomic.Uint64
			outcome(&success, &fail, tc.input, tc.defaultSuccess)
			assert.Equal(t, tc.expectedSuccess, success.Load())
			assert.Equal(t, tc.expectedFailure, fail.Load())
		})
	}
}

func TestReportsMetrics(t *testing.T) {
	var success, fail atomic.Uint64
	before := metrics.Snapshot()[metrics.IDNameResolveFailure]

	sfc := New(&success, &fail, metrics.IDNameResolveSuccess, metrics.IDNameResolveFailure)
	sfc.DefaultToFailure()

	assert.Equal(t, before+1, metrics.Snapshot()[metrics.IDNameResolveFailure])
	assert.Equal(t, uint64(1), fail.Load())
}

func TestSecondReportIgnored(t *testing.T) {
	var success, fail atomic.Uint64
	sfc := New(&success, &fail, metrics.IDInvalid, metrics.IDInvalid)
	sfc.ReportSuccess()
	sfc.ReportFailure()
	sfc.DefaultToFailure()
	assert.Equal(t, uint64(1), success.Load())
	assert.Equal(t, uint64(0), fail.Load())
}
