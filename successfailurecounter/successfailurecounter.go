// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// successfailurecounter records the outcome of one operation exactly once,
// both in a pair of atomic counters owned by the caller and in the matching
// agent metrics.
//
// A SuccessFailureCounter value belongs to one operation on one goroutine.
// The counters it points to may be shared.
package successfailurecounter // import "github.com/drdotnet/agent/successfailurecounter"

import (
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/drdotnet/agent/metrics"
)

// SuccessFailureCounter records one outcome. Later reports are ignored and
// logged.
type SuccessFailureCounter struct {
	success, fail     *atomic.Uint64
	successID, failID metrics.MetricID
	sealed            bool
}

// New returns a counter for one operation. successID and failID may be
// metrics.IDInvalid to skip metric reporting.
func New(success, fail *atomic.Uint64, successID, failID metrics.MetricID) SuccessFailureCounter {
	return SuccessFailureCounter{
		success:   success,
		fail:      fail,
		successID: successID,
		failID:    failID,
	}
}

func (sfc *SuccessFailureCounter) record(counter *atomic.Uint64, id metrics.MetricID) {
	counter.Add(1)
	if id != metrics.IDInvalid {
		metrics.Add(id, 1)
	}
	sfc.sealed = true
}

// ReportSuccess records a success unless an outcome was already recorded.
func (sfc *SuccessFailureCounter) ReportSuccess() {
	if sfc.sealed {
		log.Errorf("Attempted to report success/failure status more than once.")
		return
	}
	sfc.record(sfc.success, sfc.successID)
}

// ReportFailure records a failure unless an outcome was already recorded.
func (sfc *SuccessFailureCounter) ReportFailure() {
	if sfc.sealed {
		log.Errorf("Attempted to report failure/success status more than once.")
		return
	}
	sfc.record(sfc.fail, sfc.failID)
}

// DefaultToSuccess records a success if nothing was recorded before.
func (sfc *SuccessFailureCounter) DefaultToSuccess() {
	if !sfc.sealed {
		sfc.record(sfc.success, sfc.successID)
	}
}

// DefaultToFailure records a failure if nothing was recorded before.
func (sfc *SuccessFailureCounter) DefaultToFailure() {
	if !sfc.sealed {
		sfc.record(sfc.fail, sfc.failID)
	}
}
