// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package times holds the intervals and timeouts used across the agent.
package times // import "github.com/drdotnet/agent/times"

import "time"

const (
	// DetachTimeout is how long the runtime waits for in-flight callbacks
	// to drain after the agent asked to detach.
	DetachTimeout = 3 * time.Second
	// UploadTimeout bounds the upload of one finished session.
	UploadTimeout = 2 * time.Minute
	// DefaultSamplingInterval is the pause between two stack sampling rounds.
	DefaultSamplingInterval = 20 * time.Millisecond
	// DefaultSessionDuration bounds sessions of profilers that detach on
	// their own.
	DefaultSessionDuration = 30 * time.Second
)

// Compile time check for interface adherence
var _ IntervalsAndTimers = (*Times)(nil)

// Times hold all the intervals and timeouts that are used across the agent in a central place
// and comes with Getters to read them.
type Times struct {
	monitorInterval  time.Duration
	detachTimeout    time.Duration
	uploadTimeout    time.Duration
	samplingInterval time.Duration
}

// IntervalsAndTimers is a meta-interface that exists purely to document its functionality.
type IntervalsAndTimers interface {
	// MonitorInterval defines the interval for agent metric collection.
	MonitorInterval() time.Duration
	// DetachTimeout defines how long the runtime may wait for callbacks to
	// drain on a self-requested detach.
	DetachTimeout() time.Duration
	// UploadTimeout bounds the upload of a finished session.
	UploadTimeout() time.Duration
	// SamplingInterval is the default interval between stack sampling rounds.
	SamplingInterval() time.Duration
}

func (t *Times) MonitorInterval() time.Duration { return t.monitorInterval }

func (t *Times) DetachTimeout() time.Duration { return t.detachTimeout }

func (t *Times) UploadTimeout() time.Duration { return t.uploadTimeout }

func (t *Times) SamplingInterval() time.Duration { return t.samplingInterval }

// New returns a new Times instance.
func New(monitorInterval, samplingInterval time.Duration) *Times {
	if samplingInterval <= 0 {
		samplingInterval = DefaultSamplingInterval
	}
	return &Times{
		monitorInterval:  monitorInterval,
		detachTimeout:    DetachTimeout,
		uploadTimeout:    UploadTimeout,
		samplingInterval: samplingInterval,
	}
}
