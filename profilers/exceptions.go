// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profilers // import "github.com/drdotnet/agent/profilers"

import (
	"time"

	"github.com/drdotnet/agent/callback"
	"github.com/drdotnet/agent/host"
	"github.com/drdotnet/agent/libpf"
	"github.com/drdotnet/agent/names"
	"github.com/drdotnet/agent/report"
	"github.com/drdotnet/agent/session"
)

// ExceptionsInfo identifies the exceptions profiler.
var ExceptionsInfo = session.ProfilerInfo{
	ID:          libpf.MustParseGUID("805A308B-061C-47F3-9B30-F785C3186E82"),
	Name:        "Count thrown exceptions by type",
	Description: "Lists occurring exceptions by importance.\nHandled exceptions are also listed.",
	Parameters: []session.Parameter{
		session.IntParameter("Duration", "duration", 10, "The profiling duration in seconds"),
	},
}

// Exceptions counts thrown exceptions by class name.
type Exceptions struct {
	env      callback.Env
	resolver names.Resolver
	duration time.Duration

	counts *nameCounts
}

var (
	_ callback.AttachCompleter        = (*Exceptions)(nil)
	_ callback.ExceptionThrownHandler = (*Exceptions)(nil)
)

// NewExceptions returns an exceptions profiler with no counts.
func NewExceptions() *Exceptions {
	return &Exceptions{counts: newNameCounts()}
}

// Initialize implements callback.Handler.
func (p *Exceptions) Initialize(env callback.Env) (host.EventMask, error) {
	resolver, err := names.NewCachedResolver(env.Host, 0)
	if err != nil {
		return 0, err
	}
	p.env = env
	p.resolver = resolver
	p.duration = env.Session.Duration("duration", time.Second, 10*time.Second)
	return host.MonitorExceptions, nil
}

// AttachComplete implements callback.AttachCompleter.
func (p *Exceptions) AttachComplete() error {
	p.env.Detach.ScheduleDetach(p.duration)
	return nil
}

// ExceptionThrown implements callback.ExceptionThrownHandler.
func (p *Exceptions) ExceptionThrown(object libpf.ObjectID) error {
	p.counts.add(p.resolver.ObjectClassName(object), 1)
	return nil
}

// Counts returns a copy of the counts so far.
func (p *Exceptions) Counts() map[string]int64 {
	return p.counts.snapshot()
}

// DetachSucceeded implements callback.Handler.
func (p *Exceptions) DetachSucceeded() error {
	rows, total := p.counts.ranked()
	return writeReport(p.env.Reports, "summary.md", func(sink report.Sink) error {
		if err := section(sink, "Exceptions Report",
			[2]string{"Total exceptions", itoa(total)},
			[2]string{"Distinct types", itoa(len(rows))},
		); err != nil {
			return err
		}
		return section(sink, "Exceptions by occurrences", rows...)
	})
}
