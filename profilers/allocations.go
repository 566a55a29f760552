// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profilers // import "github.com/drdotnet/agent/profilers"

import (
	"sync/atomic"
	"time"

	"github.com/drdotnet/agent/callback"
	"github.com/drdotnet/agent/host"
	"github.com/drdotnet/agent/libpf"
	"github.com/drdotnet/agent/names"
	"github.com/drdotnet/agent/report"
	"github.com/drdotnet/agent/session"
)

// AllocationsInfo identifies the allocations by class profiler.
var AllocationsInfo = session.ProfilerInfo{
	ID:          libpf.MustParseGUID("805A308B-061C-47F3-9B30-F785C3186E84"),
	Name:        "Allocations by Class",
	Description: "Counts allocated objects by class.",
	Parameters: []session.Parameter{
		session.IntParameter("Duration", "duration", 10, "The profiling duration in seconds"),
	},
}

// Allocations counts allocated objects by class name, and collections.
type Allocations struct {
	env      callback.Env
	resolver names.Resolver
	duration time.Duration

	collections atomic.Int64
	allocations *nameCounts
}

var (
	_ callback.AttachCompleter          = (*Allocations)(nil)
	_ callback.ObjectAllocatedHandler   = (*Allocations)(nil)
	_ callback.GarbageCollectionHandler = (*Allocations)(nil)
)

// NewAllocations returns an allocations profiler with no counts.
func NewAllocations() *Allocations {
	return &Allocations{allocations: newNameCounts()}
}

// Initialize implements callback.Handler.
func (p *Allocations) Initialize(env callback.Env) (host.EventMask, error) {
	resolver, err := names.NewCachedResolver(env.Host, 0)
	if err != nil {
		return 0, err
	}
	p.env = env
	p.resolver = resolver
	p.duration = env.Session.Duration("duration", time.Second, 10*time.Second)
	return host.MonitorGC | host.MonitorObjectAlloc, nil
}

// AttachComplete implements callback.AttachCompleter.
func (p *Allocations) AttachComplete() error {
	p.env.Detach.ScheduleDetach(p.duration)
	return nil
}

// ObjectAllocated implements callback.ObjectAllocatedHandler.
func (p *Allocations) ObjectAllocated(_ libpf.ObjectID, class libpf.ClassID) error {
	p.allocations.add(p.resolver.ClassName(class), 1)
	return nil
}

// GarbageCollectionStarted implements callback.GarbageCollectionHandler.
func (p *Allocations) GarbageCollectionStarted([]bool, host.GCReason) error {
	p.collections.Add(1)
	return nil
}

// GarbageCollectionFinished implements callback.GarbageCollectionHandler.
func (p *Allocations) GarbageCollectionFinished() error { return nil }

// Counts returns a copy of the allocation counts so far.
func (p *Allocations) Counts() map[string]int64 {
	return p.allocations.snapshot()
}

// DetachSucceeded implements callback.Handler.
func (p *Allocations) DetachSucceeded() error {
	rows, total := p.allocations.ranked()
	return writeReport(p.env.Reports, "summary.md", func(sink report.Sink) error {
		if err := section(sink, "Allocations Report",
			[2]string{"Total collections", itoa(p.collections.Load())},
			[2]string{"Total allocations", itoa(total)},
			[2]string{"Distinct classes", itoa(len(rows))},
		); err != nil {
			return err
		}
		return section(sink, "Allocations by class", rows...)
	})
}
