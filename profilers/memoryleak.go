// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profilers // import "github.com/drdotnet/agent/profilers"

import (
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/drdotnet/agent/callback"
	"github.com/drdotnet/agent/host"
	"github.com/drdotnet/agent/libpf"
	"github.com/drdotnet/agent/names"
	"github.com/drdotnet/agent/report"
	"github.com/drdotnet/agent/session"
)

// MemoryLeakInfo identifies the memory leak profiler.
var MemoryLeakInfo = session.ProfilerInfo{
	ID:   libpf.MustParseGUID("805A308B-061C-47F3-9B30-F785C3186E83"),
	Name: "Memory Leak Finder",
	Description: "Counts the objects surviving garbage collections by class.\n" +
		"Classes with many survivors are leak candidates.",
	Parameters: []session.Parameter{
		session.IntParameter("Duration", "duration", 10, "The profiling duration in seconds"),
	},
}

// MemoryLeak counts garbage collections and the surviving objects of each
// class. Every surviving range counts once, for the class of its first
// object.
type MemoryLeak struct {
	env      callback.Env
	resolver names.Resolver
	duration time.Duration

	collections atomic.Int64
	survivors   *nameCounts
}

var (
	_ callback.AttachCompleter            = (*MemoryLeak)(nil)
	_ callback.GarbageCollectionHandler   = (*MemoryLeak)(nil)
	_ callback.SurvivingReferencesHandler = (*MemoryLeak)(nil)
)

// NewMemoryLeak returns a memory leak profiler with no survivors.
func NewMemoryLeak() *MemoryLeak {
	return &MemoryLeak{survivors: newNameCounts()}
}

// Initialize implements callback.Handler.
func (p *MemoryLeak) Initialize(env callback.Env) (host.EventMask, error) {
	resolver, err := names.NewCachedResolver(env.Host, 0)
	if err != nil {
		return 0, err
	}
	p.env = env
	p.resolver = resolver
	p.duration = env.Session.Duration("duration", time.Second, 10*time.Second)
	return host.MonitorGC, nil
}

// AttachComplete implements callback.AttachCompleter. A first collection
// is forced so that survivors show up early.
func (p *MemoryLeak) AttachComplete() error {
	if gc, ok := p.env.Host.(host.GCTrigger); ok {
		if err := gc.ForceGC(); err != nil {
			log.Errorf("Force GC failed: %v", err)
		}
	}
	p.env.Detach.ScheduleDetach(p.duration)
	return nil
}

// GarbageCollectionStarted implements callback.GarbageCollectionHandler.
func (p *MemoryLeak) GarbageCollectionStarted([]bool, host.GCReason) error {
	p.collections.Add(1)
	return nil
}

// GarbageCollectionFinished implements callback.GarbageCollectionHandler.
func (p *MemoryLeak) GarbageCollectionFinished() error { return nil }

// SurvivingReferences2 implements callback.SurvivingReferencesHandler.
func (p *MemoryLeak) SurvivingReferences2(ranges []callback.ObjectRange) error {
	for _, r := range ranges {
		p.survivors.add(p.resolver.ObjectClassName(r.Start), 1)
	}
	return nil
}

// Survivors returns a copy of the survivor counts so far.
func (p *MemoryLeak) Survivors() map[string]int64 {
	return p.survivors.snapshot()
}

// DetachSucceeded implements callback.Handler.
func (p *MemoryLeak) DetachSucceeded() error {
	rows, total := p.survivors.ranked()
	return writeReport(p.env.Reports, "summary.md", func(sink report.Sink) error {
		if err := section(sink, "Memory Leak Report",
			[2]string{"Total collections", itoa(p.collections.Load())},
			[2]string{"Surviving references", itoa(total)},
			[2]string{"Distinct classes", itoa(len(rows))},
		); err != nil {
			return err
		}
		return section(sink, "Surviving references by class", rows...)
	})
}
