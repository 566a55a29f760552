// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profilers // import "github.com/drdotnet/agent/profilers"

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/drdotnet/agent/callback"
	"github.com/drdotnet/agent/host"
	"github.com/drdotnet/agent/libpf"
	"github.com/drdotnet/agent/report"
	"github.com/drdotnet/agent/session"
)

// RuntimePauseInfo identifies the runtime pause profiler.
var RuntimePauseInfo = session.ProfilerInfo{
	ID:   libpf.MustParseGUID("805A308B-061C-47F3-9B30-F785C3186E85"),
	Name: "List runtime pauses",
	Description: "Lists runtime pauses and their durations, such as blocking " +
		"garbage collections.",
	Parameters: []session.Parameter{
		session.IntParameter("Duration", "duration", 20, "The profiling duration in seconds"),
	},
}

// pause is one suspension, from suspend start to resume finish.
type pause struct {
	start    time.Time
	end      time.Time
	reason   host.SuspendReason
	gc       bool
	gcReason host.GCReason
	gcGen    int
}

func (p pause) duration() time.Duration {
	return p.end.Sub(p.start)
}

func (p pause) describe() string {
	if !p.gc {
		return p.reason.String()
	}
	return fmt.Sprintf("%v (%v gen %d)", p.reason, p.gcReason, p.gcGen)
}

// RuntimePause measures runtime suspensions and garbage collections.
type RuntimePause struct {
	env      callback.Env
	duration time.Duration
	now      func() time.Time

	mu        sync.Mutex
	started   time.Time
	current   *pause
	pauses    []pause
	gcStart   time.Time
	gcRunning bool
	gcs       []time.Duration
}

var (
	_ callback.AttachCompleter          = (*RuntimePause)(nil)
	_ callback.RuntimeSuspendHandler    = (*RuntimePause)(nil)
	_ callback.GarbageCollectionHandler = (*RuntimePause)(nil)
)

// NewRuntimePause returns a runtime pause profiler with no pauses.
func NewRuntimePause() *RuntimePause {
	return &RuntimePause{now: time.Now}
}

// Initialize implements callback.Handler.
func (p *RuntimePause) Initialize(env callback.Env) (host.EventMask, error) {
	p.env = env
	p.duration = env.Session.Duration("duration", time.Second, 20*time.Second)
	p.mu.Lock()
	p.started = p.now()
	p.mu.Unlock()
	return host.MonitorSuspends | host.MonitorGC, nil
}

// AttachComplete implements callback.AttachCompleter.
func (p *RuntimePause) AttachComplete() error {
	p.mu.Lock()
	p.started = p.now()
	p.mu.Unlock()
	p.env.Detach.ScheduleDetach(p.duration)
	return nil
}

// RuntimeSuspendStarted implements callback.RuntimeSuspendHandler.
func (p *RuntimePause) RuntimeSuspendStarted(reason host.SuspendReason) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = &pause{start: p.now(), reason: reason}
	return nil
}

// RuntimeSuspendFinished implements callback.RuntimeSuspendHandler.
func (p *RuntimePause) RuntimeSuspendFinished() error { return nil }

// RuntimeResumeStarted implements callback.RuntimeSuspendHandler.
func (p *RuntimePause) RuntimeResumeStarted() error { return nil }

// RuntimeResumeFinished implements callback.RuntimeSuspendHandler.
func (p *RuntimePause) RuntimeResumeFinished() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		log.Warnf("Runtime resume finished without a tracked suspension")
		return nil
	}
	p.current.end = p.now()
	p.pauses = append(p.pauses, *p.current)
	p.current = nil
	return nil
}

// GarbageCollectionStarted implements callback.GarbageCollectionHandler.
func (p *RuntimePause) GarbageCollectionStarted(generations []bool, reason host.GCReason) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gcStart = p.now()
	p.gcRunning = true
	if p.current != nil {
		p.current.gc = true
		p.current.gcReason = reason
		p.current.gcGen = highestGeneration(generations)
	}
	return nil
}

// GarbageCollectionFinished implements callback.GarbageCollectionHandler.
func (p *RuntimePause) GarbageCollectionFinished() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.gcRunning {
		log.Warnf("Garbage collection finished without a tracked start")
		return nil
	}
	p.gcRunning = false
	p.gcs = append(p.gcs, p.now().Sub(p.gcStart))
	return nil
}

// highestGeneration returns the oldest collected generation, or -1.
func highestGeneration(generations []bool) int {
	gen := -1
	for i, collected := range generations {
		if collected {
			gen = i
		}
	}
	return gen
}

// quantile returns the q quantile of sorted durations.
func quantile(sorted []time.Duration, q float64) time.Duration {
	i := int(math.Floor(q * float64(len(sorted))))
	return sorted[min(i, len(sorted)-1)]
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%.3fms", float64(d)/float64(time.Millisecond))
}

type durationStats struct {
	count int
	total time.Duration
	max   time.Duration
}

func (s *durationStats) add(d time.Duration) {
	s.count++
	s.total += d
	s.max = max(s.max, d)
}

func (s durationStats) entries(prefix string) [][2]string {
	avg := time.Duration(0)
	if s.count > 0 {
		avg = s.total / time.Duration(s.count)
	}
	return [][2]string{
		{prefix + "count", itoa(s.count)},
		{prefix + "total", ms(s.total)},
		{prefix + "longest", ms(s.max)},
		{prefix + "average", ms(avg)},
	}
}

// DetachSucceeded implements callback.Handler.
func (p *RuntimePause) DetachSucceeded() error {
	p.mu.Lock()
	end := p.now()
	elapsed := end.Sub(p.started)
	pauses := slices.Clone(p.pauses)
	gcs := slices.Clone(p.gcs)
	p.mu.Unlock()

	var all, gc durationStats
	byReason := make(map[host.SuspendReason]*durationStats)
	durations := make([]time.Duration, 0, len(pauses))
	for _, ps := range pauses {
		d := ps.duration()
		all.add(d)
		durations = append(durations, d)
		s, ok := byReason[ps.reason]
		if !ok {
			s = &durationStats{}
			byReason[ps.reason] = s
		}
		s.add(d)
	}
	for _, d := range gcs {
		gc.add(d)
	}
	slices.Sort(durations)

	return writeReport(p.env.Reports, "summary.md", func(sink report.Sink) error {
		general := all.entries("Pauses ")
		if elapsed > 0 {
			general = append(general, [2]string{"Time suspended",
				fmt.Sprintf("%.2f%%", 100*all.total.Seconds()/elapsed.Seconds())})
		}
		if err := section(sink, "Runtime Pauses Report", general...); err != nil {
			return err
		}
		if len(durations) > 0 {
			if err := section(sink, "Quantiles",
				[2]string{"50p (median)", ms(quantile(durations, 0.50))},
				[2]string{"95p", ms(quantile(durations, 0.95))},
				[2]string{"99p", ms(quantile(durations, 0.99))},
			); err != nil {
				return err
			}
		}

		var reasons [][2]string
		for _, reason := range libpf.SortedKeys(byReason) {
			s := byReason[reason]
			reasons = append(reasons, [2]string{reason.String(),
				fmt.Sprintf("%d pauses, %s total, %s longest", s.count, ms(s.total), ms(s.max))})
		}
		if err := section(sink, "Pauses by reason", reasons...); err != nil {
			return err
		}
		if err := section(sink, "Garbage collections", gc.entries("Collections ")...); err != nil {
			return err
		}

		all := make([][2]string, 0, len(pauses))
		for i, ps := range pauses {
			all = append(all, [2]string{itoa(i + 1), fmt.Sprintf("%s | %s | %s",
				ps.start.UTC().Format(time.RFC3339Nano), ps.describe(), ms(ps.duration()))})
		}
		return section(sink, "All pauses", all...)
	})
}
