// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profilers // import "github.com/drdotnet/agent/profilers"

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/drdotnet/agent/callback"
	"github.com/drdotnet/agent/calltree"
	"github.com/drdotnet/agent/host"
	"github.com/drdotnet/agent/libpf"
	"github.com/drdotnet/agent/metrics"
	"github.com/drdotnet/agent/names"
	"github.com/drdotnet/agent/periodiccaller"
	"github.com/drdotnet/agent/report"
	"github.com/drdotnet/agent/report/pprof"
	"github.com/drdotnet/agent/session"
	"github.com/drdotnet/agent/times"
)

// CPUHotpathInfo identifies the CPU hotpath profiler.
var CPUHotpathInfo = session.ProfilerInfo{
	ID:   libpf.MustParseGUID("805A308B-061C-47F3-9B30-A485B2056E71"),
	Name: "List CPU hotpaths",
	Description: "Capture callstacks every X ms and for a given duration and with minimal " +
		"overhead, and then sort and list hotpaths in a tree view.",
	Parameters: []session.Parameter{
		session.IntParameter("Duration", "duration_seconds", 30,
			"The profiling duration in seconds"),
		session.IntParameter("Time Interval", "time_interval_ms",
			times.DefaultSamplingInterval.Milliseconds(),
			"Time interval between two samples in milliseconds"),
		session.IntParameter("Maximum stacks to display", "max_stacks", 20,
			"The maximum number of stacks to display"),
		session.BoolParameter("Filter Suspended Threads", "filter_suspended_threads", true,
			"If set, threads whose stack did not change since the previous sample are "+
				"left out so that only working threads are analysed"),
		session.BoolParameter("Caller To Callee", "caller_to_callee", false,
			"If set, the output shows callers first and callees as children"),
		session.BoolParameter("Try Resolve Generics", "try_resolve_generics", false,
			"If set, try to resolve generic arguments of methods"),
	},
}

// CPUHotpath samples managed stacks at a fixed interval and reports where
// the samples concentrate.
type CPUHotpath struct {
	env      callback.Env
	resolver names.Resolver
	snap     *snapshotter

	duration       time.Duration
	interval       time.Duration
	maxStacks      int
	filterIdle     bool
	callerToCallee bool

	samplerMu sync.Mutex
	stop      func()
	stopped   bool

	mu         sync.Mutex
	tree       *calltree.Tree[libpf.Frame, int64]
	lastHash   map[libpf.ThreadID]uint64
	iterations int
	filtered   int
}

var (
	_ callback.AttachCompleter = (*CPUHotpath)(nil)
	_ callback.DetachRequester = (*CPUHotpath)(nil)
)

// NewCPUHotpath returns a CPU hotpath profiler with an empty tree.
func NewCPUHotpath() *CPUHotpath {
	return &CPUHotpath{
		tree:     calltree.New[libpf.Frame](calltree.Sum[int64]),
		lastHash: make(map[libpf.ThreadID]uint64),
	}
}

// Initialize implements callback.Handler.
func (p *CPUHotpath) Initialize(env callback.Env) (host.EventMask, error) {
	s := env.Session
	p.duration = s.Duration("duration_seconds", time.Second, 30*time.Second)
	p.interval = s.Duration("time_interval_ms", time.Millisecond, times.DefaultSamplingInterval)
	if p.interval <= 0 {
		return 0, fmt.Errorf("time_interval_ms must be positive, got %v", p.interval)
	}
	p.maxStacks = int(s.Int("max_stacks", 20))
	p.filterIdle = s.Bool("filter_suspended_threads", true)
	p.callerToCallee = s.Bool("caller_to_callee", false)

	resolver, err := names.NewCachedResolver(env.Host, 0)
	if err != nil {
		return 0, err
	}
	p.env = env
	p.resolver = resolver
	p.snap = &snapshotter{info: env.Host, keepClass: s.Bool("try_resolve_generics", false)}
	return host.EnableStackSnapshot, nil
}

// AttachComplete implements callback.AttachCompleter. Sampling runs on its
// own goroutine until the session detaches.
func (p *CPUHotpath) AttachComplete() error {
	p.samplerMu.Lock()
	if !p.stopped {
		p.stop = periodiccaller.Start(context.Background(), p.interval, p.Sample)
	}
	p.samplerMu.Unlock()
	p.env.Detach.ScheduleDetach(p.duration)
	return nil
}

func (p *CPUHotpath) stopSampling() {
	p.samplerMu.Lock()
	defer p.samplerMu.Unlock()
	p.stopped = true
	if p.stop != nil {
		p.stop()
		p.stop = nil
	}
}

// DetachRequested implements callback.DetachRequester.
func (p *CPUHotpath) DetachRequested() error {
	p.stopSampling()
	return nil
}

// Sample takes one sample of every managed thread.
func (p *CPUHotpath) Sample() {
	err := suspended(p.env.Host, func() {
		threads, err := p.env.Host.EnumThreads()
		if err != nil {
			log.Errorf("Failed to enumerate threads: %v", err)
			return
		}
		stacks := make(map[libpf.ThreadID]stack, len(threads))
		for _, thread := range threads {
			st, err := p.snap.snapshot(thread)
			if err != nil {
				log.Debugf("%v", err)
				continue
			}
			stacks[thread] = st
		}
		p.add(threads, stacks)
	})
	if err != nil {
		log.Errorf("Sampling skipped: %v", err)
	}
	metrics.Add(metrics.IDSamplingIterations, 1)
}

func (p *CPUHotpath) add(threads []libpf.ThreadID, stacks map[libpf.ThreadID]stack) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.iterations++
	for _, thread := range threads {
		st, ok := stacks[thread]
		if !ok {
			continue
		}
		if p.filterIdle {
			// The first sample of a thread only sets its baseline.
			prev, seen := p.lastHash[thread]
			p.lastHash[thread] = st.ipHash
			if !seen || prev == st.ipHash {
				p.filtered++
				continue
			}
		}
		if len(st.frames) == 0 {
			continue
		}
		seq := st.frames
		if p.callerToCallee {
			seq = slices.Clone(seq)
			slices.Reverse(seq)
		}
		p.tree.Add(seq, 1)
	}
}

func (p *CPUHotpath) label(frame libpf.Frame) string {
	return p.resolver.FunctionName(frame)
}

// DetachSucceeded implements callback.Handler.
func (p *CPUHotpath) DetachSucceeded() error {
	p.stopSampling()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.tree.Sort(calltree.Cached, calltree.ByWeight[libpf.Frame](calltree.CountWeight, libpf.Frame.Compare))
	total := p.tree.Inclusive(p.tree.Root)
	percent := func(v int64) float64 {
		if total == 0 {
			return 0
		}
		return 100 * float64(v) / float64(total)
	}

	direction := "Callees to callers"
	if p.callerToCallee {
		direction = "Callers to callees"
	}
	err := writeReport(p.env.Reports, "hotpaths.md", func(sink report.Sink) error {
		if err := section(sink, "Hotpaths",
			[2]string{"Samples", itoa(total)},
			[2]string{"Roots", itoa(len(p.tree.Root.Children))},
			[2]string{"Iterations", itoa(p.iterations)},
			[2]string{"Filtered thread samples", itoa(p.filtered)},
			[2]string{"Tree", direction},
		); err != nil {
			return err
		}
		return p.tree.Render(sink, calltree.RenderOptions[libpf.Frame, int64]{
			Title:       direction + " tree",
			MaxChildren: p.maxStacks,
			Label:       p.label,
			Content: func(inclusive, own int64) string {
				return fmt.Sprintf("%.2f%% inclusive, %.2f%% own", percent(inclusive), percent(own))
			},
		})
	})
	if err != nil {
		return err
	}

	f, err := p.env.Reports.NewFile("hotpaths.pb.gz")
	if err != nil {
		return err
	}
	err = pprof.Write(f, p.tree, pprof.Options[libpf.Frame, int64]{
		SampleType:  "samples",
		SampleUnit:  "count",
		PeriodType:  "wall",
		PeriodUnit:  "nanoseconds",
		Period:      p.interval.Nanoseconds(),
		Label:       p.label,
		Value:       calltree.CountWeight,
		CalleeFirst: !p.callerToCallee,
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
