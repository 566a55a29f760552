// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package profilers holds the profilers the agent can activate.
package profilers // import "github.com/drdotnet/agent/profilers"

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/drdotnet/agent/callback"
	"github.com/drdotnet/agent/classfactory"
	"github.com/drdotnet/agent/host"
	"github.com/drdotnet/agent/iid"
	"github.com/drdotnet/agent/libpf"
	"github.com/drdotnet/agent/metrics"
	"github.com/drdotnet/agent/report"
	"github.com/drdotnet/agent/successfailurecounter"
)

// Descriptors returns the catalogue in display order.
func Descriptors() []classfactory.Descriptor {
	return []classfactory.Descriptor{
		{
			Info:       ExceptionsInfo,
			MaxVersion: iid.Latest,
			New:        func() callback.Handler { return NewExceptions() },
		},
		{
			Info:       MemoryLeakInfo,
			MaxVersion: iid.Latest,
			New:        func() callback.Handler { return NewMemoryLeak() },
		},
		{
			Info:       AllocationsInfo,
			MaxVersion: iid.Latest,
			New:        func() callback.Handler { return NewAllocations() },
		},
		{
			Info:       RuntimePauseInfo,
			MaxVersion: iid.Latest,
			New:        func() callback.Handler { return NewRuntimePause() },
		},
		{
			Info:       CPUHotpathInfo,
			MaxVersion: iid.Latest,
			New:        func() callback.Handler { return NewCPUHotpath() },
		},
		{
			Info:       MergedCallStacksInfo,
			MaxVersion: iid.Latest,
			New:        func() callback.Handler { return NewMergedCallStacks() },
		},
	}
}

// Register adds the catalogue to r.
func Register(r *classfactory.Registry) error {
	for _, d := range Descriptors() {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the catalogue.
func NewRegistry(outputs callback.OutputFunc) (*classfactory.Registry, error) {
	r := classfactory.NewRegistry(outputs)
	if err := Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

// writeReport creates the report name, lets fn fill it and closes it.
func writeReport(f report.Factory, name string, fn func(report.Sink) error) (err error) {
	w, err := f.NewReport(name)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", name, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close report %s: %w", name, cerr)
		}
	}()
	if err = fn(w); err != nil {
		return fmt.Errorf("failed to write report %s: %w", name, err)
	}
	metrics.Add(metrics.IDReportsWritten, 1)
	log.Infof("Report %s written", name)
	return nil
}

// section writes one section of name/content pairs.
func section(sink report.Sink, title string, entries ...[2]string) error {
	if err := sink.BeginSection(title); err != nil {
		return err
	}
	for _, e := range entries {
		if err := sink.WriteEntry(e[0], e[1]); err != nil {
			return err
		}
	}
	return sink.EndSection()
}

func itoa[N ~int | ~int64 | ~uint64](n N) string {
	return strconv.FormatInt(int64(n), 10)
}

// stack is one managed call stack, leaf frame first.
type stack struct {
	frames []libpf.Frame
	// ipHash covers the instruction pointers of the managed frames.
	ipHash uint64
}

// snapshotter walks thread stacks and counts the outcomes.
type snapshotter struct {
	info host.Info
	// keepClass keeps the class id of each frame so generic arguments can
	// be resolved later.
	keepClass bool

	success atomic.Uint64
	failure atomic.Uint64
}

// snapshot returns the managed frames of thread. Native frames are dropped.
func (s *snapshotter) snapshot(thread libpf.ThreadID) (stack, error) {
	sfc := successfailurecounter.New(&s.success, &s.failure,
		metrics.IDStackSnapshotSuccess, metrics.IDStackSnapshotFailure)
	defer sfc.DefaultToFailure()

	var st stack
	hasher := libpf.NewIPHasher()
	err := s.info.DoStackSnapshot(thread, func(f host.StackFrame) bool {
		if f.Function.IsNative() {
			return true
		}
		frame := f.Frame
		if !s.keepClass {
			frame.Class = 0
		}
		st.frames = append(st.frames, frame)
		hasher.Add(f.IP)
		return true
	})
	if err != nil && !errors.Is(err, host.ErrSnapshotAborted) {
		return stack{}, fmt.Errorf("stack snapshot of thread %d: %w", thread, err)
	}
	sfc.ReportSuccess()
	st.ipHash = hasher.Sum()
	return st, nil
}

// suspended runs fn with the runtime suspended.
func suspended(info host.Info, fn func()) error {
	if err := info.SuspendRuntime(); err != nil {
		return fmt.Errorf("failed to suspend runtime: %w", err)
	}
	defer func() {
		if err := info.ResumeRuntime(); err != nil {
			log.Errorf("Failed to resume runtime: %v", err)
		}
	}()
	fn()
	return nil
}
