// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package simhost is a deterministic in-memory stand-in for the managed
// runtime. It implements host.Info and drives profilers through the
// binding layer the same way the runtime would.
package simhost // import "github.com/drdotnet/agent/internal/simhost"

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/drdotnet/agent/host"
	"github.com/drdotnet/agent/libpf"
)

// ErrUnknown is returned for ids the host does not know about.
var ErrUnknown = errors.New("unknown id")

// Host implements host.Info over a fixed set of threads, classes and
// functions. It is safe for concurrent use.
type Host struct {
	mu sync.Mutex

	mask      host.EventMask
	suspended bool
	suspends  int
	forcedGCs int

	threadOrder []libpf.ThreadID
	stacks      map[libpf.ThreadID][]host.StackFrame

	classes   map[libpf.ClassID]string
	functions map[libpf.FunctionID]string
	generics  map[libpf.Frame]string
	objects   map[libpf.ObjectID]libpf.ClassID

	failures map[string]error

	detachTimeouts []time.Duration
	onDetach       func()

	// walk delivers the frames of one snapshot. Nil calls the receiver
	// directly.
	walk func(frames []host.StackFrame, receiver host.SnapshotReceiver) error
}

var (
	_ host.Info      = (*Host)(nil)
	_ host.GCTrigger = (*Host)(nil)
)

// New returns an empty host.
func New() *Host {
	return &Host{
		stacks:    make(map[libpf.ThreadID][]host.StackFrame),
		classes:   make(map[libpf.ClassID]string),
		functions: make(map[libpf.FunctionID]string),
		generics:  make(map[libpf.Frame]string),
		objects:   make(map[libpf.ObjectID]libpf.ClassID),
		failures:  make(map[string]error),
	}
}

// AddClass registers a class name.
func (h *Host) AddClass(id libpf.ClassID, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.classes[id] = name
}

// AddFunction registers a method name.
func (h *Host) AddFunction(id libpf.FunctionID, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.functions[id] = name
}

// AddGenericFunction registers the name of a method instantiated over the
// generic arguments carried by frame.Class.
func (h *Host) AddGenericFunction(frame libpf.Frame, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.generics[frame] = name
}

// AddObject registers a live object of class.
func (h *Host) AddObject(id libpf.ObjectID, class libpf.ClassID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.objects[id] = class
}

// SetThread sets the managed stack of thread, leaf frame first. A thread
// not seen before is appended to the enumeration order.
func (h *Host) SetThread(thread libpf.ThreadID, frames ...host.StackFrame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.stacks[thread]; !ok {
		h.threadOrder = append(h.threadOrder, thread)
	}
	h.stacks[thread] = slices.Clone(frames)
}

// RemoveThread drops thread.
func (h *Host) RemoveThread(thread libpf.ThreadID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.stacks, thread)
	h.threadOrder = slices.DeleteFunc(h.threadOrder, func(t libpf.ThreadID) bool {
		return t == thread
	})
}

// Fail makes every later call of the named host.Info method return err.
// A nil err clears the failure.
func (h *Host) Fail(method string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.failures, method)
		return
	}
	h.failures[method] = err
}

// OnDetach sets the function run asynchronously after a detach request,
// standing in for the runtime draining callbacks and confirming the detach.
func (h *Host) OnDetach(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDetach = fn
}

// EventMask returns the last mask set by the profiler.
func (h *Host) EventMask() host.EventMask {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mask
}

// Suspended reports whether the runtime is currently suspended.
func (h *Host) Suspended() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.suspended
}

// Suspends returns the number of completed SuspendRuntime calls.
func (h *Host) Suspends() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.suspends
}

// ForcedGCs returns the number of ForceGC calls.
func (h *Host) ForcedGCs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.forcedGCs
}

// DetachRequests returns the timeouts of all detach requests so far.
func (h *Host) DetachRequests() []time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.detachTimeouts)
}

// failure must be called with mu held.
func (h *Host) failure(method string) error {
	if err, ok := h.failures[method]; ok {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// SetEventMask implements host.Info.
func (h *Host) SetEventMask(mask host.EventMask) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failure("SetEventMask"); err != nil {
		return err
	}
	h.mask = mask
	return nil
}

// RequestProfilerDetach implements host.Info.
func (h *Host) RequestProfilerDetach(timeout time.Duration) error {
	h.mu.Lock()
	if err := h.failure("RequestProfilerDetach"); err != nil {
		h.mu.Unlock()
		return err
	}
	h.detachTimeouts = append(h.detachTimeouts, timeout)
	fn := h.onDetach
	h.mu.Unlock()

	if fn != nil {
		go fn()
	}
	return nil
}

// ForceGC implements host.GCTrigger. Collections are only counted; the
// workload emits the matching events.
func (h *Host) ForceGC() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failure("ForceGC"); err != nil {
		return err
	}
	h.forcedGCs++
	return nil
}

// SuspendRuntime implements host.Info.
func (h *Host) SuspendRuntime() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failure("SuspendRuntime"); err != nil {
		return err
	}
	if h.suspended {
		return errors.New("runtime already suspended")
	}
	h.suspended = true
	h.suspends++
	return nil
}

// ResumeRuntime implements host.Info.
func (h *Host) ResumeRuntime() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.suspended {
		return errors.New("runtime not suspended")
	}
	h.suspended = false
	return nil
}

// EnumThreads implements host.Info.
func (h *Host) EnumThreads() ([]libpf.ThreadID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failure("EnumThreads"); err != nil {
		return nil, err
	}
	return slices.Clone(h.threadOrder), nil
}

// DoStackSnapshot implements host.Info. Stack snapshots must have been
// enabled through the event mask.
func (h *Host) DoStackSnapshot(thread libpf.ThreadID, receiver host.SnapshotReceiver) error {
	h.mu.Lock()
	if err := h.failure("DoStackSnapshot"); err != nil {
		h.mu.Unlock()
		return err
	}
	if !h.mask.Has(host.EnableStackSnapshot) {
		h.mu.Unlock()
		return errors.New("stack snapshots not enabled")
	}
	frames, ok := h.stacks[thread]
	walk := h.walk
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("thread %d: %w", thread, ErrUnknown)
	}
	if walk != nil {
		return walk(frames, receiver)
	}

	for _, f := range frames {
		if !receiver(f) {
			return host.ErrSnapshotAborted
		}
	}
	return nil
}

// GetClassFromObject implements host.Info.
func (h *Host) GetClassFromObject(object libpf.ObjectID) (libpf.ClassID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failure("GetClassFromObject"); err != nil {
		return 0, err
	}
	class, ok := h.objects[object]
	if !ok {
		return 0, fmt.Errorf("object %#x: %w", object, ErrUnknown)
	}
	return class, nil
}

// GetClassName implements host.Info.
func (h *Host) GetClassName(class libpf.ClassID) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failure("GetClassName"); err != nil {
		return "", err
	}
	name, ok := h.classes[class]
	if !ok {
		return "", fmt.Errorf("class %v: %w", class, ErrUnknown)
	}
	return name, nil
}

// GetFunctionName implements host.Info.
func (h *Host) GetFunctionName(frame libpf.Frame) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failure("GetFunctionName"); err != nil {
		return "", err
	}
	if frame.Function.IsNative() {
		return "", errors.New("native frame has no metadata")
	}
	if frame.Class != 0 {
		if name, ok := h.generics[frame]; ok {
			return name, nil
		}
	}
	name, ok := h.functions[frame.Function]
	if !ok {
		return "", fmt.Errorf("function %v: %w", frame.Function, ErrUnknown)
	}
	return name, nil
}
