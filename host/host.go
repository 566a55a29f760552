// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package host describes the services the monitored runtime offers to an
// attached profiler. The runtime itself is an external collaborator; only
// the subset of its info interface the agent relies on is modelled here.
package host // import "github.com/drdotnet/agent/host"

import (
	"errors"
	"time"

	"github.com/drdotnet/agent/libpf"
)

// ErrSnapshotAborted is returned by DoStackSnapshot when the receiver asked
// to stop the walk.
var ErrSnapshotAborted = errors.New("stack snapshot aborted by receiver")

// StackFrame is a single frame delivered during a stack snapshot, walking
// from the leaf (callee) towards the root (caller).
type StackFrame struct {
	libpf.Frame
	// IP is the instruction pointer of the frame.
	IP uint64
}

// SnapshotReceiver is invoked once per frame. Returning false stops the walk.
type SnapshotReceiver func(frame StackFrame) bool

// Info is the runtime info interface handed to a profiler on initialization.
// Implementations must be safe for concurrent use.
type Info interface {
	// SetEventMask selects the event categories the runtime delivers.
	SetEventMask(mask EventMask) error
	// RequestProfilerDetach asks the runtime to detach the profiler. The
	// runtime waits up to timeout for in-flight callbacks to drain.
	RequestProfilerDetach(timeout time.Duration) error

	// SuspendRuntime pauses all managed threads.
	SuspendRuntime() error
	// ResumeRuntime resumes threads paused by SuspendRuntime.
	ResumeRuntime() error
	// EnumThreads lists the managed threads.
	EnumThreads() ([]libpf.ThreadID, error)
	// DoStackSnapshot walks the managed stack of thread.
	DoStackSnapshot(thread libpf.ThreadID, receiver SnapshotReceiver) error

	// GetClassFromObject returns the class of a live object.
	GetClassFromObject(object libpf.ObjectID) (libpf.ClassID, error)
	// GetClassName returns the fully qualified name of class.
	GetClassName(class libpf.ClassID) (string, error)
	// GetFunctionName returns the qualified method name of frame, including
	// generic arguments when frame.Class carries them.
	GetFunctionName(frame libpf.Frame) (string, error)
}

// GCTrigger is implemented by hosts that can force a garbage collection.
type GCTrigger interface {
	// ForceGC runs a blocking collection of all generations.
	ForceGC() error
}
