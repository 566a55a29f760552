// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package callback // import "github.com/drdotnet/agent/callback"

import (
	"github.com/drdotnet/agent/hresult"
	"github.com/drdotnet/agent/host"
	"github.com/drdotnet/agent/libpf"
)

// The interfaces below are optional capabilities. A handler implements only
// the ones it cares about; the Dispatcher answers every other event with
// success and no effect.

// AttachCompleter is notified once the host acknowledged the attachment.
type AttachCompleter interface {
	AttachComplete() error
}

// DetachRequester is notified when the host announces an upcoming detach.
type DetachRequester interface {
	DetachRequested() error
}

// Shutdowner is notified when the monitored process exits.
type Shutdowner interface {
	Shutdown() error
}

// V1 capabilities.

// ModuleLoadHandler receives module load events.
type ModuleLoadHandler interface {
	ModuleLoadFinished(module libpf.ModuleID, status hresult.HRESULT) error
}

// ClassLoadHandler receives class load events.
type ClassLoadHandler interface {
	ClassLoadFinished(class libpf.ClassID, status hresult.HRESULT) error
}

// JITCompilationHandler receives JIT compilation events.
type JITCompilationHandler interface {
	JITCompilationFinished(function libpf.FunctionID, status hresult.HRESULT) error
}

// ThreadHandler receives managed thread lifetime events.
type ThreadHandler interface {
	ThreadCreated(thread libpf.ThreadID) error
	ThreadDestroyed(thread libpf.ThreadID) error
}

// ExceptionThrownHandler receives thrown exceptions.
type ExceptionThrownHandler interface {
	ExceptionThrown(object libpf.ObjectID) error
}

// ExceptionCatcherHandler receives the entry into a catch block.
type ExceptionCatcherHandler interface {
	ExceptionCatcherEnter(function libpf.FunctionID, object libpf.ObjectID) error
}

// ObjectAllocatedHandler receives allocations.
type ObjectAllocatedHandler interface {
	ObjectAllocated(object libpf.ObjectID, class libpf.ClassID) error
}

// RuntimeSuspendHandler receives runtime suspension events. For one
// suspension the host delivers them in the order SuspendStarted,
// SuspendFinished, ResumeStarted, ResumeFinished.
type RuntimeSuspendHandler interface {
	RuntimeSuspendStarted(reason host.SuspendReason) error
	RuntimeSuspendFinished() error
	RuntimeResumeStarted() error
	RuntimeResumeFinished() error
}

// V2 capabilities.

// ThreadNameHandler receives thread renames.
type ThreadNameHandler interface {
	ThreadNameChanged(thread libpf.ThreadID, name string) error
}

// GarbageCollectionHandler receives collection boundaries. A start always
// precedes the matching finish.
type GarbageCollectionHandler interface {
	GarbageCollectionStarted(generations []bool, reason host.GCReason) error
	GarbageCollectionFinished() error
}

// FinalizerHandler receives objects queued for finalization.
type FinalizerHandler interface {
	FinalizeableObjectQueued(object libpf.ObjectID) error
}

// ObjectRange is a block of surviving or moved objects.
type ObjectRange struct {
	Start  libpf.ObjectID
	Length uint64
}

// V4 capabilities.

// SurvivingReferencesHandler receives the objects that survived a
// non-compacting collection.
type SurvivingReferencesHandler interface {
	SurvivingReferences2(ranges []ObjectRange) error
}

// MovedReferencesHandler receives the objects moved by a compacting
// collection.
type MovedReferencesHandler interface {
	MovedReferences2(old, moved []ObjectRange) error
}

// V5 capabilities.

// WeakTableHandler receives conditional weak table dependencies.
type WeakTableHandler interface {
	ConditionalWeakTableElementReferences(keys, values []libpf.ObjectID) error
}

// V6 capabilities.

// AssemblyReferenceHandler is asked for additional assembly references.
type AssemblyReferenceHandler interface {
	GetAssemblyReferences(assemblyPath string) error
}

// V7 capabilities.

// InMemorySymbolsHandler receives in-memory symbol updates.
type InMemorySymbolsHandler interface {
	ModuleInMemorySymbolsUpdated(module libpf.ModuleID) error
}

// V8 capabilities.

// DynamicMethodJITHandler receives JIT events of dynamic methods.
type DynamicMethodJITHandler interface {
	DynamicMethodJITCompilationStarted(function libpf.FunctionID, safeToBlock bool) error
	DynamicMethodJITCompilationFinished(function libpf.FunctionID, status hresult.HRESULT) error
}

// V9 capabilities.

// DynamicMethodUnloadHandler receives dynamic method unloads.
type DynamicMethodUnloadHandler interface {
	DynamicMethodUnloaded(function libpf.FunctionID) error
}
