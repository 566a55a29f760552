// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package callback // import "github.com/drdotnet/agent/callback"

import (
	"github.com/drdotnet/agent/hresult"
	"github.com/drdotnet/agent/host"
	"github.com/drdotnet/agent/libpf"
)

// ModuleLoadFinished is a V1 callback.
func (d *Dispatcher) ModuleLoadFinished(module libpf.ModuleID, status hresult.HRESULT) hresult.HRESULT {
	h, ok := d.handler.(ModuleLoadHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("ModuleLoadFinished", func() error {
		return h.ModuleLoadFinished(module, status)
	})
}

// ClassLoadFinished is a V1 callback.
func (d *Dispatcher) ClassLoadFinished(class libpf.ClassID, status hresult.HRESULT) hresult.HRESULT {
	h, ok := d.handler.(ClassLoadHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("ClassLoadFinished", func() error {
		return h.ClassLoadFinished(class, status)
	})
}

// JITCompilationFinished is a V1 callback.
func (d *Dispatcher) JITCompilationFinished(function libpf.FunctionID,
	status hresult.HRESULT) hresult.HRESULT {
	h, ok := d.handler.(JITCompilationHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("JITCompilationFinished", func() error {
		return h.JITCompilationFinished(function, status)
	})
}

// ThreadCreated is a V1 callback.
func (d *Dispatcher) ThreadCreated(thread libpf.ThreadID) hresult.HRESULT {
	h, ok := d.handler.(ThreadHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("ThreadCreated", func() error { return h.ThreadCreated(thread) })
}

// ThreadDestroyed is a V1 callback.
func (d *Dispatcher) ThreadDestroyed(thread libpf.ThreadID) hresult.HRESULT {
	h, ok := d.handler.(ThreadHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("ThreadDestroyed", func() error { return h.ThreadDestroyed(thread) })
}

// ExceptionThrown is a V1 callback.
func (d *Dispatcher) ExceptionThrown(object libpf.ObjectID) hresult.HRESULT {
	h, ok := d.handler.(ExceptionThrownHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("ExceptionThrown", func() error { return h.ExceptionThrown(object) })
}

// ExceptionCatcherEnter is a V1 callback.
func (d *Dispatcher) ExceptionCatcherEnter(function libpf.FunctionID,
	object libpf.ObjectID) hresult.HRESULT {
	h, ok := d.handler.(ExceptionCatcherHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("ExceptionCatcherEnter", func() error {
		return h.ExceptionCatcherEnter(function, object)
	})
}

// ObjectAllocated is a V1 callback.
func (d *Dispatcher) ObjectAllocated(object libpf.ObjectID, class libpf.ClassID) hresult.HRESULT {
	h, ok := d.handler.(ObjectAllocatedHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("ObjectAllocated", func() error { return h.ObjectAllocated(object, class) })
}

// RuntimeSuspendStarted is a V1 callback.
func (d *Dispatcher) RuntimeSuspendStarted(reason host.SuspendReason) hresult.HRESULT {
	h, ok := d.handler.(RuntimeSuspendHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("RuntimeSuspendStarted", func() error { return h.RuntimeSuspendStarted(reason) })
}

// RuntimeSuspendFinished is a V1 callback.
func (d *Dispatcher) RuntimeSuspendFinished() hresult.HRESULT {
	h, ok := d.handler.(RuntimeSuspendHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("RuntimeSuspendFinished", h.RuntimeSuspendFinished)
}

// RuntimeResumeStarted is a V1 callback.
func (d *Dispatcher) RuntimeResumeStarted() hresult.HRESULT {
	h, ok := d.handler.(RuntimeSuspendHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("RuntimeResumeStarted", h.RuntimeResumeStarted)
}

// RuntimeResumeFinished is a V1 callback.
func (d *Dispatcher) RuntimeResumeFinished() hresult.HRESULT {
	h, ok := d.handler.(RuntimeSuspendHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("RuntimeResumeFinished", h.RuntimeResumeFinished)
}

// ThreadNameChanged is a V2 callback.
func (d *Dispatcher) ThreadNameChanged(thread libpf.ThreadID, name string) hresult.HRESULT {
	h, ok := d.handler.(ThreadNameHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("ThreadNameChanged", func() error { return h.ThreadNameChanged(thread, name) })
}

// GarbageCollectionStarted is a V2 callback.
func (d *Dispatcher) GarbageCollectionStarted(generations []bool, reason host.GCReason) hresult.HRESULT {
	h, ok := d.handler.(GarbageCollectionHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("GarbageCollectionStarted", func() error {
		return h.GarbageCollectionStarted(generations, reason)
	})
}

// GarbageCollectionFinished is a V2 callback.
func (d *Dispatcher) GarbageCollectionFinished() hresult.HRESULT {
	h, ok := d.handler.(GarbageCollectionHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("GarbageCollectionFinished", h.GarbageCollectionFinished)
}

// FinalizeableObjectQueued is a V2 callback.
func (d *Dispatcher) FinalizeableObjectQueued(object libpf.ObjectID) hresult.HRESULT {
	h, ok := d.handler.(FinalizerHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("FinalizeableObjectQueued", func() error {
		return h.FinalizeableObjectQueued(object)
	})
}

// SurvivingReferences2 is a V4 callback.
func (d *Dispatcher) SurvivingReferences2(ranges []ObjectRange) hresult.HRESULT {
	h, ok := d.handler.(SurvivingReferencesHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("SurvivingReferences2", func() error { return h.SurvivingReferences2(ranges) })
}

// MovedReferences2 is a V4 callback.
func (d *Dispatcher) MovedReferences2(old, moved []ObjectRange) hresult.HRESULT {
	h, ok := d.handler.(MovedReferencesHandler)
	if !ok {
		return hresult.S_OK
	}
	if len(old) != len(moved) {
		return hresult.E_INVALIDARG
	}
	return d.dispatch("MovedReferences2", func() error { return h.MovedReferences2(old, moved) })
}

// ConditionalWeakTableElementReferences is a V5 callback.
func (d *Dispatcher) ConditionalWeakTableElementReferences(keys,
	values []libpf.ObjectID) hresult.HRESULT {
	h, ok := d.handler.(WeakTableHandler)
	if !ok {
		return hresult.S_OK
	}
	if len(keys) != len(values) {
		return hresult.E_INVALIDARG
	}
	return d.dispatch("ConditionalWeakTableElementReferences", func() error {
		return h.ConditionalWeakTableElementReferences(keys, values)
	})
}

// GetAssemblyReferences is a V6 callback.
func (d *Dispatcher) GetAssemblyReferences(assemblyPath string) hresult.HRESULT {
	h, ok := d.handler.(AssemblyReferenceHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("GetAssemblyReferences", func() error {
		return h.GetAssemblyReferences(assemblyPath)
	})
}

// ModuleInMemorySymbolsUpdated is a V7 callback.
func (d *Dispatcher) ModuleInMemorySymbolsUpdated(module libpf.ModuleID) hresult.HRESULT {
	h, ok := d.handler.(InMemorySymbolsHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("ModuleInMemorySymbolsUpdated", func() error {
		return h.ModuleInMemorySymbolsUpdated(module)
	})
}

// DynamicMethodJITCompilationStarted is a V8 callback.
func (d *Dispatcher) DynamicMethodJITCompilationStarted(function libpf.FunctionID,
	safeToBlock bool) hresult.HRESULT {
	h, ok := d.handler.(DynamicMethodJITHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("DynamicMethodJITCompilationStarted", func() error {
		return h.DynamicMethodJITCompilationStarted(function, safeToBlock)
	})
}

// DynamicMethodJITCompilationFinished is a V8 callback.
func (d *Dispatcher) DynamicMethodJITCompilationFinished(function libpf.FunctionID,
	status hresult.HRESULT) hresult.HRESULT {
	h, ok := d.handler.(DynamicMethodJITHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("DynamicMethodJITCompilationFinished", func() error {
		return h.DynamicMethodJITCompilationFinished(function, status)
	})
}

// DynamicMethodUnloaded is a V9 callback.
func (d *Dispatcher) DynamicMethodUnloaded(function libpf.FunctionID) hresult.HRESULT {
	h, ok := d.handler.(DynamicMethodUnloadHandler)
	if !ok {
		return hresult.S_OK
	}
	return d.dispatch("DynamicMethodUnloaded", func() error { return h.DynamicMethodUnloaded(function) })
}
