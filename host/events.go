// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package host // import "github.com/drdotnet/agent/host"

import (
	"fmt"
	"strings"
)

// EventMask selects the event categories a profiler subscribes to.
type EventMask uint32

const (
	MonitorNone           EventMask = 0x0
	MonitorClassLoads     EventMask = 0x2
	MonitorModuleLoads    EventMask = 0x4
	MonitorJITCompilation EventMask = 0x20
	MonitorExceptions     EventMask = 0x40
	MonitorGC             EventMask = 0x80
	MonitorObjectAlloc    EventMask = 0x100
	MonitorThreads        EventMask = 0x200
	MonitorSuspends       EventMask = 0x10000
	EnableObjectAllocated EventMask = 0x800000
	EnableStackSnapshot   EventMask = 0x10000000
)

var maskNames = []struct {
	mask EventMask
	name string
}{
	{MonitorClassLoads, "CLASS_LOADS"},
	{MonitorModuleLoads, "MODULE_LOADS"},
	{MonitorJITCompilation, "JIT_COMPILATION"},
	{MonitorExceptions, "EXCEPTIONS"},
	{MonitorGC, "GC"},
	{MonitorObjectAlloc, "OBJECT_ALLOCATED"},
	{MonitorThreads, "THREADS"},
	{MonitorSuspends, "SUSPENDS"},
	{EnableObjectAllocated, "ENABLE_OBJECT_ALLOCATED"},
	{EnableStackSnapshot, "ENABLE_STACK_SNAPSHOT"},
}

// Has reports whether every bit of other is set in m.
func (m EventMask) Has(other EventMask) bool {
	return m&other == other
}

// String implements fmt.Stringer.
func (m EventMask) String() string {
	if m == MonitorNone {
		return "NONE"
	}
	var parts []string
	rest := m
	for _, n := range maskNames {
		if m.Has(n.mask) {
			parts = append(parts, n.name)
			rest &^= n.mask
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// SuspendReason tells why the runtime is being suspended.
type SuspendReason uint32

const (
	SuspendOther                SuspendReason = 0
	SuspendForGC                SuspendReason = 1
	SuspendForAppDomainShutdown SuspendReason = 2
	SuspendForCodePitching      SuspendReason = 3
	SuspendForShutdown          SuspendReason = 4
	SuspendForInprocDebugger    SuspendReason = 6
	SuspendForGCPrep            SuspendReason = 7
	SuspendForReJIT             SuspendReason = 8
	SuspendForProfiler          SuspendReason = 9
)

// String implements fmt.Stringer.
func (r SuspendReason) String() string {
	switch r {
	case SuspendOther:
		return "Other"
	case SuspendForGC:
		return "GC"
	case SuspendForAppDomainShutdown:
		return "AppDomainShutdown"
	case SuspendForCodePitching:
		return "CodePitching"
	case SuspendForShutdown:
		return "Shutdown"
	case SuspendForInprocDebugger:
		return "InprocDebugger"
	case SuspendForGCPrep:
		return "GCPrep"
	case SuspendForReJIT:
		return "ReJIT"
	case SuspendForProfiler:
		return "Profiler"
	}
	return fmt.Sprintf("SuspendReason(%d)", uint32(r))
}

// GCReason tells why a collection was started.
type GCReason uint32

const (
	GCOther   GCReason = 0
	GCInduced GCReason = 1
)

// String implements fmt.Stringer.
func (r GCReason) String() string {
	if r == GCInduced {
		return "Induced"
	}
	return "Other"
}
