// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package libpf holds the small value types shared by every layer of the
// agent: runtime identifiers handed out by the host, 128-bit interface and
// class identities, and a few generic helpers.
package libpf // import "github.com/drdotnet/agent/libpf"

import "fmt"

// Void allows to use maps as sets without memory allocation for the values.
type Void struct{}

// FunctionID identifies a jitted or loaded method inside the monitored runtime.
// The zero value is used by the host for frames without managed metadata
// (native code).
type FunctionID uint64

// ClassID identifies a loaded type inside the monitored runtime.
type ClassID uint64

// ObjectID identifies a managed object. It is only valid until the next
// garbage collection relocates or frees the object.
type ObjectID uint64

// ThreadID identifies a managed thread.
type ThreadID uint64

// ModuleID identifies a loaded module.
type ModuleID uint64

// String implements fmt.Stringer.
func (id FunctionID) String() string { return fmt.Sprintf("0x%x", uint64(id)) }

// String implements fmt.Stringer.
func (id ClassID) String() string { return fmt.Sprintf("0x%x", uint64(id)) }

// IsNative reports whether the frame has no managed metadata attached.
func (id FunctionID) IsNative() bool { return id == 0 }

// Frame is one call stack entry as delivered by a stack snapshot. Class is
// only set when generic arguments were resolved for the frame.
type Frame struct {
	Function FunctionID
	Class    ClassID
}

// Compare orders frames by function and then by class. It gives sibling
// frames in a call tree a stable tie-break.
func (f Frame) Compare(other Frame) int {
	switch {
	case f.Function < other.Function:
		return -1
	case f.Function > other.Function:
		return 1
	case f.Class < other.Class:
		return -1
	case f.Class > other.Class:
		return 1
	}
	return 0
}
