// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package report defines where finalized aggregates go. Profilers write
// sections of named entries to a Sink; the session decides how and where a
// sink is persisted.
package report // import "github.com/drdotnet/agent/report"

import (
	"errors"
	"io"
)

// ErrNoOpenSection is returned when entries are written outside a section.
var ErrNoOpenSection = errors.New("no open report section")

// Sink consumes finalized aggregates. Entries within a section keep the
// order in which they were written.
type Sink interface {
	// BeginSection opens a section. Sections do not nest.
	BeginSection(title string) error
	// WriteEntry appends an entry to the open section.
	WriteEntry(name, content string) error
	// EndSection closes the open section.
	EndSection() error
}

// Writer is a Sink backed by a resource that must be closed.
type Writer interface {
	Sink
	io.Closer
}

// Factory creates the outputs of one session. Names are file names relative
// to the session, such as "summary.md".
type Factory interface {
	// NewReport creates a text report.
	NewReport(name string) (Writer, error)
	// NewFile creates a raw binary output.
	NewFile(name string) (io.WriteCloser, error)
}
