// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package report // import "github.com/drdotnet/agent/report"

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Markdown renders sections as headings and entries as list items. Leading
// spaces of an entry name become the nesting of the list item, which lets
// tree renderers emit indented lists.
type Markdown struct {
	w      *bufio.Writer
	closer io.Closer
	open   bool
}

var _ Writer = (*Markdown)(nil)

// NewMarkdown writes to w. If w is an io.Closer it is closed by Close.
func NewMarkdown(w io.Writer) *Markdown {
	md := &Markdown{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		md.closer = c
	}
	return md
}

// BeginSection implements Sink.
func (md *Markdown) BeginSection(title string) error {
	if md.open {
		if err := md.EndSection(); err != nil {
			return err
		}
	}
	md.open = true
	_, err := md.w.WriteString("## " + title + "\n\n")
	return err
}

// WriteEntry implements Sink.
func (md *Markdown) WriteEntry(name, content string) error {
	if !md.open {
		return ErrNoOpenSection
	}
	trimmed := strings.TrimLeft(name, " ")
	indent := name[:len(name)-len(trimmed)]

	var sb strings.Builder
	sb.WriteString(indent)
	sb.WriteString("- ")
	sb.WriteString(trimmed)
	if content != "" {
		if trimmed != "" {
			sb.WriteString(": ")
		}
		sb.WriteString(content)
	}
	sb.WriteByte('\n')
	_, err := md.w.WriteString(sb.String())
	return err
}

// EndSection implements Sink.
func (md *Markdown) EndSection() error {
	if !md.open {
		return ErrNoOpenSection
	}
	md.open = false
	_, err := md.w.WriteString("\n")
	return err
}

// Close flushes buffered output and closes the underlying writer.
func (md *Markdown) Close() error {
	var errs []error
	if md.open {
		errs = append(errs, md.EndSection())
	}
	errs = append(errs, md.w.Flush())
	if md.closer != nil {
		errs = append(errs, md.closer.Close())
	}
	return errors.Join(errs...)
}
