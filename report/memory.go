// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package report // import "github.com/drdotnet/agent/report"

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// Entry is one line of a section.
type Entry struct {
	Name    string
	Content string
}

// Section is a titled, ordered list of entries.
type Section struct {
	Title   string
	Entries []Entry
}

// Memory is a Sink that keeps everything in memory.
type Memory struct {
	mu       sync.Mutex
	sections []Section
	open     bool
	closed   bool
}

var _ Writer = (*Memory)(nil)

// BeginSection implements Sink.
func (m *Memory) BeginSection(title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sections = append(m.sections, Section{Title: title})
	m.open = true
	return nil
}

// WriteEntry implements Sink.
func (m *Memory) WriteEntry(name, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return ErrNoOpenSection
	}
	last := &m.sections[len(m.sections)-1]
	last.Entries = append(last.Entries, Entry{Name: name, Content: content})
	return nil
}

// EndSection implements Sink.
func (m *Memory) EndSection() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return ErrNoOpenSection
	}
	m.open = false
	return nil
}

// Close implements io.Closer.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Sections returns a copy of what was written so far.
func (m *Memory) Sections() []Section {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Section, len(m.sections))
	for i, s := range m.sections {
		out[i] = Section{Title: s.Title, Entries: append([]Entry(nil), s.Entries...)}
	}
	return out
}

// MemoryFactory is a Factory that keeps every output in memory.
type MemoryFactory struct {
	mu      sync.Mutex
	reports map[string]*Memory
	files   map[string]*memoryFile
}

var _ Factory = (*MemoryFactory)(nil)

// NewMemoryFactory returns an empty MemoryFactory.
func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{
		reports: make(map[string]*Memory),
		files:   make(map[string]*memoryFile),
	}
}

// NewReport implements Factory.
func (f *MemoryFactory) NewReport(name string) (Writer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reports[name]; ok {
		return nil, fmt.Errorf("report %q already exists", name)
	}
	m := &Memory{}
	f.reports[name] = m
	return m, nil
}

// NewFile implements Factory.
func (f *MemoryFactory) NewFile(name string) (io.WriteCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[name]; ok {
		return nil, fmt.Errorf("file %q already exists", name)
	}
	mf := &memoryFile{}
	f.files[name] = mf
	return mf, nil
}

// Report returns the named report, or nil.
func (f *MemoryFactory) Report(name string) *Memory {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reports[name]
}

// File returns the contents of the named file and whether it exists.
func (f *MemoryFactory) File(name string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mf, ok := f.files[name]
	if !ok {
		return nil, false
	}
	return mf.buf.Bytes(), true
}

type memoryFile struct {
	buf bytes.Buffer
}

func (mf *memoryFile) Write(p []byte) (int, error) { return mf.buf.Write(p) }
func (mf *memoryFile) Close() error                { return nil }
