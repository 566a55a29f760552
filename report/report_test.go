// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package report_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drdotnet/agent/report"
)

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	md := report.NewMarkdown(&buf)

	require.ErrorIs(t, md.WriteEntry("orphan", ""), report.ErrNoOpenSection)

	require.NoError(t, md.BeginSection("Exceptions"))
	require.NoError(t, md.WriteEntry("System.InvalidOperationException", "12"))
	require.NoError(t, md.WriteEntry("  nested", "3"))
	require.NoError(t, md.WriteEntry("", "total"))
	require.NoError(t, md.EndSection())
	require.NoError(t, md.BeginSection("Second"))
	require.NoError(t, md.Close())

	assert.Equal(t, "## Exceptions\n\n"+
		"- System.InvalidOperationException: 12\n"+
		"  - nested: 3\n"+
		"- total\n"+
		"\n"+
		"## Second\n\n\n", buf.String())
}

func TestMemoryFactory(t *testing.T) {
	f := report.NewMemoryFactory()

	w, err := f.NewReport("summary.md")
	require.NoError(t, err)
	_, err = f.NewReport("summary.md")
	require.Error(t, err)

	require.NoError(t, w.BeginSection("A"))
	require.NoError(t, w.WriteEntry("b", "1"))
	require.NoError(t, w.WriteEntry("a", "2"))
	require.NoError(t, w.EndSection())
	require.NoError(t, w.Close())

	mem := f.Report("summary.md")
	require.NotNil(t, mem)
	assert.True(t, mem.Closed())
	assert.Equal(t, []report.Section{{
		Title:   "A",
		Entries: []report.Entry{{Name: "b", Content: "1"}, {Name: "a", Content: "2"}},
	}}, mem.Sections())

	file, err := f.NewFile("raw.bin")
	require.NoError(t, err)
	_, err = file.Write([]byte{1, 2})
	require.NoError(t, err)
	data, ok := f.File("raw.bin")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2}, data)
}
