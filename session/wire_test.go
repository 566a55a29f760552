// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/drdotnet/agent/libpf"
	"github.com/drdotnet/agent/session"
)

func sampleInfo() *session.Info {
	return &session.Info{
		ID:          libpf.MustParseGUID("6F2B7A5E-0C51-4B9A-9C55-0D3F8E2F6A11"),
		ProcessName: "Demo.Api",
		Profiler: session.ProfilerInfo{
			ID:          libpf.MustParseGUID("805A308B-061C-47F3-9B30-A485B2056E71"),
			Name:        "CPU Hotpath Profiler",
			Description: "samples stacks",
			Parameters: []session.Parameter{
				session.IntParameter("Duration", "duration_seconds", 30, "seconds"),
				session.BoolParameter("Filter", "filter_suspended_threads", true, "skip idle"),
				{Name: "Broken", Key: "broken", Type: session.Integer, Value: "abc"},
			},
		},
	}
}

func TestParseRoundTrip(t *testing.T) {
	info := sampleInfo()
	buf, err := session.Marshal(info)
	require.NoError(t, err)

	parsed, err := session.Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, info, parsed)
}

func TestParseErrors(t *testing.T) {
	valid, err := session.Marshal(sampleInfo())
	require.NoError(t, err)

	badUUID := protowire.AppendTag(nil, 1, protowire.BytesType)
	badUUID = protowire.AppendString(badUUID, "not-a-uuid")

	noUUID := protowire.AppendTag(nil, 2, protowire.BytesType)
	noUUID = protowire.AppendString(noUUID, "proc")

	tests := map[string]struct {
		buf []byte
	}{
		"nil":       {buf: nil},
		"empty":     {buf: []byte{}},
		"truncated": {buf: valid[:len(valid)-3]},
		"bad tag":   {buf: []byte{0xff, 0xff, 0xff}},
		"bad uuid":  {buf: badUUID},
		"no uuid":   {buf: noUUID},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			info, err := session.Parse(tc.buf)
			require.Error(t, err)
			assert.Nil(t, info)
		})
	}
}

func TestParseSkipsUnknownFields(t *testing.T) {
	buf, err := session.Marshal(sampleInfo())
	require.NoError(t, err)
	buf = protowire.AppendTag(buf, 42, protowire.VarintType)
	buf = protowire.AppendVarint(buf, 7)
	buf = protowire.AppendTag(buf, 43, protowire.BytesType)
	buf = protowire.AppendString(buf, "future")

	info, err := session.Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, "Demo.Api", info.ProcessName)
}

func TestTypedAccessors(t *testing.T) {
	info := sampleInfo()

	assert.Equal(t, int64(30), info.Int("duration_seconds", 5))
	assert.Equal(t, int64(5), info.Int("missing", 5))
	assert.Equal(t, int64(9), info.Int("broken", 9))
	assert.True(t, info.Bool("filter_suspended_threads", false))
	assert.True(t, info.Bool("missing", true))
	assert.False(t, info.Bool("broken", false))
	assert.Equal(t, 30*time.Second, info.Duration("duration_seconds", time.Second, time.Minute))
	assert.Equal(t, 20*time.Millisecond,
		info.Duration("time_interval_ms", time.Millisecond, 20*time.Millisecond))
}

func TestWithDefaults(t *testing.T) {
	info := &session.Info{
		ID: libpf.NewRandomGUID(),
		Profiler: session.ProfilerInfo{Parameters: []session.Parameter{
			{Key: "max_stacks", Type: session.Integer, Value: "5"},
			{Key: "extra", Type: session.String, Value: "x"},
		}},
	}
	merged := info.WithDefaults([]session.Parameter{
		session.IntParameter("Duration", "duration_seconds", 30, ""),
		session.IntParameter("Max stacks", "max_stacks", 20, ""),
	})

	require.Len(t, merged.Profiler.Parameters, 3)
	assert.Equal(t, int64(30), merged.Int("duration_seconds", 0))
	assert.Equal(t, int64(5), merged.Int("max_stacks", 0))
	assert.Equal(t, "Max stacks", merged.Profiler.Parameters[1].Name)
	assert.Equal(t, "extra", merged.Profiler.Parameters[2].Key)
	// The original is left untouched.
	assert.Len(t, info.Profiler.Parameters, 2)
}
