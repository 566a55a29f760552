// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package calltree // import "github.com/drdotnet/agent/calltree"

import (
	"strconv"
	"strings"

	"github.com/drdotnet/agent/libpf"
)

// Sum is the CombineFunc for numeric counters.
func Sum[N ~int | ~int32 | ~int64 | ~uint32 | ~uint64](a, b N) N {
	return a + b
}

// CountWeight is the weight function for int64 counters.
func CountWeight(v int64) int64 {
	return v
}

// Threads is a multiset of thread ids kept in ascending order.
type Threads []libpf.ThreadID

// MergeThreads is the CombineFunc for Threads. The result is a new slice.
func MergeThreads(a, b Threads) Threads {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make(Threads, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// ThreadsWeight is the weight function for Threads.
func ThreadsWeight(v Threads) int64 {
	return int64(len(v))
}

// Format prints at most limit ids followed by "..." when there are more.
func (ts Threads) Format(limit int) string {
	var sb strings.Builder
	for i, id := range ts {
		if limit > 0 && i == limit {
			sb.WriteString(", ...")
			break
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	return sb.String()
}
