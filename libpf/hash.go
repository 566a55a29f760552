// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libpf // import "github.com/drdotnet/agent/libpf"

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// Hash32 returns a 32 bits hash of the class id, for use as an LRU key hash.
func (id ClassID) Hash32() uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(id))
	return uint32(xxh3.Hash(buf[:]))
}

// Hash32 returns a 32 bits hash of the frame, for use as an LRU key hash.
func (f Frame) Hash32() uint32 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(f.Function))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(f.Class))
	return uint32(xxh3.Hash(buf[:]))
}

// IPHasher folds a sequence of instruction pointers into one 64 bits hash.
type IPHasher struct {
	h *xxh3.Hasher
}

// NewIPHasher returns an empty hasher.
func NewIPHasher() *IPHasher {
	return &IPHasher{h: xxh3.New()}
}

// Add feeds one instruction pointer.
func (h *IPHasher) Add(ip uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], ip)
	_, _ = h.h.Write(buf[:])
}

// Sum returns the hash of everything added so far.
func (h *IPHasher) Sum() uint64 {
	return h.h.Sum64()
}
