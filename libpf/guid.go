// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package libpf // import "github.com/drdotnet/agent/libpf"

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GUID is a 128-bit interface or class identity. It is stored in the
// canonical text order; FromMemoryLayout and MemoryLayout convert to and from
// the mixed-endian layout the host uses when passing a GUID by reference.
type GUID uuid.UUID

// NilGUID is the all-zero identity.
var NilGUID GUID

// ParseGUID parses the textual form, with or without surrounding braces.
func ParseGUID(s string) (GUID, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
	u, err := uuid.Parse(s)
	if err != nil {
		return NilGUID, fmt.Errorf("invalid GUID %q: %w", s, err)
	}
	return GUID(u), nil
}

// MustParseGUID is like ParseGUID but panics on malformed input. It is meant
// for package level identity tables.
func MustParseGUID(s string) GUID {
	g, err := ParseGUID(s)
	if err != nil {
		panic(err)
	}
	return g
}

// NewRandomGUID returns a fresh random (version 4) identity.
func NewRandomGUID() GUID {
	return GUID(uuid.New())
}

// String returns the upper case textual form without braces.
func (g GUID) String() string {
	return strings.ToUpper(uuid.UUID(g).String())
}

// IsNil reports whether g is the all-zero identity.
func (g GUID) IsNil() bool {
	return g == NilGUID
}

// MarshalText implements encoding.TextMarshaler.
func (g GUID) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *GUID) UnmarshalText(text []byte) error {
	parsed, err := ParseGUID(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// FromMemoryLayout converts the in-memory layout {u32 LE, u16 LE, u16 LE,
// [8]byte} into a GUID.
func FromMemoryLayout(raw [16]byte) GUID {
	var g GUID
	binary.BigEndian.PutUint32(g[0:4], binary.LittleEndian.Uint32(raw[0:4]))
	binary.BigEndian.PutUint16(g[4:6], binary.LittleEndian.Uint16(raw[4:6]))
	binary.BigEndian.PutUint16(g[6:8], binary.LittleEndian.Uint16(raw[6:8]))
	copy(g[8:], raw[8:])
	return g
}

// MemoryLayout is the inverse of FromMemoryLayout.
func (g GUID) MemoryLayout() [16]byte {
	var raw [16]byte
	binary.LittleEndian.PutUint32(raw[0:4], binary.BigEndian.Uint32(g[0:4]))
	binary.LittleEndian.PutUint16(raw[4:6], binary.BigEndian.Uint16(g[4:6]))
	binary.LittleEndian.PutUint16(raw[6:8], binary.BigEndian.Uint16(g[6:8]))
	copy(raw[8:], g[8:])
	return raw
}
