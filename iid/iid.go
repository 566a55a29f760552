// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package iid is the process wide, read-only registry of interface
// identities understood by the binding layer: the two base object
// interfaces and the additive profiler callback chain V1 to V9.
package iid // import "github.com/drdotnet/agent/iid"

import (
	"fmt"

	"github.com/drdotnet/agent/libpf"
)

// Version is a position in the profiler callback chain. Version k includes
// every capability of version k-1.
type Version uint8

const (
	// None marks identities that are not part of the callback chain.
	None Version = iota
	V1
	V2
	V3
	V4
	V5
	V6
	V7
	V8
	V9

	// Latest is the highest version known to the registry.
	Latest = V9
)

// String implements fmt.Stringer.
func (v Version) String() string {
	switch v {
	case None:
		return "none"
	case V1:
		return "ICorProfilerCallback"
	}
	return fmt.Sprintf("ICorProfilerCallback%d", v)
}

// Well known interface identities.
var (
	IUnknown      = libpf.MustParseGUID("00000000-0000-0000-C000-000000000046")
	IClassFactory = libpf.MustParseGUID("00000001-0000-0000-C000-000000000046")
)

// chain is indexed by Version.
var chain = [...]libpf.GUID{
	V1: libpf.MustParseGUID("176FBED1-A55C-4796-98CA-A9DA0EF883E7"),
	V2: libpf.MustParseGUID("8A8CC829-CCF2-49FE-BBAE-0F022228071A"),
	V3: libpf.MustParseGUID("4FD2ED52-7731-4B8D-9469-03D2CC3086C5"),
	V4: libpf.MustParseGUID("7B63B2E3-107D-4D48-B2F6-F61E229470D2"),
	V5: libpf.MustParseGUID("8DFBA405-8C9F-45F8-BFFA-83B14CEF78B5"),
	V6: libpf.MustParseGUID("FC13DF4B-4448-4F4F-950C-BA8D19D00C36"),
	V7: libpf.MustParseGUID("F76A2DBA-1D52-4539-866C-2AA518F9EFC3"),
	V8: libpf.MustParseGUID("5BED9B15-C079-4D47-BFE2-215A140C07E0"),
	V9: libpf.MustParseGUID("27583EC3-C8F5-482F-8052-194B8CE4705A"),
}

var byGUID = func() map[libpf.GUID]Version {
	m := make(map[libpf.GUID]Version, len(chain))
	for v := V1; v <= Latest; v++ {
		m[chain[v]] = v
	}
	return m
}()

// Callback returns the identity of the given chain version.
func Callback(v Version) (libpf.GUID, bool) {
	if v < V1 || v > Latest {
		return libpf.NilGUID, false
	}
	return chain[v], true
}

// Lookup returns the chain version of id, or None with false when id is not
// a callback identity.
func Lookup(id libpf.GUID) (Version, bool) {
	v, ok := byGUID[id]
	return v, ok
}

// Name returns a display name for logging.
func Name(id libpf.GUID) string {
	switch id {
	case IUnknown:
		return "IUnknown"
	case IClassFactory:
		return "IClassFactory"
	}
	if v, ok := Lookup(id); ok {
		return v.String()
	}
	return id.String()
}

// Set is the set of identities an object answers to in QueryInterface.
type Set interface {
	Contains(id libpf.GUID) bool
}

// SetFunc adapts a plain function to Set.
type SetFunc func(id libpf.GUID) bool

// Contains implements Set.
func (f SetFunc) Contains(id libpf.GUID) bool { return f(id) }

// ClassFactorySet is the identity set of a class factory object.
var ClassFactorySet Set = SetFunc(func(id libpf.GUID) bool {
	return id == IUnknown || id == IClassFactory
})

// CallbackSet returns the identity set of a profiler object whose handler
// was built against chain version max. It contains IUnknown and every chain
// version up to and including max, since each version extends the previous.
func CallbackSet(maxVersion Version) Set {
	return SetFunc(func(id libpf.GUID) bool {
		if id == IUnknown {
			return true
		}
		v, ok := Lookup(id)
		return ok && v <= maxVersion
	})
}
