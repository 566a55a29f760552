// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package classfactory activates profilers by identity. Every activation
// builds a new handler, so sessions never share accumulation state.
package classfactory // import "github.com/drdotnet/agent/classfactory"

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/drdotnet/agent/callback"
	"github.com/drdotnet/agent/hresult"
	"github.com/drdotnet/agent/iid"
	"github.com/drdotnet/agent/libpf"
	"github.com/drdotnet/agent/libpf/xsync"
	"github.com/drdotnet/agent/metrics"
	"github.com/drdotnet/agent/refcount"
	"github.com/drdotnet/agent/session"
)

// Descriptor registers one profiler type.
type Descriptor struct {
	// Info carries the identity, display name, description and default
	// parameters of the profiler.
	Info session.ProfilerInfo
	// MaxVersion is the highest callback version the handler was written
	// against.
	MaxVersion iid.Version
	// New returns a handler with empty accumulation state.
	New func() callback.Handler
}

// Instance is an activated profiler as seen across the binding boundary.
type Instance = refcount.Object[*callback.Dispatcher]

// Registry maps profiler identities to descriptors. It is safe for
// concurrent use.
type Registry struct {
	descriptors xsync.RWMutex[[]Descriptor]
	outputs     callback.OutputFunc
}

// NewRegistry returns an empty registry. outputs opens the report output of
// every session; nil keeps reports in memory.
func NewRegistry(outputs callback.OutputFunc) *Registry {
	return &Registry{
		descriptors: xsync.NewRWMutex[[]Descriptor](nil),
		outputs:     outputs,
	}
}

// Register adds a profiler type. Identities must be unique.
func (r *Registry) Register(d Descriptor) error {
	if d.Info.ID.IsNil() {
		return errors.New("profiler identity is missing")
	}
	if d.New == nil {
		return fmt.Errorf("profiler %s: no constructor", d.Info.ID)
	}
	if d.MaxVersion < iid.V1 || d.MaxVersion > iid.Latest {
		return fmt.Errorf("profiler %s: unsupported callback version %d",
			d.Info.ID, d.MaxVersion)
	}

	descriptors := r.descriptors.WLock()
	defer r.descriptors.WUnlock(&descriptors)
	for _, existing := range *descriptors {
		if existing.Info.ID == d.Info.ID {
			return fmt.Errorf("profiler %s already registered as %q",
				d.Info.ID, existing.Info.Name)
		}
	}
	*descriptors = append(*descriptors, d)
	return nil
}

// Lookup returns the descriptor registered for id.
func (r *Registry) Lookup(id libpf.GUID) (Descriptor, bool) {
	descriptors := r.descriptors.RLock()
	defer r.descriptors.RUnlock(&descriptors)
	for _, d := range *descriptors {
		if d.Info.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// List returns the known profilers in registration order.
func (r *Registry) List() []session.ProfilerInfo {
	descriptors := r.descriptors.RLock()
	defer r.descriptors.RUnlock(&descriptors)
	return libpf.MapSlice(*descriptors, func(d Descriptor) session.ProfilerInfo {
		return d.Info
	})
}

// Create activates the profiler registered for clsid and queries the new
// instance for id. On success the caller owns one reference.
func (r *Registry) Create(clsid, id libpf.GUID) (*Instance, hresult.HRESULT) {
	d, ok := r.Lookup(clsid)
	if !ok {
		log.Debugf("CreateInstance: class %s not available", clsid)
		return nil, hresult.CLASS_E_CLASSNOTAVAILABLE
	}

	dispatcher := callback.New(d.New(), callback.Config{
		Profiler: d.Info,
		Outputs:  r.outputs,
	})
	instance := refcount.New(d.Info.Name, dispatcher, iid.CallbackSet(d.MaxVersion),
		func(d *callback.Dispatcher) {
			// A host that drops the last reference without a detach still
			// gets its reports written.
			d.Shutdown()
		})

	out, hr := instance.Query(id)
	if hr.Failed() {
		log.Debugf("CreateInstance: %s does not implement %s", d.Info.Name, iid.Name(id))
		return nil, hr
	}
	metrics.Add(metrics.IDActivations, 1)
	log.Debugf("CreateInstance: activated %s as %s", d.Info.Name, iid.Name(id))
	return out, hresult.S_OK
}
