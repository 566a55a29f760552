// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package simhost // import "github.com/drdotnet/agent/internal/simhost"

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/drdotnet/agent/binding"
	"github.com/drdotnet/agent/callback"
	"github.com/drdotnet/agent/hresult"
	"github.com/drdotnet/agent/host"
	"github.com/drdotnet/agent/iid"
	"github.com/drdotnet/agent/libpf"
)

// Runtime is one profiler attached to a Host through the binding layer.
type Runtime struct {
	host    *Host
	binding *binding.Binding
	handle  binding.Handle
	version iid.Version

	dispatcher *callback.Dispatcher

	once     sync.Once
	detached chan struct{}
	result   hresult.HRESULT
}

// Attach loads the profiler clsid into h the way the runtime does: get the
// class factory, create an instance for the newest callback version it
// supports, initialize it with clientData and acknowledge the attachment.
func Attach(b *binding.Binding, h *Host, clsid libpf.GUID, clientData []byte) (*Runtime, error) {
	rclsid := clsid.MemoryLayout()
	riid := iid.IClassFactory.MemoryLayout()
	var factory binding.Handle
	if hr := b.DllGetClassObject(&rclsid, &riid, &factory); hr.Failed() {
		return nil, fmt.Errorf("DllGetClassObject %s: %w", clsid, hr)
	}
	defer b.Release(factory)

	rt := &Runtime{host: h, binding: b, detached: make(chan struct{})}
	for v := iid.Latest; v >= iid.V1; v-- {
		id, _ := iid.Callback(v)
		riid := id.MemoryLayout()
		hr := b.CreateInstance(factory, 0, &riid, &rt.handle)
		if hr == hresult.E_NOINTERFACE {
			continue
		}
		if hr.Failed() {
			return nil, fmt.Errorf("CreateInstance %s: %w", clsid, hr)
		}
		rt.version = v
		break
	}
	if rt.handle == 0 {
		return nil, fmt.Errorf("profiler %s implements no callback version", clsid)
	}
	rt.dispatcher, _ = b.Dispatcher(rt.handle)
	log.Debugf("Attaching %s as %v", clsid, rt.version)

	h.mu.Lock()
	h.walk = rt.walk
	h.onDetach = rt.confirmDetach
	h.mu.Unlock()

	var data *byte
	if len(clientData) > 0 {
		data = &clientData[0]
	}
	if hr := b.InitializeForAttach(rt.handle, h, data, uint32(len(clientData))); hr.Failed() {
		b.Release(rt.handle)
		return nil, fmt.Errorf("InitializeForAttach: %w", hr)
	}
	if hr := rt.dispatcher.ProfilerAttachComplete(); hr.Failed() {
		log.Warnf("ProfilerAttachComplete: %v", hr)
	}
	return rt, nil
}

// walk routes snapshot frames through the binding client data handles.
func (rt *Runtime) walk(frames []host.StackFrame, receiver host.SnapshotReceiver) error {
	return rt.binding.WithSnapshotReceiver(receiver, func(clientData binding.Handle) error {
		for _, f := range frames {
			hr := rt.binding.StackSnapshotCallback(f, clientData)
			if hr == hresult.S_FALSE {
				return host.ErrSnapshotAborted
			}
			if hr.Failed() {
				return hr
			}
		}
		return nil
	})
}

// confirmDetach finishes a detach requested by the profiler.
func (rt *Runtime) confirmDetach() {
	rt.finish(rt.dispatcher.ProfilerDetachSucceeded)
}

func (rt *Runtime) finish(fn func() hresult.HRESULT) {
	rt.once.Do(func() {
		rt.result = fn()
		rt.binding.Release(rt.handle)
		close(rt.detached)
	})
}

// Version returns the callback version the profiler was created for.
func (rt *Runtime) Version() iid.Version {
	return rt.version
}

// Dispatcher returns the attached profiler for event delivery.
func (rt *Runtime) Dispatcher() *callback.Dispatcher {
	return rt.dispatcher
}

// Detached is closed once the profiler is gone.
func (rt *Runtime) Detached() <-chan struct{} {
	return rt.detached
}

// Wait blocks until the profiler detached and returns the status of its
// finalization.
func (rt *Runtime) Wait(ctx context.Context) error {
	select {
	case <-rt.detached:
		return hresult.ToError(rt.result)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown simulates the process exiting while the profiler is attached.
func (rt *Runtime) Shutdown() error {
	rt.finish(rt.dispatcher.Shutdown)
	return hresult.ToError(rt.result)
}
