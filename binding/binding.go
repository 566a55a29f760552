// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package binding is the only place where the host's view of the agent,
// opaque handles, raw identity buffers and client data pointers, meets the
// typed Go objects behind them. Everything past this package works on
// libpf.GUID, refcount.Object and callback.Dispatcher values.
package binding // import "github.com/drdotnet/agent/binding"

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	log "github.com/sirupsen/logrus"

	"github.com/drdotnet/agent/callback"
	"github.com/drdotnet/agent/classfactory"
	"github.com/drdotnet/agent/hresult"
	"github.com/drdotnet/agent/host"
	"github.com/drdotnet/agent/iid"
	"github.com/drdotnet/agent/libpf"
	"github.com/drdotnet/agent/libpf/xsync"
	"github.com/drdotnet/agent/refcount"
)

// Handle stands in for an interface pointer. Zero is the null handle.
type Handle uintptr

// RawGUID is an identity in the runtime's in-memory layout.
type RawGUID = [16]byte

// factory is the class object returned by DllGetClassObject.
type factory = refcount.Object[libpf.GUID]

// entry holds exactly one of its fields.
type entry struct {
	factory  *factory
	instance *classfactory.Instance
}

func (e entry) name() string {
	if e.factory != nil {
		return e.factory.Name()
	}
	return e.instance.Name()
}

func (e entry) acquire() uint32 {
	if e.factory != nil {
		return e.factory.Acquire()
	}
	return e.instance.Acquire()
}

func (e entry) release() uint32 {
	if e.factory != nil {
		return e.factory.Release()
	}
	return e.instance.Release()
}

func (e entry) query(id libpf.GUID) hresult.HRESULT {
	if e.factory != nil {
		_, hr := e.factory.Query(id)
		return hr
	}
	_, hr := e.instance.Query(id)
	return hr
}

// handleTable holds the referenced objects and the handles of objects whose
// last reference was dropped.
type handleTable struct {
	live     map[Handle]entry
	released map[Handle]struct{}
}

// Binding owns the handle table of one loaded agent.
type Binding struct {
	registry *classfactory.Registry

	lastHandle atomic.Uint64
	serverLock atomic.Int64

	objects   xsync.RWMutex[handleTable]
	receivers xsync.RWMutex[map[Handle]host.SnapshotReceiver]
}

// New returns a binding activating profilers from registry.
func New(registry *classfactory.Registry) *Binding {
	table := handleTable{
		live:     map[Handle]entry{},
		released: map[Handle]struct{}{},
	}
	return &Binding{
		registry:  registry,
		objects:   xsync.NewRWMutex(table),
		receivers: xsync.NewRWMutex(map[Handle]host.SnapshotReceiver{}),
	}
}

func (b *Binding) newHandle() Handle {
	return Handle(b.lastHandle.Add(1))
}

func (b *Binding) insert(e entry) Handle {
	h := b.newHandle()
	objects := b.objects.WLock()
	defer b.objects.WUnlock(&objects)
	objects.live[h] = e
	return h
}

// lookup resolves h. Using a released object handle is a fatal violation.
// Any other unknown handle, snapshot client data included, is E_POINTER.
func (b *Binding) lookup(op string, h Handle) (entry, hresult.HRESULT) {
	if h == 0 {
		return entry{}, hresult.E_POINTER
	}
	objects := b.objects.RLock()
	e, ok := objects.live[h]
	_, released := objects.released[h]
	b.objects.RUnlock(&objects)
	if ok {
		return e, hresult.S_OK
	}
	if released {
		panic(&refcount.ViolationError{Op: op, Object: fmt.Sprintf("handle %#x", uintptr(h))})
	}
	return entry{}, hresult.E_POINTER
}

func guidArg(raw *RawGUID) (libpf.GUID, hresult.HRESULT) {
	if raw == nil {
		return libpf.NilGUID, hresult.E_POINTER
	}
	return libpf.FromMemoryLayout(*raw), hresult.S_OK
}

// DllGetClassObject returns a class factory for the profiler clsid. The
// factory answers to IUnknown and IClassFactory.
func (b *Binding) DllGetClassObject(rclsid, riid *RawGUID, ppv *Handle) hresult.HRESULT {
	if ppv == nil {
		return hresult.E_POINTER
	}
	*ppv = 0
	clsid, hr := guidArg(rclsid)
	if hr.Failed() {
		return hr
	}
	id, hr := guidArg(riid)
	if hr.Failed() {
		return hr
	}

	d, ok := b.registry.Lookup(clsid)
	if !ok {
		log.Debugf("DllGetClassObject: class %s not available", clsid)
		return hresult.CLASS_E_CLASSNOTAVAILABLE
	}
	f := refcount.New(d.Info.Name+" factory", clsid, iid.ClassFactorySet, nil)
	if _, hr := f.Query(id); hr.Failed() {
		log.Debugf("DllGetClassObject: factory does not implement %s", iid.Name(id))
		return hr
	}
	*ppv = b.insert(entry{factory: f})
	log.Debugf("DllGetClassObject: %s factory as handle %#x", d.Info.Name, uintptr(*ppv))
	return hresult.S_OK
}

// CreateInstance activates a fresh profiler through the factory handle.
// Aggregation is not supported.
func (b *Binding) CreateInstance(factoryHandle, outer Handle, riid *RawGUID,
	ppv *Handle) hresult.HRESULT {
	if ppv == nil {
		return hresult.E_POINTER
	}
	*ppv = 0
	e, hr := b.lookup("CreateInstance", factoryHandle)
	if hr.Failed() {
		return hr
	}
	if e.factory == nil {
		return hresult.E_NOINTERFACE
	}
	if outer != 0 {
		return hresult.CLASS_E_NOAGGREGATION
	}
	id, hr := guidArg(riid)
	if hr.Failed() {
		return hr
	}

	instance, hr := b.registry.Create(e.factory.Value(), id)
	if hr.Failed() {
		return hr
	}
	*ppv = b.insert(entry{instance: instance})
	log.Debugf("CreateInstance: %s as handle %#x", instance.Name(), uintptr(*ppv))
	return hresult.S_OK
}

// LockServer keeps the agent loaded while the lock count is positive.
func (b *Binding) LockServer(factoryHandle Handle, lock bool) hresult.HRESULT {
	if _, hr := b.lookup("LockServer", factoryHandle); hr.Failed() {
		return hr
	}
	if lock {
		b.serverLock.Add(1)
	} else {
		b.serverLock.Add(-1)
	}
	return hresult.S_OK
}

// ServerLocks returns the LockServer count.
func (b *Binding) ServerLocks() int64 {
	return b.serverLock.Load()
}

// QueryInterface hands out the same handle with one more reference when the
// object answers to riid.
func (b *Binding) QueryInterface(h Handle, riid *RawGUID, ppv *Handle) hresult.HRESULT {
	if ppv == nil {
		return hresult.E_POINTER
	}
	*ppv = 0
	e, hr := b.lookup("QueryInterface", h)
	if hr.Failed() {
		return hr
	}
	id, hr := guidArg(riid)
	if hr.Failed() {
		return hr
	}
	if hr := e.query(id); hr.Failed() {
		log.Debugf("QueryInterface: %s does not implement %s", e.name(), iid.Name(id))
		return hr
	}
	log.Debugf("QueryInterface: %s as %s", e.name(), iid.Name(id))
	*ppv = h
	return hresult.S_OK
}

// AddRef takes one more reference on h.
func (b *Binding) AddRef(h Handle) uint32 {
	e, hr := b.lookup("AddRef", h)
	if hr.Failed() {
		log.Debugf("AddRef: %v", hr)
		return 0
	}
	n := e.acquire()
	log.Debugf("AddRef: %s count %d", e.name(), n)
	return n
}

// Release drops one reference on h. At zero the handle is invalid and any
// further use of it panics.
func (b *Binding) Release(h Handle) uint32 {
	e, hr := b.lookup("Release", h)
	if hr.Failed() {
		log.Debugf("Release: %v", hr)
		return 0
	}
	n := e.release()
	log.Debugf("Release: %s count %d", e.name(), n)
	if n == 0 {
		objects := b.objects.WLock()
		delete(objects.live, h)
		objects.released[h] = struct{}{}
		b.objects.WUnlock(&objects)
	}
	return n
}

// Dispatcher resolves a profiler handle to the dispatcher behind it.
func (b *Binding) Dispatcher(h Handle) (*callback.Dispatcher, hresult.HRESULT) {
	e, hr := b.lookup("Dispatcher", h)
	if hr.Failed() {
		return nil, hr
	}
	if e.instance == nil {
		return nil, hresult.E_NOINTERFACE
	}
	return e.instance.Value(), hresult.S_OK
}

// InitializeForAttach copies the client data buffer and forwards it to the
// profiler behind h.
func (b *Binding) InitializeForAttach(h Handle, info host.Info, clientData *byte,
	size uint32) hresult.HRESULT {
	d, hr := b.Dispatcher(h)
	if hr.Failed() {
		return hr
	}
	if clientData == nil && size > 0 {
		return hresult.E_POINTER
	}
	var buf []byte
	if size > 0 {
		buf = append([]byte(nil), unsafe.Slice(clientData, size)...)
	}
	return d.InitializeForAttach(info, buf)
}

// Live returns the number of handles that are still referenced.
func (b *Binding) Live() int {
	objects := b.objects.RLock()
	defer b.objects.RUnlock(&objects)
	return len(objects.live)
}
