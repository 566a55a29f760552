// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package callback routes runtime events to a profiler handler. A
// Dispatcher implements every callback of the V1 to V9 chain; the handler
// opts into the events it wants by implementing the matching capability
// interfaces.
package callback // import "github.com/drdotnet/agent/callback"

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/drdotnet/agent/hresult"
	"github.com/drdotnet/agent/host"
	"github.com/drdotnet/agent/libpf"
	"github.com/drdotnet/agent/metrics"
	"github.com/drdotnet/agent/refcount"
	"github.com/drdotnet/agent/report"
	"github.com/drdotnet/agent/session"
	"github.com/drdotnet/agent/times"
)

// State is the lifecycle state of one profiler instance.
type State int32

const (
	Unattached State = iota
	Initializing
	Active
	DetachRequested
	Detached
	Failed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Unattached:
		return "Unattached"
	case Initializing:
		return "Initializing"
	case Active:
		return "Active"
	case DetachRequested:
		return "DetachRequested"
	case Detached:
		return "Detached"
	case Failed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Detacher lets a handler end its own session.
type Detacher interface {
	// ScheduleDetach requests a detach once after has elapsed. A detach
	// initiated by the host before that cancels the timer.
	ScheduleDetach(after time.Duration)
	// RequestDetach asks the host to detach the profiler now.
	RequestDetach()
}

// Env is what a handler receives on initialization.
type Env struct {
	Host    host.Info
	Session *session.Info
	Reports report.Factory
	Detach  Detacher
}

// Handler is the lifecycle every profiler implements.
type Handler interface {
	// Initialize validates the session and returns the events to subscribe
	// to. An error leaves the instance failed.
	Initialize(env Env) (host.EventMask, error)
	// DetachSucceeded writes the reports. It runs exactly once per
	// successfully initialized instance.
	DetachSucceeded() error
}

// Output receives the reports of one session and is closed after
// DetachSucceeded returned.
type Output interface {
	report.Factory
	Close() error
}

// OutputFunc opens the output of a session.
type OutputFunc func(info *session.Info) (Output, error)

// MemoryOutput is an Output that keeps reports in memory.
type MemoryOutput struct {
	*report.MemoryFactory
	closed atomic.Bool
}

// Close implements Output.
func (m *MemoryOutput) Close() error {
	m.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (m *MemoryOutput) Closed() bool {
	return m.closed.Load()
}

// MemoryOutputs is an OutputFunc returning a fresh MemoryOutput.
func MemoryOutputs(*session.Info) (Output, error) {
	return &MemoryOutput{MemoryFactory: report.NewMemoryFactory()}, nil
}

// Config parameterizes a Dispatcher.
type Config struct {
	// Profiler identifies the profiler and lists its default parameters.
	Profiler session.ProfilerInfo
	// Outputs opens session outputs. Nil keeps reports in memory.
	Outputs OutputFunc
	// DetachTimeout is passed to the host on self-requested detaches.
	DetachTimeout time.Duration
}

// Dispatcher drives one handler instance through its lifecycle and forwards
// events to it. It is safe for concurrent use by host threads.
type Dispatcher struct {
	handler Handler
	cfg     Config

	state     atomic.Int32
	finalized atomic.Bool
	attached  atomic.Pointer[attachment]

	timerMu sync.Mutex
	timer   *time.Timer
}

// attachment is what initialization hands over to the rest of the
// lifecycle. It is published once, before the handler is initialized.
type attachment struct {
	info    host.Info
	session *session.Info
	output  Output
}

var _ Detacher = (*Dispatcher)(nil)

// New returns a dispatcher for handler in the Unattached state.
func New(handler Handler, cfg Config) *Dispatcher {
	if cfg.Outputs == nil {
		cfg.Outputs = MemoryOutputs
	}
	if cfg.DetachTimeout <= 0 {
		cfg.DetachTimeout = times.DetachTimeout
	}
	return &Dispatcher{handler: handler, cfg: cfg}
}

// State returns the current lifecycle state.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Handler returns the handler driven by d.
func (d *Dispatcher) Handler() Handler {
	return d.handler
}

// Session returns the session parameters, or nil before initialization.
func (d *Dispatcher) Session() *session.Info {
	if a := d.attached.Load(); a != nil {
		return a.session
	}
	return nil
}

// Output returns the session output, or nil before initialization or when
// it could not be opened.
func (d *Dispatcher) Output() Output {
	if a := d.attached.Load(); a != nil {
		return a.output
	}
	return nil
}

// invoke runs fn, turning errors into status codes and recovering panics.
// Reference count violations are not recovered.
func (d *Dispatcher) invoke(name string, fn func() error) (hr hresult.HRESULT) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if v, ok := r.(*refcount.ViolationError); ok {
			panic(v)
		}
		log.Errorf("%s: recovered panic in %s: %v\n%s",
			d.cfg.Profiler.Name, name, r, debug.Stack())
		metrics.Add(metrics.IDHandlerPanics, 1)
		hr = hresult.E_FAIL
	}()

	if err := fn(); err != nil {
		log.Debugf("%s: %s failed: %v", d.cfg.Profiler.Name, name, err)
		metrics.Add(metrics.IDHandlerFailures, 1)
		return hresult.FromError(err)
	}
	return hresult.S_OK
}

// dispatch forwards an event while the instance is active and drops it
// otherwise.
func (d *Dispatcher) dispatch(name string, fn func() error) hresult.HRESULT {
	if d.State() != Active {
		metrics.Add(metrics.IDEventsDropped, 1)
		return hresult.S_OK
	}
	metrics.Add(metrics.IDEventsDispatched, 1)
	return d.invoke(name, fn)
}

func (d *Dispatcher) initialize(info host.Info, sess *session.Info, next State) hresult.HRESULT {
	if info == nil {
		return hresult.E_POINTER
	}
	if !d.state.CompareAndSwap(int32(Unattached), int32(Initializing)) {
		log.Errorf("%s: initialize called in state %v", d.cfg.Profiler.Name, d.State())
		return hresult.E_FAIL
	}

	sess = sess.WithDefaults(d.cfg.Profiler.Parameters)
	output, err := d.cfg.Outputs(sess)
	if err != nil {
		log.Errorf("%s: failed to open session output: %v", d.cfg.Profiler.Name, err)
		d.attached.Store(&attachment{info: info, session: sess})
		d.state.Store(int32(Failed))
		return hresult.E_FAIL
	}
	d.attached.Store(&attachment{info: info, session: sess, output: output})

	env := Env{Host: info, Session: sess, Reports: output, Detach: d}
	hr := d.invoke("Initialize", func() error {
		mask, err := d.handler.Initialize(env)
		if err != nil {
			return err
		}
		log.Debugf("%s: event mask %v", d.cfg.Profiler.Name, mask)
		return info.SetEventMask(mask)
	})
	if hr.Failed() {
		log.Errorf("%s: initialization failed: %v", d.cfg.Profiler.Name, hr)
		d.state.Store(int32(Failed))
		if err := output.Close(); err != nil {
			log.Warnf("%s: failed to close session output: %v", d.cfg.Profiler.Name, err)
		}
		return hr
	}

	if next != Initializing {
		d.state.CompareAndSwap(int32(Initializing), int32(next))
	}
	log.Infof("%s: initialized %v", d.cfg.Profiler.Name, sess)
	return hresult.S_OK
}

// Initialize handles a profiler loaded at process startup. There are no
// client data, so the session uses the declared default parameters and the
// instance becomes active at once.
func (d *Dispatcher) Initialize(info host.Info) hresult.HRESULT {
	return d.initialize(info, &session.Info{
		ID:          libpf.NewRandomGUID(),
		ProcessName: filepath.Base(os.Args[0]),
		Profiler:    d.cfg.Profiler,
	}, Active)
}

// InitializeForAttach handles a profiler attached to a running process.
// clientData carries the encoded session parameters.
func (d *Dispatcher) InitializeForAttach(info host.Info, clientData []byte) hresult.HRESULT {
	sess, err := session.Parse(clientData)
	if err != nil {
		log.Errorf("%s: invalid session parameters: %v", d.cfg.Profiler.Name, err)
		d.state.CompareAndSwap(int32(Unattached), int32(Failed))
		return hresult.E_FAIL
	}
	return d.initialize(info, sess, Initializing)
}

// ProfilerAttachComplete moves an attaching instance to Active.
func (d *Dispatcher) ProfilerAttachComplete() hresult.HRESULT {
	if !d.state.CompareAndSwap(int32(Initializing), int32(Active)) {
		log.Debugf("%s: attach complete in state %v", d.cfg.Profiler.Name, d.State())
		return hresult.S_OK
	}
	h, ok := d.handler.(AttachCompleter)
	if !ok {
		return hresult.S_OK
	}
	return d.invoke("AttachComplete", h.AttachComplete)
}

// DetachRequested records that the host is about to detach the profiler.
// No new events are forwarded afterwards.
func (d *Dispatcher) DetachRequested() hresult.HRESULT {
	if !d.toDetachRequested() {
		return hresult.S_OK
	}
	d.cancelTimer()
	return d.notifyDetachRequested()
}

func (d *Dispatcher) toDetachRequested() bool {
	return d.state.CompareAndSwap(int32(Active), int32(DetachRequested)) ||
		d.state.CompareAndSwap(int32(Initializing), int32(DetachRequested))
}

func (d *Dispatcher) notifyDetachRequested() hresult.HRESULT {
	h, ok := d.handler.(DetachRequester)
	if !ok {
		return hresult.S_OK
	}
	return d.invoke("DetachRequested", h.DetachRequested)
}

// ProfilerDetachSucceeded finalizes the session.
func (d *Dispatcher) ProfilerDetachSucceeded() hresult.HRESULT {
	return d.finalize("detach", false)
}

// Shutdown finalizes the session when the monitored process exits. An
// active handler is told first, unless the session was finalized already.
func (d *Dispatcher) Shutdown() hresult.HRESULT {
	return d.finalize("shutdown", true)
}

// finalize runs DetachSucceeded and closes the output, exactly once.
func (d *Dispatcher) finalize(reason string, shutdown bool) hresult.HRESULT {
	if !d.finalized.CompareAndSwap(false, true) {
		return hresult.S_OK
	}
	d.cancelTimer()
	if h, ok := d.handler.(Shutdowner); ok && shutdown && d.State() == Active {
		if hr := d.invoke("Shutdown", h.Shutdown); hr.Failed() {
			log.Warnf("%s: shutdown notification failed: %v", d.cfg.Profiler.Name, hr)
		}
	}
	prev := State(d.state.Swap(int32(Detached)))
	a := d.attached.Load()
	if prev == Unattached || prev == Failed || a == nil || a.output == nil {
		return hresult.S_OK
	}

	log.Infof("%s: finalizing session after %s", d.cfg.Profiler.Name, reason)
	hr := d.invoke("DetachSucceeded", d.handler.DetachSucceeded)
	if err := a.output.Close(); err != nil {
		log.Errorf("%s: failed to close session output: %v", d.cfg.Profiler.Name, err)
		if hr.Succeeded() {
			hr = hresult.E_FAIL
		}
	}
	metrics.Add(metrics.IDDetaches, 1)
	return hr
}

// ScheduleDetach implements Detacher.
func (d *Dispatcher) ScheduleDetach(after time.Duration) {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	if d.finalized.Load() {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(after, d.RequestDetach)
	log.Debugf("%s: detach scheduled in %v", d.cfg.Profiler.Name, after)
}

func (d *Dispatcher) cancelTimer() {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// RequestDetach implements Detacher.
func (d *Dispatcher) RequestDetach() {
	if !d.toDetachRequested() {
		return
	}
	d.cancelTimer()
	d.notifyDetachRequested()
	if err := d.attached.Load().info.RequestProfilerDetach(d.cfg.DetachTimeout); err != nil {
		log.Errorf("%s: detach request failed: %v", d.cfg.Profiler.Name, err)
	}
}
