// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package simhost // import "github.com/drdotnet/agent/internal/simhost"

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/drdotnet/agent/callback"
	"github.com/drdotnet/agent/host"
	"github.com/drdotnet/agent/libpf"
	"github.com/drdotnet/agent/periodiccaller"
)

var exceptionClasses = []string{
	"System.InvalidOperationException",
	"System.ArgumentNullException",
	"System.IO.IOException",
	"System.TimeoutException",
}

var functionNames = []string{
	"App.Program.Main",
	"App.Server.Accept",
	"App.Server.Handle",
	"App.Json.Parse",
	"App.Db.Query",
	"App.Worker.Run",
	"System.Threading.Monitor.Wait",
	"System.Net.Sockets.Socket.Receive",
}

// call paths, outermost caller first, as indices into functionNames.
var callPaths = [][]int{
	{0, 1, 2, 3},
	{0, 1, 2, 4},
	{0, 1, 7},
	{5, 6},
	{5, 4},
}

const (
	firstFunction libpf.FunctionID = 0x1000
	firstClass    libpf.ClassID    = 0x2000
	firstObject   libpf.ObjectID   = 0x3000
	firstThread   libpf.ThreadID   = 1

	objectsPerClass = 4
)

// Workload produces synthetic runtime activity on a host.
type Workload struct {
	host    *Host
	rng     *rand.Rand
	threads int
	objects int
}

// NewWorkload populates h with threads, classes, functions and exception
// objects. The activity is fully determined by seed.
func NewWorkload(h *Host, threads int, seed uint64) *Workload {
	w := &Workload{
		host:    h,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		threads: max(threads, 1),
	}
	for i, name := range functionNames {
		h.AddFunction(firstFunction+libpf.FunctionID(i), name)
	}
	for i, name := range exceptionClasses {
		class := firstClass + libpf.ClassID(i)
		h.AddClass(class, name)
		for range objectsPerClass {
			h.AddObject(firstObject+libpf.ObjectID(w.objects), class)
			w.objects++
		}
	}
	for i := range w.threads {
		w.moveThread(firstThread + libpf.ThreadID(i))
	}
	return w
}

// moveThread gives thread a new stack from one of the call paths.
func (w *Workload) moveThread(thread libpf.ThreadID) {
	path := callPaths[w.rng.IntN(len(callPaths))]
	frames := make([]host.StackFrame, 0, len(path)+1)
	for i := len(path) - 1; i >= 0; i-- {
		frames = append(frames, host.StackFrame{
			Frame: libpf.Frame{Function: firstFunction + libpf.FunctionID(path[i])},
			IP:    w.rng.Uint64(),
		})
		if i == len(path)-1 && w.rng.IntN(4) == 0 {
			// Interop transition below the leaf.
			frames = append(frames, host.StackFrame{IP: w.rng.Uint64()})
		}
	}
	w.host.SetThread(thread, frames...)
}

// tick emits one round of activity to d.
func (w *Workload) tick(d *callback.Dispatcher) {
	// Most threads keep working; some sit idle on the same stack.
	for i := range w.threads {
		if w.rng.IntN(3) != 0 {
			w.moveThread(firstThread + libpf.ThreadID(i))
		}
	}

	// The extra object id has no class on the host.
	d.ExceptionThrown(firstObject + libpf.ObjectID(w.rng.IntN(w.objects+1)))

	for range 1 + w.rng.IntN(3) {
		k := w.rng.IntN(w.objects)
		d.ObjectAllocated(firstObject+libpf.ObjectID(k), firstClass+libpf.ClassID(k/objectsPerClass))
	}

	if w.rng.IntN(2) == 0 {
		gens := []bool{true, w.rng.IntN(2) == 0, w.rng.IntN(5) == 0}
		d.RuntimeSuspendStarted(host.SuspendForGC)
		d.RuntimeSuspendFinished()
		d.GarbageCollectionStarted(gens, host.GCReason(w.rng.IntN(2)))
		survivors := make([]callback.ObjectRange, 1+w.rng.IntN(3))
		for i := range survivors {
			survivors[i] = callback.ObjectRange{
				Start:  firstObject + libpf.ObjectID(w.rng.IntN(w.objects)),
				Length: 24,
			}
		}
		d.SurvivingReferences2(survivors)
		d.GarbageCollectionFinished()
		d.RuntimeResumeStarted()
		d.RuntimeResumeFinished()
	}
}

// Run emits activity to rt every interval until the profiler detached or
// ctx is done.
func (w *Workload) Run(ctx context.Context, rt *Runtime, interval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := periodiccaller.Start(ctx, interval, func() { w.tick(rt.Dispatcher()) })
	defer stop()

	select {
	case <-rt.Detached():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
