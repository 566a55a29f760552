// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package profilers // import "github.com/drdotnet/agent/profilers"

import (
	"fmt"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/drdotnet/agent/callback"
	"github.com/drdotnet/agent/calltree"
	"github.com/drdotnet/agent/host"
	"github.com/drdotnet/agent/libpf"
	"github.com/drdotnet/agent/names"
	"github.com/drdotnet/agent/report"
	"github.com/drdotnet/agent/session"
)

// threadIDsToPrint is the number of thread ids listed per stack end.
const threadIDsToPrint = 4

// MergedCallStacksInfo identifies the merged call stacks profiler.
var MergedCallStacksInfo = session.ProfilerInfo{
	ID:          libpf.MustParseGUID("9404d16c-b49e-11ed-afa1-0242ac120002"),
	Name:        "List merged call stacks",
	Description: "Lists threads call stacks merged by stack frame.",
}

// MergedCallStacks takes one snapshot of every managed thread and merges
// the stacks into a tree whose payload is the set of thread ids.
type MergedCallStacks struct {
	env      callback.Env
	resolver names.Resolver
	snap     *snapshotter

	mu      sync.Mutex
	tree    *calltree.Tree[libpf.Frame, calltree.Threads]
	threads int
}

var _ callback.AttachCompleter = (*MergedCallStacks)(nil)

// NewMergedCallStacks returns a merged call stacks profiler with an empty
// tree.
func NewMergedCallStacks() *MergedCallStacks {
	return &MergedCallStacks{
		tree: calltree.New[libpf.Frame](calltree.MergeThreads),
	}
}

// Initialize implements callback.Handler.
func (p *MergedCallStacks) Initialize(env callback.Env) (host.EventMask, error) {
	resolver, err := names.NewCachedResolver(env.Host, 0)
	if err != nil {
		return 0, err
	}
	p.env = env
	p.resolver = resolver
	p.snap = &snapshotter{info: env.Host}
	return host.EnableStackSnapshot, nil
}

// AttachComplete implements callback.AttachCompleter. It snapshots every
// thread and then asks for the detach.
func (p *MergedCallStacks) AttachComplete() error {
	if err := suspended(p.env.Host, p.collect); err != nil {
		log.Errorf("Failed to collect call stacks: %v", err)
	}
	p.env.Detach.RequestDetach()
	return nil
}

func (p *MergedCallStacks) collect() {
	threads, err := p.env.Host.EnumThreads()
	if err != nil {
		log.Errorf("Failed to enumerate threads: %v", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, thread := range threads {
		st, err := p.snap.snapshot(thread)
		if err != nil {
			log.Debugf("%v", err)
			continue
		}
		if len(st.frames) == 0 {
			continue
		}
		// Outermost caller first.
		seq := slices.Clone(st.frames)
		slices.Reverse(seq)
		p.tree.Add(seq, calltree.Threads{thread})
		p.threads++
	}
}

// DetachSucceeded implements callback.Handler.
func (p *MergedCallStacks) DetachSucceeded() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tree.Sort(calltree.Parallel,
		calltree.ByWeight[libpf.Frame](calltree.ThreadsWeight, libpf.Frame.Compare))

	return writeReport(p.env.Reports, "pstacks.md", func(sink report.Sink) error {
		if err := section(sink, "Merged Callstacks",
			[2]string{"Threads", itoa(p.threads)},
			[2]string{"Roots", itoa(len(p.tree.Root.Children))},
		); err != nil {
			return err
		}
		return p.tree.Render(sink, calltree.RenderOptions[libpf.Frame, calltree.Threads]{
			Title: "Stacks",
			Label: p.resolver.FunctionName,
			Content: func(inclusive, own calltree.Threads) string {
				if len(own) == 0 {
					return fmt.Sprintf("%d threads", len(inclusive))
				}
				return fmt.Sprintf("%d threads ~~~~ %s", len(inclusive), own.Format(threadIDsToPrint))
			},
		})
	})
}
