// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package pprof exports call trees as pprof profiles.
package pprof // import "github.com/drdotnet/agent/report/pprof"

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/google/pprof/profile"

	"github.com/drdotnet/agent/calltree"
)

// Options describe how tree nodes become samples.
type Options[K comparable, V any] struct {
	SampleType string
	SampleUnit string
	PeriodType string
	PeriodUnit string
	Period     int64
	// Label names the function of a key.
	Label func(key K) string
	// Value converts the own payload of a node into a sample value. Nodes
	// with a zero value produce no sample.
	Value func(own V) int64
	// CalleeFirst is set when the root's children are the innermost frames.
	CalleeFirst bool
}

// Build returns a profile with one sample per node that has an own value.
func Build[K comparable, V any](tree *calltree.Tree[K, V], opts Options[K, V]) (*profile.Profile, error) {
	p := &profile.Profile{
		SampleType:        []*profile.ValueType{{Type: opts.SampleType, Unit: opts.SampleUnit}},
		DefaultSampleType: opts.SampleType,
		PeriodType:        &profile.ValueType{Type: opts.PeriodType, Unit: opts.PeriodUnit},
		Period:            opts.Period,
		TimeNanos:         time.Now().UnixNano(),
	}

	locations := make(map[string]*profile.Location)
	location := func(name string) *profile.Location {
		if loc, ok := locations[name]; ok {
			return loc
		}
		fn := &profile.Function{
			ID:         uint64(len(p.Function) + 1),
			Name:       name,
			SystemName: name,
		}
		p.Function = append(p.Function, fn)
		loc := &profile.Location{
			ID:   uint64(len(p.Location) + 1),
			Line: []profile.Line{{Function: fn}},
		}
		p.Location = append(p.Location, loc)
		locations[name] = loc
		return loc
	}

	var path []*profile.Location
	tree.Walk(func(n *calltree.Node[K, V], depth int) bool {
		if depth == 0 {
			return true
		}
		path = append(path[:depth-1], location(opts.Label(n.Key)))
		v := opts.Value(n.Own)
		if v == 0 {
			return true
		}
		stack := slices.Clone(path)
		if !opts.CalleeFirst {
			slices.Reverse(stack)
		}
		p.Sample = append(p.Sample, &profile.Sample{
			Location: stack,
			Value:    []int64{v},
		})
		return true
	})

	if err := p.CheckValid(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return p, nil
}

// Write encodes the tree as a gzip compressed pprof profile.
func Write[K comparable, V any](w io.Writer, tree *calltree.Tree[K, V], opts Options[K, V]) error {
	p, err := Build(tree, opts)
	if err != nil {
		return err
	}
	return p.Write(w)
}
