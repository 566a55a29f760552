// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package names turns runtime identifiers into display names. Lookups that
// fail yield a tagged sentinel so that partial results stay visible in
// reports.
package names // import "github.com/drdotnet/agent/names"

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/drdotnet/agent/host"
	"github.com/drdotnet/agent/libpf"
	"github.com/drdotnet/agent/libpf/freelru"
	"github.com/drdotnet/agent/metrics"
	"github.com/drdotnet/agent/successfailurecounter"
)

const (
	// Native labels frames without managed metadata.
	Native = "unmanaged"

	sentinelPrefix = "<unresolved "

	defaultCacheSize = 16384
	cacheLifetime    = 10 * time.Minute
)

// UnresolvedFunction is the sentinel for a function that could not be named.
func UnresolvedFunction(fn libpf.FunctionID) string {
	return fmt.Sprintf("%sfunction %v>", sentinelPrefix, fn)
}

// UnresolvedClass is the sentinel for a class that could not be named.
func UnresolvedClass(class libpf.ClassID) string {
	return fmt.Sprintf("%sclass %v>", sentinelPrefix, class)
}

// UnresolvedObject is the sentinel for an object whose class is unknown.
func UnresolvedObject(object libpf.ObjectID) string {
	return fmt.Sprintf("%sobject 0x%x>", sentinelPrefix, uint64(object))
}

// IsSentinel reports whether name is one of the sentinels above.
func IsSentinel(name string) bool {
	return strings.HasPrefix(name, sentinelPrefix)
}

// Resolver names runtime identifiers. It never fails.
type Resolver interface {
	FunctionName(frame libpf.Frame) string
	ClassName(class libpf.ClassID) string
	ObjectClassName(object libpf.ObjectID) string
}

// Stats are the outcomes of lookups that reached the host.
type Stats struct {
	Success uint64
	Failure uint64
	Cache   freelru.Statistics
}

// CachedResolver asks the host once per identifier and caches successful
// answers. It is safe for concurrent use.
type CachedResolver struct {
	info      host.Info
	functions *freelru.LRU[libpf.Frame, string]
	classes   *freelru.LRU[libpf.ClassID, string]

	success atomic.Uint64
	failure atomic.Uint64
}

var _ Resolver = (*CachedResolver)(nil)

// NewCachedResolver creates a resolver backed by info. A zero size selects
// the default cache size.
func NewCachedResolver(info host.Info, size uint32) (*CachedResolver, error) {
	if size == 0 {
		size = defaultCacheSize
	}
	functions, err := freelru.New[libpf.Frame, string](size, libpf.Frame.Hash32, cacheLifetime)
	if err != nil {
		return nil, fmt.Errorf("failed to create function name cache: %w", err)
	}
	classes, err := freelru.New[libpf.ClassID, string](size, libpf.ClassID.Hash32, cacheLifetime)
	if err != nil {
		return nil, fmt.Errorf("failed to create class name cache: %w", err)
	}
	return &CachedResolver{info: info, functions: functions, classes: classes}, nil
}

func (r *CachedResolver) counter() successfailurecounter.SuccessFailureCounter {
	return successfailurecounter.New(&r.success, &r.failure,
		metrics.IDNameResolveSuccess, metrics.IDNameResolveFailure)
}

// FunctionName implements Resolver.
func (r *CachedResolver) FunctionName(frame libpf.Frame) string {
	if frame.Function.IsNative() {
		return Native
	}
	if name, ok := r.functions.Get(frame); ok {
		return name
	}

	sfc := r.counter()
	defer sfc.DefaultToFailure()

	name, err := r.info.GetFunctionName(frame)
	if err != nil || name == "" {
		log.Debugf("Failed to resolve function %v: %v", frame.Function, err)
		return UnresolvedFunction(frame.Function)
	}
	sfc.ReportSuccess()
	r.functions.Add(frame, name)
	return name
}

// ClassName implements Resolver.
func (r *CachedResolver) ClassName(class libpf.ClassID) string {
	if name, ok := r.classes.Get(class); ok {
		return name
	}

	sfc := r.counter()
	defer sfc.DefaultToFailure()

	name, err := r.info.GetClassName(class)
	if err != nil || name == "" {
		log.Debugf("Failed to resolve class %v: %v", class, err)
		return UnresolvedClass(class)
	}
	sfc.ReportSuccess()
	r.classes.Add(class, name)
	return name
}

// ObjectClassName implements Resolver.
func (r *CachedResolver) ObjectClassName(object libpf.ObjectID) string {
	class, err := r.info.GetClassFromObject(object)
	if err != nil {
		sfc := r.counter()
		sfc.ReportFailure()
		log.Debugf("Failed to get class of object 0x%x: %v", uint64(object), err)
		return UnresolvedObject(object)
	}
	return r.ClassName(class)
}

// Stats returns the lookup outcomes and resets the cache statistics.
func (r *CachedResolver) Stats() Stats {
	fs := r.functions.GetAndResetStatistics()
	cs := r.classes.GetAndResetStatistics()
	return Stats{
		Success: r.success.Load(),
		Failure: r.failure.Load(),
		Cache: freelru.Statistics{
			Hit:     fs.Hit + cs.Hit,
			Miss:    fs.Miss + cs.Miss,
			Added:   fs.Added + cs.Added,
			Evicted: fs.Evicted + cs.Evicted,
		},
	}
}
