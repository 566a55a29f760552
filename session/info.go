// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package session decodes the session parameters passed by the host on
// initialization and persists the reports produced during a session.
package session // import "github.com/drdotnet/agent/session"

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/drdotnet/agent/libpf"
)

// ErrEmptyBuffer is returned when the host passes no session parameters.
var ErrEmptyBuffer = errors.New("empty session buffer")

// ParameterType tells how a parameter value string is interpreted.
type ParameterType uint8

const (
	Boolean ParameterType = iota
	Integer
	Float
	String
)

// String implements fmt.Stringer.
func (t ParameterType) String() string {
	switch t {
	case Boolean:
		return "bool"
	case Integer:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	}
	return "ParameterType(" + strconv.Itoa(int(t)) + ")"
}

// Parameter is a single tunable of a profiler.
type Parameter struct {
	Name        string        `json:"name"`
	Key         string        `json:"key"`
	Description string        `json:"description"`
	Type        ParameterType `json:"type"`
	Value       string        `json:"value"`
}

// IntParameter declares an integer parameter with its default value.
func IntParameter(name, key string, value int64, description string) Parameter {
	return Parameter{Name: name, Key: key, Description: description,
		Type: Integer, Value: strconv.FormatInt(value, 10)}
}

// BoolParameter declares a boolean parameter with its default value.
func BoolParameter(name, key string, value bool, description string) Parameter {
	return Parameter{Name: name, Key: key, Description: description,
		Type: Boolean, Value: strconv.FormatBool(value)}
}

// ProfilerInfo identifies a profiler and carries its parameters.
type ProfilerInfo struct {
	ID          libpf.GUID  `json:"uuid"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

// Info describes one attach session.
type Info struct {
	ID          libpf.GUID   `json:"uuid"`
	ProcessName string       `json:"process_name"`
	Profiler    ProfilerInfo `json:"profiler"`
}

// Lookup returns the parameter with the given key.
func (i *Info) Lookup(key string) (Parameter, bool) {
	for _, p := range i.Profiler.Parameters {
		if p.Key == key {
			return p, true
		}
	}
	return Parameter{}, false
}

// Int returns the integer parameter key, or def if it is missing or does
// not parse.
func (i *Info) Int(key string, def int64) int64 {
	p, ok := i.Lookup(key)
	if !ok {
		return def
	}
	v, err := strconv.ParseInt(strings.TrimSpace(p.Value), 10, 64)
	if err != nil {
		log.Warnf("Parameter %s: invalid integer %q, using %d", key, p.Value, def)
		return def
	}
	return v
}

// Bool returns the boolean parameter key, or def if it is missing or does
// not parse.
func (i *Info) Bool(key string, def bool) bool {
	p, ok := i.Lookup(key)
	if !ok {
		return def
	}
	v, err := strconv.ParseBool(strings.TrimSpace(p.Value))
	if err != nil {
		log.Warnf("Parameter %s: invalid boolean %q, using %t", key, p.Value, def)
		return def
	}
	return v
}

// Duration interprets the integer parameter key as a count of unit.
func (i *Info) Duration(key string, unit, def time.Duration) time.Duration {
	n := i.Int(key, int64(def/unit))
	if n < 0 {
		log.Warnf("Parameter %s: negative duration %d, using %v", key, n, def)
		return def
	}
	return time.Duration(n) * unit
}

// Validate checks the fields every session needs.
func (i *Info) Validate() error {
	if i.ID.IsNil() {
		return errors.New("session uuid is missing")
	}
	return nil
}

// String implements fmt.Stringer.
func (i *Info) String() string {
	return fmt.Sprintf("session %s (%s) for %q", i.ID, i.Profiler.Name, i.ProcessName)
}

// WithDefaults returns a copy of info whose parameter list contains every
// parameter of defaults, overridden by the values present in info.
func (i *Info) WithDefaults(defaults []Parameter) *Info {
	out := *i
	out.Profiler.Parameters = make([]Parameter, 0, len(defaults)+len(i.Profiler.Parameters))
	seen := libpf.Set[string]{}
	for _, d := range defaults {
		if p, ok := i.Lookup(d.Key); ok {
			d.Value = p.Value
		}
		seen.Add(d.Key)
		out.Profiler.Parameters = append(out.Profiler.Parameters, d)
	}
	for _, p := range i.Profiler.Parameters {
		if seen.Add(p.Key) {
			out.Profiler.Parameters = append(out.Profiler.Parameters, p)
		}
	}
	return &out
}
