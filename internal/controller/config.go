// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "github.com/drdotnet/agent/internal/controller"

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/drdotnet/agent/libpf"
	"github.com/drdotnet/agent/session"
)

// Config holds the parsed command line arguments.
type Config struct {
	List     bool
	Simulate string

	Output   string
	Compress bool

	S3Bucket   string
	S3Prefix   string
	S3Endpoint string

	// Parameters overrides profiler parameters as key=value pairs separated
	// by commas.
	Parameters  string
	ProcessName string
	Threads     int
	Seed        uint64
	Interval    time.Duration
	Timeout     time.Duration

	MonitorInterval time.Duration
	VerboseMode     bool
	Version         bool

	Fs *flag.FlagSet
}

// Dump visits all flag sets, and dumps them all to debug
// Used for verbose mode logging.
func (cfg *Config) Dump() {
	log.Debug("Config:")
	if cfg.Fs == nil {
		return
	}
	cfg.Fs.VisitAll(func(f *flag.Flag) {
		log.Debug(fmt.Sprintf("%s: %v", f.Name, f.Value))
	})
}

// Validate runs validations on the provided configuration, and returns errors
// if invalid values were provided.
func (cfg *Config) Validate() error {
	if cfg.List && cfg.Simulate != "" {
		return errors.New("-list and -simulate are mutually exclusive")
	}
	if cfg.Simulate == "" {
		return nil
	}
	if _, err := libpf.ParseGUID(cfg.Simulate); err != nil {
		return fmt.Errorf("invalid profiler identity %q: %w", cfg.Simulate, err)
	}
	if cfg.Output == "" {
		return errors.New("an output directory is required")
	}
	if cfg.Threads <= 0 {
		return fmt.Errorf("invalid thread count %d", cfg.Threads)
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("invalid workload interval %v", cfg.Interval)
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("invalid timeout %v", cfg.Timeout)
	}
	_, err := parseParameters(cfg.Parameters)
	return err
}

// parseParameters splits "key=value,key=value" into parameter overrides.
func parseParameters(s string) ([]session.Parameter, error) {
	var params []session.Parameter
	for pair := range strings.SplitSeq(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		params = append(params, session.Parameter{
			Key:   key,
			Type:  session.String,
			Value: strings.TrimSpace(value),
		})
	}
	return params, nil
}
