// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"os"
	"time"

	"github.com/peterbourgon/ff/v3"

	"github.com/drdotnet/agent/internal/controller"
	"github.com/drdotnet/agent/session"
)

const (
	// Default values for CLI flags
	defaultArgThreads         = 8
	defaultArgWorkloadInterval = 10 * time.Millisecond
	defaultArgMonitorInterval = 5 * time.Second
	defaultArgTimeout         = 5 * time.Minute
)

// Help strings for command line arguments
var (
	compressHelp    = "Compress session reports with zstd."
	configHelp      = "Plain text configuration file, one 'flag value' pair per line."
	intervalHelp    = "Interval between two rounds of simulated runtime activity."
	listHelp        = "List the known profilers with their parameters and exit."
	outputHelp      = "Directory the session reports are written under."
	paramsHelp      = "Comma-separated key=value overrides of profiler parameters."
	processHelp     = "Process name recorded in the simulated session."
	s3BucketHelp    = "Upload finished sessions to this S3 bucket."
	s3PrefixHelp    = "Key prefix of uploaded sessions."
	s3EndpointHelp  = "Custom S3 endpoint, for S3 compatible object stores."
	seedHelp        = "Seed of the simulated workload."
	threadsHelp     = "Number of managed threads in the simulated runtime."
	verboseModeHelp = "Enable verbose logging and debugging capabilities."
	versionHelp     = "Show version."

	monitorIntervalHelp = "Set the agent metrics monitor interval. Zero disables agent metrics."
	simulateHelp        = "Attach the profiler with the given identity to a simulated runtime " +
		"and write its reports."
	timeoutHelp = "Shut the simulated runtime down if the profiler did not detach " +
		"after this long. Zero waits forever."
)

func parseArgs() (*controller.Config, error) {
	var args controller.Config

	fs := flag.NewFlagSet("drdotnet", flag.ExitOnError)

	// Please keep the parameters ordered alphabetically in the source-code.
	fs.BoolVar(&args.Compress, "compress", false, compressHelp)

	fs.String("config", "", configHelp)

	fs.DurationVar(&args.Interval, "interval", defaultArgWorkloadInterval, intervalHelp)

	fs.BoolVar(&args.List, "list", false, listHelp)

	fs.DurationVar(&args.MonitorInterval, "monitor-interval", defaultArgMonitorInterval,
		monitorIntervalHelp)

	fs.StringVar(&args.Output, "output", session.DefaultRoot(), outputHelp)

	fs.StringVar(&args.Parameters, "params", "", paramsHelp)
	fs.StringVar(&args.ProcessName, "process-name", "", processHelp)

	fs.StringVar(&args.S3Bucket, "s3-bucket", "", s3BucketHelp)
	fs.StringVar(&args.S3Endpoint, "s3-endpoint", "", s3EndpointHelp)
	fs.StringVar(&args.S3Prefix, "s3-prefix", "", s3PrefixHelp)

	fs.Uint64Var(&args.Seed, "seed", 1, seedHelp)
	fs.StringVar(&args.Simulate, "simulate", "", simulateHelp)

	fs.IntVar(&args.Threads, "threads", defaultArgThreads, threadsHelp)
	fs.DurationVar(&args.Timeout, "timeout", defaultArgTimeout, timeoutHelp)

	fs.BoolVar(&args.VerboseMode, "v", false, "Shorthand for -verbose.")
	fs.BoolVar(&args.VerboseMode, "verbose", false, verboseModeHelp)
	fs.BoolVar(&args.Version, "version", false, versionHelp)

	fs.Usage = func() {
		fs.PrintDefaults()
	}

	args.Fs = fs

	return &args, ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("DRDOTNET"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		// This will ignore configuration file (only) options that the current
		// agent does not recognize.
		ff.WithIgnoreUndefined(true),
		ff.WithAllowMissingConfigFile(true),
	)
}
