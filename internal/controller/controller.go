// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "github.com/drdotnet/agent/internal/controller"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	log "github.com/sirupsen/logrus"

	"github.com/drdotnet/agent/binding"
	"github.com/drdotnet/agent/callback"
	"github.com/drdotnet/agent/classfactory"
	"github.com/drdotnet/agent/internal/simhost"
	"github.com/drdotnet/agent/libpf"
	"github.com/drdotnet/agent/libpf/xsync"
	"github.com/drdotnet/agent/metrics"
	"github.com/drdotnet/agent/metrics/agentmetrics"
	"github.com/drdotnet/agent/profilers"
	"github.com/drdotnet/agent/session"
	"github.com/drdotnet/agent/times"
)

// ExitSessionFailed is the exit code of a simulation whose profiler failed
// to finalize its session.
const ExitSessionFailed = 3

// Uploader receives every finished session.
type Uploader interface {
	Upload(ctx context.Context, s *session.Session) error
}

// Controller is an instance that runs, manages and stops the agent.
type Controller struct {
	config   *Config
	out      io.Writer
	uploader xsync.Once[Uploader]

	registry *classfactory.Registry
	store    *session.Store
	sessions xsync.RWMutex[[]*session.Session]

	stopMetrics func()
}

// New creates a new controller.
func New(cfg *Config, opts ...Option) *Controller {
	if cfg == nil {
		cfg = &Config{}
	}
	c := &Controller{
		config:      cfg,
		out:         os.Stdout,
		store:       session.NewStore(cfg.Output, cfg.Compress),
		sessions:    xsync.NewRWMutex([]*session.Session{}),
		stopMetrics: func() {},
	}
	for _, opt := range opts {
		c = opt.applyOption(c)
	}
	return c
}

// Start runs the action selected by the configuration and returns once it
// completed. The controller should only be started once.
func (c *Controller) Start(ctx context.Context) error {
	registry, err := profilers.NewRegistry(c.openSession)
	if err != nil {
		return fmt.Errorf("failed to register profilers: %w", err)
	}
	c.registry = registry

	if c.config.MonitorInterval > 0 {
		stop, err := agentmetrics.Start(ctx, c.config.MonitorInterval)
		if err != nil {
			log.Warnf("Agent metrics are unavailable: %v", err)
		}
		c.stopMetrics = stop
	}

	switch {
	case c.config.List:
		return c.list()
	case c.config.Simulate != "":
		return c.simulate(ctx)
	}
	return nil
}

// Shutdown stops the controller
func (c *Controller) Shutdown() {
	log.Debug("Stop processing ...")
	c.stopMetrics()
}

// Sessions returns the sessions opened so far, in opening order.
func (c *Controller) Sessions() []*session.Session {
	sessions := c.sessions.RLock()
	defer c.sessions.RUnlock(&sessions)
	return slices.Clone(*sessions)
}

// openSession is the output of every profiler activation.
func (c *Controller) openSession(info *session.Info) (callback.Output, error) {
	s, err := c.store.Open(info)
	if err != nil {
		return nil, err
	}
	sessions := c.sessions.WLock()
	defer c.sessions.WUnlock(&sessions)
	*sessions = append(*sessions, s)
	return s, nil
}

func (c *Controller) list() error {
	for _, p := range c.registry.List() {
		if _, err := fmt.Fprintf(c.out, "%s\t%s\t%s\n", p.ID, p.Name, p.Description); err != nil {
			return err
		}
		for _, param := range p.Parameters {
			if _, err := fmt.Fprintf(c.out, "\t%s=%s (%v)\t%s\n",
				param.Key, param.Value, param.Type, param.Description); err != nil {
				return err
			}
		}
	}
	return nil
}

// simulate attaches the selected profiler to a simulated runtime, drives
// it with a synthetic workload until it detaches and persists its reports.
func (c *Controller) simulate(ctx context.Context) error {
	clsid, err := libpf.ParseGUID(c.config.Simulate)
	if err != nil {
		return err
	}
	desc, ok := c.registry.Lookup(clsid)
	if !ok {
		return fmt.Errorf("unknown profiler %s, run with -list to see the known ones", clsid)
	}
	params, err := parseParameters(c.config.Parameters)
	if err != nil {
		return err
	}

	uploader, err := c.sessionUploader(ctx)
	if err != nil {
		return err
	}

	processName := c.config.ProcessName
	if processName == "" {
		processName = "simhost"
	}
	clientData, err := session.Marshal(&session.Info{
		ID:          libpf.NewRandomGUID(),
		ProcessName: processName,
		Profiler: session.ProfilerInfo{
			ID:          desc.Info.ID,
			Name:        desc.Info.Name,
			Description: desc.Info.Description,
			Parameters:  params,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	h := simhost.New()
	workload := simhost.NewWorkload(h, c.config.Threads, c.config.Seed)
	rt, err := simhost.Attach(binding.New(c.registry), h, clsid, clientData)
	if err != nil {
		return err
	}
	log.Infof("Attached %q (%v), waiting for it to detach", desc.Info.Name, rt.Version())

	runCtx := ctx
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	if err = workload.Run(runCtx, rt, c.config.Interval); err != nil {
		log.Warnf("Profiler still attached (%v), shutting the runtime down", err)
		err = rt.Shutdown()
	} else {
		err = rt.Wait(context.Background())
	}
	if err != nil {
		return ErrorWithExitCode{
			error: fmt.Errorf("profiler failed to finalize its session: %w", err),
			code:  ExitSessionFailed,
		}
	}
	c.logSummary()

	return c.upload(ctx, uploader)
}

// sessionUploader returns the configured uploader, or nil when finished
// sessions stay local.
func (c *Controller) sessionUploader(ctx context.Context) (Uploader, error) {
	u, err := c.uploader.GetOrInit(func() (Uploader, error) {
		if c.config.S3Bucket == "" {
			return nil, nil
		}
		s3, err := session.NewS3Uploader(ctx, c.config.S3Bucket,
			c.config.S3Prefix, c.config.S3Endpoint)
		if err != nil {
			return nil, err
		}
		return s3, nil
	})
	if err != nil {
		return nil, err
	}
	return *u, nil
}

func (c *Controller) logSummary() {
	summary := metrics.Snapshot()
	log.Debugf("Events dispatched: %d, dropped: %d, handler failures: %d",
		summary[metrics.IDEventsDispatched], summary[metrics.IDEventsDropped],
		summary[metrics.IDHandlerFailures])
	for _, s := range c.Sessions() {
		log.Infof("Reports of %v written to %s", s.Info(), s.Dir())
	}
}

func (c *Controller) upload(ctx context.Context, uploader Uploader) error {
	if uploader == nil {
		return nil
	}
	var errs []error
	for _, s := range c.Sessions() {
		uploadCtx, cancel := context.WithTimeout(ctx, times.UploadTimeout)
		err := uploader.Upload(uploadCtx, s)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to upload %v: %w", s.Info(), err))
			continue
		}
		log.Infof("Uploaded %v", s.Info())
	}
	return errors.Join(errs...)
}
