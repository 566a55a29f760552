// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package controller // import "github.com/drdotnet/agent/internal/controller"

import (
	"io"
)

type Option interface {
	applyOption(*Controller) *Controller
}
type controllerOptionFunc func(*Controller) *Controller

func (f controllerOptionFunc) applyOption(c *Controller) *Controller {
	return f(c)
}

// WithUploader sets the uploader finished sessions are handed to.
// This defaults to a [session.S3Uploader] when an S3 bucket is configured.
func WithUploader(u Uploader) Option {
	return controllerOptionFunc(func(c *Controller) *Controller {
		_, _ = c.uploader.GetOrInit(func() (Uploader, error) { return u, nil })
		return c
	})
}

// WithOutput sets where the profiler list is printed. This defaults to
// os.Stdout.
func WithOutput(w io.Writer) Option {
	return controllerOptionFunc(func(c *Controller) *Controller {
		c.out = w
		return c
	})
}
