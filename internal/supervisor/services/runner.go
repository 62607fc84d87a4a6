// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package services

import (
	"context"
	"fmt"
)

// Runner supervises a blocking loop. A loop that returns early (nil or
// error) while ctx is still live is restarted by the supervisor.
type Runner struct {
	name string
	run  func(ctx context.Context) error
}

// NewRunner wraps run under name.
func NewRunner(name string, run func(ctx context.Context) error) *Runner {
	return &Runner{name: name, run: run}
}

// Serve implements suture.Service.
func (r *Runner) Serve(ctx context.Context) error {
	err := r.run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s: %w", r.name, err)
	}
	return fmt.Errorf("%s: stopped unexpectedly", r.name)
}

func (r *Runner) String() string { return r.name }
