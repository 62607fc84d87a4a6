// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

func TestRunnerServe(t *testing.T) {
	t.Parallel()

	watchErr := errors.New("fsnotify: too many open files")
	tests := []struct {
		name    string
		run     func(ctx context.Context) error
		cancel  bool
		wantErr func(error) bool
	}{
		{
			name:    "error is wrapped with the name",
			run:     func(context.Context) error { return watchErr },
			wantErr: func(err error) bool { return errors.Is(err, watchErr) && strings.HasPrefix(err.Error(), "rule-watcher:") },
		},
		{
			name:    "early nil return is a failure",
			run:     func(context.Context) error { return nil },
			wantErr: func(err error) bool { return err != nil && strings.Contains(err.Error(), "stopped unexpectedly") },
		},
		{
			name:    "cancel reports the context error",
			run:     func(ctx context.Context) error { <-ctx.Done(); return nil },
			cancel:  true,
			wantErr: func(err error) bool { return errors.Is(err, context.Canceled) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				cancel()
			}
			r := NewRunner("rule-watcher", tt.run)
			if err := r.Serve(ctx); !tt.wantErr(err) {
				t.Errorf("Serve() = %v", err)
			}
			if r.String() != "rule-watcher" {
				t.Errorf("String() = %q", r.String())
			}
		})
	}
}

func TestRunnerRestartsUnderSupervisor(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	r := NewRunner("flaky", func(ctx context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("subscription closed")
		}
		<-ctx.Done()
		return nil
	})

	sup := suture.New("test", suture.Spec{FailureThreshold: 10, FailureBackoff: 10 * time.Millisecond, Timeout: time.Second})
	sup.Add(r)
	ctx, cancel := context.WithCancel(context.Background())
	done := sup.ServeBackground(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("runner started %d times, want 3", calls.Load())
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done
}
