// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type fakeHTTPServer struct {
	listenErr   error
	shutdownErr error

	started   chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once
	listens   atomic.Int32
	shutdowns atomic.Int32
}

func newFakeHTTPServer() *fakeHTTPServer {
	return &fakeHTTPServer{started: make(chan struct{}, 1), stop: make(chan struct{})}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	f.listens.Add(1)
	select {
	case f.started <- struct{}{}:
	default:
	}
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	f.stopOnce.Do(func() { close(f.stop) })
	return f.shutdownErr
}

func waitStarted(t *testing.T, f *fakeHTTPServer) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(time.Second):
		t.Fatal("server did not start")
	}
}

func TestNewHTTPServerServiceDefaults(t *testing.T) {
	t.Parallel()

	for _, d := range []time.Duration{0, -5 * time.Second} {
		if svc := NewHTTPServerService(newFakeHTTPServer(), d); svc.shutdownTimeout != defaultShutdownTimeout {
			t.Errorf("timeout %v: got %v, want default", d, svc.shutdownTimeout)
		}
	}
	if got := NewHTTPServerService(newFakeHTTPServer(), time.Second).String(); got != "http-server" {
		t.Errorf("String() = %q", got)
	}
}

func TestHTTPServerServiceServe(t *testing.T) {
	t.Parallel()

	t.Run("drains on cancel", func(t *testing.T) {
		t.Parallel()
		srv := newFakeHTTPServer()
		svc := NewHTTPServerService(srv, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()
		waitStarted(t, srv)
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve() did not return after cancel")
		}
		if srv.shutdowns.Load() != 1 {
			t.Errorf("Shutdown called %d times, want 1", srv.shutdowns.Load())
		}
	})

	t.Run("bind failure", func(t *testing.T) {
		t.Parallel()
		bindErr := errors.New("bind: address already in use")
		srv := newFakeHTTPServer()
		srv.listenErr = bindErr

		if err := NewHTTPServerService(srv, time.Second).Serve(context.Background()); !errors.Is(err, bindErr) {
			t.Errorf("Serve() = %v, want bind error", err)
		}
	})

	t.Run("shutdown failure", func(t *testing.T) {
		t.Parallel()
		shutdownErr := errors.New("context deadline exceeded while draining")
		srv := newFakeHTTPServer()
		srv.shutdownErr = shutdownErr

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- NewHTTPServerService(srv, time.Second).Serve(ctx) }()
		waitStarted(t, srv)
		cancel()

		if err := <-errCh; !errors.Is(err, shutdownErr) {
			t.Errorf("Serve() = %v, want shutdown error", err)
		}
	})
}

func TestHTTPServerServiceUnderSupervisor(t *testing.T) {
	t.Parallel()
	srv := newFakeHTTPServer()

	sup := suture.New("test", suture.Spec{FailureBackoff: 10 * time.Millisecond, Timeout: 2 * time.Second})
	sup.Add(NewHTTPServerService(srv, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := sup.ServeBackground(ctx)
	waitStarted(t, srv)
	cancel()
	<-done

	if srv.shutdowns.Load() < 1 {
		t.Error("Shutdown was not called when the supervisor stopped")
	}
}
