// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/trackfinder/internal/config"
	"github.com/tomtom215/trackfinder/internal/logging"
	"github.com/tomtom215/trackfinder/internal/metrics"
	"github.com/tomtom215/trackfinder/internal/rules"
)

type countingReloader struct {
	calls atomic.Int32
	err   error
}

func (r *countingReloader) Reload(ctx context.Context) (*rules.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return &rules.Snapshot{Version: uint64(n) + 1}, nil
}

// sharedChannel returns a persistent in-process pubsub, so messages
// published before a subscriber attaches are still delivered.
func sharedChannel(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	ch := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ch.Close() })
	return ch
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestListenReloadsOnRemoteNotice(t *testing.T) {
	t.Parallel()
	ch := sharedChannel(t)
	topic := "rules.reloaded.remote"
	a := NewWithPubSub(ch, ch, topic, logging.Nop())
	b := NewWithPubSub(ch, ch, topic, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ra, rb := &countingReloader{}, &countingReloader{}
	doneA, doneB := make(chan error, 1), make(chan error, 1)
	go func() { doneA <- a.Listen(ctx, ra) }()
	go func() { doneB <- b.Listen(ctx, rb) }()

	snap := &rules.Snapshot{Version: 7, Source: "rules.yaml", LoadedAt: time.Now()}
	if err := a.PublishReload(ctx, snap); err != nil {
		t.Fatalf("PublishReload() error = %v", err)
	}

	waitFor(t, "remote reload", func() bool { return rb.calls.Load() == 1 })
	waitFor(t, "consumed metric", func() bool {
		return testutil.ToFloat64(metrics.EventsConsumedTotal.WithLabelValues(topic, "ok")) == 2
	})
	if got := ra.calls.Load(); got != 0 {
		t.Errorf("publisher reloaded its own notice %d times", got)
	}
	if got := testutil.ToFloat64(metrics.EventsPublishedTotal.WithLabelValues(topic)); got != 1 {
		t.Errorf("published counter = %v, want 1", got)
	}

	cancel()
	for _, done := range []chan error{doneA, doneB} {
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Listen() = %v, want nil on cancel", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Listen() did not return after cancel")
		}
	}
}

func TestListenSurvivesBadMessages(t *testing.T) {
	t.Parallel()
	ch := sharedChannel(t)
	topic := "rules.reloaded.bad"
	b := NewWithPubSub(ch, ch, topic, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := &countingReloader{err: errors.New("rule file unreadable")}
	go func() { _ = b.Listen(ctx, r) }()

	if err := ch.Publish(topic, message.NewMessage(watermill.NewUUID(), []byte("{not json"))); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	other := NewWithPubSub(ch, ch, topic, logging.Nop())
	if err := other.PublishReload(ctx, &rules.Snapshot{Version: 2}); err != nil {
		t.Fatalf("PublishReload() error = %v", err)
	}

	waitFor(t, "failed reload", func() bool {
		return testutil.ToFloat64(metrics.EventsConsumedTotal.WithLabelValues(topic, "error")) == 1
	})
	if got := testutil.ToFloat64(metrics.EventsConsumedTotal.WithLabelValues(topic, "ok")); got != 1 {
		t.Errorf("ok counter = %v, want 1 for the malformed message", got)
	}
	// A failed reload is not redelivered.
	time.Sleep(50 * time.Millisecond)
	if got := r.calls.Load(); got != 1 {
		t.Errorf("Reload() called %d times, want 1", got)
	}
}

func TestPublishAfterClose(t *testing.T) {
	t.Parallel()
	b, err := New(&config.EventsConfig{Backend: "channel"}, logging.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if b.Topic() != "rules.reloaded" {
		t.Errorf("Topic() = %q, want rules.reloaded", b.Topic())
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := b.PublishReload(context.Background(), &rules.Snapshot{}); !errors.Is(err, ErrClosed) {
		t.Errorf("PublishReload() after Close = %v, want ErrClosed", err)
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	t.Parallel()
	if _, err := New(&config.EventsConfig{Backend: "kafka"}, logging.Nop()); err == nil {
		t.Error("New(kafka) should fail")
	}
}
