// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/trackfinder/internal/config"
	"github.com/tomtom215/trackfinder/internal/logging"
	"github.com/tomtom215/trackfinder/internal/metrics"
	"github.com/tomtom215/trackfinder/internal/rules"
)

// ErrClosed is returned when publishing on a closed bus.
var ErrClosed = errors.New("event bus is closed")

// RulesReloaded announces that one instance reloaded its rule file.
type RulesReloaded struct {
	EventID    string    `json:"event_id"`
	Origin     string    `json:"origin"`
	Version    uint64    `json:"version"`
	Source     string    `json:"source"`
	RuleCount  int       `json:"rule_count"`
	ReloadedAt time.Time `json:"reloaded_at"`
}

// Reloader is the part of rules.Provider the bus drives.
type Reloader interface {
	Reload(ctx context.Context) (*rules.Snapshot, error)
}

// Bus fans rule reloads out to every instance sharing the backend.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	topic      string
	origin     string
	logger     zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// New builds the bus for cfg.Backend: "channel" (in-process) or "nats".
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(cfg *config.EventsConfig, logger zerolog.Logger) (*Bus, error) {
	wmLogger := watermill.NewSlogLogger(logging.NewSlogLogger())

	switch cfg.Backend {
	case "nats":
		pub, sub, err := newNATS(cfg, wmLogger)
		if err != nil {
			return nil, err
		}
		return NewWithPubSub(pub, sub, cfg.Topic, logger), nil
	case "", "channel":
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, wmLogger)
		return NewWithPubSub(ch, ch, cfg.Topic, logger), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

// NewWithPubSub wraps an existing publisher and subscriber. Each bus gets
// its own origin id so it can skip its own announcements.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewWithPubSub(pub message.Publisher, sub message.Subscriber, topic string, logger zerolog.Logger) *Bus {
	if topic == "" {
		topic = "rules.reloaded"
	}
	origin := uuid.New().String()
	return &Bus{
		publisher:  pub,
		subscriber: sub,
		topic:      topic,
		origin:     origin,
		logger:     logger.With().Str("component", "events").Str("origin", origin[:8]).Logger(),
	}
}

// newNATS connects a core NATS publisher and subscriber. JetStream is
// disabled: a reload notice is only useful to instances that are running.
func newNATS(cfg *config.EventsConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
	marshaler := &wmNats.NATSMarshaler{}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.NATSURL,
		NatsOptions: natsOpts,
		Marshaler:   marshaler,
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("create nats publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.NATSURL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     30 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      marshaler,
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, nil, fmt.Errorf("create nats subscriber: %w", err)
	}
	return pub, sub, nil
}

// Topic returns the topic reload notices travel on.
func (b *Bus) Topic() string { return b.topic }

// PublishReload announces snap to the other instances.
func (b *Bus) PublishReload(ctx context.Context, snap *rules.Snapshot) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	event := RulesReloaded{
		EventID:    watermill.NewUUID(),
		Origin:     b.origin,
		Version:    snap.Version,
		Source:     snap.Source,
		RuleCount:  len(snap.Rules),
		ReloadedAt: snap.LoadedAt.UTC(),
	}
	payload, err := json.Marshal(&event)
	if err != nil {
		return fmt.Errorf("marshal reload event: %w", err)
	}

	msg := message.NewMessage(event.EventID, payload)
	msg.Metadata.Set("origin", b.origin)
	msg.SetContext(ctx)
	if err := b.publisher.Publish(b.topic, msg); err != nil {
		return fmt.Errorf("publish reload event: %w", err)
	}
	metrics.RecordEventPublished(b.topic)
	b.logger.Debug().Uint64("version", snap.Version).Msg("rule reload announced")
	return nil
}

// Listen reloads r whenever another instance announces a reload. It blocks
// until ctx is done or the subscription closes.
func (b *Bus) Listen(ctx context.Context, r Reloader) error {
	messages, err := b.subscriber.Subscribe(ctx, b.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			err := b.handle(ctx, msg, r)
			metrics.RecordEventConsumed(b.topic, err)
			if err != nil {
				// Nack would redeliver at once; a failing reload keeps the
				// previous snapshot, so the notice is acked either way.
				b.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("reload event failed")
			}
			msg.Ack()
		}
	}
}

func (b *Bus) handle(ctx context.Context, msg *message.Message, r Reloader) error {
	var event RulesReloaded
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		b.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed reload event")
		return nil
	}
	if event.Origin == b.origin {
		return nil
	}

	snap, err := r.Reload(ctx)
	if err != nil {
		return fmt.Errorf("reload rules: %w", err)
	}
	b.logger.Info().
		Str("from", event.Origin).
		Uint64("remote_version", event.Version).
		Uint64("version", snap.Version).
		Msg("rules reloaded on remote notice")
	return nil
}

// Close shuts down the publisher and subscriber.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	errs := []error{b.publisher.Close()}
	if any(b.subscriber) != any(b.publisher) {
		errs = append(errs, b.subscriber.Close())
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close event bus: %w", err)
	}
	return nil
}
