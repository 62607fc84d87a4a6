// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

// Package breaker wraps sony/gobreaker with the service's logging and
// metrics so every outbound dependency trips the same way.
package breaker

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/trackfinder/internal/metrics"
)

// Settings controls when a breaker opens and how it recovers.
type Settings struct {
	// MaxRequests is the number of trial requests allowed while half-open.
	MaxRequests uint32
	// Interval resets the failure counts while closed. Zero never resets.
	Interval time.Duration
	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration
	// MinRequests is the sample size needed before FailureRatio is checked.
	MinRequests uint32
	// FailureRatio opens the breaker once reached.
	FailureRatio float64
}

// DefaultSettings opens after 60% failures over at least 10 requests and
// retries after 30 seconds.
func DefaultSettings() Settings {
	return Settings{
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// ErrOpen is returned (wrapped) when a call is rejected without running.
var ErrOpen = errors.New("circuit breaker open")

// Breaker guards calls to one named dependency.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// New creates a Breaker. Errors for which ignore returns true are passed
// through without counting as failures (e.g. caller cancellation or a
// not-found answer).
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(name string, s Settings, logger zerolog.Logger, ignore func(error) bool) *Breaker {
	log := logger.With().Str("component", "circuit_breaker").Str("breaker", name).Logger()
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	if s.MinRequests == 0 {
		s.MinRequests = 1
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= s.FailureRatio {
				log.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", ratio*100).Msg("opening circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().Str("from", stateToString(from)).Str("to", stateToString(to)).Msg("circuit state transition")
			metrics.RecordCircuitBreakerTransition(name, stateToString(from), stateToString(to), stateToFloat(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || (ignore != nil && ignore(err))
		},
	})

	return &Breaker{cb: cb, name: name}
}

// Name returns the breaker name used in logs and metrics.
func (b *Breaker) Name() string { return b.name }

// State returns "closed", "half-open" or "open".
func (b *Breaker) State() string { return stateToString(b.cb.State()) }

// Do runs fn under the breaker. A rejected call returns an error wrapping
// ErrOpen.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	result, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%s: %w", b.name, ErrOpen)
		}
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker %s: unexpected result type %T", b.name, result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
