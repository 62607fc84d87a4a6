// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package rules

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// Snapshot is an immutable, versioned view of the configured rules.
// Callers must not modify Rules.
type Snapshot struct {
	Version  uint64    `json:"version"`
	LoadedAt time.Time `json:"loaded_at"`
	Source   string    `json:"source"`
	Rules    []Rule    `json:"rules"`
}

// Provider supplies rule snapshots. Implementations are safe for concurrent use.
type Provider interface {
	// Snapshot returns the current snapshot. It never returns nil.
	Snapshot() *Snapshot
	// Reload re-reads the backing source and publishes a new snapshot.
	// On failure the previous snapshot stays current.
	Reload(ctx context.Context) (*Snapshot, error)
	// Subscribe delivers every newly published snapshot. Slow subscribers
	// only see the latest one. The returned func unsubscribes.
	Subscribe() (<-chan *Snapshot, func())
}

// holder implements the snapshot bookkeeping shared by providers.
type holder struct {
	current atomic.Pointer[Snapshot]
	version atomic.Uint64

	subMu sync.Mutex
	subs  map[int]chan *Snapshot
	next  int
}

func (h *holder) Snapshot() *Snapshot {
	if s := h.current.Load(); s != nil {
		return s
	}
	return &Snapshot{}
}

func (h *holder) publish(source string, rules []Rule, now time.Time) *Snapshot {
	s := &Snapshot{
		Version:  h.version.Add(1),
		LoadedAt: now,
		Source:   source,
		Rules:    append([]Rule(nil), rules...),
	}
	h.current.Store(s)

	h.subMu.Lock()
	for _, ch := range h.subs {
		select {
		case ch <- s:
		default:
			// Replace the stale pending snapshot with the newest one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
	h.subMu.Unlock()
	return s
}

func (h *holder) Subscribe() (<-chan *Snapshot, func()) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]chan *Snapshot)
	}
	id := h.next
	h.next++
	ch := make(chan *Snapshot, 1)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.subMu.Lock()
			delete(h.subs, id)
			h.subMu.Unlock()
		})
	}
}

// StaticProvider serves an in-memory rule list.
type StaticProvider struct {
	holder
	mu    sync.Mutex
	rules []Rule
}

// NewStaticProvider publishes rules as version 1.
func NewStaticProvider(rules []Rule) *StaticProvider {
	p := &StaticProvider{rules: append([]Rule(nil), rules...)}
	p.publish("static", p.rules, time.Now())
	return p
}

// Set replaces the rule list and publishes a new snapshot.
func (p *StaticProvider) Set(rules []Rule) *Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules = append([]Rule(nil), rules...)
	return p.publish("static", p.rules, time.Now())
}

// Reload republishes the current list under a new version.
func (p *StaticProvider) Reload(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.publish("static", p.rules, time.Now()), nil
}

// FileProvider loads rules from a YAML (or JSON) file of the form
//
//	rules:
//	  - id: rockabilly-simplify
//	    type: genre_simplification
//	    pattern: '\brockabilly\b'
//	    priority: 100
//	    action:
//	      auto_apply_facets: ["Rockabilly"]
type FileProvider struct {
	holder
	path   string
	logger zerolog.Logger

	reloadMu sync.Mutex
}

// NewFileProvider loads path once and returns the provider. The file must
// exist and parse; individual bad rules are logged and dropped.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewFileProvider(ctx context.Context, path string, logger zerolog.Logger) (*FileProvider, error) {
	p := &FileProvider{
		path:   path,
		logger: logger.With().Str("component", "rule_provider").Str("path", path).Logger(),
	}
	if _, err := p.Reload(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload re-reads the rule file.
func (p *FileProvider) Reload(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	docs, err := loadDocuments(p.path)
	if err != nil {
		p.logger.Error().Err(err).Msg("rule reload failed, keeping previous snapshot")
		return nil, err
	}

	decoded, errs := Decode(docs)
	for _, e := range errs {
		p.logger.Warn().Err(e).Msg("skipping invalid rule")
	}

	s := p.publish(p.path, decoded, time.Now())
	p.logger.Info().
		Uint64("version", s.Version).
		Int("rules", len(decoded)).
		Int("rejected", len(errs)).
		Msg("rules loaded")
	return s, nil
}

// Watch reloads the snapshot whenever the file changes. It blocks until
// ctx is canceled.
func (p *FileProvider) Watch(ctx context.Context) error {
	w := file.Provider(p.path)
	err := w.Watch(func(_ interface{}, err error) {
		if err != nil {
			p.logger.Warn().Err(err).Msg("rule file watch error")
			return
		}
		if _, err := p.Reload(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Warn().Err(err).Msg("reload after file change failed")
		}
	})
	if err != nil {
		return fmt.Errorf("watch rule file: %w", err)
	}

	<-ctx.Done()
	if err := w.Unwatch(); err != nil {
		p.logger.Debug().Err(err).Msg("unwatch rule file")
	}
	return ctx.Err()
}

func loadDocuments(path string) ([]Document, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load rule file %s: %w", path, err)
	}

	var docs []Document
	if err := k.Unmarshal("rules", &docs); err != nil {
		return nil, fmt.Errorf("decode rule file %s: %w", path, err)
	}
	return docs, nil
}
