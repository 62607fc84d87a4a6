// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

// Package main is the entry point for the Trackfinder server.
//
// Startup order:
//
//  1. Configuration (koanf: defaults, config.yaml, environment)
//  2. DuckDB catalog, seeded from database.seed_path when empty
//  3. Business rules from rules.path
//  4. Search service with the rerank cache and circuit breaker
//  5. Assistant, with the LLM route when llm.enabled
//  6. BadgerDB project store
//  7. Rule reload events (in-process or NATS) when events.enabled
//  8. HTTP server, all under a suture supervisor tree
//
// SIGINT and SIGTERM cancel the tree; in-flight requests get
// server.shutdown_timeout to finish.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tomtom215/trackfinder/internal/api"
	"github.com/tomtom215/trackfinder/internal/assistant"
	"github.com/tomtom215/trackfinder/internal/catalog"
	"github.com/tomtom215/trackfinder/internal/config"
	"github.com/tomtom215/trackfinder/internal/events"
	"github.com/tomtom215/trackfinder/internal/logging"
	"github.com/tomtom215/trackfinder/internal/projects"
	"github.com/tomtom215/trackfinder/internal/ranking"
	"github.com/tomtom215/trackfinder/internal/rules"
	"github.com/tomtom215/trackfinder/internal/search"
	"github.com/tomtom215/trackfinder/internal/supervisor"
	"github.com/tomtom215/trackfinder/internal/supervisor/services"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logCfg.Caller = cfg.Logging.Caller
	logging.Init(logCfg)

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Trackfinder stopped with an error")
	}
	logging.Info().Msg("Trackfinder stopped")
}

//nolint:gocyclo // sequential wiring of every component
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.Logger()
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Str("rules_path", cfg.Rules.Path).
		Bool("llm", cfg.LLM.Enabled).
		Bool("events", cfg.Events.Enabled).
		Msg("Starting Trackfinder")

	cat, err := catalog.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer func() {
		if err := cat.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing catalog")
		}
	}()
	if seeded, err := cat.Seed(ctx); err != nil {
		return err
	} else if seeded {
		stats, _ := cat.Stats(ctx)
		logging.Info().
			Int("tracks", stats.Tracks).
			Int("facets", stats.Facets).
			Int("similarities", stats.Similarities).
			Msg("Catalog seeded")
	}

	provider, err := rules.NewFileProvider(ctx, cfg.Rules.Path, logger)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	searchCfg := search.DefaultConfig()
	searchCfg.WorkingSetSize = cfg.Search.WorkingSetSize
	searchCfg.CacheTTL = cfg.Cache.TTL
	searchCfg.CacheMaxEntries = cfg.Cache.MaxEntries
	searchCfg.SweepInterval = cfg.Cache.SweepInterval
	searchCfg.Weights = ranking.MergeWeights{
		TaxonomyBaseScore: cfg.Search.Weights.TaxonomyBase,
		TextFallbackScore: cfg.Search.Weights.TextFallback,
	}
	searchCfg.FacetCategories = cfg.Search.FacetCategories
	searchCfg.DefaultLimit = cfg.API.DefaultPageSize
	searchCfg.BuildTimeout = cfg.Server.RequestTimeout

	source := search.NewBreakerSource(cat, cfg.Search.Breaker.Settings(), logger)
	svc := search.NewService(source, provider, rules.NewMatcher(logger), ranking.NewExecutor(logger), searchCfg, logger)

	var llm assistant.Completer
	if cfg.LLM.Enabled {
		llm = assistant.NewOpenAIClient(&cfg.LLM)
		logging.Info().Str("model", cfg.LLM.Model).Msg("LLM query rewriting enabled")
	}
	asst := assistant.New(svc, llm, &cfg.LLM, logger)

	store, err := projects.Open(&cfg.Projects, cat, logger)
	if err != nil {
		return fmt.Errorf("open project store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing project store")
		}
	}()

	deps := api.Deps{
		Search:    svc,
		Assistant: asst,
		Rules:     provider,
		Tracks:    cat,
		Projects:  store,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout + 5*time.Second,
	})
	tree.AddRulesService(services.NewRunner("rerank-cache-sweeper", svc.SweepCache))
	tree.AddRulesService(services.NewRunner("rerank-cache-invalidator", svc.WatchRules))
	if cfg.Rules.Watch {
		tree.AddRulesService(services.NewRunner("rule-file-watcher", provider.Watch))
	}

	if cfg.Events.Enabled {
		bus, err := events.New(&cfg.Events, logger)
		if err != nil {
			return fmt.Errorf("start event bus: %w", err)
		}
		defer func() {
			if err := bus.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing event bus")
			}
		}()
		deps.Events = bus
		tree.AddMessagingService(services.NewRunner("rule-reload-listener", func(ctx context.Context) error {
			return bus.Listen(ctx, provider)
		}))
		logging.Info().Str("backend", cfg.Events.Backend).Str("topic", bus.Topic()).Msg("Rule reload events enabled")
	}

	handler := api.NewHandler(deps, cfg, logger)
	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, u := range report {
			logging.Warn().Str("service", u.Name).Msg("Service did not stop within the shutdown timeout")
		}
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("supervisor tree: %w", err)
	}
	return nil
}
