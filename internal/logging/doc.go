// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

// Package logging provides centralized zerolog-based structured logging for Trackfinder.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("path", path).Msg("rules loaded")
//	logging.Ctx(ctx).Warn().Err(err).Msg("llm rewrite failed, using fast path")
//
// Components take a zerolog.Logger in their constructors and derive a
// component-scoped child:
//
//	logger = logger.With().Str("component", "search").Logger()
//
// # Configuration
//
// Environment Variables (mapped through internal/config):
//
//	LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - json, console (default: json)
//	LOG_CALLER  - true, false (default: false)
//
// # slog bridge
//
// SlogHandler adapts zerolog to log/slog for the supervisor tree (sutureslog)
// and the watermill event bus.
//
// Always terminate log chains with .Msg() or .Send(), otherwise nothing is emitted.
package logging
