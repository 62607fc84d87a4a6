// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/trackfinder/internal/breaker"
	"github.com/tomtom215/trackfinder/internal/config"
	"github.com/tomtom215/trackfinder/internal/metrics"
	"github.com/tomtom215/trackfinder/internal/search"
)

// errEmptyRewrite is returned when the model reply carries no keywords.
var errEmptyRewrite = errors.New("model reply has no query")

const systemPrompt = `You turn requests for production music into search keywords.
The catalog has track titles, descriptions, album titles, library names,
composers, genres and moods. Reply with a JSON object and nothing else:
{"query": "<3 to 8 space separated keywords>"}
Keep genre, mood, instrument, era and use-case words. Drop filler words.`

// Searcher runs ranked searches.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
}

// Request is one assistant message.
type Request struct {
	Message string `json:"message" validate:"required,max=1000"`
	Limit   int    `json:"limit,omitempty" validate:"gte=0"`
	Offset  int    `json:"offset,omitempty" validate:"gte=0"`
}

// Assistant routes messages to search, optionally through a chat model.
type Assistant struct {
	searcher Searcher
	llm      Completer
	breaker  *breaker.Breaker
	timeout  time.Duration
	logger   zerolog.Logger
}

// New wires an Assistant. A nil llm disables the LLM route.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(searcher Searcher, llm Completer, cfg *config.LLMConfig, logger zerolog.Logger) *Assistant {
	logger = logger.With().Str("component", "assistant").Logger()
	return &Assistant{
		searcher: searcher,
		llm:      llm,
		breaker:  breaker.New("llm", cfg.Breaker.Settings(), logger, isCallerGone),
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

func isCallerGone(err error) bool {
	return errors.Is(err, context.Canceled)
}

// LLMEnabled reports whether the LLM route is available.
func (a *Assistant) LLMEnabled() bool { return a.llm != nil }

// Handle answers one message. LLM failures fall back to the fast route
// with the raw message and are never returned to the caller.
func (a *Assistant) Handle(ctx context.Context, req Request) (*search.Response, error) {
	parsed := Parse(req.Message)
	route := Classify(req.Message)
	query := parsed.Text

	if route == RouteLLM {
		if a.llm == nil {
			route = RouteFast
		} else if rewritten, err := a.rewrite(ctx, req.Message); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.logger.Warn().Err(err).Msg("LLM rewrite failed, using fast route")
			route = RouteFast
		} else {
			query = rewritten
		}
	}
	metrics.RecordAssistantRoute(string(route))

	resp, err := a.searcher.Search(ctx, search.Request{
		Query:   query,
		Facets:  parsed.Facets,
		Filters: parsed.Filters,
		Limit:   req.Limit,
		Offset:  req.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("assistant search: %w", err)
	}
	resp.Meta.Route = string(route)
	resp.Meta.ResolvedQuery = query

	a.logger.Debug().
		Str("route", string(route)).
		Str("query", query).
		Int("total", resp.TotalCount).
		Msg("assistant message answered")
	return resp, nil
}

// rewrite asks the model for search keywords through the breaker.
func (a *Assistant) rewrite(ctx context.Context, message string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	reply, err := breaker.Do(a.breaker, func() (string, error) {
		return a.llm.Complete(ctx, systemPrompt, message)
	})
	if err != nil {
		if errors.Is(err, breaker.ErrOpen) {
			metrics.RecordLLMRequest("rejected")
		} else {
			metrics.RecordLLMRequest("error")
		}
		return "", err
	}

	query, err := parseReply(reply)
	if err != nil {
		metrics.RecordLLMRequest("invalid")
		return "", err
	}
	metrics.RecordLLMRequest("ok")
	return query, nil
}

// parseReply reads {"query": "..."} from a model reply, tolerating a
// surrounding markdown code fence.
func parseReply(reply string) (string, error) {
	reply = strings.TrimSpace(reply)
	if strings.HasPrefix(reply, "```") {
		reply = strings.TrimPrefix(reply, "```json")
		reply = strings.TrimPrefix(reply, "```")
		reply = strings.TrimSuffix(strings.TrimSpace(reply), "```")
	}

	var out struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(reply), &out); err != nil {
		return "", fmt.Errorf("decode model reply: %w", err)
	}
	query := strings.Join(strings.Fields(out.Query), " ")
	if query == "" {
		return "", errEmptyRewrite
	}
	return query, nil
}
