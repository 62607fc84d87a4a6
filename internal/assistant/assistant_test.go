// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package assistant

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/trackfinder/internal/config"
	"github.com/tomtom215/trackfinder/internal/logging"
	"github.com/tomtom215/trackfinder/internal/metrics"
	"github.com/tomtom215/trackfinder/internal/rules"
	"github.com/tomtom215/trackfinder/internal/search"
)

type fakeSearcher struct {
	mu   sync.Mutex
	reqs []search.Request
	err  error
}

func (f *fakeSearcher) Search(_ context.Context, req search.Request) (*search.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &search.Response{TotalCount: 3, Showing: "1-3"}, nil
}

func (f *fakeSearcher) last() search.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

type fakeCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(ctx context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.reply, f.err
}

func testLLMConfig() *config.LLMConfig {
	return &config.LLMConfig{
		Enabled: true,
		Timeout: time.Second,
		Breaker: config.BreakerConfig{
			MaxRequests:  1,
			Interval:     time.Minute,
			Timeout:      time.Minute,
			MinRequests:  1,
			FailureRatio: 0.5,
		},
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message string
		want    Route
	}{
		{"rockabilly", RouteFast},
		{"upbeat jazz piano", RouteFast},
		{"rock and roll 50s", RouteFast},
		{"rock?", RouteLLM},
		{"how about rock", RouteLLM},
		{"What works for a car commercial", RouteLLM},
		{"upbeat music for a summer commercial", RouteLLM},
		{"@mood:happy something for a long summer road trip video", RouteFast},
		{"@bpm:>=120", RouteFast},
		{"email@host", RouteFast},
		{"", RouteFast},
	}
	for _, tt := range tests {
		if got := Classify(tt.message); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.message, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	got := Parse("@Mood:Party/Celebration rock @bpm:>=120 @library:!Stock @id:RCK_RCK_0100_00101 @master_genre:Rock_&_Roll")
	if got.Text != "rock" {
		t.Errorf("Text = %q, want rock", got.Text)
	}
	wantFacets := map[string][]string{
		"mood":         {"Party/Celebration"},
		"master genre": {"Rock & Roll"},
	}
	if !reflect.DeepEqual(got.Facets, wantFacets) {
		t.Errorf("Facets = %v, want %v", got.Facets, wantFacets)
	}
	wantFilters := []rules.Filter{
		{Field: "bpm", Value: "120", Operator: "gte"},
		{Field: "library", Value: "Stock", Operator: "ne"},
		{Field: "id", Value: "RCK_RCK_0100_00101", Operator: "eq"},
	}
	if !reflect.DeepEqual(got.Filters, wantFilters) {
		t.Errorf("Filters = %+v, want %+v", got.Filters, wantFilters)
	}

	plain := Parse("  upbeat   rock ")
	if plain.Text != "upbeat rock" || plain.Facets != nil || plain.Filters != nil {
		t.Errorf("Parse(plain) = %+v", plain)
	}
}

func TestParseReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reply   string
		want    string
		wantErr bool
	}{
		{`{"query": "upbeat  rock party"}`, "upbeat rock party", false},
		{"```json\n{\"query\": \"retro synthwave\"}\n```", "retro synthwave", false},
		{`{"query": "   "}`, "", true},
		{`rock and roll`, "", true},
	}
	for _, tt := range tests {
		got, err := parseReply(tt.reply)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseReply(%q) = %q, %v; want %q, err %v", tt.reply, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestHandleWithoutLLM(t *testing.T) {
	t.Parallel()
	s := &fakeSearcher{}
	a := New(s, nil, testLLMConfig(), logging.Nop())

	resp, err := a.Handle(context.Background(), Request{Message: "what works for a car commercial?", Limit: 12})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Meta.Route != string(RouteFast) {
		t.Errorf("Route = %s, want fast", resp.Meta.Route)
	}
	if req := s.last(); req.Query != "what works for a car commercial?" || req.Limit != 12 {
		t.Errorf("search request = %+v", req)
	}
	if a.LLMEnabled() {
		t.Error("LLMEnabled() = true with a nil client")
	}
}

func TestHandleFastRouteKeepsTokens(t *testing.T) {
	t.Parallel()
	s := &fakeSearcher{}
	llm := &fakeCompleter{reply: `{"query":"unused"}`}
	a := New(s, llm, testLLMConfig(), logging.Nop())

	resp, err := a.Handle(context.Background(), Request{Message: "rock @has_stems:true", Offset: 12})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	req := s.last()
	if req.Query != "rock" || req.Offset != 12 || len(req.Filters) != 1 || req.Filters[0].Field != "has_stems" {
		t.Errorf("search request = %+v", req)
	}
	if resp.Meta.Route != string(RouteFast) || resp.Meta.ResolvedQuery != "rock" {
		t.Errorf("Meta = %+v", resp.Meta)
	}
	if llm.calls != 0 {
		t.Errorf("LLM called %d times on the fast route", llm.calls)
	}
}

func TestHandleLLMRewrite(t *testing.T) {
	t.Parallel()
	s := &fakeSearcher{}
	llm := &fakeCompleter{reply: `{"query": "upbeat rock party"}`}
	a := New(s, llm, testLLMConfig(), logging.Nop())

	resp, err := a.Handle(context.Background(), Request{Message: "I need something fun for a new year's eve party"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got := s.last().Query; got != "upbeat rock party" {
		t.Errorf("search query = %q, want the rewrite", got)
	}
	if resp.Meta.Route != string(RouteLLM) || resp.Meta.ResolvedQuery != "upbeat rock party" {
		t.Errorf("Meta = %+v", resp.Meta)
	}
}

// Not parallel: asserts on global counters.
func TestHandleFallsBackWhenLLMFails(t *testing.T) {
	s := &fakeSearcher{}
	llm := &fakeCompleter{err: errors.New("upstream 503")}
	a := New(s, llm, testLLMConfig(), logging.Nop())
	message := "something moody for a late night detective scene"

	errorsBefore := testutil.ToFloat64(metrics.LLMRequestsTotal.WithLabelValues("error"))
	rejectedBefore := testutil.ToFloat64(metrics.LLMRequestsTotal.WithLabelValues("rejected"))

	for i := 0; i < 3; i++ {
		resp, err := a.Handle(context.Background(), Request{Message: message})
		if err != nil {
			t.Fatalf("Handle() #%d error = %v", i, err)
		}
		if resp.Meta.Route != string(RouteFast) || s.last().Query != message {
			t.Errorf("Handle() #%d route %s query %q, want fast with raw message", i, resp.Meta.Route, s.last().Query)
		}
	}

	// The first failure opens the breaker; later calls never reach the model.
	if llm.calls != 1 {
		t.Errorf("LLM called %d times, want 1", llm.calls)
	}
	if got := testutil.ToFloat64(metrics.LLMRequestsTotal.WithLabelValues("error")) - errorsBefore; got != 1 {
		t.Errorf("error outcomes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.LLMRequestsTotal.WithLabelValues("rejected")) - rejectedBefore; got != 2 {
		t.Errorf("rejected outcomes = %v, want 2", got)
	}
}

func TestHandleInvalidReplyFallsBack(t *testing.T) {
	t.Parallel()
	s := &fakeSearcher{}
	llm := &fakeCompleter{reply: "Sure! Try searching for rock."}
	a := New(s, llm, testLLMConfig(), logging.Nop())

	resp, err := a.Handle(context.Background(), Request{Message: "could you find me some rock please"})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.Meta.Route != string(RouteFast) || s.last().Query != "could you find me some rock please" {
		t.Errorf("route %s query %q", resp.Meta.Route, s.last().Query)
	}
}

func TestHandleSearchError(t *testing.T) {
	t.Parallel()
	boom := errors.New("catalog unavailable")
	a := New(&fakeSearcher{err: boom}, nil, testLLMConfig(), logging.Nop())

	if _, err := a.Handle(context.Background(), Request{Message: "rock"}); !errors.Is(err, boom) {
		t.Errorf("Handle() error = %v, want wrapped search error", err)
	}
}

func TestHandleCanceledContext(t *testing.T) {
	t.Parallel()
	s := &fakeSearcher{}
	a := New(s, &fakeCompleter{reply: `{"query":"x"}`}, testLLMConfig(), logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Handle(ctx, Request{Message: "what should I use for a trailer"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Handle() error = %v, want context.Canceled", err)
	}
	if len(s.reqs) != 0 {
		t.Errorf("searched %d times after cancel", len(s.reqs))
	}
}
