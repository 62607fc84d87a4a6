// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package rules

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const sampleRuleFile = `
rules:
  - id: rockabilly-simplify
    type: genre_simplification
    pattern: '\brockabilly\b'
    priority: 100
    description: Expand rockabilly to its taxonomy facet
    action:
      auto_apply_facets: ["Rockabilly"]
  - id: stock-boost
    type: library_boost
    pattern: 'commercial'
    priority: 90
    action:
      boost_libraries:
        - library_name: Stock Library
          boost_factor: 3
  - id: fresh-mix
    type: recency_interleaving
    pattern: 'new|fresh'
    priority: 80
    enabled: false
    action:
      pattern: RRV
      recent_threshold_months: 12
      repeat_count: 3
  - id: mystery
    type: teleport
    pattern: 'x'
    action: {}
  - id: broken-boost
    type: feature_boost
    pattern: 'stems'
    action:
      boost_field: has_stems
      boost_value: "true"
      boost_factor: 0
`

func writeRuleFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rule file: %v", err)
	}
	return path
}

func TestFileProvider_Load(t *testing.T) {
	t.Parallel()

	path := writeRuleFile(t, sampleRuleFile)
	p, err := NewFileProvider(context.Background(), path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileProvider: %v", err)
	}

	snap := p.Snapshot()
	if snap.Version != 1 {
		t.Errorf("Version = %d, want 1", snap.Version)
	}
	if got := IDs(snap.Rules); len(got) != 3 || got[0] != "rockabilly-simplify" || got[1] != "stock-boost" || got[2] != "fresh-mix" {
		t.Fatalf("rules = %v, want [rockabilly-simplify stock-boost fresh-mix]", got)
	}

	boost, ok := snap.Rules[1].Action.(LibraryBoost)
	if !ok {
		t.Fatalf("stock-boost action = %T, want LibraryBoost", snap.Rules[1].Action)
	}
	if boost.BoostLibraries[0].LibraryName != "Stock Library" || boost.BoostLibraries[0].BoostFactor != 3 {
		t.Errorf("unexpected boost payload: %+v", boost)
	}
	if !snap.Rules[0].Enabled {
		t.Error("expected enabled to default to true")
	}
	if snap.Rules[2].Enabled {
		t.Error("expected fresh-mix to be disabled")
	}
}

func TestFileProvider_ReloadAndSubscribe(t *testing.T) {
	t.Parallel()

	path := writeRuleFile(t, sampleRuleFile)
	p, err := NewFileProvider(context.Background(), path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileProvider: %v", err)
	}

	ch, unsubscribe := p.Subscribe()
	defer unsubscribe()

	updated := `
rules:
  - id: only-one
    type: filter_optimization
    pattern: 'stems'
    priority: 5
    action:
      auto_apply_filter: {field: has_stems, value: "true"}
`
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	snap, err := p.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if snap.Version != 2 {
		t.Errorf("Version = %d, want 2", snap.Version)
	}

	select {
	case got := <-ch:
		if got.Version != 2 {
			t.Errorf("notified version = %d, want 2", got.Version)
		}
		f := got.Rules[0].Action.(FilterOptimization)
		if f.AutoApplyFilter.Operator != "eq" {
			t.Errorf("Operator = %q, want default eq", f.AutoApplyFilter.Operator)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot notification")
	}
}

func TestFileProvider_BadFileKeepsSnapshot(t *testing.T) {
	t.Parallel()

	path := writeRuleFile(t, sampleRuleFile)
	p, err := NewFileProvider(context.Background(), path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileProvider: %v", err)
	}

	if err := os.WriteFile(path, []byte("rules: [this is: not: yaml"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if _, err := p.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}
	if got := p.Snapshot(); got.Version != 1 || len(got.Rules) != 3 {
		t.Errorf("snapshot changed after failed reload: v%d with %d rules", got.Version, len(got.Rules))
	}
}

func TestNewFileProvider_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := NewFileProvider(context.Background(), filepath.Join(t.TempDir(), "none.yaml"), zerolog.Nop()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestStaticProvider(t *testing.T) {
	t.Parallel()

	p := NewStaticProvider([]Rule{testRule("a", 1, "x")})
	ch, unsubscribe := p.Subscribe()
	defer unsubscribe()

	// Two publishes before anyone reads: only the newest is delivered.
	p.Set([]Rule{testRule("b", 1, "x")})
	p.Set([]Rule{testRule("c", 1, "x")})

	got := <-ch
	if got.Version != 3 || got.Rules[0].ID != "c" {
		t.Errorf("got v%d %v, want v3 [c]", got.Version, IDs(got.Rules))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Reload(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Reload(canceled) = %v, want context.Canceled", err)
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	no := false
	docs := []Document{
		{ID: "a", Type: "library_boost", Pattern: "x", Action: map[string]interface{}{
			"boost_libraries": []interface{}{map[string]interface{}{"library_name": "L", "boost_factor": 2.0}},
		}},
		{ID: "a", Type: "filter_optimization", Pattern: "y", Action: map[string]interface{}{
			"auto_apply_filter": map[string]interface{}{"field": "f", "value": "v"},
		}},
		{ID: "b", Type: "Recency_Interleaving", Pattern: "z", Enabled: &no, Action: map[string]interface{}{
			"pattern": "RV", "recent_threshold_months": 12, "vintage_max_months": 6,
		}},
		{ID: "c", Type: "unknown_kind", Pattern: "z"},
		{ID: "", Type: "library_boost", Pattern: "z"},
		{ID: "d", Type: "recency_decay", Pattern: "old", Action: map[string]interface{}{
			"half_life_months": 24, "min_factor": 0.25,
		}},
	}

	got, errs := Decode(docs)
	if ids := IDs(got); len(ids) != 2 || ids[0] != "a" || ids[1] != "d" {
		t.Fatalf("decoded ids = %v, want [a d]", ids)
	}
	if len(errs) != 4 {
		t.Fatalf("expected 4 errors, got %d: %v", len(errs), errs)
	}

	var unknown bool
	for _, e := range errs {
		if errors.Is(e, ErrUnknownType) {
			unknown = true
			if !strings.Contains(e.Error(), "genre_simplification, library_boost") {
				t.Errorf("unknown type error does not list the known types: %v", e)
			}
		}
	}
	if !unknown {
		t.Error("expected an ErrUnknownType error")
	}
}
