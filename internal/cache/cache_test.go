// Trackfinder - Production Music Search Assistant
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trackfinder

package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type compositeKey struct {
	Query   string
	RuleIDs string
}

func TestTTLBasicOperations(t *testing.T) {
	t.Parallel()

	c := NewTTL[compositeKey, []string](time.Minute)
	k := compositeKey{Query: "rock", RuleIDs: "a,b"}

	c.Set(k, []string{"t1", "t2"})
	got, ok := c.Get(k)
	if !ok || len(got) != 2 {
		t.Fatalf("Get = %v, %v", got, ok)
	}

	if _, ok := c.Get(compositeKey{Query: "rock", RuleIDs: "a"}); ok {
		t.Error("different rule ids must be a different key")
	}
}

func TestTTLExpiration(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewTTL[string, int](5*time.Minute, WithClock(clock.Now))

	c.Set("k", 1)
	clock.Advance(5*time.Minute - time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired early")
	}

	clock.Advance(time.Second)
	if v, ok := c.Get("k"); ok {
		t.Fatalf("stale entry returned: %v", v)
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not removed, len = %d", c.Len())
	}

	stats := c.GetStats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Evictions != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestTTLSetWithTTL(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewTTL[string, string](time.Hour, WithClock(clock.Now))

	c.SetWithTTL("short", "v", time.Second)
	c.Set("long", "v")
	clock.Advance(2 * time.Second)

	if _, ok := c.Get("short"); ok {
		t.Error("short entry should be expired")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("long entry should be live")
	}
}

func TestTTLDeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	var evicted atomic.Int64
	c := NewTTL[string, int](time.Minute, WithEvictionHook(func(n int) { evicted.Add(int64(n)) }))

	c.Set("k", 1)
	c.Delete("k")
	c.Delete("k")
	c.Delete("missing")

	if _, ok := c.Get("k"); ok {
		t.Error("deleted entry returned")
	}
	if got := c.GetStats().Evictions; got != 1 {
		t.Errorf("evictions = %d, want 1", got)
	}
	if evicted.Load() != 1 {
		t.Errorf("hook saw %d evictions, want 1", evicted.Load())
	}
}

func TestTTLSweep(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewTTL[int, int](time.Minute, WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		c.Set(i, i)
	}
	clock.Advance(30 * time.Second)
	c.Set(99, 99)
	clock.Advance(31 * time.Second)

	if n := c.Sweep(); n != 5 {
		t.Errorf("first Sweep removed %d, want 5", n)
	}
	if n := c.Sweep(); n != 0 {
		t.Errorf("second Sweep removed %d, want 0", n)
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
	if !c.GetStats().LastCleanup.Equal(clock.Now()) {
		t.Error("LastCleanup not updated")
	}
}

func TestTTLDeleteFuncAndClear(t *testing.T) {
	t.Parallel()

	c := NewTTL[compositeKey, int](time.Minute)
	c.Set(compositeKey{"rock", "r1"}, 1)
	c.Set(compositeKey{"jazz", "r1"}, 2)
	c.Set(compositeKey{"jazz", "r2"}, 3)

	if n := c.DeleteFunc(func(k compositeKey) bool { return k.RuleIDs == "r1" }); n != 2 {
		t.Errorf("DeleteFunc removed %d, want 2", n)
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}

	c.Clear()
	if c.Len() != 0 || c.GetStats().TotalKeys != 0 {
		t.Errorf("Clear left %d entries", c.Len())
	}
}

func TestTTLMaxEntries(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewTTL[string, int](time.Minute, WithClock(clock.Now), WithMaxEntries(2))

	c.Set("a", 1)
	clock.Advance(time.Second)
	c.Set("b", 2)
	clock.Advance(time.Second)
	c.Set("c", 3)

	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	for _, k := range []string{"b", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s missing", k)
		}
	}

	// Overwriting an existing key never evicts.
	c.Set("c", 4)
	if c.Len() != 2 {
		t.Errorf("len = %d, want 2", c.Len())
	}
}

func TestStatsHitRate(t *testing.T) {
	t.Parallel()

	c := NewTTL[string, string](time.Minute)
	c.Set("key1", "value1")
	c.Get("key1")
	c.Get("key2")
	c.Get("key1")

	hitRate := c.GetStats().HitRate()
	expected := 66.66666666666667
	if hitRate < expected-0.01 || hitRate > expected+0.01 {
		t.Errorf("hit rate = %.2f, want %.2f", hitRate, expected)
	}
	if (Stats{}).HitRate() != 0 {
		t.Error("empty stats should have zero hit rate")
	}
}

func TestTTLRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	c := NewTTL[string, int](time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, 10*time.Millisecond) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestTTLConcurrency(t *testing.T) {
	t.Parallel()

	c := NewTTL[string, int](time.Minute, WithMaxEntries(50))
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := fmt.Sprintf("k%d", (g*200+i)%80)
				c.Set(k, i)
				c.Get(k)
				if i%17 == 0 {
					c.Delete(k)
				}
				if i%50 == 0 {
					c.Sweep()
				}
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("len = %d exceeds bound", c.Len())
	}
}

func TestGenerateKey(t *testing.T) {
	t.Parallel()

	type params struct {
		Query string
		Rules []string
	}

	k1 := GenerateKey("rerank", params{"rock", []string{"a"}})
	k2 := GenerateKey("rerank", params{"rock", []string{"a"}})
	k3 := GenerateKey("rerank", params{"rock", []string{"b"}})

	if k1 != k2 {
		t.Error("same params should generate the same key")
	}
	if k1 == k3 {
		t.Error("different params should generate different keys")
	}
}
