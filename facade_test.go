// facade_test.go: façade lookup state machine, cache-aside, SWR,
// stampede protection and tag invalidation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cascade

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestCache(t *testing.T, clock Clock, cfg Config) *Cache {
	t.Helper()
	cfg.Clock = clock
	c, err := New(cfg, NewObjectBackend(clock))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestFacadeSetGetRoundTrip(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	c := newTestCache(t, clock, DefaultConfig())
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v1", Options{TTL: time.Minute}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, found, err := c.Get(ctx, "k")
	if err != nil || !found || v != "v1" {
		t.Fatalf("Get = (%v, %v, %v), want (v1, true, nil)", v, found, err)
	}

	snap := c.Metrics()
	if snap.Hits != 1 || snap.Sets != 1 || snap.Size != 1 {
		t.Fatalf("Metrics() = %+v, want Hits=1 Sets=1 Size=1", snap)
	}
}

func TestFacadeGetMissAndEmptyKey(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	c := newTestCache(t, clock, DefaultConfig())
	ctx := context.Background()

	_, found, err := c.Get(ctx, "absent")
	if err != nil || found {
		t.Fatalf("Get(absent) = (_, %v, %v), want (false, nil)", found, err)
	}
	if snap := c.Metrics(); snap.Misses != 1 {
		t.Fatalf("Misses = %d, want 1", snap.Misses)
	}

	if _, _, err := c.Get(ctx, "   "); GetErrorCode(err) != ErrCodeEmptyKey {
		t.Fatalf("Get(whitespace) code = %q, want %q", GetErrorCode(err), ErrCodeEmptyKey)
	}
}

func TestFacadeExpiredGetEvictsAndDecrementsSize(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	c := newTestCache(t, clock, DefaultConfig())
	ctx := context.Background()

	_ = c.Set(ctx, "k", "v1", Options{TTL: time.Second})
	clock.Advance(2 * time.Second)

	_, found, err := c.Get(ctx, "k")
	if err != nil || found {
		t.Fatalf("Get after expiry = (_, %v, %v), want (false, nil)", found, err)
	}
	snap := c.Metrics()
	if snap.Evictions != 1 || snap.Size != 0 {
		t.Fatalf("Metrics() = %+v, want Evictions=1 Size=0", snap)
	}
}

func TestFacadeRemoveIdempotentAndUntrackedSizeUnaffected(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	c := newTestCache(t, clock, DefaultConfig())
	ctx := context.Background()

	if err := c.Remove(ctx, "never-set"); err != nil {
		t.Fatalf("Remove(never-set): %v", err)
	}
	if snap := c.Metrics(); snap.Removals != 1 || snap.Size != 0 {
		t.Fatalf("Metrics() = %+v, want Removals=1 Size=0", snap)
	}

	_ = c.Set(ctx, "k", "v1", Options{})
	if err := c.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if snap := c.Metrics(); snap.Size != 0 {
		t.Fatalf("Size = %d, want 0", snap.Size)
	}
}

func TestFacadeInvalidateTagRemovesAssociatedKeys(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	c := newTestCache(t, clock, DefaultConfig())
	ctx := context.Background()

	_ = c.Set(ctx, "k1", "v1", Options{Tags: []string{"group"}})
	_ = c.Set(ctx, "k2", "v2", Options{Tags: []string{"group"}})
	_ = c.Set(ctx, "k3", "v3", Options{})

	if err := c.InvalidateTag(ctx, "group"); err != nil {
		t.Fatalf("InvalidateTag: %v", err)
	}

	if _, found, _ := c.Get(ctx, "k1"); found {
		t.Fatal("k1 still present after InvalidateTag")
	}
	if _, found, _ := c.Get(ctx, "k2"); found {
		t.Fatal("k2 still present after InvalidateTag")
	}
	if _, found, _ := c.Get(ctx, "k3"); !found {
		t.Fatal("k3 removed despite not sharing the tag")
	}
}

func TestFacadeInvalidateTagsUnionsAcrossTags(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	c := newTestCache(t, clock, DefaultConfig())
	ctx := context.Background()

	_ = c.Set(ctx, "k1", "v1", Options{Tags: []string{"a"}})
	_ = c.Set(ctx, "k2", "v2", Options{Tags: []string{"b"}})
	_ = c.Set(ctx, "k3", "v3", Options{Tags: []string{"a", "b"}})

	if err := c.InvalidateTags(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("InvalidateTags: %v", err)
	}
	for _, key := range []string{"k1", "k2", "k3"} {
		if _, found, _ := c.Get(ctx, key); found {
			t.Fatalf("%s still present after InvalidateTags", key)
		}
	}
}

func TestFacadeGetOrSetPopulatesOnMiss(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	c := newTestCache(t, clock, DefaultConfig())
	ctx := context.Background()

	var calls int32
	factory := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "loaded", nil
	}

	v, err := c.GetOrSet(ctx, "k", factory, Options{TTL: time.Minute})
	if err != nil || v != "loaded" {
		t.Fatalf("GetOrSet = (%v, %v), want (loaded, nil)", v, err)
	}
	if calls != 1 {
		t.Fatalf("factory calls = %d, want 1", calls)
	}

	// Second call hits the cache; factory must not run again.
	v2, err := c.GetOrSet(ctx, "k", factory, Options{TTL: time.Minute})
	if err != nil || v2 != "loaded" {
		t.Fatalf("GetOrSet (2nd) = (%v, %v)", v2, err)
	}
	if calls != 1 {
		t.Fatalf("factory calls after hit = %d, want 1", calls)
	}
}

func TestFacadeGetOrSetNilFactory(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	c := newTestCache(t, clock, DefaultConfig())
	_, err := c.GetOrSet(context.Background(), "k", nil, Options{})
	if GetErrorCode(err) != ErrCodeNilFactory {
		t.Fatalf("code = %q, want %q", GetErrorCode(err), ErrCodeNilFactory)
	}
}

func TestFacadeGetOrSetFactoryErrorPropagatesVerbatimAndWritesNothing(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	c := newTestCache(t, clock, DefaultConfig())
	ctx := context.Background()

	sentinel := errors.New("upstream unavailable")
	_, err := c.GetOrSet(ctx, "k", func(context.Context) (interface{}, error) {
		return nil, sentinel
	}, Options{})
	if !errors.Is(err, sentinel) {
		t.Fatalf("error = %v, want sentinel propagated verbatim", err)
	}

	if _, found, _ := c.Get(ctx, "k"); found {
		t.Fatal("a failed factory must not write to the cache")
	}
}

func TestFacadeGetOrSetFactoryPanicIsRecovered(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	c := newTestCache(t, clock, DefaultConfig())
	ctx := context.Background()

	_, err := c.GetOrSet(ctx, "k", func(context.Context) (interface{}, error) {
		panic("boom")
	}, Options{})
	if GetErrorCode(err) != ErrCodeFactoryPanic {
		t.Fatalf("code = %q, want %q", GetErrorCode(err), ErrCodeFactoryPanic)
	}
}

func TestFacadeGetOrSetStampedeProtectionCoalescesFactory(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	c := newTestCache(t, clock, DefaultConfig())
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	factory := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "loaded", nil
	}

	const n = 20
	var wg sync.WaitGroup
	results := make([]interface{}, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrSet(ctx, "k", factory, Options{TTL: time.Minute})
			if err != nil {
				t.Errorf("GetOrSet[%d]: %v", i, err)
				return
			}
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond) // let every goroutine queue up behind the lease
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Fatalf("factory calls = %d, want exactly 1 under stampede protection", calls)
	}
	for i, v := range results {
		if v != "loaded" {
			t.Fatalf("results[%d] = %v, want loaded", i, v)
		}
	}
}

func TestFacadeGetOrSetWithoutStampedeProtectionAllowsConcurrentFactory(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	cfg := DefaultConfig()
	cfg.EnableStampedeProtection = boolPtr(false)
	c := newTestCache(t, clock, cfg)
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	factory := func(context.Context) (interface{}, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			<-release // first caller blocks so the second can race in
		}
		return "loaded", nil
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = c.GetOrSet(ctx, "k", factory, Options{})
	}()
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		_, _ = c.GetOrSet(ctx, "k", factory, Options{})
		close(release)
	}()
	wg.Wait()

	if calls < 2 {
		t.Fatalf("factory calls = %d, want both callers to race the factory without coordination", calls)
	}
}

func TestFacadeGetOrSetStaleWithSWRReturnsStaleAndRefreshesInBackground(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	c := newTestCache(t, clock, DefaultConfig())
	ctx := context.Background()

	_ = c.Set(ctx, "k", "stale-value", Options{TTL: time.Second, StaleTTL: time.Minute})
	clock.Advance(2 * time.Second) // now stale, not yet expired

	refreshed := make(chan struct{})
	v, err := c.GetOrSet(ctx, "k", func(context.Context) (interface{}, error) {
		close(refreshed)
		return "fresh-value", nil
	}, Options{TTL: time.Second, StaleTTL: time.Minute})
	if err != nil {
		t.Fatalf("GetOrSet: %v", err)
	}
	if v != "stale-value" {
		t.Fatalf("GetOrSet = %v, want the stale value returned immediately", v)
	}

	select {
	case <-refreshed:
	case <-time.After(time.Second):
		t.Fatal("background refresh factory was never invoked")
	}
}

func TestFacadeGetOrSetStaleWithoutSWRRepopulatesSynchronously(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	cfg := DefaultConfig()
	cfg.EnableStaleWhileRevalidate = boolPtr(false)
	c := newTestCache(t, clock, cfg)
	ctx := context.Background()

	_ = c.Set(ctx, "k", "stale-value", Options{TTL: time.Second, StaleTTL: time.Minute})
	clock.Advance(2 * time.Second)

	v, err := c.GetOrSet(ctx, "k", func(context.Context) (interface{}, error) {
		return "fresh-value", nil
	}, Options{TTL: time.Second, StaleTTL: time.Minute})
	if err != nil {
		t.Fatalf("GetOrSet: %v", err)
	}
	if v != "fresh-value" {
		t.Fatalf("GetOrSet = %v, want synchronous repopulation to fresh-value", v)
	}
}

func TestFacadeGetOrSetExpiredRepopulates(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	c := newTestCache(t, clock, DefaultConfig())
	ctx := context.Background()

	_ = c.Set(ctx, "k", "old", Options{TTL: time.Second})
	clock.Advance(5 * time.Second) // expired, no stale window

	v, err := c.GetOrSet(ctx, "k", func(context.Context) (interface{}, error) {
		return "new", nil
	}, Options{TTL: time.Second})
	if err != nil || v != "new" {
		t.Fatalf("GetOrSet = (%v, %v), want (new, nil)", v, err)
	}
	if snap := c.Metrics(); snap.Evictions != 1 {
		t.Fatalf("Evictions = %d, want 1", snap.Evictions)
	}
}

func TestFacadeByteModeRejectsNonByteValue(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	cfg := DefaultConfig()
	c, err := New(cfg, NewByteBackend(newMemStore(), clock))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = c.Set(context.Background(), "k", "not-bytes", Options{})
	if GetErrorCode(err) != ErrCodeWrongMode {
		t.Fatalf("code = %q, want %q", GetErrorCode(err), ErrCodeWrongMode)
	}
}

func TestFacadeReplaceCategoriesAppliesToSubsequentResolves(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	c := newTestCache(t, clock, DefaultConfig())
	ctx := context.Background()

	if err := c.replaceCategories(map[string]CategoryDefaults{"session": {TTL: 42 * time.Second}}); err != nil {
		t.Fatalf("replaceCategories: %v", err)
	}

	if err := c.Set(ctx, "k", "v", Options{Category: "session"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	clock.Advance(41 * time.Second)
	if _, found, _ := c.Get(ctx, "k"); !found {
		t.Fatal("entry expired before its replaced category's ttl elapsed")
	}
}
