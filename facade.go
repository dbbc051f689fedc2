// facade.go: the public façade — lookup state machine, cache-aside,
// stale-while-revalidate and tag invalidation.
//
// Grounded on the teacher's GetOrLoad/GetOrLoadWithContext (loading.go):
// the stampede-coordination, panic-recovery and context-aware waiting
// idiom, generalized from a plain get-or-load into the full hit/stale/
// expired/miss state machine of spec §4.5, plus cache.go's atomic
// bookkeeping discipline for the counters spec §4.6 names.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cascade

import (
	"context"
	"sync"
	"time"
)

// Cache is the caching façade: the public API described in spec §6. It
// orchestrates a Backend, a Coordinator, a TagIndex and Metrics to
// implement TTL/SWR policy, stampede protection and bulk invalidation
// over whichever backend it was constructed with.
type Cache struct {
	backend     Backend
	coordinator *Coordinator
	tags        *TagIndex
	metrics     *Metrics
	clock       Clock
	logger      Logger
	collector   MetricsCollector

	stampedeEnabled bool
	swrEnabled      bool

	instMu    sync.Mutex
	installed map[string]struct{}

	resolverMu sync.RWMutex
	res        *resolver
}

// New constructs a façade over backend using cfg's global defaults,
// category registry and injection points. cfg is validated (and defaulted
// in place) before use; a configuration error is returned immediately
// rather than surfacing lazily on first operation (spec §7).
func New(cfg Config, backend Backend) (*Cache, error) {
	if backend == nil {
		return nil, NewErrInvalidConfig("backend must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Cache{
		backend:         backend,
		coordinator:     NewCoordinator(),
		tags:            NewTagIndex(),
		metrics:         &Metrics{},
		clock:           cfg.Clock,
		logger:          cfg.Logger,
		collector:       cfg.MetricsCollector,
		stampedeEnabled: *cfg.EnableStampedeProtection,
		swrEnabled:      *cfg.EnableStaleWhileRevalidate,
		installed:       make(map[string]struct{}),
		res:             newResolver(cfg, cfg.Categories),
	}
	return c, nil
}

// Metrics returns a snapshot of the façade's operation counters.
func (c *Cache) Metrics() Snapshot {
	return c.metrics.Snapshot()
}

// Mode reports the underlying backend's storage mode.
func (c *Cache) Mode() Mode {
	return c.backend.Mode()
}

func (c *Cache) getResolver() *resolver {
	c.resolverMu.RLock()
	defer c.resolverMu.RUnlock()
	return c.res
}

// replaceCategories atomically swaps the category registry, keeping the
// current global defaults, and is used by HotCategories to apply a
// reloaded set of category defaults (spec §9 supplement: category
// registration was silent on runtime reload).
func (c *Cache) replaceCategories(categories map[string]CategoryDefaults) error {
	for name, cat := range categories {
		if err := cat.validate(); err != nil {
			return NewErrInvalidConfig("category " + name + ": " + errorReason(err))
		}
	}

	c.resolverMu.Lock()
	defer c.resolverMu.Unlock()

	old := c.res
	c.res = newResolver(Config{
		DefaultTTL:      old.globalTTL,
		DefaultSliding:  old.globalSliding,
		DefaultStaleTTL: old.globalStale,
	}, categories)
	return nil
}

// rawOf extracts the backend-appropriate raw value from an entry: the
// live object in object-mode, or the encoded payload in byte-mode.
func (c *Cache) rawOf(entry Entry) interface{} {
	if c.backend.Mode() == ModeByte {
		return entry.Payload
	}
	return entry.Value
}

func (c *Cache) markInstalled(key string) (wasNew bool) {
	c.instMu.Lock()
	defer c.instMu.Unlock()
	if _, ok := c.installed[key]; ok {
		return false
	}
	c.installed[key] = struct{}{}
	return true
}

func (c *Cache) clearInstalled(key string) (wasTracked bool) {
	c.instMu.Lock()
	defer c.instMu.Unlock()
	if _, ok := c.installed[key]; !ok {
		return false
	}
	delete(c.installed, key)
	return true
}

// evict performs the eviction bookkeeping shared by Get/Exists/GetOrSet on
// an Expired observation: untrack the key, decrement size and count an
// eviction iff the key was tracked, and detach its tags.
func (c *Cache) evict(key string) {
	if c.clearInstalled(key) {
		c.metrics.decSize()
		c.metrics.recordEviction()
		c.collector.RecordEviction()
	}
	c.tags.Detach(key)
}

// Get looks up key. A fresh or stale hit returns the stored value; a miss
// or expired entry returns found=false.
func (c *Cache) Get(ctx context.Context, key string) (interface{}, bool, error) {
	if !isMeaningful(key) {
		return nil, false, NewErrEmptyKey("Get")
	}

	start := time.Now()
	r, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}

	switch r.State {
	case StateHit:
		c.metrics.recordHit()
		c.collector.RecordGet(time.Since(start).Nanoseconds(), StateHit)
		return c.rawOf(r.Entry), true, nil
	case StateStale:
		c.metrics.recordStaleHit()
		c.collector.RecordGet(time.Since(start).Nanoseconds(), StateStale)
		return c.rawOf(r.Entry), true, nil
	case StateExpired:
		c.evict(key)
		c.collector.RecordGet(time.Since(start).Nanoseconds(), StateExpired)
		return nil, false, nil
	default: // StateMiss
		c.metrics.recordMiss()
		c.collector.RecordGet(time.Since(start).Nanoseconds(), StateMiss)
		return nil, false, nil
	}
}

// Exists reports whether key is present and fresh or stale, without
// decoding the value. Bookkeeping on an Expired observation matches Get.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if !isMeaningful(key) {
		return false, NewErrEmptyKey("Exists")
	}

	start := time.Now()
	r, err := c.backend.Get(ctx, key)
	if err != nil {
		return false, err
	}

	switch r.State {
	case StateHit:
		c.metrics.recordHit()
		c.collector.RecordGet(time.Since(start).Nanoseconds(), StateHit)
		return true, nil
	case StateStale:
		c.metrics.recordStaleHit()
		c.collector.RecordGet(time.Since(start).Nanoseconds(), StateStale)
		return true, nil
	case StateExpired:
		c.evict(key)
		c.collector.RecordGet(time.Since(start).Nanoseconds(), StateExpired)
		return false, nil
	default:
		c.metrics.recordMiss()
		c.collector.RecordGet(time.Since(start).Nanoseconds(), StateMiss)
		return false, nil
	}
}

// Set stores value under key, resolving TTL/sliding/stale/category
// options per the three-layer precedence of spec §4.1, and replaces the
// key's tag association (even with an empty tag list).
func (c *Cache) Set(ctx context.Context, key string, value interface{}, opts Options) error {
	if !isMeaningful(key) {
		return NewErrEmptyKey("Set")
	}
	return c.setRaw(ctx, key, value, opts)
}

// setRaw is the shared Set implementation used by the public Set and by
// GetOrSet's population paths.
func (c *Cache) setRaw(ctx context.Context, key string, value interface{}, opts Options) error {
	meta, err := c.getResolver().resolve(c.clock.Now(), opts)
	if err != nil {
		return err
	}

	entry := Entry{Metadata: meta}
	switch c.backend.Mode() {
	case ModeByte:
		payload, ok := value.([]byte)
		if !ok {
			return NewErrWrongMode(ModeByte)
		}
		entry.Payload = payload
	default:
		entry.Value = value
	}

	start := time.Now()
	if err := c.backend.Set(ctx, key, entry); err != nil {
		return err
	}

	wasNew := c.markInstalled(key)
	c.metrics.recordSet()
	if wasNew {
		c.metrics.incSize()
	}
	c.tags.Associate(key, opts.Tags)
	c.collector.RecordSet(time.Since(start).Nanoseconds())
	return nil
}

// Remove deletes key. Idempotent: removing an absent or already-removed
// key still succeeds and still counts as a removal (spec §4.5), but only
// decrements size if the key was tracked as installed.
func (c *Cache) Remove(ctx context.Context, key string) error {
	if !isMeaningful(key) {
		return NewErrEmptyKey("Remove")
	}

	start := time.Now()
	if err := c.backend.Remove(ctx, key); err != nil {
		return err
	}

	if c.clearInstalled(key) {
		c.metrics.decSize()
	}
	c.metrics.recordRemoval()
	c.tags.Detach(key)
	c.collector.RecordRemove(time.Since(start).Nanoseconds())
	return nil
}

// InvalidateTag removes every key currently associated with tag. An
// unregistered tag is a no-op, not an error.
func (c *Cache) InvalidateTag(ctx context.Context, tag string) error {
	if !isMeaningful(tag) {
		return NewErrEmptyTag("InvalidateTag")
	}
	keys := c.tags.KeysFor(tag)
	for _, key := range keys {
		if err := c.Remove(ctx, key); err != nil {
			return err
		}
	}
	c.collector.RecordInvalidation(len(keys))
	return nil
}

// InvalidateTags unions KeysFor across tags and removes each key once. An
// empty tag list is a no-op; any whitespace tag is a caller error.
func (c *Cache) InvalidateTags(ctx context.Context, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	union := make(map[string]struct{})
	for _, tag := range tags {
		if !isMeaningful(tag) {
			return NewErrEmptyTag("InvalidateTags")
		}
		for _, key := range c.tags.KeysFor(tag) {
			union[key] = struct{}{}
		}
	}
	for key := range union {
		if err := c.Remove(ctx, key); err != nil {
			return err
		}
	}
	c.collector.RecordInvalidation(len(union))
	return nil
}

// Factory loads the value for a missing or expired key, for use with
// GetOrSet.
type Factory func(ctx context.Context) (interface{}, error)

// GetOrSet implements cache-aside with stampede protection and SWR, per
// the state machine of spec §4.5.
func (c *Cache) GetOrSet(ctx context.Context, key string, factory Factory, opts Options) (interface{}, error) {
	if !isMeaningful(key) {
		return nil, NewErrEmptyKey("GetOrSet")
	}
	if factory == nil {
		return nil, NewErrNilFactory(key)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	r, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	switch r.State {
	case StateHit:
		c.metrics.recordHit()
		return c.rawOf(r.Entry), nil

	case StateStale:
		c.metrics.recordStaleHit()
		if c.swrEnabled {
			c.scheduleBackgroundRefresh(key, factory, opts)
			return c.rawOf(r.Entry), nil
		}
		return c.populate(ctx, key, factory, opts, false)

	case StateExpired:
		c.evict(key)
		return c.populate(ctx, key, factory, opts, true)

	default: // StateMiss
		return c.populate(ctx, key, factory, opts, false)
	}
}

// populate runs the cache-aside population path: with stampede protection
// it coalesces concurrent callers behind a single-flight lease; without
// it, every caller races the factory independently.
func (c *Cache) populate(ctx context.Context, key string, factory Factory, opts Options, evictionAlreadyRecorded bool) (interface{}, error) {
	if !c.stampedeEnabled {
		c.metrics.recordMiss()
		return c.runFactoryAndSet(ctx, key, factory, opts)
	}

	lease, err := c.coordinator.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	r, err := c.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if r.State == StateHit {
		// Another caller populated the key while we waited for the lease.
		c.metrics.recordHit()
		return c.rawOf(r.Entry), nil
	}
	if r.State == StateExpired && !evictionAlreadyRecorded {
		c.evict(key)
	}

	c.metrics.recordMiss()
	return c.runFactoryAndSet(ctx, key, factory, opts)
}

// runFactoryAndSet executes factory with panic recovery and, on success,
// writes the result through setRaw. A factory error propagates verbatim
// (spec §4.5/§7); nothing is written to the cache.
func (c *Cache) runFactoryAndSet(ctx context.Context, key string, factory Factory, opts Options) (interface{}, error) {
	val, err := callFactorySafely(ctx, key, factory)
	if err != nil {
		return nil, err
	}
	if err := c.setRaw(ctx, key, val, opts); err != nil {
		return nil, err
	}
	return val, nil
}

// callFactorySafely recovers a factory panic into a CASCADE_FACTORY_PANIC
// error rather than letting it cross the façade boundary.
func callFactorySafely(ctx context.Context, key string, factory Factory) (val interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			val = nil
			err = NewErrFactoryPanic(key, r)
		}
	}()
	return factory(ctx)
}

// scheduleBackgroundRefresh attempts a non-blocking SWR repopulation. If
// another refresh is already in flight for key, it does nothing. The
// refresh runs with a detached context so the triggering caller's
// cancellation never aborts it (spec §5/§9); failures are logged and
// swallowed, leaving the stale value in place until it exits its stale
// window.
func (c *Cache) scheduleBackgroundRefresh(key string, factory Factory, opts Options) {
	lease, ok := c.coordinator.TryAcquire(key)
	if !ok {
		return
	}

	go func() {
		defer lease.Release()

		val, err := callFactorySafely(context.Background(), key, factory)
		if err != nil {
			c.logger.Error("cascade: background refresh failed", "key", key, "error", err)
			return
		}
		if err := c.setRaw(context.Background(), key, val, opts); err != nil {
			c.logger.Error("cascade: background refresh write failed", "key", key, "error", err)
		}
	}()
}
