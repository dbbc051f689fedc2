// ttl.go: TTL resolution pipeline
//
// Merges per-operation options, per-category defaults and global defaults
// into a concrete EntryMetadata, per spec §4.1.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cascade

import "time"

// Options carries the per-operation settings recognized by Set and
// GetOrSet. The zero value means "use category/global defaults."
type Options struct {
	// TTL is an absolute time-to-live. Mutually exclusive with Sliding.
	TTL time.Duration
	// Sliding is a sliding expiration window, reset on every fresh read.
	// Mutually exclusive with TTL.
	Sliding time.Duration
	// StaleTTL enables stale-while-revalidate with the given grace
	// window past expiration.
	StaleTTL time.Duration
	// Tags replaces the entry's tag set for bulk invalidation. An empty
	// or nil Tags on Set clears any prior tag association for the key.
	Tags []string
	// Category selects a registered set of category defaults.
	Category string
}

// validate checks caller-supplied invariants: conflicting TTL/Sliding and
// non-positive durations where a value was actually supplied. It does not
// touch any backend or metric.
func (o Options) validate() error {
	if o.TTL > 0 && o.Sliding > 0 {
		return NewErrConflictingTTL("options")
	}
	if o.TTL < 0 {
		return NewErrInvalidDuration("ttl", o.TTL)
	}
	if o.Sliding < 0 {
		return NewErrInvalidDuration("sliding", o.Sliding)
	}
	if o.StaleTTL < 0 {
		return NewErrInvalidDuration("staleTtl", o.StaleTTL)
	}
	for _, tag := range o.Tags {
		if !isMeaningful(tag) {
			return NewErrEmptyTag("options.tags")
		}
	}
	return nil
}

// CategoryDefaults is a named, pre-validated set of default options
// selectable via Options.Category.
type CategoryDefaults struct {
	TTL      time.Duration
	Sliding  time.Duration
	StaleTTL time.Duration
}

// validate mirrors Options.validate for category registration, which
// happens once rather than per-operation.
func (c CategoryDefaults) validate() error {
	if c.TTL > 0 && c.Sliding > 0 {
		return NewErrConflictingTTL("category")
	}
	if c.TTL < 0 || c.Sliding < 0 || c.StaleTTL < 0 {
		return NewErrInvalidDuration("category", c)
	}
	return nil
}

// resolver merges the three layers of spec §4.1 into a concrete
// EntryMetadata. It is owned by the façade and rebuilt wholesale whenever
// the category registry is replaced (see Cache.replaceCategories in
// facade.go, driven by hotcategories.go); global defaults are fixed at New.
type resolver struct {
	globalTTL     time.Duration
	globalSliding time.Duration
	globalStale   time.Duration
	categories    map[string]CategoryDefaults
}

func newResolver(cfg Config, categories map[string]CategoryDefaults) *resolver {
	cp := make(map[string]CategoryDefaults, len(categories))
	for k, v := range categories {
		cp[k] = v
	}
	return &resolver{
		globalTTL:     cfg.DefaultTTL,
		globalSliding: cfg.DefaultSliding,
		globalStale:   cfg.DefaultStaleTTL,
		categories:    cp,
	}
}

// resolve produces an EntryMetadata for a Set/GetOrSet call, applying the
// precedence rules of spec §4.1: per-operation fully determines ttl/sliding
// if either is set there; otherwise category; otherwise global. staleWindow
// resolves independently with the same precedence.
func (r *resolver) resolve(now time.Time, opts Options) (EntryMetadata, error) {
	if err := opts.validate(); err != nil {
		return EntryMetadata{}, err
	}

	var cat CategoryDefaults
	if opts.Category != "" {
		c, ok := r.categories[opts.Category]
		if !ok {
			return EntryMetadata{}, NewErrUnknownCategory(opts.Category)
		}
		cat = c
	}

	ttl, sliding := resolveTTLSliding(opts, cat, r.globalSliding)
	if ttl == 0 && sliding == 0 {
		ttl = r.globalTTL
	}
	stale := resolveStale(opts, cat, r.globalStale)

	meta := EntryMetadata{
		CreatedAt:   now,
		SlidingWindow: sliding,
		StaleWindow: stale,
	}
	switch {
	case sliding > 0:
		meta.AbsoluteExpiration = now.Add(sliding)
	case ttl > 0:
		meta.AbsoluteExpiration = now.Add(ttl)
	}
	return meta, nil
}

// resolveTTLSliding applies the ttl/sliding precedence: operation fully
// determines both if set, else category fully determines both if set,
// else ttl is unset and sliding falls back to the global sliding default.
func resolveTTLSliding(opts Options, cat CategoryDefaults, globalSliding time.Duration) (ttl, sliding time.Duration) {
	if opts.TTL > 0 || opts.Sliding > 0 {
		return opts.TTL, opts.Sliding
	}
	if cat.TTL > 0 || cat.Sliding > 0 {
		return cat.TTL, cat.Sliding
	}
	return 0, globalSliding
}

// resolveStale applies the same three-layer precedence independently for
// the stale window.
func resolveStale(opts Options, cat CategoryDefaults, globalStale time.Duration) time.Duration {
	if opts.StaleTTL > 0 {
		return opts.StaleTTL
	}
	if cat.StaleTTL > 0 {
		return cat.StaleTTL
	}
	return globalStale
}
