// Package cascade provides a caching façade for high-throughput services.
//
// Cascade sits above two interchangeable backends — an in-process object
// store and an external byte-oriented store — and adds the cross-cutting
// policy neither backend provides alone: TTL (absolute and sliding),
// stale-while-revalidate, stampede protection, tag-based bulk invalidation,
// metrics and per-category defaults.
//
// # Quick Start
//
//	clock := cascade.NewSystemClock()
//	cache, err := cascade.New(cascade.Config{
//	    DefaultTTL: 5 * time.Minute,
//	    Clock:      clock,
//	}, cascade.NewObjectBackend(clock))
//
//	cache.Set(ctx, "user:123", user, cascade.Options{TTL: time.Hour})
//	value, found, err := cache.Get(ctx, "user:123")
//
// # Cache-aside with stampede protection
//
//	value, err := cache.GetOrSet(ctx, "user:123", func(ctx context.Context) (interface{}, error) {
//	    return fetchUserFromDB(ctx, 123)
//	}, cascade.Options{TTL: time.Hour, StaleTTL: 30 * time.Second})
//
// # Byte-mode backend
//
// A façade constructed over a Backend in Byte mode stores values as an
// opaque binary envelope (see envelope.go) so it can be wired to any external
// key/byte-value store that implements ByteStore.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cascade

// Version of the cascade module.
const Version = "v0.1.0-dev"
