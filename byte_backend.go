// byte_backend.go: adapter over an external byte-oriented store
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cascade

import (
	"context"
	"time"
)

// retentionFloor is the minimum relative retention duration passed to the
// external store, per spec §4.2.2 ("clamp to 1 second floor").
const retentionFloor = time.Second

// ByteStore is the narrow get/set/remove contract the byte backend
// consumes from an external key/byte-value store. Cascade's core does not
// implement a concrete driver against any specific store (spec §1
// non-goals); sqlitestore ships one demonstration/test implementation
// outside the core package.
type ByteStore interface {
	// Get returns the raw blob for key, or found=false if absent.
	Get(ctx context.Context, key string) (blob []byte, found bool, err error)
	// Set stores blob under key, retained for at least ttl (a strictly
	// positive relative duration).
	Set(ctx context.Context, key string, blob []byte, ttl time.Duration) error
	// Remove deletes key. Idempotent.
	Remove(ctx context.Context, key string) error
}

// ByteBackend is the Backend implementation wrapping a ByteStore via the
// envelope codec.
type ByteBackend struct {
	store ByteStore
	clock Clock
}

// NewByteBackend constructs a byte-mode backend over store.
func NewByteBackend(store ByteStore, clock Clock) *ByteBackend {
	return &ByteBackend{store: store, clock: clock}
}

// Mode implements Backend.
func (b *ByteBackend) Mode() Mode { return ModeByte }

// Get implements Backend. A decode failure is treated as Expired: the key
// is purged from the store and the caller observes a miss-equivalent
// expired state rather than an error (spec §4.2.2, §7).
func (b *ByteBackend) Get(ctx context.Context, key string) (GetResult, error) {
	blob, found, err := b.store.Get(ctx, key)
	if err != nil {
		return GetResult{}, NewErrBackendGet(key, err)
	}
	if !found {
		return GetResult{State: StateMiss}, nil
	}

	meta, payload, decodeErr := decodeEnvelope(blob)
	if decodeErr != nil {
		_ = b.store.Remove(ctx, key)
		return GetResult{State: StateExpired}, nil
	}

	now := b.clock.Now()
	state := meta.State(now)
	entry := Entry{Metadata: meta, Payload: payload}

	switch state {
	case StateExpired:
		_ = b.store.Remove(ctx, key)
		return GetResult{State: StateExpired}, nil

	case StateHit:
		if meta.isSliding() {
			refreshed := meta.refreshed(now)
			if setErr := b.writeEnvelope(ctx, key, refreshed, payload); setErr != nil {
				// Spec §9: a lost refresh write merely shortens the
				// effective sliding window by one cycle; the hit still
				// returns successfully.
				return GetResult{State: StateHit, Entry: entry}, nil
			}
			entry.Metadata = refreshed
		}
		return GetResult{State: StateHit, Entry: entry}, nil

	default: // StateStale
		return GetResult{State: StateStale, Entry: entry}, nil
	}
}

// Set implements Backend. It rejects entries carrying an object value:
// the byte backend only ever stores encoded payloads.
func (b *ByteBackend) Set(ctx context.Context, key string, entry Entry) error {
	if entry.Value != nil {
		return NewErrWrongMode(ModeByte)
	}
	if err := b.writeEnvelope(ctx, key, entry.Metadata, entry.Payload); err != nil {
		return NewErrBackendSet(key, err)
	}
	return nil
}

// Remove implements Backend. Idempotent.
func (b *ByteBackend) Remove(ctx context.Context, key string) error {
	if err := b.store.Remove(ctx, key); err != nil {
		return NewErrBackendRemove(key, err)
	}
	return nil
}

// writeEnvelope encodes meta+payload and asks the store to retain it until
// at least the stale deadline (or absolute expiration with no stale
// window), using a strictly positive relative duration.
func (b *ByteBackend) writeEnvelope(ctx context.Context, key string, meta EntryMetadata, payload []byte) error {
	blob := encodeEnvelope(meta, payload)
	ttl := retentionFor(meta, b.clock.Now())
	return b.store.Set(ctx, key, blob, ttl)
}

// retentionFor computes the relative retention duration to ask the
// external store for, clamped to a 1-second floor.
func retentionFor(meta EntryMetadata, now time.Time) time.Duration {
	if meta.AbsoluteExpiration.IsZero() {
		// Never expires: retain indefinitely is not expressible as a
		// relative duration, so retain for a long, practical ceiling
		// and let the envelope's own metadata govern freshness.
		return 365 * 24 * time.Hour
	}
	deadline := meta.AbsoluteExpiration.Add(meta.StaleWindow)
	d := deadline.Sub(now)
	if d < retentionFloor {
		return retentionFloor
	}
	return d
}
