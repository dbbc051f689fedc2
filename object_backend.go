// object_backend.go: in-process object-mode backend
//
// A concurrent map of live Go values, keyed by ordinal string. Expiration
// is lazy (checked on Get) with refresh-on-read for sliding entries.
// Eviction-by-size is out of scope (spec §1 non-goals); this backend never
// removes a key except on explicit Remove or expiry.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cascade

import (
	"context"
	"sync"
)

// ObjectBackend is the in-process Backend implementation. The zero value
// is not usable; construct with NewObjectBackend.
type ObjectBackend struct {
	mu    sync.RWMutex
	data  map[string]Entry
	clock Clock
}

// NewObjectBackend constructs an empty object-mode backend using clock for
// all freshness arithmetic.
func NewObjectBackend(clock Clock) *ObjectBackend {
	return &ObjectBackend{
		data:  make(map[string]Entry),
		clock: clock,
	}
}

// Mode implements Backend.
func (b *ObjectBackend) Mode() Mode { return ModeObject }

// Get implements Backend.
func (b *ObjectBackend) Get(_ context.Context, key string) (GetResult, error) {
	b.mu.RLock()
	entry, found := b.data[key]
	b.mu.RUnlock()

	if !found {
		return GetResult{State: StateMiss}, nil
	}

	now := b.clock.Now()
	state := entry.Metadata.State(now)

	switch state {
	case StateExpired:
		b.mu.Lock()
		// Re-check under the write lock: another goroutine may have
		// already removed or replaced the entry.
		if current, ok := b.data[key]; ok && current.Metadata == entry.Metadata {
			delete(b.data, key)
		}
		b.mu.Unlock()
		return GetResult{State: StateExpired}, nil

	case StateHit:
		if entry.Metadata.isSliding() {
			refreshed := entry
			refreshed.Metadata = entry.Metadata.refreshed(now)
			b.mu.Lock()
			// A concurrent Set may have already replaced this entry;
			// the refresh is written back only if the stored entry
			// still carries the metadata this read observed, so a
			// newer Set is never overwritten. Spec §9: a dropped
			// refresh merely shortens the effective sliding window by
			// one cycle.
			if current, ok := b.data[key]; ok && current.Metadata == entry.Metadata {
				b.data[key] = refreshed
			}
			b.mu.Unlock()
			entry = refreshed
		}
		return GetResult{State: StateHit, Entry: entry}, nil

	default: // StateStale
		return GetResult{State: StateStale, Entry: entry}, nil
	}
}

// Set implements Backend. It rejects entries carrying a byte payload: the
// object backend only ever stores live values.
func (b *ObjectBackend) Set(_ context.Context, key string, entry Entry) error {
	if len(entry.Payload) > 0 {
		return NewErrWrongMode(ModeObject)
	}
	b.mu.Lock()
	b.data[key] = entry
	b.mu.Unlock()
	return nil
}

// Remove implements Backend. Idempotent.
func (b *ObjectBackend) Remove(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.data, key)
	b.mu.Unlock()
	return nil
}
