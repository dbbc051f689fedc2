// metadata.go: entry metadata and freshness classification
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cascade

import "time"

// LookupState classifies an entry against the current clock.
type LookupState int

const (
	// StateMiss means the key is not present in the backend.
	StateMiss LookupState = iota
	// StateHit means the key is present and fresh.
	StateHit
	// StateStale means the key is present, past its absolute expiration,
	// but still within its stale window.
	StateStale
	// StateExpired means the key is present but past its stale deadline
	// (or past absolute expiration with no stale window).
	StateExpired
)

// String implements fmt.Stringer for readable test failures and logs.
func (s LookupState) String() string {
	switch s {
	case StateHit:
		return "hit"
	case StateStale:
		return "stale"
	case StateExpired:
		return "expired"
	default:
		return "miss"
	}
}

// EntryMetadata is the immutable timing envelope attached to every cached
// value. See spec §3 for the predicate definitions reproduced below.
type EntryMetadata struct {
	// CreatedAt is the UTC instant the entry was created.
	CreatedAt time.Time
	// AbsoluteExpiration is the UTC instant at which the entry becomes
	// non-fresh. The zero time means "never expires."
	AbsoluteExpiration time.Time
	// SlidingWindow, if nonzero, causes AbsoluteExpiration to be
	// recomputed as now+SlidingWindow on every fresh read.
	SlidingWindow time.Duration
	// StaleWindow, if nonzero, is the extra grace period after
	// AbsoluteExpiration during which the entry is Stale rather than
	// Expired.
	StaleWindow time.Duration
}

// staleDeadline returns the instant after which the entry is Expired.
// A zero AbsoluteExpiration (never expires) has no stale deadline either.
func (m EntryMetadata) staleDeadline() time.Time {
	if m.AbsoluteExpiration.IsZero() {
		return time.Time{}
	}
	return m.AbsoluteExpiration.Add(m.StaleWindow)
}

// Fresh reports whether the entry is fresh at instant now.
func (m EntryMetadata) Fresh(now time.Time) bool {
	return m.AbsoluteExpiration.IsZero() || !now.After(m.AbsoluteExpiration)
}

// Stale reports whether the entry is in its stale window at instant now.
func (m EntryMetadata) Stale(now time.Time) bool {
	if m.StaleWindow == 0 || m.AbsoluteExpiration.IsZero() {
		return false
	}
	return now.After(m.AbsoluteExpiration) && !now.After(m.staleDeadline())
}

// Expired reports whether the entry is past its stale deadline (or past
// absolute expiration with no stale window) at instant now.
func (m EntryMetadata) Expired(now time.Time) bool {
	if m.AbsoluteExpiration.IsZero() {
		return false
	}
	return now.After(m.staleDeadline())
}

// State classifies the entry against now, for a key known to be present
// in a backend. Callers that don't know presence should consult the
// backend's GetResult.State instead, which also covers StateMiss.
func (m EntryMetadata) State(now time.Time) LookupState {
	switch {
	case m.Fresh(now):
		return StateHit
	case m.Stale(now):
		return StateStale
	default:
		return StateExpired
	}
}

// refreshed returns a copy of m with AbsoluteExpiration recomputed from
// now, for sliding entries. CreatedAt, SlidingWindow and StaleWindow are
// unchanged. Calling refreshed on a non-sliding entry is a no-op copy.
func (m EntryMetadata) refreshed(now time.Time) EntryMetadata {
	if m.SlidingWindow <= 0 {
		return m
	}
	m.AbsoluteExpiration = now.Add(m.SlidingWindow)
	return m
}

// isSliding reports whether this metadata uses a sliding expiration.
func (m EntryMetadata) isSliding() bool {
	return m.SlidingWindow > 0
}
