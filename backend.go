// backend.go: the uniform backend contract over object or byte storage
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cascade

import "context"

// Mode fixes whether a Backend stores live Go values or opaque byte
// payloads. Mode is determined at construction and never changes.
type Mode int

const (
	// ModeObject backends store live interface{} values (object-mode).
	ModeObject Mode = iota
	// ModeByte backends store encoded byte payloads (byte-mode).
	ModeByte
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == ModeByte {
		return "byte"
	}
	return "object"
}

// Entry is a (metadata, value-or-payload) pair. Exactly one of Value or
// Payload is populated, fixed by the owning Backend's Mode.
type Entry struct {
	Metadata EntryMetadata
	// Value holds the live object in object-mode; empty in byte-mode.
	Value interface{}
	// Payload holds the encoded bytes in byte-mode; nil in object-mode.
	Payload []byte
}

// GetResult is the outcome of a Backend.Get call.
type GetResult struct {
	State LookupState
	Entry Entry
}

// Backend is the narrow contract the façade consumes from either storage
// implementation. Get must consult the backend's own Clock and apply
// EntryMetadata's freshness predicates before returning: on Expired,
// the backend removes the key itself; on a sliding Hit, the backend
// refreshes and writes back the entry before returning (refresh-on-read).
//
// Implementations must tolerate arbitrary concurrent callers; no
// cache-wide lock is permitted (spec §5).
type Backend interface {
	// Get looks up key, applying expiration/staleness/refresh-on-read.
	Get(ctx context.Context, key string) (GetResult, error)
	// Set unconditionally replaces the entry stored at key.
	Set(ctx context.Context, key string, entry Entry) error
	// Remove deletes key. Idempotent: removing an absent key is not an
	// error.
	Remove(ctx context.Context, key string) error
	// Mode reports whether this backend is object- or byte-mode.
	Mode() Mode
}
