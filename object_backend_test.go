// object_backend_test.go: in-process object-mode backend behavior
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cascade

import (
	"context"
	"testing"
	"time"
)

func TestObjectBackendMiss(t *testing.T) {
	b := NewObjectBackend(NewManualClock(time.Unix(0, 0)))
	r, err := b.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if r.State != StateMiss {
		t.Fatalf("State = %v, want StateMiss", r.State)
	}
}

func TestObjectBackendSetGetHit(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	b := NewObjectBackend(clock)
	ctx := context.Background()

	entry := Entry{Metadata: EntryMetadata{CreatedAt: clock.Now(), AbsoluteExpiration: clock.Now().Add(time.Minute)}, Value: "v1"}
	if err := b.Set(ctx, "k", entry); err != nil {
		t.Fatalf("Set: %v", err)
	}

	r, err := b.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if r.State != StateHit || r.Entry.Value != "v1" {
		t.Fatalf("Get = %+v, want hit v1", r)
	}
}

func TestObjectBackendSetRejectsPayload(t *testing.T) {
	b := NewObjectBackend(NewManualClock(time.Unix(0, 0)))
	err := b.Set(context.Background(), "k", Entry{Payload: []byte("x")})
	if GetErrorCode(err) != ErrCodeWrongMode {
		t.Fatalf("code = %q, want %q", GetErrorCode(err), ErrCodeWrongMode)
	}
}

func TestObjectBackendExpiredPurgesKey(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	b := NewObjectBackend(clock)
	ctx := context.Background()

	entry := Entry{Metadata: EntryMetadata{CreatedAt: clock.Now(), AbsoluteExpiration: clock.Now().Add(time.Second)}, Value: "v1"}
	_ = b.Set(ctx, "k", entry)

	clock.Advance(2 * time.Second)
	r, err := b.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if r.State != StateExpired {
		t.Fatalf("State = %v, want StateExpired", r.State)
	}

	// Must actually be purged, not merely observed as expired once.
	b.mu.RLock()
	_, stillPresent := b.data["k"]
	b.mu.RUnlock()
	if stillPresent {
		t.Fatal("expired entry was not purged from the backend")
	}
}

func TestObjectBackendStaleWithinGracePeriod(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	b := NewObjectBackend(clock)
	ctx := context.Background()

	entry := Entry{Metadata: EntryMetadata{
		CreatedAt:          clock.Now(),
		AbsoluteExpiration: clock.Now().Add(time.Second),
		StaleWindow:        10 * time.Second,
	}, Value: "v1"}
	_ = b.Set(ctx, "k", entry)

	clock.Advance(5 * time.Second)
	r, err := b.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if r.State != StateStale || r.Entry.Value != "v1" {
		t.Fatalf("Get = %+v, want stale v1", r)
	}
}

func TestObjectBackendSlidingRefreshOnRead(t *testing.T) {
	clock := NewManualClock(time.Unix(1000, 0))
	b := NewObjectBackend(clock)
	ctx := context.Background()

	entry := Entry{Metadata: EntryMetadata{
		CreatedAt:          clock.Now(),
		AbsoluteExpiration: clock.Now().Add(10 * time.Second),
		SlidingWindow:      10 * time.Second,
	}, Value: "v1"}
	_ = b.Set(ctx, "k", entry)

	clock.Advance(5 * time.Second)
	r, err := b.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	wantExpiration := clock.Now().Add(10 * time.Second)
	if !r.Entry.Metadata.AbsoluteExpiration.Equal(wantExpiration) {
		t.Fatalf("AbsoluteExpiration = %v, want %v", r.Entry.Metadata.AbsoluteExpiration, wantExpiration)
	}

	// The written-back refresh must be visible to a subsequent read, not
	// just to the caller that triggered it.
	clock.Advance(8 * time.Second) // 13s total: would have expired without refresh
	r2, err := b.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if r2.State != StateHit {
		t.Fatalf("State after refresh = %v, want StateHit", r2.State)
	}
}

func TestObjectBackendRemoveIdempotent(t *testing.T) {
	b := NewObjectBackend(NewManualClock(time.Unix(0, 0)))
	ctx := context.Background()
	if err := b.Remove(ctx, "absent"); err != nil {
		t.Fatalf("Remove(absent): %v", err)
	}
	_ = b.Set(ctx, "k", Entry{Value: "v"})
	if err := b.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := b.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove (again): %v", err)
	}
	r, _ := b.Get(ctx, "k")
	if r.State != StateMiss {
		t.Fatalf("State after Remove = %v, want StateMiss", r.State)
	}
}

func TestObjectBackendMode(t *testing.T) {
	b := NewObjectBackend(NewManualClock(time.Unix(0, 0)))
	if b.Mode() != ModeObject {
		t.Fatalf("Mode() = %v, want ModeObject", b.Mode())
	}
}
