package sqlitestore

import (
	"context"
	"testing"
	"time"
)

func TestStoreSetGetRemove(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if _, found, err := store.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("Get(missing) = found=%v err=%v, want false, nil", found, err)
	}

	if err := store.Set(ctx, "k1", []byte("hello"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	blob, found, err := store.Get(ctx, "k1")
	if err != nil || !found {
		t.Fatalf("Get(k1) = found=%v err=%v, want true, nil", found, err)
	}
	if string(blob) != "hello" {
		t.Fatalf("Get(k1) = %q, want %q", blob, "hello")
	}

	if err := store.Remove(ctx, "k1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, found, _ := store.Get(ctx, "k1"); found {
		t.Fatal("Get(k1) found entry after Remove")
	}

	// Idempotent remove.
	if err := store.Remove(ctx, "k1"); err != nil {
		t.Fatalf("Remove (idempotent): %v", err)
	}
}

func TestStoreSetOverwrite(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.Set(ctx, "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, "k1", []byte("v2"), time.Minute); err != nil {
		t.Fatalf("Set (overwrite): %v", err)
	}

	blob, found, err := store.Get(ctx, "k1")
	if err != nil || !found {
		t.Fatalf("Get(k1) = found=%v err=%v", found, err)
	}
	if string(blob) != "v2" {
		t.Fatalf("Get(k1) = %q, want %q", blob, "v2")
	}
}

func TestStoreExpiry(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.Set(ctx, "k1", []byte("v1"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	if _, found, err := store.Get(ctx, "k1"); err != nil || found {
		t.Fatalf("Get(k1) after expiry = found=%v err=%v, want false, nil", found, err)
	}
}
