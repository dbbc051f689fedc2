// singleflight.go: keyed mutual exclusion for cache-aside population
//
// Per-key single-flight coordination, grounded on the teacher's GetOrLoad
// in-flight map (loading.go: a per-cache sync.Map of call records with
// panic recovery and context-aware waiting) generalized into an explicit
// Acquire/TryAcquire lease API, per spec §4.3 and design note "per-key
// mutex table": a self-reclaiming table whose size tracks the active
// contention set rather than the cardinality of keys ever touched.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cascade

import (
	"context"
	"sync"
)

// keyLock is a reference-counted mutex for one key. It removes itself
// from the coordinator's table on the last release, so the table size
// tracks active contention rather than every key ever touched.
type keyLock struct {
	mu       sync.Mutex
	refcount int // guarded by the coordinator's table mutex
}

// Lease represents exclusive ownership of a key, obtained from Acquire or
// TryAcquire. Release must be called exactly once, on every exit path.
type Lease struct {
	coordinator *Coordinator
	key         string
	lock        *keyLock
	released    bool
}

// Release gives up the lease. Safe to call via defer immediately after a
// successful Acquire/TryAcquire; calling it more than once is a no-op.
func (l *Lease) Release() {
	if l == nil || l.released {
		return
	}
	l.released = true
	l.lock.mu.Unlock()
	l.coordinator.release(l.key, l.lock)
}

// Coordinator provides per-key mutual exclusion with both blocking
// (Acquire) and non-blocking (TryAcquire) acquisition, as required by the
// cache-aside populate path and the SWR background-refresh path
// respectively.
type Coordinator struct {
	mu    sync.Mutex
	table map[string]*keyLock
}

// NewCoordinator constructs an empty single-flight coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{table: make(map[string]*keyLock)}
}

// lockFor returns the keyLock for key, creating it if absent, and
// increments its refcount. Must be paired with a release call regardless
// of whether the subsequent mutex acquisition succeeds.
func (c *Coordinator) lockFor(key string) *keyLock {
	c.mu.Lock()
	defer c.mu.Unlock()

	kl, ok := c.table[key]
	if !ok {
		kl = &keyLock{}
		c.table[key] = kl
	}
	kl.refcount++
	return kl
}

// release decrements the refcount for key's lock and deletes it from the
// table once both the refcount drops to zero and the mutex itself is
// idle (unlocked), so a lock handed out but not yet locked is never
// reclaimed out from under its holder.
func (c *Coordinator) release(key string, kl *keyLock) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kl.refcount--
	if kl.refcount == 0 && c.table[key] == kl {
		delete(c.table, key)
	}
}

// Acquire blocks until the caller holds the exclusive lease for key, or
// ctx is cancelled first. On cancellation before acquisition, no lease is
// held and Release has nothing to do — acquisition either completes or is
// abandoned cleanly (spec §5).
func (c *Coordinator) Acquire(ctx context.Context, key string) (*Lease, error) {
	kl := c.lockFor(key)

	done := make(chan struct{})
	go func() {
		kl.mu.Lock()
		close(done)
	}()

	select {
	case <-done:
		return &Lease{coordinator: c, key: key, lock: kl}, nil
	case <-ctx.Done():
		// The goroutine above may still be blocked on kl.mu.Lock() and
		// will acquire it eventually; since this call is abandoning
		// the lease, nobody else will ever call Release for it. Hand
		// off the single refcount bump from lockFor to a cleanup
		// goroutine that unlocks and releases once the lock actually
		// lands, so the table entry is still reclaimed correctly and
		// no other caller is blocked forever behind an orphaned lock.
		go func() {
			<-done
			kl.mu.Unlock()
			c.release(key, kl)
		}()
		return nil, ctx.Err()
	}
}

// TryAcquire attempts to obtain the lease for key without blocking. It
// returns (lease, true) on success or (nil, false) if another holder
// currently owns the key.
func (c *Coordinator) TryAcquire(key string) (*Lease, bool) {
	kl := c.lockFor(key)
	if !kl.mu.TryLock() {
		c.release(key, kl)
		return nil, false
	}
	return &Lease{coordinator: c, key: key, lock: kl}, true
}
