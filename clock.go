// clock.go: injectable UTC time source
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cascade

import (
	"sync"
	"time"

	"github.com/agilira/go-timecache"
)

// Clock provides the current UTC instant. Implementations must be safe for
// concurrent use. Injecting a Clock is the only supported way to make TTL
// and staleness arithmetic deterministic in tests.
type Clock interface {
	Now() time.Time
}

// NewSystemClock returns the default Clock, for callers constructing a
// Backend directly outside of Config/New (which already default to it).
func NewSystemClock() Clock { return systemClock{} }

// systemClock is the default Clock, backed by go-timecache's cached-time
// reader instead of a raw time.Now() call on every entry evaluation.
type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Unix(0, timecache.CachedTimeNano()).UTC()
}

// ManualClock is a Clock test double that only advances when told to.
// The zero value starts at the zero time.Time (January 1, year 1 UTC);
// call Set or Advance before use.
type ManualClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManualClock returns a ManualClock fixed at the given instant.
func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now.UTC()}
}

// Now implements Clock.
func (c *ManualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Set pins the clock to the given instant.
func (c *ManualClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now.UTC()
	c.mu.Unlock()
}

// Advance moves the clock forward by d (d may be negative).
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
