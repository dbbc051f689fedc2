// metrics.go: lock-free cache operation counters
//
// Seven 64-bit atomic counters, updated only by the façade (never by a
// backend), per spec §3/§4.6. Snapshot reads are per-field atomic loads
// and need not be mutually consistent across fields.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cascade

import "sync/atomic"

// Metrics holds the façade's atomic operation counters. The zero value is
// ready to use.
type Metrics struct {
	hits      int64
	misses    int64
	staleHits int64
	sets      int64
	removals  int64
	evictions int64
	size      int64
}

// Snapshot is a point-in-time (per-field) read of Metrics.
type Snapshot struct {
	Hits      uint64
	Misses    uint64
	StaleHits uint64
	Sets      uint64
	Removals  uint64
	Evictions uint64
	Size      uint64
}

// HitRatio returns (Hits+StaleHits)/(Hits+Misses+StaleHits) as a 0-100
// percentage, or
// 0 if there have been no lookups yet.
func (s Snapshot) HitRatio() float64 {
	total := s.Hits + s.Misses + s.StaleHits
	if total == 0 {
		return 0
	}
	return float64(s.Hits+s.StaleHits) / float64(total) * 100
}

func (m *Metrics) recordHit()      { atomic.AddInt64(&m.hits, 1) }
func (m *Metrics) recordMiss()     { atomic.AddInt64(&m.misses, 1) }
func (m *Metrics) recordStaleHit() { atomic.AddInt64(&m.staleHits, 1) }
func (m *Metrics) recordSet()      { atomic.AddInt64(&m.sets, 1) }
func (m *Metrics) recordRemoval()  { atomic.AddInt64(&m.removals, 1) }
func (m *Metrics) recordEviction() { atomic.AddInt64(&m.evictions, 1) }
func (m *Metrics) incSize()        { atomic.AddInt64(&m.size, 1) }
func (m *Metrics) decSize()        { atomic.AddInt64(&m.size, -1) }

// Snapshot reads the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Hits:      uint64(atomic.LoadInt64(&m.hits)),
		Misses:    uint64(atomic.LoadInt64(&m.misses)),
		StaleHits: uint64(atomic.LoadInt64(&m.staleHits)),
		Sets:      uint64(atomic.LoadInt64(&m.sets)),
		Removals:  uint64(atomic.LoadInt64(&m.removals)),
		Evictions: uint64(atomic.LoadInt64(&m.evictions)),
		Size:      uint64(atomic.LoadInt64(&m.size)),
	}
}

// MetricsCollector is an optional, lower-level observability sink for
// per-operation latencies, distinct from the façade's own Metrics
// counters. If nil, NoOpMetricsCollector is used (zero overhead).
// Implementations must be safe for concurrent use and allocation-free on
// the hot path.
type MetricsCollector interface {
	// RecordGet records a Get/Exists lookup's outcome and latency.
	RecordGet(latencyNs int64, state LookupState)
	// RecordSet records a Set operation's latency.
	RecordSet(latencyNs int64)
	// RecordRemove records a Remove operation's latency.
	RecordRemove(latencyNs int64)
	// RecordEviction records an eviction (expired key purged on read).
	RecordEviction()
	// RecordInvalidation records a tag-driven removal.
	RecordInvalidation(keyCount int)
}

// NoOpMetricsCollector discards everything. Used as the default so
// callers never need a nil check.
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordGet(latencyNs int64, state LookupState) {}
func (NoOpMetricsCollector) RecordSet(latencyNs int64)                    {}
func (NoOpMetricsCollector) RecordRemove(latencyNs int64)                 {}
func (NoOpMetricsCollector) RecordEviction()                              {}
func (NoOpMetricsCollector) RecordInvalidation(keyCount int)              {}
