// Package otelmetrics implements cascade.MetricsCollector using
// OpenTelemetry, enabling percentile calculation on operation latency and
// multi-backend export (Prometheus, Jaeger, DataDog, Grafana).
//
// Grounded on the teacher's otel/collector.go: the same meter/instrument
// construction and functional-option shape, retargeted from balios's
// hit/miss/latency trio onto cascade.MetricsCollector's five-method
// surface (per-state Get outcomes, Set/Remove latency, eviction and
// invalidation counts).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package otelmetrics

import (
	"context"
	"errors"

	"github.com/agilira/cascade"
	"go.opentelemetry.io/otel/metric"
)

// Collector implements cascade.MetricsCollector using OpenTelemetry.
//
// Thread-safety: safe for concurrent use; the underlying OTEL instruments
// are themselves thread-safe and lock-free.
type Collector struct {
	getLatency    metric.Int64Histogram
	setLatency    metric.Int64Histogram
	removeLatency metric.Int64Histogram

	hits          metric.Int64Counter
	misses        metric.Int64Counter
	staleHits     metric.Int64Counter
	evictions     metric.Int64Counter
	invalidations metric.Int64Counter
}

// Options configures Collector construction.
type Options struct {
	// MeterName is the name of the OpenTelemetry meter.
	// Default: "github.com/agilira/cascade".
	MeterName string
}

// Option is a functional option for New.
type Option func(*Options)

// WithMeterName sets a custom meter name, useful for distinguishing
// metrics from multiple cache instances.
func WithMeterName(name string) Option {
	return func(o *Options) { o.MeterName = name }
}

// New creates a Collector backed by provider. Instruments are created
// eagerly; a creation failure is returned rather than surfacing lazily on
// first use.
func New(provider metric.MeterProvider, opts ...Option) (*Collector, error) {
	if provider == nil {
		return nil, errors.New("otelmetrics: meter provider cannot be nil")
	}

	options := Options{MeterName: "github.com/agilira/cascade"}
	for _, opt := range opts {
		opt(&options)
	}
	meter := provider.Meter(options.MeterName)

	c := &Collector{}
	var err error

	if c.getLatency, err = meter.Int64Histogram(
		"cascade_get_latency_ns",
		metric.WithDescription("Latency of Get/Exists operations in nanoseconds"),
		metric.WithUnit("ns"),
	); err != nil {
		return nil, err
	}
	if c.setLatency, err = meter.Int64Histogram(
		"cascade_set_latency_ns",
		metric.WithDescription("Latency of Set operations in nanoseconds"),
		metric.WithUnit("ns"),
	); err != nil {
		return nil, err
	}
	if c.removeLatency, err = meter.Int64Histogram(
		"cascade_remove_latency_ns",
		metric.WithDescription("Latency of Remove operations in nanoseconds"),
		metric.WithUnit("ns"),
	); err != nil {
		return nil, err
	}
	if c.hits, err = meter.Int64Counter(
		"cascade_hits_total",
		metric.WithDescription("Total number of fresh cache hits"),
	); err != nil {
		return nil, err
	}
	if c.misses, err = meter.Int64Counter(
		"cascade_misses_total",
		metric.WithDescription("Total number of cache misses"),
	); err != nil {
		return nil, err
	}
	if c.staleHits, err = meter.Int64Counter(
		"cascade_stale_hits_total",
		metric.WithDescription("Total number of stale-while-revalidate hits"),
	); err != nil {
		return nil, err
	}
	if c.evictions, err = meter.Int64Counter(
		"cascade_evictions_total",
		metric.WithDescription("Total number of lazily-evicted expired entries"),
	); err != nil {
		return nil, err
	}
	if c.invalidations, err = meter.Int64Counter(
		"cascade_invalidations_total",
		metric.WithDescription("Total number of keys removed by tag invalidation"),
	); err != nil {
		return nil, err
	}

	return c, nil
}

// RecordGet implements cascade.MetricsCollector.
func (c *Collector) RecordGet(latencyNs int64, state cascade.LookupState) {
	ctx := context.Background()
	c.getLatency.Record(ctx, latencyNs)

	switch state {
	case cascade.StateHit:
		c.hits.Add(ctx, 1)
	case cascade.StateStale:
		c.staleHits.Add(ctx, 1)
	case cascade.StateMiss, cascade.StateExpired:
		c.misses.Add(ctx, 1)
	}
}

// RecordSet implements cascade.MetricsCollector.
func (c *Collector) RecordSet(latencyNs int64) {
	c.setLatency.Record(context.Background(), latencyNs)
}

// RecordRemove implements cascade.MetricsCollector.
func (c *Collector) RecordRemove(latencyNs int64) {
	c.removeLatency.Record(context.Background(), latencyNs)
}

// RecordEviction implements cascade.MetricsCollector.
func (c *Collector) RecordEviction() {
	c.evictions.Add(context.Background(), 1)
}

// RecordInvalidation implements cascade.MetricsCollector.
func (c *Collector) RecordInvalidation(keyCount int) {
	if keyCount <= 0 {
		return
	}
	c.invalidations.Add(context.Background(), int64(keyCount))
}

var _ cascade.MetricsCollector = (*Collector)(nil)
