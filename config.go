// config.go: global façade configuration and category registry
//
// Mirrors the teacher's Config/Validate/DefaultConfig pattern (config.go):
// a single struct with sensible nil/zero defaults applied by Validate,
// rather than functional options, since spec §6 names these as plain
// configuration fields.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cascade

import "time"

// DefaultGlobalTTL is the value Validate assigns to a zero
// Config.DefaultTTL.
const DefaultGlobalTTL = 5 * time.Minute

// Config holds façade-wide defaults and injection points.
type Config struct {
	// DefaultTTL is the fallback absolute TTL used when no operation,
	// category or sliding default applies. Must be > 0; defaults to
	// DefaultGlobalTTL if left zero.
	DefaultTTL time.Duration

	// DefaultSliding, if set, is used whenever neither an operation nor
	// its category sets ttl/sliding. Mutually exclusive with relying on
	// DefaultTTL being reached (see ttl.go's resolveTTLSliding).
	DefaultSliding time.Duration

	// DefaultStaleTTL, if set, enables SWR by default for entries whose
	// operation/category does not specify StaleTTL.
	DefaultStaleTTL time.Duration

	// EnableStampedeProtection gates single-flight coordination in
	// GetOrSet. Default: true.
	EnableStampedeProtection *bool

	// EnableStaleWhileRevalidate gates the asynchronous SWR path in
	// GetOrSet. Default: true.
	EnableStaleWhileRevalidate *bool

	// Clock provides the current UTC instant. Default: a go-timecache
	// backed system clock.
	Clock Clock

	// Logger receives diagnostic output (background-refresh failures,
	// etc). Default: NoOpLogger.
	Logger Logger

	// MetricsCollector receives per-operation latency/outcome events,
	// distinct from the façade's own Metrics counters. Default:
	// NoOpMetricsCollector.
	MetricsCollector MetricsCollector

	// Categories pre-registers named default option sets, selectable via
	// Options.Category. Each entry is validated at construction time.
	Categories map[string]CategoryDefaults
}

// Validate checks configuration invariants and applies defaults in place.
// Returns a configuration error (spec §7) if DefaultTTL, DefaultSliding or
// DefaultStaleTTL is negative, if DefaultTTL and DefaultSliding are both
// positive, or if any registered category is internally invalid. A zero
// DefaultTTL is set to DefaultGlobalTTL, also when DefaultSliding is set.
func (c *Config) Validate() error {
	if c.DefaultTTL < 0 {
		return NewErrInvalidDuration("defaultTtl", c.DefaultTTL)
	}
	if c.DefaultSliding < 0 {
		return NewErrInvalidDuration("defaultSliding", c.DefaultSliding)
	}
	if c.DefaultStaleTTL < 0 {
		return NewErrInvalidDuration("defaultStaleTtl", c.DefaultStaleTTL)
	}
	if c.DefaultTTL > 0 && c.DefaultSliding > 0 {
		return NewErrConflictingTTL("config")
	}
	if c.DefaultTTL == 0 {
		c.DefaultTTL = DefaultGlobalTTL
	}

	for name, cat := range c.Categories {
		if err := cat.validate(); err != nil {
			return NewErrInvalidConfig("category " + name + ": " + errorReason(err))
		}
	}

	if c.EnableStampedeProtection == nil {
		c.EnableStampedeProtection = boolPtr(true)
	}
	if c.EnableStaleWhileRevalidate == nil {
		c.EnableStaleWhileRevalidate = boolPtr(true)
	}
	if c.Clock == nil {
		c.Clock = systemClock{}
	}
	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}
	if c.MetricsCollector == nil {
		c.MetricsCollector = NoOpMetricsCollector{}
	}
	if c.Categories == nil {
		c.Categories = make(map[string]CategoryDefaults)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults applied.
func DefaultConfig() Config {
	cfg := Config{}
	_ = cfg.Validate()
	return cfg
}

func boolPtr(b bool) *bool { return &b }

// errorReason extracts a short human-readable reason from a cascade
// error for embedding in a wrapping configuration error's message.
func errorReason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
