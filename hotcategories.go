// hotcategories.go: hot-reloadable category registry via Argus
//
// Grounded on the teacher's HotConfig (hot-reload.go): the same
// UniversalConfigWatcherWithConfig + poll-interval + callback idiom,
// retargeted from balios's MaxSize/TTL/WindowRatio/CounterBits fields
// onto cascade's category registry (spec §9 supplement: category
// registration was silent on whether it can change at runtime).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cascade

import (
	"fmt"
	"sync"
	"time"

	"github.com/agilira/argus"
)

// HotCategories watches a configuration file and replaces a Cache's
// category registry whenever it changes, without disturbing any other
// façade state.
type HotCategories struct {
	cache   *Cache
	watcher *argus.Watcher
	logger  Logger

	mu         sync.RWMutex
	categories map[string]CategoryDefaults

	// OnReload is called after a reload has been applied successfully.
	// Optional; must be fast and non-blocking.
	OnReload func(old, new map[string]CategoryDefaults)
}

// HotCategoriesOptions configures a HotCategories watcher.
type HotCategoriesOptions struct {
	// ConfigPath is the file to watch. Supports JSON, YAML, TOML, HCL,
	// INI and Properties, per Argus's format detection.
	ConfigPath string

	// PollInterval defaults to 1s and is floored at 100ms.
	PollInterval time.Duration

	// OnReload is called after a reload has been applied successfully.
	OnReload func(old, new map[string]CategoryDefaults)

	// Logger receives reload failures. Default: NoOpLogger.
	Logger Logger
}

// NewHotCategories builds a watcher over cache's category registry and
// starts it immediately.
//
// Example configuration file (YAML):
//
//	categories:
//	  session:
//	    ttl: "30m"
//	  profile:
//	    sliding: "10m"
//	    stale_ttl: "1m"
func NewHotCategories(cache *Cache, opts HotCategoriesOptions) (*HotCategories, error) {
	if cache == nil {
		return nil, fmt.Errorf("cascade: cache is required")
	}
	if opts.ConfigPath == "" {
		return nil, fmt.Errorf("cascade: config_path is required")
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Second
	} else if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = NoOpLogger{}
	}

	hc := &HotCategories{
		cache:      cache,
		logger:     opts.Logger,
		categories: cache.getResolver().categories,
		OnReload:   opts.OnReload,
	}

	watcher, err := argus.UniversalConfigWatcherWithConfig(opts.ConfigPath, hc.handleChange, argus.Config{
		PollInterval: opts.PollInterval,
	})
	if err != nil {
		return nil, err
	}
	hc.watcher = watcher
	return hc, nil
}

// Start begins watching, if not already running.
func (hc *HotCategories) Start() error {
	if hc.watcher.IsRunning() {
		return nil
	}
	return hc.watcher.Start()
}

// Stop stops watching the configuration file.
func (hc *HotCategories) Stop() error {
	return hc.watcher.Stop()
}

// Categories returns the last successfully applied registry.
func (hc *HotCategories) Categories() map[string]CategoryDefaults {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	cp := make(map[string]CategoryDefaults, len(hc.categories))
	for k, v := range hc.categories {
		cp[k] = v
	}
	return cp
}

// handleChange is invoked by Argus whenever the watched file changes. A
// parse or validation failure is logged and the prior registry is left
// in place; it never propagates to the file watcher itself.
func (hc *HotCategories) handleChange(data map[string]interface{}) {
	parsed, err := parseCategories(data)
	if err != nil {
		hc.logger.Error("cascade: category reload rejected", "error", err)
		return
	}

	if err := hc.cache.replaceCategories(parsed); err != nil {
		hc.logger.Error("cascade: category reload rejected", "error", err)
		return
	}

	hc.mu.Lock()
	old := hc.categories
	hc.categories = parsed
	hc.mu.Unlock()

	if hc.OnReload != nil {
		hc.OnReload(old, parsed)
	}
}

// parseCategories extracts a name -> CategoryDefaults map from Argus's
// generic config data, supporting both a top-level "categories" section
// and a file whose entire body is that section.
func parseCategories(data map[string]interface{}) (map[string]CategoryDefaults, error) {
	section, ok := data["categories"].(map[string]interface{})
	if !ok {
		section = data
	}

	out := make(map[string]CategoryDefaults, len(section))
	for name, raw := range section {
		fields, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("cascade: category %q is not an object", name)
		}
		cat := CategoryDefaults{
			TTL:      parseDurationField(fields["ttl"]),
			Sliding:  parseDurationField(fields["sliding"]),
			StaleTTL: parseDurationField(fields["stale_ttl"]),
		}
		if err := cat.validate(); err != nil {
			return nil, fmt.Errorf("cascade: category %q: %w", name, err)
		}
		out[name] = cat
	}
	return out, nil
}

// parseDurationField extracts a time.Duration from a duration-string
// config value, e.g. "30m". Any other shape (missing, wrong type,
// unparsable) resolves to zero, matching "unset".
func parseDurationField(value interface{}) time.Duration {
	str, ok := value.(string)
	if !ok {
		return 0
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		return 0
	}
	return d
}
