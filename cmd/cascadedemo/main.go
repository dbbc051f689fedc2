// Command cascadedemo exercises the cascade façade end to end: a
// sqlite-backed byte-mode cache configured with a stale window, stampede
// coalescing, tag invalidation, and an OpenTelemetry/Prometheus metrics
// endpoint. Entries are invalidated every cycle, before their TTL ends, so
// the stale-while-revalidate path is not reached by this workload.
//
// Grounded on the teacher's examples/getorload (GetOrLoad workload shape,
// stampede demonstration) and examples/otel-prometheus (exporter/provider
// wiring, metrics HTTP server), combined into a single runnable binary
// and retargeted from balios's GenericCache onto cascade.Typed plus
// sqlitestore.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/agilira/cascade"
	"github.com/agilira/cascade/otelmetrics"
	"github.com/agilira/cascade/sqlitestore"
	flashflags "github.com/agilira/flash-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Quote is the demo domain value: a byte-mode cache stores it JSON-encoded.
type Quote struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	AsOf   time.Time `json:"as_of"`
}

func encodeQuote(q Quote) ([]byte, error) { return json.Marshal(q) }
func decodeQuote(b []byte) (Quote, error) {
	var q Quote
	err := json.Unmarshal(b, &q)
	return q, err
}

func fetchQuote(symbol string) (Quote, error) {
	log.Printf("fetching %s from upstream (slow operation)...", symbol)
	time.Sleep(80 * time.Millisecond)
	return Quote{Symbol: symbol, Price: 100 + float64(len(symbol)), AsOf: time.Now()}, nil
}

func main() {
	fs := flashflags.New("cascadedemo")
	dbPath := fs.String("db", "cascadedemo.sqlite3", "path to the sqlite store")
	metricsAddr := fs.String("metrics-addr", ":2112", "address for the /metrics endpoint")
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	store, err := sqlitestore.Open(*dbPath)
	if err != nil {
		log.Fatalf("open sqlite store: %v", err)
	}
	defer store.Close()

	exporter, err := prometheus.New()
	if err != nil {
		log.Fatalf("create prometheus exporter: %v", err)
	}
	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
	}()

	collector, err := otelmetrics.New(provider)
	if err != nil {
		log.Fatalf("create metrics collector: %v", err)
	}

	backend := cascade.NewByteBackend(store, cascade.NewSystemClock())
	cfg := cascade.DefaultConfig()
	cfg.MetricsCollector = collector
	cfg.DefaultTTL = 30 * time.Second
	cfg.DefaultStaleTTL = 2 * time.Minute

	cache, err := cascade.New(cfg, backend)
	if err != nil {
		log.Fatalf("construct cache: %v", err)
	}
	quotes := cascade.NewTyped[Quote](cache, encodeQuote, decodeQuote)

	http.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: *metricsAddr}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("metrics server: %v", err)
		}
	}()
	fmt.Printf("metrics available at http://localhost%s/metrics\n", *metricsAddr)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	runWorkload(ctx, quotes)
}

// runWorkload demonstrates cache-aside population, a stampede of
// concurrent GetOrSet callers coalescing into one upstream fetch, and tag
// invalidation, repeating until ctx is cancelled.
func runWorkload(ctx context.Context, quotes *cascade.Typed[Quote]) {
	for ctx.Err() == nil {
		q, err := quotes.GetOrSet(ctx, "quote:AAPL", func(ctx context.Context) (Quote, error) {
			return fetchQuote("AAPL")
		}, cascade.Options{Tags: []string{"equities"}})
		if err != nil {
			log.Printf("GetOrSet(quote:AAPL): %v", err)
		} else {
			fmt.Printf("quote:AAPL = %.2f (as of %s)\n", q.Price, q.AsOf.Format(time.RFC3339))
		}

		stampede(ctx, quotes)

		if err := quotes.InvalidateTag(ctx, "equities"); err != nil {
			log.Printf("InvalidateTag(equities): %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

// stampede launches concurrent GetOrSet callers for the same key to show
// the single upstream fetch cascade's coordinator guarantees.
func stampede(ctx context.Context, quotes *cascade.Typed[Quote]) {
	const n = 25
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := quotes.GetOrSet(ctx, "quote:MSFT", func(ctx context.Context) (Quote, error) {
				return fetchQuote("MSFT")
			}, cascade.Options{Tags: []string{"equities"}})
			if err != nil {
				log.Printf("stampede GetOrSet(quote:MSFT): %v", err)
			}
		}()
	}
	wg.Wait()
}
