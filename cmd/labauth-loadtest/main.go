package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/labkm/labauth"
	otelexport "github.com/labkm/labauth/metrics/export/otel"
)

func main() {
	var (
		callers   = flag.Int("callers", 64, "concurrent requests issued per round")
		rounds    = flag.Int("rounds", 50, "token expiry rounds")
		coalesce  = flag.Bool("coalesce", true, "share one refresh between concurrent expiries")
		proactive = flag.Duration("proactive", 0, "proactive refresh window (0 disables)")
		ttl       = flag.Duration("token-ttl", time.Minute, "access token lifetime")
		redisAddr = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix    = flag.String("prefix", "labauth-loadtest", "credential key prefix")
	)
	flag.Parse()

	if *callers <= 0 || *rounds <= 0 {
		fmt.Fprintln(os.Stderr, "callers and rounds must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	api := newBackend(*ttl)
	srv := httptest.NewServer(api)
	defer srv.Close()

	cfg := labauth.DefaultConfig()
	cfg.Transport.BaseURL = srv.URL
	cfg.Transport.ProactiveRefreshWindow = *proactive
	cfg.Refresh.Coalesce = *coalesce
	cfg.Storage.Backend = labauth.StoreRedis
	cfg.Storage.RedisPrefix = *prefix
	cfg.Notify.Sink = "none"
	cfg.Metrics.EnableLatencyHistograms = true

	client, err := labauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithHTTPClient(srv.Client()).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()
	exporter, err := otelexport.NewOTelExporter(provider.Meter("labauth-loadtest"), client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "otel exporter: %v\n", err)
		os.Exit(1)
	}
	defer exporter.Close()

	if _, err := client.Session().Login(ctx, map[string]string{"username": "loadtest", "password": "loadtest"}); err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("running %d rounds x %d callers (coalesce=%t)...\n", *rounds, *callers, *coalesce)
	stats := runExpiryPhase(ctx, client, api, *rounds, *callers)

	fmt.Println("---- results ----")
	printStats("expiry", stats)
	exchanges := api.refreshes.Load()
	fmt.Printf("refresh exchanges=%d per-round=%.2f server-rejections=%d\n",
		exchanges, float64(exchanges)/float64(*rounds), api.rejected.Load())
	printCollected(ctx, reader)
}

// runExpiryPhase expires every access token, then fires callers requests at
// once so they all hit a 401 together.
func runExpiryPhase(ctx context.Context, client *labauth.Client, api *backend, rounds, callers int) phaseStats {
	var (
		failures  int64
		latencies = make([]time.Duration, 0, rounds*callers)
		mu        sync.Mutex
	)

	tr := client.Transport()
	start := time.Now()
	for round := 0; round < rounds; round++ {
		api.rotate()

		var wg sync.WaitGroup
		gate := make(chan struct{})
		for w := 0; w < callers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-gate
				t0 := time.Now()
				_, err := tr.Get(ctx, "/api/v1/achievements", nil)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}()
		}
		close(gate)
		wg.Wait()
	}
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// printCollected reports the client-side counters as seen through OTel.
func printCollected(ctx context.Context, reader *sdkmetric.ManualReader) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		fmt.Fprintf(os.Stderr, "collect metrics: %v\n", err)
		return
	}
	want := map[string]bool{
		"labauth_token_expired_total":     true,
		"labauth_retry_issued_total":      true,
		"labauth_retry_success_total":     true,
		"labauth_refresh_success_total":   true,
		"labauth_refresh_coalesced_total": true,
		"labauth_proactive_refresh_total": true,
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if !want[m.Name] {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && len(sum.DataPoints) > 0 {
				fmt.Printf("%s=%d\n", m.Name, sum.DataPoints[0].Value)
			}
		}
	}
}
