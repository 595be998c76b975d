package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/labkm/labauth/metrics"
	"github.com/labkm/labauth/metrics/export/internaldefs"
)

type fakeSource struct {
	snapshot metrics.Snapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() metrics.Snapshot { return f.snapshot }
func (f fakeSource) NoticesDropped() uint64            { return f.dropped }

type liveSource struct {
	m *metrics.Metrics
}

func (l liveSource) MetricsSnapshot() metrics.Snapshot { return l.m.Snapshot() }
func (l liveSource) NoticesDropped() uint64            { return 0 }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporter(liveSource{m: metrics.New(metrics.Config{})})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDeterministicIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporter(fakeSource{
		snapshot: metrics.Snapshot{
			Counters: map[metrics.MetricID]uint64{
				metrics.MetricLoginSuccess: 7,
			},
			Histograms: map[metrics.MetricID][]uint64{
				metrics.MetricRequestLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"labauth_login_success_total 7",
		"labauth_token_expired_total 0",
		`labauth_request_latency_seconds_bucket{le="0.025"} 1`,
		`labauth_request_latency_seconds_bucket{le="+Inf"} 36`,
		"labauth_request_latency_seconds_count 36",
		"labauth_notices_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderOmitsHistogramWhenLatencyDisabled(t *testing.T) {
	m := metrics.New(metrics.Config{Enabled: true})
	m.Inc(metrics.MetricRefreshSuccess)

	out := NewPrometheusExporter(liveSource{m: m}).Render()
	if !strings.Contains(out, "labauth_refresh_success_total 1") {
		t.Fatalf("missing refresh counter:\n%s", out)
	}
	if strings.Contains(out, "labauth_request_latency_seconds") {
		t.Fatalf("histogram rendered while disabled:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporter(fakeSource{
		snapshot: metrics.Snapshot{
			Counters:   map[metrics.MetricID]uint64{metrics.MetricLoginSuccess: 1},
			Histograms: map[metrics.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestEveryCounterHasDefinition(t *testing.T) {
	defined := make(map[metrics.MetricID]bool, len(internaldefs.CounterDefs))
	for _, def := range internaldefs.CounterDefs {
		if defined[def.ID] {
			t.Fatalf("duplicate definition for id %d", def.ID)
		}
		defined[def.ID] = true
	}
	for id := metrics.MetricID(0); int(id) < metrics.Count(); id++ {
		if id == metrics.MetricRequestLatency {
			continue
		}
		if !defined[id] {
			t.Fatalf("metric id %d has no counter definition", id)
		}
	}
}

func TestCollectorMatchesCounters(t *testing.T) {
	m := metrics.New(metrics.Config{Enabled: true})
	m.Inc(metrics.MetricLoginSuccess)
	m.Inc(metrics.MetricLoginSuccess)
	m.Inc(metrics.MetricGuardRedirect)

	c := NewCollector(liveSource{m: m})

	expected := `
# HELP labauth_login_success_total Completed logins.
# TYPE labauth_login_success_total counter
labauth_login_success_total 2
# HELP labauth_guard_redirect_total Navigations redirected by the guard.
# TYPE labauth_guard_redirect_total counter
labauth_guard_redirect_total 1
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"labauth_login_success_total", "labauth_guard_redirect_total"); err != nil {
		t.Fatalf("unexpected collector output: %v", err)
	}
}

func TestCollectorCountsSeries(t *testing.T) {
	m := metrics.New(metrics.Config{Enabled: true, EnableLatencyHistograms: true})
	c := NewCollector(liveSource{m: m})

	want := len(internaldefs.CounterDefs) + len(internaldefs.HistogramDefs) + 1
	if got := testutil.CollectAndCount(c); got != want {
		t.Fatalf("expected %d series, got %d", want, got)
	}

	disabled := NewCollector(liveSource{m: metrics.New(metrics.Config{})})
	if got := testutil.CollectAndCount(disabled); got != 1 {
		t.Fatalf("disabled metrics should only expose the dropped counter, got %d series", got)
	}
}

func TestCollectorRegisters(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(NewCollector(fakeSource{dropped: 3})); err != nil {
		t.Fatalf("register: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 1 || families[0].GetName() != "labauth_notices_dropped_total" {
		t.Fatalf("unexpected families: %v", families)
	}
	if got := families[0].GetMetric()[0].GetCounter().GetValue(); got != 3 {
		t.Fatalf("dropped counter = %v", got)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporter(fakeSource{
		snapshot: metrics.Snapshot{
			Counters: map[metrics.MetricID]uint64{
				metrics.MetricRequestSent:    1000,
				metrics.MetricRequestFailed:  40,
				metrics.MetricRefreshSuccess: 800,
				metrics.MetricRefreshFailure: 10,
				metrics.MetricTokenExpired:   20,
			},
			Histograms: map[metrics.MetricID][]uint64{
				metrics.MetricRequestLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
