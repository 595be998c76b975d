package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a counter slot.
type MetricID uint16

const (
	// MetricRequestSent counts every attempt that left the request phase,
	// retries included.
	MetricRequestSent MetricID = iota
	// MetricRequestFailed counts responses routed through the failure phase.
	MetricRequestFailed
	// MetricRequestTimeout counts transport deadline expiries.
	MetricRequestTimeout
	// MetricRequestUnreachable counts attempts that received no response.
	MetricRequestUnreachable
	// MetricPermissionDenied counts 401 responses classified as permission denial.
	MetricPermissionDenied
	// MetricTokenExpired counts 401 responses classified as token expiry.
	MetricTokenExpired
	// MetricRetryIssued counts requests re-issued after a refresh.
	MetricRetryIssued
	// MetricRetrySuccess counts re-issued requests that succeeded.
	MetricRetrySuccess
	// MetricRefreshSuccess counts successful refresh exchanges.
	MetricRefreshSuccess
	// MetricRefreshFailure counts rejected or failed refresh exchanges.
	MetricRefreshFailure
	// MetricRefreshCoalesced counts callers that shared another caller's refresh.
	MetricRefreshCoalesced
	// MetricProactiveRefresh counts refreshes triggered before send by token expiry.
	MetricProactiveRefresh
	// MetricCredentialsCleared counts unrecoverable session wipes.
	MetricCredentialsCleared
	// MetricLoginRedirect counts scheduled redirects to the login route.
	MetricLoginRedirect
	// MetricLoginSuccess counts completed logins.
	MetricLoginSuccess
	// MetricLoginFailure counts failed logins, malformed responses included.
	MetricLoginFailure
	// MetricLogout counts logouts.
	MetricLogout
	// MetricGuardRedirect counts navigations redirected by the guard.
	MetricGuardRedirect
	// MetricRequestLatency is the only histogram-backed metric.
	MetricRequestLatency
	metricIDCount
)

// Count reports the number of metric ids.
func Count() int { return int(metricIDCount) }

const (
	// HistogramBucketCount is the fixed number of latency buckets.
	HistogramBucketCount = 8
	cacheLineSize        = 64
)

// Config toggles collection.
type Config struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

type histogram struct {
	buckets [HistogramBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and a single request latency histogram.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]histogram
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// New creates a Metrics instance from cfg.
func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments id by one.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the latency histogram. Only MetricRequestLatency
// carries a histogram; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricRequestLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current counter value for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters. Disabled metrics yield empty maps.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := Snapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, HistogramBucketCount)
		for i := 0; i < HistogramBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricRequestLatency].buckets[i])
		}
		s.Histograms[MetricRequestLatency] = buckets
	}

	return s
}

// Upper bounds: 25ms, 50ms, 100ms, 250ms, 500ms, 1s, 5s, +Inf.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 25:
		return 0
	case ms <= 50:
		return 1
	case ms <= 100:
		return 2
	case ms <= 250:
		return 3
	case ms <= 500:
		return 4
	case ms <= 1000:
		return 5
	case ms <= 5000:
		return 6
	default:
		return 7
	}
}
