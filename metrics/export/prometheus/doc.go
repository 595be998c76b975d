// Package prometheus exposes labauth counters to Prometheus.
//
// [PrometheusExporter] renders text exposition directly and serves it over an
// [net/http.Handler]. [Collector] plugs the same series into a client_golang
// registry. Counter names are prefixed labauth_ and end in _total; the single
// histogram is labauth_request_latency_seconds.
//
// Neither type registers anything globally.
package prometheus
