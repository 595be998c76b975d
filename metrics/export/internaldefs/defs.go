package internaldefs

import (
	"github.com/labkm/labauth/metrics"
)

// CounterDef binds a counter id to its exported name.
type CounterDef struct {
	ID   metrics.MetricID
	Name string
	Help string
}

// HistogramDef binds a histogram id to its exported name.
type HistogramDef struct {
	ID   metrics.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: metrics.MetricRequestSent, Name: "labauth_request_sent_total", Help: "Request attempts sent, retries included."},
	{ID: metrics.MetricRequestFailed, Name: "labauth_request_failed_total", Help: "Responses routed through the failure phase."},
	{ID: metrics.MetricRequestTimeout, Name: "labauth_request_timeout_total", Help: "Requests that exceeded the transport timeout."},
	{ID: metrics.MetricRequestUnreachable, Name: "labauth_request_unreachable_total", Help: "Requests that received no response."},
	{ID: metrics.MetricPermissionDenied, Name: "labauth_permission_denied_total", Help: "401 responses classified as permission denial."},
	{ID: metrics.MetricTokenExpired, Name: "labauth_token_expired_total", Help: "401 responses classified as token expiry."},
	{ID: metrics.MetricRetryIssued, Name: "labauth_retry_issued_total", Help: "Requests re-issued after a token refresh."},
	{ID: metrics.MetricRetrySuccess, Name: "labauth_retry_success_total", Help: "Re-issued requests that succeeded."},
	{ID: metrics.MetricRefreshSuccess, Name: "labauth_refresh_success_total", Help: "Successful refresh exchanges."},
	{ID: metrics.MetricRefreshFailure, Name: "labauth_refresh_failure_total", Help: "Rejected or failed refresh exchanges."},
	{ID: metrics.MetricRefreshCoalesced, Name: "labauth_refresh_coalesced_total", Help: "Callers that shared an in-flight refresh."},
	{ID: metrics.MetricProactiveRefresh, Name: "labauth_proactive_refresh_total", Help: "Refreshes triggered before send by token expiry."},
	{ID: metrics.MetricCredentialsCleared, Name: "labauth_credentials_cleared_total", Help: "Session wipes after unrecoverable auth failures."},
	{ID: metrics.MetricLoginRedirect, Name: "labauth_login_redirect_total", Help: "Scheduled redirects to the login route."},
	{ID: metrics.MetricLoginSuccess, Name: "labauth_login_success_total", Help: "Completed logins."},
	{ID: metrics.MetricLoginFailure, Name: "labauth_login_failure_total", Help: "Failed logins."},
	{ID: metrics.MetricLogout, Name: "labauth_logout_total", Help: "Logouts."},
	{ID: metrics.MetricGuardRedirect, Name: "labauth_guard_redirect_total", Help: "Navigations redirected by the guard."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: metrics.MetricRequestLatency, Name: "labauth_request_latency_seconds", Help: "Request latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the latency buckets.
var HistogramBounds = []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 5}

// HistogramBoundLabels renders HistogramBounds plus the +Inf bucket.
var HistogramBoundLabels = []string{
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"5",
	"+Inf",
}

// HistogramBoundSuffix is the instrument-name-safe form of HistogramBoundLabels.
var HistogramBoundSuffix = []string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [metrics.HistogramBucketCount]uint64 {
	var out [metrics.HistogramBucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [metrics.HistogramBucketCount]uint64) [metrics.HistogramBucketCount]uint64 {
	var out [metrics.HistogramBucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
