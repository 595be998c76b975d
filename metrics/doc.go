// Package metrics provides lock-free counters and a request latency histogram
// for the labauth client.
//
// Counters are stored in cache-line-padded uint64 slots and incremented
// atomically. The histogram uses 8 fixed buckets (≤25ms … +Inf). Both are
// allocation-free on the write path.
//
// Export (Prometheus, OTel) lives in metrics/export and reads [Snapshot] values.
package metrics
