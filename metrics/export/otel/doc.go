// Package otel binds labauth counters to OpenTelemetry observable instruments.
//
// [NewOTelExporter] registers an Int64ObservableCounter per counter and an
// Int64ObservableGauge per latency bucket. The caller owns the MeterProvider.
package otel
