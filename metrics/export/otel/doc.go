// Package otel publishes engine counters through an OpenTelemetry Meter.
//
// Every counter becomes an Int64ObservableCounter. The authentication latency
// histogram is published as one cumulative gauge per bucket, distinguished by
// an "le" attribute, plus a count gauge. One callback reads the engine
// snapshot per collection.
//
// The caller owns the MeterProvider.
package otel
