// Package otel provides OpenTelemetry metric exporter bindings for
// authcore counters.
//
// [NewOTelExporter] registers an Int64ObservableCounter per authcore
// metric. A single callback reads [authcore.Engine.MetricsSnapshot] on
// each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
