// Package metrics implements the in-process counter bank behind the
// engine's metrics snapshot and the prometheus/otel exporters.
package metrics
