// Package otel provides OpenTelemetry bindings for the engine's counters.
//
// [NewOTelExporter] registers an Int64ObservableCounter per engine metric and
// a single callback that reads [miniauth.Engine.MetricsSnapshot] on each
// collection cycle.
//
// The package never owns the MeterProvider. Callers supply the Meter and keep
// control of reader and export configuration.
package otel
