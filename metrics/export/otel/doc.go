// Package otel binds engine metrics to OpenTelemetry observable instruments.
//
// One Int64ObservableCounter is registered per counter and one Int64ObservableGauge per
// latency bucket. A single callback reads the engine snapshot on each collection. Callers own
// the MeterProvider.
package otel
