// Package prometheus exposes engine metrics through a prometheus.Collector.
//
// The collector reads a fresh snapshot on every scrape and emits const metrics, so nothing is
// double-counted and the engine stays free of Prometheus types. Register it on your own
// registry, or use [Exporter.Handler] for a private one.
package prometheus
