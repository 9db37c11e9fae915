// Package metrics defines the observability sinks of the engine. A
// MetricsSink records tick summaries; sinks may additionally implement the
// optional recorder interfaces for station states, price changes, event
// log entries and enrichment runs. NewMetricsSink builds sinks from
// configuration and combines several into a MultiSink.
package metrics
