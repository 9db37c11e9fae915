package metrics

import (
	"time"

	"github.com/kilianp07/stationrisk/core/model"
)

// TickEvent summarizes one simulation tick.
type TickEvent struct {
	Target   time.Time
	Stations int
	Surged   int
	Healed   int
	Duration time.Duration
}

// MetricsSink records tick summaries.
type MetricsSink interface {
	RecordTick(ev TickEvent) error
}

// StationStateRecorder records a snapshot of the active table.
type StationStateRecorder interface {
	RecordStationStates(states []model.StationState, at time.Time) error
}

// PriceChangeRecorder records controller price moves.
type PriceChangeRecorder interface {
	RecordPriceChange(pc model.PriceChange) error
}

// EventLogRecorder records event log entries.
type EventLogRecorder interface {
	RecordEventLog(e model.EventLogEntry) error
}

// EnrichmentEvent describes one risk enrichment batch.
type EnrichmentEvent struct {
	Scored    int
	Fallback  int
	Unencoded int
	// Reason is empty when the model scored the batch.
	Reason   string
	Duration time.Duration
}

// EnrichmentRecorder records enrichment batches.
type EnrichmentRecorder interface {
	RecordEnrichment(ev EnrichmentEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordTick(TickEvent) error                               { return nil }
func (NopSink) RecordStationStates([]model.StationState, time.Time) error { return nil }
func (NopSink) RecordPriceChange(model.PriceChange) error                 { return nil }
func (NopSink) RecordEventLog(model.EventLogEntry) error                  { return nil }
func (NopSink) RecordEnrichment(EnrichmentEvent) error                    { return nil }
