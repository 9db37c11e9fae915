package metrics

import (
	"errors"
	"time"

	"github.com/kilianp07/stationrisk/core/model"
)

// MultiSink fans out to several sinks. Optional recorders are forwarded to
// the sinks that implement them. Errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordTick(ev TickEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordTick(ev))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordStationStates(states []model.StationState, at time.Time) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(StationStateRecorder); ok {
			errs = append(errs, r.RecordStationStates(states, at))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordPriceChange(pc model.PriceChange) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(PriceChangeRecorder); ok {
			errs = append(errs, r.RecordPriceChange(pc))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordEventLog(e model.EventLogEntry) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(EventLogRecorder); ok {
			errs = append(errs, r.RecordEventLog(e))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordEnrichment(ev EnrichmentEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(EnrichmentRecorder); ok {
			errs = append(errs, r.RecordEnrichment(ev))
		}
	}
	return errors.Join(errs...)
}
