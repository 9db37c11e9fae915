package metrics

import "github.com/kilianp07/stationrisk/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// StationPoints enables per-station state recording after each tick.
	StationPoints bool `json:"station_points"`
}
