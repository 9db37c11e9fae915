package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/stationrisk/core/factory"
	"github.com/kilianp07/stationrisk/core/model"
)

// FleetConfig selects the historical source and the tracked sample.
type FleetConfig struct {
	Source factory.ModuleConfig `json:"source"`
	// SampleSize limits the active table; 0 tracks every station.
	SampleSize   int     `json:"sample_size"`
	DefaultPrice float64 `json:"default_price"`
	// Seed drives sampling and tick noise; 0 picks a random seed.
	Seed uint64 `json:"seed"`
}

// SetDefaults applies the CSV source and the default price.
func (c *FleetConfig) SetDefaults() {
	if c.Source.Type == "" {
		c.Source.Type = "csv"
	}
	if c.Source.Type == "csv" {
		if c.Source.Conf == nil {
			c.Source.Conf = map[string]any{}
		}
		if _, ok := c.Source.Conf["path"]; !ok {
			c.Source.Conf["path"] = "data/ev_charging_stations.csv"
		}
	}
	if c.DefaultPrice <= 0 {
		c.DefaultPrice = model.DefaultPrice
	}
}

// Validate checks the sample size.
func (c FleetConfig) Validate() error {
	if c.SampleSize < 0 {
		return fmt.Errorf("sample_size must be >= 0, got %d", c.SampleSize)
	}
	return nil
}

// SimulationConfig controls the background tick loop.
type SimulationConfig struct {
	AutoTick         bool    `json:"auto_tick"`
	StepMinutes      int     `json:"step_minutes"`
	IntervalSeconds  int     `json:"interval_seconds"`
	SurgeProbability float64 `json:"surge_probability"`
}

// SetDefaults applies a 15 minute step every 5 seconds.
func (c *SimulationConfig) SetDefaults() {
	if c.StepMinutes <= 0 {
		c.StepMinutes = 15
	}
	if c.IntervalSeconds <= 0 {
		c.IntervalSeconds = 5
	}
}

// Validate checks the surge probability bounds.
func (c SimulationConfig) Validate() error {
	if c.SurgeProbability < 0 || c.SurgeProbability > 1 {
		return fmt.Errorf("surge_probability must be within [0,1], got %v", c.SurgeProbability)
	}
	return nil
}

// Step returns the simulated clock increment.
func (c SimulationConfig) Step() time.Duration { return time.Duration(c.StepMinutes) * time.Minute }

// Interval returns the wall-clock period between ticks.
func (c SimulationConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// ModelsConfig points at the risk model artifact.
type ModelsConfig struct {
	// Path is optional; without it every station uses the fallback score.
	Path  string `json:"path"`
	Watch bool   `json:"watch"`
	// DebounceMS groups bursts of file events into one reload.
	DebounceMS int `json:"debounce_ms"`
}

// Validate rejects watching without a path.
func (c ModelsConfig) Validate() error {
	if c.Watch && c.Path == "" {
		return fmt.Errorf("watch requires path")
	}
	if c.DebounceMS < 0 {
		return fmt.Errorf("debounce_ms must be >= 0")
	}
	return nil
}

// Debounce returns the reload debounce, 500ms when unset.
func (c ModelsConfig) Debounce() time.Duration {
	if c.DebounceMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Address string `json:"address"`
}

// SetDefaults listens on :8000.
func (c *APIConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8000"
	}
}

// Validate is a no-op kept for symmetry with the other sections.
func (c APIConfig) Validate() error { return nil }
