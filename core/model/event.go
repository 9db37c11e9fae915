package model

import "time"

// EventAction tags an entry of the event log.
type EventAction string

const (
	ActionSurgePricing          EventAction = "AUTO_SURGE_PRICING"
	ActionSurgePricingNoReroute EventAction = "AUTO_SURGE_PRICING_NO_REROUTE"
	ActionTrafficSurgeDetected  EventAction = "TRAFFIC_SURGE_DETECTED"
)

// EventLogEntry records one simulator or controller action.
type EventLogEntry struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Action    EventAction       `json:"action"`
	Details   map[string]string `json:"details"`
}

// PriceChange is emitted whenever the controller reprices a station.
type PriceChange struct {
	StationID string
	OldPrice  float64
	NewPrice  float64
	Reason    string
	Time      time.Time
}

// TickCompleted is published after every simulation tick.
type TickCompleted struct {
	Target   time.Time
	Stations int
	Surged   []string
	Healed   []string
	Duration time.Duration
}
