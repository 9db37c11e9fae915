package model

import (
	"math"
	"time"
)

// DefaultPrice is applied to any station whose price is missing or not
// strictly positive.
const DefaultPrice = 0.45

// HistoricalRow is one immutable telemetry sample of a charging station.
type HistoricalRow struct {
	StationID              string    `json:"station_id"`
	StationName            string    `json:"station_name"`
	Timestamp              time.Time `json:"timestamp"`
	City                   string    `json:"city"`
	State                  string    `json:"state"`
	Latitude               float64   `json:"latitude"`
	Longitude              float64   `json:"longitude"`
	Network                string    `json:"network"`
	LocationType           string    `json:"location_type"`
	ChargerType            string    `json:"charger_type"`
	PricingType            string    `json:"pricing_type"`
	WeatherCondition       string    `json:"weather_condition"`
	LocalEvent             string    `json:"local_event"`
	CurrentPrice           *float64  `json:"current_price"` // nil when the source had no value
	UtilizationRate        float64   `json:"utilization_rate"`
	TemperatureF           float64   `json:"temperature_f"`
	EstimatedWaitTimeMins  float64   `json:"estimated_wait_time_mins"`
	AvgSessionDurationMins float64   `json:"avg_session_duration_mins"`
	AmenitiesNearby        float64   `json:"amenities_nearby"`
	PortsAvailable         float64   `json:"ports_available"`
	PortsOccupied          float64   `json:"ports_occupied"`
	PortsOutOfService      float64   `json:"ports_out_of_service"`
	StationStatus          string    `json:"station_status"`

	// Extra holds numeric columns the source carried beyond the known schema.
	Extra map[string]float64 `json:"extra,omitempty"`
}

// StationState is the mutable current view of one tracked station.
type StationState struct {
	HistoricalRow

	Price                    float64 `json:"current_price"`
	HistoricalUtilizationAvg float64 `json:"historical_utilization_avg"`
	RevenueAtRiskDaily       float64 `json:"revenue_at_risk_daily"`

	PredictedStatus    string  `json:"predicted_status,omitempty"`
	RiskScore          float64 `json:"risk_score"`
	NeedsMaintenance   bool    `json:"needs_maintenance"`
	RootCauseDiagnosis string  `json:"root_cause_diagnosis,omitempty"`
}

// NewStationState projects a historical row into a station state. The
// historical average defaults to the row's own utilization.
func NewStationState(row HistoricalRow, defaultPrice float64) StationState {
	st := StationState{HistoricalRow: row, HistoricalUtilizationAvg: row.UtilizationRate}
	st.HistoricalRow.Extra = cloneExtra(row.Extra)
	if row.CurrentPrice != nil {
		st.Price = *row.CurrentPrice
	}
	st.CurrentPrice = nil
	st.Normalize(defaultPrice)
	return st
}

// Normalize enforces the state invariants: a strictly positive price,
// utilization in [0,1] and a revenue figure consistent with both.
func (s *StationState) Normalize(defaultPrice float64) {
	if defaultPrice <= 0 {
		defaultPrice = DefaultPrice
	}
	if s.Price <= 0 || math.IsNaN(s.Price) {
		s.Price = defaultPrice
	}
	s.UtilizationRate = Clamp(s.UtilizationRate, 0, 1)
	s.RevenueAtRiskDaily = Revenue(s.Price, s.UtilizationRate, s.AvgSessionDurationMins)
}

// Clone returns a deep copy of the state.
func (s StationState) Clone() StationState {
	s.Extra = cloneExtra(s.Extra)
	return s
}

// Revenue computes the daily revenue at risk.
func Revenue(price, utilization, sessionMins float64) float64 {
	return price * utilization * sessionMins
}

// Clamp bounds v to [lo, hi]. NaN is mapped to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func cloneExtra(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	cp := make(map[string]float64, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// StationUpdate is a partial overwrite of a station state. Nil fields are
// left untouched.
type StationUpdate struct {
	Price                 *float64
	UtilizationRate       *float64
	TemperatureF          *float64
	EstimatedWaitTimeMins *float64
}

// Apply writes the non-nil fields of u into s and re-establishes the
// invariants.
func (u StationUpdate) Apply(s *StationState, defaultPrice float64) {
	if u.Price != nil {
		s.Price = *u.Price
	}
	if u.UtilizationRate != nil {
		s.UtilizationRate = *u.UtilizationRate
	}
	if u.TemperatureF != nil {
		s.TemperatureF = *u.TemperatureF
	}
	if u.EstimatedWaitTimeMins != nil {
		s.EstimatedWaitTimeMins = *u.EstimatedWaitTimeMins
	}
	s.Normalize(defaultPrice)
}

// Float returns a pointer to v, for building StationUpdate values.
func Float(v float64) *float64 { return &v }
