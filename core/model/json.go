package model

import (
	"encoding/json"
	"math"
)

// stateJSON drops the StationState methods so MarshalJSON can reuse the
// default encoding.
type stateJSON StationState

// MarshalJSON encodes missing (NaN) measurements as null. Non-finite Extra
// values are omitted.
func (s StationState) MarshalJSON() ([]byte, error) {
	c := s
	c.Extra = nil
	if len(s.Extra) > 0 {
		c.Extra = make(map[string]float64, len(s.Extra))
		for k, v := range s.Extra {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				c.Extra[k] = v
			}
		}
	}
	var missing []string
	for key, f := range c.floatFields() {
		if math.IsNaN(*f) || math.IsInf(*f, 0) {
			*f = 0
			missing = append(missing, key)
		}
	}
	b, err := json.Marshal(stateJSON(c))
	if err != nil || len(missing) == 0 {
		return b, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	for _, key := range missing {
		fields[key] = json.RawMessage("null")
	}
	return json.Marshal(fields)
}

// floatFields maps JSON keys to the float measurements of s.
func (s *StationState) floatFields() map[string]*float64 {
	return map[string]*float64{
		"latitude":                   &s.Latitude,
		"longitude":                  &s.Longitude,
		"utilization_rate":           &s.UtilizationRate,
		"temperature_f":              &s.TemperatureF,
		"estimated_wait_time_mins":   &s.EstimatedWaitTimeMins,
		"avg_session_duration_mins":  &s.AvgSessionDurationMins,
		"amenities_nearby":           &s.AmenitiesNearby,
		"ports_available":            &s.PortsAvailable,
		"ports_occupied":             &s.PortsOccupied,
		"ports_out_of_service":       &s.PortsOutOfService,
		"current_price":              &s.Price,
		"historical_utilization_avg": &s.HistoricalUtilizationAvg,
		"revenue_at_risk_daily":      &s.RevenueAtRiskDaily,
		"risk_score":                 &s.RiskScore,
	}
}
