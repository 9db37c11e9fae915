package risk

import (
	"math"
	"sort"

	"github.com/kilianp07/stationrisk/core/model"
)

// DroppedColumns never reach the classifier: identifiers, location, port
// counts, the training target and the derived revenue figure.
var DroppedColumns = []string{
	"station_id", "station_name", "timestamp", "city", "state",
	"latitude", "longitude", "amenities_nearby",
	"ports_available", "ports_occupied", "ports_out_of_service",
	"station_status", "revenue_at_risk_daily",
}

// CategoricalColumns are label encoded before scoring.
var CategoricalColumns = []string{
	"network", "location_type", "charger_type", "pricing_type", "weather_condition", "local_event",
}

// NumericColumns are passed through as is, ahead of any extra columns.
var NumericColumns = []string{
	"current_price", "utilization_rate", "temperature_f",
	"estimated_wait_time_mins", "avg_session_duration_mins", "historical_utilization_avg",
}

type featureRow struct {
	numeric     map[string]float64
	categorical map[string]string
}

func featurize(s model.StationState) (featureRow, error) {
	f := featureRow{
		numeric: map[string]float64{
			"current_price":              s.Price,
			"utilization_rate":           s.UtilizationRate,
			"temperature_f":              s.TemperatureF,
			"estimated_wait_time_mins":   s.EstimatedWaitTimeMins,
			"avg_session_duration_mins":  s.AvgSessionDurationMins,
			"historical_utilization_avg": s.HistoricalUtilizationAvg,
		},
		categorical: map[string]string{
			"network":           s.Network,
			"location_type":     s.LocationType,
			"charger_type":      s.ChargerType,
			"pricing_type":      s.PricingType,
			"weather_condition": s.WeatherCondition,
			"local_event":       s.LocalEvent,
		},
	}
	dropped := make(map[string]struct{}, len(DroppedColumns))
	for _, c := range DroppedColumns {
		dropped[c] = struct{}{}
	}
	for k, v := range s.Extra {
		if _, ok := dropped[k]; ok {
			continue
		}
		f.numeric[k] = v
	}
	for _, col := range sortedKeys(f.numeric) {
		if v := f.numeric[col]; math.IsNaN(v) || math.IsInf(v, 0) {
			return featureRow{}, &model.FeaturizationError{StationID: s.StationID, Column: col}
		}
	}
	return f, nil
}

// defaultColumns is the column order used when the classifier does not
// declare one: encoded categoricals, known numerics, then extras sorted.
func defaultColumns(rows []featureRow, encoded map[string]bool) []string {
	var cols []string
	for _, c := range CategoricalColumns {
		if encoded[c] {
			cols = append(cols, c)
		}
	}
	cols = append(cols, NumericColumns...)
	known := make(map[string]struct{}, len(NumericColumns))
	for _, c := range NumericColumns {
		known[c] = struct{}{}
	}
	extras := map[string]float64{}
	for _, r := range rows {
		for k := range r.numeric {
			if _, ok := known[k]; !ok {
				extras[k] = 0
			}
		}
	}
	return append(cols, sortedKeys(extras)...)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
