package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationStateJSON_NaNBecomesNull(t *testing.T) {
	st := StationState{
		HistoricalRow: HistoricalRow{
			StationID:       "S1",
			UtilizationRate: 0.5,
			TemperatureF:    math.NaN(),
			Extra:           map[string]float64{"queue": 2, "broken": math.NaN()},
		},
		Price:              0.45,
		RevenueAtRiskDaily: math.NaN(),
	}
	b, err := json.Marshal(st)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Nil(t, raw["temperature_f"])
	assert.Contains(t, raw, "temperature_f")
	assert.Nil(t, raw["revenue_at_risk_daily"])
	assert.Equal(t, 0.45, raw["current_price"])
	assert.Equal(t, "S1", raw["station_id"])
	assert.Equal(t, map[string]any{"queue": 2.0}, raw["extra"])

	assert.True(t, math.IsNaN(st.TemperatureF), "marshal must not mutate the receiver")
}

func TestStationStateJSON_RoundTrip(t *testing.T) {
	st := StationState{HistoricalRow: HistoricalRow{StationID: "S1", UtilizationRate: 0.3}, Price: 0.5, NeedsMaintenance: true}
	b, err := json.Marshal(st)
	require.NoError(t, err)
	var back StationState
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, "S1", back.StationID)
	assert.Equal(t, 0.5, back.Price)
	assert.True(t, back.NeedsMaintenance)
}
