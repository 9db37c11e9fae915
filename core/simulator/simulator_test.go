package simulator

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/stationrisk/core/aggregate"
	"github.com/kilianp07/stationrisk/core/eventlog"
	"github.com/kilianp07/stationrisk/core/healing"
	"github.com/kilianp07/stationrisk/core/history"
	"github.com/kilianp07/stationrisk/core/model"
	"github.com/kilianp07/stationrisk/core/stationstatus"
)

var base = time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)

func fleet(t *testing.T, n int, price, util float64) (*history.Store, *stationstatus.Table) {
	t.Helper()
	var rows []model.HistoricalRow
	for i := 0; i < n; i++ {
		p := price
		rows = append(rows, model.HistoricalRow{
			StationID:              fmt.Sprintf("S%03d", i),
			StationName:            fmt.Sprintf("Station %d", i),
			Timestamp:              base,
			Latitude:               float64(i),
			Longitude:              float64(i),
			CurrentPrice:           &p,
			UtilizationRate:        util,
			TemperatureF:           70,
			AvgSessionDurationMins: 35,
		})
	}
	st, err := history.New(rows)
	require.NoError(t, err)
	return st, stationstatus.New(0.45, aggregate.Snapshot(st.All(), 0.45))
}

func newSim(store *history.Store, log *eventlog.Log, opts ...Option) *Simulator {
	return New(store, healing.New(log), log, append([]Option{WithSeed(7)}, opts...)...)
}

func TestTick_StaysInBounds(t *testing.T) {
	store, tb := fleet(t, 30, 0.45, 0.55)
	log := eventlog.New()
	sim := newSim(store, log, WithSurgeProbability(0.5))

	for i := 0; i < 20; i++ {
		_, err := sim.Tick(tb, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
		for _, s := range tb.List() {
			assert.Greater(t, s.Price, 0.0)
			assert.GreaterOrEqual(t, s.UtilizationRate, 0.0)
			assert.LessOrEqual(t, s.UtilizationRate, 1.0)
			want := s.Price * s.UtilizationRate * s.AvgSessionDurationMins
			assert.InDelta(t, want, s.RevenueAtRiskDaily, 1e-9)
		}
	}
	assert.LessOrEqual(t, log.Len(), eventlog.DefaultCapacity)
}

func TestTick_UsesHistoricalAnalog(t *testing.T) {
	p := 0.8
	rows := []model.HistoricalRow{
		{StationID: "A", Timestamp: base.AddDate(-1, 0, 0), UtilizationRate: 0.10, TemperatureF: 50, CurrentPrice: &p, AvgSessionDurationMins: 30},
		{StationID: "A", Timestamp: base, UtilizationRate: 0.90, TemperatureF: 90, CurrentPrice: &p, AvgSessionDurationMins: 30},
	}
	store, err := history.New(rows)
	require.NoError(t, err)
	tb := stationstatus.New(0.45, aggregate.Snapshot(store.All(), 0.45))

	sim := newSim(store, eventlog.New(), WithSurgeProbability(0))
	// Only last year's row matches March at 14:00.
	_, err = sim.Tick(tb, time.Date(2025, time.March, 3, 14, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	st, _ := tb.Get("A")
	assert.InDelta(t, 0.9, st.UtilizationRate, 0.3, "no analog keeps current values")

	rows[0].Timestamp = time.Date(2023, time.March, 1, 14, 0, 0, 0, time.UTC)
	store, err = history.New(rows)
	require.NoError(t, err)
	tb = stationstatus.New(0.45, aggregate.Snapshot(store.All(), 0.45))
	sim = newSim(store, eventlog.New(), WithSurgeProbability(0))
	_, err = sim.Tick(tb, time.Date(2025, time.March, 3, 14, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	st, _ = tb.Get("A")
	assert.InDelta(t, 0.1, st.UtilizationRate, 0.3)
	assert.InDelta(t, 50, st.TemperatureF, 12)
}

func TestTick_SurgeLogsEachVictim(t *testing.T) {
	// Prices above the heal ceiling keep the sweep out of the way.
	store, tb := fleet(t, 10, 0.60, 0.20)
	log := eventlog.New()
	sim := newSim(store, log, WithSurgeProbability(1))

	rep, err := sim.Tick(tb, base)
	require.NoError(t, err)
	require.NotEmpty(t, rep.Surged)
	assert.LessOrEqual(t, len(rep.Surged), SurgeMaxVictims)
	assert.Empty(t, rep.Healed)
	assert.Equal(t, len(rep.Surged), log.Len())

	seen := map[string]bool{}
	for _, id := range rep.Surged {
		assert.False(t, seen[id], "victims drawn without replacement")
		seen[id] = true
		st, _ := tb.Get(id)
		assert.Equal(t, SurgeUtilization, st.UtilizationRate)
		assert.Equal(t, SurgeWaitMins, st.EstimatedWaitTimeMins)
		assert.Greater(t, st.TemperatureF, 80.0)
	}
	for _, e := range log.Entries() {
		assert.Equal(t, model.ActionTrafficSurgeDetected, e.Action)
	}
}

func TestTick_SurgeSkippedWhenPoolEmpty(t *testing.T) {
	store, tb := fleet(t, 5, 0.60, 0.80)
	log := eventlog.New()
	rep, err := newSim(store, log, WithSurgeProbability(1)).Tick(tb, base)
	require.NoError(t, err)
	assert.Empty(t, rep.Surged)
	assert.Zero(t, log.Len())
}

func TestTick_SweepHealsAtMostTwo(t *testing.T) {
	store, tb := fleet(t, 6, 0.40, 0.90)
	log := eventlog.New()
	rep, err := newSim(store, log, WithSurgeProbability(0)).Tick(tb, base)
	require.NoError(t, err)
	require.Equal(t, []string{"S000", "S001"}, rep.Healed)
	assert.Equal(t, 2, log.Len())
	entries := log.Entries()
	assert.Equal(t, model.ActionSurgePricingNoReroute, entries[0].Action)
	// The second heal reroutes onto the first, now the only healthy station.
	assert.Equal(t, model.ActionSurgePricing, entries[1].Action)
	first, _ := tb.Get("S000")
	assert.InDelta(t, 0.40*healing.SurgeMultiplier*healing.RerouteMultiplier, first.Price, 1e-12)
	second, _ := tb.Get("S001")
	assert.InDelta(t, 0.40*healing.SurgeMultiplier, second.Price, 1e-12)
	st, _ := tb.Get("S005")
	assert.InDelta(t, 0.40, st.Price, 1e-12)
}

func TestSweep_Thresholds(t *testing.T) {
	cases := []struct {
		name   string
		price  float64
		util   float64
		healed bool
	}{
		{"hot and cheap", 0.49, 0.61, true},
		{"price at ceiling", 0.50, 0.61, false},
		{"price above ceiling", 0.65, 0.95, false},
		{"utilization at threshold", 0.49, 0.60, false},
		{"cool", 0.40, 0.30, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, tb := fleet(t, 1, tc.price, tc.util)
			log := eventlog.New()
			// sweep directly: Tick adds noise to utilization first.
			healed, err := newSim(store, log, WithSurgeProbability(0)).sweep(tb)
			require.NoError(t, err)
			st, _ := tb.Get("S000")
			if tc.healed {
				assert.Equal(t, []string{"S000"}, healed)
				assert.InDelta(t, tc.price*healing.SurgeMultiplier, st.Price, 1e-12)
				assert.Equal(t, 1, log.Len())
				return
			}
			assert.Empty(t, healed)
			assert.InDelta(t, tc.price, st.Price, 1e-12)
			assert.InDelta(t, tc.util, st.UtilizationRate, 1e-12)
			assert.Zero(t, log.Len())
		})
	}
}

func TestTick_SweepSkipsSurgedPrice(t *testing.T) {
	store, tb := fleet(t, 4, 0.50, 0.95)
	log := eventlog.New()
	rep, err := newSim(store, log, WithSurgeProbability(0)).Tick(tb, base)
	require.NoError(t, err)
	assert.Empty(t, rep.Healed)
	for _, st := range tb.List() {
		assert.InDelta(t, 0.50, st.Price, 1e-12)
	}
	assert.Zero(t, log.Len())
}

func TestTick_SeedIsReproducible(t *testing.T) {
	run := func() []float64 {
		store, tb := fleet(t, 8, 0.45, 0.4)
		sim := newSim(store, eventlog.New(), WithSurgeProbability(0.3))
		for i := 0; i < 5; i++ {
			_, err := sim.Tick(tb, base.Add(time.Duration(i)*time.Hour))
			require.NoError(t, err)
		}
		var out []float64
		for _, s := range tb.List() {
			out = append(out, s.UtilizationRate, s.TemperatureF)
		}
		return out
	}
	a, b := run(), run()
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.False(t, math.IsNaN(a[i]))
		assert.Equal(t, a[i], b[i])
	}
}
