// Package aggregate turns historical rows into station snapshots: the last
// row of each station becomes its state and the rows before it feed the
// historical utilization average.
package aggregate

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/stationrisk/core/history"
	"github.com/kilianp07/stationrisk/core/model"
)

// TimeframeCount is the number of selectable monthly snapshots, including
// the live one.
const TimeframeCount = 6

// Query selects a snapshot. A Range with both bounds set wins over
// TimeframeID.
type Query struct {
	TimeframeID string
	Range       *model.DateRange
}

// Aggregator builds snapshots over one history store.
type Aggregator struct {
	store        *history.Store
	defaultPrice float64
}

// New returns an aggregator over store.
func New(store *history.Store, defaultPrice float64) *Aggregator {
	return &Aggregator{store: store, defaultPrice: defaultPrice}
}

// Snapshot projects rows into one state per station, ordered by latest
// timestamp then id. Rows need not be sorted.
func Snapshot(rows []model.HistoricalRow, defaultPrice float64) []model.StationState {
	groups := map[string][]model.HistoricalRow{}
	var ids []string
	for _, r := range rows {
		if _, ok := groups[r.StationID]; !ok {
			ids = append(ids, r.StationID)
		}
		groups[r.StationID] = append(groups[r.StationID], r)
	}
	out := make([]model.StationState, 0, len(ids))
	for _, id := range ids {
		g := groups[id]
		sort.SliceStable(g, func(i, j int) bool { return g[i].Timestamp.Before(g[j].Timestamp) })
		last := g[len(g)-1]
		st := model.NewStationState(last, defaultPrice)
		// Missing prior cells are skipped; with none left the latest
		// utilization stands, as for a single row.
		utils := make([]float64, 0, len(g)-1)
		for _, r := range g[:len(g)-1] {
			if !math.IsNaN(r.UtilizationRate) && !math.IsInf(r.UtilizationRate, 0) {
				utils = append(utils, r.UtilizationRate)
			}
		}
		if len(utils) > 0 {
			st.HistoricalUtilizationAvg = stat.Mean(utils, nil)
		}
		out = append(out, st)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].StationID < out[j].StationID
	})
	return out
}

// Snapshot projects rows with the aggregator's default price.
func (a *Aggregator) Snapshot(rows []model.HistoricalRow) []model.StationState {
	return Snapshot(rows, a.defaultPrice)
}

// Live returns the snapshot over the whole store.
func (a *Aggregator) Live() []model.StationState {
	return a.Snapshot(a.store.All())
}

// Timeframes lists the selectable monthly snapshots relative to the latest
// sample.
func (a *Aggregator) Timeframes() []model.Timeframe {
	latest := a.store.MaxTimestamp()
	out := make([]model.Timeframe, 0, TimeframeCount)
	for i := 0; i < TimeframeCount; i++ {
		label := "Today (" + latest.Format("Jan 02, 2006") + ")"
		if i > 0 {
			label = model.MonthsBefore(latest, i).Format("January 2006")
		}
		out = append(out, model.Timeframe{ID: strconv.Itoa(i), Label: label})
	}
	return out
}

// Resolve returns the historical snapshot selected by q. It reports false
// when the caller should serve the live table instead: timeframe "0", an
// unparsable id, or a window with no rows.
func (a *Aggregator) Resolve(q Query) ([]model.StationState, bool) {
	if q.Range != nil && !q.Range.Start.IsZero() && !q.Range.End.IsZero() {
		rows := a.store.RowsInWindow(q.Range.Start, q.Range.End)
		if len(rows) == 0 {
			return nil, false
		}
		return a.Snapshot(rows), true
	}
	n, err := strconv.Atoi(strings.TrimSpace(q.TimeframeID))
	if err != nil || n <= 0 {
		return nil, false
	}
	rows := a.store.RowsUntil(model.MonthsBefore(a.store.MaxTimestamp(), n))
	if len(rows) == 0 {
		return nil, false
	}
	return a.Snapshot(rows), true
}
