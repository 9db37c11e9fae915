package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/stationrisk/core/model"
)

// Source yields the raw historical rows of a fleet.
type Source interface {
	Name() string
	ReadRows(ctx context.Context) ([]model.HistoricalRow, error)
}

// Store is a read-only, time ordered table of historical rows. Returned rows
// share their Extra maps with the store and must not be mutated.
type Store struct {
	rows      []model.HistoricalRow
	byStation map[string][]int
	stations  []string
	max       time.Time
}

// Load reads every row of the source and builds a store. Any failure is
// reported as a *model.DataLoadError.
func Load(ctx context.Context, src Source) (*Store, error) {
	rows, err := src.ReadRows(ctx)
	if err != nil {
		return nil, asLoadError(src.Name(), err)
	}
	st, err := New(rows)
	if err != nil {
		return nil, asLoadError(src.Name(), err)
	}
	return st, nil
}

// New builds a store from rows. The slice is copied and sorted by timestamp;
// rows sharing a timestamp keep their source order.
func New(rows []model.HistoricalRow) (*Store, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows")
	}
	sorted := make([]model.HistoricalRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	s := &Store{rows: sorted, byStation: make(map[string][]int)}
	for i, r := range sorted {
		if r.StationID == "" {
			return nil, fmt.Errorf("row %d has no station_id", i)
		}
		if _, ok := s.byStation[r.StationID]; !ok {
			s.stations = append(s.stations, r.StationID)
		}
		s.byStation[r.StationID] = append(s.byStation[r.StationID], i)
	}
	sort.Strings(s.stations)
	s.max = sorted[len(sorted)-1].Timestamp
	return s, nil
}

// Restrict returns a store holding only the rows of the given stations.
// Unknown ids are ignored.
func (s *Store) Restrict(ids []string) (*Store, error) {
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	var rows []model.HistoricalRow
	for _, r := range s.rows {
		if _, ok := keep[r.StationID]; ok {
			rows = append(rows, r)
		}
	}
	return New(rows)
}

// Len returns the number of rows.
func (s *Store) Len() int { return len(s.rows) }

// MaxTimestamp returns the latest sample time.
func (s *Store) MaxTimestamp() time.Time { return s.max }

// StationIDs returns the distinct station ids in sorted order.
func (s *Store) StationIDs() []string {
	return append([]string(nil), s.stations...)
}

// All returns every row in timestamp order.
func (s *Store) All() []model.HistoricalRow {
	return append([]model.HistoricalRow(nil), s.rows...)
}

// RowsFor returns the rows of one station.
func (s *Store) RowsFor(stationID string) []model.HistoricalRow {
	idx := s.byStation[stationID]
	out := make([]model.HistoricalRow, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.rows[i])
	}
	return out
}

// RowsInWindow returns the rows with start <= timestamp <= end.
func (s *Store) RowsInWindow(start, end time.Time) []model.HistoricalRow {
	lo := sort.Search(len(s.rows), func(i int) bool { return !s.rows[i].Timestamp.Before(start) })
	hi := sort.Search(len(s.rows), func(i int) bool { return s.rows[i].Timestamp.After(end) })
	if lo >= hi {
		return []model.HistoricalRow{}
	}
	return append([]model.HistoricalRow(nil), s.rows[lo:hi]...)
}

// RowsUntil returns the rows with timestamp <= cutoff.
func (s *Store) RowsUntil(cutoff time.Time) []model.HistoricalRow {
	hi := sort.Search(len(s.rows), func(i int) bool { return s.rows[i].Timestamp.After(cutoff) })
	return append([]model.HistoricalRow(nil), s.rows[:hi]...)
}

// RowsWhere returns the rows sampled in the given month of year and hour of
// day, in the timestamp's own location.
func (s *Store) RowsWhere(month time.Month, hour int) []model.HistoricalRow {
	out := []model.HistoricalRow{}
	for _, r := range s.rows {
		if r.Timestamp.Month() == month && r.Timestamp.Hour() == hour {
			out = append(out, r)
		}
	}
	return out
}

func asLoadError(source string, err error) error {
	if le, ok := err.(*model.DataLoadError); ok {
		return le
	}
	return &model.DataLoadError{Source: source, Reason: "unreadable source", Err: err}
}
