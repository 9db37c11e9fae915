// Package stationstatus holds the active-state table: the current view of
// every tracked station. The table is not safe for concurrent use; its
// owner serializes access.
package stationstatus

import (
	"sort"
	"strings"

	"github.com/kilianp07/stationrisk/core/model"
)

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	Network string
	City    string
	State   string
}

// Match reports whether s satisfies every non-empty field.
func (f Filter) Match(s model.StationState) bool {
	if f.Network != "" && !strings.EqualFold(s.Network, f.Network) {
		return false
	}
	if f.City != "" && !strings.EqualFold(s.City, f.City) {
		return false
	}
	if f.State != "" && !strings.EqualFold(s.State, f.State) {
		return false
	}
	return true
}

// Table maps station ids to their current state and keeps a stable order:
// ascending timestamp of the latest row, ties broken by id.
type Table struct {
	defaultPrice float64
	order        []string
	data         map[string]*model.StationState
}

// New builds a table from states. Later duplicates of an id replace earlier
// ones. Every state is normalized on insertion.
func New(defaultPrice float64, states []model.StationState) *Table {
	t := &Table{defaultPrice: defaultPrice, data: make(map[string]*model.StationState, len(states))}
	for _, s := range states {
		st := s.Clone()
		st.Normalize(defaultPrice)
		if _, ok := t.data[st.StationID]; !ok {
			t.order = append(t.order, st.StationID)
		}
		t.data[st.StationID] = &st
	}
	sort.SliceStable(t.order, func(i, j int) bool {
		a, b := t.data[t.order[i]], t.data[t.order[j]]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.StationID < b.StationID
	})
	return t
}

// Len returns the number of stations.
func (t *Table) Len() int { return len(t.order) }

// IDs returns the station ids in table order.
func (t *Table) IDs() []string { return append([]string(nil), t.order...) }

// Get returns a copy of one station state.
func (t *Table) Get(id string) (model.StationState, bool) {
	st, ok := t.data[id]
	if !ok {
		return model.StationState{}, false
	}
	return st.Clone(), true
}

// Set applies a partial update and re-establishes price, utilization and
// revenue invariants.
func (t *Table) Set(id string, u model.StationUpdate) error {
	st, ok := t.data[id]
	if !ok {
		return &model.NotFoundError{StationID: id}
	}
	u.Apply(st, t.defaultPrice)
	return nil
}

// List returns copies of all states in table order.
func (t *Table) List() []model.StationState {
	return t.Filter(Filter{})
}

// Filter returns copies of the states matching f, in table order.
func (t *Table) Filter(f Filter) []model.StationState {
	out := make([]model.StationState, 0, len(t.order))
	for _, id := range t.order {
		if st := t.data[id]; f.Match(*st) {
			out = append(out, st.Clone())
		}
	}
	return out
}

// DefaultPrice returns the price substituted for missing values.
func (t *Table) DefaultPrice() float64 { return t.defaultPrice }
