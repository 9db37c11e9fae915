package stationstatus

import (
	"testing"
	"time"

	"github.com/kilianp07/stationrisk/core/model"
)

func state(id string, ts time.Time, price, util float64) model.StationState {
	return model.StationState{
		HistoricalRow: model.HistoricalRow{StationID: id, Timestamp: ts, UtilizationRate: util, AvgSessionDurationMins: 30, Network: "Tesla", City: "Austin"},
		Price:         price,
	}
}

func TestTable_Order(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tb := New(0.45, []model.StationState{
		state("c", base.Add(time.Hour), 0.5, 0.1),
		state("b", base, 0.5, 0.1),
		state("a", base, 0.5, 0.1),
	})
	ids := tb.IDs()
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Fatalf("unexpected order %v", ids)
	}
}

func TestTable_NormalizesOnInsert(t *testing.T) {
	tb := New(0.45, []model.StationState{state("a", time.Time{}, -1, 1.7)})
	st, ok := tb.Get("a")
	if !ok {
		t.Fatalf("station missing")
	}
	if st.Price != 0.45 || st.UtilizationRate != 1 {
		t.Fatalf("not normalized: %+v", st)
	}
	if st.RevenueAtRiskDaily != 0.45*1*30 {
		t.Fatalf("revenue %v", st.RevenueAtRiskDaily)
	}
}

func TestTable_Set(t *testing.T) {
	tb := New(0.45, []model.StationState{state("a", time.Time{}, 0.5, 0.5)})
	if err := tb.Set("a", model.StationUpdate{Price: model.Float(0.8), UtilizationRate: model.Float(-0.2)}); err != nil {
		t.Fatalf("set: %v", err)
	}
	st, _ := tb.Get("a")
	if st.Price != 0.8 || st.UtilizationRate != 0 || st.RevenueAtRiskDaily != 0 {
		t.Fatalf("unexpected %+v", st)
	}
	err := tb.Set("zzz", model.StationUpdate{})
	if !model.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTable_GetReturnsCopy(t *testing.T) {
	tb := New(0.45, []model.StationState{state("a", time.Time{}, 0.5, 0.5)})
	st, _ := tb.Get("a")
	st.Price = 9
	again, _ := tb.Get("a")
	if again.Price != 0.5 {
		t.Fatalf("table mutated through copy")
	}
}

func TestTable_Filter(t *testing.T) {
	a := state("a", time.Time{}, 0.5, 0.5)
	b := state("b", time.Time{}, 0.5, 0.5)
	b.Network = "EVgo"
	tb := New(0.45, []model.StationState{a, b})
	out := tb.Filter(Filter{Network: "evgo"})
	if len(out) != 1 || out[0].StationID != "b" {
		t.Fatalf("filter failed: %#v", out)
	}
	if len(tb.List()) != 2 {
		t.Fatalf("list should return all")
	}
}
