// Package simulator advances the active-state table by one tick: every
// station is re-based on a historical analog with Gaussian noise, random
// traffic surges are injected and the auto-heal sweep runs.
package simulator

import (
	"fmt"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kilianp07/stationrisk/core/eventlog"
	"github.com/kilianp07/stationrisk/core/healing"
	"github.com/kilianp07/stationrisk/core/history"
	"github.com/kilianp07/stationrisk/core/logger"
	"github.com/kilianp07/stationrisk/core/model"
	"github.com/kilianp07/stationrisk/core/stationstatus"
)

const (
	UtilizationNoiseSigma = 0.05
	TemperatureNoiseSigma = 2.0

	DefaultSurgeProbability = 0.05
	SurgeMaxVictims         = 5
	// SurgePoolUtilization is the exclusive bound for surge victims.
	SurgePoolUtilization = 0.50
	SurgeUtilization     = 0.98
	SurgeWaitMins        = 45.0
	SurgeHeatF           = 20.0

	// HealUtilizationThreshold and HealPriceCeiling select auto-heal
	// candidates. A price under the ceiling stands in for "not yet surged".
	HealUtilizationThreshold = 0.60
	HealPriceCeiling         = 0.50
	MaxHealsPerTick          = 2
)

// Report summarizes one tick.
type Report struct {
	Target  time.Time `json:"target"`
	Updated int       `json:"updated"`
	Surged  []string  `json:"surged"`
	Healed  []string  `json:"healed"`
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithSeed makes the tick sequence reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Simulator) { s.src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15) }
}

// WithSurgeProbability overrides DefaultSurgeProbability.
func WithSurgeProbability(p float64) Option {
	return func(s *Simulator) { s.surgeProb = p }
}

// WithLogger sets the simulator logger.
func WithLogger(l logger.Logger) Option { return func(s *Simulator) { s.log = l } }

// Simulator is not safe for concurrent use.
type Simulator struct {
	store     *history.Store
	healer    *healing.Controller
	events    *eventlog.Log
	log       logger.Logger
	src       rand.Source
	rng       *rand.Rand
	utilNoise distuv.Normal
	tempNoise distuv.Normal
	surgeProb float64
}

// New returns a simulator drawing analogs from store.
func New(store *history.Store, healer *healing.Controller, events *eventlog.Log, opts ...Option) *Simulator {
	s := &Simulator{
		store:     store,
		healer:    healer,
		events:    events,
		log:       logger.NopLogger{},
		surgeProb: DefaultSurgeProbability,
	}
	for _, o := range opts {
		o(s)
	}
	if s.src == nil {
		seed := uint64(time.Now().UnixNano())
		s.src = rand.NewPCG(seed, seed>>1)
	}
	s.rng = rand.New(s.src)
	s.utilNoise = distuv.Normal{Mu: 0, Sigma: UtilizationNoiseSigma, Src: s.rng}
	s.tempNoise = distuv.Normal{Mu: 0, Sigma: TemperatureNoiseSigma, Src: s.rng}
	return s
}

// Tick advances every station of t to the conditions of target.
func (s *Simulator) Tick(t *stationstatus.Table, target time.Time) (Report, error) {
	rep := Report{Target: target}

	analogs := map[string][]model.HistoricalRow{}
	for _, r := range s.store.RowsWhere(target.Month(), target.Hour()) {
		analogs[r.StationID] = append(analogs[r.StationID], r)
	}

	for _, st := range t.List() {
		baseUtil, baseTemp := st.UtilizationRate, st.TemperatureF
		if rows := analogs[st.StationID]; len(rows) > 0 {
			pick := rows[s.rng.IntN(len(rows))]
			baseUtil, baseTemp = pick.UtilizationRate, pick.TemperatureF
		}
		err := t.Set(st.StationID, model.StationUpdate{
			UtilizationRate: model.Float(model.Clamp(baseUtil+s.utilNoise.Rand(), 0, 1)),
			TemperatureF:    model.Float(baseTemp + s.tempNoise.Rand()),
		})
		if err != nil {
			return rep, fmt.Errorf("tick %s: %w", st.StationID, err)
		}
		rep.Updated++
	}

	if s.rng.Float64() < s.surgeProb {
		surged, err := s.surge(t)
		if err != nil {
			return rep, err
		}
		rep.Surged = surged
	}

	healed, err := s.sweep(t)
	rep.Healed = healed
	return rep, err
}

func (s *Simulator) surge(t *stationstatus.Table) ([]string, error) {
	var pool []model.StationState
	for _, st := range t.List() {
		if st.UtilizationRate < SurgePoolUtilization {
			pool = append(pool, st)
		}
	}
	if len(pool) == 0 {
		return nil, nil
	}
	n := 1 + s.rng.IntN(min(SurgeMaxVictims, len(pool)))
	perm := s.rng.Perm(len(pool))
	victims := make([]string, 0, n)
	for _, i := range perm[:n] {
		v := pool[i]
		err := t.Set(v.StationID, model.StationUpdate{
			UtilizationRate:       model.Float(SurgeUtilization),
			EstimatedWaitTimeMins: model.Float(SurgeWaitMins),
			TemperatureF:          model.Float(v.TemperatureF + SurgeHeatF),
		})
		if err != nil {
			return victims, fmt.Errorf("surge %s: %w", v.StationID, err)
		}
		s.events.Append(model.ActionTrafficSurgeDetected, map[string]string{
			"station": v.StationName,
			"warning": "Unexpected traffic spike! Utilization hit 98%.",
		})
		victims = append(victims, v.StationID)
	}
	s.log.Infof("traffic surge injected on %d stations", len(victims))
	return victims, nil
}

// sweep computes the candidate list once, before any heal mutates the
// table, and heals at most MaxHealsPerTick of them in table order.
func (s *Simulator) sweep(t *stationstatus.Table) ([]string, error) {
	var candidates []string
	for _, st := range t.List() {
		if st.UtilizationRate > HealUtilizationThreshold && st.Price < HealPriceCeiling {
			candidates = append(candidates, st.StationID)
		}
	}
	if len(candidates) > MaxHealsPerTick {
		candidates = candidates[:MaxHealsPerTick]
	}
	healed := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if _, err := s.healer.Heal(t, id); err != nil {
			return healed, fmt.Errorf("auto-heal %s: %w", id, err)
		}
		healed = append(healed, id)
	}
	return healed, nil
}
