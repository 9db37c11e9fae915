package fleet

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/stationrisk/core/aggregate"
	"github.com/kilianp07/stationrisk/core/eventlog"
	"github.com/kilianp07/stationrisk/core/healing"
	"github.com/kilianp07/stationrisk/core/history"
	"github.com/kilianp07/stationrisk/core/logger"
	"github.com/kilianp07/stationrisk/core/metrics"
	"github.com/kilianp07/stationrisk/core/model"
	"github.com/kilianp07/stationrisk/core/monitoring"
	"github.com/kilianp07/stationrisk/core/risk"
	"github.com/kilianp07/stationrisk/core/riskmodel"
	"github.com/kilianp07/stationrisk/core/simulator"
	"github.com/kilianp07/stationrisk/core/stationstatus"
	"github.com/kilianp07/stationrisk/internal/eventbus"
)

// ErrNotLoaded is returned by operations invoked before LoadFleet.
var ErrNotLoaded = errors.New("fleet not loaded")

const (
	StressUtilization  = 0.98
	StressTemperatureF = 105.0
	StressWaitMins     = 45.0
)

// Config tunes the engine.
type Config struct {
	DefaultPrice     float64
	Seed             uint64
	SurgeProbability float64
	// StationPoints enables per-station metric points after each tick.
	StationPoints bool
}

// Query selects and filters a snapshot.
type Query struct {
	aggregate.Query
	Filter stationstatus.Filter
}

// SnapshotResult is an enriched snapshot plus the timeframe catalogue.
type SnapshotResult struct {
	Timeframes []model.Timeframe     `json:"timeframes"`
	Stations   []model.StationState `json:"stations"`
	// Live is false when a historical window was served.
	Live bool `json:"live"`
}

// TickResult is the outcome of one tick with the enriched live snapshot.
type TickResult struct {
	Report   simulator.Report     `json:"report"`
	Stations []model.StationState `json:"stations"`
}

// Manager is safe for concurrent use.
type Manager struct {
	mu  sync.Mutex
	cfg Config
	rng *rand.Rand

	logger   logger.Logger
	metrics  metrics.MetricsSink
	models   *riskmodel.Registry
	enricher *risk.Enricher
	events   *eventlog.Log
	journal  eventlog.Journal
	now      func() time.Time

	prices  *eventbus.TypedBus[model.PriceChange]
	entries *eventbus.TypedBus[model.EventLogEntry]
	ticks   *eventbus.TypedBus[model.TickCompleted]

	source string
	store  *history.Store
	agg    *aggregate.Aggregator
	table  *stationstatus.Table
	healer *healing.Controller
	sim    *simulator.Simulator
}

// Option configures a Manager.
type Option func(*Manager)

// WithJournal mirrors event log entries to j.
func WithJournal(j eventlog.Journal) Option {
	return func(m *Manager) { m.journal = j }
}

// WithClock replaces time.Now for log entries and price changes.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates an unloaded manager. A nil sink or registry is
// replaced by a no-op sink and an empty registry.
func NewManager(cfg Config, log logger.Logger, sink metrics.MetricsSink, models *riskmodel.Registry, opts ...Option) *Manager {
	if cfg.DefaultPrice <= 0 {
		cfg.DefaultPrice = model.DefaultPrice
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if models == nil {
		models = riskmodel.NewRegistry(log)
	}
	m := &Manager{
		cfg:      cfg,
		logger:   log,
		metrics:  sink,
		models:   models,
		enricher: risk.NewEnricher(log),
		now:      time.Now,
		prices:   eventbus.NewTyped[model.PriceChange](),
		entries:  eventbus.NewTyped[model.EventLogEntry](),
		ticks:    eventbus.NewTyped[model.TickCompleted](),
	}
	for _, o := range opts {
		o(m)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	m.rng = rand.New(rand.NewPCG(seed, ^seed))

	logOpts := []eventlog.Option{
		eventlog.WithClock(func() time.Time { return m.now() }),
		eventlog.WithLogger(log),
		eventlog.WithHook(m.onEntry),
	}
	if m.journal != nil {
		logOpts = append(logOpts, eventlog.WithJournal(m.journal))
	}
	m.events = eventlog.New(logOpts...)
	return m
}

// LoadFleet reads src, draws sampleSize stations without replacement and
// installs them as the live table. sampleSize <= 0 keeps every station.
// The sample is fixed until the next LoadFleet.
func (m *Manager) LoadFleet(ctx context.Context, src history.Source, sampleSize int) error {
	full, err := history.Load(ctx, src)
	if err != nil {
		return err
	}
	ids := full.StationIDs()
	if sampleSize > len(ids) {
		return &model.DataLoadError{
			Source: src.Name(),
			Reason: fmt.Sprintf("sample size %d exceeds the %d stations available", sampleSize, len(ids)),
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	store := full
	if sampleSize > 0 && sampleSize < len(ids) {
		perm := m.rng.Perm(len(ids))
		picked := make([]string, sampleSize)
		for i := range picked {
			picked[i] = ids[perm[i]]
		}
		sort.Strings(picked)
		if store, err = full.Restrict(picked); err != nil {
			return &model.DataLoadError{Source: src.Name(), Reason: "restrict sample", Err: err}
		}
	}

	agg := aggregate.New(store, m.cfg.DefaultPrice)
	table := stationstatus.New(m.cfg.DefaultPrice, agg.Live())
	healer := healing.New(m.events, healing.WithPriceHook(m.onPrice), healing.WithClock(func() time.Time { return m.now() }))
	simOpts := []simulator.Option{
		simulator.WithSeed(m.rng.Uint64()),
		simulator.WithLogger(m.logger),
	}
	if m.cfg.SurgeProbability > 0 {
		simOpts = append(simOpts, simulator.WithSurgeProbability(m.cfg.SurgeProbability))
	}

	m.source = src.Name()
	m.store = store
	m.agg = agg
	m.table = table
	m.healer = healer
	m.sim = simulator.New(store, healer, m.events, simOpts...)
	m.logger.Infof("loaded %d active stations from %s (%d rows)", table.Len(), src.Name(), store.Len())
	return nil
}

// Loaded reports whether a fleet is installed.
func (m *Manager) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table != nil
}

// Len returns the number of active stations.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.table == nil {
		return 0
	}
	return m.table.Len()
}

// MaxTimestamp returns the latest historical sample time.
func (m *Manager) MaxTimestamp() (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		return time.Time{}, ErrNotLoaded
	}
	return m.store.MaxTimestamp(), nil
}

// Snapshot returns the enriched snapshot selected by q. Historical windows
// that match no rows fall back to the live table.
func (m *Manager) Snapshot(q Query) (SnapshotResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.table == nil {
		return SnapshotResult{}, ErrNotLoaded
	}
	res := SnapshotResult{Timeframes: m.agg.Timeframes()}
	states, ok := m.agg.Resolve(q.Query)
	if !ok {
		states = m.table.List()
		res.Live = true
	}
	res.Stations = m.enrich(filter(states, q.Filter))
	return res, nil
}

// Tick advances the simulation to target and returns the enriched live
// snapshot.
func (m *Manager) Tick(target time.Time) (TickResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.table == nil {
		return TickResult{}, ErrNotLoaded
	}
	start := time.Now()
	rep, err := m.sim.Tick(m.table, target)
	if err != nil {
		return TickResult{}, err
	}
	elapsed := time.Since(start)

	if err := m.metrics.RecordTick(metrics.TickEvent{
		Target: target, Stations: rep.Updated, Surged: len(rep.Surged), Healed: len(rep.Healed), Duration: elapsed,
	}); err != nil {
		m.logger.Errorf("tick metrics error: %v", err)
	}
	live := m.table.List()
	if rec, ok := m.metrics.(metrics.StationStateRecorder); ok && m.cfg.StationPoints {
		if err := rec.RecordStationStates(live, target); err != nil {
			m.logger.Errorf("station metrics error: %v", err)
		}
	}
	m.ticks.Publish(model.TickCompleted{
		Target: target, Stations: rep.Updated, Surged: rep.Surged, Healed: rep.Healed, Duration: elapsed,
	})
	return TickResult{Report: rep, Stations: m.enrich(live)}, nil
}

// Heal applies the self-healing controller to station id.
func (m *Manager) Heal(id string) (healing.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.table == nil {
		return healing.Result{}, ErrNotLoaded
	}
	return m.healer.Heal(m.table, id)
}

// Stress forces station id into an overloaded, overheated state.
func (m *Manager) Stress(id string) (model.StationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.table == nil {
		return model.StationState{}, ErrNotLoaded
	}
	err := m.table.Set(id, model.StationUpdate{
		UtilizationRate:       model.Float(StressUtilization),
		TemperatureF:          model.Float(StressTemperatureF),
		EstimatedWaitTimeMins: model.Float(StressWaitMins),
	})
	if err != nil {
		return model.StationState{}, err
	}
	st, _ := m.table.Get(id)
	return st, nil
}

// Logs returns the event log in insertion order.
func (m *Manager) Logs() []model.EventLogEntry { return m.events.Entries() }

// Models returns the model registry.
func (m *Manager) Models() *riskmodel.Registry { return m.models }

// PriceChanges returns the bus carrying controller price moves.
func (m *Manager) PriceChanges() *eventbus.TypedBus[model.PriceChange] { return m.prices }

// EventEntries returns the bus carrying event log entries.
func (m *Manager) EventEntries() *eventbus.TypedBus[model.EventLogEntry] { return m.entries }

// Ticks returns the bus carrying tick summaries.
func (m *Manager) Ticks() *eventbus.TypedBus[model.TickCompleted] { return m.ticks }

// Close closes the buses and the event journal.
func (m *Manager) Close() error {
	m.prices.Close()
	m.entries.Close()
	m.ticks.Close()
	return m.events.Close()
}

// enrich must be called with m.mu held.
func (m *Manager) enrich(states []model.StationState) []model.StationState {
	start := time.Now()
	out, rep := m.enricher.Enrich(states, m.models.Current())
	ev := metrics.EnrichmentEvent{
		Scored: rep.Scored, Fallback: rep.Fallback, Unencoded: rep.Unencoded, Duration: time.Since(start),
	}
	switch {
	case rep.IsModelUnavailable():
		ev.Reason = "model_unavailable"
	case rep.Err != nil:
		ev.Reason = "model_error"
		monitoring.Capture("enrichment", rep.Err)
	}
	if rep.ClusterErr != nil {
		monitoring.Capture("clusterer", rep.ClusterErr)
	}
	if rec, ok := m.metrics.(metrics.EnrichmentRecorder); ok {
		if err := rec.RecordEnrichment(ev); err != nil {
			m.logger.Errorf("enrichment metrics error: %v", err)
		}
	}
	return out
}

// Price changes and log entries reach sinks asynchronously through the
// buses; see infra/metrics.StartEventCollector.
func (m *Manager) onPrice(pc model.PriceChange) { m.prices.Publish(pc) }

func (m *Manager) onEntry(e model.EventLogEntry) { m.entries.Publish(e) }

func filter(states []model.StationState, f stationstatus.Filter) []model.StationState {
	if f == (stationstatus.Filter{}) {
		return states
	}
	out := states[:0:0]
	for _, s := range states {
		if f.Match(s) {
			out = append(out, s)
		}
	}
	return out
}
