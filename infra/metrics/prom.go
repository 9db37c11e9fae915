package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/stationrisk/core/metrics"
	"github.com/kilianp07/stationrisk/core/model"
)

// PromSink exposes engine activity as Prometheus metrics.
type PromSink struct {
	ticks        prometheus.Counter
	tickDuration prometheus.Histogram
	surges       prometheus.Counter
	heals        prometheus.Counter
	stations     prometheus.Gauge
	prices       *prometheus.CounterVec
	priceLevel   *prometheus.GaugeVec
	events       *prometheus.CounterVec
	enrichment   *prometheus.CounterVec
	fallbacks    prometheus.Counter
	unencoded    prometheus.Counter
	utilization  *prometheus.GaugeVec
}

// NewPromSink registers engine metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// Collectors already registered by an earlier sink are reused. A nil
// registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.ticks, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stationrisk_ticks_total",
		Help: "Number of simulation ticks processed",
	})); err != nil {
		return nil, err
	}
	if s.tickDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stationrisk_tick_duration_seconds",
		Help:    "Wall time spent in one simulation tick",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})); err != nil {
		return nil, err
	}
	if s.surges, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stationrisk_traffic_surges_total",
		Help: "Stations hit by an injected traffic surge",
	})); err != nil {
		return nil, err
	}
	if s.heals, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stationrisk_auto_heals_total",
		Help: "Stations healed by the per-tick sweep",
	})); err != nil {
		return nil, err
	}
	if s.stations, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stationrisk_active_stations",
		Help: "Stations in the active table at the last tick",
	})); err != nil {
		return nil, err
	}
	if s.prices, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stationrisk_price_changes_total",
		Help: "Controller price changes by reason",
	}, []string{"reason"})); err != nil {
		return nil, err
	}
	if s.priceLevel, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "stationrisk_station_price",
		Help: "Current price per station",
	}, []string{"station_id"})); err != nil {
		return nil, err
	}
	if s.events, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stationrisk_event_log_entries_total",
		Help: "Event log entries by action",
	}, []string{"action"})); err != nil {
		return nil, err
	}
	if s.enrichment, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stationrisk_enrichment_batches_total",
		Help: "Risk enrichment batches by outcome",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if s.fallbacks, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stationrisk_enrichment_fallback_stations_total",
		Help: "Stations scored with the utilization heuristic",
	})); err != nil {
		return nil, err
	}
	if s.unencoded, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stationrisk_enrichment_unseen_categories_total",
		Help: "Categorical values mapped to the first known class",
	})); err != nil {
		return nil, err
	}
	if s.utilization, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "stationrisk_station_utilization",
		Help: "Utilization per station at the last tick",
	}, []string{"station_id"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordTick updates tick counters and the fleet size gauge.
func (s *PromSink) RecordTick(ev coremetrics.TickEvent) error {
	s.ticks.Inc()
	s.tickDuration.Observe(ev.Duration.Seconds())
	s.surges.Add(float64(ev.Surged))
	s.heals.Add(float64(ev.Healed))
	s.stations.Set(float64(ev.Stations))
	return nil
}

// RecordPriceChange counts the change and tracks the new price level.
func (s *PromSink) RecordPriceChange(pc model.PriceChange) error {
	s.prices.WithLabelValues(pc.Reason).Inc()
	s.priceLevel.WithLabelValues(pc.StationID).Set(pc.NewPrice)
	return nil
}

// RecordEventLog counts entries by action.
func (s *PromSink) RecordEventLog(e model.EventLogEntry) error {
	s.events.WithLabelValues(string(e.Action)).Inc()
	return nil
}

// RecordEnrichment counts batches by outcome.
func (s *PromSink) RecordEnrichment(ev coremetrics.EnrichmentEvent) error {
	outcome := ev.Reason
	if outcome == "" {
		outcome = "model"
	}
	s.enrichment.WithLabelValues(outcome).Inc()
	s.fallbacks.Add(float64(ev.Fallback))
	s.unencoded.Add(float64(ev.Unencoded))
	return nil
}

// RecordStationStates sets the per-station utilization and price gauges.
func (s *PromSink) RecordStationStates(states []model.StationState, _ time.Time) error {
	for _, st := range states {
		s.utilization.WithLabelValues(st.StationID).Set(st.UtilizationRate)
		s.priceLevel.WithLabelValues(st.StationID).Set(st.Price)
	}
	return nil
}
