package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/stationrisk/api/stations"
	"github.com/kilianp07/stationrisk/config"
	"github.com/kilianp07/stationrisk/core/eventlog"
	"github.com/kilianp07/stationrisk/core/fleet"
	"github.com/kilianp07/stationrisk/core/history"
	coremetrics "github.com/kilianp07/stationrisk/core/metrics"
	coremon "github.com/kilianp07/stationrisk/core/monitoring"
	"github.com/kilianp07/stationrisk/core/riskmodel"
	"github.com/kilianp07/stationrisk/infra/logger"
	"github.com/kilianp07/stationrisk/infra/metrics"
	"github.com/kilianp07/stationrisk/infra/monitoring"
	"github.com/kilianp07/stationrisk/infra/mqtt"
	_ "github.com/kilianp07/stationrisk/infra/pgsource"
)

// Service wires the fleet engine to its sinks, publishers and the HTTP API.
type Service struct {
	Manager *fleet.Manager
	Models  *riskmodel.Registry

	cfg       *config.Config
	source    history.Source
	sink      coremetrics.MetricsSink
	journal   eventlog.Store
	mqtt      *mqtt.PahoClient
	publisher *mqtt.PricePublisher
	server    *stations.Server
	log       logger.Logger
}

// Build creates the engine and its dependencies without starting any
// network client or HTTP server. The CLI's offline commands use it
// directly.
func Build(cfg *config.Config) (*Service, error) {
	logger.SetLevel(cfg.Logging.Level)
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	src, err := history.NewSource(cfg.Fleet.Source)
	if err != nil {
		return nil, fmt.Errorf("fleet source: %w", err)
	}

	registry := riskmodel.NewRegistry(logger.New("riskmodel"))
	if cfg.Models.Path != "" {
		if err := registry.Load(cfg.Models.Path); err != nil {
			logg.Warnf("risk models unavailable, using fallback scores: %v", err)
			coremon.Capture("riskmodel", err)
		}
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	svc := &Service{Models: registry, cfg: cfg, source: src, sink: sink, log: logg}
	var opts []fleet.Option
	if cfg.Logging.JournalPath != "" {
		j, err := eventlog.OpenStore(eventlog.StoreConfig{
			Driver:     cfg.Logging.JournalDriver,
			Path:       cfg.Logging.JournalPath,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
		})
		if err != nil {
			return nil, fmt.Errorf("event journal: %w", err)
		}
		svc.journal = j
		opts = append(opts, fleet.WithJournal(j))
	}

	svc.Manager = fleet.NewManager(fleet.Config{
		DefaultPrice:     cfg.Fleet.DefaultPrice,
		Seed:             cfg.Fleet.Seed,
		SurgeProbability: cfg.Simulation.SurgeProbability,
		StationPoints:    cfg.Metrics.StationPoints,
	}, logger.New("fleet"), sink, registry, opts...)
	return svc, nil
}

// New builds the service and prepares the MQTT client and HTTP server.
func New(cfg *config.Config) (*Service, error) {
	svc, err := Build(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.MQTT.Enabled {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.mqtt = client
		svc.publisher = mqtt.NewPricePublisher(client, time.Duration(cfg.MQTT.AckTimeoutMS)*time.Millisecond)
	}

	apiOpts := []stations.Option{stations.WithReloader(svc.Models)}
	if svc.journal != nil {
		apiOpts = append(apiOpts, stations.WithJournal(svc.journal))
	}
	svc.server = stations.New(cfg.API.Address, svc.Manager, apiOpts...)
	return svc, nil
}

// Load reads the historical source and installs the sampled fleet. A
// DataLoadError here is fatal for the caller.
func (s *Service) Load(ctx context.Context) error {
	start := time.Now()
	if err := s.Manager.LoadFleet(ctx, s.source, s.cfg.Fleet.SampleSize); err != nil {
		return err
	}
	s.log.Infof("fleet loaded from %s: %d stations in %s", s.source.Name(), s.Manager.Len(), time.Since(start).Round(time.Millisecond))
	return nil
}

// Run loads the fleet, starts the background loops and serves the API
// until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Load(ctx); err != nil {
		return err
	}
	metrics.StartEventCollector(ctx, s.Manager.PriceChanges(), s.Manager.EventEntries(), s.sink)
	if s.publisher != nil {
		s.publisher.Start(ctx, s.Manager.PriceChanges(), s.Manager.EventEntries())
	}
	go s.logTicks(ctx)

	if s.cfg.Models.Watch {
		go func() {
			defer coremon.Recover()
			if err := s.Models.Watch(ctx, s.cfg.Models.Path, s.cfg.Models.Debounce()); err != nil {
				s.log.Errorf("model watch: %v", err)
				coremon.Capture("riskmodel", err)
			}
		}()
	}
	if s.cfg.Simulation.AutoTick {
		start, err := s.Manager.MaxTimestamp()
		if err != nil {
			return err
		}
		go s.Manager.AutoTick(ctx, start, s.cfg.Simulation.Step(), s.cfg.Simulation.Interval())
	}
	if s.server == nil {
		<-ctx.Done()
		return nil
	}
	return s.server.Run(ctx)
}

func (s *Service) logTicks(ctx context.Context) {
	bus := s.Manager.Ticks()
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-sub:
			if !ok {
				return
			}
			s.log.Infof("tick %s: %d stations, %d surged, %d healed in %s",
				t.Target.Format(time.RFC3339), t.Stations, len(t.Surged), len(t.Healed), t.Duration)
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if s.Manager != nil {
		errs = append(errs, s.Manager.Close())
	}
	if s.publisher != nil {
		s.publisher.Wait()
	}
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
