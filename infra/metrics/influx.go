package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/stationrisk/core/metrics"
	"github.com/kilianp07/stationrisk/core/model"
	"github.com/kilianp07/stationrisk/infra/logger"
)

// InfluxSink writes engine activity to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

// RecordTick writes one simulation_tick point.
func (s *InfluxSink) RecordTick(ev coremetrics.TickEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("simulation_tick").
		AddTag("component", "simulator").
		AddField("stations", ev.Stations).
		AddField("surged", ev.Surged).
		AddField("healed", ev.Healed).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Target)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordStationStates writes one station_state point per station.
func (s *InfluxSink) RecordStationStates(states []model.StationState, at time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, st := range states {
		p := write.NewPointWithMeasurement("station_state").
			AddTag("station_id", st.StationID).
			AddTag("network", st.Network).
			AddTag("city", st.City).
			AddTag("needs_maintenance", strconv.FormatBool(st.NeedsMaintenance)).
			AddField("price", round3(st.Price)).
			AddField("utilization", round3(st.UtilizationRate)).
			AddField("wait_mins", round3(st.EstimatedWaitTimeMins)).
			AddField("risk_score", round3(st.RiskScore)).
			AddField("revenue_at_risk", round3(st.RevenueAtRiskDaily)).
			SetTime(at)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordPriceChange writes a price_change point.
func (s *InfluxSink) RecordPriceChange(pc model.PriceChange) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("price_change").
		AddTag("station_id", pc.StationID).
		AddTag("reason", pc.Reason).
		AddField("old_price", round3(pc.OldPrice)).
		AddField("new_price", round3(pc.NewPrice)).
		SetTime(pc.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordEventLog writes an event_log point. Details become fields.
func (s *InfluxSink) RecordEventLog(e model.EventLogEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("event_log").
		AddTag("action", string(e.Action)).
		AddField("id", e.ID)
	for k, v := range e.Details {
		p = p.AddField(k, v)
	}
	p = p.SetTime(e.Timestamp)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordEnrichment writes a risk_enrichment point.
func (s *InfluxSink) RecordEnrichment(ev coremetrics.EnrichmentEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	outcome := ev.Reason
	if outcome == "" {
		outcome = "model"
	}
	p := write.NewPointWithMeasurement("risk_enrichment").
		AddTag("outcome", outcome).
		AddField("scored", ev.Scored).
		AddField("fallback", ev.Fallback).
		AddField("unencoded", ev.Unencoded).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
