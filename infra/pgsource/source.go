// Package pgsource reads historical station telemetry from PostgreSQL.
// Importing it registers the "postgres" source type.
package pgsource

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kilianp07/stationrisk/core/factory"
	"github.com/kilianp07/stationrisk/core/history"
	"github.com/kilianp07/stationrisk/core/model"
)

// DefaultTable is read when no table is configured.
const DefaultTable = "station_telemetry"

// Config holds the connection settings of the Postgres source.
type Config struct {
	DSN   string `json:"dsn"`
	Table string `json:"table"`
	// Schema is optional; the search path applies when empty.
	Schema  string `json:"schema"`
	Timeout int    `json:"timeout_seconds"`
}

var errMissingDSN = errors.New("postgres source: dsn is required")

func init() {
	_ = history.Sources.Register("postgres", func(conf map[string]any) (history.Source, error) {
		var cfg Config
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	})
}

// Source loads every row of the telemetry table on each ReadRows call.
type Source struct {
	cfg   Config
	query string
}

// New validates the configuration and prepares the select statement. The
// connection is opened lazily by ReadRows.
func New(cfg Config) (*Source, error) {
	if cfg.DSN == "" {
		return nil, errMissingDSN
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30
	}
	return &Source{cfg: cfg, query: selectQuery(cfg.Schema, cfg.Table)}, nil
}

// Name identifies the source in load errors.
func (s *Source) Name() string {
	if s.cfg.Schema != "" {
		return "postgres:" + s.cfg.Schema + "." + s.cfg.Table
	}
	return "postgres:" + s.cfg.Table
}

// columns lists the selected telemetry columns in scan order.
var columns = []string{
	"station_id", "station_name", "timestamp", "city", "state", "latitude", "longitude",
	"network", "location_type", "charger_type", "pricing_type", "weather_condition", "local_event",
	"current_price", "utilization_rate", "temperature_f", "estimated_wait_time_mins",
	"avg_session_duration_mins", "amenities_nearby", "ports_available", "ports_occupied",
	"ports_out_of_service", "station_status",
}

func selectQuery(schema, table string) string {
	ident := pgx.Identifier{table}
	if schema != "" {
		ident = pgx.Identifier{schema, table}
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s, %s",
		strings.Join(quoted, ", "), ident.Sanitize(),
		pgx.Identifier{"timestamp"}.Sanitize(), pgx.Identifier{"station_id"}.Sanitize())
}

// ReadRows connects, selects all rows and closes the pool.
func (s *Source) ReadRows(ctx context.Context) ([]model.HistoricalRow, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Timeout)*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, s.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.cfg.Table, err)
	}
	defer rows.Close()

	out := make([]model.HistoricalRow, 0)
	for rows.Next() {
		var r scanRow
		if err := rows.Scan(r.targets()...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(out)+1, err)
		}
		out = append(out, r.row())
	}
	return out, rows.Err()
}

// scanRow mirrors the select list with nullable fields.
type scanRow struct {
	id                                                     string
	name, city, state, network, location, charger, pricing *string
	weather, event, status                                 *string
	ts                                                     time.Time
	lat, lon, price, util, temp, wait, session, amenities  *float64
	portsAvailable, portsOccupied, portsOut                *float64
}

func (r *scanRow) targets() []any {
	return []any{
		&r.id, &r.name, &r.ts, &r.city, &r.state, &r.lat, &r.lon,
		&r.network, &r.location, &r.charger, &r.pricing, &r.weather, &r.event,
		&r.price, &r.util, &r.temp, &r.wait,
		&r.session, &r.amenities, &r.portsAvailable, &r.portsOccupied,
		&r.portsOut, &r.status,
	}
}

func (r *scanRow) row() model.HistoricalRow {
	row := model.HistoricalRow{
		StationID:              r.id,
		StationName:            str(r.name),
		Timestamp:              r.ts,
		City:                   str(r.city),
		State:                  str(r.state),
		Latitude:               num(r.lat),
		Longitude:              num(r.lon),
		Network:                str(r.network),
		LocationType:           str(r.location),
		ChargerType:            str(r.charger),
		PricingType:            str(r.pricing),
		WeatherCondition:       str(r.weather),
		LocalEvent:             str(r.event),
		UtilizationRate:        num(r.util),
		TemperatureF:           num(r.temp),
		EstimatedWaitTimeMins:  num(r.wait),
		AvgSessionDurationMins: num(r.session),
		AmenitiesNearby:        num(r.amenities),
		PortsAvailable:         num(r.portsAvailable),
		PortsOccupied:          num(r.portsOccupied),
		PortsOutOfService:      num(r.portsOut),
		StationStatus:          str(r.status),
	}
	if r.price != nil {
		p := *r.price
		row.CurrentPrice = &p
	}
	return row
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// num maps SQL NULL to NaN like an empty CSV cell.
func num(f *float64) float64 {
	if f == nil {
		return math.NaN()
	}
	return *f
}
