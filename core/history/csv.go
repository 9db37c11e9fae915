package history

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/stationrisk/core/model"
)

// RequiredColumns must be present in every tabular source.
var RequiredColumns = []string{
	"station_id", "timestamp", "utilization_rate", "temperature_f",
	"avg_session_duration_mins", "latitude", "longitude",
}

// TimestampLayouts are tried in order when parsing timestamps.
var TimestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// CSVConfig configures a CSV source.
type CSVConfig struct {
	Path string `json:"path"`
}

// CSVSource reads historical rows from a CSV file with a header line.
type CSVSource struct {
	name string
	open func() (io.ReadCloser, error)
}

// NewCSVFile returns a source reading the file at path on every ReadRows.
func NewCSVFile(path string) *CSVSource {
	return &CSVSource{name: path, open: func() (io.ReadCloser, error) { return os.Open(path) }}
}

// NewCSVReader returns a single-use source over r.
func NewCSVReader(name string, r io.Reader) *CSVSource {
	return &CSVSource{name: name, open: func() (io.ReadCloser, error) { return io.NopCloser(r), nil }}
}

func (s *CSVSource) Name() string { return s.name }

// ReadRows parses the whole file. Unknown columns whose non-empty cells are
// all numeric are kept in HistoricalRow.Extra; other unknown columns are
// ignored.
func (s *CSVSource) ReadRows(ctx context.Context) ([]model.HistoricalRow, error) {
	rc, err := s.open()
	if err != nil {
		return nil, &model.DataLoadError{Source: s.name, Reason: "open", Err: err}
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, &model.DataLoadError{Source: s.name, Reason: "read header", Err: err}
	}
	p, err := newRowParser(header)
	if err != nil {
		return nil, &model.DataLoadError{Source: s.name, Reason: err.Error()}
	}

	var records [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &model.DataLoadError{Source: s.name, Reason: "read record", Err: err}
		}
		records = append(records, rec)
	}
	p.detectExtras(records)

	rows := make([]model.HistoricalRow, 0, len(records))
	for i, rec := range records {
		row, err := p.parse(rec)
		if err != nil {
			return nil, &model.DataLoadError{Source: s.name, Reason: fmt.Sprintf("line %d", i+2), Err: err}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type rowParser struct {
	index  map[string]int
	extras map[string]int
}

var knownColumns = map[string]struct{}{
	"station_id": {}, "station_name": {}, "timestamp": {}, "city": {}, "state": {},
	"latitude": {}, "longitude": {}, "network": {}, "location_type": {}, "charger_type": {},
	"pricing_type": {}, "weather_condition": {}, "local_event": {}, "current_price": {},
	"utilization_rate": {}, "temperature_f": {}, "estimated_wait_time_mins": {},
	"avg_session_duration_mins": {}, "amenities_nearby": {}, "ports_available": {},
	"ports_occupied": {}, "ports_out_of_service": {}, "station_status": {},
}

func newRowParser(header []string) (*rowParser, error) {
	p := &rowParser{index: make(map[string]int, len(header)), extras: map[string]int{}}
	for i, h := range header {
		p.index[strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))] = i
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := p.index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns %v", missing)
	}
	return p, nil
}

func (p *rowParser) detectExtras(records [][]string) {
	for name, i := range p.index {
		if _, ok := knownColumns[name]; ok {
			continue
		}
		numeric := true
		for _, rec := range records {
			if i >= len(rec) {
				continue
			}
			v := strings.TrimSpace(rec[i])
			if v == "" {
				continue
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				numeric = false
				break
			}
		}
		if numeric {
			p.extras[name] = i
		}
	}
}

func (p *rowParser) cell(rec []string, col string) (string, bool) {
	i, ok := p.index[col]
	if !ok || i >= len(rec) {
		return "", false
	}
	return strings.TrimSpace(rec[i]), true
}

func (p *rowParser) str(rec []string, col string) string {
	v, _ := p.cell(rec, col)
	return v
}

// num parses a numeric cell. Empty or absent cells yield NaN.
func (p *rowParser) num(rec []string, col string) (float64, error) {
	v, _ := p.cell(rec, col)
	if v == "" {
		return math.NaN(), nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", col, err)
	}
	return f, nil
}

func (p *rowParser) parse(rec []string) (model.HistoricalRow, error) {
	ts, err := ParseTimestamp(p.str(rec, "timestamp"))
	if err != nil {
		return model.HistoricalRow{}, err
	}
	row := model.HistoricalRow{
		StationID:        p.str(rec, "station_id"),
		StationName:      p.str(rec, "station_name"),
		Timestamp:        ts,
		City:             p.str(rec, "city"),
		State:            p.str(rec, "state"),
		Network:          p.str(rec, "network"),
		LocationType:     p.str(rec, "location_type"),
		ChargerType:      p.str(rec, "charger_type"),
		PricingType:      p.str(rec, "pricing_type"),
		WeatherCondition: p.str(rec, "weather_condition"),
		LocalEvent:       p.str(rec, "local_event"),
		StationStatus:    p.str(rec, "station_status"),
	}
	if row.StationID == "" {
		return row, fmt.Errorf("empty station_id")
	}
	nums := []struct {
		col string
		dst *float64
	}{
		{"latitude", &row.Latitude},
		{"longitude", &row.Longitude},
		{"utilization_rate", &row.UtilizationRate},
		{"temperature_f", &row.TemperatureF},
		{"estimated_wait_time_mins", &row.EstimatedWaitTimeMins},
		{"avg_session_duration_mins", &row.AvgSessionDurationMins},
		{"amenities_nearby", &row.AmenitiesNearby},
		{"ports_available", &row.PortsAvailable},
		{"ports_occupied", &row.PortsOccupied},
		{"ports_out_of_service", &row.PortsOutOfService},
	}
	for _, n := range nums {
		v, err := p.num(rec, n.col)
		if err != nil {
			return row, err
		}
		*n.dst = v
	}
	if raw, _ := p.cell(rec, "current_price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return row, fmt.Errorf("column current_price: %w", err)
		}
		row.CurrentPrice = &price
	}
	if len(p.extras) > 0 {
		row.Extra = make(map[string]float64, len(p.extras))
		for name := range p.extras {
			v, err := p.num(rec, name)
			if err != nil {
				return row, err
			}
			row.Extra[name] = v
		}
	}
	return row, nil
}

// ParseTimestamp parses s with the first matching layout of TimestampLayouts.
// Layouts without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range TimestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}

var errMissingPath = errors.New("csv source: path is required")
