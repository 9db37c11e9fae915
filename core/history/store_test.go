package history

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/stationrisk/core/factory"
	"github.com/kilianp07/stationrisk/core/model"
)

const sampleCSV = `station_id,station_name,timestamp,city,state,latitude,longitude,network,current_price,utilization_rate,temperature_f,estimated_wait_time_mins,avg_session_duration_mins,station_status,grid_load_kw,notes
S2,Beta,2024-03-01 10:00:00,Austin,TX,30.1,-97.7,Tesla,0.50,0.40,70,5,40,operational,12.5,ok
S1,Alpha,2024-01-15 10:00:00,Dallas,TX,32.7,-96.8,ChargePoint,,0.20,65,3,30,operational,10,fine
S1,Alpha,2024-02-15 11:00:00,Dallas,TX,32.7,-96.8,ChargePoint,0.30,0.60,80,10,30,partial_outage,,n/a
S2,Beta,2024-01-15 10:00:00,Austin,TX,30.1,-97.7,Tesla,0.55,0.70,60,8,40,operational,9,ok
`

func loadSample(t *testing.T) *Store {
	t.Helper()
	st, err := Load(context.Background(), NewCSVReader("sample", strings.NewReader(sampleCSV)))
	require.NoError(t, err)
	return st
}

func TestLoadSortsAndIndexes(t *testing.T) {
	st := loadSample(t)
	assert.Equal(t, 4, st.Len())
	assert.Equal(t, []string{"S1", "S2"}, st.StationIDs())
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), st.MaxTimestamp())

	s1 := st.RowsFor("S1")
	require.Len(t, s1, 2)
	assert.True(t, s1[0].Timestamp.Before(s1[1].Timestamp))
	assert.Nil(t, s1[0].CurrentPrice)
	require.NotNil(t, s1[1].CurrentPrice)
	assert.InDelta(t, 0.30, *s1[1].CurrentPrice, 1e-12)

	assert.Empty(t, st.RowsFor("missing"))
}

func TestLoadKeepsNumericExtras(t *testing.T) {
	st := loadSample(t)
	for _, r := range st.All() {
		_, hasNotes := r.Extra["notes"]
		assert.False(t, hasNotes)
		_, hasLoad := r.Extra["grid_load_kw"]
		assert.True(t, hasLoad)
	}
}

func TestLoadMissingColumns(t *testing.T) {
	csv := "station_id,timestamp,utilization_rate\nS1,2024-01-01,0.5\n"
	_, err := Load(context.Background(), NewCSVReader("bad", strings.NewReader(csv)))
	var le *model.DataLoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Error(), "temperature_f")
}

func TestLoadBadTimestampFailsWholeLoad(t *testing.T) {
	csv := strings.Replace(sampleCSV, "2024-03-01 10:00:00", "yesterday", 1)
	_, err := Load(context.Background(), NewCSVReader("bad", strings.NewReader(csv)))
	var le *model.DataLoadError
	require.ErrorAs(t, err, &le)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), NewCSVFile("/nonexistent/stations.csv"))
	var le *model.DataLoadError
	require.ErrorAs(t, err, &le)
}

func TestWindowQueries(t *testing.T) {
	st := loadSample(t)

	jan := st.RowsInWindow(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	assert.Len(t, jan, 2)

	// bounds are inclusive
	exact := st.RowsInWindow(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	assert.Len(t, exact, 1)

	assert.Empty(t, st.RowsInWindow(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)))

	until := st.RowsUntil(time.Date(2024, 2, 15, 11, 0, 0, 0, time.UTC))
	assert.Len(t, until, 3)

	analog := st.RowsWhere(time.January, 10)
	assert.Len(t, analog, 2)
	assert.Empty(t, st.RowsWhere(time.July, 3))
}

func TestRestrict(t *testing.T) {
	st := loadSample(t)
	sub, err := st.Restrict([]string{"S2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"S2"}, sub.StationIDs())
	assert.Equal(t, 2, sub.Len())

	_, err = st.Restrict([]string{"nope"})
	assert.Error(t, err)
}

func TestSourceRegistry(t *testing.T) {
	src, err := NewSource(factory.ModuleConfig{Type: "csv", Conf: map[string]any{"path": "/tmp/x.csv"}})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.csv", src.Name())

	_, err = NewSource(factory.ModuleConfig{Type: "csv", Conf: map[string]any{}})
	assert.Error(t, err)

	_, err = NewSource(factory.ModuleConfig{Type: "parquet"})
	assert.Error(t, err)
}

func TestParseTimestampLayouts(t *testing.T) {
	for _, in := range []string{"2024-05-01T08:30:00Z", "2024-05-01 08:30:00", "2024-05-01T08:30:00", "2024-05-01 08:30"} {
		ts, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.Equal(t, 8, ts.Hour(), in)
	}
	_, err := ParseTimestamp("05/01/2024")
	assert.Error(t, err)
}
