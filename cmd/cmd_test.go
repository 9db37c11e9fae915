package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/stationrisk/core/fleet"
)

const csvHeader = "station_id,station_name,timestamp,city,state,latitude,longitude,network,location_type,charger_type,pricing_type,weather_condition,local_event,current_price,utilization_rate,temperature_f,estimated_wait_time_mins,avg_session_duration_mins,station_status\n"

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString(csvHeader)
	for _, ts := range []string{"2024-04-15 10:00:00", "2024-05-15 10:00:00"} {
		for i := 0; i < 6; i++ {
			fmt.Fprintf(&b, "S%d,Station %d,%s,Austin,TX,%d,%d,Tesla,Mall,DC Fast,flat,Sunny,None,0.45,0.5,72,5,40,operational\n", i, i, ts, i, i)
		}
	}
	csvPath := filepath.Join(dir, "stations.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(b.String()), 0o644))
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf("fleet:\n  source:\n    type: csv\n    conf:\n      path: %q\n  seed: 7\n", csvPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSimulateCommand(t *testing.T) {
	cfg := writeFixture(t)
	out, err := execute(t, "simulate", "--config", cfg, "--ticks", "3")
	require.NoError(t, err)

	var sum simulateSummary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 3, sum.Ticks)
	assert.Equal(t, 6, sum.Stations)
	assert.Equal(t, 45, int(sum.End.Sub(sum.Start).Minutes()))
}

func TestSimulateCommand_RejectsZeroTicks(t *testing.T) {
	cfg := writeFixture(t)
	_, err := execute(t, "simulate", "--config", cfg, "--ticks", "0")
	assert.Error(t, err)
}

func TestSnapshotCommand(t *testing.T) {
	cfg := writeFixture(t)
	out, err := execute(t, "snapshot", "--config", cfg, "--timeframe", "0")
	require.NoError(t, err)

	var res fleet.SnapshotResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Live)
	assert.Len(t, res.Stations, 6)
	assert.Len(t, res.Timeframes, 6)
}

func TestSnapshotCommand_RangeFlagsTogether(t *testing.T) {
	cfg := writeFixture(t)
	_, err := execute(t, "snapshot", "--config", cfg, "--start", "2024-04-01")
	assert.Error(t, err)
	snapStart = ""
}
