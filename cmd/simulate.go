package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/stationrisk/core/model"
)

var (
	simTicks int
	simStep  time.Duration
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run ticks offline and print a JSON summary",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().IntVarP(&simTicks, "ticks", "n", 10, "number of ticks to run")
	simulateCmd.Flags().DurationVar(&simStep, "step", 15*time.Minute, "simulated time between ticks")
	rootCmd.AddCommand(simulateCmd)
}

type simulateSummary struct {
	Start            time.Time             `json:"start"`
	End              time.Time             `json:"end"`
	Ticks            int                   `json:"ticks"`
	Stations         int                   `json:"stations"`
	Surges           int                   `json:"surges"`
	Heals            int                   `json:"heals"`
	NeedsMaintenance []string              `json:"needs_maintenance"`
	Logs             []model.EventLogEntry `json:"logs"`
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simTicks <= 0 {
		return fmt.Errorf("ticks must be positive, got %d", simTicks)
	}
	svc, err := buildOffline(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	start, err := svc.Manager.MaxTimestamp()
	if err != nil {
		return err
	}
	sum := simulateSummary{Start: start, Ticks: simTicks, NeedsMaintenance: []string{}}
	clock := start
	var last []model.StationState
	for i := 0; i < simTicks; i++ {
		clock = clock.Add(simStep)
		res, err := svc.Manager.Tick(clock)
		if err != nil {
			return fmt.Errorf("tick %d: %w", i+1, err)
		}
		sum.Surges += len(res.Report.Surged)
		sum.Heals += len(res.Report.Healed)
		last = res.Stations
	}
	sum.End = clock
	sum.Stations = len(last)
	for _, st := range last {
		if st.NeedsMaintenance {
			sum.NeedsMaintenance = append(sum.NeedsMaintenance, st.StationID)
		}
	}
	sum.Logs = svc.Manager.Logs()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(sum)
}
