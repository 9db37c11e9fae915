package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/stationrisk/core/aggregate"
	"github.com/kilianp07/stationrisk/core/fleet"
	"github.com/kilianp07/stationrisk/core/history"
	"github.com/kilianp07/stationrisk/core/model"
	"github.com/kilianp07/stationrisk/core/stationstatus"
)

var (
	snapTimeframe string
	snapStart     string
	snapEnd       string
	snapFilter    stationstatus.Filter
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print an enriched fleet snapshot as JSON",
	RunE:  runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapTimeframe, "timeframe", "t", "0", "months before the latest sample (0 is live)")
	snapshotCmd.Flags().StringVar(&snapStart, "start", "", "window start (requires --end)")
	snapshotCmd.Flags().StringVar(&snapEnd, "end", "", "window end (requires --start)")
	snapshotCmd.Flags().StringVar(&snapFilter.Network, "network", "", "only this network")
	snapshotCmd.Flags().StringVar(&snapFilter.City, "city", "", "only this city")
	snapshotCmd.Flags().StringVar(&snapFilter.State, "state", "", "only this state")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	q := fleet.Query{Query: aggregate.Query{TimeframeID: snapTimeframe}, Filter: snapFilter}
	if (snapStart == "") != (snapEnd == "") {
		return fmt.Errorf("--start and --end must be given together")
	}
	if snapStart != "" {
		start, err := history.ParseTimestamp(snapStart)
		if err != nil {
			return fmt.Errorf("--start: %w", err)
		}
		end, err := history.ParseTimestamp(snapEnd)
		if err != nil {
			return fmt.Errorf("--end: %w", err)
		}
		q.Range = &model.DateRange{Start: start, End: end}
	}

	svc, err := buildOffline(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	res, err := svc.Manager.Snapshot(q)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
