package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/stationrisk/app"
	"github.com/kilianp07/stationrisk/config"
	"github.com/kilianp07/stationrisk/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "stationrisk",
	Short: "EV charging fleet risk and self-healing service",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file (empty for defaults and K_ environment only)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}

// buildOffline loads the configuration and the fleet without starting any
// network component.
func buildOffline(ctx context.Context) (*app.Service, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// Keep stdout readable for the JSON output.
	if cfg.Logging.Level == "info" {
		cfg.Logging.Level = "warn"
	}
	svc, err := app.Build(cfg)
	if err != nil {
		return nil, err
	}
	if err := svc.Load(ctx); err != nil {
		_ = svc.Close()
		return nil, err
	}
	return svc, nil
}
