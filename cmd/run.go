package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gitlab.com/steer-2025.net/internal/config"
	"gitlab.com/steer-2025.net/internal/core/services/driver"
	"gitlab.com/steer-2025.net/internal/core/services/strategy"
	logger2 "gitlab.com/steer-2025.net/internal/global/logger"
)

var participantIndex int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run master and workers as configured",
	Long: `Runs this process' part of a run. With a single worker and no peer
processes the worker runs inline with the master; with --transport local
every worker is a goroutine of this process; otherwise each participant
is a separate process connected over TCP.`,
	Example: `  # one worker, inline
  steer run

  # four workers as goroutines
  steer run -n 4 --transport local --strategy-file sweep.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runDriver(cfg)
	},
}

var masterCmd = &cobra.Command{
	Use:   "master",
	Short: "Run the master of a tcp run",
	Example: `  steer master --run-id exp-1 -n 3 --master-addr :9000 --http-port 8082`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg.RunConfig.Transport = config.TransportTCP
		cfg.RunConfig.ParticipantIndex = 0
		return runDriver(cfg, driver.WithParticipation(driver.ParticipateMaster))
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run one worker participant of a tcp run",
	Long: `Runs participant --index of a tcp run. Without --index a worker index
is claimed from Redis (REDIS_ADDR), which also provides the master address.
Index 0 belongs to the master and is never handed to a worker.`,
	Example: `  steer worker --run-id exp-1 -n 3 --index 2 --master-addr master-host:9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg.RunConfig.Transport = config.TransportTCP
		if cmd.Flags().Changed("index") {
			cfg.RunConfig.ParticipantIndex = participantIndex
		}
		return runDriver(cfg, driver.WithParticipation(driver.ParticipateWorker))
	},
}

func init() {
	rootCmd.AddCommand(runCmd, masterCmd, workerCmd)
	workerCmd.Flags().IntVar(&participantIndex, "index", -1, "participant index, 1 or above; -1 claims one")
}

func runDriver(cfg *config.AppConfig, options ...driver.DriverOption) error {
	logger := logger2.Logger
	defer logger.Sync()

	pair, err := strategy.Lookup(cfg.StrategyConfig.Name)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := setupDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	d := driver.NewDriver(cfg, pair, logger, append(deps.Options(), options...)...)
	if err := d.Run(ctx); err != nil {
		logger.Error("Run failed", "mode", d.Mode().String(), "runId", d.RunID(), "error", err)
		return err
	}

	logger.Info("Run finished", "mode", d.Mode().String(), "runId", d.RunID())
	return nil
}
