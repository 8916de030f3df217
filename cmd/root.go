package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gitlab.com/steer-2025.net/internal/config"
	logger2 "gitlab.com/steer-2025.net/internal/global/logger"
)

const Version = "0.3.0"

var (
	// global flags
	envName      string
	logLevel     string
	runID        string
	nWorkers     int
	participants int
	transport    string
	masterAddr   string
	httpPort     int
	strategyName string
	strategyFile string
)

var rootCmd = &cobra.Command{
	Use:   "steer",
	Short: "Master/worker steering framework",
	Long: `steer runs a master that steers a pool of workers: workers execute
commands and report back, the master's decision strategy answers each
report with the next command for that worker.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnv(envName)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envName, "env", "", "load <env>.env before reading the configuration")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&runID, "run-id", "", "id shared by every participant of a run")
	flags.IntVarP(&nWorkers, "workers", "n", 1, "number of workers")
	flags.IntVar(&participants, "participants", 0, "processes taking part in a tcp run, master included")
	flags.StringVar(&transport, "transport", config.TransportAuto, "auto, local or tcp")
	flags.StringVar(&masterAddr, "master-addr", ":9000", "master listen address, or the address workers dial")
	flags.IntVar(&httpPort, "http-port", 0, "serve the status API on this port (0 disables it)")
	flags.StringVar(&strategyName, "strategy", "sweep", "strategy pair to run")
	flags.StringVar(&strategyFile, "strategy-file", "", "YAML file with the strategy name and parameters")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadEnv loads <name>.env when a name is given. A missing file is only
// an error when it was asked for explicitly.
func loadEnv(name string) error {
	if name == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(name + ".env"); err != nil {
		return fmt.Errorf("error loading %s.env file: %w", name, err)
	}
	return nil
}

// loadConfig reads the environment and applies the flags the user set
func loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	cfg := config.NewSystemConfig()
	flags := cmd.Flags()

	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	logger2.SetLevel(cfg.LogLevel)

	if flags.Changed("run-id") {
		cfg.RunConfig.RunID = runID
	}
	if flags.Changed("workers") {
		cfg.RunConfig.NWorkers = nWorkers
	}
	if flags.Changed("participants") {
		cfg.RunConfig.Participants = participants
	}
	if flags.Changed("transport") {
		cfg.RunConfig.Transport = transport
	}
	if flags.Changed("master-addr") {
		cfg.RunConfig.MasterAddr = masterAddr
	}
	if flags.Changed("http-port") {
		cfg.HTTPConfig.Port = httpPort
	}
	if flags.Changed("strategy") {
		cfg.StrategyConfig.Name = strategyName
	}

	path := strategyFile
	if path == "" {
		path = os.Getenv("STEER_STRATEGY_FILE")
	}
	if path != "" {
		if err := cfg.StrategyConfig.LoadFile(path); err != nil {
			return nil, err
		}
		// an explicit flag wins over the file
		if flags.Changed("strategy") {
			cfg.StrategyConfig.Name = strategyName
		}
	}
	return cfg, nil
}
