package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitlab.com/steer-2025.net/internal/adapter/crypto"
	"gitlab.com/steer-2025.net/internal/static/errs"
)

var tokenWorkerID int

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a registration token for a worker",
	Long: `Prints a token a worker presents when it registers with the master,
for workers started without JWT_SECRET. Worker id 0 yields a token for
the status API.`,
	Example: `  JWT_SECRET=... steer token --run-id exp-1 --worker 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.RunConfig.RunID == "" {
			return fmt.Errorf("%w: --run-id is required", errs.ErrConfiguration)
		}
		handshake, err := crypto.NewHandshakeService(cfg.JwtConfig, cfg.RunConfig.RunID)
		if err != nil {
			return err
		}
		if !handshake.Enabled() {
			return fmt.Errorf("%w: JWT_SECRET is not set", errs.ErrConfiguration)
		}
		token, err := handshake.IssueWorkerToken(tokenWorkerID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().IntVar(&tokenWorkerID, "worker", 0, "worker id the token is issued for")
}
