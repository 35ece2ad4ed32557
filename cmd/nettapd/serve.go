package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wisbric/nightowl/internal/app"
	"github.com/wisbric/nightowl/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the NetTap daemon: HTTP API plus the periodic driver",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		return app.Run(ctx, cfg)
	},
}

// init wires `nettapd` with no subcommand to behave as `nettapd serve`.
func init() {
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	}
}
