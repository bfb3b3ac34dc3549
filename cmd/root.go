package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/streetlives/util-scripts/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "streetlives",
	Short: "Ingestion reconciliation tools for the service directory",
	Long:  "Reads partner facility exports, normalizes them, matches them against the canonical service directory, and creates or updates organizations, locations and services without producing duplicates.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
