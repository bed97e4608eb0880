package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/fundwatch/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fundwatch",
	Short: "Closed-end fund metrics and filing risk scanner",
	Long:  "Scrapes closed-end fund statistics pages into canonical metric records and classifies recent SEC EDGAR filings into tradeability risk events.",
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
