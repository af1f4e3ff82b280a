package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/tradebot/internal/app"
	"github.com/wonny/tradebot/pkg/config"
	"github.com/wonny/tradebot/pkg/logger"
)

var (
	// Global flags
	strategyPath string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tradebot",
	Short: "Tradebot - signal analysis and automated order execution",
	Long: `Tradebot Unified CLI

Two pipelines share one engine:
  analysis:  portfolio → market data → indicators → scores → daily signals
  autotrade: permission → signals → limits → volume → orders → portfolio → report

Usage:
  go run ./cmd/tradebot [command]

Examples:
  go run ./cmd/tradebot analyze
  go run ./cmd/tradebot trade --preview
  go run ./cmd/tradebot scheduler start
  go run ./cmd/tradebot api --with-scheduler`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategyPath, "strategy", "", "strategy rules YAML (overrides STRATEGY_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// bootstrap loads the configuration and assembles the application
func bootstrap(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if strategyPath != "" {
		cfg.StrategyConfigPath = strategyPath
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init application: %w", err)
	}
	return a, nil
}
