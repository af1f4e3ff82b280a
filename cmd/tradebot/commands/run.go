package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/tradebot/internal/contracts"
)

// analyzeCmd runs the portfolio analysis pipeline once
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the portfolio analysis pipeline",
	Long: `Runs the analysis pipeline once and prints its execution record.

Steps:
  LoadPortfolio → DiscoverNewTickers → FetchMarketData → CalculateIndicators
  → ScoreFundamentals → EvaluateTechnicalScores → GenerateSignals → LogSignals

Example:
  go run ./cmd/tradebot analyze
  go run ./cmd/tradebot analyze --strategy ./strategy.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(contracts.PipelineAnalysis)
	},
}

var tradePreview bool

// tradeCmd runs the auto-trade pipeline once
var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Run the auto-trade pipeline",
	Long: `Runs the auto-trade pipeline once on today's signals.

With --preview no order is placed: the planned orders are priced with
live quotes and reported, nothing is persisted.

Example:
  go run ./cmd/tradebot trade
  go run ./cmd/tradebot trade --preview`,
	RunE: func(cmd *cobra.Command, args []string) error {
		name := contracts.PipelineAutoTrade
		if tradePreview {
			name = contracts.PipelineAutoTradePreview
		}
		return runPipeline(name)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(tradeCmd)

	tradeCmd.Flags().BoolVar(&tradePreview, "preview", false, "report planned orders without placing them")
}

// runPipeline runs name as a manual run. Ctrl+C cancels the run.
func runPipeline(name string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	record, runErr := a.Runner.Run(ctx, name, false)
	if record != nil {
		PrintRecord(record)
	}
	if runErr != nil {
		return fmt.Errorf("%s failed: %w", name, runErr)
	}
	return nil
}
