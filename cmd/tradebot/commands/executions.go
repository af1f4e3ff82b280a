package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/tradebot/internal/audit"
	"github.com/wonny/tradebot/internal/contracts"
)

var executionsCmd = &cobra.Command{
	Use:   "executions",
	Short: "Inspect pipeline execution records",
	Long: `Lists execution records or prints one of them.

Example:
  go run ./cmd/tradebot executions list --pipeline analysis --limit 10
  go run ./cmd/tradebot executions show <run-id>`,
}

var (
	executionsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List the latest execution records",
		RunE:  listExecutions,
	}

	executionsShowCmd = &cobra.Command{
		Use:   "show [run_id]",
		Short: "Print one execution record with its steps",
		Args:  cobra.ExactArgs(1),
		RunE:  showExecution,
	}

	listPipeline string
	listLimit    int
)

func init() {
	rootCmd.AddCommand(executionsCmd)
	executionsCmd.AddCommand(executionsListCmd)
	executionsCmd.AddCommand(executionsShowCmd)

	executionsListCmd.Flags().StringVar(&listPipeline, "pipeline", "", "only records of this pipeline")
	executionsListCmd.Flags().IntVar(&listLimit, "limit", 20, "number of records")
}

func listExecutions(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := audit.Recent(ctx, a.Store.Executions, listPipeline, listLimit)
	if err != nil {
		return fmt.Errorf("list executions: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No execution records")
		return nil
	}
	for _, r := range records {
		PrintRecordLine(r)
	}
	return nil
}

func showExecution(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	record, err := a.Store.Executions.GetByID(ctx, args[0])
	if errors.Is(err, contracts.ErrNotFound) {
		return fmt.Errorf("execution %s not found", args[0])
	}
	if err != nil {
		return fmt.Errorf("get execution: %w", err)
	}

	PrintRecord(&record)
	return nil
}
