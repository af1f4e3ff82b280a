package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/tradebot/internal/app"
	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/scheduler"
	"github.com/wonny/tradebot/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Scheduler management",
	Long: `Starts the scheduler or inspects its jobs.

Subcommands:
  start   - start the scheduler daemon
  list    - list the registered jobs and their next run

Example:
  go run ./cmd/tradebot scheduler start
  go run ./cmd/tradebot scheduler list`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		Long: `Starts the scheduler and registers every job.

Registered jobs:
- analysis:            strategy analysis.schedule (default weekdays 09:30)
- autotrade:           bot settings schedule (default weekdays 10:00)
- execution_retention: daily at 03:00

Stop with Ctrl+C.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	retention time.Duration
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)

	schedulerCmd.PersistentFlags().DurationVar(&retention, "retention", 30*24*time.Hour, "execution record retention")
}

// buildScheduler registers the pipeline jobs and the retention job
func buildScheduler(ctx context.Context, a *app.App) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.Logger, a.Config.Location())

	if schedule := a.Strategy.Analysis.Schedule; schedule != "" {
		job := jobs.NewPipelineJob(a.Runner, contracts.PipelineAnalysis, schedule, a.Logger)
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}

	settings, err := a.Settings.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bot settings: %w", err)
	}
	if err := jobs.SyncPipelineJob(sched, a.Runner, contracts.PipelineAutoTrade, settings.Schedule, a.Logger); err != nil {
		return nil, err
	}
	if settings.Schedule == "" {
		a.Logger.Warn("Bot settings have no schedule, autotrade is not scheduled")
	}

	// settings saved while running (PUT /api/settings) move the autotrade job
	a.Settings.OnSave(func(s contracts.BotSettings) {
		if err := jobs.SyncPipelineJob(sched, a.Runner, contracts.PipelineAutoTrade, s.Schedule, a.Logger); err != nil {
			a.Logger.WithError(err).Error("Failed to reschedule autotrade")
		}
	})

	if err := sched.AddJob(jobs.NewRetentionJob(a.Store.Executions, retention, a.Logger)); err != nil {
		return nil, err
	}

	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Tradebot Scheduler ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := buildScheduler(ctx, a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := buildScheduler(ctx, a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	printJobs(sched)
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	fmt.Println("\nRegistered jobs:")
	for _, name := range sched.GetAllJobs() {
		next, err := sched.NextRun(name)
		if err != nil || next.IsZero() {
			fmt.Printf("  - %s\n", name)
			continue
		}
		fmt.Printf("  - %-20s next %s\n", name, next.Format("2006-01-02 15:04:05 MST"))
	}
}
