package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/tradebot/internal/api"
	"github.com/wonny/tradebot/internal/api/handlers"
	"github.com/wonny/tradebot/internal/api/ws"
	"github.com/wonny/tradebot/internal/scheduler"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                     - Health check
  GET  /ws/status                  - Live pipeline status (websocket)
  GET  /api/pipelines              - Registered pipelines
  POST /api/pipelines/{name}/run   - Run a pipeline (?wait=true blocks)
  GET  /api/executions             - Execution records (?pipeline, ?limit)
  GET  /api/executions/{id}        - One execution record
  GET  /api/signals                - Signals of a day (?date, ?all)
  GET  /api/portfolio              - Stored holdings
  GET  /api/trades                 - Executed trades (?date, ?limit)
  GET  /api/scheduler/jobs         - Scheduled job statistics (--with-scheduler)
  GET  /api/settings               - Bot settings
  PUT  /api/settings               - Update bot settings

Example:
  go run ./cmd/tradebot api
  go run ./cmd/tradebot api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort       string
	withScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default PORT)")
	apiCmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "also run the scheduled jobs")
	apiCmd.Flags().DurationVar(&retention, "retention", 30*24*time.Hour, "execution record retention")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Tradebot API Server ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.Config.Port = apiPort
	}
	log := a.Logger

	hub := ws.NewHub(log)
	a.Runner.AddObserver(hub.Observe)

	var (
		sched *scheduler.Scheduler
		jobs  handlers.JobStatsSource
	)
	if withScheduler {
		sched, err = buildScheduler(ctx, a)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		jobs = sched
	}

	server := api.New(a.Config, log, api.NewRouter(a, hub, jobs, log))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.Config.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("Shutting down server...")

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
