package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/tradebot/internal/api/handlers"
	"github.com/wonny/tradebot/internal/api/ws"
	"github.com/wonny/tradebot/internal/app"
	"github.com/wonny/tradebot/pkg/database"
	"github.com/wonny/tradebot/pkg/logger"
)

// NewRouter creates and configures the HTTP router.
// hub and jobs are optional.
// ⭐ SSOT: every route is declared in this function
func NewRouter(a *app.App, hub *ws.Hub, jobs handlers.JobStatsSource, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	pipelineHandler := handlers.NewPipelineHandler(a.Runner, a.Store.Executions, log)
	tradingHandler := handlers.NewTradingHandler(a.Store, a.Config.Location(), log)
	settingsHandler := handlers.NewSettingsHandler(a.Settings, log)

	// Health check
	var db DatabaseChecker
	if a.Database != nil {
		db = a.Database
	}
	r.HandleFunc("/health", healthCheckHandler(a, db)).Methods("GET")

	// Live pipeline status
	if hub != nil {
		r.HandleFunc("/ws/status", hub.ServeWS).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Pipelines
	api.HandleFunc("/pipelines", pipelineHandler.ListPipelines).Methods("GET")
	api.HandleFunc("/pipelines/{name}/run", pipelineHandler.RunPipeline).Methods("POST")
	api.HandleFunc("/executions", pipelineHandler.ListExecutions).Methods("GET")
	api.HandleFunc("/executions/{id}", pipelineHandler.GetExecution).Methods("GET")

	// Trading data
	api.HandleFunc("/signals", tradingHandler.GetSignals).Methods("GET")
	api.HandleFunc("/portfolio", tradingHandler.GetPortfolio).Methods("GET")
	api.HandleFunc("/trades", tradingHandler.GetTrades).Methods("GET")

	// Scheduler
	if jobs != nil {
		api.HandleFunc("/scheduler/jobs", handlers.NewSchedulerHandler(jobs).GetJobs).Methods("GET")
	}

	// Settings
	api.HandleFunc("/settings", settingsHandler.GetSettings).Methods("GET")
	api.HandleFunc("/settings", settingsHandler.UpdateSettings).Methods("PUT")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// DatabaseChecker reports the health of the relational backend
type DatabaseChecker interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

const healthCheckTimeout = 3 * time.Second

// healthCheckHandler returns server health status.
// db is nil unless the postgres backend is active.
func healthCheckHandler(a *app.App, db DatabaseChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":  "ok",
			"service": "tradebot",
			"storage": a.Store.Backend,
			"running": a.Runner.Running(),
		}
		code := http.StatusOK

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()

			status, err := db.HealthCheck(ctx)
			body["database"] = status
			if err != nil {
				body["status"] = "degraded"
				code = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(body)
	}
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
