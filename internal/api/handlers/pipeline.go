package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/tradebot/internal/audit"
	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/usecase"
	"github.com/wonny/tradebot/pkg/logger"
)

// PipelineHandler handles pipeline runs and their execution records
// ⭐ SSOT: pipeline API handlers live here only
type PipelineHandler struct {
	runner     *usecase.Runner
	executions contracts.Repository[contracts.PipelineExecutionRecord]
	logger     *logger.Logger
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(runner *usecase.Runner, executions contracts.Repository[contracts.PipelineExecutionRecord], log *logger.Logger) *PipelineHandler {
	return &PipelineHandler{
		runner:     runner,
		executions: executions,
		logger:     log,
	}
}

// PipelineInfo describes one registered pipeline
type PipelineInfo struct {
	Name    string       `json:"name"`
	Running bool         `json:"running"`
	RunID   string       `json:"run_id,omitempty"`
	LastRun *LastRunInfo `json:"last_run,omitempty"`
}

// LastRunInfo summarizes the latest execution record of a pipeline.
// Exited separates an early exit from a live run, both have status RUNNING.
type LastRunInfo struct {
	ID         string              `json:"id"`
	Status     contracts.RunStatus `json:"status"`
	Finished   bool                `json:"finished"`
	Exited     bool                `json:"exited"`
	ExitReason string              `json:"exit_reason,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
}

// ListPipelines returns the registered pipelines, whether they are running and their latest run
// GET /api/pipelines
func (h *PipelineHandler) ListPipelines(w http.ResponseWriter, r *http.Request) {
	running := h.runner.Running()

	names := h.runner.Registry().Names()
	result := make([]PipelineInfo, 0, len(names))
	for _, name := range names {
		runID, busy := running[name]
		info := PipelineInfo{Name: name, Running: busy, RunID: runID}

		latest, err := audit.Recent(r.Context(), h.executions, name, 1)
		if err != nil {
			h.logger.WithError(err).Error("Failed to load execution records")
			respondError(w, http.StatusInternalServerError, "Failed to load execution records")
			return
		}
		if len(latest) == 1 {
			rec := latest[0]
			info.LastRun = &LastRunInfo{
				ID:         rec.ID,
				Status:     rec.Status,
				Finished:   rec.IsFinal(),
				Exited:     rec.Exited(),
				ExitReason: rec.ExitReason,
				StartedAt:  rec.StartedAt,
				FinishedAt: rec.FinishedAt,
			}
		}
		result = append(result, info)
	}

	respondJSON(w, http.StatusOK, result)
}

// RunPipeline starts a pipeline.
// With ?wait=true the request blocks until the run is finalized and returns the record,
// otherwise the run continues in the background and 202 is returned.
// POST /api/pipelines/{name}/run
func (h *PipelineHandler) RunPipeline(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if _, err := h.runner.Registry().Get(name); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if _, busy := h.runner.Running()[name]; busy {
		respondError(w, http.StatusConflict, usecase.ErrAlreadyRunning.Error())
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		record, err := h.runner.Run(r.Context(), name, false)
		if errors.Is(err, usecase.ErrAlreadyRunning) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		if record == nil {
			h.logger.WithError(err).Error("Failed to run pipeline")
			respondError(w, http.StatusInternalServerError, "Failed to run pipeline")
			return
		}
		// a failed run is still a finalized record
		respondJSON(w, http.StatusOK, record)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := h.runner.Run(ctx, name, false); err != nil {
			h.logger.WithError(err).WithField("pipeline", name).Warn("Background pipeline run failed")
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{
		"pipeline": name,
		"status":   "accepted",
	})
}

// ListExecutions returns the latest execution records, newest first
// GET /api/executions?pipeline=&limit=
func (h *PipelineHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	records, err := audit.Recent(r.Context(), h.executions, r.URL.Query().Get("pipeline"), queryInt(r, "limit", 20))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list executions")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve executions")
		return
	}

	respondJSON(w, http.StatusOK, records)
}

// GetExecution returns one execution record
// GET /api/executions/{id}
func (h *PipelineHandler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	record, err := h.executions.GetByID(r.Context(), id)
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Execution not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("id", id).Error("Failed to get execution")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve execution")
		return
	}

	respondJSON(w, http.StatusOK, record)
}
