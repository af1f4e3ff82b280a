package handlers

import (
	"net/http"
	"sort"

	"github.com/wonny/tradebot/internal/scheduler"
)

// JobStatsSource is the part of the scheduler the API reads
type JobStatsSource interface {
	GetJobStats() map[string]scheduler.JobStats
}

// SchedulerHandler exposes the scheduled jobs
type SchedulerHandler struct {
	source JobStatsSource
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(source JobStatsSource) *SchedulerHandler {
	return &SchedulerHandler{source: source}
}

// GetJobs returns the statistics of every scheduled job, by name
// GET /api/scheduler/jobs
func (h *SchedulerHandler) GetJobs(w http.ResponseWriter, r *http.Request) {
	stats := h.source.GetJobStats()

	result := make([]scheduler.JobStats, 0, len(stats))
	for _, s := range stats {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].JobName < result[j].JobName
	})

	respondJSON(w, http.StatusOK, result)
}
