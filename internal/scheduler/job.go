package scheduler

import (
	"context"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: the job interface is defined here only
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the cron expression, seconds first
	// Examples: "0 30 9 * * 1-5" (weekdays at 09:30), "@daily"
	Schedule() string
}

// JobResult is the outcome of one activation of a job
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	// Manual is set for RunJob activations outside the schedule
	Manual bool `json:"manual,omitempty"`
}

// maxHistory is the number of results kept per job
const maxHistory = 100

// JobHistory keeps the latest results of a job, oldest first.
// Totals count every activation, including the ones already evicted.
type JobHistory struct {
	Results []JobResult

	total    int
	failures int
	lastOK   *time.Time
	lastFail *time.Time
}

// AddResult appends a result, evicting the oldest beyond maxHistory
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > maxHistory {
		h.Results = h.Results[len(h.Results)-maxHistory:]
	}

	h.total++
	at := result.StartTime
	if result.Success {
		h.lastOK = &at
	} else {
		h.failures++
		h.lastFail = &at
	}
}

// GetLatestResults returns the latest n results, oldest first
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n <= 0 {
		return []JobResult{}
	}
	return append([]JobResult(nil), h.Results[len(h.Results)-n:]...)
}

// Last returns the most recent result
func (h *JobHistory) Last() (JobResult, bool) {
	if len(h.Results) == 0 {
		return JobResult{}, false
	}
	return h.Results[len(h.Results)-1], true
}

// ConsecutiveFailures counts the failed results since the last success
func (h *JobHistory) ConsecutiveFailures() int {
	n := 0
	for i := len(h.Results) - 1; i >= 0 && !h.Results[i].Success; i-- {
		n++
	}
	return n
}

// GetSuccessRate returns the share of successful activations (0.0 - 1.0)
func (h *JobHistory) GetSuccessRate() float64 {
	if h.total == 0 {
		return 0.0
	}
	return float64(h.total-h.failures) / float64(h.total)
}

// clone copies the history so it can leave the scheduler lock
func (h *JobHistory) clone() *JobHistory {
	c := *h
	c.Results = append([]JobResult(nil), h.Results...)
	return &c
}
