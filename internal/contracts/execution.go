package contracts

import "time"

// PipelineExecutionRecord is the audit record of one pipeline run.
// Created at start, updated on status changes, never mutated after FinishedAt is set.
type PipelineExecutionRecord struct {
	ID         string              `json:"id"`
	Pipeline   string              `json:"pipeline"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
	Status     RunStatus           `json:"status"`
	Scheduled  bool                `json:"scheduled"`
	Error      string              `json:"error,omitempty"`
	ExitReason string              `json:"exit_reason,omitempty"`
	ConfigHash string              `json:"config_hash,omitempty"`
	Steps      []StepExecutionInfo `json:"steps"`
}

// Key returns the run id
func (r PipelineExecutionRecord) Key() string {
	return r.ID
}

// IsFinal reports whether the record has been finalized
func (r PipelineExecutionRecord) IsFinal() bool {
	return r.FinishedAt != nil
}

// Exited reports whether a step ended the run early. Such a record keeps
// StatusRunning once finalized.
func (r PipelineExecutionRecord) Exited() bool {
	return r.ExitReason != ""
}

// Duration returns the wall time of the run, or 0 while running
func (r PipelineExecutionRecord) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StepExecutionInfo is the timing and outcome of one step
type StepExecutionInfo struct {
	Name       string        `json:"name"`
	Status     RunStatus     `json:"status"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}
