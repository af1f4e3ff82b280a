package pipeline

import (
	"time"

	"github.com/wonny/tradebot/internal/contracts"
)

// EventKind distinguishes status notifications
type EventKind string

const (
	EventPipelineStatus EventKind = "pipeline_status"
	EventStepStatus     EventKind = "step_status"
	EventEarlyExit      EventKind = "early_exit"
)

// Event is a status-change notification raised by the engine
type Event struct {
	Kind      EventKind           `json:"kind"`
	Pipeline  string              `json:"pipeline"`
	RunID     string              `json:"run_id,omitempty"`
	Step      string              `json:"step,omitempty"`
	StepIndex int                 `json:"step_index"` // -1 for pipeline-level events
	Status    contracts.RunStatus `json:"status"`
	Err       error               `json:"-"`
	Reason    string              `json:"reason,omitempty"`
	Duration  time.Duration       `json:"duration,omitempty"`
	At        time.Time           `json:"at"`
}

// ErrorMessage returns Err as text, empty when nil
func (e Event) ErrorMessage() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Observer receives events synchronously, in emission order, on the engine goroutine.
// It must return promptly: the next step waits for it.
type Observer func(Event)
