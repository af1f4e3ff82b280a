package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/pkg/logger"
)

// Outcome is the non-error result of a step: continue, or stop the run without failing it
type Outcome struct {
	exit   bool
	reason string
}

// Continue lets the engine run the next step
func Continue() Outcome {
	return Outcome{}
}

// EarlyExit stops the run after the current step. The run is not failed.
func EarlyExit(reason string) Outcome {
	return Outcome{exit: true, reason: reason}
}

// IsEarlyExit reports whether the step asked to stop the run
func (o Outcome) IsEarlyExit() bool {
	return o.exit
}

// Reason returns the early-exit explanation
func (o Outcome) Reason() string {
	return o.reason
}

// Step is one unit of work over the shared context C.
// A non-nil error fails the step and aborts the run.
type Step[C any] interface {
	Name() string
	Execute(ctx context.Context, pc C) (Outcome, error)
}

// StepFunc adapts a function to Step
type StepFunc[C any] struct {
	StepName string
	Fn       func(ctx context.Context, pc C) (Outcome, error)
}

func (s StepFunc[C]) Name() string { return s.StepName }

func (s StepFunc[C]) Execute(ctx context.Context, pc C) (Outcome, error) { return s.Fn(ctx, pc) }

// StepState is the status of one step at the end of a run
type StepState struct {
	Name   string
	Status contracts.RunStatus
	Err    error
}

// Result describes a finished run.
// On early exit Status stays Running: the run neither failed nor completed every step.
type Result struct {
	Pipeline   string
	Status     contracts.RunStatus
	Steps      []StepState
	EarlyExit  bool
	ExitReason string
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Engine runs an ordered list of steps against one context, strictly one at a time
// ⭐ SSOT: step sequencing, status tracking and fail-fast live here only
type Engine[C any] struct {
	name      string
	steps     []Step[C]
	observers []Observer
	logger    *logger.Logger
	now       func() time.Time
}

// New creates an engine for the named pipeline
func New[C any](name string, steps []Step[C], log *logger.Logger) *Engine[C] {
	return &Engine[C]{
		name:   name,
		steps:  steps,
		logger: log.WithComponent("engine").WithField("pipeline", name),
		now:    time.Now,
	}
}

// Subscribe registers an observer. Observers are called in subscription order.
func (e *Engine[C]) Subscribe(o Observer) {
	e.observers = append(e.observers, o)
}

// Name returns the pipeline name
func (e *Engine[C]) Name() string {
	return e.name
}

// StepNames returns the step names in execution order
func (e *Engine[C]) StepNames() []string {
	names := make([]string, len(e.steps))
	for i, s := range e.steps {
		names[i] = s.Name()
	}
	return names
}

// Run executes every step in order against pc.
// The first step error aborts the run: the step and the run are recorded Failed,
// observers are notified, then the error is returned wrapped as "step <name>: ...".
func (e *Engine[C]) Run(ctx context.Context, pc C) (*Result, error) {
	result := &Result{
		Pipeline:  e.name,
		Status:    contracts.StatusNotStarted,
		Steps:     make([]StepState, len(e.steps)),
		StartedAt: e.now(),
	}
	for i, s := range e.steps {
		result.Steps[i] = StepState{Name: s.Name(), Status: contracts.StatusNotStarted}
	}

	e.logger.WithField("steps", len(e.steps)).Info("Pipeline started")
	result.Status = contracts.StatusRunning
	e.emit(Event{Kind: EventPipelineStatus, Status: contracts.StatusRunning, StepIndex: -1})

	for i, step := range e.steps {
		name := step.Name()
		stepLog := e.logger.WithFields(map[string]interface{}{"step": name, "index": i})

		result.Steps[i].Status = contracts.StatusRunning
		e.emit(Event{Kind: EventStepStatus, Step: name, StepIndex: i, Status: contracts.StatusRunning})
		stepLog.Debug("Step started")

		started := e.now()
		outcome, err := e.execute(ctx, step, pc)
		elapsed := e.now().Sub(started)

		if err != nil {
			wrapped := fmt.Errorf("step %s: %w", name, err)
			result.Steps[i].Status = contracts.StatusFailed
			result.Steps[i].Err = err
			e.emit(Event{Kind: EventStepStatus, Step: name, StepIndex: i, Status: contracts.StatusFailed, Err: err, Duration: elapsed})

			result.Status = contracts.StatusFailed
			result.Err = wrapped
			result.FinishedAt = e.now()
			e.emit(Event{Kind: EventPipelineStatus, StepIndex: -1, Status: contracts.StatusFailed, Err: wrapped})

			stepLog.WithError(err).WithField("duration", elapsed).Error("Step failed, aborting pipeline")
			return result, wrapped
		}

		result.Steps[i].Status = contracts.StatusCompleted
		e.emit(Event{Kind: EventStepStatus, Step: name, StepIndex: i, Status: contracts.StatusCompleted, Duration: elapsed})
		stepLog.WithField("duration", elapsed).Info("Step completed")

		if outcome.IsEarlyExit() {
			result.EarlyExit = true
			result.ExitReason = outcome.Reason()
			result.FinishedAt = e.now()
			e.emit(Event{Kind: EventEarlyExit, Step: name, StepIndex: i, Status: result.Status, Reason: outcome.Reason()})
			stepLog.WithField("reason", outcome.Reason()).Info("Pipeline exited early")
			return result, nil
		}
	}

	result.Status = contracts.StatusCompleted
	result.FinishedAt = e.now()
	e.emit(Event{Kind: EventPipelineStatus, StepIndex: -1, Status: contracts.StatusCompleted})
	e.logger.WithField("duration", result.FinishedAt.Sub(result.StartedAt)).Info("Pipeline completed")

	return result, nil
}

// execute runs one step; a canceled context or a panic becomes a step error
func (e *Engine[C]) execute(ctx context.Context, step Step[C], pc C) (outcome Outcome, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Outcome{}, ctxErr
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return step.Execute(ctx, pc)
}

func (e *Engine[C]) emit(ev Event) {
	ev.Pipeline = e.name
	ev.At = e.now()
	for _, o := range e.observers {
		o(ev)
	}
}
