package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/pipeline"
	"github.com/wonny/tradebot/pkg/logger"
)

// Tracker observes one pipeline run and materializes its audit record
// ⭐ SSOT: PipelineExecutionRecord is written here only
type Tracker struct {
	mu        sync.Mutex
	repo      contracts.Repository[contracts.PipelineExecutionRecord]
	record    contracts.PipelineExecutionRecord
	finalized bool
	ctx       context.Context
	logger    *logger.Logger
	now       func() time.Time
}

// RunInfo describes the run being tracked
type RunInfo struct {
	Pipeline   string
	Steps      []string
	Scheduled  bool
	ConfigHash string
}

// NewTracker creates a tracker with a fresh run id
func NewTracker(repo contracts.Repository[contracts.PipelineExecutionRecord], info RunInfo, log *logger.Logger) *Tracker {
	steps := make([]contracts.StepExecutionInfo, len(info.Steps))
	for i, name := range info.Steps {
		steps[i] = contracts.StepExecutionInfo{Name: name, Status: contracts.StatusNotStarted}
	}

	id := uuid.NewString()
	return &Tracker{
		repo: repo,
		record: contracts.PipelineExecutionRecord{
			ID:         id,
			Pipeline:   info.Pipeline,
			Status:     contracts.StatusNotStarted,
			Scheduled:  info.Scheduled,
			ConfigHash: info.ConfigHash,
			Steps:      steps,
		},
		ctx:    context.Background(),
		logger: log.WithComponent("tracker").WithFields(map[string]interface{}{"pipeline": info.Pipeline, "run_id": id}),
		now:    time.Now,
	}
}

// RunID returns the id of the tracked run
func (t *Tracker) RunID() string {
	return t.record.ID
}

// Start persists the initial record. Later saves outlive ctx cancellation
// so that a canceled run is still recorded as failed.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ctx = context.WithoutCancel(ctx)
	t.record.StartedAt = t.now()
	t.save()
}

// Observe is the engine observer. Events after finalization are ignored.
func (t *Tracker) Observe(ev pipeline.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finalized {
		t.logger.WithField("kind", ev.Kind).Debug("Event after finalization ignored")
		return
	}

	switch ev.Kind {
	case pipeline.EventStepStatus:
		t.applyStep(ev)

	case pipeline.EventPipelineStatus:
		t.record.Status = ev.Status
		if ev.Status == contracts.StatusFailed {
			t.record.Error = ev.ErrorMessage()
		}
		if ev.Status.IsTerminal() {
			t.finalize(ev.At)
		}
		t.save()

	case pipeline.EventEarlyExit:
		t.record.ExitReason = ev.Reason
		t.finalize(ev.At)
		t.save()
	}
}

func (t *Tracker) applyStep(ev pipeline.Event) {
	if ev.StepIndex < 0 || ev.StepIndex >= len(t.record.Steps) {
		t.logger.WithField("step", ev.Step).Warn("Event for unknown step")
		return
	}

	step := &t.record.Steps[ev.StepIndex]
	step.Status = ev.Status
	at := ev.At

	switch ev.Status {
	case contracts.StatusRunning:
		step.StartedAt = &at
	case contracts.StatusCompleted, contracts.StatusFailed:
		step.FinishedAt = &at
		step.Duration = ev.Duration
		step.Error = ev.ErrorMessage()
	}
}

// Finalize closes the record if the engine could not (e.g. the run never started)
func (t *Tracker) Finalize(runErr error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finalized {
		return
	}
	if runErr != nil {
		t.record.Status = contracts.StatusFailed
		t.record.Error = runErr.Error()
	}
	t.finalize(t.now())
	t.save()
}

func (t *Tracker) finalize(at time.Time) {
	if at.IsZero() {
		at = t.now()
	}
	t.record.FinishedAt = &at
	t.finalized = true
}

// Record returns a copy of the current record
func (t *Tracker) Record() contracts.PipelineExecutionRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.record
	rec.Steps = append([]contracts.StepExecutionInfo(nil), t.record.Steps...)
	return rec
}

// save persists the record; storage failures never reach the engine
func (t *Tracker) save() {
	rec := t.record
	rec.Steps = append([]contracts.StepExecutionInfo(nil), t.record.Steps...)

	if err := t.repo.Add(t.ctx, rec); err != nil {
		t.logger.WithError(err).Error("Failed to save execution record")
	}
}
