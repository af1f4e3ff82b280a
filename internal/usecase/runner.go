package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/wonny/tradebot/internal/audit"
	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/pipeline"
	"github.com/wonny/tradebot/pkg/logger"
)

var (
	// ErrUnknownPipeline is returned for a name missing from the registry
	ErrUnknownPipeline = errors.New("unknown pipeline")
	// ErrAlreadyRunning is returned when the same pipeline is already running
	ErrAlreadyRunning = errors.New("pipeline already running")
)

// Runner executes registered pipelines under an execution tracker
// ⭐ SSOT: every pipeline run (CLI, scheduler, API) starts here
type Runner struct {
	registry   *Registry
	executions contracts.Repository[contracts.PipelineExecutionRecord]
	configHash string
	logger     *logger.Logger

	mu        sync.Mutex
	running   map[string]string // pipeline → run id
	observers []pipeline.Observer
}

// NewRunner creates a runner. configHash is stamped on every record.
func NewRunner(registry *Registry, executions contracts.Repository[contracts.PipelineExecutionRecord], configHash string, log *logger.Logger) *Runner {
	return &Runner{
		registry:   registry,
		executions: executions,
		configHash: configHash,
		logger:     log.WithComponent("runner"),
		running:    make(map[string]string),
	}
}

// AddObserver registers an observer attached to every future run
func (r *Runner) AddObserver(o pipeline.Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Registry returns the pipeline registry
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Running returns pipeline name → run id of the runs in progress
func (r *Runner) Running() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.running))
	for k, v := range r.running {
		out[k] = v
	}
	return out
}

// Run executes the named pipeline and returns its finalized record.
// The step error, if any, is returned as well.
func (r *Runner) Run(ctx context.Context, name string, scheduled bool) (*contracts.PipelineExecutionRecord, error) {
	factory, err := r.registry.Get(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if _, busy := r.running[name]; busy {
		r.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	r.running[name] = ""
	observers := append([]pipeline.Observer(nil), r.observers...)
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.running, name)
		r.mu.Unlock()
	}()

	runnable, buildErr := factory(ctx)

	tracker := audit.NewTracker(r.executions, audit.RunInfo{
		Pipeline:   name,
		Steps:      runnable.StepNames,
		Scheduled:  scheduled,
		ConfigHash: r.configHash,
	}, r.logger)

	r.mu.Lock()
	r.running[name] = tracker.RunID()
	r.mu.Unlock()

	log := r.logger.WithFields(map[string]interface{}{
		"pipeline":  name,
		"run_id":    tracker.RunID(),
		"scheduled": scheduled,
	})

	tracker.Start(ctx)

	if buildErr != nil {
		tracker.Finalize(buildErr)
		log.WithError(buildErr).Error("Pipeline could not be built")
		record := tracker.Record()
		return &record, buildErr
	}

	runID := tracker.RunID()
	runnable.Subscribe(func(ev pipeline.Event) {
		ev.RunID = runID
		tracker.Observe(ev)
		for _, o := range observers {
			o(ev)
		}
	})

	result, runErr := runnable.Run(ctx)
	tracker.Finalize(runErr)

	record := tracker.Record()
	switch {
	case runErr != nil:
		log.WithError(runErr).Error("Pipeline failed")
	case result != nil && result.EarlyExit:
		log.WithField("reason", result.ExitReason).Info("Pipeline exited early")
	default:
		log.WithField("duration", record.Duration()).Info("Pipeline completed")
	}

	return &record, runErr
}
