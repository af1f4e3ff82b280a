package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/scheduler"
	"github.com/wonny/tradebot/pkg/logger"
)

// PipelineRunner is the part of usecase.Runner the jobs need
type PipelineRunner interface {
	Run(ctx context.Context, name string, scheduled bool) (*contracts.PipelineExecutionRecord, error)
}

// PipelineJob runs a registered pipeline on a cron schedule
type PipelineJob struct {
	runner   PipelineRunner
	pipeline string
	schedule string
	logger   *logger.Logger
}

// NewPipelineJob creates a job running pipeline on schedule
func NewPipelineJob(runner PipelineRunner, pipeline, schedule string, log *logger.Logger) *PipelineJob {
	return &PipelineJob{
		runner:   runner,
		pipeline: pipeline,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the pipeline name
func (j *PipelineJob) Name() string {
	return j.pipeline
}

// Schedule returns the cron schedule
func (j *PipelineJob) Schedule() string {
	return j.schedule
}

// Run executes the pipeline as a scheduled run.
// An early exit is a success; the failure itself is already in the execution record.
func (j *PipelineJob) Run(ctx context.Context) error {
	record, err := j.runner.Run(ctx, j.pipeline, true)
	if err != nil {
		if record != nil {
			return fmt.Errorf("run %s: %w", record.ID, err)
		}
		return err
	}

	fields := map[string]interface{}{
		"pipeline": j.pipeline,
		"run_id":   record.ID,
		"status":   record.Status,
	}
	if record.Exited() {
		fields["exit_reason"] = record.ExitReason
	}
	j.logger.WithFields(fields).Info("Scheduled pipeline finished")

	return nil
}

// SyncPipelineJob makes the job of pipeline follow schedule: it is added,
// moved to the new schedule, or removed when schedule is empty
func SyncPipelineJob(s *scheduler.Scheduler, runner PipelineRunner, pipeline, schedule string, log *logger.Logger) error {
	if schedule == "" {
		if !s.HasJob(pipeline) {
			return nil
		}
		return s.RemoveJob(pipeline)
	}
	return s.ReplaceJob(NewPipelineJob(runner, pipeline, schedule, log))
}
