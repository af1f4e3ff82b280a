package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/pkg/logger"
)

// RetentionJob removes finished execution records older than the retention period
type RetentionJob struct {
	executions contracts.Repository[contracts.PipelineExecutionRecord]
	retention  time.Duration
	now        func() time.Time
	logger     *logger.Logger
}

// NewRetentionJob creates a new retention job
func NewRetentionJob(executions contracts.Repository[contracts.PipelineExecutionRecord], retention time.Duration, log *logger.Logger) *RetentionJob {
	return &RetentionJob{
		executions: executions,
		retention:  retention,
		now:        time.Now,
		logger:     log,
	}
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "execution_retention"
}

// Schedule returns the cron schedule (daily at 03:00)
func (j *RetentionJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run removes the expired records
func (j *RetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.retention)

	expired, err := j.executions.GetAll(ctx, func(r contracts.PipelineExecutionRecord) bool {
		return r.FinishedAt != nil && r.FinishedAt.Before(cutoff)
	})
	if err != nil {
		return fmt.Errorf("list execution records: %w", err)
	}

	for _, r := range expired {
		if err := j.executions.Remove(ctx, r.ID); err != nil {
			return fmt.Errorf("remove execution record %s: %w", r.ID, err)
		}
	}

	if len(expired) > 0 {
		j.logger.WithFields(map[string]interface{}{
			"removed": len(expired),
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Execution records pruned")
	}

	return nil
}
