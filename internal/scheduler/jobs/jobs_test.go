package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/scheduler"
	"github.com/wonny/tradebot/internal/storage/memory"
	"github.com/wonny/tradebot/pkg/logger"
)

type fakeRunner struct {
	calls     []string
	scheduled []bool
	record    *contracts.PipelineExecutionRecord
	err       error
}

func (f *fakeRunner) Run(_ context.Context, name string, scheduled bool) (*contracts.PipelineExecutionRecord, error) {
	f.calls = append(f.calls, name)
	f.scheduled = append(f.scheduled, scheduled)
	return f.record, f.err
}

func TestPipelineJob_RunsAsScheduled(t *testing.T) {
	runner := &fakeRunner{record: &contracts.PipelineExecutionRecord{ID: "r-1", Status: contracts.StatusCompleted}}
	job := NewPipelineJob(runner, "analysis", "0 30 9 * * 1-5", logger.Nop())

	assert.Equal(t, "analysis", job.Name())
	assert.Equal(t, "0 30 9 * * 1-5", job.Schedule())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"analysis"}, runner.calls)
	assert.Equal(t, []bool{true}, runner.scheduled)
}

func TestPipelineJob_PropagatesFailure(t *testing.T) {
	boom := errors.New("boom")
	runner := &fakeRunner{record: &contracts.PipelineExecutionRecord{ID: "r-2"}, err: boom}
	job := NewPipelineJob(runner, "autotrade", "@daily", logger.Nop())

	err := job.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "r-2")
}

func TestSyncPipelineJob_FollowsSchedule(t *testing.T) {
	s := scheduler.New(logger.Nop(), time.UTC)
	runner := &fakeRunner{}

	// empty schedule with no job is a no-op
	require.NoError(t, SyncPipelineJob(s, runner, "autotrade", "", logger.Nop()))
	assert.False(t, s.HasJob("autotrade"))

	require.NoError(t, SyncPipelineJob(s, runner, "autotrade", "0 0 10 * * 1-5", logger.Nop()))
	assert.Equal(t, "0 0 10 * * 1-5", s.GetJobStats()["autotrade"].Schedule)

	require.NoError(t, SyncPipelineJob(s, runner, "autotrade", "0 30 15 * * 1-5", logger.Nop()))
	assert.Equal(t, "0 30 15 * * 1-5", s.GetJobStats()["autotrade"].Schedule)
	assert.Equal(t, []string{"autotrade"}, s.GetAllJobs())

	assert.Error(t, SyncPipelineJob(s, runner, "autotrade", "every morning", logger.Nop()))
	assert.Equal(t, "0 30 15 * * 1-5", s.GetJobStats()["autotrade"].Schedule, "a bad schedule keeps the old entry")

	require.NoError(t, SyncPipelineJob(s, runner, "autotrade", "", logger.Nop()))
	assert.False(t, s.HasJob("autotrade"))
}

func TestRetentionJob(t *testing.T) {
	now := time.Date(2026, 3, 31, 3, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -40)
	recent := now.AddDate(0, 0, -2)

	repo := memory.NewRepository[contracts.PipelineExecutionRecord]()
	ctx := context.Background()
	require.NoError(t, repo.AddRange(ctx, []contracts.PipelineExecutionRecord{
		{ID: "old", StartedAt: old, FinishedAt: &old, Status: contracts.StatusCompleted},
		{ID: "recent", StartedAt: recent, FinishedAt: &recent, Status: contracts.StatusCompleted},
		{ID: "running", StartedAt: old, Status: contracts.StatusRunning},
	}))

	job := NewRetentionJob(repo, 30*24*time.Hour, logger.Nop())
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(ctx))

	left, err := repo.GetAll(ctx, nil)
	require.NoError(t, err)
	var ids []string
	for _, r := range left {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"recent", "running"}, ids)
}
