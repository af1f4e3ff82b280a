package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradebot/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	calls    int32
	err      error
	done     chan struct{}
}

func newCountingJob(name string, err error) *countingJob {
	return &countingJob{name: name, schedule: "0 0 3 * * *", err: err, done: make(chan struct{}, 10)}
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }
func (j *countingJob) Run(context.Context) error {
	atomic.AddInt32(&j.calls, 1)
	j.done <- struct{}{}
	return j.err
}

func waitDone(t *testing.T, j *countingJob) {
	t.Helper()
	select {
	case <-j.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestAddJob_RejectsDuplicatesAndBadSchedules(t *testing.T) {
	s := New(logger.Nop(), time.UTC)

	require.NoError(t, s.AddJob(newCountingJob("a", nil)))
	assert.Error(t, s.AddJob(newCountingJob("a", nil)))

	bad := newCountingJob("b", nil)
	bad.schedule = "every morning"
	assert.Error(t, s.AddJob(bad))

	assert.Equal(t, []string{"a"}, s.GetAllJobs())
}

func TestRunJob_FailureIsNotRetried(t *testing.T) {
	s := New(logger.Nop(), time.UTC)
	job := newCountingJob("failing", errors.New("broker down"))
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("failing"))
	waitDone(t, job)

	require.Eventually(t, func() bool {
		h, err := s.GetJobHistory("failing")
		return err == nil && len(h.Results) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&job.calls))

	stats := s.GetJobStats()["failing"]
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 0.0, stats.SuccessRate)
	assert.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
	assert.Equal(t, "broker down", stats.LastError)
	assert.Equal(t, 1, stats.ConsecutiveFailures)

	h, err := s.GetJobHistory("failing")
	require.NoError(t, err)
	assert.True(t, h.Results[0].Manual)
}

func TestRunJob_Unknown(t *testing.T) {
	s := New(logger.Nop(), time.UTC)
	assert.Error(t, s.RunJob("missing"))
}

func TestRemoveJob(t *testing.T) {
	s := New(logger.Nop(), time.UTC)
	require.NoError(t, s.AddJob(newCountingJob("a", nil)))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("a"))
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+5; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}

	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.GetLatestResults(3), 3)
	assert.Empty(t, (&JobHistory{}).GetLatestResults(3))
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 0.01)
	assert.Equal(t, 0, h.ConsecutiveFailures())
}

func TestJobHistory_TracksLastSuccessAndFailure(t *testing.T) {
	t0 := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	h := &JobHistory{}
	h.AddResult(JobResult{StartTime: t0, Success: true})
	h.AddResult(JobResult{StartTime: t0.Add(time.Hour), Error: "boom"})
	h.AddResult(JobResult{StartTime: t0.Add(2 * time.Hour), Error: "boom"})

	require.NotNil(t, h.lastOK)
	require.NotNil(t, h.lastFail)
	assert.Equal(t, t0, *h.lastOK)
	assert.Equal(t, t0.Add(2*time.Hour), *h.lastFail)
	assert.Equal(t, 2, h.ConsecutiveFailures())

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, "boom", last.Error)
}

func TestReplaceJob_KeepsHistory(t *testing.T) {
	s := New(logger.Nop(), time.UTC)
	job := newCountingJob("autotrade", nil)
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("autotrade"))
	waitDone(t, job)
	require.Eventually(t, func() bool {
		return s.GetJobStats()["autotrade"].TotalRuns == 1
	}, 2*time.Second, 10*time.Millisecond)

	moved := newCountingJob("autotrade", nil)
	moved.schedule = "0 30 15 * * 1-5"
	require.NoError(t, s.ReplaceJob(moved))

	stats := s.GetJobStats()["autotrade"]
	assert.Equal(t, "0 30 15 * * 1-5", stats.Schedule)
	assert.Equal(t, 1, stats.TotalRuns)
	assert.True(t, s.HasJob("autotrade"))
}
