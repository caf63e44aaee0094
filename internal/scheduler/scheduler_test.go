package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	runs     atomic.Int32
	err      error
	failures int32 // fail this many runs, then succeed
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }

func (j *fakeJob) Run(ctx context.Context) error {
	n := j.runs.Add(1)
	if j.err != nil && (j.failures == 0 || n <= j.failures) {
		return j.err
	}
	return nil
}

func newTestScheduler() *Scheduler {
	s := New(logger.NewNop())
	s.retryDelay = time.Millisecond
	return s
}

func TestScheduler_AddJob(t *testing.T) {
	s := newTestScheduler()

	job := &fakeJob{name: "daily_bars", schedule: "0 30 16 * * 1-5"}
	require.NoError(t, s.AddJob(job))

	err := s.AddJob(&fakeJob{name: "daily_bars", schedule: "0 0 17 * * *"})
	assert.Error(t, err, "duplicate name must be rejected")

	err = s.AddJob(&fakeJob{name: "broken", schedule: "not a cron expr"})
	assert.Error(t, err)

	assert.Equal(t, []string{"daily_bars"}, s.GetAllJobs())
}

func TestScheduler_RunJobUnknown(t *testing.T) {
	s := newTestScheduler()
	assert.Error(t, s.RunJob("nope"))
}

func TestScheduler_RunJobRecordsHistory(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "ok", schedule: "0 0 3 * * *"}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	history, err := s.GetJobHistory("ok")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	result := history.Results[0]
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, "ok", result.JobName)
	assert.Equal(t, 1.0, history.GetSuccessRate())
}

func TestScheduler_RetriesThenSucceeds(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{
		name:     "flaky",
		schedule: "0 0 3 * * *",
		err:      errors.New("transient"),
		failures: 2,
	}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.True(t, history.Results[0].Success)
	assert.Equal(t, 3, history.Results[0].Attempts)
	assert.Equal(t, int32(3), job.runs.Load())
}

func TestScheduler_ExhaustedRetriesFail(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{
		name:     "down",
		schedule: "0 0 3 * * *",
		err:      errors.New("provider offline"),
	}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	history, err := s.GetJobHistory("down")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	result := history.Results[0]
	assert.False(t, result.Success)
	assert.Equal(t, 4, result.Attempts, "initial attempt plus three retries")
	assert.Contains(t, result.Error, "provider offline")

	failed := history.GetFailedResults()
	assert.Len(t, failed, 1)
	assert.Equal(t, 0.0, history.GetSuccessRate())
}

func TestScheduler_GetJobStats(t *testing.T) {
	s := newTestScheduler()
	good := &fakeJob{name: "good", schedule: "0 0 3 * * *"}
	bad := &fakeJob{name: "bad", schedule: "0 0 4 * * *", err: errors.New("boom")}
	require.NoError(t, s.AddJob(good))
	require.NoError(t, s.AddJob(bad))

	s.runJob(good)
	s.runJob(good)
	s.runJob(bad)

	stats := s.GetJobStats()
	require.Contains(t, stats, "good")
	require.Contains(t, stats, "bad")

	assert.Equal(t, 2, stats["good"].TotalRuns)
	assert.Equal(t, 2, stats["good"].SuccessCount)
	assert.Equal(t, 1.0, stats["good"].SuccessRate)
	assert.NotNil(t, stats["good"].LastSuccess)
	assert.Nil(t, stats["good"].LastFailure)

	assert.Equal(t, 1, stats["bad"].TotalRuns)
	assert.Equal(t, 1, stats["bad"].FailureCount)
	assert.NotNil(t, stats["bad"].LastFailure)
	assert.Nil(t, stats["bad"].LastSuccess)
}

func TestScheduler_RemoveJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&fakeJob{name: "tmp", schedule: "0 0 3 * * *"}))
	require.NoError(t, s.RemoveJob("tmp"))
	assert.Error(t, s.RemoveJob("tmp"))

	_, err := s.GetJobHistory("tmp")
	assert.Error(t, err)
}

func TestJobHistory_Window(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < historyLimit+20; i++ {
		h.AddResult(JobResult{
			JobName: "x",
			Success: i%2 == 0,
			Error:   fmt.Sprintf("run %d", i),
		})
	}

	if len(h.Results) != historyLimit {
		t.Fatalf("expected window of %d, got %d", historyLimit, len(h.Results))
	}

	latest := h.GetLatestResults(3)
	if len(latest) != 3 {
		t.Fatalf("expected 3 latest, got %d", len(latest))
	}
	if latest[2].Error != fmt.Sprintf("run %d", historyLimit+19) {
		t.Fatalf("latest result out of order: %s", latest[2].Error)
	}

	if got := h.GetLatestResults(0); len(got) != 0 {
		t.Fatalf("expected empty slice for n=0, got %d", len(got))
	}
	if got := h.GetLatestResults(10000); len(got) != historyLimit {
		t.Fatalf("n beyond window should clamp, got %d", len(got))
	}
}
