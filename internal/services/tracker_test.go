package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingest-api/cmd/defines"
	"ingest-api/internal/models"
)

func trackedJob(id string) TrackedJob {
	return TrackedJob{Handle: models.JobHandle{JobID: id}, Destination: "vector"}
}

func TestTrackerRecordsResult(t *testing.T) {
	tracker, err := NewJobTracker(2)
	require.NoError(t, err)
	defer tracker.Stop()

	done := make(chan models.JobResult, 1)
	err = tracker.Track(trackedJob("job-1"), func(context.Context) models.JobResult {
		return models.JobResult{JobID: "job-1", Status: defines.JobStatusCompleted, ElapsedSeconds: 4}
	}, func(r models.JobResult) { done <- r })
	require.NoError(t, err)

	select {
	case r := <-done:
		assert.Equal(t, defines.JobStatusCompleted, r.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("tracked job never finished")
	}

	job, ok := tracker.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, defines.JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
	require.NotNil(t, job.Result)
	assert.Equal(t, 4, job.Result.ElapsedSeconds)
}

func TestTrackerRejectsWhenFull(t *testing.T) {
	tracker, err := NewJobTracker(1)
	require.NoError(t, err)
	defer tracker.Stop()

	block := func(ctx context.Context) models.JobResult {
		<-ctx.Done()
		return models.JobResult{JobID: "busy", Status: defines.JobStatusTimeout}
	}
	require.NoError(t, tracker.Track(trackedJob("busy"), block, nil))

	err = tracker.Track(trackedJob("overflow"), block, nil)

	assert.Error(t, err)
	_, ok := tracker.Get("overflow")
	assert.False(t, ok)
}

func TestTrackerStopCancelsLoops(t *testing.T) {
	tracker, err := NewJobTracker(1)
	require.NoError(t, err)

	require.NoError(t, tracker.Track(trackedJob("job-1"), func(ctx context.Context) models.JobResult {
		<-ctx.Done()
		return models.JobResult{JobID: "job-1", Status: defines.JobStatusTimeout}
	}, nil))

	tracker.Stop()

	job, ok := tracker.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, defines.JobStatusTimeout, job.Status)
}

func TestCleanupOldJobsKeepsRunningJobs(t *testing.T) {
	tracker, err := NewJobTracker(2)
	require.NoError(t, err)
	defer tracker.Stop()

	finished := time.Now().Add(-2 * time.Hour)
	tracker.jobs["old"] = &TrackedJob{Status: defines.JobStatusCompleted, CompletedAt: &finished}
	tracker.jobs["running"] = &TrackedJob{Status: defines.JobStatusPolling}

	removed := tracker.CleanupOldJobs(time.Hour)

	assert.Equal(t, 1, removed)
	_, ok := tracker.Get("running")
	assert.True(t, ok)
}

func TestGetAllJobsNewestFirst(t *testing.T) {
	tracker, err := NewJobTracker(2)
	require.NoError(t, err)
	defer tracker.Stop()

	now := time.Now()
	tracker.jobs["a"] = &TrackedJob{Handle: models.JobHandle{JobID: "a"}, CreatedAt: now.Add(-time.Minute)}
	tracker.jobs["b"] = &TrackedJob{Handle: models.JobHandle{JobID: "b"}, CreatedAt: now}

	jobs := tracker.GetAllJobs()

	require.Len(t, jobs, 2)
	assert.Equal(t, "b", jobs[0].Handle.JobID)
}
