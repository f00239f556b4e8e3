package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	fylogger "github.com/FyersDev/trading-logger-go"
	"github.com/panjf2000/ants/v2"

	"ingest-api/cmd/defines"
	"ingest-api/internal/models"
)

// TrackedJob is a job followed in the background after its handle was returned
type TrackedJob struct {
	Handle         models.JobHandle  `json:"handle"`
	Destination    string            `json:"destination"`
	SourceLocation string            `json:"source_location"`
	Status         defines.JobStatus `json:"status"`
	Result         *models.JobResult `json:"result,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
}

// TrackFunc polls one job to a terminal result
type TrackFunc func(ctx context.Context) models.JobResult

// JobTracker runs background poll loops on a bounded goroutine pool and keeps
// their latest state in memory
type JobTracker struct {
	pool   *ants.Pool
	jobs   map[string]*TrackedJob
	jobsMu sync.RWMutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewJobTracker creates a tracker running at most size loops at once
func NewJobTracker(size int) (*JobTracker, error) {
	if size <= 0 {
		size = 256
	}

	pool, err := ants.NewPool(size, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create tracker pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &JobTracker{
		pool:   pool,
		jobs:   make(map[string]*TrackedJob),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Track starts fn in the background for job. It fails when every pool worker is busy.
func (t *JobTracker) Track(job TrackedJob, fn TrackFunc, onDone func(models.JobResult)) error {
	job.Status = defines.JobStatusPolling
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	jobID := job.Handle.JobID

	t.jobsMu.Lock()
	t.jobs[jobID] = &job
	t.jobsMu.Unlock()

	t.wg.Add(1)
	err := t.pool.Submit(func() {
		defer t.wg.Done()

		result := fn(t.ctx)
		t.complete(jobID, result)

		if onDone != nil {
			onDone(result)
		}
	})
	if err != nil {
		t.wg.Done()
		t.jobsMu.Lock()
		delete(t.jobs, jobID)
		t.jobsMu.Unlock()
		return fmt.Errorf("job tracker is full, job %s will not be followed: %w", jobID, err)
	}

	fylogger.InfoLog(t.ctx, "tracking job in background", map[string]interface{}{
		"job_id":  jobID,
		"running": t.pool.Running(),
	})
	return nil
}

func (t *JobTracker) complete(jobID string, result models.JobResult) {
	t.jobsMu.Lock()
	defer t.jobsMu.Unlock()

	job, exists := t.jobs[jobID]
	if !exists || job.Status.IsSettled() {
		return
	}
	now := time.Now()
	job.Status = result.Status
	job.Result = &result
	job.CompletedAt = &now
}

// Settle records a final result learned after local tracking gave up
func (t *JobTracker) Settle(result models.JobResult) {
	t.complete(result.JobID, result)
}

// Get returns a snapshot of one tracked job
func (t *JobTracker) Get(jobID string) (TrackedJob, bool) {
	t.jobsMu.RLock()
	defer t.jobsMu.RUnlock()

	job, exists := t.jobs[jobID]
	if !exists {
		return TrackedJob{}, false
	}
	return *job, true
}

// GetAllJobs returns snapshots of every tracked job, newest first
func (t *JobTracker) GetAllJobs() []TrackedJob {
	t.jobsMu.RLock()
	defer t.jobsMu.RUnlock()

	jobs := make([]TrackedJob, 0, len(t.jobs))
	for _, job := range t.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs
}

// CleanupOldJobs removes terminal jobs that finished more than maxAge ago
func (t *JobTracker) CleanupOldJobs(maxAge time.Duration) int {
	t.jobsMu.Lock()
	defer t.jobsMu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, job := range t.jobs {
		if job.Status.IsTerminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(t.jobs, id)
			removed++
		}
	}

	return removed
}

// RunCleanup prunes finished jobs every interval until the tracker stops
func (t *JobTracker) RunCleanup(interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.ctx.Done():
				return
			case <-ticker.C:
				if removed := t.CleanupOldJobs(maxAge); removed > 0 {
					fylogger.InfoLog(t.ctx, fmt.Sprintf("Removed %d finished jobs from tracker", removed), nil)
				}
			}
		}
	}()
}

// Stop cancels every running poll loop and waits for them to return.
// Cancelled loops finish with a timeout result; the remote jobs keep running.
func (t *JobTracker) Stop() {
	t.cancel()
	t.wg.Wait()
	t.pool.Release()
	fylogger.InfoLog(context.Background(), "Job tracker stopped", nil)
}
