package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ingest-api/cmd/defines"
	"ingest-api/internal/models"
	"ingest-api/pkg/postgres"
)

// ErrJobNotFound is returned when the ledger has no row for a job id
var ErrJobNotFound = errors.New("ingest job not found")

// IngestJob is one submission recorded in the ingest_jobs ledger
type IngestJob struct {
	ID             uuid.UUID         `json:"id"`
	JobID          string            `json:"job_id"`
	WorkflowID     string            `json:"workflow_id"`
	WorkflowName   string            `json:"workflow_name"`
	Destination    string            `json:"destination"`
	Namespace      *string           `json:"namespace,omitempty"`
	SourceLocation string            `json:"source_location"`
	Strategy       string            `json:"strategy"`
	WebhookURL     *string           `json:"webhook_url,omitempty"`
	Status         defines.JobStatus `json:"status"`
	ErrorMessage   *string           `json:"error,omitempty"`
	ElapsedSeconds *int              `json:"elapsed_seconds,omitempty"`
	SubmittedAt    time.Time         `json:"submitted_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Result returns the terminal result, or false while the job is not terminal
func (j *IngestJob) Result() (models.JobResult, bool) {
	if !j.Status.IsTerminal() {
		return models.JobResult{}, false
	}
	result := models.JobResult{JobID: j.JobID, Status: j.Status}
	if j.ElapsedSeconds != nil {
		result.ElapsedSeconds = *j.ElapsedSeconds
	}
	if j.ErrorMessage != nil {
		result.Error = *j.ErrorMessage
	}
	return result, true
}

// JobRepository handles ingest_jobs database operations
type JobRepository struct {
	db *postgres.DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *postgres.DB) *JobRepository {
	return &JobRepository{db: db}
}

// CreateSchema creates the ingest_jobs table if it doesn't exist
func (r *JobRepository) CreateSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ingest_jobs (
			id UUID PRIMARY KEY,
			job_id VARCHAR(255) NOT NULL UNIQUE,
			workflow_id VARCHAR(255) NOT NULL,
			workflow_name VARCHAR(255) NOT NULL,
			destination VARCHAR(32) NOT NULL,
			namespace VARCHAR(255),
			source_location TEXT NOT NULL,
			strategy VARCHAR(32) NOT NULL,
			webhook_url TEXT,
			status VARCHAR(32) NOT NULL,
			error_message TEXT,
			elapsed_seconds INTEGER,
			submitted_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ DEFAULT NOW() NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_ingest_jobs_status ON ingest_jobs(status);
		CREATE INDEX IF NOT EXISTS idx_ingest_jobs_submitted_at ON ingest_jobs(submitted_at DESC);
	`

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create ingest_jobs schema: %w", err)
	}
	return nil
}

// Create records a freshly submitted job
func (r *JobRepository) Create(ctx context.Context, job *IngestJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = defines.JobStatusSubmitted
	}

	query := `
		INSERT INTO ingest_jobs (id, job_id, workflow_id, workflow_name, destination, namespace,
		                         source_location, strategy, webhook_url, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		job.ID,
		job.JobID,
		job.WorkflowID,
		job.WorkflowName,
		job.Destination,
		job.Namespace,
		job.SourceLocation,
		job.Strategy,
		job.WebhookURL,
		job.Status,
		job.SubmittedAt,
	).Scan(&job.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create ingest job: %w", err)
	}
	return nil
}

// MarkPolling moves a submitted job to polling
func (r *JobRepository) MarkPolling(ctx context.Context, jobID string) error {
	query := `
		UPDATE ingest_jobs
		SET status = $1, updated_at = NOW()
		WHERE job_id = $2 AND status = $3
	`
	if _, err := r.db.Exec(ctx, query, defines.JobStatusPolling, jobID, defines.JobStatusSubmitted); err != nil {
		return fmt.Errorf("failed to mark ingest job polling: %w", err)
	}
	return nil
}

// Complete stores a terminal result. Rows already settled are left alone; a
// timeout row is replaced once the remote job finishes.
func (r *JobRepository) Complete(ctx context.Context, result models.JobResult) error {
	var errMsg *string
	if result.Error != "" {
		errMsg = &result.Error
	}

	query := `
		UPDATE ingest_jobs
		SET status = $1, error_message = $2, elapsed_seconds = $3, completed_at = NOW(), updated_at = NOW()
		WHERE job_id = $4 AND status NOT IN ($5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		result.Status,
		errMsg,
		result.ElapsedSeconds,
		result.JobID,
		defines.JobStatusCompleted,
		defines.JobStatusFailed,
	)
	if err != nil {
		return fmt.Errorf("failed to complete ingest job: %w", err)
	}
	return nil
}

const jobColumns = `id, job_id, workflow_id, workflow_name, destination, namespace, source_location,
	strategy, webhook_url, status, error_message, elapsed_seconds, submitted_at, completed_at, updated_at`

func scanJob(row pgx.Row) (*IngestJob, error) {
	job := &IngestJob{}
	err := row.Scan(
		&job.ID,
		&job.JobID,
		&job.WorkflowID,
		&job.WorkflowName,
		&job.Destination,
		&job.Namespace,
		&job.SourceLocation,
		&job.Strategy,
		&job.WebhookURL,
		&job.Status,
		&job.ErrorMessage,
		&job.ElapsedSeconds,
		&job.SubmittedAt,
		&job.CompletedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// GetByJobID retrieves a job by its remote job id
func (r *JobRepository) GetByJobID(ctx context.Context, jobID string) (*IngestJob, error) {
	query := `SELECT ` + jobColumns + ` FROM ingest_jobs WHERE job_id = $1`

	job, err := scanJob(r.db.QueryRow(ctx, query, jobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ingest job: %w", err)
	}
	return job, nil
}

// List returns jobs newest first
func (r *JobRepository) List(ctx context.Context, limit, offset int) ([]*IngestJob, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `SELECT ` + jobColumns + ` FROM ingest_jobs ORDER BY submitted_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingest jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*IngestJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ingest job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
