package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	fylogger "github.com/FyersDev/trading-logger-go"

	"ingest-api/cmd/defines"
	"ingest-api/internal/models"
	"ingest-api/pkg/errors"
)

const defaultPollInterval = time.Second

// IngestionClient is the subset of the remote platform the orchestrator drives
type IngestionClient interface {
	CreateSource(ctx context.Context, cfg models.ConnectorConfig) (string, error)
	CreateDestination(ctx context.Context, cfg models.ConnectorConfig) (string, error)
	CreateWorkflow(ctx context.Context, name, sourceID, destinationID string, nodes []models.Node) (string, error)
	RunWorkflow(ctx context.Context, workflowID string) (string, error)
	GetJob(ctx context.Context, jobID string) (models.RemoteJob, error)
}

// Orchestrator submits ingestion workflows and tracks them to a terminal state.
// It keeps no state between calls, so one value may serve concurrent requests.
type Orchestrator struct {
	client   IngestionClient
	notifier *Notifier
	opts     PipelineOptions
	now      func() time.Time
}

// New creates an orchestrator bound to one ingestion client
func New(client IngestionClient, notifier *Notifier, opts PipelineOptions) *Orchestrator {
	return &Orchestrator{
		client:   client,
		notifier: notifier,
		opts:     opts,
		now:      time.Now,
	}
}

// Submit validates req, builds its workflow and starts one run of it.
// Remote calls happen in order: source, destination, workflow, run. The first
// failure aborts the submission; nothing already created is retried or removed.
func (o *Orchestrator) Submit(ctx context.Context, req ProcessingRequest) (models.JobHandle, error) {
	if err := req.Validate(); err != nil {
		return models.JobHandle{}, err
	}

	var namespace string
	if req.Destination.UsesNamespace() {
		namespace = DeriveNamespace(req.SourceLocation)
	}

	spec := BuildWorkflow(req, o.opts, o.now())

	sourceID, err := o.client.CreateSource(ctx, sourceConnector(spec.Name+"-source", req))
	if err != nil {
		return models.JobHandle{}, errors.NewSubmissionError("create source connector", err)
	}

	destinationID, err := o.client.CreateDestination(ctx, req.Destination.ConnectorConfig(spec.Name+"-destination", namespace))
	if err != nil {
		return models.JobHandle{}, errors.NewSubmissionError("create destination connector", err)
	}

	spec = spec.WithConnectors(sourceID, destinationID)

	workflowID, err := o.client.CreateWorkflow(ctx, spec.Name, spec.SourceConnectorRef, spec.DestinationConnectorRef, spec.Nodes)
	if err != nil {
		return models.JobHandle{}, errors.NewSubmissionError("create workflow", err)
	}

	jobID, err := o.client.RunWorkflow(ctx, workflowID)
	if err != nil {
		return models.JobHandle{}, errors.NewSubmissionError("run workflow", err)
	}

	handle := models.JobHandle{
		JobID:        jobID,
		WorkflowID:   workflowID,
		WorkflowName: spec.Name,
		Namespace:    namespace,
		SubmittedAt:  o.now().UTC(),
	}

	fylogger.InfoLog(ctx, "ingestion job submitted", map[string]interface{}{
		"job_id":      handle.JobID,
		"workflow_id": handle.WorkflowID,
		"destination": string(req.Destination.Kind()),
		"strategy":    string(req.Strategy),
		"nodes":       spec.NodeKinds(),
	})

	return handle, nil
}

// AwaitCompletion polls the job until it reaches a terminal status or maxWait
// has elapsed. The first status check happens immediately, so maxWait of zero
// checks exactly once. Failed checks are logged and polling continues until the
// deadline. A cancelled ctx stops local waiting and yields a timeout result.
func (o *Orchestrator) AwaitCompletion(ctx context.Context, handle models.JobHandle, maxWait, pollInterval time.Duration) models.JobResult {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	start := o.now()

	for {
		job, err := o.client.GetJob(ctx, handle.JobID)
		if err != nil {
			fylogger.ErrorLog(ctx, "job status check failed, will retry", err, map[string]interface{}{
				"job_id": handle.JobID,
			})
		} else if status, done := TerminalStatus(job.Status); done {
			result := models.JobResult{
				JobID:          handle.JobID,
				Status:         status,
				ElapsedSeconds: elapsedSeconds(o.now().Sub(start)),
			}
			if status == defines.JobStatusFailed {
				result.Error = job.ErrorMessage()
			}
			return result
		}

		remaining := maxWait - o.now().Sub(start)
		if remaining <= 0 {
			return o.timeout(handle, start)
		}

		wait := pollInterval
		if remaining < wait {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return o.timeout(handle, start)
		case <-timer.C:
		}
	}
}

// Notify posts result to webhookURL; see Notifier.Notify
func (o *Orchestrator) Notify(ctx context.Context, webhookURL string, result models.JobResult, fields map[string]any) {
	if o.notifier == nil {
		return
	}
	o.notifier.Notify(ctx, webhookURL, result, fields)
}

func (o *Orchestrator) timeout(handle models.JobHandle, start time.Time) models.JobResult {
	elapsed := o.now().Sub(start)
	return models.JobResult{
		JobID:          handle.JobID,
		Status:         defines.JobStatusTimeout,
		ElapsedSeconds: elapsedSeconds(elapsed),
		Error:          fmt.Sprintf("job did not finish within %s", elapsed.Round(time.Second)),
	}
}

// TerminalStatus maps a remote status onto a local one; done is false while
// the remote job is still running
func TerminalStatus(remote string) (defines.JobStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(remote)) {
	case "completed", "success":
		return defines.JobStatusCompleted, true
	case "failed", "error":
		return defines.JobStatusFailed, true
	}
	return defines.JobStatusPolling, false
}

func elapsedSeconds(d time.Duration) int {
	return int(d.Round(time.Second) / time.Second)
}
