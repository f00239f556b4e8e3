package orchestrator

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingest-api/cmd/defines"
	"ingest-api/internal/destinations"
	"ingest-api/internal/models"
	"ingest-api/pkg/errors"
)

type statusReply struct {
	job models.RemoteJob
	err error
}

// fakeClient records every remote call and replays scripted job statuses
type fakeClient struct {
	mu sync.Mutex

	calls       []string
	source      models.ConnectorConfig
	destination models.ConnectorConfig
	nodes       []models.Node

	failOn   string
	statuses []statusReply
	getCalls int
}

func (f *fakeClient) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.failOn == call {
		return stderrors.New(call + " refused")
	}
	return nil
}

func (f *fakeClient) CreateSource(_ context.Context, cfg models.ConnectorConfig) (string, error) {
	f.source = cfg
	return "src-1", f.record("source")
}

func (f *fakeClient) CreateDestination(_ context.Context, cfg models.ConnectorConfig) (string, error) {
	f.destination = cfg
	return "dst-1", f.record("destination")
}

func (f *fakeClient) CreateWorkflow(_ context.Context, _, sourceID, destinationID string, nodes []models.Node) (string, error) {
	f.nodes = nodes
	return "wf-1", f.record("workflow")
}

func (f *fakeClient) RunWorkflow(_ context.Context, workflowID string) (string, error) {
	return "job-1", f.record("run")
}

func (f *fakeClient) GetJob(_ context.Context, jobID string) (models.RemoteJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if len(f.statuses) == 0 {
		return models.RemoteJob{ID: jobID, Status: "IN_PROGRESS"}, nil
	}
	reply := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return reply.job, reply.err
}

func (f *fakeClient) statusChecks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls
}

func vectorRequest(source string) ProcessingRequest {
	return ProcessingRequest{
		SourceLocation:    source,
		SourceCredentials: models.SourceCredentials{AccessKey: "AKIA", SecretKey: "secret"},
		IngestionAPIKey:   "unstructured",
		Destination: destinations.VectorStore{
			Provider:  defines.VectorProviderPinecone,
			APIKey:    "pc",
			IndexName: "docs",
		},
		Strategy:          defines.StrategyHiRes,
		WaitForCompletion: true,
	}
}

func relationalRequest(source string) ProcessingRequest {
	req := vectorRequest(source)
	req.Destination = destinations.Relational{Host: "db", Port: 5432, Password: "pw", TableName: "elements"}
	return req
}

func testOptions() PipelineOptions {
	return PipelineOptions{
		EmbeddingProvider:  "openai",
		EmbeddingModel:     "text-embedding-3-large",
		EmbeddingDimension: 3072,
		EnrichmentModel:    "gpt-4o",
	}
}

func TestSubmitCallsRemoteInOrder(t *testing.T) {
	client := &fakeClient{}
	o := New(client, nil, testOptions())

	handle, err := o.Submit(context.Background(), vectorRequest("s3://bucket/clients/acme/"))

	require.NoError(t, err)
	assert.Equal(t, []string{"source", "destination", "workflow", "run"}, client.calls)
	assert.Equal(t, "job-1", handle.JobID)
	assert.Equal(t, "wf-1", handle.WorkflowID)
	assert.Equal(t, "clients-acme", handle.Namespace)
	assert.False(t, handle.SubmittedAt.IsZero())
	assert.Equal(t, "s3://bucket/clients/acme/", client.source.Config["remote_url"])
	assert.Equal(t, "clients-acme", client.destination.Config["namespace"])
}

func TestSubmitFailureIsSubmissionError(t *testing.T) {
	for _, step := range []string{"source", "destination", "workflow", "run"} {
		t.Run(step, func(t *testing.T) {
			client := &fakeClient{failOn: step}
			o := New(client, nil, testOptions())

			_, err := o.Submit(context.Background(), vectorRequest("s3://bucket/a/"))

			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrSubmission)
			assert.Equal(t, step, client.calls[len(client.calls)-1], "no call may follow the failed one")
		})
	}
}

func TestSubmitRejectsInvalidStrategyBeforeRemoteCalls(t *testing.T) {
	client := &fakeClient{}
	o := New(client, nil, testOptions())
	req := vectorRequest("s3://bucket/a/")
	req.Strategy = "turbo"

	_, err := o.Submit(context.Background(), req)

	assert.ErrorIs(t, err, errors.ErrValidation)
	assert.Empty(t, client.calls)
}

func TestSubmitNodeOrder(t *testing.T) {
	t.Run("relational", func(t *testing.T) {
		client := &fakeClient{}
		_, err := New(client, nil, testOptions()).Submit(context.Background(), relationalRequest("s3://bucket/a/"))
		require.NoError(t, err)
		assert.Equal(t, []string{"partition", "chunk"}, models.WorkflowSpec{Nodes: client.nodes}.NodeKinds())
	})

	t.Run("vector with enrich", func(t *testing.T) {
		client := &fakeClient{}
		req := vectorRequest("s3://bucket/a/")
		req.Enrich = true
		_, err := New(client, nil, testOptions()).Submit(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, []string{"partition", "chunk", "enrich", "enrich", "embed"}, models.WorkflowSpec{Nodes: client.nodes}.NodeKinds())
	})
}

func TestAwaitCompletionMaxWaitZeroChecksOnce(t *testing.T) {
	client := &fakeClient{}
	o := New(client, nil, testOptions())

	result := o.AwaitCompletion(context.Background(), models.JobHandle{JobID: "job-1"}, 0, time.Hour)

	assert.Equal(t, defines.JobStatusTimeout, result.Status)
	assert.Equal(t, 1, client.statusChecks())
}

func TestAwaitCompletionReturnsAsSoonAsCompleted(t *testing.T) {
	client := &fakeClient{statuses: []statusReply{
		{job: models.RemoteJob{Status: "IN_PROGRESS"}},
		{job: models.RemoteJob{Status: "COMPLETED"}},
	}}
	o := New(client, nil, testOptions())

	start := time.Now()
	result := o.AwaitCompletion(context.Background(), models.JobHandle{JobID: "job-1"}, time.Minute, 10*time.Millisecond)

	assert.Equal(t, defines.JobStatusCompleted, result.Status)
	assert.Equal(t, "job-1", result.JobID)
	assert.Empty(t, result.Error)
	assert.Equal(t, 2, client.statusChecks())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestAwaitCompletionTerminalStatuses(t *testing.T) {
	tests := []struct {
		remote string
		want   defines.JobStatus
	}{
		{"completed", defines.JobStatusCompleted},
		{"SUCCESS", defines.JobStatusCompleted},
		{"Failed", defines.JobStatusFailed},
		{"error", defines.JobStatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			client := &fakeClient{statuses: []statusReply{{job: models.RemoteJob{Status: tt.remote, Error: "bad file"}}}}
			result := New(client, nil, testOptions()).AwaitCompletion(context.Background(), models.JobHandle{JobID: "j"}, time.Second, time.Millisecond)
			assert.Equal(t, tt.want, result.Status)
			if tt.want == defines.JobStatusFailed {
				assert.Equal(t, "bad file", result.Error)
			}
		})
	}
}

func TestTerminalStatus(t *testing.T) {
	status, done := TerminalStatus(" COMPLETED\n")
	assert.True(t, done)
	assert.Equal(t, defines.JobStatusCompleted, status)

	status, done = TerminalStatus("IN_PROGRESS")
	assert.False(t, done)
	assert.Equal(t, defines.JobStatusPolling, status)
}

func TestAwaitCompletionToleratesTransientFailure(t *testing.T) {
	client := &fakeClient{statuses: []statusReply{
		{err: stderrors.New("connection reset")},
		{job: models.RemoteJob{Status: "COMPLETED"}},
	}}
	o := New(client, nil, testOptions())

	result := o.AwaitCompletion(context.Background(), models.JobHandle{JobID: "job-1"}, time.Minute, 10*time.Millisecond)

	assert.Equal(t, defines.JobStatusCompleted, result.Status)
	assert.Equal(t, 2, client.statusChecks())
}

func TestAwaitCompletionTimesOut(t *testing.T) {
	client := &fakeClient{}
	o := New(client, nil, testOptions())

	result := o.AwaitCompletion(context.Background(), models.JobHandle{JobID: "job-1"}, 50*time.Millisecond, 10*time.Millisecond)

	assert.Equal(t, defines.JobStatusTimeout, result.Status)
	assert.GreaterOrEqual(t, client.statusChecks(), 2)
	assert.NotEmpty(t, result.Error)
}

func TestAwaitCompletionStopsOnCancel(t *testing.T) {
	client := &fakeClient{}
	o := New(client, nil, testOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := o.AwaitCompletion(ctx, models.JobHandle{JobID: "job-1"}, time.Hour, time.Hour)

	assert.Equal(t, defines.JobStatusTimeout, result.Status)
	assert.Equal(t, 1, client.statusChecks())
}

func TestEndToEndVectorIngestion(t *testing.T) {
	client := &fakeClient{statuses: []statusReply{
		{job: models.RemoteJob{Status: "SCHEDULED"}},
		{job: models.RemoteJob{Status: "IN_PROGRESS"}},
		{job: models.RemoteJob{Status: "COMPLETED"}},
	}}
	o := New(client, nil, testOptions())

	handle, err := o.Submit(context.Background(), vectorRequest("s3://bucket/clients/acme/"))
	require.NoError(t, err)
	result := o.AwaitCompletion(context.Background(), handle, time.Minute, 5*time.Millisecond)

	assert.Equal(t, "clients-acme", handle.Namespace)
	require.Len(t, client.nodes, 3)
	assert.Equal(t, defines.NodeKindPartition, client.nodes[0].Kind)
	assert.Equal(t, "hi_res", client.nodes[0].Settings["strategy"])
	assert.Contains(t, client.nodes[0].Settings["metadata_includes"], "page_number")
	assert.Equal(t, defines.NodeKindChunk, client.nodes[1].Kind)
	assert.Equal(t, "chunk_by_title", client.nodes[1].Subtype)
	assert.Equal(t, defines.NodeKindEmbed, client.nodes[2].Kind)
	assert.Equal(t, defines.JobStatusCompleted, result.Status)
	assert.GreaterOrEqual(t, result.ElapsedSeconds, 0)
}
