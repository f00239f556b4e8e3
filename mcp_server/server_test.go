package mcp_server

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingest-api/cmd/defines"
	"ingest-api/internal/models"
	"ingest-api/internal/services"
	"ingest-api/pkg/errors"
)

type fakeIngestion struct {
	kind defines.DestinationKind
	body models.IngestRequest
	err  error
}

func (f *fakeIngestion) Ingest(_ context.Context, kind defines.DestinationKind, body models.IngestRequest) (*services.IngestOutcome, error) {
	f.kind, f.body = kind, body
	if f.err != nil {
		return nil, f.err
	}
	return &services.IngestOutcome{Handle: models.JobHandle{JobID: "job-1"}, Tracking: true}, nil
}

func (f *fakeIngestion) GetJob(_ context.Context, jobID, _ string) (*services.JobView, error) {
	return &services.JobView{JobID: jobID, Status: defines.JobStatusCompleted, Source: "ledger"}, nil
}

func (f *fakeIngestion) ListWorkflows(context.Context, string) ([]models.WorkflowInfo, error) {
	return []models.WorkflowInfo{{ID: "wf-1"}}, nil
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestIngestDocumentsTool(t *testing.T) {
	ingestion := &fakeIngestion{}
	s := NewMCPServer(ingestion)

	result, err := s.HandleIngestDocuments(context.Background(), callRequest(map[string]interface{}{
		"destination":         "vector",
		"source_location":     "s3://bucket/clients/acme/",
		"provider":            "weaviate",
		"wait_for_completion": false,
	}))

	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, defines.DestinationVectorStore, ingestion.kind)
	assert.Equal(t, "s3://bucket/clients/acme/", ingestion.body.SourceLocation)
	assert.Equal(t, "weaviate", ingestion.body.Provider)
	require.NotNil(t, ingestion.body.WaitForCompletion)
	assert.False(t, *ingestion.body.WaitForCompletion)
	assert.Contains(t, resultText(t, result), `"job_id": "job-1"`)
}

func TestIngestDocumentsToolErrors(t *testing.T) {
	s := NewMCPServer(&fakeIngestion{err: errors.NewValidationError([]string{"aws_key"}, nil)})

	result, err := s.HandleIngestDocuments(context.Background(), callRequest(map[string]interface{}{
		"destination": "nowhere",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.HandleIngestDocuments(context.Background(), callRequest(map[string]interface{}{
		"destination":     "object",
		"source_location": "s3://bucket/a/",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "aws_key")
}

func TestGetIngestionJobTool(t *testing.T) {
	s := NewMCPServer(&fakeIngestion{})

	result, err := s.HandleGetIngestionJob(context.Background(), callRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.HandleGetIngestionJob(context.Background(), callRequest(map[string]interface{}{"job_id": "job-3"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), `"status": "completed"`)
}
