package unstructured

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingest-api/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/api/v1", PartitionURL: srv.URL + "/general"}, "test-key")
}

func TestCreateSourceSendsConnectorConfig(t *testing.T) {
	var got models.ConnectorConfig
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/sources/", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("unstructured-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"src-1"}`))
	})

	id, err := client.CreateSource(context.Background(), models.ConnectorConfig{
		Name:   "source",
		Type:   "s3",
		Config: map[string]any{"remote_url": "s3://bucket/a/"},
	})

	require.NoError(t, err)
	assert.Equal(t, "src-1", id)
	assert.Equal(t, "s3", got.Type)
	assert.Equal(t, "s3://bucket/a/", got.Config["remote_url"])
}

func TestCreateWorkflowBody(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/workflows/", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"wf-1"}`))
	})

	id, err := client.CreateWorkflow(context.Background(), "wf", "src", "dst", []models.Node{
		{Name: "Partitioner", Kind: "partition", Subtype: "unstructured_api"},
	})

	require.NoError(t, err)
	assert.Equal(t, "wf-1", id)
	assert.Equal(t, "custom", got["workflow_type"])
	assert.Equal(t, "src", got["source_id"])
	assert.Equal(t, "dst", got["destination_id"])
	nodes := got["workflow_nodes"].([]any)
	require.Len(t, nodes, 1)
	assert.Equal(t, "partition", nodes[0].(map[string]any)["type"])
}

func TestRunWorkflowAndGetJob(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/workflows/wf-1/run":
			assert.Equal(t, http.MethodPost, r.Method)
			_, _ = w.Write([]byte(`{"id":"job-1","workflow_id":"wf-1","status":"SCHEDULED"}`))
		case "/api/v1/jobs/job-1":
			assert.Equal(t, http.MethodGet, r.Method)
			_, _ = w.Write([]byte(`{"id":"job-1","workflow_id":"wf-1","status":"COMPLETED"}`))
		default:
			http.NotFound(w, r)
		}
	})

	jobID, err := client.RunWorkflow(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)

	job, err := client.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", job.Status)
	assert.Equal(t, "wf-1", job.WorkflowID)
}

func TestJobIDIsEscapedIntoPath(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/jobs/a%2Fb%3Fx=1", r.URL.EscapedPath())
		assert.Empty(t, r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"id":"a/b?x=1","status":"IN_PROGRESS"}`))
	})

	job, err := client.GetJob(context.Background(), "a/b?x=1")

	require.NoError(t, err)
	assert.Equal(t, "IN_PROGRESS", job.Status)
}

func TestNon2xxIsAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"bad config"}`))
	})

	_, err := client.CreateDestination(context.Background(), models.ConnectorConfig{Name: "d", Type: "postgres"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "bad config")
}

func TestMissingIDIsAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.CreateSource(context.Background(), models.ConnectorConfig{})
	assert.Error(t, err)
}

func TestListWorkflows(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"wf-1","name":"a","status":"active","workflow_type":"custom"}]`))
	})

	workflows, err := client.ListWorkflows(context.Background())

	require.NoError(t, err)
	require.Len(t, workflows, 1)
	assert.Equal(t, "wf-1", workflows[0].ID)
}

func TestPartitionUploadsMultipart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/general", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "hi_res", r.FormValue("strategy"))

		f, hdr, err := r.FormFile("files")
		require.NoError(t, err)
		defer f.Close()
		content, _ := io.ReadAll(f)
		assert.Equal(t, "doc.pdf", hdr.Filename)
		assert.Equal(t, "%PDF", string(content))

		_, _ = w.Write([]byte(`[{"type":"Title","text":"Hello"}]`))
	})

	elements, err := client.Partition(context.Background(), "doc.pdf", []byte("%PDF"), PartitionOptions{Strategy: "hi_res"})

	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, "Hello", elements[0]["text"])
}
