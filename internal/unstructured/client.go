package unstructured

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ingest-api/internal/models"
)

const apiKeyHeader = "unstructured-api-key"

// Client talks to the Unstructured workflow platform and partition API
type Client struct {
	baseURL      string
	partitionURL string
	apiKey       string
	httpClient   *http.Client
}

// Config holds the endpoints and timeout shared by every Client
type Config struct {
	BaseURL      string
	PartitionURL string
	Timeout      time.Duration
}

// NewClient creates a client for one API key
func NewClient(cfg Config, apiKey string) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		partitionURL: cfg.PartitionURL,
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx answer from the platform
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

type idResponse struct {
	ID string `json:"id"`
}

// CreateSource materializes a source connector and returns its id
func (c *Client) CreateSource(ctx context.Context, cfg models.ConnectorConfig) (string, error) {
	var out idResponse
	if err := c.do(ctx, http.MethodPost, "/sources/", cfg, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("create source: response carried no id")
	}
	return out.ID, nil
}

// CreateDestination materializes a destination connector and returns its id
func (c *Client) CreateDestination(ctx context.Context, cfg models.ConnectorConfig) (string, error) {
	var out idResponse
	if err := c.do(ctx, http.MethodPost, "/destinations/", cfg, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("create destination: response carried no id")
	}
	return out.ID, nil
}

type createWorkflowRequest struct {
	Name          string        `json:"name"`
	SourceID      string        `json:"source_id"`
	DestinationID string        `json:"destination_id"`
	WorkflowType  string        `json:"workflow_type"`
	WorkflowNodes []models.Node `json:"workflow_nodes"`
}

// CreateWorkflow registers a custom workflow wiring source, nodes and destination
func (c *Client) CreateWorkflow(ctx context.Context, name, sourceID, destinationID string, nodes []models.Node) (string, error) {
	body := createWorkflowRequest{
		Name:          name,
		SourceID:      sourceID,
		DestinationID: destinationID,
		WorkflowType:  "custom",
		WorkflowNodes: nodes,
	}
	var out idResponse
	if err := c.do(ctx, http.MethodPost, "/workflows/", body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("create workflow: response carried no id")
	}
	return out.ID, nil
}

// RunWorkflow starts a run and returns the remote job id
func (c *Client) RunWorkflow(ctx context.Context, workflowID string) (string, error) {
	var out models.RemoteJob
	if err := c.do(ctx, http.MethodPost, "/workflows/"+url.PathEscape(workflowID)+"/run", nil, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("run workflow: response carried no job id")
	}
	return out.ID, nil
}

// GetJob fetches the current status payload of a job
func (c *Client) GetJob(ctx context.Context, jobID string) (models.RemoteJob, error) {
	var out models.RemoteJob
	if err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID), nil, &out); err != nil {
		return models.RemoteJob{}, err
	}
	return out, nil
}

// ListWorkflows returns every workflow visible to the API key
func (c *Client) ListWorkflows(ctx context.Context) ([]models.WorkflowInfo, error) {
	var out []models.WorkflowInfo
	if err := c.do(ctx, http.MethodGet, "/workflows/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// PartitionOptions are the form fields sent with a single-file partition call
type PartitionOptions struct {
	Strategy  string
	Languages []string
}

// Partition uploads one document to the synchronous partition endpoint and
// returns the raw element list
func (c *Client) Partition(ctx context.Context, fileName string, content []byte, opts PartitionOptions) ([]map[string]any, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("files", fileName)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if opts.Strategy != "" {
		if err := w.WriteField("strategy", opts.Strategy); err != nil {
			return nil, err
		}
	}
	for _, lang := range opts.Languages {
		if err := w.WriteField("languages", lang); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.partitionURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("build partition request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("partition %s: %w", fileName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read partition response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Method: http.MethodPost, Path: "partition", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var elements []map[string]any
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, fmt.Errorf("decode partition response: %w", err)
	}
	return elements, nil
}
