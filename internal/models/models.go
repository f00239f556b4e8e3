package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"ingest-api/cmd/defines"
)

// SupportedSchemes are the object-storage URI schemes a source may use
var SupportedSchemes = []string{"s3"}

// SourceLocation is a parsed object-storage URI such as s3://bucket/clients/acme/
type SourceLocation struct {
	Raw      string
	Scheme   string
	Bucket   string
	Segments []string // non-empty path segments after the bucket
}

// ParseSourceLocation validates raw as a supported object-storage URI
func ParseSourceLocation(raw string) (SourceLocation, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SourceLocation{}, fmt.Errorf("source location is empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return SourceLocation{}, fmt.Errorf("source location %q is not a valid URI: %w", raw, err)
	}

	scheme := strings.ToLower(u.Scheme)
	supported := false
	for _, s := range SupportedSchemes {
		if scheme == s {
			supported = true
			break
		}
	}
	if !supported {
		return SourceLocation{}, fmt.Errorf("source location %q must use one of the schemes %s", raw, strings.Join(SupportedSchemes, ", "))
	}
	if u.Host == "" {
		return SourceLocation{}, fmt.Errorf("source location %q has no bucket", raw)
	}

	return SourceLocation{
		Raw:      raw,
		Scheme:   scheme,
		Bucket:   u.Host,
		Segments: splitSegments(u.Path),
	}, nil
}

func splitSegments(p string) []string {
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// Key is the object key (or key prefix) below the bucket
func (l SourceLocation) Key() string {
	key := strings.Join(l.Segments, "/")
	if strings.HasSuffix(l.Raw, "/") && key != "" {
		key += "/"
	}
	return key
}

// IsPrefix reports whether the location names a folder rather than one object
func (l SourceLocation) IsPrefix() bool {
	return len(l.Segments) == 0 || strings.HasSuffix(l.Raw, "/")
}

// ConnectorConfig is the body of a create-source or create-destination call
type ConnectorConfig struct {
	Name   string         `json:"name"`
	Type   string         `json:"type"`
	Config map[string]any `json:"config"`
}

// Node is one processing step of a workflow
type Node struct {
	Name     string         `json:"name"`
	Kind     string         `json:"type"`
	Subtype  string         `json:"subtype"`
	Settings map[string]any `json:"settings"`
}

// WorkflowSpec is built once per submission and not mutated afterwards
type WorkflowSpec struct {
	Name                    string `json:"name"`
	SourceConnectorRef      string `json:"source_id"`
	DestinationConnectorRef string `json:"destination_id"`
	Nodes                   []Node `json:"workflow_nodes"`
}

// NodeKinds returns the node kinds in execution order
func (w WorkflowSpec) NodeKinds() []string {
	kinds := make([]string, len(w.Nodes))
	for i, n := range w.Nodes {
		kinds[i] = n.Kind
	}
	return kinds
}

// WithConnectors returns a copy bound to the materialized connectors
func (w WorkflowSpec) WithConnectors(sourceID, destinationID string) WorkflowSpec {
	nodes := make([]Node, len(w.Nodes))
	copy(nodes, w.Nodes)
	return WorkflowSpec{
		Name:                    w.Name,
		SourceConnectorRef:      sourceID,
		DestinationConnectorRef: destinationID,
		Nodes:                   nodes,
	}
}

// JobHandle identifies a submitted remote job
type JobHandle struct {
	JobID        string    `json:"job_id"`
	WorkflowID   string    `json:"workflow_id"`
	WorkflowName string    `json:"workflow_name"`
	Namespace    string    `json:"namespace,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// JobResult is the terminal outcome of tracking one job
type JobResult struct {
	JobID          string            `json:"job_id"`
	Status         defines.JobStatus `json:"status"`
	ElapsedSeconds int               `json:"elapsed_seconds"`
	Error          string            `json:"error,omitempty"`
}

// RemoteJob is the job status payload reported by the ingestion service
type RemoteJob struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// ErrorMessage picks the most specific failure text from the payload
func (j RemoteJob) ErrorMessage() string {
	if j.Error != "" {
		return j.Error
	}
	if j.Message != "" {
		return j.Message
	}
	return "job reported status " + j.Status
}

// WorkflowInfo is a workflow as listed by the ingestion service
type WorkflowInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	WorkflowType string `json:"workflow_type"`
}

// SourceCredentials authenticate against the source object store
type SourceCredentials struct {
	AccessKey string
	SecretKey string
}

// IngestRequest is the JSON body accepted by the ingest routes. The short
// camel-case names are accepted for existing clients.
type IngestRequest struct {
	SourceLocation string `json:"source_location"`
	Folder         string `json:"folder"`
	FileName       string `json:"fileName"`
	S3Path         string `json:"s3Path"`

	AWSKey                  string `json:"aws_key"`
	AWSKeyShort             string `json:"awsK"`
	AWSSecret               string `json:"aws_secret"`
	AWSSecretShort          string `json:"awsS"`
	UnstructuredAPIKey      string `json:"unstructured_api_key"`
	UnstructuredAPIKeyShort string `json:"unstrK"`

	Strategy            string `json:"strategy"`
	ChunkingStrategy    string `json:"chunking_strategy"`
	Enrich              bool   `json:"enrich"`
	Embed               bool   `json:"embed"`
	WaitForCompletion   *bool  `json:"wait_for_completion"`
	WebhookURL          string `json:"webhook_url"`
	MaxWaitSeconds      *int   `json:"max_wait_seconds"`
	PollIntervalSeconds *int   `json:"poll_interval_seconds"`

	// relational
	DBHost          string `json:"db_host"`
	DBPort          int    `json:"db_port"`
	DBUser          string `json:"db_user"`
	DBName          string `json:"db_name"`
	DBPassword      string `json:"db_password"`
	DBPasswordShort string `json:"supaK"`
	TableName       string `json:"table_name"`
	EnsureSchema    bool   `json:"ensure_schema"`

	// vector
	Provider     string `json:"provider"`
	VectorAPIKey string `json:"vector_api_key"`
	IndexName    string `json:"index_name"`
	ClusterURL   string `json:"cluster_url"`

	// object
	DestinationLocation string `json:"destination_location"`
}

// Source returns the first non-empty source location field
func (r IngestRequest) Source() string {
	for _, s := range []string{r.SourceLocation, r.Folder, r.S3Path, r.FileName} {
		if strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// PartitionRequest is the JSON body of the single-file partition route
type PartitionRequest struct {
	S3Path             string `json:"s3Path"`
	SourceLocation     string `json:"source_location"`
	AWSKey             string `json:"awsK"`
	AWSSecret          string `json:"awsS"`
	UnstructuredAPIKey string `json:"unstrK"`
	Strategy           string `json:"strategy"`
}

// PartitionResult is the response of a single-file partition
type PartitionResult struct {
	Message  string            `json:"message"`
	File     string            `json:"file"`
	Elements []map[string]any  `json:"elements"`
	Metadata PartitionMetadata `json:"metadata"`
}

type PartitionMetadata struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type"`
}
