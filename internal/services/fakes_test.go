package services

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"ingest-api/cmd/configs"
	"ingest-api/internal/models"
	"ingest-api/internal/repositories"
	"ingest-api/pkg/utils"
)

type fakeIngestionClient struct {
	mu        sync.Mutex
	calls     []string
	apiKey    string
	jobStatus string
	jobError  error
	nodes     []models.Node
}

func (f *fakeIngestionClient) add(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeIngestionClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeIngestionClient) CreateSource(context.Context, models.ConnectorConfig) (string, error) {
	f.add("source")
	return "src-1", nil
}

func (f *fakeIngestionClient) CreateDestination(context.Context, models.ConnectorConfig) (string, error) {
	f.add("destination")
	return "dst-1", nil
}

func (f *fakeIngestionClient) CreateWorkflow(_ context.Context, _, _, _ string, nodes []models.Node) (string, error) {
	f.add("workflow")
	f.mu.Lock()
	f.nodes = nodes
	f.mu.Unlock()
	return "wf-1", nil
}

func (f *fakeIngestionClient) RunWorkflow(context.Context, string) (string, error) {
	f.add("run")
	return "job-1", nil
}

func (f *fakeIngestionClient) GetJob(_ context.Context, jobID string) (models.RemoteJob, error) {
	f.add("get")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.jobError != nil {
		return models.RemoteJob{}, f.jobError
	}
	return models.RemoteJob{ID: jobID, Status: f.jobStatus, Error: "remote says no"}, nil
}

func (f *fakeIngestionClient) setRemote(status string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobStatus = status
	f.jobError = err
}

func (f *fakeIngestionClient) ListWorkflows(context.Context) ([]models.WorkflowInfo, error) {
	f.add("list")
	return []models.WorkflowInfo{{ID: "wf-1", Name: "ingest"}}, nil
}

type fakeJobStore struct {
	mu      sync.Mutex
	jobs    map[string]*repositories.IngestJob
	results []models.JobResult
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: map[string]*repositories.IngestJob{}}
}

func (f *fakeJobStore) Create(_ context.Context, job *repositories.IngestJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.JobID] = job
	return nil
}

func (f *fakeJobStore) MarkPolling(context.Context, string) error { return nil }

func (f *fakeJobStore) Complete(_ context.Context, result models.JobResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
	if job, ok := f.jobs[result.JobID]; ok {
		if job.Status.IsSettled() {
			return nil
		}
		job.Status = result.Status
		elapsed := result.ElapsedSeconds
		job.ElapsedSeconds = &elapsed
		job.ErrorMessage = utils.StringPtr(result.Error)
	}
	return nil
}

func (f *fakeJobStore) GetByJobID(_ context.Context, jobID string) (*repositories.IngestJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, repositories.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobStore) List(context.Context, int, int) ([]*repositories.IngestJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*repositories.IngestJob
	for _, j := range f.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (f *fakeJobStore) Results() []models.JobResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.JobResult(nil), f.results...)
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string]interface{}
}

func (f *fakeCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		f.data = map[string]interface{}{}
	}
	f.data[key] = value
	return nil
}

func (f *fakeCache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return false, nil
	}
	result, ok := v.(models.JobResult)
	if !ok {
		return false, stderrors.New("unexpected cached type")
	}
	*(dst.(*models.JobResult)) = result
	return true, nil
}

type fakeInspector struct {
	found bool
	err   error
}

func (f fakeInspector) HasObjects(context.Context, string, string) (bool, error) {
	return f.found, f.err
}

func testConfig() *configs.Config {
	return &configs.Config{
		Unstructured: configs.UnstructuredConfig{APIKey: "unstructured"},
		AWS:          configs.AWSConfig{AccessKey: "AKIA", SecretKey: "secret"},
		Supabase: configs.SupabaseConfig{
			Host: "db.example.com", Port: "6543", Username: "postgres",
			Database: "postgres", TableName: "elements", BatchSize: 100,
		},
		Pinecone: configs.PineconeConfig{BatchSize: 50},
		Redis:    configs.RedisConfig{TTL: 24},
		Orchestrator: configs.OrchestratorConfig{
			PollInterval:       1,
			MaxWait:            5,
			WebhookTimeout:     1,
			TrackerPoolSize:    4,
			EmbeddingProvider:  "openai",
			EmbeddingModel:     "text-embedding-3-large",
			EmbeddingDimension: 3072,
			EnrichmentModel:    "gpt-4o",
		},
	}
}
