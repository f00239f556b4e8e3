package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	fylogger "github.com/FyersDev/trading-logger-go"

	"ingest-api/cmd/configs"
	"ingest-api/cmd/defines"
	"ingest-api/internal/destinations"
	"ingest-api/internal/models"
	"ingest-api/internal/orchestrator"
	"ingest-api/internal/repositories"
	"ingest-api/pkg/errors"
	"ingest-api/pkg/utils"
)

const (
	jobCacheKeyPrefix = "ingest:job:"
	finishTimeout     = 30 * time.Second
)

// IngestionClient is the remote platform as used by the services
type IngestionClient interface {
	orchestrator.IngestionClient
	ListWorkflows(ctx context.Context) ([]models.WorkflowInfo, error)
}

// ClientFactory returns a client authenticated with apiKey
type ClientFactory func(apiKey string) IngestionClient

// JobStore is the persistent job ledger
type JobStore interface {
	Create(ctx context.Context, job *repositories.IngestJob) error
	MarkPolling(ctx context.Context, jobID string) error
	Complete(ctx context.Context, result models.JobResult) error
	GetByJobID(ctx context.Context, jobID string) (*repositories.IngestJob, error)
	List(ctx context.Context, limit, offset int) ([]*repositories.IngestJob, error)
}

// ResultCache keeps the latest result of each job for quick lookups
type ResultCache interface {
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
}

// SourceInspector checks that a source prefix holds documents
type SourceInspector interface {
	HasObjects(ctx context.Context, bucket, prefix string) (bool, error)
}

// SourceInspectorFactory opens an inspector for one set of credentials
type SourceInspectorFactory func(ctx context.Context, creds models.SourceCredentials) (SourceInspector, error)

// RelationalSchemaFunc creates the destination table of a relational sink
type RelationalSchemaFunc func(ctx context.Context, dest destinations.Relational) error

// VectorClassFunc creates the collection a Weaviate sink writes into
type VectorClassFunc func(ctx context.Context, dest destinations.VectorStore, className string) error

// IngestionDeps are the collaborators of IngestionService. Everything except
// Clients, Notifier and Tracker may be nil.
type IngestionDeps struct {
	Clients          ClientFactory
	Notifier         *orchestrator.Notifier
	Tracker          *JobTracker
	Events           *EventHub
	Jobs             JobStore
	Cache            ResultCache
	Inspectors       SourceInspectorFactory
	RelationalSchema RelationalSchemaFunc
	VectorClass      VectorClassFunc
}

// IngestionService turns ingest requests into tracked remote jobs
type IngestionService struct {
	cfg  *configs.Config
	deps IngestionDeps
}

func NewIngestionService(cfg *configs.Config, deps IngestionDeps) *IngestionService {
	return &IngestionService{cfg: cfg, deps: deps}
}

// IngestOutcome is returned to the caller of Ingest
type IngestOutcome struct {
	Handle   models.JobHandle  `json:"handle"`
	Result   *models.JobResult `json:"result,omitempty"`
	Tracking bool              `json:"tracking"` // followed in the background
}

// JobView is a job status as answered by GetJob
type JobView struct {
	JobID          string            `json:"job_id"`
	Status         defines.JobStatus `json:"status"`
	RemoteStatus   string            `json:"remote_status,omitempty"`
	ElapsedSeconds *int              `json:"elapsed_seconds,omitempty"`
	Error          string            `json:"error,omitempty"`
	Source         string            `json:"source"`
}

// BuildProcessingRequest maps a request body onto a ProcessingRequest for
// kind, filling credentials the body leaves out from configuration
func (s *IngestionService) BuildProcessingRequest(kind defines.DestinationKind, body models.IngestRequest) (orchestrator.ProcessingRequest, []string) {
	var invalid []string

	req := orchestrator.ProcessingRequest{
		SourceLocation: body.Source(),
		SourceCredentials: models.SourceCredentials{
			AccessKey: utils.FirstNonEmpty(body.AWSKey, body.AWSKeyShort, s.cfg.AWS.AccessKey),
			SecretKey: utils.FirstNonEmpty(body.AWSSecret, body.AWSSecretShort, s.cfg.AWS.SecretKey),
		},
		IngestionAPIKey:   utils.FirstNonEmpty(body.UnstructuredAPIKey, body.UnstructuredAPIKeyShort, s.cfg.Unstructured.APIKey),
		Strategy:          defines.Strategy(strings.TrimSpace(body.Strategy)),
		ChunkingStrategy:  defines.ChunkingStrategy(strings.TrimSpace(body.ChunkingStrategy)),
		Enrich:            body.Enrich,
		WaitForCompletion: true,
		WebhookURL:        strings.TrimSpace(body.WebhookURL),
		MaxWait:           s.cfg.Orchestrator.MaxWaitDuration(),
		PollInterval:      s.cfg.Orchestrator.PollIntervalDuration(),
	}
	if req.Strategy == "" {
		req.Strategy = defines.DefaultStrategy
	}
	if req.ChunkingStrategy == "" {
		req.ChunkingStrategy = defines.DefaultChunkingStrategy
	}
	if body.WaitForCompletion != nil {
		req.WaitForCompletion = *body.WaitForCompletion
	}
	if body.MaxWaitSeconds != nil {
		req.MaxWait = time.Duration(*body.MaxWaitSeconds) * time.Second
		// a waiting request must answer before the server's write deadline
		if req.WaitForCompletion && *body.MaxWaitSeconds > s.cfg.Orchestrator.MaxWait {
			invalid = append(invalid, fmt.Sprintf("max_wait_seconds: must not exceed %d when waiting for completion", s.cfg.Orchestrator.MaxWait))
		}
	}
	if body.PollIntervalSeconds != nil {
		req.PollInterval = time.Duration(*body.PollIntervalSeconds) * time.Second
	}

	switch kind {
	case defines.DestinationRelational:
		port := body.DBPort
		if configured := strings.TrimSpace(s.cfg.Supabase.Port); port == 0 && configured != "" {
			p, err := strconv.Atoi(configured)
			if err != nil {
				invalid = append(invalid, "db_port: configured port must be a number")
			}
			port = p
		}
		if port < 0 {
			invalid = append(invalid, "db_port: must be positive")
		}
		req.Destination = destinations.Relational{
			Host:         utils.FirstNonEmpty(body.DBHost, s.cfg.Supabase.Host),
			Port:         port,
			Database:     utils.FirstNonEmpty(body.DBName, s.cfg.Supabase.Database),
			Username:     utils.FirstNonEmpty(body.DBUser, s.cfg.Supabase.Username),
			Password:     utils.FirstNonEmpty(body.DBPassword, body.DBPasswordShort, s.cfg.Supabase.Password),
			TableName:    utils.FirstNonEmpty(body.TableName, s.cfg.Supabase.TableName),
			BatchSize:    s.cfg.Supabase.BatchSize,
			Embed:        body.Embed,
			EnsureSchema: body.EnsureSchema,
		}

	case defines.DestinationVectorStore:
		provider := defines.VectorProvider(strings.ToLower(strings.TrimSpace(body.Provider)))
		switch provider {
		case "":
			provider = defines.VectorProviderPinecone
		case defines.VectorProviderPinecone, defines.VectorProviderWeaviate:
		default:
			invalid = append(invalid, "provider: must be pinecone or weaviate")
		}
		dest := destinations.VectorStore{
			Provider:  provider,
			BatchSize: s.cfg.Pinecone.BatchSize,
		}
		if provider == defines.VectorProviderWeaviate {
			dest.APIKey = utils.FirstNonEmpty(body.VectorAPIKey, s.cfg.Weaviate.APIKey)
			dest.ClusterURL = utils.FirstNonEmpty(body.ClusterURL, s.cfg.Weaviate.ClusterURL)
		} else {
			dest.APIKey = utils.FirstNonEmpty(body.VectorAPIKey, s.cfg.Pinecone.APIKey)
			dest.IndexName = utils.FirstNonEmpty(body.IndexName, s.cfg.Pinecone.IndexName)
		}
		req.Destination = dest

	case defines.DestinationObjectStore:
		req.Destination = destinations.ObjectStore{
			RemoteURL: strings.TrimSpace(body.DestinationLocation),
			AccessKey: req.SourceCredentials.AccessKey,
			SecretKey: req.SourceCredentials.SecretKey,
		}
	}

	return req, invalid
}

// validate merges field problems found while mapping the body with the
// request's own validation into one ValidationError
func validate(req orchestrator.ProcessingRequest, invalid []string) error {
	err := req.Validate()
	if err == nil && len(invalid) == 0 {
		return nil
	}

	var missing []string
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		missing = appErr.MissingFields
		invalid = append(invalid, appErr.InvalidFields...)
	}
	return errors.NewValidationError(missing, invalid)
}

// Ingest validates the request, prepares the destination, submits the job and
// either waits for it or hands it to the background tracker
func (s *IngestionService) Ingest(ctx context.Context, kind defines.DestinationKind, body models.IngestRequest) (*IngestOutcome, error) {
	req, invalid := s.BuildProcessingRequest(kind, body)
	if err := validate(req, invalid); err != nil {
		return nil, err
	}

	if err := s.preflight(ctx, req); err != nil {
		return nil, err
	}
	if err := s.prepareDestination(ctx, req); err != nil {
		return nil, err
	}

	orch := s.orchestrator(req.IngestionAPIKey)

	handle, err := orch.Submit(ctx, req)
	if err != nil {
		fylogger.ErrorLog(ctx, "ingestion submission failed", err, map[string]interface{}{
			"source_location": req.SourceLocation,
			"destination":     string(kind),
		})
		return nil, err
	}

	s.record(ctx, req, handle)
	if s.deps.Events != nil {
		s.deps.Events.BroadcastJobSubmitted(handle)
	}

	if req.WaitForCompletion {
		s.markPolling(ctx, handle.JobID)
		result := orch.AwaitCompletion(ctx, handle, req.MaxWait, req.PollInterval)

		finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
		defer cancel()
		s.finish(finishCtx, orch, req, handle, result)

		return &IngestOutcome{Handle: handle, Result: &result}, nil
	}

	tracked := TrackedJob{
		Handle:         handle,
		Destination:    string(kind),
		SourceLocation: req.SourceLocation,
	}
	s.markPolling(ctx, handle.JobID)
	err = s.deps.Tracker.Track(tracked, func(trackCtx context.Context) models.JobResult {
		return orch.AwaitCompletion(trackCtx, handle, req.MaxWait, req.PollInterval)
	}, func(result models.JobResult) {
		finishCtx, cancel := context.WithTimeout(context.Background(), finishTimeout)
		defer cancel()
		s.finish(finishCtx, orch, req, handle, result)
	})
	if err != nil {
		// the remote job runs regardless; the caller can still look it up by id
		fylogger.ErrorLog(ctx, "background tracking unavailable", err, map[string]interface{}{
			"job_id": handle.JobID,
		})
		return &IngestOutcome{Handle: handle}, nil
	}

	return &IngestOutcome{Handle: handle, Tracking: true}, nil
}

func (s *IngestionService) orchestrator(apiKey string) *orchestrator.Orchestrator {
	return orchestrator.New(s.deps.Clients(apiKey), s.deps.Notifier, orchestrator.PipelineOptions{
		EmbeddingProvider:  s.cfg.Orchestrator.EmbeddingProvider,
		EmbeddingModel:     s.cfg.Orchestrator.EmbeddingModel,
		EmbeddingDimension: s.cfg.Orchestrator.EmbeddingDimension,
		EnrichmentModel:    s.cfg.Orchestrator.EnrichmentModel,
	})
}

// preflight rejects sources with nothing to ingest before any remote call
func (s *IngestionService) preflight(ctx context.Context, req orchestrator.ProcessingRequest) error {
	if !s.cfg.Orchestrator.SourcePreflight || s.deps.Inspectors == nil {
		return nil
	}

	loc, err := models.ParseSourceLocation(req.SourceLocation)
	if err != nil {
		return errors.NewValidationError(nil, []string{"source_location: " + err.Error()})
	}

	inspector, err := s.deps.Inspectors(ctx, req.SourceCredentials)
	if err != nil {
		return errors.NewValidationError(nil, []string{"source_location: " + err.Error()})
	}

	found, err := inspector.HasObjects(ctx, loc.Bucket, loc.Key())
	if err != nil {
		return errors.NewValidationError(nil, []string{"source_location: " + err.Error()})
	}
	if !found {
		return errors.NewValidationError(nil, []string{fmt.Sprintf("source_location: no objects found under %s", req.SourceLocation)})
	}
	return nil
}

// prepareDestination creates sink-side structures the remote service expects
func (s *IngestionService) prepareDestination(ctx context.Context, req orchestrator.ProcessingRequest) error {
	switch dest := req.Destination.(type) {
	case destinations.Relational:
		if !dest.EnsureSchema || s.deps.RelationalSchema == nil {
			return nil
		}
		if err := s.deps.RelationalSchema(ctx, dest); err != nil {
			return errors.NewSubmissionError("prepare destination table", err)
		}
	case destinations.VectorStore:
		if dest.Provider != defines.VectorProviderWeaviate || s.deps.VectorClass == nil {
			return nil
		}
		className := destinations.WeaviateClassName(orchestrator.DeriveNamespace(req.SourceLocation))
		if err := s.deps.VectorClass(ctx, dest, className); err != nil {
			return errors.NewSubmissionError("prepare weaviate collection", err)
		}
	}
	return nil
}

func (s *IngestionService) record(ctx context.Context, req orchestrator.ProcessingRequest, handle models.JobHandle) {
	if s.deps.Jobs == nil {
		return
	}

	job := &repositories.IngestJob{
		JobID:          handle.JobID,
		WorkflowID:     handle.WorkflowID,
		WorkflowName:   handle.WorkflowName,
		Destination:    string(req.Destination.Kind()),
		SourceLocation: req.SourceLocation,
		Strategy:       string(req.Strategy),
		Status:         defines.JobStatusSubmitted,
		SubmittedAt:    handle.SubmittedAt,
	}
	job.Namespace = utils.StringPtr(handle.Namespace)
	job.WebhookURL = utils.StringPtr(req.WebhookURL)

	if err := s.deps.Jobs.Create(ctx, job); err != nil {
		fylogger.ErrorLog(ctx, "failed to record ingest job", err, map[string]interface{}{"job_id": handle.JobID})
	}
}

func (s *IngestionService) markPolling(ctx context.Context, jobID string) {
	if s.deps.Jobs == nil {
		return
	}
	if err := s.deps.Jobs.MarkPolling(ctx, jobID); err != nil {
		fylogger.ErrorLog(ctx, "failed to mark ingest job polling", err, map[string]interface{}{"job_id": jobID})
	}
}

// finish stores, publishes and reports one terminal result
func (s *IngestionService) finish(ctx context.Context, orch *orchestrator.Orchestrator, req orchestrator.ProcessingRequest, handle models.JobHandle, result models.JobResult) {
	fylogger.InfoLog(ctx, "ingestion job finished", map[string]interface{}{
		"job_id":          result.JobID,
		"status":          string(result.Status),
		"elapsed_seconds": result.ElapsedSeconds,
	})

	if s.deps.Jobs != nil {
		if err := s.deps.Jobs.Complete(ctx, result); err != nil {
			fylogger.ErrorLog(ctx, "failed to store job result", err, map[string]interface{}{"job_id": result.JobID})
		}
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.SetJSON(ctx, jobCacheKeyPrefix+result.JobID, result, s.cacheTTL()); err != nil {
			fylogger.ErrorLog(ctx, "failed to cache job result", err, map[string]interface{}{"job_id": result.JobID})
		}
	}
	if s.deps.Events != nil {
		s.deps.Events.BroadcastJobResult(result)
	}

	orch.Notify(ctx, req.WebhookURL, result, notificationFields(req, handle))
}

func notificationFields(req orchestrator.ProcessingRequest, handle models.JobHandle) map[string]any {
	fields := map[string]any{
		"workflow_id":     handle.WorkflowID,
		"workflow_name":   handle.WorkflowName,
		"source_location": req.SourceLocation,
		"strategy":        string(req.Strategy),
	}
	if handle.Namespace != "" {
		fields["namespace"] = handle.Namespace
	}
	for k, v := range req.Destination.Describe() {
		fields[k] = v
	}
	return fields
}

func (s *IngestionService) cacheTTL() time.Duration {
	hours := s.cfg.Redis.TTL
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// GetJob looks a job up in the cache, then the ledger, then the tracker and
// finally asks the remote service. A stored timeout only means local waiting
// ended, so those jobs are checked remotely and settled once they finish.
func (s *IngestionService) GetJob(ctx context.Context, jobID, apiKey string) (*JobView, error) {
	var (
		stale       *JobView
		submittedAt time.Time
	)

	if s.deps.Cache != nil {
		var cached models.JobResult
		found, err := s.deps.Cache.GetJSON(ctx, jobCacheKeyPrefix+jobID, &cached)
		if err != nil {
			fylogger.ErrorLog(ctx, "job cache lookup failed", err, map[string]interface{}{"job_id": jobID})
		}
		if found {
			if cached.Status.IsSettled() {
				return resultView(cached, "cache"), nil
			}
			stale = resultView(cached, "cache")
		}
	}

	if s.deps.Jobs != nil {
		job, err := s.deps.Jobs.GetByJobID(ctx, jobID)
		switch {
		case err == nil:
			submittedAt = job.SubmittedAt
			if result, ok := job.Result(); ok {
				if result.Status.IsSettled() {
					return resultView(result, "ledger"), nil
				}
				if stale == nil {
					stale = resultView(result, "ledger")
				}
			}
		case !stderrors.Is(err, repositories.ErrJobNotFound):
			fylogger.ErrorLog(ctx, "job ledger lookup failed", err, map[string]interface{}{"job_id": jobID})
		}
	}

	if s.deps.Tracker != nil {
		if tracked, ok := s.deps.Tracker.Get(jobID); ok {
			if submittedAt.IsZero() {
				submittedAt = tracked.Handle.SubmittedAt
			}
			switch {
			case tracked.Result == nil:
				return &JobView{JobID: jobID, Status: tracked.Status, Source: "tracker"}, nil
			case tracked.Result.Status.IsSettled():
				return resultView(*tracked.Result, "tracker"), nil
			case stale == nil:
				stale = resultView(*tracked.Result, "tracker")
			}
		}
	}

	key := utils.FirstNonEmpty(apiKey, s.cfg.Unstructured.APIKey)
	if key == "" {
		if stale != nil {
			return stale, nil
		}
		return nil, errors.NewValidationError([]string{"unstructured_api_key"}, nil)
	}

	remote, err := s.deps.Clients(key).GetJob(ctx, jobID)
	if err != nil {
		if stale != nil {
			fylogger.ErrorLog(ctx, "remote job status check failed, answering stored timeout", err, map[string]interface{}{"job_id": jobID})
			return stale, nil
		}
		return nil, errors.WrapError(err, errors.ErrUpstream.Code, "failed to fetch job status", errors.ErrUpstream.Status)
	}

	status, done := orchestrator.TerminalStatus(remote.Status)
	view := &JobView{JobID: jobID, Status: status, RemoteStatus: remote.Status, Source: "remote"}
	if !done {
		return view, nil
	}

	result := models.JobResult{JobID: jobID, Status: status}
	if status == defines.JobStatusFailed {
		result.Error = remote.ErrorMessage()
		view.Error = result.Error
	}
	if !submittedAt.IsZero() {
		result.ElapsedSeconds = int(time.Since(submittedAt).Round(time.Second) / time.Second)
		view.ElapsedSeconds = &result.ElapsedSeconds
	}
	if stale != nil || !submittedAt.IsZero() {
		s.settle(ctx, result)
	}
	return view, nil
}

// settle stores the final result the remote reported for a job known locally
func (s *IngestionService) settle(ctx context.Context, result models.JobResult) {
	fylogger.InfoLog(ctx, "ingestion job settled from remote status", map[string]interface{}{
		"job_id": result.JobID,
		"status": string(result.Status),
	})

	if s.deps.Jobs != nil {
		if err := s.deps.Jobs.Complete(ctx, result); err != nil {
			fylogger.ErrorLog(ctx, "failed to store job result", err, map[string]interface{}{"job_id": result.JobID})
		}
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.SetJSON(ctx, jobCacheKeyPrefix+result.JobID, result, s.cacheTTL()); err != nil {
			fylogger.ErrorLog(ctx, "failed to cache job result", err, map[string]interface{}{"job_id": result.JobID})
		}
	}
	if s.deps.Tracker != nil {
		s.deps.Tracker.Settle(result)
	}
	if s.deps.Events != nil {
		s.deps.Events.BroadcastJobResult(result)
	}
}

func resultView(result models.JobResult, source string) *JobView {
	elapsed := result.ElapsedSeconds
	return &JobView{
		JobID:          result.JobID,
		Status:         result.Status,
		ElapsedSeconds: &elapsed,
		Error:          result.Error,
		Source:         source,
	}
}

// ListJobs returns ledger rows when a ledger is configured, otherwise the
// jobs tracked in memory
func (s *IngestionService) ListJobs(ctx context.Context, limit, offset int) (interface{}, error) {
	if s.deps.Jobs != nil {
		jobs, err := s.deps.Jobs.List(ctx, limit, offset)
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrInternalServer.Code, "failed to list jobs", errors.ErrInternalServer.Status)
		}
		return jobs, nil
	}
	return s.deps.Tracker.GetAllJobs(), nil
}

// ListWorkflows returns the workflows visible to apiKey
func (s *IngestionService) ListWorkflows(ctx context.Context, apiKey string) ([]models.WorkflowInfo, error) {
	key := utils.FirstNonEmpty(apiKey, s.cfg.Unstructured.APIKey)
	if key == "" {
		return nil, errors.NewValidationError([]string{"unstructured_api_key"}, nil)
	}

	workflows, err := s.deps.Clients(key).ListWorkflows(ctx)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrUpstream.Code, "failed to list workflows", errors.ErrUpstream.Status)
	}
	return workflows, nil
}
