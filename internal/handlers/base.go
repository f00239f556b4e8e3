package handlers

import (
	"context"

	"ingest-api/cmd/defines"
	"ingest-api/internal/models"
	"ingest-api/internal/services"
)

// IngestionService is the part of services.IngestionService the routes use
type IngestionService interface {
	Ingest(ctx context.Context, kind defines.DestinationKind, body models.IngestRequest) (*services.IngestOutcome, error)
	GetJob(ctx context.Context, jobID, apiKey string) (*services.JobView, error)
	ListJobs(ctx context.Context, limit, offset int) (interface{}, error)
	ListWorkflows(ctx context.Context, apiKey string) ([]models.WorkflowInfo, error)
}

// PartitionService partitions one stored file
type PartitionService interface {
	Partition(ctx context.Context, body models.PartitionRequest) (*models.PartitionResult, error)
}

// HealthService reports the state of backing stores
type HealthService interface {
	CheckOverall(ctx context.Context) map[string]services.HealthStatus
}

// Response is the success envelope of every route
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Result  interface{} `json:"result,omitempty"`
}

func success(message string, result interface{}) Response {
	return Response{Status: "success", Message: message, Result: result}
}

// Handlers holds all handler instances
type Handlers struct {
	Health    *HealthHandler
	Ingestion *IngestionHandler
	Jobs      *JobHandler
	Partition *PartitionHandler
}

// NewHandlers creates and returns all handler instances
func NewHandlers(svcs *services.Services) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(svcs.Health),
		Ingestion: NewIngestionHandler(svcs.Ingestion),
		Jobs:      NewJobHandler(svcs.Ingestion, svcs.Events),
		Partition: NewPartitionHandler(svcs.Partition),
	}
}
