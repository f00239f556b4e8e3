package handlers

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ingest-api/cmd/defines"
	"ingest-api/internal/destinations"
	"ingest-api/internal/models"
	"ingest-api/pkg/errors"
)

type IngestionHandler struct {
	ingestion IngestionService
}

func NewIngestionHandler(ingestion IngestionService) *IngestionHandler {
	return &IngestionHandler{ingestion: ingestion}
}

// Ingest handles POST /api/v1/ingest/:kind
func (h *IngestionHandler) Ingest(c *gin.Context) {
	kindParam := c.Param("kind")
	kind, err := destinations.ParseKind(kindParam)
	if err != nil {
		_ = c.Error(errors.NewError(errors.ErrNotFound.Code, err.Error(), http.StatusNotFound))
		return
	}

	// an empty body is validated like {} so every missing field is listed
	var body models.IngestRequest
	if err := c.ShouldBindJSON(&body); err != nil && !stderrors.Is(err, io.EOF) {
		_ = c.Error(errors.NewError(errors.ErrBadRequest.Code, "request body must be a JSON object: "+err.Error(), http.StatusBadRequest))
		return
	}
	if kind == defines.DestinationVectorStore && body.Provider == "" && strings.EqualFold(kindParam, string(defines.VectorProviderWeaviate)) {
		body.Provider = string(defines.VectorProviderWeaviate)
	}

	outcome, err := h.ingestion.Ingest(c.Request.Context(), kind, body)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, success(outcomeMessage(outcome.Result, outcome.Tracking), outcome))
}

func outcomeMessage(result *models.JobResult, tracking bool) string {
	if result == nil {
		if tracking {
			return "Ingestion job submitted and tracked in background"
		}
		return "Ingestion job submitted"
	}
	switch result.Status {
	case defines.JobStatusCompleted:
		return "Ingestion completed"
	case defines.JobStatusFailed:
		return "Ingestion job failed"
	default:
		return fmt.Sprintf("Ingestion job still running after %ds", result.ElapsedSeconds)
	}
}
