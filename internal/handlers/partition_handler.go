package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ingest-api/internal/models"
	"ingest-api/pkg/errors"
)

type PartitionHandler struct {
	partition PartitionService
}

func NewPartitionHandler(partition PartitionService) *PartitionHandler {
	return &PartitionHandler{partition: partition}
}

// File handles POST /api/v1/partition/file
func (h *PartitionHandler) File(c *gin.Context) {
	var body models.PartitionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		_ = c.Error(errors.NewError(errors.ErrBadRequest.Code, "request body must be a JSON object: "+err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.partition.Partition(c.Request.Context(), body)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}
