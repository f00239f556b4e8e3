package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ingest-api/internal/services"
)

const serviceName = "ingest-api"

type HealthHandler struct {
	health HealthService
}

func NewHealthHandler(health HealthService) *HealthHandler {
	return &HealthHandler{health: health}
}

// Root handles GET /
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": serviceName,
	})
}

// Health handles GET /health; 503 when a configured dependency is down
func (h *HealthHandler) Health(c *gin.Context) {
	deps := h.health.CheckOverall(c.Request.Context())

	status, code := "ok", http.StatusOK
	if !services.Healthy(deps) {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":       status,
		"service":      serviceName,
		"dependencies": deps,
	})
}
