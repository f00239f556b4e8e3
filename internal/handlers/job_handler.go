package handlers

import (
	"net/http"
	"strconv"

	fylogger "github.com/FyersDev/trading-logger-go"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ingest-api/pkg/errors"
)

const apiKeyHeader = "unstructured-api-key"

// EventFeed accepts websocket subscribers for job events
type EventFeed interface {
	Register(conn *websocket.Conn)
	Unregister(conn *websocket.Conn)
}

type JobHandler struct {
	ingestion IngestionService
	events    EventFeed
	upgrader  websocket.Upgrader
}

func NewJobHandler(ingestion IngestionService, events EventFeed) *JobHandler {
	return &JobHandler{
		ingestion: ingestion,
		events:    events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func apiKey(c *gin.Context) string {
	if key := c.GetHeader(apiKeyHeader); key != "" {
		return key
	}
	return c.Query("unstrK")
}

// List handles GET /api/v1/jobs
func (h *JobHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		_ = c.Error(errors.NewValidationError(nil, []string{"limit: must be a positive integer"}))
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		_ = c.Error(errors.NewValidationError(nil, []string{"offset: must not be negative"}))
		return
	}

	jobs, err := h.ingestion.ListJobs(c.Request.Context(), limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, success("Jobs retrieved", jobs))
}

// Get handles GET /api/v1/jobs/:job_id
func (h *JobHandler) Get(c *gin.Context) {
	view, err := h.ingestion.GetJob(c.Request.Context(), c.Param("job_id"), apiKey(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, success("Job status retrieved", view))
}

// Workflows handles GET /api/v1/workflows
func (h *JobHandler) Workflows(c *gin.Context) {
	workflows, err := h.ingestion.ListWorkflows(c.Request.Context(), apiKey(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, success("Workflows retrieved", workflows))
}

// Stream handles GET /api/v1/jobs/ws
func (h *JobHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		fylogger.ErrorLog(c.Request.Context(), "websocket upgrade failed", err, nil)
		return
	}
	h.events.Register(conn)

	// the feed is one-way; reading only detects the client going away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.events.Unregister(conn)
}
