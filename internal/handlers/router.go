package handlers

import (
	"github.com/gin-gonic/gin"

	"ingest-api/internal/middleware"
)

// SetupRouter registers every route on a new gin engine
func SetupRouter(appEnv string, h *Handlers, authMW *middleware.AuthMiddleware) *gin.Engine {
	if appEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.ErrorMiddleware())

	router.GET("/", h.Health.Root)
	router.GET("/health", h.Health.Health)

	v1 := router.Group("/api/v1")
	v1.Use(authMW.RequireAuth())
	{
		v1.POST("/ingest/:kind", h.Ingestion.Ingest)
		v1.POST("/partition/file", h.Partition.File)

		jobs := v1.Group("/jobs")
		{
			jobs.GET("", h.Jobs.List)
			jobs.GET("/ws", h.Jobs.Stream)
			jobs.GET("/:job_id", h.Jobs.Get)
		}

		v1.GET("/workflows", h.Jobs.Workflows)
	}

	return router
}
