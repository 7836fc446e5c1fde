// Package httpapi exposes the use cases over a JSON HTTP API.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ProblemScout/internal/usecase"
)

// Services are the use cases served by the API. Ingestion is optional.
type Services struct {
	Problems  *usecase.Problems
	Experts   *usecase.Experts
	Insights  *usecase.Insights
	Ingestion *usecase.Ingestion
}

type handler struct {
	svc    Services
	logger *slog.Logger
}

// NewRouter builds the gin engine with all API routes.
func NewRouter(svc Services, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &handler{svc: svc, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/problems", h.submitProblem)
		api.GET("/problems", h.listProblems)
		api.GET("/problems/:id", h.getProblem)
		api.POST("/problems/:id/votes", h.voteProblem)
		api.GET("/problems/:id/matches", h.matchExperts)

		api.POST("/similarity", h.previewSimilarity)
		api.GET("/clusters", h.listClusters)

		api.POST("/experts", h.registerExpert)
		api.GET("/experts", h.searchExperts)

		api.POST("/ingest", h.ingest)

		api.GET("/export/problems", h.exportProblems)
		api.GET("/export/clusters", h.exportClusters)
	}

	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
