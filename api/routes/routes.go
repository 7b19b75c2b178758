package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/feichai0017/docfiler/api/handlers"
	"github.com/feichai0017/docfiler/api/middleware"
	"github.com/feichai0017/docfiler/pkg/logger"
)

func SetupRoutes(r *gin.Engine, h *handlers.Handlers, log logger.Logger) {
	r.Use(middleware.RequestID(), middleware.AccessLog(log), middleware.CORS())

	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")
	v1.GET("/health", h.Health)

	docs := v1.Group("/documents")
	{
		docs.POST("/analyze", h.Document.AnalyzeDocument)
		docs.POST("/batch", h.Document.AnalyzeBatch)
		docs.GET("/status/:taskId", h.Document.GetStatus)
		docs.GET("/result/:taskId", h.Document.GetResult)
		docs.DELETE("/task/:taskId", h.Document.CancelTask)
		docs.POST("/commit", h.Filing.Commit)
	}
}
