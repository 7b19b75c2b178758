package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/docfiler/internal/service/document"
	"github.com/feichai0017/docfiler/internal/service/filing"
	"github.com/feichai0017/docfiler/pkg/logger"
)

type Handlers struct {
	Document *DocumentHandler
	Filing   *FilingHandler
	started  time.Time
	provider string
}

func NewHandlers(
	documentService document.DocumentProcessor,
	filer *filing.Filer,
	sourceDir string,
	provider string,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Document: NewDocumentHandler(documentService, log),
		Filing:   NewFilingHandler(filer, sourceDir, log),
		started:  time.Now(),
		provider: provider,
	}
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"provider": h.provider,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	})
}
