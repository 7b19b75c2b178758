package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/internal/service/filing"
	"github.com/feichai0017/docfiler/pkg/logger"
)

type CommitRequest struct {
	Path       string                  `json:"path" binding:"required"`
	Suggestion models.FilingSuggestion `json:"suggestion"`
	Mode       string                  `json:"mode"`
	DestBase   string                  `json:"destBase"`
}

type FilingHandler struct {
	filer *filing.Filer
	// root confines committed paths. Empty allows any path.
	root   string
	logger logger.Logger
}

func NewFilingHandler(filer *filing.Filer, root string, log logger.Logger) *FilingHandler {
	return &FilingHandler{filer: filer, root: root, logger: log.Named("api")}
}

// Commit renames or moves a local document per its suggestion.
func (h *FilingHandler) Commit(c *gin.Context) {
	var req CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, h.logger, http.StatusBadRequest, "Invalid commit request", err)
		return
	}

	mode := filing.ModeRename
	if req.Mode != "" {
		m, err := filing.ParseMode(req.Mode)
		if err != nil {
			handleError(c, h.logger, http.StatusBadRequest, "Invalid commit request", err)
			return
		}
		mode = m
	}

	if !h.allowed(req.Path) {
		handleError(c, h.logger, http.StatusForbidden, "Path outside source folder",
			fmt.Errorf("%s is not under %s", req.Path, h.root))
		return
	}
	if !h.allowedBase(req.DestBase) {
		handleError(c, h.logger, http.StatusForbidden, "Destination base outside allowed folders",
			fmt.Errorf("%s is not under %s", req.DestBase, h.baseRoots()))
		return
	}

	out := h.filer.Commit(req.Path, req.Suggestion, mode, req.DestBase)
	status := http.StatusOK
	if out.Status == filing.StatusFailed {
		status = http.StatusConflict
	}
	c.JSON(status, out)
}

func (h *FilingHandler) allowed(path string) bool {
	if h.root == "" {
		return true
	}
	rel, ok := relativeTo(h.root, path)
	return ok && rel != "."
}

// allowedBase confines a client-supplied move base to the configured
// default base or the source folder. Without either, any base is accepted.
func (h *FilingHandler) allowedBase(base string) bool {
	roots := h.baseRoots()
	if base == "" || len(roots) == 0 {
		return true
	}
	for _, root := range roots {
		if _, ok := relativeTo(root, base); ok {
			return true
		}
	}
	return false
}

func (h *FilingHandler) baseRoots() []string {
	var roots []string
	for _, r := range []string{h.filer.DestBase(), h.root} {
		if r != "" {
			roots = append(roots, r)
		}
	}
	return roots
}

// relativeTo reports path relative to root when it does not leave root.
func relativeTo(root, path string) (string, bool) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || !filepath.IsLocal(rel) {
		return "", false
	}
	return rel, true
}
