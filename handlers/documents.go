package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/collabpad/collabpad/internal/document/manager"
	"github.com/collabpad/collabpad/internal/presence"
	"github.com/collabpad/collabpad/pkg/logger"
	"github.com/collabpad/collabpad/pkg/middleware"
)

// DocumentHandler serves the REST view of documents. Reads go through the
// manager so a client always sees its own edits even inside the debounce
// window, and presence is served from the in-memory store so stale entries
// are swept before they leave the process.
type DocumentHandler struct {
	docs     *manager.Manager
	presence *presence.Store
	verifier middleware.Verifier
}

func NewDocumentHandler(docs *manager.Manager, pres *presence.Store, ver middleware.Verifier) *DocumentHandler {
	return &DocumentHandler{docs: docs, presence: pres, verifier: ver}
}

func (h *DocumentHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/api/documents/:id", middleware.AuthMiddleware(h.verifier), h.GetDocument)
}

// GetDocument returns a document, creating an empty one when the id is new.
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id := c.Param("id")
	sub := middleware.SubjectFromContext(c)

	doc, err := h.docs.GetOrCreate(c.Request.Context(), id, sub)
	if err != nil {
		logger.Errorf("get document %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load document"})
		return
	}
	doc.ActiveUsers = h.presence.Snapshot(c.Request.Context(), id)
	c.JSON(http.StatusOK, doc)
}
