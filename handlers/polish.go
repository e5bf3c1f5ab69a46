package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/collabpad/collabpad/pkg/logger"
	"github.com/collabpad/collabpad/pkg/middleware"
)

// Polisher rewrites a piece of text.
type Polisher interface {
	Polish(ctx context.Context, text string) (string, error)
}

type PolishRequest struct {
	Text string `json:"text" binding:"required"`
}

// PolishHandler fronts the AI polish service.
type PolishHandler struct {
	polisher Polisher
	verifier middleware.Verifier
}

func NewPolishHandler(p Polisher, ver middleware.Verifier) *PolishHandler {
	return &PolishHandler{polisher: p, verifier: ver}
}

func (h *PolishHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/api/polish", middleware.AuthMiddleware(h.verifier), h.PolishText)
}

// PolishText forwards text to the model and returns the rewritten version.
func (h *PolishHandler) PolishText(c *gin.Context) {
	var req PolishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	out, err := h.polisher.Polish(c.Request.Context(), req.Text)
	if err != nil {
		logger.Errorf("polish failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "polish failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"polishedText": out})
}
