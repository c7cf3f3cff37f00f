package poll

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler serves the read-only poll HTTP endpoints.
type Handler struct {
	manager *Manager
}

// NewHandler creates a poll handler.
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// History handles GET /polls/history. Completed polls, oldest first.
func (h *Handler) History(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.History())
}
