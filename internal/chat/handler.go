package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler serves the read-only chat HTTP endpoint.
type Handler struct {
	log *Log
}

// NewHandler creates a chat handler.
func NewHandler(log *Log) *Handler {
	return &Handler{log: log}
}

// List handles GET /chat. Messages in post order.
func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.log.List())
}
