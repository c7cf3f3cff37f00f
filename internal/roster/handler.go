package roster

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler serves the read-only roster HTTP endpoint.
type Handler struct {
	registry *Registry
}

// NewHandler creates a roster handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// List handles GET /students. Participants in join order.
func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.List())
}
