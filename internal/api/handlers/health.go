package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/gitsphere"
	log "github.com/sirupsen/logrus"
)

// HealthHandler serves the gateway's health endpoint.
type HealthHandler struct {
	client *gitsphere.Client
}

// NewHealthHandler builds the health handler.
func NewHealthHandler(client *gitsphere.Client) *HealthHandler {
	return &HealthHandler{client: client}
}

// Health reports the gateway's own status plus the backend's, so the
// dashboard can distinguish a dead gateway from a dead backend.
func (h *HealthHandler) Health(c *gin.Context) {
	response := gin.H{
		"status":  "healthy",
		"service": "GitSphere Gateway",
	}

	backend, err := h.client.Health(c.Request.Context())
	if err != nil {
		log.Debugf("backend health probe failed: %v", err)
		response["backend"] = gin.H{"status": "unreachable"}
		c.JSON(http.StatusOK, response)
		return
	}
	response["backend"] = backend
	c.JSON(http.StatusOK, response)
}
