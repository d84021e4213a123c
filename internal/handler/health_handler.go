package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"freightx/internal/service"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	extractionService service.ExtractionService
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(extractionService service.ExtractionService) *HealthHandler {
	return &HealthHandler{extractionService: extractionService}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz
func (h *HealthHandler) Readiness(c *gin.Context) {
	if !h.extractionService.Ready(c.Request.Context()) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "no provider has usable credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
