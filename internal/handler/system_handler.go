package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/response"
	"github.com/hobbyist/hobbyist-api/internal/service"
)

// SystemHandler serves health and error statistics.
type SystemHandler struct {
	healthService *service.HealthService
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(healthService *service.HealthService) *SystemHandler {
	return &SystemHandler{healthService: healthService}
}

// Health godoc
// GET /health
// Answers 503 when the service is unhealthy.
func (h *SystemHandler) Health(c *gin.Context) {
	health := h.healthService.Check(c.Request.Context())

	status := http.StatusOK
	if health.Status == apperror.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	response.Success(c, status, health)
}

// ErrorStats godoc
// GET /api/v1/admin/errors/stats
func (h *SystemHandler) ErrorStats(c *gin.Context) {
	response.Success(c, http.StatusOK, h.healthService.ErrorStats())
}
