package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/broadcast-labs/license-portal-api/internal/service"
)

// MetricsHandler exposes the observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
}

func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Prometheus serves the scrape endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health is a liveness probe. Readiness lives on /ready, which also checks
// the database.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "license-portal-api",
	})
}
