package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/broadcast-labs/license-portal-api/internal/service"
)

// Metrics records duration and status for every request, labelled by the
// registered route pattern rather than the raw URL.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		metricsSvc.ObserveHTTPRequest(c.Request.Method, routeLabel(c), c.Writer.Status(), time.Since(start))
	}
}

// routeLabel prefers the route pattern to keep metric cardinality bounded;
// unmatched requests fall back to the raw path.
func routeLabel(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return c.Request.URL.Path
}
