package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/payout-api/internal/service"
)

// Metrics observes every request on the Prometheus registry. Unmatched routes
// fall back to the raw URL path so 404 noise stays visible without exploding
// label cardinality on real routes.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
