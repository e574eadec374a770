package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"kailospay.backend/pkg/metrics"
)

// MetricsMiddleware records request count and latency per route template,
// so path parameters do not blow up label cardinality.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
