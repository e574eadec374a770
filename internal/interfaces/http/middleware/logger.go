package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"kailospay.backend/pkg/logger"
)

// LoggerMiddleware logs HTTP requests using the structured logger.
// The token query parameter is never logged.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if q := c.Request.URL.Query(); len(q) > 0 {
			if q.Has(TokenQueryParam) {
				q.Set(TokenQueryParam, "redacted")
			}
			path = path + "?" + q.Encode()
		}

		logger.LogRequest(c.Request.Context(), c.Request.Method, path, c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}
