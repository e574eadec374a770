package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/internal/interfaces/http/response"
	"kailospay.backend/pkg/logger"
	"kailospay.backend/pkg/ratelimit"
)

// RateLimitByIP limits a route per client IP. A limiter failure lets the
// request through.
func RateLimitByIP(limiter ratelimit.RateLimiter, name string, limit ratelimit.Limit) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit.Rate <= 0 {
			c.Next()
			return
		}

		key := "ratelimit:" + name + ":" + c.ClientIP()
		res, err := limiter.Allow(c.Request.Context(), key, limit)
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("rate limiter unavailable",
				zap.String("limit", name), zap.Error(err))
			c.Next()
			return
		}

		if !res.Allowed {
			retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			response.Abort(c, domainerrors.TooManyRequests("too many requests").
				WithReason("rate_limited").
				WithDetail("retryAfter", retryAfter))
			return
		}
		c.Next()
	}
}
