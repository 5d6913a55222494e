package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/order-service/internal/logging"
	"github.com/rl1809/order-service/internal/port"
)

// RateLimit counts requests per client IP. Limiter errors let the request
// through.
func RateLimit(limiter port.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logging.From(c).Warn("rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if !ok {
			rejected.WithLabelValues("rate_limit").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"status": false, "data": "Too Many Attempts."})
			return
		}
		c.Next()
	}
}
