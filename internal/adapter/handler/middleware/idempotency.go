package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/order-service/internal/logging"
	"github.com/rl1809/order-service/internal/port"
)

const IdempotencyHeader = "X-Idempotency-Key"

// Idempotency rejects a replayed X-Idempotency-Key with 409. The key is
// released again when the request fails, so only a successful request uses
// it up. Requests without the header pass untouched.
func Idempotency(store port.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		fresh, err := store.SetIdempotency(c.Request.Context(), key)
		if err != nil {
			logging.From(c).Warn("idempotency store unavailable", "error", err)
			c.Next()
			return
		}
		if !fresh {
			rejected.WithLabelValues("duplicate").Inc()
			logging.From(c).Info("duplicate request", "idempotency_key", key)
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"status": false, "data": "Duplicate request"})
			return
		}

		completed := false
		defer func() {
			if completed && c.Writer.Status() < http.StatusBadRequest {
				return
			}
			ctx := context.WithoutCancel(c.Request.Context())
			if err := store.ReleaseIdempotency(ctx, key); err != nil {
				logging.From(c).Warn("idempotency key release failed", "idempotency_key", key, "error", err)
			}
		}()
		c.Next()
		completed = true
	}
}
