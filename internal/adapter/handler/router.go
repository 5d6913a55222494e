package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rl1809/order-service/internal/adapter/handler/middleware"
	"github.com/rl1809/order-service/internal/port"
)

type RouterOptions struct {
	Logger *slog.Logger

	// RateLimiter guards /api/v1 when set.
	RateLimiter port.RateLimiter

	// Idempotency guards order creation when set.
	Idempotency port.IdempotencyStore

	// RequestTimeout bounds each /api/v1 request context. Zero disables it.
	RequestTimeout time.Duration
}

func NewRouter(h *HTTPHandler, opts RouterOptions) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := gin.New()
	r.Use(middleware.Logging(opts.Logger), middleware.Recovery(), middleware.Metrics())

	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	if opts.RequestTimeout > 0 {
		v1.Use(middleware.Timeout(opts.RequestTimeout))
	}
	if opts.RateLimiter != nil {
		v1.Use(middleware.RateLimit(opts.RateLimiter))
	}

	create := []gin.HandlerFunc{h.CreateOrder}
	if opts.Idempotency != nil {
		create = append([]gin.HandlerFunc{middleware.Idempotency(opts.Idempotency)}, create...)
	}

	{
		v1.GET("/order/user/:user", h.ListUserOrders)
		v1.GET("/order/:id", h.GetOrder)
		v1.POST("/order", create...)
		v1.PUT("/order/:id", h.UpdateOrder)
		v1.DELETE("/order/:id", h.DeleteOrder)
	}

	return r
}
