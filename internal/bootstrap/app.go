package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/order-service/configs"
	"github.com/rl1809/order-service/internal/adapter/dispatch"
	"github.com/rl1809/order-service/internal/adapter/handler"
	"github.com/rl1809/order-service/internal/adapter/storage"
	"github.com/rl1809/order-service/internal/clock"
	"github.com/rl1809/order-service/internal/core/service"
	"github.com/rl1809/order-service/internal/logging"
)

// App is the order API process: HTTP and gRPC front ends over one
// OrderService.
type App struct {
	cfg    configs.Config
	logger *slog.Logger

	Router     *gin.Engine
	HTTPServer *http.Server
	GRPCServer *grpc.Server
	health     *health.Server
	dispatcher *dispatch.AsyncDispatcher

	closers []closer
}

func New(ctx context.Context, cfg configs.Config) (*App, error) {
	a := &App{cfg: cfg, logger: logging.New("app")}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	repo, closeStore, err := OpenStore(ctx, a.cfg)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeStore)
	a.logger.Info("store ready", "driver", a.cfg.Store.Driver)

	var redisAdapter *storage.RedisAdapter
	if a.cfg.UsesRedis() {
		rdb, err := OpenRedis(ctx, a.cfg)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, rdb.Close)
		redisAdapter = storage.NewRedisAdapter(rdb,
			storage.WithOrderTTL(a.cfg.Cache.TTL),
			storage.WithRateLimit(a.cfg.RateLimit.Requests, a.cfg.RateLimit.Window),
		)
		a.logger.Info("redis ready", "addr", a.cfg.Redis.Addr)
	}

	switch a.cfg.Cache.Driver {
	case "redis":
		repo = storage.NewCachedRepository(repo, redisAdapter, logging.New("cache"))
	case "memory":
		repo = storage.NewCachedRepository(repo, storage.NewLRUCache(a.cfg.Cache.Size, a.cfg.Cache.TTL), logging.New("cache"))
	}

	publisher, closePublisher, err := NewPublisher(a.cfg, logging.New("events"))
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closePublisher)

	a.dispatcher = dispatch.NewAsyncDispatcher(publisher,
		a.cfg.Dispatch.QueueSize,
		a.cfg.Dispatch.Workers,
		a.cfg.Dispatch.PublishTimeout,
		logging.New("dispatcher"),
	)
	a.logger.Info("dispatcher started", "driver", a.cfg.Dispatch.Driver, "workers", a.cfg.Dispatch.Workers)

	orderService := service.NewOrderService(repo, a.dispatcher, clock.NewSystem(), logging.New("orders"))

	opts := handler.RouterOptions{
		Logger:         logging.New("http"),
		RequestTimeout: a.cfg.HTTP.RequestTimeout,
	}
	if a.cfg.RateLimit.Enabled {
		opts.RateLimiter = redisAdapter
	}
	if a.cfg.Idempotency.Enabled {
		opts.Idempotency = redisAdapter
	}
	a.Router = handler.NewRouter(handler.NewHTTPHandler(orderService), opts)
	a.HTTPServer = &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      a.Router,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}

	a.GRPCServer = grpc.NewServer(grpc.UnaryInterceptor(handler.UnaryLogging(logging.New("grpc"))))
	handler.RegisterOrderService(a.GRPCServer, handler.NewGRPCHandler(orderService, logging.New("grpc")))
	a.health = health.NewServer()
	healthpb.RegisterHealthServer(a.GRPCServer, a.health)
	return nil
}

// Run serves HTTP and gRPC until ctx is cancelled, then shuts both down.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "addr", a.HTTPServer.Addr)
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", a.cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		a.health.SetServingStatus(handler.OrderServiceName, healthpb.HealthCheckResponse_SERVING)
		a.logger.Info("gRPC server listening", "addr", a.cfg.GRPC.Addr)
		if err := a.GRPCServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("shutting down")
		a.health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.HTTPServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http shutdown", "error", err)
		}
		a.logger.Info("HTTP server stopped")

		a.GRPCServer.GracefulStop()
		a.logger.Info("gRPC server stopped")
		return nil
	})

	return g.Wait()
}

// Close drains the dispatcher and releases connections in reverse order.
func (a *App) Close() {
	if a.dispatcher != nil {
		a.dispatcher.Close()
		a.logger.Info("dispatcher drained")
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close", "error", err)
		}
	}
	a.closers = nil
}
