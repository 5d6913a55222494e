// Command worker consumes order events from the configured broker and runs
// the matching job.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/order-service/configs"
	"github.com/rl1809/order-service/internal/adapter/broker"
	"github.com/rl1809/order-service/internal/adapter/jobs"
	"github.com/rl1809/order-service/internal/logging"
)

func main() {
	configDir := flag.String("config", "configs", "directory holding base.yaml and overlays")
	env := flag.String("env", envOr("APP_ENV", "dev"), "config overlay to apply")
	flag.Parse()

	cfg, err := configs.Load(*configDir, *env)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.Init(logging.Options{
		Service:  cfg.App.Name + "-worker",
		Level:    cfg.Log.Level,
		FilePath: cfg.Log.FilePath,
	})
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func run(ctx context.Context, cfg configs.Config, logger *slog.Logger) error {
	mux := jobs.NewOrderJobs(logging.New("jobs"))

	consume, cleanup, err := newConsumer(cfg, mux)
	if err != nil {
		return err
	}
	defer cleanup()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("consuming", "driver", cfg.Dispatch.Driver, "jobs", mux.Events())
		return consume(ctx)
	})

	if cfg.Worker.MetricsAddr != "" {
		r := gin.New()
		r.Use(gin.Recovery())
		r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
		srv := &http.Server{Addr: cfg.Worker.MetricsAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info("metrics listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func newConsumer(cfg configs.Config, mux *jobs.Mux) (func(context.Context) error, func(), error) {
	switch cfg.Dispatch.Driver {
	case "rabbitmq":
		conn, err := amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("open channel: %w", err)
		}
		if err := broker.DeclareTopology(ch, cfg.RabbitMQ.Exchange, mux.Events()); err != nil {
			_ = conn.Close()
			return nil, nil, err
		}

		router := jobs.NewRouter(ch, mux, logging.New("rabbitmq"),
			jobs.WithPrefetch(cfg.RabbitMQ.Prefetch),
			jobs.WithTimeout(cfg.RabbitMQ.Timeout),
		)
		if err := router.Consume(mux.Events()...); err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		return router.Run, func() { _ = conn.Close() }, nil

	case "kafka":
		reader := jobs.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID)
		consumer := jobs.NewKafkaConsumer(reader, mux, logging.New("kafka"))
		return consumer.Run, func() { _ = consumer.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("dispatch.driver %q has no broker to consume from", cfg.Dispatch.Driver)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
