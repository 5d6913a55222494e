package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/order-service/configs"
	"github.com/rl1809/order-service/internal/bootstrap"
	"github.com/rl1809/order-service/internal/logging"
)

const startupTimeout = 30 * time.Second

func main() {
	configDir := flag.String("config", "configs", "directory holding base.yaml and overlays")
	env := flag.String("env", envOr("APP_ENV", "dev"), "config overlay to apply (dev | local | ...)")
	flag.Parse()

	cfg, err := configs.Load(*configDir, *env)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.Init(logging.Options{
		Service:  cfg.App.Name,
		Level:    cfg.Log.Level,
		FilePath: cfg.Log.FilePath,
	})
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	app, err := bootstrap.New(startCtx, cfg)
	cancel()
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	logger.Info("order-service starting", "env", *env, "http", cfg.HTTP.Addr, "grpc", cfg.GRPC.Addr)
	runErr := app.Run(ctx)
	app.Close()

	if runErr != nil {
		logger.Error("server stopped with error", "error", runErr)
		os.Exit(1)
	}
	logger.Info("connections closed")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
