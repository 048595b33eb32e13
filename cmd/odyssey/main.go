package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-admin/internal/app"
	"github.com/odyssey-erp/odyssey-admin/internal/observability"
	"github.com/odyssey-erp/odyssey-admin/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := app.SignalContext(context.Background())
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	services, err := app.BuildServices(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("build services", slog.Any("error", err))
		os.Exit(1)
	}
	defer services.Close()

	ready := map[string]app.Pinger{}
	var jobHandler *jobs.Handler
	if cfg.RedisAddr != "" {
		redisOpts := cfg.QueueRedis()
		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		queue := asynq.NewClient(redisOpts)
		defer func() {
			if err := queue.Close(); err != nil {
				logger.Warn("queue client close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, jobs.NewClient(queue), logger)
		ready["redis"] = func(ctx context.Context) error { return services.Redis.Ping(ctx).Err() }
	}

	handlers := app.NewHandlers(services, cfg, logger, jobHandler)
	router := app.NewRouter(handlers.Params(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,
		Ready:   ready,
	}))

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	if err := app.Serve(ctx, server, logger, 10*time.Second); err != nil {
		logger.Error("serve", slog.Any("error", err))
		os.Exit(1)
	}
}
