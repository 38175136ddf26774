package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/sdthai/backoffice/internal/app"
	"github.com/sdthai/backoffice/internal/platform/db"
	"github.com/sdthai/backoffice/internal/stock"
	"github.com/sdthai/backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	stockRepo := stock.NewRepository(pool)
	stockService := stock.NewService(stockRepo, cfg.ExpiryAlertWindow)

	alertJob := jobs.NewStockAlertScanJob(stockService, logger)
	cleanupJob := jobs.NewRetentionCleanupJob(pool, logger)

	alertTask, err := jobs.NewStockAlertScanTask(jobs.StockAlertScanPayload{
		ExpiryWindowHours: int(cfg.ExpiryAlertWindow.Hours()),
	})
	if err != nil {
		logger.Error("build alert task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewRetentionCleanupTask(jobs.RetentionCleanupPayload{})
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStockAlertScan, Handler: alertJob.Handle},
			{Type: jobs.TaskRetentionCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 6 * * *", Task: alertTask},
			{Spec: "30 3 * * 0", Task: cleanupTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
