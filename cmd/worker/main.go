package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/quotient-erp/quotient/internal/app"
	"github.com/quotient-erp/quotient/internal/fiscal"
	"github.com/quotient-erp/quotient/internal/numbering"
	"github.com/quotient-erp/quotient/internal/platform/cache"
	"github.com/quotient-erp/quotient/internal/platform/db"
	"github.com/quotient-erp/quotient/internal/quotation"
	"github.com/quotient-erp/quotient/internal/shared"
	"github.com/quotient-erp/quotient/jobs"
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	calendar, err := fiscal.CalendarByName(cfg.FiscalCalendar)
	if err != nil {
		logger.Error("fiscal calendar", slog.Any("error", err))
		os.Exit(1)
	}
	resolver, err := fiscal.NewResolver(calendar, cfg.FiscalCutoverMonth)
	if err != nil {
		logger.Error("fiscal resolver", slog.Any("error", err))
		os.Exit(1)
	}

	generator := numbering.NewGenerator(
		numbering.NewPGStore(pool),
		numbering.NewRedisLocker(redisClient, 5*time.Second, 3*time.Second),
		logger,
		numbering.Config{},
	)

	repo := quotation.NewRepository(pool)
	service := quotation.NewService(repo, generator, resolver, shared.NewAuditLogger(pool), logger)

	sweepTask, err := jobs.NewQuotationExpiryTask(jobs.QuotationExpiryPayload{})
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskQuotationExpiry, Handler: jobs.NewQuotationExpiryHandler(service, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ExpirySweepSchedule, Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
