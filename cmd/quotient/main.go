package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/quotient-erp/quotient/internal/app"
	"github.com/quotient-erp/quotient/internal/fiscal"
	"github.com/quotient-erp/quotient/internal/numbering"
	"github.com/quotient-erp/quotient/internal/pdf"
	"github.com/quotient-erp/quotient/internal/platform/cache"
	"github.com/quotient-erp/quotient/internal/platform/db"
	"github.com/quotient-erp/quotient/internal/quotation"
	"github.com/quotient-erp/quotient/internal/shared"
	"github.com/quotient-erp/quotient/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
	auditLogger := shared.NewAuditLogger(pool)
	service := quotation.NewService(repo, generator, resolver, auditLogger, logger)
	renderer := pdf.New(cfg.CompanyName)
	handler := quotation.NewHandler(logger, service, renderer)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		QuotationHandler: handler,
		JobHandler:       jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
