package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerline/ledgerline/internal/app"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/jobs"
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	auditLogger := shared.NewAuditLogger(pool)
	ledgerStore := ledger.NewRepository(pool)
	summaryCache := ledger.NewSummaryCache(redisClient, cfg.SummaryCacheTTL)
	ledgerService := ledger.NewService(ledgerStore, summaryCache, auditLogger, logger, ledger.ServiceConfig{
		OverdueAfter: cfg.OverdueAfter,
		MaxParallel:  cfg.BackfillParallelism,
	})

	reallocator := jobs.NewReallocator(ledgerService, redisClient, logger)
	cleaner := jobs.NewCleaner(shared.NewIdempotencyStore(pool), logger)

	customerBackfill, err := jobs.NewReallocateAllTask(jobs.ReallocateAllPayload{Kind: string(ledger.KindCustomer)})
	if err != nil {
		logger.Error("build customer backfill task", slog.Any("error", err))
		os.Exit(1)
	}
	supplierBackfill, err := jobs.NewReallocateAllTask(jobs.ReallocateAllPayload{Kind: string(ledger.KindSupplier)})
	if err != nil {
		logger.Error("build supplier backfill task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  append(reallocator.Handlers(), cleaner.Handlers()...),
		Cron: []jobs.CronRegistration{
			{Spec: "0 2 * * *", Task: customerBackfill, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 2 * * *", Task: supplierBackfill, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 4 * * *", Task: jobs.NewIdempotencyCleanupTask()},
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
