package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/radityaanwar/gayakita-backend/internal/batchstore"
	"github.com/radityaanwar/gayakita-backend/internal/movements"
	"github.com/radityaanwar/gayakita-backend/internal/queue"
	"github.com/radityaanwar/gayakita-backend/internal/stock"
	"github.com/radityaanwar/gayakita-backend/internal/worker"
	"github.com/radityaanwar/gayakita-backend/pkg/config"
	"github.com/radityaanwar/gayakita-backend/pkg/db"
	"github.com/radityaanwar/gayakita-backend/pkg/logger"
	"github.com/radityaanwar/gayakita-backend/pkg/metrics"
	"github.com/radityaanwar/gayakita-backend/pkg/migrate"
	"github.com/radityaanwar/gayakita-backend/pkg/redis"
)

const lockKeyFormat = "gk:queue-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "queue-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "queue-worker"

	logg = logger.New(logger.Options{
		ServiceName: "queue-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	batches, err := batchstore.New(dbClient, cfg.Batch, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create batch store", err)
		os.Exit(1)
	}

	movementSvc, err := movements.NewService(movements.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create movement service", err)
		os.Exit(1)
	}

	ledger, err := stock.NewLedger(batches, movementSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock ledger", err)
		os.Exit(1)
	}

	queueMetrics := metrics.NewQueueMetrics(prometheus.DefaultRegisterer)
	queueSvc, err := queue.NewService(queue.NewRepository(dbClient.DB()), ledger, logg, queueMetrics, cfg.Queue.DrainBatchSize)
	if err != nil {
		logg.Error(context.Background(), "failed to create queue service", err)
		os.Exit(1)
	}

	drainJob, err := queue.NewDrainJob(queueSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create drain job", err)
		os.Exit(1)
	}

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	lock, err := worker.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Queue.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	service, err := worker.NewService(worker.ServiceParams{
		Logger:   logg,
		Registry: worker.NewRegistry(drainJob),
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Queue.DrainInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting queue worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "queue worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "queue worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
