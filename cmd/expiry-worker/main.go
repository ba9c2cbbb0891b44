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
	"github.com/radityaanwar/gayakita-backend/internal/expiry"
	"github.com/radityaanwar/gayakita-backend/internal/movements"
	"github.com/radityaanwar/gayakita-backend/internal/notifications"
	"github.com/radityaanwar/gayakita-backend/internal/orders"
	"github.com/radityaanwar/gayakita-backend/internal/paymentgroups"
	"github.com/radityaanwar/gayakita-backend/internal/stock"
	"github.com/radityaanwar/gayakita-backend/internal/worker"
	"github.com/radityaanwar/gayakita-backend/pkg/config"
	"github.com/radityaanwar/gayakita-backend/pkg/db"
	"github.com/radityaanwar/gayakita-backend/pkg/logger"
	"github.com/radityaanwar/gayakita-backend/pkg/metrics"
	"github.com/radityaanwar/gayakita-backend/pkg/migrate"
	"github.com/radityaanwar/gayakita-backend/pkg/redis"
)

const lockKeyFormat = "gk:expiry-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "expiry-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "expiry-worker"

	logg = logger.New(logger.Options{
		ServiceName: "expiry-worker",
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
	orderSvc, err := orders.NewService(orders.NewRepository(dbClient.DB()), ledger, logg, queueMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	notifier, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	monitor, err := expiry.NewMonitor(orderSvc, notifier, cfg.Expiry, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create expiry monitor", err)
		os.Exit(1)
	}

	groupSvc, err := paymentgroups.NewService(paymentgroups.NewRepository(dbClient.DB()), cfg.PaymentGroups, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment group service", err)
		os.Exit(1)
	}

	groupSweep, err := expiry.NewGroupSweep(groupSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create group sweep", err)
		os.Exit(1)
	}

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	lock, err := worker.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Expiry.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	service, err := worker.NewService(worker.ServiceParams{
		Logger:   logg,
		Registry: worker.NewRegistry(monitor, groupSweep),
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Expiry.PollInterval,
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
	logg.Info(ctx, "starting expiry worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "expiry worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "expiry worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
