package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/floorops-backend/internal/cron"
	"github.com/angelmondragon/floorops-backend/internal/menu"
	"github.com/angelmondragon/floorops-backend/internal/orders"
	"github.com/angelmondragon/floorops-backend/internal/realtime"
	"github.com/angelmondragon/floorops-backend/internal/tax"
	"github.com/angelmondragon/floorops-backend/pkg/config"
	"github.com/angelmondragon/floorops-backend/pkg/db"
	"github.com/angelmondragon/floorops-backend/pkg/logger"
	"github.com/angelmondragon/floorops-backend/pkg/metrics"
	"github.com/angelmondragon/floorops-backend/pkg/migrate"
	"github.com/angelmondragon/floorops-backend/pkg/outbox"
	"github.com/angelmondragon/floorops-backend/pkg/redis"
)

const maintenanceInterval = 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)
	realtimeMetrics := metrics.NewRealtimeMetrics(prometheus.DefaultRegisterer)

	// Fired orders must reach the kitchen screens served by the api instances.
	transport, err := realtime.NewRedisTransport(redisClient)
	if err != nil {
		logg.Error(ctx, "failed to create realtime transport", err)
		os.Exit(1)
	}
	broadcaster, err := realtime.NewBroadcaster(realtime.BroadcasterParams{
		Transport:       transport,
		Logger:          logg,
		Metrics:         realtimeMetrics,
		QueueSize:       cfg.Realtime.QueueSize,
		Workers:         cfg.Realtime.Workers,
		DeliveryTimeout: cfg.Realtime.DeliveryTimeout,
	})
	if err != nil {
		logg.Error(ctx, "failed to create realtime broadcaster", err)
		os.Exit(1)
	}
	broadcaster.Start(ctx)
	defer broadcaster.Close()

	taxResolver, err := tax.NewResolver(tax.NewSettingsRepository(dbClient.DB()), tax.Options{
		TTL:       cfg.Orders.TaxCacheTTL,
		CacheSize: cfg.Orders.TaxCacheSize,
		Logger:    logg,
		Metrics:   orderMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create tax resolver", err)
		os.Exit(1)
	}
	catalog, err := menu.NewRepository(dbClient.DB())
	if err != nil {
		logg.Error(ctx, "failed to create menu catalog", err)
		os.Exit(1)
	}
	outboxRepo := outbox.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:                 orders.NewRepository(dbClient.DB()),
		Tx:                   dbClient,
		Outbox:               outbox.NewService(outboxRepo, logg),
		Taxes:                taxResolver,
		Catalog:              catalog,
		Broadcaster:          broadcaster,
		Logger:               logg,
		Metrics:              orderMetrics,
		WriteTimeout:         cfg.Orders.WriteTimeout,
		TotalsToleranceCents: cfg.Orders.TotalsToleranceCents,
		ActiveListLimit:      cfg.Orders.ActiveListLimit,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	fireJob, err := cron.NewScheduledFireJob(cron.ScheduledFireJobParams{
		Logger:    logg,
		Orders:    ordersService,
		Metrics:   cronMetrics,
		BatchSize: cfg.Cron.ScheduledFireBatch,
	})
	if err != nil {
		logg.Error(ctx, "failed to create scheduled fire job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Metrics:    cronMetrics,
		Retention:  cfg.Outbox.Retention,
	})
	if err != nil {
		logg.Error(ctx, "failed to create outbox retention job", err)
		os.Exit(1)
	}

	fast, err := newSchedule(logg, redisClient, cronMetrics, cfg, "scheduled", cfg.Cron.ScheduledFireInterval, fireJob)
	if err != nil {
		logg.Error(ctx, "failed to create scheduled-fire cron service", err)
		os.Exit(1)
	}
	daily, err := newSchedule(logg, redisClient, cronMetrics, cfg, "maintenance", maintenanceInterval, retentionJob)
	if err != nil {
		logg.Error(ctx, "failed to create maintenance cron service", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return fast.Run(gctx) })
	g.Go(func() error { return daily.Run(gctx) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func newSchedule(logg *logger.Logger, client *redis.Client, m *metrics.CronJobMetrics, cfg *config.Config, name string, interval time.Duration, jobs ...cron.Job) (*cron.Service, error) {
	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := cron.NewRedisLock(client, client.LockKey("cron-worker:"+env+":"+name), cfg.Cron.LockTTL)
	if err != nil {
		return nil, err
	}
	return cron.NewService(cron.ServiceParams{
		Name:     name,
		Logger:   logg,
		Registry: cron.NewRegistry(jobs...),
		Lock:     lock,
		Metrics:  m,
		Interval: interval,
	})
}
