package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/floorops-backend/api/controllers"
	"github.com/angelmondragon/floorops-backend/api/routes"
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

const (
	shutdownTimeout = 15 * time.Second
	relayBackoff    = 2 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	orderMetrics := metrics.NewOrderMetrics(registry)
	realtimeMetrics := metrics.NewRealtimeMetrics(registry)

	hub := realtime.NewHub(cfg.Realtime.SubscriberBuf, realtimeMetrics)
	var transport realtime.Transport = hub
	var relay *realtime.Relay
	if cfg.Realtime.UseRedis {
		redisTransport, err := realtime.NewRedisTransport(redisClient)
		if err != nil {
			logg.Error(ctx, "failed to create realtime transport", err)
			os.Exit(1)
		}
		transport = redisTransport
		relay, err = realtime.NewRelay(redisClient, hub, logg, realtimeMetrics)
		if err != nil {
			logg.Error(ctx, "failed to create realtime relay", err)
			os.Exit(1)
		}
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

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:                 orders.NewRepository(dbClient.DB()),
		Tx:                   dbClient,
		Outbox:               outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
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

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	instance := os.Getenv("HOSTNAME")
	if instance == "" {
		instance = "local"
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance,
	})

	// No WriteTimeout: the realtime stream holds responses open.
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config: cfg,
			Logger: logg,
			Readiness: map[string]controllers.Pinger{
				"db":    dbClient,
				"redis": redisClient,
			},
			Orders:      ordersService,
			Realtime:    hub,
			Idempotency: redisClient,
			RateLimiter: redisClient,
			Gatherer:    registry,
			HTTPMetrics: metrics.NewHTTPMetrics(registry),
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	broadcaster.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		broadcaster.Close()
		return err
	})
	if relay != nil {
		g.Go(func() error {
			runRelay(gctx, relay, logg)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

// runRelay keeps the cross-instance relay attached until ctx ends.
func runRelay(ctx context.Context, relay *realtime.Relay, logg *logger.Logger) {
	for {
		err := relay.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		logg.Error(ctx, "realtime relay detached, reconnecting", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(relayBackoff):
		}
	}
}
