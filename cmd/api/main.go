package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/api/routes"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/attribution"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/capi"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/consent"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/dispatch"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/eventlog"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/internal/tracking"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/config"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/db"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/logger"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/metrics"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/migrate"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/pubsub"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/redis"
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

	trackingMetrics := metrics.NewTrackingMetrics(prometheus.DefaultRegisterer)

	store := attribution.NewStore(attribution.Options{
		KV:          redisClient,
		Key:         redisClient.AttributionKey(),
		TTL:         cfg.Tracking.AttributionTTL,
		CountryCode: cfg.Tracking.PhoneCountryCode,
		Logger:      logg,
	})
	gate := consent.NewGate(redisClient, redisClient.ConsentKey(), logg)

	var queue dispatch.EventQueue
	if cfg.GCP.ProjectID != "" && cfg.PubSub.TagEventsTopic != "" {
		pubsubClient, psErr := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if psErr != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", psErr)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		if q := dispatch.NewPubSubQueue(pubsubClient.TagEventsPublisher(), logg); q != nil {
			queue = q
		}
	}

	dispatcher := dispatch.New(dispatch.Options{
		Store:   store,
		Gate:    gate,
		Pixel:   dispatch.NewMetaPixel(cfg.Pixel, logg),
		Queue:   queue,
		Metrics: trackingMetrics,
		Logger:  logg,
	})

	relay := capi.NewClient(capi.Options{
		Config:  cfg.Relay,
		Store:   store,
		Gate:    gate,
		Metrics: trackingMetrics,
		Logger:  logg,
	})
	relay.Start(context.Background())

	logService, err := eventlog.NewService(eventlog.Options{
		Repo:       eventlog.NewRepository(dbClient.DB()),
		KV:         redisClient,
		SessionKey: redisClient.SessionKey(),
		Cap:        cfg.Tracking.EventLogCap,
		Metrics:    trackingMetrics,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create event log service", err)
		os.Exit(1)
	}

	trackingService, err := tracking.NewService(tracking.Options{
		Config:     cfg.Tracking,
		Store:      store,
		Gate:       gate,
		Dispatcher: dispatcher,
		Relay:      relay,
		Log:        logService,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create tracking service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, trackingService, logService),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var errs error
	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			errs = multierr.Append(errs, err)
		}
	case <-stopCtx.Done():
		logg.Info(ctx, "shutdown signal received, draining")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		errs = multierr.Append(errs, server.Shutdown(shutdownCtx))
	}

	// Close flushes queued relay deliveries before workers exit, on clean
	// shutdowns and on server failures alike.
	errs = multierr.Append(errs, relay.Close())
	if errs != nil {
		logg.Error(ctx, "shutdown finished with errors", errs)
		os.Exit(1)
	}
	logg.Info(ctx, "shutdown complete")
}
