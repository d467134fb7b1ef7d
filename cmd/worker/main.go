package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/care-booking/config"
	"github.com/jwalitptl/care-booking/internal/email"
	"github.com/jwalitptl/care-booking/internal/repository/postgres"
	"github.com/jwalitptl/care-booking/internal/scheduling"
	internalWorker "github.com/jwalitptl/care-booking/internal/worker"
	"github.com/jwalitptl/care-booking/pkg/logger"
	"github.com/jwalitptl/care-booking/pkg/messaging"
	"github.com/jwalitptl/care-booking/pkg/messaging/redis"
	"github.com/jwalitptl/care-booking/pkg/metrics"
	"github.com/jwalitptl/care-booking/pkg/worker"
)

const healthAddr = ":8081"

func setupHealthCheck(store *postgres.Store, registry *prometheus.Registry, logger *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: healthAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "health check server failed")
		}
	}()
	return srv
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize logger
	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Logging.Console,
	}).WithFields(map[string]interface{}{"component": "worker"})
	appLogger.SetGlobal()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()
	store := postgres.NewStore(db)

	// Initialize Redis broker
	broker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.Zerolog())
	if err != nil {
		appLogger.Fatal(err, "failed to create Redis broker")
	}
	defer broker.Close()

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics("care_booking_worker", registry)

	processor := worker.NewOutboxProcessor(
		store.Repositories().Outbox,
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
			ClaimTTL:      cfg.Outbox.ClaimTTL,
			Channel:       cfg.Outbox.Channel,
		},
		appLogger,
		m,
	)
	cleanup := internalWorker.NewOutboxCleanupWorker(
		store.Repositories().Outbox,
		cfg.Outbox.Retention,
		cfg.Outbox.CleanupInterval,
		appLogger,
		m,
	)

	dispatcher := messaging.NewDispatcher(appLogger.Zerolog())
	internalWorker.NewOnboardingHandler(
		scheduling.NewClient(cfg.Scheduling, appLogger.Zerolog()),
		email.NewService(cfg.SMTP),
		cfg.Admin.Emails,
		appLogger,
	).Register(dispatcher)

	// Setup health check endpoints
	healthSrv := setupHealthCheck(store, registry, appLogger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutting down...")
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := dispatcher.Run(ctx, broker, cfg.Outbox.Channel); err != nil {
			appLogger.Error(err, "event dispatcher stopped")
		}
	}()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	appLogger.Info("worker exited")
}
