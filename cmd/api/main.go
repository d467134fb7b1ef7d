package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/care-booking/config"
	adminHandler "github.com/jwalitptl/care-booking/internal/handler/admin"
	bookingHandler "github.com/jwalitptl/care-booking/internal/handler/booking"
	catalogHandler "github.com/jwalitptl/care-booking/internal/handler/catalog"
	"github.com/jwalitptl/care-booking/internal/handler/health"
	identityHandler "github.com/jwalitptl/care-booking/internal/handler/identity"
	onboardingHandler "github.com/jwalitptl/care-booking/internal/handler/onboarding"
	"github.com/jwalitptl/care-booking/internal/middleware"
	"github.com/jwalitptl/care-booking/internal/policy"
	"github.com/jwalitptl/care-booking/internal/repository/postgres"
	"github.com/jwalitptl/care-booking/internal/router"
	adminService "github.com/jwalitptl/care-booking/internal/service/admin"
	bookingService "github.com/jwalitptl/care-booking/internal/service/booking"
	catalogService "github.com/jwalitptl/care-booking/internal/service/catalog"
	identityService "github.com/jwalitptl/care-booking/internal/service/identity"
	onboardingService "github.com/jwalitptl/care-booking/internal/service/onboarding"
	"github.com/jwalitptl/care-booking/pkg/auth"
	"github.com/jwalitptl/care-booking/pkg/logger"
	"github.com/jwalitptl/care-booking/pkg/messaging"
	"github.com/jwalitptl/care-booking/pkg/messaging/redis"
	"github.com/jwalitptl/care-booking/pkg/metrics"
	"github.com/jwalitptl/care-booking/pkg/security"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Logging.Console,
	})
	appLogger.SetGlobal()

	ctx := context.Background()

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	store := postgres.NewStore(db)
	repos := store.Repositories()

	// Redis is optional for the API: it only backs the degraded onboarding ack.
	var queue messaging.Queue
	var redisPinger health.Pinger
	broker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.Zerolog())
	if err != nil {
		appLogger.Warn("redis unavailable, degraded onboarding ack disabled", "error", err.Error())
	} else {
		defer broker.Close()
		queue = broker
		redisPinger = broker
	}

	sealer, err := security.NewSecretboxEncryptorHex(cfg.Auth.SealingKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize credential sealer")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics("care_booking", registry)

	// Initialize services
	identitySvc := identityService.NewService(repos.Profiles)
	bookingSvc := bookingService.NewService(repos.Bookings, store, m)
	onboardingSvc := onboardingService.NewService(store, sealer, appLogger, m)
	catalogSvc := catalogService.NewService(repos.Providers, repos.Services)
	adminSvc := adminService.NewService(store.Admin(), repos.Bookings, repos.Providers, store, cfg.Admin)

	// Initialize middleware
	tokens := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, time.Duration(cfg.Auth.ExpiryHours)*time.Hour)
	admins := policy.Any(
		policy.NewStaticAllowList(cfg.Admin.Emails),
		policy.NewRoleEvaluator(repos.Profiles),
	)
	authMiddleware := middleware.NewAuthMiddleware(tokens, admins)

	// Setup router
	r := router.NewRouter(authMiddleware, router.Handlers{
		Health:   health.NewHandler(store, redisPinger),
		Identity: identityHandler.NewHandler(identitySvc),
		Bookings: bookingHandler.NewHandler(bookingSvc, identitySvc),
		Onboarding: onboardingHandler.NewHandler(onboardingSvc, queue, sealer, onboardingHandler.Config{
			DegradedAck: cfg.Onboarding.DegradedAck,
			PendingList: cfg.Onboarding.PendingList,
		}, appLogger),
		Catalog: catalogHandler.NewHandler(catalogSvc),
		Admin:   adminHandler.NewHandler(adminSvc),
	}, router.RouterConfig{
		Mode:             cfg.Server.Mode,
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		RequestTimeout:   cfg.Server.RequestTimeout,
		Registry:         registry,
	})
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// Start server
	go func() {
		appLogger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
