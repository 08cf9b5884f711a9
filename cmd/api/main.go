package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/booking-api/internal/config"
	"github.com/jwalitptl/booking-api/internal/handler/appointment"
	"github.com/jwalitptl/booking-api/internal/handler/health"
	"github.com/jwalitptl/booking-api/internal/handler/prometheus"
	"github.com/jwalitptl/booking-api/internal/handler/provider"
	"github.com/jwalitptl/booking-api/internal/locale"
	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/repository/cache"
	"github.com/jwalitptl/booking-api/internal/repository/postgres"
	"github.com/jwalitptl/booking-api/internal/router"
	appointmentService "github.com/jwalitptl/booking-api/internal/service/appointment"
	notificationService "github.com/jwalitptl/booking-api/internal/service/notification"
	"github.com/jwalitptl/booking-api/pkg/auth"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/messaging"
	"github.com/jwalitptl/booking-api/pkg/messaging/redis"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:   logger.ParseLevel(cfg.Log.Level),
		Console: cfg.Log.Console,
	}).WithFields(map[string]interface{}{"service": "booking-api"})
	log.Logger = appLogger.Zerolog()

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	// Redis only carries in-app notices; the API keeps working without it.
	var broker messaging.Broker
	redisBroker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log.Logger)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, in-app notices will not be published")
	} else {
		broker = redisBroker
		defer redisBroker.Close()
	}

	registry := prom.NewRegistry()
	appMetrics := metrics.NewMetrics("booking", registry)

	formatter, err := locale.New(locale.Config{
		Name:                cfg.Locale.Name,
		Timezone:            cfg.Scheduling.Timezone,
		DateFormat:          cfg.Locale.DateFormat,
		NewAppointment:      cfg.Locale.NewAppointment,
		CancellationSubject: cfg.Locale.CancellationSubject,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid locale configuration")
	}

	// Initialize repositories
	base := postgres.NewBaseRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(base)
	users := cache.NewUserDirectory(postgres.NewUserRepository(base), cache.Config{
		TTL:             cfg.Cache.TTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
	})

	// Initialize services
	sink := notificationService.NewService(
		postgres.NewNotificationRepository(base),
		postgres.NewOutboxRepository(base),
		notificationService.Options{
			Broker:  broker,
			Channel: cfg.Redis.Channel,
			Logger:  appLogger,
			Metrics: appMetrics,
		},
	)
	appointmentSvc := appointmentService.NewService(
		appointmentRepo,
		users,
		sink,
		formatter,
		appointmentService.Config{
			CancellationLead: cfg.Scheduling.CancellationLead,
			WorkdayStart:     cfg.Scheduling.WorkdayStart,
			WorkdayEnd:       cfg.Scheduling.WorkdayEnd,
			PageSize:         cfg.Scheduling.PageSize,
			FilesBaseURL:     cfg.Files.BaseURL,
		},
		appointmentService.WithLogger(appLogger),
		appointmentService.WithMetrics(appMetrics),
	)

	// Initialize handlers
	checks := map[string]health.Check{"database": base.Ping}
	if redisBroker != nil {
		checks["redis"] = redisBroker.Ping
	}

	var limit rate.Limit
	if cfg.RateLimit.Enabled {
		limit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
	}

	r := router.NewRouter(
		middleware.NewAuthMiddleware(auth.NewJWTService(auth.Config{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})),
		health.NewHandler(checks),
		prometheus.New(registry),
		appointment.NewHandler(appointmentSvc),
		provider.NewHandler(appointmentSvc),
		router.RouterConfig{
			Mode:           cfg.Server.Mode,
			RateLimit:      limit,
			RateBurst:      cfg.RateLimit.Burst,
			RequestTimeout: cfg.Server.RequestTimeout,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			CORSConfig:     middleware.DefaultCORSConfig(cfg.Server.CORSOrigins...),
		},
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
