package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/booking-api/internal/config"
	"github.com/jwalitptl/booking-api/internal/email"
	"github.com/jwalitptl/booking-api/internal/handler/health"
	"github.com/jwalitptl/booking-api/internal/handler/prometheus"
	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository/postgres"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
	"github.com/jwalitptl/booking-api/pkg/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:   logger.ParseLevel(cfg.Log.Level),
		Console: cfg.Log.Console,
	}).WithFields(map[string]interface{}{"service": "booking-worker"})
	log.Logger = appLogger.Zerolog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	sender, err := email.NewSender(email.Config{
		Driver: cfg.Email.Driver,
		SMTP: email.SMTPConfig{
			Host:     cfg.Email.SMTP.Host,
			Port:     cfg.Email.SMTP.Port,
			Username: cfg.Email.SMTP.Username,
			Password: cfg.Email.SMTP.Password,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
		},
		SendGrid: email.SendGridConfig{
			APIKey:   cfg.Email.SendGrid.APIKey,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
		},
		Breaker: email.BreakerConfig{
			MaxRequests:      cfg.Email.Breaker.MaxRequests,
			Interval:         cfg.Email.Breaker.Interval,
			Timeout:          cfg.Email.Breaker.Timeout,
			FailureThreshold: cfg.Email.Breaker.FailureThreshold,
		},
	}, appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create email sender")
	}

	renderer, err := email.NewRenderer(cfg.Locale.Name)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load email templates")
	}

	registry := prom.NewRegistry()
	workerMetrics := metrics.NewMetrics("booking", registry)

	base := postgres.NewBaseRepository(db)
	outboxRepo := postgres.NewOutboxRepository(base)
	processor := worker.NewOutboxProcessor(
		outboxRepo,
		map[string]worker.Handler{
			model.EventMailSend: email.NewMailHandler(renderer, sender),
		},
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
		},
		appLogger,
		workerMetrics,
	)
	cleanup := worker.NewOutboxCleanupWorker(outboxRepo, cfg.Outbox.Retention, time.Hour, appLogger)

	srv := healthServer(cfg.Outbox.HealthPort, registry, map[string]health.Check{"database": base.Ping})
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server failed")
			stop()
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()

	log.Info().Str("email_driver", cfg.Email.Driver).Msg("outbox worker started")
	<-ctx.Done()
	log.Info().Msg("shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}
	wg.Wait()

	log.Info().Msg("worker exited properly")
}

func healthServer(port int, registry *prom.Registry, checks map[string]health.Check) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	metricsH := prometheus.New(registry)
	engine.Use(middleware.Recovery(), metricsH.Middleware())
	health.NewHandler(checks).RegisterRoutes(&engine.RouterGroup)
	engine.GET("/metrics", metricsH.Handler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
