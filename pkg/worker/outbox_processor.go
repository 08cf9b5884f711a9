package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// RetryAttempts is the total number of deliveries tried before an event
	// is marked failed.
	RetryAttempts int
	// RetryDelay grows linearly: the n-th retry waits n*RetryDelay.
	RetryDelay time.Duration
}

// Handler delivers one outbox event.
type Handler interface {
	Handle(ctx context.Context, event *model.OutboxEvent) error
}

type HandlerFunc func(ctx context.Context, event *model.OutboxEvent) error

func (f HandlerFunc) Handle(ctx context.Context, event *model.OutboxEvent) error {
	return f(ctx, event)
}

type OutboxProcessor struct {
	repo     repository.OutboxRepository
	handlers map[string]Handler
	config   OutboxProcessorConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	handlers map[string]Handler,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	// Config validation instead of defaults
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &OutboxProcessor{
		repo:     repo,
		handlers: handlers,
		config:   config,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.processEvents(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

// processEvents settles up to BatchSize events, one transaction each, so a
// bookkeeping failure only rolls back the event it happened on.
func (p *OutboxProcessor) processEvents(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	for i := 0; i < p.config.BatchSize; i++ {
		if ctx.Err() != nil {
			return nil
		}
		drained, err := p.processNext(ctx)
		if err != nil {
			return err
		}
		if drained {
			return nil
		}
	}
	return nil
}

// processNext claims one event and records its outcome. The transaction
// outlives ctx so shutdown cannot roll back a delivery that already happened.
func (p *OutboxProcessor) processNext(ctx context.Context) (bool, error) {
	txCtx := context.WithoutCancel(ctx)
	drained := false

	err := p.repo.WithTx(txCtx, func(tx *sqlx.Tx) error {
		events, err := p.repo.ClaimPending(txCtx, tx, 1)
		if err != nil {
			p.metrics.DatabaseOperations.WithLabelValues("claim_pending_events", "error").Inc()
			return fmt.Errorf("failed to get pending events: %w", err)
		}
		p.metrics.DatabaseOperations.WithLabelValues("claim_pending_events", "success").Inc()

		if len(events) == 0 {
			drained = true
			return nil
		}
		return p.processEvent(ctx, txCtx, tx, events[0])
	})
	return drained, err
}

// processEvent only returns bookkeeping errors. Delivery errors are recorded
// on the event.
func (p *OutboxProcessor) processEvent(ctx, txCtx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	handler, ok := p.handlers[event.EventType]
	if !ok {
		p.metrics.OutboxEventsFailed.Inc()
		p.logger.Warn("No handler for outbox event",
			"event_id", event.ID.String(),
			"event_type", event.EventType)
		return p.repo.MarkFailed(txCtx, tx, event.ID, fmt.Sprintf("no handler for event type %q", event.EventType))
	}

	err := handler.Handle(ctx, event)
	if err == nil {
		p.metrics.OutboxEventsProcessed.Inc()
		return p.repo.MarkProcessed(txCtx, tx, event.ID)
	}

	attempt := event.RetryCount + 1
	if attempt >= p.config.RetryAttempts {
		p.metrics.OutboxEventsFailed.Inc()
		p.logger.Error(err, "Outbox event failed permanently",
			"event_id", event.ID.String(),
			"event_type", event.EventType,
			"attempts", attempt)
		return p.repo.MarkFailed(txCtx, tx, event.ID, err.Error())
	}

	p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
	retryAt := p.now().Add(time.Duration(attempt) * p.config.RetryDelay)
	p.logger.Warn("Outbox event delivery failed, retrying",
		"event_id", event.ID.String(),
		"event_type", event.EventType,
		"attempt", attempt,
		"retry_at", retryAt,
		"error", err.Error())
	return p.repo.MarkRetry(txCtx, tx, event.ID, err.Error(), retryAt)
}
