package worker

import (
	"context"
	"errors"
	"maps"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

type retryMark struct {
	errMsg  string
	retryAt time.Time
}

type fakeOutboxRepo struct {
	repository.OutboxRepository
	pending   []*model.OutboxEvent
	processed []uuid.UUID
	retried   map[uuid.UUID]retryMark
	failed    map[uuid.UUID]string
	claimErr  error
	markErr   map[uuid.UUID]error
	deleted   time.Time
}

func newFakeOutboxRepo(events ...*model.OutboxEvent) *fakeOutboxRepo {
	return &fakeOutboxRepo{
		pending: events,
		retried: map[uuid.UUID]retryMark{},
		failed:  map[uuid.UUID]string{},
		markErr: map[uuid.UUID]error{},
	}
}

// WithTx restores the queue and the marks when fn fails.
func (r *fakeOutboxRepo) WithTx(_ context.Context, fn func(*sqlx.Tx) error) error {
	pending := append([]*model.OutboxEvent(nil), r.pending...)
	processed := append([]uuid.UUID(nil), r.processed...)
	retried := maps.Clone(r.retried)
	failed := maps.Clone(r.failed)

	if err := fn(nil); err != nil {
		r.pending, r.processed, r.retried, r.failed = pending, processed, retried, failed
		return err
	}
	return nil
}

func (r *fakeOutboxRepo) ClaimPending(_ context.Context, _ *sqlx.Tx, limit int) ([]*model.OutboxEvent, error) {
	if r.claimErr != nil {
		return nil, r.claimErr
	}
	if limit > len(r.pending) {
		limit = len(r.pending)
	}
	claimed := r.pending[:limit]
	r.pending = r.pending[limit:]
	return claimed, nil
}

func (r *fakeOutboxRepo) MarkProcessed(ctx context.Context, _ *sqlx.Tx, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.markErr[id]; err != nil {
		return err
	}
	r.processed = append(r.processed, id)
	return nil
}

func (r *fakeOutboxRepo) MarkRetry(_ context.Context, _ *sqlx.Tx, id uuid.UUID, errMsg string, retryAt time.Time) error {
	r.retried[id] = retryMark{errMsg, retryAt}
	return nil
}

func (r *fakeOutboxRepo) MarkFailed(_ context.Context, _ *sqlx.Tx, id uuid.UUID, errMsg string) error {
	r.failed[id] = errMsg
	return nil
}

func (r *fakeOutboxRepo) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.deleted = before
	return 3, nil
}

var testConfig = OutboxProcessorConfig{
	BatchSize:     10,
	PollInterval:  time.Second,
	RetryAttempts: 3,
	RetryDelay:    30 * time.Second,
}

func newEvent(eventType string, retries int) *model.OutboxEvent {
	return &model.OutboxEvent{
		ID:         uuid.New(),
		EventType:  eventType,
		Payload:    []byte(`{}`),
		Status:     model.OutboxStatusPending,
		RetryCount: retries,
	}
}

func newProcessor(repo *fakeOutboxRepo, handler Handler) *OutboxProcessor {
	p := NewOutboxProcessor(repo, map[string]Handler{model.EventMailSend: handler}, testConfig, logger.Nop(), metrics.NewNop())
	p.now = func() time.Time { return time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC) }
	return p
}

func TestProcessEventsMarksDelivered(t *testing.T) {
	evt := newEvent(model.EventMailSend, 0)
	repo := newFakeOutboxRepo(evt)

	var handled []uuid.UUID
	p := newProcessor(repo, HandlerFunc(func(_ context.Context, e *model.OutboxEvent) error {
		handled = append(handled, e.ID)
		return nil
	}))

	require.NoError(t, p.processEvents(context.Background()))
	assert.Equal(t, []uuid.UUID{evt.ID}, handled)
	assert.Equal(t, []uuid.UUID{evt.ID}, repo.processed)
}

func TestProcessEventsSchedulesLinearRetry(t *testing.T) {
	first := newEvent(model.EventMailSend, 0)
	second := newEvent(model.EventMailSend, 1)
	repo := newFakeOutboxRepo(first, second)

	p := newProcessor(repo, HandlerFunc(func(context.Context, *model.OutboxEvent) error {
		return errors.New("relay down")
	}))

	require.NoError(t, p.processEvents(context.Background()))

	now := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	assert.Equal(t, retryMark{"relay down", now.Add(30 * time.Second)}, repo.retried[first.ID])
	assert.Equal(t, retryMark{"relay down", now.Add(60 * time.Second)}, repo.retried[second.ID])
	assert.Empty(t, repo.failed)
	assert.Empty(t, repo.processed)
}

func TestProcessEventsFailsAfterLastAttempt(t *testing.T) {
	evt := newEvent(model.EventMailSend, 2)
	repo := newFakeOutboxRepo(evt)

	p := newProcessor(repo, HandlerFunc(func(context.Context, *model.OutboxEvent) error {
		return errors.New("mailbox unavailable")
	}))

	require.NoError(t, p.processEvents(context.Background()))
	assert.Equal(t, "mailbox unavailable", repo.failed[evt.ID])
	assert.Empty(t, repo.retried)
}

func TestProcessEventsFailsUnknownType(t *testing.T) {
	evt := newEvent("sms.send", 0)
	repo := newFakeOutboxRepo(evt)
	p := newProcessor(repo, HandlerFunc(func(context.Context, *model.OutboxEvent) error {
		t.Fatal("handler must not be called")
		return nil
	}))

	require.NoError(t, p.processEvents(context.Background()))
	assert.Contains(t, repo.failed[evt.ID], "no handler")
}

func TestProcessEventsClaimError(t *testing.T) {
	repo := newFakeOutboxRepo()
	repo.claimErr = errors.New("db down")
	p := newProcessor(repo, HandlerFunc(func(context.Context, *model.OutboxEvent) error { return nil }))

	assert.Error(t, p.processEvents(context.Background()))
}

func TestProcessEventsHonoursBatchSize(t *testing.T) {
	var events []*model.OutboxEvent
	for i := 0; i < 15; i++ {
		events = append(events, newEvent(model.EventMailSend, 0))
	}
	repo := newFakeOutboxRepo(events...)
	p := newProcessor(repo, HandlerFunc(func(context.Context, *model.OutboxEvent) error { return nil }))

	require.NoError(t, p.processEvents(context.Background()))
	assert.Len(t, repo.processed, 10)
}

func TestProcessEventsKeepsEarlierDeliveriesOnBookkeepingError(t *testing.T) {
	first := newEvent(model.EventMailSend, 0)
	second := newEvent(model.EventMailSend, 0)
	third := newEvent(model.EventMailSend, 0)
	repo := newFakeOutboxRepo(first, second, third)
	repo.markErr[second.ID] = errors.New("connection reset")

	var handled []uuid.UUID
	p := newProcessor(repo, HandlerFunc(func(_ context.Context, e *model.OutboxEvent) error {
		handled = append(handled, e.ID)
		return nil
	}))

	assert.Error(t, p.processEvents(context.Background()))
	assert.Equal(t, []uuid.UUID{first.ID}, repo.processed)
	assert.Equal(t, []*model.OutboxEvent{second, third}, repo.pending)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, handled)
}

func TestProcessEventsRecordsDeliveryWhenShutdownStartsMidBatch(t *testing.T) {
	first := newEvent(model.EventMailSend, 0)
	second := newEvent(model.EventMailSend, 0)
	repo := newFakeOutboxRepo(first, second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handled []uuid.UUID
	p := newProcessor(repo, HandlerFunc(func(_ context.Context, e *model.OutboxEvent) error {
		handled = append(handled, e.ID)
		cancel()
		return nil
	}))

	require.NoError(t, p.processEvents(ctx))
	assert.Equal(t, []uuid.UUID{first.ID}, repo.processed)
	assert.Equal(t, []uuid.UUID{first.ID}, handled)
	assert.Equal(t, []*model.OutboxEvent{second}, repo.pending)
}

func TestStartStopsOnCancel(t *testing.T) {
	repo := newFakeOutboxRepo()
	cfg := testConfig
	cfg.PollInterval = 10 * time.Millisecond
	p := NewOutboxProcessor(repo, nil, cfg, logger.Nop(), metrics.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("processor did not stop")
	}
}

func TestNewOutboxProcessorValidatesConfig(t *testing.T) {
	assert.Panics(t, func() {
		NewOutboxProcessor(newFakeOutboxRepo(), nil, OutboxProcessorConfig{}, logger.Nop(), metrics.NewNop())
	})
}

func TestCleanupDeletesBeforeRetention(t *testing.T) {
	repo := newFakeOutboxRepo()
	w := NewOutboxCleanupWorker(repo, 24*time.Hour, time.Hour, logger.Nop())

	now := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	w.runOnce(context.Background(), now)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), repo.deleted)
}
