package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/messaging"
)

type fakeNotificationRepo struct {
	created []*model.Notification
	err     error
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, n)
	return nil
}

type fakeOutbox struct {
	repository.OutboxRepository
	events []*model.OutboxEvent
	err    error
}

func (o *fakeOutbox) Create(_ context.Context, e *model.OutboxEvent) error {
	if o.err != nil {
		return o.err
	}
	o.events = append(o.events, e)
	return nil
}

type published struct {
	channel string
	message interface{}
}

type fakeBroker struct {
	messaging.Broker
	published []published
	err       error
}

func (b *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, published{channel, message})
	return nil
}

func TestNotifyPersistsAndPublishes(t *testing.T) {
	repo := &fakeNotificationRepo{}
	broker := &fakeBroker{}
	sink := NewService(repo, &fakeOutbox{}, Options{Broker: broker})

	err := sink.Notify(context.Background(), model.InAppNotice{Content: "New appointment", RecipientUserID: 2})
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	assert.Equal(t, int64(2), repo.created[0].UserID)
	assert.Equal(t, "New appointment", repo.created[0].Content)
	assert.False(t, repo.created[0].Read)

	require.Len(t, broker.published, 1)
	assert.Equal(t, DefaultChannel, broker.published[0].channel)
	msg, ok := broker.published[0].message.(messaging.Message)
	require.True(t, ok)
	assert.Equal(t, "notification.created", msg.Type)
}

func TestNotifyIgnoresPublishFailure(t *testing.T) {
	repo := &fakeNotificationRepo{}
	sink := NewService(repo, &fakeOutbox{}, Options{Broker: &fakeBroker{err: errors.New("redis down")}})

	err := sink.Notify(context.Background(), model.InAppNotice{Content: "x", RecipientUserID: 2})
	require.NoError(t, err)
	assert.Len(t, repo.created, 1)
}

func TestNotifyWithoutBroker(t *testing.T) {
	repo := &fakeNotificationRepo{}
	sink := NewService(repo, &fakeOutbox{}, Options{})
	require.NoError(t, sink.Notify(context.Background(), model.InAppNotice{Content: "x", RecipientUserID: 2}))
	assert.Len(t, repo.created, 1)
}

func TestNotifyValidation(t *testing.T) {
	repo := &fakeNotificationRepo{}
	sink := NewService(repo, &fakeOutbox{}, Options{})

	err := sink.Notify(context.Background(), model.InAppNotice{RecipientUserID: 2})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	err = sink.Notify(context.Background(), model.InAppNotice{Content: "x"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Empty(t, repo.created)
}

func TestNotifyRepositoryFailure(t *testing.T) {
	sink := NewService(&fakeNotificationRepo{err: errors.New("db down")}, &fakeOutbox{}, Options{})
	err := sink.Notify(context.Background(), model.InAppNotice{Content: "x", RecipientUserID: 2})
	assert.Error(t, err)
}

func TestSendMailEnqueuesOutboxEvent(t *testing.T) {
	outbox := &fakeOutbox{}
	sink := NewService(&fakeNotificationRepo{}, outbox, Options{})

	mail := model.Mail{
		To:       "Dr. Bob <bob@example.com>",
		Subject:  "Appointment canceled",
		Template: "cancellation",
		Context:  model.JSONMap{"provider": "Dr. Bob", "user": "Alice", "date": "day 01 of May, at 10:00h"},
	}
	require.NoError(t, sink.SendMail(context.Background(), mail))

	require.Len(t, outbox.events, 1)
	assert.Equal(t, model.EventMailSend, outbox.events[0].EventType)

	var got model.Mail
	require.NoError(t, json.Unmarshal(outbox.events[0].Payload, &got))
	assert.Equal(t, mail.To, got.To)
	assert.Equal(t, "Alice", got.Context["user"])
}

func TestSendMailValidation(t *testing.T) {
	outbox := &fakeOutbox{}
	sink := NewService(&fakeNotificationRepo{}, outbox, Options{})

	err := sink.SendMail(context.Background(), model.Mail{Subject: "x", Template: "cancellation"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Empty(t, outbox.events)
}
