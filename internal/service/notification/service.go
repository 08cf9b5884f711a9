package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/messaging"
	"github.com/jwalitptl/booking-api/pkg/metrics"
	"github.com/jwalitptl/booking-api/pkg/validator"
)

const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"

	// DefaultChannel is the pub/sub channel in-app notices are published on.
	DefaultChannel = "notifications"

	eventNotificationCreated = "notification.created"
)

// Sink accepts notifications produced by booking state changes.
type Sink interface {
	Notify(ctx context.Context, notice model.InAppNotice) error
	SendMail(ctx context.Context, mail model.Mail) error
}

type service struct {
	repo      repository.NotificationRepository
	outbox    repository.OutboxRepository
	broker    messaging.Broker
	channel   string
	validator validator.Validator
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

type Options struct {
	// Broker is optional. The persisted notification is the source of truth.
	Broker  messaging.Broker
	Channel string
	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

func NewService(repo repository.NotificationRepository, outbox repository.OutboxRepository, opts Options) Sink {
	if opts.Channel == "" {
		opts.Channel = DefaultChannel
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	return &service{
		repo:      repo,
		outbox:    outbox,
		broker:    opts.Broker,
		channel:   opts.Channel,
		validator: validator.New(),
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

func (s *service) Notify(ctx context.Context, notice model.InAppNotice) error {
	if err := s.validator.Validate(notice); err != nil {
		return fmt.Errorf("invalid notification: %w", err)
	}

	n := &model.Notification{
		UserID:  notice.RecipientUserID,
		Content: notice.Content,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	s.metrics.NotificationsSent.WithLabelValues(ChannelInApp).Inc()

	if s.broker != nil {
		msg := messaging.Message{Type: eventNotificationCreated, Payload: n}
		if err := s.broker.Publish(ctx, s.channel, msg); err != nil {
			s.logger.Warn("failed to publish notification",
				"error", err.Error(),
				"notification_id", n.ID.String(),
				"user_id", n.UserID)
		}
	}
	return nil
}

func (s *service) SendMail(ctx context.Context, mail model.Mail) error {
	if err := s.validator.Validate(mail); err != nil {
		return fmt.Errorf("invalid mail: %w", err)
	}

	payload, err := json.Marshal(mail)
	if err != nil {
		return fmt.Errorf("failed to marshal mail: %w", err)
	}

	event := &model.OutboxEvent{
		EventType: model.EventMailSend,
		Payload:   payload,
	}
	if err := s.outbox.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to enqueue mail: %w", err)
	}
	s.metrics.NotificationsSent.WithLabelValues(ChannelEmail).Inc()
	return nil
}
