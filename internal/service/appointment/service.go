package appointment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"time"

	"github.com/jwalitptl/booking-api/internal/locale"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/internal/service/notification"
	"github.com/jwalitptl/booking-api/internal/slot"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
	"github.com/jwalitptl/booking-api/pkg/validator"
)

const (
	DefaultPageSize     = 20
	DefaultWorkdayStart = 8
	DefaultWorkdayEnd   = 19

	cancellationTemplate = "cancellation"
)

type Config struct {
	CancellationLead time.Duration
	WorkdayStart     int
	WorkdayEnd       int
	PageSize         int
	FilesBaseURL     string
}

type Option func(*Service)

func WithClock(c slot.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

type Service struct {
	repo      repository.AppointmentRepository
	users     repository.UserDirectory
	sink      notification.Sink
	formatter *locale.Formatter
	validator validator.Validator
	clock     slot.Clock
	cfg       Config
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewService(
	repo repository.AppointmentRepository,
	users repository.UserDirectory,
	sink notification.Sink,
	formatter *locale.Formatter,
	cfg Config,
	opts ...Option,
) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.WorkdayStart == 0 && cfg.WorkdayEnd == 0 {
		cfg.WorkdayStart, cfg.WorkdayEnd = DefaultWorkdayStart, DefaultWorkdayEnd
	}

	s := &Service{
		repo:      repo,
		users:     users,
		sink:      sink,
		formatter: formatter,
		validator: validator.New(),
		clock:     slot.SystemClock{},
		cfg:       cfg,
		logger:    logger.Nop(),
		metrics:   metrics.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAppointment books the hour slot containing in.Date with the provider
// for requesterID. Nothing is written unless every rule passes.
func (s *Service) CreateAppointment(ctx context.Context, requesterID int64, in model.CreateAppointmentInput) (*model.Appointment, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, s.reject("create", err)
	}
	date, err := slot.ParseDate(in.Date, s.formatter.Location())
	if err != nil {
		return nil, s.reject("create", apperrors.Validation(apperrors.FieldError{
			Field:   "date",
			Message: "date must be a valid ISO-8601 date-time",
		}))
	}

	if _, err := s.lookupProvider(ctx, in.ProviderID); err != nil {
		return nil, s.reject("create", err)
	}
	if requesterID == in.ProviderID {
		return nil, s.reject("create", apperrors.SelfBooking())
	}

	hourStart := slot.NormalizeToHourStart(date, s.formatter.Location())
	now := s.clock.Now()
	if slot.IsPast(hourStart, now) {
		return nil, s.reject("create", apperrors.PastDate())
	}

	available, err := s.IsAvailable(ctx, in.ProviderID, hourStart)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, s.reject("create", apperrors.SlotUnavailable(nil))
	}

	appt := &model.Appointment{
		UserID:     requesterID,
		ProviderID: in.ProviderID,
		Date:       hourStart,
	}
	if err := s.repo.Create(ctx, appt); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, s.reject("create", apperrors.SlotUnavailable(err))
		}
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}
	s.metrics.AppointmentsCreated.Inc()

	if err := s.notifyCreated(ctx, requesterID, appt); err != nil {
		s.metrics.NotificationFailures.WithLabelValues(notification.ChannelInApp).Inc()
		s.logger.Error(err, "failed to notify provider of new appointment",
			"appointment_id", appt.ID,
			"provider_id", appt.ProviderID)
	}

	s.decorate(appt, now)
	return appt, nil
}

func (s *Service) notifyCreated(ctx context.Context, requesterID int64, appt *model.Appointment) error {
	user, err := s.users.Get(ctx, requesterID)
	if err != nil {
		return fmt.Errorf("failed to get requester: %w", err)
	}
	content, err := s.formatter.NewAppointmentMessage(user.Name, appt.Date)
	if err != nil {
		return err
	}
	return s.sink.Notify(ctx, model.InAppNotice{
		Content:         content,
		RecipientUserID: appt.ProviderID,
	})
}

// CancelAppointment soft-cancels an appointment owned by requesterID and
// e-mails the provider.
func (s *Service) CancelAppointment(ctx context.Context, requesterID, appointmentID int64) (*model.Appointment, error) {
	details, err := s.repo.LoadByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.reject("cancel", apperrors.NotFound("appointment", err))
		}
		return nil, fmt.Errorf("failed to load appointment: %w", err)
	}

	if details.UserID != requesterID {
		return nil, s.reject("cancel", apperrors.Unauthorized("you don't have permission to cancel this appointment"))
	}
	if details.IsCanceled() {
		return nil, s.reject("cancel", apperrors.CancellationWindow("appointment already canceled"))
	}

	now := s.clock.Now()
	if slot.IsWithinLeadTime(details.Date, s.cfg.CancellationLead, now) {
		return nil, s.reject("cancel", apperrors.CancellationWindow(
			fmt.Sprintf("you can only cancel appointments %s in advance", formatLead(s.cfg.CancellationLead))))
	}

	appt, err := s.repo.UpdateCancellation(ctx, appointmentID, now)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyCanceled) {
			return nil, s.reject("cancel", apperrors.CancellationWindow("appointment already canceled"))
		}
		return nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}
	s.metrics.AppointmentsCanceled.Inc()

	if err := s.mailCancellation(ctx, details); err != nil {
		s.metrics.NotificationFailures.WithLabelValues(notification.ChannelEmail).Inc()
		s.logger.Error(err, "failed to enqueue cancellation mail",
			"appointment_id", appointmentID,
			"provider_id", details.ProviderID)
	}

	s.decorate(appt, now)
	return appt, nil
}

func (s *Service) mailCancellation(ctx context.Context, details *model.AppointmentDetails) error {
	date, err := s.formatter.FormatSlot(details.Date)
	if err != nil {
		return err
	}
	to := (&mail.Address{Name: details.Provider.Name, Address: details.Provider.Email}).String()

	return s.sink.SendMail(ctx, model.Mail{
		To:       to,
		Subject:  s.formatter.CancellationSubject(),
		Template: cancellationTemplate,
		Context: model.JSONMap{
			"provider": details.Provider.Name,
			"user":     details.User.Name,
			"date":     date,
		},
	})
}

// ListAppointments returns one page of the requester's non-canceled
// appointments, earliest first.
func (s *Service) ListAppointments(ctx context.Context, requesterID int64, page int) ([]*model.AppointmentListItem, error) {
	if page < 1 {
		return nil, apperrors.Validation(apperrors.FieldError{
			Field:   "page",
			Message: "page must be greater than or equal to 1",
		})
	}
	if page > math.MaxInt/s.cfg.PageSize {
		return nil, apperrors.Validation(apperrors.FieldError{
			Field:   "page",
			Message: "page is out of range",
		})
	}

	p := model.Pagination{Page: page, PageSize: s.cfg.PageSize}
	items, err := s.repo.ListActiveByUser(ctx, requesterID, p.PageSize, p.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	now := s.clock.Now()
	for _, item := range items {
		item.Past = slot.IsPast(item.Date, now)
		item.Cancelable = !slot.IsWithinLeadTime(item.Date, s.cfg.CancellationLead, now)
		item.Provider.Avatar = item.Provider.Avatar.WithURL(s.cfg.FilesBaseURL)
	}
	return items, nil
}

// PageSize is the fixed number of items per list page.
func (s *Service) PageSize() int {
	return s.cfg.PageSize
}

func (s *Service) lookupProvider(ctx context.Context, providerID int64) (*model.User, error) {
	provider, err := s.users.GetProvider(ctx, providerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotAProvider()
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return provider, nil
}

func (s *Service) decorate(appt *model.Appointment, now time.Time) {
	appt.Past = slot.IsPast(appt.Date, now)
	appt.Cancelable = !appt.IsCanceled() && !slot.IsWithinLeadTime(appt.Date, s.cfg.CancellationLead, now)
}

// reject counts business rule refusals before returning err.
func (s *Service) reject(operation string, err error) error {
	if appErr, ok := apperrors.As(err); ok {
		s.metrics.BookingRejections.WithLabelValues(operation, appErr.Kind.String()).Inc()
	}
	return err
}

func formatLead(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return d.String()
}
