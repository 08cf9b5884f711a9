package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/booking-api/internal/model"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSlotTaken is returned when the provider already holds a non-canceled
	// appointment at the requested slot.
	ErrSlotTaken = errors.New("slot already taken")
	// ErrAlreadyCanceled is returned when a cancellation matched no active row.
	ErrAlreadyCanceled = errors.New("appointment already canceled")
)

// All repository interfaces in one file
type (
	AppointmentRepository interface {
		// SlotTaken reports whether a non-canceled appointment exists at slot.
		SlotTaken(ctx context.Context, providerID int64, slot time.Time) (bool, error)
		Create(ctx context.Context, appointment *model.Appointment) error
		LoadByID(ctx context.Context, id int64) (*model.AppointmentDetails, error)
		// UpdateCancellation sets canceled_at only when it is still null.
		UpdateCancellation(ctx context.Context, id int64, at time.Time) (*model.Appointment, error)
		ListActiveByUser(ctx context.Context, userID int64, limit, offset int) ([]*model.AppointmentListItem, error)
		ListTakenSlots(ctx context.Context, providerID int64, from, to time.Time) ([]time.Time, error)
	}

	// UserDirectory is the read side of the user store.
	UserDirectory interface {
		Get(ctx context.Context, id int64) (*model.User, error)
		// GetProvider returns ErrNotFound when the user is missing or is not a
		// provider.
		GetProvider(ctx context.Context, id int64) (*model.User, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending locks up to limit due events for the lifetime of tx.
		ClaimPending(ctx context.Context, tx *sqlx.Tx, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error
		MarkRetry(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, errMsg string, retryAt time.Time) error
		MarkFailed(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, errMsg string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
		WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error
	}
)
