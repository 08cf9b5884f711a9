package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
)

// activeSlotIndex guards one non-canceled appointment per provider and slot.
const activeSlotIndex = "appointments_provider_slot_active_idx"

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

func (r *appointmentRepository) SlotTaken(ctx context.Context, providerID int64, slot time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE provider_id = $1 AND date = $2 AND canceled_at IS NULL
		)
	`
	var taken bool
	if err := r.db.GetContext(ctx, &taken, query, providerID, slot); err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return taken, nil
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			user_id, provider_id, date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $4)
		RETURNING id
	`
	now := time.Now()
	appointment.CanceledAt = nil
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	err := r.db.QueryRowxContext(ctx, query,
		appointment.UserID,
		appointment.ProviderID,
		appointment.Date,
		now,
	).Scan(&appointment.ID)
	if err != nil {
		if isUniqueViolation(err, activeSlotIndex) {
			return repository.ErrSlotTaken
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) LoadByID(ctx context.Context, id int64) (*model.AppointmentDetails, error) {
	query := `
		SELECT a.id, a.date, a.user_id, a.provider_id, a.canceled_at,
			   a.created_at, a.updated_at,
			   p.id AS "provider.id", p.name AS "provider.name", p.email AS "provider.email",
			   u.id AS "user.id", u.name AS "user.name", u.email AS "user.email"
		FROM appointments a
		JOIN users p ON p.id = a.provider_id
		JOIN users u ON u.id = a.user_id
		WHERE a.id = $1
	`
	var details model.AppointmentDetails
	if err := r.db.GetContext(ctx, &details, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &details, nil
}

func (r *appointmentRepository) UpdateCancellation(ctx context.Context, id int64, at time.Time) (*model.Appointment, error) {
	query := `
		UPDATE appointments
		SET canceled_at = $2, updated_at = $2
		WHERE id = $1 AND canceled_at IS NULL
		RETURNING id, date, user_id, provider_id, canceled_at, created_at, updated_at
	`
	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrAlreadyCanceled
		}
		return nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}
	return &appointment, nil
}

type appointmentListRow struct {
	ID           int64          `db:"id"`
	Date         time.Time      `db:"date"`
	ProviderID   int64          `db:"provider_id"`
	ProviderName string         `db:"provider_name"`
	AvatarID     sql.NullInt64  `db:"avatar_id"`
	AvatarPath   sql.NullString `db:"avatar_path"`
}

func (r *appointmentRepository) ListActiveByUser(ctx context.Context, userID int64, limit, offset int) ([]*model.AppointmentListItem, error) {
	query := `
		SELECT a.id, a.date, p.id AS provider_id, p.name AS provider_name,
			   f.id AS avatar_id, f.path AS avatar_path
		FROM appointments a
		JOIN users p ON p.id = a.provider_id
		LEFT JOIN files f ON f.id = p.avatar_id
		WHERE a.user_id = $1 AND a.canceled_at IS NULL
		ORDER BY a.date ASC
		LIMIT $2 OFFSET $3
	`
	var rows []appointmentListRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	items := make([]*model.AppointmentListItem, 0, len(rows))
	for _, row := range rows {
		item := &model.AppointmentListItem{
			ID:   row.ID,
			Date: row.Date,
			Provider: model.UserSummary{
				ID:   row.ProviderID,
				Name: row.ProviderName,
			},
		}
		if row.AvatarID.Valid {
			item.Provider.Avatar = &model.File{ID: row.AvatarID.Int64, Path: row.AvatarPath.String}
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *appointmentRepository) ListTakenSlots(ctx context.Context, providerID int64, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT date FROM appointments
		WHERE provider_id = $1 AND canceled_at IS NULL
		AND date >= $2 AND date < $3
		ORDER BY date ASC
	`
	var slots []time.Time
	if err := r.db.SelectContext(ctx, &slots, query, providerID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list taken slots: %w", err)
	}
	return slots, nil
}
