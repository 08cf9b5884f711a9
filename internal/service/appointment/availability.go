package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/slot"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

const dayLayout = "2006-01-02"

// IsAvailable reports whether the provider has no active appointment at the
// given slot.
func (s *Service) IsAvailable(ctx context.Context, providerID int64, at time.Time) (bool, error) {
	taken, err := s.repo.SlotTaken(ctx, providerID, at)
	if err != nil {
		return false, fmt.Errorf("failed to check availability: %w", err)
	}
	return !taken, nil
}

// ListDayAvailability lists the working hours of day for the provider. A slot
// is available when it is neither taken nor in the past.
func (s *Service) ListDayAvailability(ctx context.Context, providerID int64, day string) ([]model.SlotAvailability, error) {
	start, err := time.ParseInLocation(dayLayout, day, s.formatter.Location())
	if err != nil {
		return nil, apperrors.Validation(apperrors.FieldError{
			Field:   "date",
			Message: "date must use the YYYY-MM-DD format",
		})
	}
	if _, err := s.lookupProvider(ctx, providerID); err != nil {
		return nil, err
	}

	taken, err := s.repo.ListTakenSlots(ctx, providerID, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list taken slots: %w", err)
	}
	takenAt := make(map[int64]struct{}, len(taken))
	for _, t := range taken {
		takenAt[t.Unix()] = struct{}{}
	}

	now := s.clock.Now()
	slots := make([]model.SlotAvailability, 0, s.cfg.WorkdayEnd-s.cfg.WorkdayStart+1)
	for hour := s.cfg.WorkdayStart; hour <= s.cfg.WorkdayEnd; hour++ {
		value := time.Date(start.Year(), start.Month(), start.Day(), hour, 0, 0, 0, start.Location())
		_, isTaken := takenAt[value.Unix()]
		slots = append(slots, model.SlotAvailability{
			Time:      fmt.Sprintf("%02d:00", hour),
			Value:     value,
			Available: !isTaken && !slot.IsPast(value, now),
		})
	}
	return slots, nil
}
