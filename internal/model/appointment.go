package model

import (
	"time"
)

// Appointment is one booking of a provider's hour slot by a user.
type Appointment struct {
	Base
	Date       time.Time  `db:"date" json:"date"`
	UserID     int64      `db:"user_id" json:"user_id"`
	ProviderID int64      `db:"provider_id" json:"provider_id"`
	CanceledAt *time.Time `db:"canceled_at" json:"canceled_at"`
	Past       bool       `db:"-" json:"past"`
	Cancelable bool       `db:"-" json:"cancelable"`
}

// IsCanceled reports whether the appointment was soft-canceled.
func (a *Appointment) IsCanceled() bool {
	return a.CanceledAt != nil
}

// AppointmentDetails is an appointment with the denormalized names needed to
// notify about it.
type AppointmentDetails struct {
	Appointment
	Provider UserSummary `db:"provider" json:"provider"`
	User     UserSummary `db:"user" json:"user"`
}

// AppointmentListItem is one row of the requester's upcoming appointments.
type AppointmentListItem struct {
	ID         int64       `json:"id"`
	Date       time.Time   `json:"date"`
	Past       bool        `json:"past"`
	Cancelable bool        `json:"cancelable"`
	Provider   UserSummary `json:"provider"`
}

// CreateAppointmentInput is the booking request body.
type CreateAppointmentInput struct {
	ProviderID int64  `json:"provider_id" binding:"required,gt=0" validate:"required,gt=0"`
	Date       string `json:"date" binding:"required" validate:"required"`
}

// SlotAvailability is one bookable hour of a provider's day.
type SlotAvailability struct {
	Time      string    `json:"time"`
	Value     time.Time `json:"value"`
	Available bool      `json:"available"`
}
