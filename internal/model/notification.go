package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app notice addressed to a user. Notices are only
// appended, never edited by this service.
type Notification struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    int64     `json:"user" db:"user_id"`
	Content   string    `json:"content" db:"content"`
	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// InAppNotice asks the sink to notify a user inside the application.
type InAppNotice struct {
	Content         string `json:"content" validate:"required"`
	RecipientUserID int64  `json:"user" validate:"required,gt=0"`
}

// Mail is a request to send a templated e-mail. To accepts "Name <address>".
type Mail struct {
	To       string  `json:"to" validate:"required"`
	Subject  string  `json:"subject" validate:"required"`
	Template string  `json:"template" validate:"required"`
	Context  JSONMap `json:"context"`
}
