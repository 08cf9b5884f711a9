package model

// User is an account of the user directory. Providers are users that can
// receive bookings.
type User struct {
	Base
	Name     string `json:"name" db:"name"`
	Email    string `json:"email" db:"email"`
	Provider bool   `json:"provider" db:"provider"`
	AvatarID *int64 `json:"avatar_id,omitempty" db:"avatar_id"`
}

// UserSummary is the slice of a user embedded in other responses.
type UserSummary struct {
	ID     int64  `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Email  string `json:"email,omitempty" db:"email"`
	Avatar *File  `json:"avatar,omitempty" db:"-"`
}
