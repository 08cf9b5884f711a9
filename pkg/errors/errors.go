package errors

import (
	"fmt"
)

// Kind classifies an application error. The HTTP layer maps kinds to status
// codes; everything that is not an *AppError is an internal error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotAProvider
	KindSelfBooking
	KindPastDate
	KindSlotUnavailable
	KindNotFound
	KindUnauthorized
	KindCancellationWindow
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotAProvider:
		return "not_a_provider"
	case KindSelfBooking:
		return "self_booking"
	case KindPastDate:
		return "past_date"
	case KindSlotUnavailable:
		return "slot_unavailable"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindCancellationWindow:
		return "cancellation_window"
	default:
		return "internal"
	}
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError represents an application error
type AppError struct {
	Kind    Kind         `json:"-"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
	Err     error        `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports kind equality so callers can match with errors.Is against the
// sentinel values below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation         = &AppError{Kind: KindValidation, Message: "validation fails"}
	ErrNotAProvider       = &AppError{Kind: KindNotAProvider, Message: "appointments can only be created with providers"}
	ErrSelfBooking        = &AppError{Kind: KindSelfBooking, Message: "you cannot book an appointment with yourself"}
	ErrPastDate           = &AppError{Kind: KindPastDate, Message: "past dates are not permitted"}
	ErrSlotUnavailable    = &AppError{Kind: KindSlotUnavailable, Message: "appointment date is not available"}
	ErrNotFound           = &AppError{Kind: KindNotFound, Message: "not found"}
	ErrUnauthorized       = &AppError{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrCancellationWindow = &AppError{Kind: KindCancellationWindow, Message: "appointments can only be canceled up to the cancellation lead time"}
)

// Error constructors

func Validation(details ...FieldError) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: ErrValidation.Message,
		Details: details,
	}
}

func NotAProvider() *AppError {
	return &AppError{Kind: KindNotAProvider, Message: ErrNotAProvider.Message}
}

func SelfBooking() *AppError {
	return &AppError{Kind: KindSelfBooking, Message: ErrSelfBooking.Message}
}

func PastDate() *AppError {
	return &AppError{Kind: KindPastDate, Message: ErrPastDate.Message}
}

func SlotUnavailable(err error) *AppError {
	return &AppError{Kind: KindSlotUnavailable, Message: ErrSlotUnavailable.Message, Err: err}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func Unauthorized(message string) *AppError {
	if message == "" {
		message = ErrUnauthorized.Message
	}
	return &AppError{Kind: KindUnauthorized, Message: message}
}

func CancellationWindow(message string) *AppError {
	if message == "" {
		message = ErrCancellationWindow.Message
	}
	return &AppError{Kind: KindCancellationWindow, Message: message}
}

// As extracts the *AppError from err's chain, if any.
func As(err error) (*AppError, bool) {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			return appErr, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
