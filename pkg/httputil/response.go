package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/booking-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    int                 `json:"code"`
	Kind    string              `json:"kind,omitempty"`
	Message string              `json:"message"`
	Details []errors.FieldError `json:"details,omitempty"`
}

// Pagination represents pagination metadata
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// PaginatedResponse wraps paginated data
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind errors.Kind) int {
	switch kind {
	case errors.KindValidation, errors.KindPastDate, errors.KindSlotUnavailable:
		return http.StatusBadRequest
	case errors.KindNotAProvider, errors.KindSelfBooking, errors.KindUnauthorized, errors.KindCancellationWindow:
		return http.StatusUnauthorized
	case errors.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError sends an error response. Errors that are not *errors.AppError
// are logged and reported as a generic server error.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := errors.As(err)
	if !ok || appErr.Kind == errors.KindInternal {
		log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")

		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error: &Error{
				Code:    http.StatusInternalServerError,
				Message: "internal server error",
			},
		})
		return
	}

	statusCode := StatusFor(appErr.Kind)
	c.JSON(statusCode, Response{
		Success: false,
		Error: &Error{
			Code:    statusCode,
			Kind:    appErr.Kind.String(),
			Message: appErr.Message,
			Details: appErr.Details,
		},
	})
}

// RespondWithPagination sends a paginated response
func RespondWithPagination(c *gin.Context, data interface{}, page, pageSize int) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: PaginatedResponse{
			Data: data,
			Pagination: Pagination{
				Page:     page,
				PageSize: pageSize,
			},
		},
	})
}

// AbortWithStatus stops the chain with an error envelope for statuses that
// have no error kind, such as 413, 429 or 504.
func AbortWithStatus(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error: &Error{
			Code:    status,
			Message: message,
		},
	})
}
