// Package handler holds helpers shared by the HTTP handlers.
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-api/internal/middleware"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

// IDParam reads a positive numeric path parameter.
func IDParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validation(apperrors.FieldError{
			Field:   name,
			Message: name + " must be a positive integer",
		})
	}
	return id, nil
}

// Requester is the authenticated user id. Routes are mounted behind
// middleware.AuthMiddleware, so a missing id means the chain is misconfigured.
func Requester(c *gin.Context) (int64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, apperrors.Unauthorized("token not provided")
	}
	return id, nil
}
