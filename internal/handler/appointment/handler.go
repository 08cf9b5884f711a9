package appointment

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	playground "github.com/go-playground/validator/v10"

	"github.com/jwalitptl/booking-api/internal/handler"
	"github.com/jwalitptl/booking-api/internal/model"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/httputil"
)

// Service is the part of the scheduling service the handler calls.
type Service interface {
	CreateAppointment(ctx context.Context, requesterID int64, in model.CreateAppointmentInput) (*model.Appointment, error)
	CancelAppointment(ctx context.Context, requesterID, appointmentID int64) (*model.Appointment, error)
	ListAppointments(ctx context.Context, requesterID int64, page int) ([]*model.AppointmentListItem, error)
	PageSize() int
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.DELETE("/:id", h.CancelAppointment)
	}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	requesterID, err := handler.Requester(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var in model.CreateAppointmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		// Field rule failures are reported by the service with json names.
		var fieldErrs playground.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			httputil.RespondWithError(c, apperrors.Validation(apperrors.FieldError{
				Field:   "body",
				Message: "request body must be a JSON object with provider_id and date",
			}))
			return
		}
	}

	appointment, err := h.service.CreateAppointment(c.Request.Context(), requesterID, in)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, appointment)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	requesterID, err := handler.Requester(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	id, err := handler.IDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	appointment, err := h.service.CancelAppointment(c.Request.Context(), requesterID, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, appointment)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	requesterID, err := handler.Requester(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Validation(apperrors.FieldError{
				Field:   "page",
				Message: "page must be an integer",
			}))
			return
		}
	}

	appointments, err := h.service.ListAppointments(c.Request.Context(), requesterID, page)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithPagination(c, appointments, page, h.service.PageSize())
}
