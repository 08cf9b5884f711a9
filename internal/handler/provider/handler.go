package provider

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-api/internal/handler"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/pkg/httputil"
)

type AvailabilityService interface {
	ListDayAvailability(ctx context.Context, providerID int64, day string) ([]model.SlotAvailability, error)
}

type Handler struct {
	service AvailabilityService
}

func NewHandler(service AvailabilityService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	providers := r.Group("/providers")
	{
		providers.GET("/:id/available", h.ListAvailability)
	}
}

// ListAvailability answers GET /providers/:id/available?date=YYYY-MM-DD.
func (h *Handler) ListAvailability(c *gin.Context) {
	id, err := handler.IDParam(c, "id")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	slots, err := h.service.ListDayAvailability(c.Request.Context(), id, c.Query("date"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, slots)
}
