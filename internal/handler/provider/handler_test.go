package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/model"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

type fakeAvailability struct {
	err        error
	providerID int64
	day        string
}

func (f *fakeAvailability) ListDayAvailability(_ context.Context, providerID int64, day string) ([]model.SlotAvailability, error) {
	f.providerID, f.day = providerID, day
	if f.err != nil {
		return nil, f.err
	}
	return []model.SlotAvailability{
		{Time: "08:00", Value: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), Available: true},
	}, nil
}

func serve(svc AvailabilityService, target string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestListAvailability(t *testing.T) {
	svc := &fakeAvailability{}
	w := serve(svc, "/api/v1/providers/5/available?date=2024-05-01")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(5), svc.providerID)
	assert.Equal(t, "2024-05-01", svc.day)
	assert.Contains(t, w.Body.String(), `"time":"08:00"`)
	assert.Contains(t, w.Body.String(), `"available":true`)
}

func TestListAvailabilityErrors(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, serve(&fakeAvailability{}, "/api/v1/providers/x/available?date=2024-05-01").Code)

	svc := &fakeAvailability{err: apperrors.Validation(apperrors.FieldError{Field: "date", Message: "date must use the YYYY-MM-DD format"})}
	assert.Equal(t, http.StatusBadRequest, serve(svc, "/api/v1/providers/5/available").Code)

	svc = &fakeAvailability{err: apperrors.NotAProvider()}
	assert.Equal(t, http.StatusUnauthorized, serve(svc, "/api/v1/providers/5/available?date=2024-05-01").Code)
}
