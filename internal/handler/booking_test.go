package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/event-booking/internal/booking"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/payment"
	"github.com/iliyamo/event-booking/internal/repository"
)

// Stubs returning wrapped sentinel errors, the way a future repository
// layer might annotate them.  The handler mapping must still recognize
// them.

type stubInventory struct{}

func (stubInventory) GetByID(context.Context, uint64) (*model.Event, error) {
	return nil, fmt.Errorf("load event: %w", repository.ErrEventNotFound)
}
func (stubInventory) TryDecrementSeats(context.Context, uint64, uint32) (bool, error) {
	return false, nil
}
func (stubInventory) IncrementSeats(context.Context, uint64, uint32) error { return nil }

type stubLedger struct{}

func (stubLedger) Create(context.Context, *model.Booking) error              { return nil }
func (stubLedger) SetPaymentRef(context.Context, uint64, string) error       { return nil }
func (stubLedger) Transition(context.Context, uint64, string, string) (bool, error) {
	return false, nil
}
func (stubLedger) ExpireStale(context.Context, time.Time) (int64, error) { return 0, nil }
func (stubLedger) GetByID(context.Context, uint64) (*model.Booking, error) {
	return nil, fmt.Errorf("load booking: %w", repository.ErrBookingNotFound)
}
func (stubLedger) GetByIDForUser(context.Context, uint64, uint64) (*model.Booking, error) {
	return nil, fmt.Errorf("load booking: %w", repository.ErrBookingNotFound)
}

type stubUsers struct{}

func (stubUsers) GetByID(context.Context, uint64) (model.User, error) { return model.User{}, nil }

type stubGateway struct{}

func (stubGateway) CreateIntent(context.Context, uint32, string, map[string]string) (*payment.Intent, error) {
	return &payment.Intent{ID: "pi", ClientSecret: "cs"}, nil
}
func (stubGateway) IntentStatus(context.Context, string) (payment.IntentStatus, error) {
	return payment.StatusSucceeded, nil
}

func notFoundHandler(t *testing.T) *BookingHandler {
	t.Helper()
	svc := booking.NewService(stubInventory{}, stubLedger{}, stubUsers{}, stubGateway{}, nil, nil, "usd", time.Minute)
	return NewBookingHandler(svc, repository.NewBookingRepo(nil))
}

func TestCreateMapsWrappedEventNotFound(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings",
		strings.NewReader(`{"event_id":9,"seats":1}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(7))

	assert.NoError(t, notFoundHandler(t).Create(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"event not found"}`, rec.Body.String())
}

func TestConfirmMapsWrappedBookingNotFound(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings/5/confirm", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("5")
	c.Set("user_id", uint64(7))

	assert.NoError(t, notFoundHandler(t).Confirm(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"booking not found"}`, rec.Body.String())
}
