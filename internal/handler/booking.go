package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/booking"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
)

// BookingHandler serves the booking lifecycle endpoints.  All business rules
// live in the booking service; this layer only translates HTTP to service
// calls and service errors back to status codes.
type BookingHandler struct {
	Svc      *booking.Service
	Bookings *repository.BookingRepo
}

func NewBookingHandler(svc *booking.Service, bookings *repository.BookingRepo) *BookingHandler {
	if svc == nil || bookings == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc, Bookings: bookings}
}

type createBookingReq struct {
	EventID uint64 `json:"event_id"`
	Seats   uint32 `json:"seats"`
}

// Create opens a PENDING booking and returns the payment client secret the
// client needs to complete the charge.  No seats are held yet.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.EventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()

	b, clientSecret, err := h.Svc.RequestBooking(ctx, uid, req.EventID, req.Seats)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrInvalidSeats):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats must be >= 1"})
		case errors.Is(err, booking.ErrAmountTooLarge):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking amount exceeds the payable maximum"})
		case errors.Is(err, booking.ErrInsufficientSeats):
			return c.JSON(http.StatusConflict, echo.Map{"error": "not enough seats available"})
		case errors.Is(err, repository.ErrEventNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create booking failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"booking":       b,
		"client_secret": clientSecret,
	})
}

// Confirm settles a booking after payment.  Safe to retry: a paid booking
// confirms again as a no-op success.
func (h *BookingHandler) Confirm(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := pathID(c, "id")
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()

	res, err := h.Svc.ConfirmBooking(ctx, id, uid)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, booking.ErrNotPayable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not payable"})
		case errors.Is(err, booking.ErrInventoryExhausted):
			return c.JSON(http.StatusConflict, echo.Map{"error": "event sold out during payment processing"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirm booking failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  res.Status,
		"booking": res.Booking,
	})
}

// Cancel abandons a PENDING booking.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := pathID(c, "id")
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Svc.CancelBooking(ctx, id, uid)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, booking.ErrNotCancellable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking cannot be cancelled"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel booking failed"})
	}
	return c.JSON(http.StatusOK, b)
}

// ListMine returns the caller's bookings, newest first.
func (h *BookingHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	bookings, err := h.Bookings.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list bookings failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings, "count": len(bookings)})
}

// Get returns one booking of the caller.
func (h *BookingHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := pathID(c, "id")
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.GetByIDForUser(ctx, id, uid)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load booking failed"})
	}
	return c.JSON(http.StatusOK, b)
}

// Ticket returns the scannable ticket payload for a paid booking.
func (h *BookingHandler) Ticket(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := pathID(c, "id")
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.GetByIDForUser(ctx, id, uid)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load booking failed"})
	}
	if b.Status != model.BookingPaid {
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not paid"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id": b.ID,
		"ticket":     fmt.Sprintf("TICKET:%d:%d:%d", b.ID, b.UserID, b.EventID),
	})
}
