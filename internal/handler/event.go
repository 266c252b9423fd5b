package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/notifier"
	"github.com/iliyamo/event-booking/internal/repository"
)

// EventHandler serves the event catalog and the admin dashboard stats.
type EventHandler struct {
	Events   *repository.EventRepo
	Bookings *repository.BookingRepo
	Notify   notifier.Notifier
}

func NewEventHandler(events *repository.EventRepo, bookings *repository.BookingRepo, notify notifier.Notifier) *EventHandler {
	if events == nil || bookings == nil {
		panic("nil repository passed to NewEventHandler")
	}
	return &EventHandler{Events: events, Bookings: bookings, Notify: notify}
}

type createEventReq struct {
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Venue       *string   `json:"venue"`
	StartsAt    time.Time `json:"starts_at"`
	PriceCents  uint32    `json:"price_cents"`
	TotalSeats  uint32    `json:"total_seats"`
}

// Create inserts a new event with a full seat pool and announces it on the
// live stream so connected clients refresh their listings.
func (h *EventHandler) Create(c echo.Context) error {
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	if req.TotalSeats == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_seats must be >= 1"})
	}
	if req.StartsAt.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev := &model.Event{
		Title:       req.Title,
		Description: req.Description,
		Venue:       req.Venue,
		StartsAt:    req.StartsAt,
		PriceCents:  req.PriceCents,
		TotalSeats:  req.TotalSeats,
	}
	if err := h.Events.Create(ctx, ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	if h.Notify != nil {
		h.Notify.Publish(notifier.TopicNewEvent, ev)
	}
	return c.JSON(http.StatusCreated, ev)
}

// List returns events ordered by start time with offset/limit pagination.
func (h *EventHandler) List(c echo.Context) error {
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, err := h.Events.List(ctx, offset, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list events failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events, "count": len(events)})
}

// Get returns a single event by id.
func (h *EventHandler) Get(c echo.Context) error {
	id := pathID(c, "id")
	if id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	return c.JSON(http.StatusOK, ev)
}

// AdminStats aggregates revenue, tickets sold and per-event occupancy for
// the dashboard.
func (h *EventHandler) AdminStats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	revenue, sold, err := h.Bookings.RevenueStats(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load revenue failed"})
	}
	occupancy, err := h.Events.OccupancyStats(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load occupancy failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"revenue_cents": revenue,
		"tickets_sold":  sold,
		"occupancy":     occupancy,
	})
}
