// Package router registers the API surface on an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth    *handler.AuthHandler
	Events  *handler.EventHandler
	Booking *handler.BookingHandler
	Stream  *handler.StreamHandler
}

// Register wires up the whole API:
//
//	/healthz                        liveness check
//	/v1/auth/*                      session management (open)
//	/v1/events (GET)                public catalog
//	/v1/stream                      server-sent events (open)
//	/v1/* (rest)                    JWT-protected
//
// Booking mutations additionally run through the Redis rate limiter so one
// client cannot hammer the payment gateway.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client, rateLimitRPM int) {
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	e.GET("/healthz", handler.Health)

	// Session management; no JWT required.
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/refresh-access", h.Auth.RefreshAccess)
	auth.POST("/logout", h.Auth.Logout)

	// Public catalog and the live stream: guests browse and watch seat
	// availability without an account.
	e.GET("/v1/events", h.Events.List)
	e.GET("/v1/events/:id", h.Events.Get)
	e.GET("/v1/stream", h.Stream.Stream)

	// Everything below requires a valid access token.
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))
	v1.GET("/me", h.Auth.Me)
	v1.POST("/events", h.Events.Create)
	v1.GET("/admin/stats", h.Events.AdminStats)
	v1.GET("/my-bookings", h.Booking.ListMine)

	limited := v1.Group("/bookings")
	limited.Use(middleware.RateLimit(rdb, rateLimitRPM))
	limited.POST("", h.Booking.Create)
	limited.GET("", h.Booking.ListMine)
	limited.GET("/:id", h.Booking.Get)
	limited.POST("/:id/confirm", h.Booking.Confirm)
	limited.POST("/:id/cancel", h.Booking.Cancel)
	limited.GET("/:id/ticket", h.Booking.Ticket)
}
