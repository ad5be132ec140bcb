// Package router wires handlers and middleware onto echo routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-core/internal/handler"
	"github.com/iliyamo/cinema-booking-core/internal/middleware"
)

// Handlers groups every HTTP handler of the service.
type Handlers struct {
	Health   *handler.HealthHandler
	Session  *handler.SessionHandler
	Seats    *handler.SeatHandler
	Holds    *handler.HoldHandler
	Bookings *handler.BookingHandler
	Payments *handler.PaymentHandler
}

// Register maps the API.  Session-scoped routes require a Bearer session
// token; limit, when non-nil, guards the routes that mutate seat state.
func Register(e *echo.Echo, h Handlers, jwtSecret string, limit echo.MiddlewareFunc) {
	if limit == nil {
		limit = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	auth := middleware.JWTAuth(jwtSecret)

	e.GET("/healthz", h.Health.Health)

	// public
	e.POST("/v1/sessions", h.Session.Create, limit)
	e.GET("/v1/showtimes", h.Seats.ListShowtimes)
	e.GET("/v1/showtimes/:id/seats", h.Seats.Layout)

	// provider webhook, authenticated by shared secret
	e.POST("/v1/payments/callback", h.Payments.Callback)

	// session scoped
	e.POST("/v1/showtimes/:id/holds", h.Holds.Create, auth, limit)
	e.GET("/v1/holds/:id", h.Holds.Get, auth)
	e.DELETE("/v1/holds/:id", h.Holds.Release, auth)
	e.POST("/v1/bookings", h.Bookings.Create, auth, limit)
	e.GET("/v1/bookings/:id", h.Bookings.Get, auth)
	e.POST("/v1/bookings/:id/cancel", h.Bookings.Cancel, auth, limit)
	e.GET("/v1/my-bookings", h.Bookings.Mine, auth)
}
