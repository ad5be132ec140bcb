// Package handler exposes the booking core over HTTP.  Handlers stay thin:
// they parse input, check session ownership and translate domain errors
// into status codes.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// writeError maps a domain error onto an HTTP response.  Unknown errors
// become a 500 whose cause is kept for the access log.
func writeError(c echo.Context, err error) error {
	var unavailable *model.SeatsUnavailableError
	if errors.As(err, &unavailable) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":       "seats_unavailable",
			"message":     "some seats are no longer available",
			"unavailable": model.SeatLabels(unavailable.Seats),
		})
	}
	var reconcile *model.ReconciliationError
	if errors.As(err, &reconcile) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":    "reconciliation_required",
			"message":  reconcile.Error(),
			"recorded": reconcile.Recorded,
			"received": reconcile.Received,
		})
	}

	status, code := http.StatusInternalServerError, ""
	switch {
	case errors.Is(err, model.ErrInvalidArgument), errors.Is(err, model.ErrUnknownSeat):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, model.ErrUnknownShowtime):
		status, code = http.StatusNotFound, "showtime_not_found"
	case errors.Is(err, model.ErrHoldNotFound):
		status, code = http.StatusNotFound, "hold_not_found"
	case errors.Is(err, model.ErrBookingNotFound):
		status, code = http.StatusNotFound, "booking_not_found"
	case errors.Is(err, model.ErrHoldExpired):
		status, code = http.StatusGone, "hold_expired"
	case errors.Is(err, model.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, model.ErrInvalidState), errors.Is(err, model.ErrReconciliationConflict):
		status, code = http.StatusConflict, "invalid_state"
	}
	if status == http.StatusInternalServerError {
		return echo.NewHTTPError(status, echo.Map{"error": "internal error"}).SetInternal(err)
	}
	return c.JSON(status, echo.Map{"error": code, "message": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": msg})
}
