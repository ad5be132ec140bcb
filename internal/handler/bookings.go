package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-core/internal/booking"
	"github.com/iliyamo/cinema-booking-core/internal/middleware"
	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// BookingHandler turns holds into bookings and manages them.
type BookingHandler struct {
	Coord *booking.Coordinator
}

type bookingRequest struct {
	HoldID        string `json:"hold_id"`
	PaymentMethod string `json:"payment_method"`
}

type bookingView struct {
	BookingAttemptID string               `json:"booking_attempt_id"`
	HoldID           string               `json:"hold_id"`
	ShowtimeID       uint64               `json:"showtime_id"`
	Seats            []string             `json:"seats"`
	TotalCents       uint32               `json:"total_cents"`
	PaymentMethod    string               `json:"payment_method"`
	Status           model.PaymentStatus  `json:"status"`
	Outcome          model.PaymentOutcome `json:"outcome,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

func newBookingView(b model.Booking) bookingView {
	return bookingView{
		BookingAttemptID: b.ID,
		HoldID:           b.HoldID,
		ShowtimeID:       b.ShowtimeID,
		Seats:            model.SeatLabels(b.Seats),
		TotalCents:       b.TotalCents,
		PaymentMethod:    b.PaymentMethod,
		Status:           b.PaymentStatus,
		Outcome:          b.PaymentOutcome,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

// Create commits the hold and starts payment.  The answer is 202: the
// booking stays pending until the provider reports back.
func (h *BookingHandler) Create(c echo.Context) error {
	var req bookingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.HoldID == "" {
		return badRequest(c, "hold_id is required")
	}
	b, err := h.Coord.Initiate(c.Request().Context(), middleware.SessionID(c), req.HoldID, req.PaymentMethod)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusAccepted, newBookingView(b))
}

// Get returns one of the session's bookings.
func (h *BookingHandler) Get(c echo.Context) error {
	b, err := h.owned(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newBookingView(b))
}

// Mine lists the session's bookings, newest first.
func (h *BookingHandler) Mine(c echo.Context) error {
	list, err := h.Coord.ListBySession(c.Request().Context(), middleware.SessionID(c))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]bookingView, 0, len(list))
	for _, b := range list {
		out = append(out, newBookingView(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Cancel cancels a confirmed booking and frees its seats.
func (h *BookingHandler) Cancel(c echo.Context) error {
	b, err := h.Coord.CancelBooking(c.Request().Context(), middleware.SessionID(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newBookingView(b))
}

func (h *BookingHandler) owned(c echo.Context) (model.Booking, error) {
	id := c.Param("id")
	b, err := h.Coord.Get(c.Request().Context(), id)
	if err != nil {
		return model.Booking{}, err
	}
	if b.SessionID != middleware.SessionID(c) {
		return model.Booking{}, fmt.Errorf("booking %s: %w", id, model.ErrForbidden)
	}
	return b, nil
}
