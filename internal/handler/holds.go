package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-core/internal/hold"
	"github.com/iliyamo/cinema-booking-core/internal/middleware"
	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/seatmap"
)

// HoldHandler places and releases seat holds for the calling session.
type HoldHandler struct {
	Seats *seatmap.Store
	Holds *hold.Manager
}

type holdRequest struct {
	Seats []string `json:"seats"`
}

type holdView struct {
	HoldID     string          `json:"hold_id"`
	ShowtimeID uint64          `json:"showtime_id"`
	Seats      []string        `json:"seats"`
	State      model.HoldState `json:"state"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

func newHoldView(h model.Hold) holdView {
	return holdView{
		HoldID:     h.ID,
		ShowtimeID: h.ShowtimeID,
		Seats:      model.SeatLabels(h.Seats),
		State:      h.State,
		ExpiresAt:  h.ExpiresAt,
	}
}

// Create holds the requested seats, all or nothing.  A conflict answers
// 409 with the seats that were not available.
func (h *HoldHandler) Create(c echo.Context) error {
	showtimeID, ok := showtimeParam(c)
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	var req holdRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if len(req.Seats) == 0 {
		return badRequest(c, "seats are required")
	}
	ids, err := h.Seats.ResolveLabels(showtimeID, req.Seats)
	if err != nil {
		return writeError(c, err)
	}
	held, err := h.Holds.RequestHold(c.Request().Context(), middleware.SessionID(c), ids, 0)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, newHoldView(held))
}

// Get returns one of the session's holds.
func (h *HoldHandler) Get(c echo.Context) error {
	held, err := h.owned(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newHoldView(held))
}

// Release gives the seats of an active hold back.  Releasing a hold that
// already ended is a no-op.
func (h *HoldHandler) Release(c echo.Context) error {
	held, err := h.owned(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Holds.ReleaseHold(c.Request().Context(), held.ID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *HoldHandler) owned(c echo.Context) (model.Hold, error) {
	id := c.Param("id")
	held, err := h.Holds.Get(c.Request().Context(), id)
	if err != nil {
		return model.Hold{}, err
	}
	if held.SessionID != middleware.SessionID(c) {
		return model.Hold{}, fmt.Errorf("hold %s: %w", id, model.ErrForbidden)
	}
	return held, nil
}
