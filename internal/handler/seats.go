package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/seatmap"
)

// SeatHandler serves showtimes and their seat maps.
type SeatHandler struct {
	Seats *seatmap.Store
}

type rowView struct {
	Row   string       `json:"row"`
	Seats []model.Seat `json:"seats"`
}

type showtimeView struct {
	model.Showtime
	Counts seatmap.Counts `json:"counts"`
}

// ListShowtimes returns every registered showtime with its seat counts.
func (h *SeatHandler) ListShowtimes(c echo.Context) error {
	list := h.Seats.Showtimes()
	out := make([]showtimeView, 0, len(list))
	for _, st := range list {
		counts, err := h.Seats.Counts(st.ID)
		if err != nil {
			// removed since listing
			continue
		}
		out = append(out, showtimeView{Showtime: st, Counts: counts})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Layout returns the seat grid of a showtime grouped by row, with counts.
func (h *SeatHandler) Layout(c echo.Context) error {
	id, ok := showtimeParam(c)
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	st, err := h.Seats.Showtime(id)
	if err != nil {
		return writeError(c, err)
	}
	grid, err := h.Seats.GetLayout(id)
	if err != nil {
		return writeError(c, err)
	}
	counts, err := h.Seats.Counts(id)
	if err != nil {
		return writeError(c, err)
	}
	rows := make([]rowView, 0, len(grid))
	for r, seats := range grid {
		rows = append(rows, rowView{Row: model.RowLabel(r), Seats: seats})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"showtime": st,
		"rows":     rows,
		"counts":   counts,
	})
}

func showtimeParam(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
