package model

import "fmt"

// SeatStatus is the availability of a seat within a showtime.  It is only
// ever changed through seatmap.Store.TryTransition.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatHeld      SeatStatus = "HELD"
	SeatBooked    SeatStatus = "BOOKED"
)

// Valid reports whether s is one of the known statuses.
func (s SeatStatus) Valid() bool {
	switch s {
	case SeatAvailable, SeatHeld, SeatBooked:
		return true
	}
	return false
}

// SeatID identifies a seat within a single showtime.  Row and Index are
// zero-based positions in the showtime's grid.
//
// Fields:
//
//	ScreenID   – screen (hall) the showtime runs on.
//	ShowtimeID – showtime that owns the seat.
//	Row        – zero-based row index.
//	Index      – zero-based seat index within the row.
type SeatID struct {
	ScreenID   uint64 `json:"screen_id"`
	ShowtimeID uint64 `json:"showtime_id"`
	Row        int    `json:"row"`
	Index      int    `json:"index"`
}

// Label renders the human readable seat label, e.g. "A01" for row 0 seat 0.
func (id SeatID) Label() string {
	return SeatLabel(id.Row, id.Index)
}

func (id SeatID) String() string {
	return fmt.Sprintf("%d/%d/%s", id.ScreenID, id.ShowtimeID, id.Label())
}

// SeatLabel builds a label from zero-based row and seat positions.  Rows
// past Z continue as AA, AB, ... like spreadsheet columns.
func SeatLabel(row, index int) string {
	return fmt.Sprintf("%s%02d", RowLabel(row), index+1)
}

// RowLabel renders a zero-based row position as letters.
func RowLabel(row int) string {
	var b []byte
	for n := row; ; n = n/26 - 1 {
		b = append([]byte{byte('A' + n%26)}, b...)
		if n < 26 {
			break
		}
	}
	return string(b)
}

// Seat is a single cell of a showtime's seat map.
type Seat struct {
	ID     SeatID     `json:"id"`
	Label  string     `json:"label"`
	Status SeatStatus `json:"status"`
}

// SeatLabels returns the labels of ids in order.
func SeatLabels(ids []SeatID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Label())
	}
	return out
}
