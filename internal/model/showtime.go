package model

import "time"

// Showtime represents one scheduled screening of a movie on a screen.  A
// showtime owns its seat grid exclusively; registering a showtime with the
// seat map store (re)generates every seat as available.
//
// Fields:
//
//	ID            – showtimes.id
//	ScreenID      – screen (hall) the showtime runs on.
//	MovieRef      – catalog reference of the movie being screened.
//	StartsAt      – when the screening begins (UTC).
//	Rows          – number of seat rows.
//	SeatsPerRow   – number of seats in each row.
//	PriceCents    – ticket price per seat, in cents.
type Showtime struct {
	ID          uint64    `json:"id"`
	ScreenID    uint64    `json:"screen_id"`
	MovieRef    string    `json:"movie_ref"`
	StartsAt    time.Time `json:"starts_at"`
	Rows        int       `json:"rows"`
	SeatsPerRow int       `json:"seats_per_row"`
	PriceCents  uint32    `json:"price_cents"`
}

// Capacity returns the number of seats in the showtime's grid.
func (s Showtime) Capacity() int {
	return s.Rows * s.SeatsPerRow
}
