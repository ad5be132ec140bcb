package model

import "time"

// HoldState is the lifecycle state of a Hold.  Active is the only
// non-terminal state; Committed holds stay in place until their booking's
// payment outcome is known.
type HoldState string

const (
	HoldActive    HoldState = "ACTIVE"
	HoldCommitted HoldState = "COMMITTED"
	HoldReleased  HoldState = "RELEASED"
	HoldExpired   HoldState = "EXPIRED"
)

// DefaultHoldTTL matches the product's seat-lock window.
const DefaultHoldTTL = 10 * time.Minute

// Hold is a time-boxed exclusive claim on a set of seats by one session.
//
// Fields:
//
//	ID         – opaque hold identifier returned to the client.
//	SessionID  – session that owns the hold.
//	ShowtimeID – showtime all seats belong to.
//	Seats      – held seats; never empty.
//	CreatedAt  – when the hold was granted.
//	ExpiresAt  – CreatedAt plus the hold TTL.
//	State      – lifecycle state.
type Hold struct {
	ID         string    `json:"hold_id"`
	SessionID  string    `json:"session_id"`
	ShowtimeID uint64    `json:"showtime_id"`
	Seats      []SeatID  `json:"seats"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	State      HoldState `json:"state"`
}

// Terminal reports whether the hold can no longer be released or expired.
// Committed holds are rolled back explicitly by the booking coordinator.
func (h Hold) Terminal() bool {
	return h.State != HoldActive
}
