package model

import "time"

// EventType names an outward booking event.
type EventType string

const (
	EventBookingConfirmed       EventType = "BookingConfirmed"
	EventBookingFailed          EventType = "BookingFailed"
	EventBookingCancelled       EventType = "BookingCancelled"
	EventReconciliationRequired EventType = "ReconciliationRequired"
)

// BookingEvent is emitted to the notification sink whenever a booking
// reaches a new terminal status, or when a payment needs manual
// reconciliation.  Delivery is at-least-once; consumers dedupe on
// (Type, BookingID).
type BookingEvent struct {
	Type       EventType `json:"type"`
	BookingID  string    `json:"booking_id"`
	SessionID  string    `json:"session_id"`
	ShowtimeID uint64    `json:"showtime_id"`
	Seats      []SeatID  `json:"seat_ids"`
	SeatLabels []string  `json:"seats"`
	TotalCents uint32    `json:"total_cents"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewBookingEvent builds an event of type t describing b.
func NewBookingEvent(t EventType, b Booking, reason string, at time.Time) BookingEvent {
	return BookingEvent{
		Type:       t,
		BookingID:  b.ID,
		SessionID:  b.SessionID,
		ShowtimeID: b.ShowtimeID,
		Seats:      b.Seats,
		SeatLabels: SeatLabels(b.Seats),
		TotalCents: b.TotalCents,
		Reason:     reason,
		OccurredAt: at.UTC(),
	}
}
