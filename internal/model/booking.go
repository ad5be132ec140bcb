package model

import "time"

// PaymentStatus is the state of a booking with respect to its payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentConfirmed PaymentStatus = "CONFIRMED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// PaymentOutcome is what the payment provider reports for a booking attempt.
type PaymentOutcome string

const (
	OutcomeSuccess PaymentOutcome = "SUCCESS"
	OutcomeFailure PaymentOutcome = "FAILURE"
	OutcomeTimeout PaymentOutcome = "TIMEOUT"
)

// Valid reports whether o is a known outcome.
func (o PaymentOutcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailure, OutcomeTimeout:
		return true
	}
	return false
}

// Status returns the payment status a pending booking moves to for o.
func (o PaymentOutcome) Status() PaymentStatus {
	if o == OutcomeSuccess {
		return PaymentConfirmed
	}
	return PaymentFailed
}

// Booking records a purchase attempt for the seats of one hold.  The booking
// ID doubles as the booking attempt ID handed to the payment provider.
//
// Fields:
//
//	ID             – bookings.id
//	HoldID         – hold the booking was created from.
//	SessionID      – session that owns the booking.
//	ShowtimeID     – showtime of the booked seats.
//	Seats          – booked seats.
//	TotalCents     – total price in cents.
//	PaymentMethod  – method chosen at checkout (card, wallet, ...).
//	PaymentStatus  – Pending, Confirmed, Failed or Cancelled.
//	PaymentOutcome – first outcome reported for this attempt; empty while pending.
//	CreatedAt      – creation timestamp.
//	UpdatedAt      – last status change.
type Booking struct {
	ID             string         `json:"booking_id"`
	HoldID         string         `json:"hold_id"`
	SessionID      string         `json:"session_id"`
	ShowtimeID     uint64         `json:"showtime_id"`
	Seats          []SeatID       `json:"seats"`
	TotalCents     uint32         `json:"total_cents"`
	PaymentMethod  string         `json:"payment_method"`
	PaymentStatus  PaymentStatus  `json:"payment_status"`
	PaymentOutcome PaymentOutcome `json:"payment_outcome,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
