package model

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds shared by the seat map store, hold manager and booking
// coordinator.  Handlers translate them into HTTP responses; callers should
// compare with errors.Is.
var (
	// ErrSeatsUnavailable is a normal business conflict: some requested
	// seats are not in the expected state.  Use *SeatsUnavailableError to
	// get the conflicting seats.
	ErrSeatsUnavailable = errors.New("seats unavailable")
	ErrUnknownSeat      = errors.New("unknown seat")
	ErrUnknownShowtime  = errors.New("unknown showtime")
	ErrHoldNotFound     = errors.New("hold not found")
	ErrHoldExpired      = errors.New("hold expired")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrInvalidState     = errors.New("invalid state")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrForbidden        = errors.New("forbidden")

	// ErrReconciliationConflict marks duplicate payment callbacks that
	// disagree with the outcome already recorded.  Never resolved
	// automatically.
	ErrReconciliationConflict = errors.New("payment reconciliation conflict")

	// ErrProviderTimeout marks a booking failed because the payment
	// provider never answered; funds may still be in flight.
	ErrProviderTimeout = errors.New("payment provider timeout")
)

// SeatsUnavailableError carries the seats that blocked an all-or-nothing
// transition.
type SeatsUnavailableError struct {
	Seats []SeatID
}

func (e *SeatsUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable: %s", strings.Join(SeatLabels(e.Seats), ","))
}

// Is lets errors.Is(err, ErrSeatsUnavailable) match.
func (e *SeatsUnavailableError) Is(target error) bool {
	return target == ErrSeatsUnavailable
}

// ReconciliationError describes a payment callback that contradicts the
// outcome already recorded for a booking attempt.
type ReconciliationError struct {
	BookingID string
	Recorded  PaymentOutcome
	Received  PaymentOutcome
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("payment reconciliation conflict for booking %s: recorded %s, received %s",
		e.BookingID, e.Recorded, e.Received)
}

// Is lets errors.Is(err, ErrReconciliationConflict) match.
func (e *ReconciliationError) Is(target error) bool {
	return target == ErrReconciliationConflict
}
