// Package payment defines the boundary to the external payment provider.
// The core never sees a provider's wire format: it hands over an Intent and
// later receives an outcome for the booking attempt through the payment
// callback.
package payment

import (
	"context"
	"errors"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// Intent asks the provider to collect payment for one booking attempt.
type Intent struct {
	BookingID   string `json:"booking_attempt_id"`
	SessionID   string `json:"session_id"`
	AmountCents uint32 `json:"amount_cents"`
	Currency    string `json:"currency"`
	Method      string `json:"payment_method"`
}

// Validate checks the fields every provider needs.
func (in Intent) Validate() error {
	if in.BookingID == "" {
		return errors.New("booking attempt id is required")
	}
	if in.Method == "" {
		return errors.New("payment method is required")
	}
	return nil
}

// Provider accepts payment intents.  Submit must not block on the payment
// itself; the outcome arrives later through a ResultFunc or webhook.
type Provider interface {
	Submit(ctx context.Context, in Intent) error
}

// ResultFunc receives the provider's outcome for a booking attempt.
type ResultFunc func(ctx context.Context, bookingID string, outcome model.PaymentOutcome)
