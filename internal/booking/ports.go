package booking

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// Holds is the part of the hold manager the coordinator drives.
type Holds interface {
	Get(ctx context.Context, holdID string) (model.Hold, error)
	ExtendOrCommit(ctx context.Context, holdID string) (model.Hold, error)
	RollbackCommitted(ctx context.Context, holdID string) error
	Retire(holdID string)
}

// Seats is the part of the seat map store the coordinator needs.
type Seats interface {
	TryTransition(ids []model.SeatID, from, to model.SeatStatus) (bool, []model.SeatID, error)
	Showtime(showtimeID uint64) (model.Showtime, error)
}

// Store persists bookings.  CompareAndSetStatus is the only way a booking's
// status changes: it succeeds only when the stored status equals from.  A
// non-empty outcome is recorded alongside the new status.
type Store interface {
	Create(ctx context.Context, b *model.Booking) error
	Get(ctx context.Context, id string) (model.Booking, error)
	CompareAndSetStatus(ctx context.Context, id string, from, to model.PaymentStatus, outcome model.PaymentOutcome, at time.Time) (bool, error)
	ListBySession(ctx context.Context, sessionID string) ([]model.Booking, error)
	ListByStatus(ctx context.Context, status model.PaymentStatus) ([]model.Booking, error)
}

// Notifier is the fire-and-forget notification sink.
type Notifier interface {
	Publish(ctx context.Context, ev model.BookingEvent) error
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, model.BookingEvent) error { return nil }
