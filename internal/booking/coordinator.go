// Package booking turns committed holds into bookings and reconciles the
// payment provider's asynchronous outcome back into seat state.
//
// Every booking status change is a compare-and-set on the stored status,
// taken under a per-booking lock, so duplicate payment callbacks, the
// payment watchdog and user cancellation resolve to exactly one winner.
package booking

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/logger"
	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/payment"
)

const lockStripes = 64

// Config controls the coordinator.
type Config struct {
	// PaymentTimeout bounds how long a pending booking waits for the
	// provider before it is failed with a Timeout outcome.
	PaymentTimeout time.Duration
	// Currency is passed to the payment provider.
	Currency string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{PaymentTimeout: 15 * time.Minute, Currency: "USD"}
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	holds    Holds
	seats    Seats
	store    Store
	notifier Notifier
	provider payment.Provider
	cfg      Config
	log      *zap.Logger
	now      func() time.Time

	locks [lockStripes]sync.Mutex

	wmu       sync.Mutex
	watchdogs map[string]*time.Timer
	closed    bool
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithProvider sets the payment provider that receives intents.  Without
// one, outcomes only arrive through OnPaymentResult callers.
func WithProvider(p payment.Provider) Option {
	return func(c *Coordinator) { c.provider = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) { c.log = logger.OrNop(l) }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCoordinator wires a coordinator.
func NewCoordinator(holds Holds, seats Seats, store Store, cfg Config, opts ...Option) *Coordinator {
	def := DefaultConfig()
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = def.PaymentTimeout
	}
	if cfg.Currency == "" {
		cfg.Currency = def.Currency
	}
	c := &Coordinator{
		holds:     holds,
		seats:     seats,
		store:     store,
		notifier:  NopNotifier{},
		cfg:       cfg,
		log:       zap.NewNop(),
		now:       time.Now,
		watchdogs: make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initiate commits the hold and records a pending booking for its seats.
// The returned booking's ID is the booking attempt ID the payment provider
// reports back with.  sessionID, when set, must own the hold.
func (c *Coordinator) Initiate(ctx context.Context, sessionID, holdID, paymentMethod string) (model.Booking, error) {
	if paymentMethod == "" {
		return model.Booking{}, fmt.Errorf("initiate booking: payment method is required: %w", model.ErrInvalidArgument)
	}
	if sessionID != "" {
		h, err := c.holds.Get(ctx, holdID)
		if err != nil {
			return model.Booking{}, err
		}
		if h.SessionID != sessionID {
			return model.Booking{}, fmt.Errorf("hold %s: %w", holdID, model.ErrForbidden)
		}
	}
	h, err := c.holds.ExtendOrCommit(ctx, holdID)
	if err != nil {
		return model.Booking{}, err
	}

	st, err := c.seats.Showtime(h.ShowtimeID)
	if err != nil {
		c.rollbackHold(ctx, h.ID)
		return model.Booking{}, fmt.Errorf("initiate booking: %w", err)
	}
	now := c.now().UTC()
	b := model.Booking{
		ID:            uuid.New().String(),
		HoldID:        h.ID,
		SessionID:     h.SessionID,
		ShowtimeID:    h.ShowtimeID,
		Seats:         h.Seats,
		TotalCents:    st.PriceCents * uint32(len(h.Seats)),
		PaymentMethod: paymentMethod,
		PaymentStatus: model.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := c.store.Create(ctx, &b); err != nil {
		c.rollbackHold(ctx, h.ID)
		return model.Booking{}, fmt.Errorf("initiate booking: %w", err)
	}
	c.armWatchdog(b.ID)
	c.log.Info("booking initiated",
		zap.String("booking_id", b.ID),
		zap.String("hold_id", h.ID),
		zap.String("session_id", b.SessionID),
		zap.Uint32("total_cents", b.TotalCents),
		zap.String("payment_method", paymentMethod))

	if c.provider != nil {
		intent := payment.Intent{
			BookingID:   b.ID,
			SessionID:   b.SessionID,
			AmountCents: b.TotalCents,
			Currency:    c.cfg.Currency,
			Method:      paymentMethod,
		}
		go c.submit(intent)
	}
	return b, nil
}

func (c *Coordinator) submit(in payment.Intent) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.provider.Submit(ctx, in); err != nil {
		c.log.Warn("payment provider rejected intent", zap.String("booking_id", in.BookingID), zap.Error(err))
		if _, err := c.OnPaymentResult(ctx, in.BookingID, model.OutcomeFailure); err != nil {
			c.log.Error("failing rejected booking", zap.String("booking_id", in.BookingID), zap.Error(err))
		}
	}
}

// OnPaymentResult applies the provider's outcome to a pending booking.
// Repeating the outcome already recorded is a no-op; a different outcome is
// returned as *model.ReconciliationError and reported, never applied.
func (c *Coordinator) OnPaymentResult(ctx context.Context, bookingID string, outcome model.PaymentOutcome) (model.Booking, error) {
	if !outcome.Valid() {
		return model.Booking{}, fmt.Errorf("payment outcome %q: %w", outcome, model.ErrInvalidArgument)
	}
	var out []model.BookingEvent
	b, err := c.resolvePayment(ctx, bookingID, outcome, &out)
	c.publishAll(ctx, out)
	return b, err
}

func (c *Coordinator) resolvePayment(ctx context.Context, bookingID string, outcome model.PaymentOutcome, out *[]model.BookingEvent) (model.Booking, error) {
	mu := c.lock(bookingID)
	mu.Lock()
	defer mu.Unlock()

	b, err := c.store.Get(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if b.PaymentStatus != model.PaymentPending {
		return c.duplicate(b, outcome, out)
	}
	return c.apply(ctx, b, outcome, out)
}

// expirePayment fails a booking the provider never answered for.  A booking
// resolved while the watchdog was firing is left alone.
func (c *Coordinator) expirePayment(ctx context.Context, bookingID string) error {
	var out []model.BookingEvent
	err := func() error {
		mu := c.lock(bookingID)
		mu.Lock()
		defer mu.Unlock()

		b, err := c.store.Get(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.PaymentStatus != model.PaymentPending {
			return nil
		}
		_, err = c.apply(ctx, b, model.OutcomeTimeout, &out)
		return err
	}()
	c.publishAll(ctx, out)
	return err
}

// apply records outcome on a pending booking.  The caller holds the
// booking's lock and publishes out once it is released.
func (c *Coordinator) apply(ctx context.Context, b model.Booking, outcome model.PaymentOutcome, out *[]model.BookingEvent) (model.Booking, error) {
	bookingID := b.ID
	now := c.now().UTC()
	ok, err := c.store.CompareAndSetStatus(ctx, b.ID, model.PaymentPending, outcome.Status(), outcome, now)
	if err != nil {
		return b, fmt.Errorf("record payment outcome: %w", err)
	}
	if !ok {
		// another instance recorded an outcome first
		if b, err = c.store.Get(ctx, bookingID); err != nil {
			return model.Booking{}, err
		}
		return c.duplicate(b, outcome, out)
	}
	c.disarmWatchdog(b.ID)
	b.PaymentStatus, b.PaymentOutcome, b.UpdatedAt = outcome.Status(), outcome, now

	if outcome == model.OutcomeSuccess {
		return c.confirmed(b, out)
	}
	return c.failed(ctx, b, outcome, out)
}

func (c *Coordinator) confirmed(b model.Booking, out *[]model.BookingEvent) (model.Booking, error) {
	ok, conflicts, err := c.seats.TryTransition(b.Seats, model.SeatHeld, model.SeatBooked)
	if err != nil || !ok {
		// Paid for seats the hold no longer covers.  Keep the booking
		// confirmed and let operations decide; never resell silently.
		c.log.Error("confirmed booking seats not held",
			zap.String("booking_id", b.ID),
			zap.Strings("conflicts", model.SeatLabels(conflicts)),
			zap.Error(err))
		*out = append(*out, model.NewBookingEvent(model.EventReconciliationRequired, b, "confirmed seats were not held", c.now()))
		return b, fmt.Errorf("book seats of %s: %w", b.ID, model.ErrReconciliationConflict)
	}
	c.holds.Retire(b.HoldID)
	c.log.Info("booking confirmed",
		zap.String("booking_id", b.ID),
		zap.String("session_id", b.SessionID),
		zap.Strings("seats", model.SeatLabels(b.Seats)))
	*out = append(*out, model.NewBookingEvent(model.EventBookingConfirmed, b, "", c.now()))
	return b, nil
}

func (c *Coordinator) failed(ctx context.Context, b model.Booking, outcome model.PaymentOutcome, out *[]model.BookingEvent) (model.Booking, error) {
	c.rollbackHold(ctx, b.HoldID)
	*out = append(*out, model.NewBookingEvent(model.EventBookingFailed, b, string(outcome), c.now()))
	if outcome == model.OutcomeTimeout {
		c.log.Error("payment provider timed out; booking failed, reconciliation required",
			zap.String("booking_id", b.ID),
			zap.Uint32("total_cents", b.TotalCents),
			zap.NamedError("kind", model.ErrProviderTimeout))
		*out = append(*out, model.NewBookingEvent(model.EventReconciliationRequired, b, model.ErrProviderTimeout.Error(), c.now()))
		return b, nil
	}
	c.log.Info("booking failed", zap.String("booking_id", b.ID), zap.String("session_id", b.SessionID))
	return b, nil
}

// duplicate handles an outcome for a booking that already left Pending.
func (c *Coordinator) duplicate(b model.Booking, outcome model.PaymentOutcome, out *[]model.BookingEvent) (model.Booking, error) {
	if b.PaymentOutcome == outcome {
		c.log.Debug("duplicate payment callback ignored",
			zap.String("booking_id", b.ID), zap.String("outcome", string(outcome)))
		return b, nil
	}
	rerr := &model.ReconciliationError{BookingID: b.ID, Recorded: b.PaymentOutcome, Received: outcome}
	c.log.Error("payment reconciliation conflict",
		zap.String("booking_id", b.ID),
		zap.String("status", string(b.PaymentStatus)),
		zap.String("recorded", string(b.PaymentOutcome)),
		zap.String("received", string(outcome)))
	*out = append(*out, model.NewBookingEvent(model.EventReconciliationRequired, b, rerr.Error(), c.now()))
	return b, rerr
}

// CancelBooking cancels a confirmed booking and returns its seats to the
// map.  Any other status is model.ErrInvalidState.  sessionID, when set,
// must own the booking.
func (c *Coordinator) CancelBooking(ctx context.Context, sessionID, bookingID string) (model.Booking, error) {
	var out []model.BookingEvent
	b, err := c.cancel(ctx, sessionID, bookingID, &out)
	c.publishAll(ctx, out)
	return b, err
}

func (c *Coordinator) cancel(ctx context.Context, sessionID, bookingID string, out *[]model.BookingEvent) (model.Booking, error) {
	mu := c.lock(bookingID)
	mu.Lock()
	defer mu.Unlock()

	b, err := c.store.Get(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if sessionID != "" && b.SessionID != sessionID {
		return model.Booking{}, fmt.Errorf("booking %s: %w", bookingID, model.ErrForbidden)
	}
	if b.PaymentStatus != model.PaymentConfirmed {
		return b, fmt.Errorf("cancel booking %s in status %s: %w", bookingID, b.PaymentStatus, model.ErrInvalidState)
	}
	now := c.now().UTC()
	ok, err := c.store.CompareAndSetStatus(ctx, b.ID, model.PaymentConfirmed, model.PaymentCancelled, "", now)
	if err != nil {
		return b, fmt.Errorf("cancel booking %s: %w", bookingID, err)
	}
	if !ok {
		return b, fmt.Errorf("cancel booking %s: status changed concurrently: %w", bookingID, model.ErrInvalidState)
	}
	b.PaymentStatus, b.UpdatedAt = model.PaymentCancelled, now

	if ok, conflicts, err := c.seats.TryTransition(b.Seats, model.SeatBooked, model.SeatAvailable); err != nil || !ok {
		c.log.Error("cancelled booking seats not booked",
			zap.String("booking_id", b.ID),
			zap.Strings("conflicts", model.SeatLabels(conflicts)),
			zap.Error(err))
	}
	c.log.Info("booking cancelled", zap.String("booking_id", b.ID), zap.String("session_id", b.SessionID))
	*out = append(*out, model.NewBookingEvent(model.EventBookingCancelled, b, "", c.now()))
	return b, nil
}

// Get returns a booking.
func (c *Coordinator) Get(ctx context.Context, bookingID string) (model.Booking, error) {
	return c.store.Get(ctx, bookingID)
}

// ListBySession returns a session's bookings, newest first.
func (c *Coordinator) ListBySession(ctx context.Context, sessionID string) ([]model.Booking, error) {
	return c.store.ListBySession(ctx, sessionID)
}

// RecoveryReport summarises Recover.
type RecoveryReport struct {
	Rebooked int
	Failed   int
}

// Recover restores seat state from stored bookings after a restart.  Seats
// of confirmed bookings are booked again; bookings still pending lost their
// hold and watchdog with the previous process, so they are failed with a
// Timeout outcome and reported for reconciliation.  Showtimes must already
// be registered with the seat map.
func (c *Coordinator) Recover(ctx context.Context) (RecoveryReport, error) {
	var rep RecoveryReport
	confirmed, err := c.store.ListByStatus(ctx, model.PaymentConfirmed)
	if err != nil {
		return rep, fmt.Errorf("recover confirmed bookings: %w", err)
	}
	for _, b := range confirmed {
		if err := c.rebook(b.Seats); err != nil {
			c.log.Error("cannot restore booked seats", zap.String("booking_id", b.ID), zap.Error(err))
			continue
		}
		rep.Rebooked++
	}

	pending, err := c.store.ListByStatus(ctx, model.PaymentPending)
	if err != nil {
		return rep, fmt.Errorf("recover pending bookings: %w", err)
	}
	for _, b := range pending {
		now := c.now().UTC()
		ok, err := c.store.CompareAndSetStatus(ctx, b.ID, model.PaymentPending, model.PaymentFailed, model.OutcomeTimeout, now)
		if err != nil || !ok {
			c.log.Error("cannot fail interrupted booking", zap.String("booking_id", b.ID), zap.Error(err))
			continue
		}
		b.PaymentStatus, b.PaymentOutcome, b.UpdatedAt = model.PaymentFailed, model.OutcomeTimeout, now
		rep.Failed++
		c.log.Error("pending booking interrupted by restart; reconciliation required", zap.String("booking_id", b.ID))
		c.publish(ctx, model.NewBookingEvent(model.EventBookingFailed, b, string(model.OutcomeTimeout), now))
		c.publish(ctx, model.NewBookingEvent(model.EventReconciliationRequired, b, "pending at restart", now))
	}
	return rep, nil
}

// rebook walks seats through Available->Held->Booked, the only legal path.
func (c *Coordinator) rebook(seats []model.SeatID) error {
	ok, conflicts, err := c.seats.TryTransition(seats, model.SeatAvailable, model.SeatHeld)
	if err != nil {
		return err
	}
	if !ok {
		return &model.SeatsUnavailableError{Seats: conflicts}
	}
	ok, conflicts, err = c.seats.TryTransition(seats, model.SeatHeld, model.SeatBooked)
	if err != nil {
		return err
	}
	if !ok {
		return &model.SeatsUnavailableError{Seats: conflicts}
	}
	return nil
}

// Close stops every payment watchdog.  Pending bookings are picked up by
// Recover on the next start.
func (c *Coordinator) Close() {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.closed = true
	for id, t := range c.watchdogs {
		t.Stop()
		delete(c.watchdogs, id)
	}
}

func (c *Coordinator) armWatchdog(bookingID string) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.closed {
		return
	}
	c.watchdogs[bookingID] = time.AfterFunc(c.cfg.PaymentTimeout, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.expirePayment(ctx, bookingID); err != nil && !errors.Is(err, model.ErrReconciliationConflict) {
			c.log.Error("payment watchdog", zap.String("booking_id", bookingID), zap.Error(err))
		}
	})
}

func (c *Coordinator) disarmWatchdog(bookingID string) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if t, ok := c.watchdogs[bookingID]; ok {
		t.Stop()
		delete(c.watchdogs, bookingID)
	}
}

func (c *Coordinator) rollbackHold(ctx context.Context, holdID string) {
	if err := c.holds.RollbackCommitted(ctx, holdID); err != nil {
		c.log.Error("hold rollback failed", zap.String("hold_id", holdID), zap.Error(err))
	}
}

// publishAll hands events to the notifier.  Callers must not hold a
// booking lock: a slow sink would stall every booking on the same stripe.
func (c *Coordinator) publishAll(ctx context.Context, events []model.BookingEvent) {
	for _, ev := range events {
		c.publish(ctx, ev)
	}
}

func (c *Coordinator) publish(ctx context.Context, ev model.BookingEvent) {
	if err := c.notifier.Publish(ctx, ev); err != nil {
		c.log.Warn("notification publish failed",
			zap.String("type", string(ev.Type)),
			zap.String("booking_id", ev.BookingID),
			zap.Error(err))
	}
}

func (c *Coordinator) lock(bookingID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(bookingID))
	return &c.locks[h.Sum32()%lockStripes]
}
