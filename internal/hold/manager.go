// Package hold grants, tracks and expires time-boxed seat holds.
//
// Every hold owns exactly one expiry timer, keyed by hold ID.  Release,
// expiry and commit all go through the hold's own Active->terminal
// compare-and-set under the hold's mutex, so when they race exactly one of
// them wins and seats are returned to the map at most once.
package hold

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/logger"
	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// SeatStore is the transition primitive of the seat map.
type SeatStore interface {
	TryTransition(ids []model.SeatID, from, to model.SeatStatus) (bool, []model.SeatID, error)
}

// Config controls hold lifetimes and the background sweeper.
type Config struct {
	// TTL is used when RequestHold is called without a TTL.
	TTL time.Duration
	// SweepInterval is the period of Run's sweep loop.
	SweepInterval time.Duration
	// SweepBatch bounds how many due holds one sweep expires.
	SweepBatch int
	// Retention is how long released and expired holds stay queryable.
	Retention time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		TTL:           model.DefaultHoldTTL,
		SweepInterval: 5 * time.Second,
		SweepBatch:    100,
		Retention:     30 * time.Minute,
	}
}

// Option customises a Manager.
type Option func(*Manager)

// WithIndex replaces the in-memory expiry index.
func WithIndex(idx ExpiryIndex) Option {
	return func(m *Manager) {
		if idx != nil {
			m.index = idx
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = logger.OrNop(l) }
}

// WithClock overrides time.Now, used for lazy expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

type entry struct {
	mu      sync.Mutex
	hold    model.Hold
	timer   *time.Timer
	endedAt time.Time
}

// Manager is safe for concurrent use.
type Manager struct {
	seats SeatStore
	index ExpiryIndex
	cfg   Config
	log   *zap.Logger
	now   func() time.Time

	mu    sync.RWMutex
	holds map[string]*entry

	granted   atomic.Int64
	released  atomic.Int64
	expired   atomic.Int64
	committed atomic.Int64
}

// Stats counts hold transitions since the manager started.
type Stats struct {
	Active    int   `json:"active"`
	Granted   int64 `json:"granted"`
	Released  int64 `json:"released"`
	Expired   int64 `json:"expired"`
	Committed int64 `json:"committed"`
}

// NewManager returns a manager that transitions seats through seats.
func NewManager(seats SeatStore, cfg Config, opts ...Option) *Manager {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = def.SweepBatch
	}
	if cfg.Retention <= 0 {
		cfg.Retention = def.Retention
	}
	m := &Manager{
		seats: seats,
		index: NewMemoryIndex(),
		cfg:   cfg,
		log:   zap.NewNop(),
		now:   time.Now,
		holds: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RequestHold places an all-or-nothing hold on seatIDs for sessionID.  A
// non-positive ttl uses the configured default.  When any seat is not
// available the call fails with *model.SeatsUnavailableError listing the
// conflicting seats and nothing is held.
func (m *Manager) RequestHold(ctx context.Context, sessionID string, seatIDs []model.SeatID, ttl time.Duration) (model.Hold, error) {
	if sessionID == "" {
		return model.Hold{}, fmt.Errorf("request hold: session is required: %w", model.ErrInvalidArgument)
	}
	seats := dedupe(seatIDs)
	if len(seats) == 0 {
		return model.Hold{}, fmt.Errorf("request hold: no seats: %w", model.ErrInvalidArgument)
	}
	showtimeID := seats[0].ShowtimeID
	for _, s := range seats[1:] {
		if s.ShowtimeID != showtimeID {
			return model.Hold{}, fmt.Errorf("request hold: seats span showtimes %d and %d: %w",
				showtimeID, s.ShowtimeID, model.ErrInvalidArgument)
		}
	}
	if ttl <= 0 {
		ttl = m.cfg.TTL
	}

	ok, conflicts, err := m.seats.TryTransition(seats, model.SeatAvailable, model.SeatHeld)
	if err != nil {
		return model.Hold{}, fmt.Errorf("request hold: %w", err)
	}
	if !ok {
		m.log.Debug("hold conflict",
			zap.String("session_id", sessionID),
			zap.Uint64("showtime_id", showtimeID),
			zap.Strings("conflicts", model.SeatLabels(conflicts)))
		return model.Hold{}, &model.SeatsUnavailableError{Seats: conflicts}
	}

	now := m.now().UTC()
	e := &entry{hold: model.Hold{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		ShowtimeID: showtimeID,
		Seats:      seats,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		State:      model.HoldActive,
	}}
	id := e.hold.ID

	// Publish the entry before arming the timer so onTimer always finds
	// it; holding e.mu makes an early callback wait until e.timer is set.
	e.mu.Lock()
	m.mu.Lock()
	m.holds[id] = e
	m.mu.Unlock()
	e.timer = time.AfterFunc(ttl, func() { m.onTimer(id) })
	h := copyHold(e.hold)
	e.mu.Unlock()

	if err := m.index.Schedule(ctx, id, h.ExpiresAt); err != nil {
		m.log.Warn("expiry index schedule failed", zap.String("hold_id", id), zap.Error(err))
	}
	m.granted.Add(1)
	m.log.Info("hold granted",
		zap.String("hold_id", id),
		zap.String("session_id", sessionID),
		zap.Uint64("showtime_id", showtimeID),
		zap.Strings("seats", model.SeatLabels(seats)),
		zap.Time("expires_at", h.ExpiresAt))
	return h, nil
}

// ReleaseHold returns an active hold's seats to the map.  Unknown holds and
// holds that already reached a terminal state are left alone, so the call is
// idempotent and safe to race with expiry.
func (m *Manager) ReleaseHold(ctx context.Context, holdID string) error {
	e := m.lookup(holdID)
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hold.State != model.HoldActive {
		return nil
	}
	if m.pastDue(e) {
		return m.expireLocked(ctx, e, "lazy")
	}
	if err := m.endLocked(ctx, e, model.HoldReleased); err != nil {
		return fmt.Errorf("release hold %s: %w", holdID, err)
	}
	m.released.Add(1)
	m.log.Info("hold released", zap.String("hold_id", holdID), zap.String("session_id", e.hold.SessionID))
	return nil
}

// ExtendOrCommit freezes an active hold for checkout: the hold becomes
// Committed, its timer is cancelled and its seats stay Held until the
// booking coordinator either books them or calls RollbackCommitted.
func (m *Manager) ExtendOrCommit(ctx context.Context, holdID string) (model.Hold, error) {
	e := m.lookup(holdID)
	if e == nil {
		return model.Hold{}, fmt.Errorf("hold %s: %w", holdID, model.ErrHoldNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.hold.State {
	case model.HoldExpired:
		return e.hold, fmt.Errorf("hold %s: %w", holdID, model.ErrHoldExpired)
	case model.HoldActive:
	default:
		return e.hold, fmt.Errorf("hold %s is %s: %w", holdID, e.hold.State, model.ErrInvalidState)
	}
	if m.pastDue(e) {
		if err := m.expireLocked(ctx, e, "lazy"); err != nil {
			return e.hold, err
		}
		return e.hold, fmt.Errorf("hold %s: %w", holdID, model.ErrHoldExpired)
	}
	m.stopLocked(ctx, e)
	e.hold.State = model.HoldCommitted
	m.committed.Add(1)
	m.log.Info("hold committed", zap.String("hold_id", holdID), zap.String("session_id", e.hold.SessionID))
	return copyHold(e.hold), nil
}

// RollbackCommitted releases the seats of a committed hold whose booking
// attempt is known to have failed.  Already released holds are a no-op.
func (m *Manager) RollbackCommitted(ctx context.Context, holdID string) error {
	e := m.lookup(holdID)
	if e == nil {
		return fmt.Errorf("hold %s: %w", holdID, model.ErrHoldNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.hold.State {
	case model.HoldReleased:
		return nil
	case model.HoldCommitted:
	default:
		return fmt.Errorf("rollback hold %s in state %s: %w", holdID, e.hold.State, model.ErrInvalidState)
	}
	if err := m.endLocked(ctx, e, model.HoldReleased); err != nil {
		return fmt.Errorf("rollback hold %s: %w", holdID, err)
	}
	m.released.Add(1)
	m.log.Info("committed hold rolled back", zap.String("hold_id", holdID))
	return nil
}

// Retire forgets a committed hold once its seats are booked.
func (m *Manager) Retire(holdID string) {
	e := m.lookup(holdID)
	if e == nil {
		return
	}
	e.mu.Lock()
	state := e.hold.State
	e.mu.Unlock()
	if state != model.HoldCommitted {
		return
	}
	m.mu.Lock()
	delete(m.holds, holdID)
	m.mu.Unlock()
}

// Get returns a snapshot of a hold, expiring it first when it is past due.
func (m *Manager) Get(ctx context.Context, holdID string) (model.Hold, error) {
	e := m.lookup(holdID)
	if e == nil {
		return model.Hold{}, fmt.Errorf("hold %s: %w", holdID, model.ErrHoldNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hold.State == model.HoldActive && m.pastDue(e) {
		if err := m.expireLocked(ctx, e, "lazy"); err != nil {
			return e.hold, err
		}
	}
	return copyHold(e.hold), nil
}

// Stats returns transition counters and the number of active holds.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.holds))
	for _, e := range m.holds {
		entries = append(entries, e)
	}
	m.mu.RUnlock()
	active := 0
	for _, e := range entries {
		e.mu.Lock()
		if e.hold.State == model.HoldActive {
			active++
		}
		e.mu.Unlock()
	}
	return Stats{
		Active:    active,
		Granted:   m.granted.Load(),
		Released:  m.released.Load(),
		Expired:   m.expired.Load(),
		Committed: m.committed.Load(),
	}
}

// Recover clears expiry index entries left by a previous run of this
// instance.  Holds live in memory, so none of them survived the restart and
// their seats were regenerated as available.
func (m *Manager) Recover(ctx context.Context) error {
	if err := m.index.Clear(ctx); err != nil {
		return fmt.Errorf("recover expiry index: %w", err)
	}
	return nil
}

// Sweep expires holds the index reports as due, expires any active hold
// past its deadline that the index missed, and prunes old terminal holds.
// It returns the number of holds it expired.
func (m *Manager) Sweep(ctx context.Context) int {
	now := m.now()
	n := 0

	due, err := m.index.Due(ctx, now, m.cfg.SweepBatch)
	if err != nil {
		m.log.Warn("expiry index scan failed", zap.Error(err))
	}
	for _, id := range due {
		e := m.lookup(id)
		if e == nil {
			_ = m.index.Remove(ctx, id)
			continue
		}
		if m.expireIfDue(ctx, e) {
			n++
		}
	}

	m.mu.RLock()
	entries := make([]*entry, 0, len(m.holds))
	for _, e := range m.holds {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	var prune []string
	for _, e := range entries {
		if m.expireIfDue(ctx, e) {
			n++
		}
		e.mu.Lock()
		if (e.hold.State == model.HoldReleased || e.hold.State == model.HoldExpired) &&
			now.Sub(e.endedAt) >= m.cfg.Retention {
			prune = append(prune, e.hold.ID)
		}
		e.mu.Unlock()
	}
	if len(prune) > 0 {
		m.mu.Lock()
		for _, id := range prune {
			delete(m.holds, id)
		}
		m.mu.Unlock()
	}
	return n
}

// Run sweeps every SweepInterval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	m.log.Info("hold sweeper started", zap.Duration("interval", m.cfg.SweepInterval))
	for {
		select {
		case <-ctx.Done():
			m.log.Info("hold sweeper stopped")
			return
		case <-ticker.C:
			if n := m.Sweep(ctx); n > 0 {
				m.log.Info("sweep expired holds", zap.Int("count", n))
			}
		}
	}
}

// onTimer is the hold's expiry timer.  It only acts on its own hold ID, so a
// stale timer can never touch seats that a later hold owns.
func (m *Manager) onTimer(holdID string) {
	e := m.lookup(holdID)
	if e == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hold.State != model.HoldActive {
		return
	}
	if err := m.expireLocked(ctx, e, "timer"); err != nil {
		m.log.Error("hold expiry failed", zap.String("hold_id", holdID), zap.Error(err))
	}
}

func (m *Manager) expireIfDue(ctx context.Context, e *entry) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hold.State != model.HoldActive || !m.pastDue(e) {
		return false
	}
	if err := m.expireLocked(ctx, e, "sweep"); err != nil {
		m.log.Error("hold expiry failed", zap.String("hold_id", e.hold.ID), zap.Error(err))
		return false
	}
	return true
}

// expireLocked moves an active hold to Expired.  Callers hold e.mu.
func (m *Manager) expireLocked(ctx context.Context, e *entry, via string) error {
	if err := m.endLocked(ctx, e, model.HoldExpired); err != nil {
		return err
	}
	m.expired.Add(1)
	m.log.Info("hold expired",
		zap.String("hold_id", e.hold.ID),
		zap.String("session_id", e.hold.SessionID),
		zap.String("via", via),
		zap.Strings("seats", model.SeatLabels(e.hold.Seats)))
	return nil
}

// endLocked returns the hold's seats to Available and records the terminal
// state.  Callers hold e.mu and have checked the current state.
func (m *Manager) endLocked(ctx context.Context, e *entry, state model.HoldState) error {
	ok, conflicts, err := m.seats.TryTransition(e.hold.Seats, model.SeatHeld, model.SeatAvailable)
	if err != nil {
		return err
	}
	if !ok {
		// Seats of a live hold are Held by construction; anything else is
		// a broken invariant, not a business conflict.
		return fmt.Errorf("seats %v of hold %s not held: %w",
			model.SeatLabels(conflicts), e.hold.ID, model.ErrInvalidState)
	}
	m.stopLocked(ctx, e)
	e.hold.State = state
	e.endedAt = m.now()
	return nil
}

func (m *Manager) stopLocked(ctx context.Context, e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}
	if err := m.index.Remove(ctx, e.hold.ID); err != nil {
		m.log.Warn("expiry index remove failed", zap.String("hold_id", e.hold.ID), zap.Error(err))
	}
}

func (m *Manager) pastDue(e *entry) bool {
	return !m.now().Before(e.hold.ExpiresAt)
}

func (m *Manager) lookup(holdID string) *entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.holds[holdID]
}

func dedupe(ids []model.SeatID) []model.SeatID {
	seen := make(map[model.SeatID]struct{}, len(ids))
	out := make([]model.SeatID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func copyHold(h model.Hold) model.Hold {
	h.Seats = append([]model.SeatID(nil), h.Seats...)
	return h
}
