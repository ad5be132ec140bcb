package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// MemoryBookingStore keeps bookings in process memory.  Contents are lost
// on restart.
type MemoryBookingStore struct {
	mu       sync.RWMutex
	bookings map[string]model.Booking
	byHold   map[string]string
}

// NewMemoryBookingStore returns an empty store.
func NewMemoryBookingStore() *MemoryBookingStore {
	return &MemoryBookingStore{
		bookings: make(map[string]model.Booking),
		byHold:   make(map[string]string),
	}
}

func (s *MemoryBookingStore) Create(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; ok {
		return fmt.Errorf("booking %s: %w", b.ID, ErrConflict)
	}
	if _, ok := s.byHold[b.HoldID]; ok {
		return fmt.Errorf("hold %s already booked: %w", b.HoldID, ErrConflict)
	}
	s.bookings[b.ID] = clone(*b)
	s.byHold[b.HoldID] = b.ID
	return nil
}

func (s *MemoryBookingStore) Get(_ context.Context, id string) (model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, fmt.Errorf("booking %s: %w", id, model.ErrBookingNotFound)
	}
	return clone(b), nil
}

func (s *MemoryBookingStore) CompareAndSetStatus(_ context.Context, id string, from, to model.PaymentStatus, outcome model.PaymentOutcome, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.PaymentStatus != from {
		return false, nil
	}
	b.PaymentStatus = to
	if outcome != "" {
		b.PaymentOutcome = outcome
	}
	b.UpdatedAt = at.UTC()
	s.bookings[id] = b
	return true, nil
}

func (s *MemoryBookingStore) ListBySession(_ context.Context, sessionID string) ([]model.Booking, error) {
	out := s.filter(func(b model.Booking) bool { return b.SessionID == sessionID })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryBookingStore) ListByStatus(_ context.Context, status model.PaymentStatus) ([]model.Booking, error) {
	out := s.filter(func(b model.Booking) bool { return b.PaymentStatus == status })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryBookingStore) filter(keep func(model.Booking) bool) []model.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Booking{}
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, clone(b))
		}
	}
	return out
}

func clone(b model.Booking) model.Booking {
	b.Seats = append([]model.SeatID(nil), b.Seats...)
	return b
}
