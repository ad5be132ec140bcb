// Package seatmap holds the authoritative seat status for every registered
// showtime.  Seat status is only changed through TryTransition, an
// all-or-nothing compare-and-set over a set of seats guarded by the
// showtime's own mutex; showtimes never share a lock.
package seatmap

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// grid is the seat map of a single showtime.
type grid struct {
	mu       sync.RWMutex
	showtime model.Showtime
	status   [][]model.SeatStatus
	byLabel  map[string]model.SeatID
}

// Store is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	grids map[uint64]*grid
}

// Counts summarises a showtime's seat map.
type Counts struct {
	Available int `json:"available"`
	Held      int `json:"held"`
	Booked    int `json:"booked"`
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{grids: make(map[uint64]*grid)}
}

// RegisterShowtime (re)generates the seat grid of st with every seat
// available.  Re-registering a showtime discards its previous seat states.
func (s *Store) RegisterShowtime(st model.Showtime) error {
	if st.ID == 0 || st.Rows <= 0 || st.SeatsPerRow <= 0 {
		return fmt.Errorf("register showtime %d: %w: grid must be at least 1x1", st.ID, model.ErrInvalidArgument)
	}
	g := &grid{
		showtime: st,
		status:   make([][]model.SeatStatus, st.Rows),
		byLabel:  make(map[string]model.SeatID, st.Capacity()),
	}
	for r := 0; r < st.Rows; r++ {
		row := make([]model.SeatStatus, st.SeatsPerRow)
		for i := range row {
			row[i] = model.SeatAvailable
			id := model.SeatID{ScreenID: st.ScreenID, ShowtimeID: st.ID, Row: r, Index: i}
			g.byLabel[id.Label()] = id
		}
		g.status[r] = row
	}
	s.mu.Lock()
	s.grids[st.ID] = g
	s.mu.Unlock()
	return nil
}

// RemoveShowtime drops a showtime and all of its seats.
func (s *Store) RemoveShowtime(showtimeID uint64) {
	s.mu.Lock()
	delete(s.grids, showtimeID)
	s.mu.Unlock()
}

// Showtime returns the registered showtime descriptor.
func (s *Store) Showtime(showtimeID uint64) (model.Showtime, error) {
	g, err := s.grid(showtimeID)
	if err != nil {
		return model.Showtime{}, err
	}
	return g.showtime, nil
}

// Showtimes lists registered showtimes ordered by ID.
func (s *Store) Showtimes() []model.Showtime {
	s.mu.RLock()
	out := make([]model.Showtime, 0, len(s.grids))
	for _, g := range s.grids {
		out = append(out, g.showtime)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetLayout returns a copy of the showtime's seat grid, row by row.
func (s *Store) GetLayout(showtimeID uint64) ([][]model.Seat, error) {
	g, err := s.grid(showtimeID)
	if err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	layout := make([][]model.Seat, len(g.status))
	for r, row := range g.status {
		seats := make([]model.Seat, len(row))
		for i, st := range row {
			id := model.SeatID{ScreenID: g.showtime.ScreenID, ShowtimeID: g.showtime.ID, Row: r, Index: i}
			seats[i] = model.Seat{ID: id, Label: id.Label(), Status: st}
		}
		layout[r] = seats
	}
	return layout, nil
}

// Counts tallies seat statuses for a showtime.
func (s *Store) Counts(showtimeID uint64) (Counts, error) {
	g, err := s.grid(showtimeID)
	if err != nil {
		return Counts{}, err
	}
	var c Counts
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, row := range g.status {
		for _, st := range row {
			switch st {
			case model.SeatAvailable:
				c.Available++
			case model.SeatHeld:
				c.Held++
			case model.SeatBooked:
				c.Booked++
			}
		}
	}
	return c, nil
}

// Status returns the current status of a single seat.
func (s *Store) Status(id model.SeatID) (model.SeatStatus, error) {
	g, err := s.grid(id.ShowtimeID)
	if err != nil {
		return "", err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.check(id); err != nil {
		return "", err
	}
	return g.status[id.Row][id.Index], nil
}

// ResolveLabels maps seat labels such as "A01" to seat IDs of the showtime.
// Labels are matched case-insensitively; duplicates are kept.
func (s *Store) ResolveLabels(showtimeID uint64, labels []string) ([]model.SeatID, error) {
	g, err := s.grid(showtimeID)
	if err != nil {
		return nil, err
	}
	ids := make([]model.SeatID, 0, len(labels))
	for _, l := range labels {
		id, ok := g.byLabel[strings.ToUpper(strings.TrimSpace(l))]
		if !ok {
			return nil, fmt.Errorf("seat %q in showtime %d: %w", l, showtimeID, model.ErrUnknownSeat)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// TryTransition moves every seat in ids from one status to another, or none
// of them.  When any seat is not currently in `from` nothing is changed and
// the offending seats are returned with ok=false; that is a normal outcome,
// not an error.  All seats must belong to the same registered showtime,
// otherwise ErrUnknownSeat is returned.  An empty set succeeds trivially.
func (s *Store) TryTransition(ids []model.SeatID, from, to model.SeatStatus) (bool, []model.SeatID, error) {
	if len(ids) == 0 {
		return true, nil, nil
	}
	if !from.Valid() || !to.Valid() {
		return false, nil, fmt.Errorf("transition %s->%s: %w", from, to, model.ErrInvalidArgument)
	}
	showtimeID := ids[0].ShowtimeID
	g, err := s.grid(showtimeID)
	if err != nil {
		return false, nil, fmt.Errorf("seat %s: %w", ids[0], model.ErrUnknownSeat)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var conflicts []model.SeatID
	for _, id := range ids {
		if id.ShowtimeID != showtimeID {
			return false, nil, fmt.Errorf("seat %s does not belong to showtime %d: %w", id, showtimeID, model.ErrUnknownSeat)
		}
		if err := g.check(id); err != nil {
			return false, nil, err
		}
		if g.status[id.Row][id.Index] != from {
			conflicts = append(conflicts, id)
		}
	}
	if len(conflicts) > 0 {
		return false, conflicts, nil
	}
	for _, id := range ids {
		g.status[id.Row][id.Index] = to
	}
	return true, nil, nil
}

func (s *Store) grid(showtimeID uint64) (*grid, error) {
	s.mu.RLock()
	g, ok := s.grids[showtimeID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("showtime %d: %w", showtimeID, model.ErrUnknownShowtime)
	}
	return g, nil
}

// check validates that id addresses a seat of g.  Callers hold g.mu.
func (g *grid) check(id model.SeatID) error {
	if id.ScreenID != g.showtime.ScreenID || id.ShowtimeID != g.showtime.ID ||
		id.Row < 0 || id.Row >= len(g.status) ||
		id.Index < 0 || id.Index >= len(g.status[id.Row]) {
		return fmt.Errorf("seat %s: %w", id, model.ErrUnknownSeat)
	}
	return nil
}
