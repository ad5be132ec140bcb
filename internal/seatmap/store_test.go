package seatmap

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

func newTestStore(t *testing.T) (*Store, model.Showtime) {
	t.Helper()
	st := model.Showtime{ID: 7, ScreenID: 3, MovieRef: "tt0133093", Rows: 2, SeatsPerRow: 5, PriceCents: 1200}
	s := NewStore()
	require.NoError(t, s.RegisterShowtime(st))
	return s, st
}

func seats(t *testing.T, s *Store, showtimeID uint64, labels ...string) []model.SeatID {
	t.Helper()
	ids, err := s.ResolveLabels(showtimeID, labels)
	require.NoError(t, err)
	return ids
}

func TestRegisterShowtimeBuildsAvailableGrid(t *testing.T) {
	s, st := newTestStore(t)

	layout, err := s.GetLayout(st.ID)
	require.NoError(t, err)
	require.Len(t, layout, 2)
	require.Len(t, layout[0], 5)
	assert.Equal(t, "A01", layout[0][0].Label)
	assert.Equal(t, "B05", layout[1][4].Label)
	for _, row := range layout {
		for _, seat := range row {
			assert.Equal(t, model.SeatAvailable, seat.Status)
		}
	}

	c, err := s.Counts(st.ID)
	require.NoError(t, err)
	assert.Equal(t, Counts{Available: 10}, c)
}

func TestRegisterShowtimeRejectsEmptyGrid(t *testing.T) {
	s := NewStore()
	err := s.RegisterShowtime(model.Showtime{ID: 1, Rows: 0, SeatsPerRow: 4})
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}

func TestTryTransitionAllOrNothing(t *testing.T) {
	s, st := newTestStore(t)
	a, b := seats(t, s, st.ID, "A01")[0], seats(t, s, st.ID, "A02")[0]

	ok, conflicts, err := s.TryTransition([]model.SeatID{b}, model.SeatAvailable, model.SeatHeld)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, conflicts)

	ok, conflicts, err = s.TryTransition([]model.SeatID{a, b}, model.SeatAvailable, model.SeatHeld)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []model.SeatID{b}, conflicts)

	status, err := s.Status(a)
	require.NoError(t, err)
	assert.Equal(t, model.SeatAvailable, status, "seat outside the conflict must stay untouched")
}

func TestTryTransitionUnknownSeat(t *testing.T) {
	s, st := newTestStore(t)
	valid := seats(t, s, st.ID, "A01")[0]

	outOfGrid := model.SeatID{ScreenID: st.ScreenID, ShowtimeID: st.ID, Row: 9, Index: 0}
	_, _, err := s.TryTransition([]model.SeatID{valid, outOfGrid}, model.SeatAvailable, model.SeatHeld)
	assert.ErrorIs(t, err, model.ErrUnknownSeat)

	otherShowtime := model.SeatID{ScreenID: st.ScreenID, ShowtimeID: 99, Row: 0, Index: 0}
	_, _, err = s.TryTransition([]model.SeatID{valid, otherShowtime}, model.SeatAvailable, model.SeatHeld)
	assert.ErrorIs(t, err, model.ErrUnknownSeat)

	status, err := s.Status(valid)
	require.NoError(t, err)
	assert.Equal(t, model.SeatAvailable, status)
}

func TestTryTransitionEmptySetIsNoop(t *testing.T) {
	s := NewStore()
	ok, conflicts, err := s.TryTransition(nil, model.SeatAvailable, model.SeatHeld)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, conflicts)
}

func TestResolveLabels(t *testing.T) {
	s, st := newTestStore(t)

	ids, err := s.ResolveLabels(st.ID, []string{"a03", " B01 "})
	require.NoError(t, err)
	assert.Equal(t, model.SeatID{ScreenID: 3, ShowtimeID: 7, Row: 0, Index: 2}, ids[0])
	assert.Equal(t, model.SeatID{ScreenID: 3, ShowtimeID: 7, Row: 1, Index: 0}, ids[1])

	_, err = s.ResolveLabels(st.ID, []string{"C01"})
	assert.ErrorIs(t, err, model.ErrUnknownSeat)

	_, err = s.ResolveLabels(42, []string{"A01"})
	assert.ErrorIs(t, err, model.ErrUnknownShowtime)
}

func TestGetLayoutReturnsCopy(t *testing.T) {
	s, st := newTestStore(t)
	layout, err := s.GetLayout(st.ID)
	require.NoError(t, err)
	layout[0][0].Status = model.SeatBooked

	status, err := s.Status(layout[0][0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.SeatAvailable, status)
}

func TestConcurrentTransitionsHaveOneWinner(t *testing.T) {
	s, st := newTestStore(t)
	target := seats(t, s, st.ID, "A01", "A02", "A03")

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// overlapping sets: every request contains A02
			set := []model.SeatID{target[1], target[i%2*2]}
			ok, _, err := s.TryTransition(set, model.SeatAvailable, model.SeatHeld)
			assert.NoError(t, err)
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)

	c, err := s.Counts(st.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Held)
}

func TestRemoveShowtime(t *testing.T) {
	s, st := newTestStore(t)
	s.RemoveShowtime(st.ID)
	_, err := s.GetLayout(st.ID)
	assert.ErrorIs(t, err, model.ErrUnknownShowtime)
	assert.Empty(t, s.Showtimes())
}
