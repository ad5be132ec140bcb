package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

func TestWriteErrorStatuses(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&model.SeatsUnavailableError{Seats: []model.SeatID{{Row: 0, Index: 1}}}, http.StatusConflict},
		{&model.ReconciliationError{BookingID: "b", Recorded: model.OutcomeSuccess, Received: model.OutcomeFailure}, http.StatusConflict},
		{fmt.Errorf("x: %w", model.ErrUnknownSeat), http.StatusBadRequest},
		{fmt.Errorf("x: %w", model.ErrInvalidArgument), http.StatusBadRequest},
		{fmt.Errorf("x: %w", model.ErrUnknownShowtime), http.StatusNotFound},
		{fmt.Errorf("x: %w", model.ErrHoldNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", model.ErrBookingNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", model.ErrHoldExpired), http.StatusGone},
		{fmt.Errorf("x: %w", model.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("x: %w", model.ErrInvalidState), http.StatusConflict},
	}
	e := echo.New()
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, writeError(c, tc.err))
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
	}
}

func TestWriteErrorUnknownIsInternal(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	err := writeError(c, errors.New("disk on fire"))
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusInternalServerError, he.Code)
	assert.EqualError(t, he.Internal, "disk on fire")
}

func TestSeatsUnavailableBodyListsLabels(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, writeError(c, &model.SeatsUnavailableError{Seats: []model.SeatID{{Row: 1, Index: 2}}}))
	assert.Contains(t, rec.Body.String(), `"unavailable":["B03"]`)
}
