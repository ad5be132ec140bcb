package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-core/internal/booking"
	"github.com/iliyamo/cinema-booking-core/internal/handler"
	"github.com/iliyamo/cinema-booking-core/internal/hold"
	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/repository"
	"github.com/iliyamo/cinema-booking-core/internal/seatmap"
)

const (
	secret        = "test-secret"
	webhookSecret = "hook"
)

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T) *api {
	t.Helper()
	seats := seatmap.NewStore()
	require.NoError(t, seats.RegisterShowtime(model.Showtime{ID: 1, ScreenID: 1, Rows: 2, SeatsPerRow: 5, PriceCents: 1250}))
	holds := hold.NewManager(seats, hold.Config{TTL: time.Minute})
	coord := booking.NewCoordinator(holds, seats, repository.NewMemoryBookingStore(), booking.Config{PaymentTimeout: time.Minute})
	t.Cleanup(coord.Close)

	e := echo.New()
	Register(e, Handlers{
		Health:   &handler.HealthHandler{Holds: holds},
		Session:  &handler.SessionHandler{Secret: secret, TTL: time.Hour},
		Seats:    &handler.SeatHandler{Seats: seats},
		Holds:    &handler.HoldHandler{Seats: seats, Holds: holds},
		Bookings: &handler.BookingHandler{Coord: coord},
		Payments: &handler.PaymentHandler{Coord: coord, Secret: webhookSecret},
	}, secret, nil)
	return &api{t: t, e: e}
}

func (a *api) do(method, path, token string, body interface{}, headers ...string) (int, map[string]interface{}) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	out := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec.Code, out
}

func (a *api) session() string {
	a.t.Helper()
	code, body := a.do(http.MethodPost, "/v1/sessions", "", nil)
	require.Equal(a.t, http.StatusCreated, code)
	return body["access_token"].(string)
}

func (a *api) seatStatus(label string) string {
	a.t.Helper()
	_, body := a.do(http.MethodGet, "/v1/showtimes/1/seats", "", nil)
	for _, r := range body["rows"].([]interface{}) {
		for _, s := range r.(map[string]interface{})["seats"].([]interface{}) {
			seat := s.(map[string]interface{})
			if seat["label"] == label {
				return seat["status"].(string)
			}
		}
	}
	a.t.Fatalf("seat %s not in layout", label)
	return ""
}

func TestBookingFlow(t *testing.T) {
	a := newAPI(t)
	s1, s2 := a.session(), a.session()

	code, held := a.do(http.MethodPost, "/v1/showtimes/1/holds", s1, echo.Map{"seats": []string{"A01", "a02"}})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, []interface{}{"A01", "A02"}, held["seats"])
	holdID := held["hold_id"].(string)

	code, conflict := a.do(http.MethodPost, "/v1/showtimes/1/holds", s2, echo.Map{"seats": []string{"A02", "A03"}})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, []interface{}{"A02"}, conflict["unavailable"])
	assert.Equal(t, "AVAILABLE", a.seatStatus("A03"))

	code, _ = a.do(http.MethodPost, "/v1/bookings", s2, echo.Map{"hold_id": holdID, "payment_method": "card"})
	assert.Equal(t, http.StatusForbidden, code)

	code, b := a.do(http.MethodPost, "/v1/bookings", s1, echo.Map{"hold_id": holdID, "payment_method": "card"})
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "PENDING", b["status"])
	assert.Equal(t, float64(2500), b["total_cents"])
	bookingID := b["booking_attempt_id"].(string)

	cb := echo.Map{"booking_attempt_id": bookingID, "outcome": "success"}
	code, _ = a.do(http.MethodPost, "/v1/payments/callback", "", cb)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, b = a.do(http.MethodPost, "/v1/payments/callback", "", cb, "X-Webhook-Secret", webhookSecret)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "CONFIRMED", b["status"])
	assert.Equal(t, "BOOKED", a.seatStatus("A01"))

	code, _ = a.do(http.MethodPost, "/v1/payments/callback", "", cb, "X-Webhook-Secret", webhookSecret)
	assert.Equal(t, http.StatusOK, code)
	code, body := a.do(http.MethodPost, "/v1/payments/callback", "",
		echo.Map{"booking_attempt_id": bookingID, "outcome": "FAILURE"}, "X-Webhook-Secret", webhookSecret)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "reconciliation_required", body["error"])

	code, mine := a.do(http.MethodGet, "/v1/my-bookings", s1, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, mine["items"], 1)
	code, _ = a.do(http.MethodGet, "/v1/bookings/"+bookingID, s2, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, b = a.do(http.MethodPost, "/v1/bookings/"+bookingID+"/cancel", s1, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "CANCELLED", b["status"])
	assert.Equal(t, "AVAILABLE", a.seatStatus("A01"))

	code, _ = a.do(http.MethodPost, "/v1/showtimes/1/holds", s2, echo.Map{"seats": []string{"A01", "A02"}})
	assert.Equal(t, http.StatusCreated, code)
}

func TestHoldEndpoints(t *testing.T) {
	a := newAPI(t)
	s1, s2 := a.session(), a.session()

	code, _ := a.do(http.MethodPost, "/v1/showtimes/1/holds", "", echo.Map{"seats": []string{"A01"}})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = a.do(http.MethodPost, "/v1/showtimes/1/holds", s1, echo.Map{"seats": []string{"Z99"}})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(http.MethodPost, "/v1/showtimes/1/holds", s1, echo.Map{"seats": []string{}})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(http.MethodPost, "/v1/showtimes/9/holds", s1, echo.Map{"seats": []string{"A01"}})
	assert.Equal(t, http.StatusNotFound, code)

	code, held := a.do(http.MethodPost, "/v1/showtimes/1/holds", s1, echo.Map{"seats": []string{"B05"}})
	require.Equal(t, http.StatusCreated, code)
	id := held["hold_id"].(string)

	code, _ = a.do(http.MethodDelete, "/v1/holds/"+id, s2, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, got := a.do(http.MethodGet, "/v1/holds/"+id, s1, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ACTIVE", got["state"])

	code, _ = a.do(http.MethodDelete, "/v1/holds/"+id, s1, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = a.do(http.MethodDelete, "/v1/holds/"+id, s1, nil)
	assert.Equal(t, http.StatusNoContent, code)
	assert.Equal(t, "AVAILABLE", a.seatStatus("B05"))

	code, _ = a.do(http.MethodGet, "/v1/holds/nope", s1, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPublicEndpoints(t *testing.T) {
	a := newAPI(t)

	code, body := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, body = a.do(http.MethodGet, "/v1/showtimes", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["items"], 1)

	code, body = a.do(http.MethodGet, "/v1/showtimes/1/seats", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["rows"], 2)
	assert.Equal(t, float64(10), body["counts"].(map[string]interface{})["available"])

	code, _ = a.do(http.MethodGet, "/v1/showtimes/abc/seats", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(http.MethodGet, "/v1/showtimes/42/seats", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = a.do(http.MethodPost, "/v1/payments/callback", "",
		echo.Map{"booking_attempt_id": "nope", "outcome": "SUCCESS"}, "X-Webhook-Secret", webhookSecret)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = a.do(http.MethodPost, "/v1/payments/callback", "",
		echo.Map{"booking_attempt_id": "nope", "outcome": "MAYBE"}, "X-Webhook-Secret", webhookSecret)
	assert.Equal(t, http.StatusBadRequest, code)
}
