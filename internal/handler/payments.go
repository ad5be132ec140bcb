package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-core/internal/booking"
	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// WebhookSecretHeader authenticates payment provider callbacks.
const WebhookSecretHeader = "X-Webhook-Secret"

// PaymentHandler receives payment provider callbacks.
type PaymentHandler struct {
	Coord  *booking.Coordinator
	Secret string // empty disables the header check
}

type callbackRequest struct {
	BookingAttemptID string `json:"booking_attempt_id"`
	Outcome          string `json:"outcome"`
}

// Callback applies a provider outcome.  Repeats of the recorded outcome
// answer 200 with the unchanged booking; contradicting outcomes answer 409.
func (h *PaymentHandler) Callback(c echo.Context) error {
	if h.Secret != "" {
		got := c.Request().Header.Get(WebhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid webhook secret"})
		}
	}
	var req callbackRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.BookingAttemptID == "" {
		return badRequest(c, "booking_attempt_id is required")
	}
	outcome := model.PaymentOutcome(strings.ToUpper(strings.TrimSpace(req.Outcome)))
	b, err := h.Coord.OnPaymentResult(c.Request().Context(), req.BookingAttemptID, outcome)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newBookingView(b))
}
