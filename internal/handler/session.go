package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-core/internal/utils"
)

// SessionHandler issues anonymous session tokens.
type SessionHandler struct {
	Secret string
	TTL    time.Duration
}

// Create starts a new session.
func (h *SessionHandler) Create(c echo.Context) error {
	st, err := utils.NewSessionToken(h.Secret, h.TTL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, echo.Map{"error": "token error"}).SetInternal(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"session_id":   st.SessionID,
		"access_token": st.Token,
		"token_type":   "Bearer",
		"expires_at":   st.Exp,
	})
}
