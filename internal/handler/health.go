package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-core/internal/hold"
)

// HealthHandler serves the liveness probe.
type HealthHandler struct {
	Holds *hold.Manager
}

// Health reports that the service is up, with hold counters.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "holds": h.Holds.Stats()})
}
