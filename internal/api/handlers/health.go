package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ReadinessChecker reports whether every poller is running.
type ReadinessChecker interface {
	Ready() bool
}

// Pinger verifies a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health and readiness endpoints.
type HealthHandler struct {
	pollers ReadinessChecker
	history Pinger
}

// NewHealthHandler creates a HealthHandler. history may be nil when no
// history database is configured.
func NewHealthHandler(pollers ReadinessChecker, history Pinger) *HealthHandler {
	return &HealthHandler{pollers: pollers, history: history}
}

// Healthz returns 200 if the process is running.
func (*HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// Readyz returns 200 when all pollers are alive and the history database,
// if any, is reachable. It returns 503 otherwise.
func (h *HealthHandler) Readyz(c echo.Context) error {
	if !h.pollers.Ready() {
		return c.JSON(http.StatusServiceUnavailable, StatusResponse{Status: "pollers_down"})
	}
	if h.history != nil {
		if err := h.history.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, StatusResponse{Status: "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ready"})
}
