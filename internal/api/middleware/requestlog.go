package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestLog returns Echo middleware that logs each request and propagates
// an X-Request-ID. Probe paths log their first success only; probe
// failures and server errors are logged at WARN every time.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
	var (
		mu        sync.Mutex
		probeSeen = make(map[string]bool)
	)

	quiet := func(path string, status int) bool {
		if _, probe := probeGauges[path]; !probe || !isSuccess(status) {
			return false
		}
		mu.Lock()
		defer mu.Unlock()
		if probeSeen[path] {
			return true
		}
		probeSeen[path] = true
		return false
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			reqID := c.Request().Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Set(requestIDKey, reqID)
			c.Response().Header().Set(requestIDHeader, reqID)

			err := next(c)

			path := c.Request().URL.Path
			status := c.Response().Status
			if quiet(path, status) {
				return err
			}

			level := slog.LevelInfo
			if _, probe := probeGauges[path]; (probe && !isSuccess(status)) || status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			log.Log(c.Request().Context(), level, "request",
				"method", c.Request().Method,
				"path", path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", reqID,
			)

			return err
		}
	}
}
