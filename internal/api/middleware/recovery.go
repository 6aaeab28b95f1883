package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Recovery returns Echo middleware that turns a handler panic into a 500
// response. The log record and the response share a correlation id.
func Recovery(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				id := uuid.NewString()
				log.Error("handler panicked",
					"correlation_id", id,
					"panic", r,
					"method", c.Request().Method,
					"path", c.Request().URL.Path,
					"stack", string(debug.Stack()),
				)
				err = c.JSON(http.StatusInternalServerError, map[string]string{
					"error":          "internal server error",
					"correlation_id": id,
				})
			}()
			return next(c)
		}
	}
}
