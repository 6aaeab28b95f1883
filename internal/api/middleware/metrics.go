// Package middleware provides the Echo middleware of the status server.
package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/donaldgifford/ticket-monitor/internal/metrics"
)

// probeGauges maps probe paths to their up/down gauge. Probe and scrape
// paths are kept out of the request histogram and counter.
var probeGauges = map[string]prometheus.Gauge{
	"/healthz": metrics.HealthzUp,
	"/readyz":  metrics.ReadyzUp,
}

const scrapePath = "/metrics"

// Metrics returns Echo middleware that records request duration and status
// by route.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := routeOf(c)

			if gauge, ok := probeGauges[route]; ok {
				err := next(c)
				gauge.Set(boolGauge(isSuccess(c.Response().Status)))
				return err
			}
			if route == scrapePath {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			labels := []string{c.Request().Method, route, strconv.Itoa(c.Response().Status)}
			metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.WithLabelValues(labels...).Inc()

			return err
		}
	}
}

// routeOf returns the registered route pattern so path parameters do not
// explode label cardinality.
func routeOf(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return c.Request().URL.Path
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func boolGauge(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}
