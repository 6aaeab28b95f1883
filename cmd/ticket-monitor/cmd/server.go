package cmd

import (
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/donaldgifford/ticket-monitor/internal/api/handlers"
	"github.com/donaldgifford/ticket-monitor/internal/api/middleware"
	"github.com/donaldgifford/ticket-monitor/internal/config"
	"github.com/donaldgifford/ticket-monitor/internal/engine"
	"github.com/donaldgifford/ticket-monitor/internal/store"
)

// newServer builds the status server. history may be nil.
func newServer(
	cfg *config.ServerConfig,
	log *slog.Logger,
	sup *engine.Supervisor,
	history *store.PostgresStore,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.Recovery(log), middleware.RequestLog(log), middleware.Metrics())

	var pinger handlers.Pinger
	if history != nil {
		pinger = history
	}
	health := handlers.NewHealthHandler(sup, pinger)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := humaecho.New(e, huma.DefaultConfig("Ticket Monitor API", Version))
	handlers.RegisterPollerRoutes(api, handlers.NewPollersHandler(sup))
	if history != nil {
		handlers.RegisterNotificationRoutes(api, handlers.NewNotificationsHandler(history))
	}

	return e
}
