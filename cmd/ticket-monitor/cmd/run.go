package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/donaldgifford/ticket-monitor/internal/engine"
	"github.com/donaldgifford/ticket-monitor/internal/telemetry"
)

const serverShutdownTimeout = 10 * time.Second

func runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the pollers and run until interrupted",
		RunE:  runMonitor,
	}
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, logFile, err := newLogger(&cfg.Logging)
	if err != nil {
		return err
	}
	defer logFile.Close()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry, Version)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(tctx); err != nil {
			log.Warn("flushing telemetry", "error", err)
		}
	}()

	history, err := openHistory(ctx, &cfg.Database, log)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}

	notifier, err := buildNotifier(&cfg.Notifications, log)
	if err != nil {
		return err
	}

	dispatcherOpts := []engine.DispatcherOption{
		engine.WithDispatcherLogger(log),
		engine.WithCooldown(cfg.Monitor.RenotifyCooldown),
	}
	if history != nil {
		dispatcherOpts = append(dispatcherOpts, engine.WithHistory(history))
	}
	dispatcher := engine.NewDispatcher(notifier, dispatcherOpts...)

	limiter := engine.NewRateLimiter(cfg.Monitor.Interval,
		engine.WithRest(cfg.Monitor.Rest.Every, cfg.Monitor.Rest.Min, cfg.Monitor.Rest.Max),
	)

	bindings, err := buildBindings(cfg, buildRegistry(cfg))
	if err != nil {
		return err
	}
	if len(bindings) == 0 {
		return errors.New("no enabled targets")
	}

	sup, err := engine.NewSupervisor(bindings, limiter, dispatcher,
		engine.WithSupervisorLogger(log),
		engine.WithLivenessInterval(cfg.Monitor.LivenessInterval),
		engine.WithStallAfter(cfg.Monitor.StallAfter),
		engine.WithShutdownGrace(cfg.Monitor.ShutdownGrace),
	)
	if err != nil {
		return fmt.Errorf("creating supervisor: %w", err)
	}
	if err := sup.Start(ctx); err != nil {
		return fmt.Errorf("starting supervisor: %w", err)
	}

	var srv *echo.Echo
	if cfg.Server.Enabled {
		srv = newServer(&cfg.Server, log, sup, history)
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Info("starting status server", "addr", addr)
		go func() {
			if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("status server error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	log.Info("shutdown signal received")

	if err := sup.Shutdown(); err != nil {
		// Notifications still in flight may be lost.
		log.Warn("pollers abandoned at shutdown", "error", err)
	}

	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("shutting down status server: %w", err)
		}
	}

	log.Info("ticket monitor stopped")
	return nil
}
