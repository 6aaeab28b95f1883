package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/donaldgifford/ticket-monitor/internal/config"
	"github.com/donaldgifford/ticket-monitor/internal/engine"
	"github.com/donaldgifford/ticket-monitor/internal/notify"
	"github.com/donaldgifford/ticket-monitor/internal/store"
	"github.com/donaldgifford/ticket-monitor/internal/vendor"
	"github.com/donaldgifford/ticket-monitor/pkg/logger"
)

// loadConfig reads the config file named by --config and applies the
// logging flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if lvl := viper.GetString("log_level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if f := viper.GetString("log_format"); f != "" {
		cfg.Logging.Format = f
	}
	return cfg, nil
}

func newLogger(cfg *config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	return logger.NewWithFile(cfg.Level, cfg.Format, cfg.File)
}

// buildRegistry creates one adapter per vendor with credentials.
func buildRegistry(cfg *config.Config) *vendor.Registry {
	opts := func(baseURL string) []vendor.Option {
		o := []vendor.Option{vendor.WithTimeouts(cfg.Monitor.ConnectTimeout, cfg.Monitor.ReadTimeout)}
		if baseURL != "" {
			o = append(o, vendor.WithBaseURL(baseURL))
		}
		return o
	}

	var adapters []vendor.Adapter
	if ll := cfg.Vendors.LiveLab; ll.Authorization != "" {
		adapters = append(adapters, vendor.NewLiveLab(ll.Authorization, opts(ll.BaseURL)...))
	}
	if my := cfg.Vendors.Maoyan; my.Token != "" {
		adapters = append(adapters, vendor.NewMaoyan(vendor.MaoyanCredentials{
			Token:  my.Token,
			UUID:   my.UUID,
			MTGSig: my.MTGSig,
			CityID: my.CityID,
		}, opts(my.BaseURL)...))
	}
	return vendor.NewRegistry(adapters...)
}

// buildBindings pairs every enabled target with its vendor's adapter.
func buildBindings(cfg *config.Config, reg *vendor.Registry) ([]engine.Binding, error) {
	targets := cfg.EnabledTargets()
	bindings := make([]engine.Binding, 0, len(targets))
	for _, t := range targets {
		a, err := reg.Adapter(t.Vendor)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", t.Name, err)
		}
		bindings = append(bindings, engine.Binding{Target: t, Adapter: a})
	}
	return bindings, nil
}

// buildNotifier fans out to every enabled transport, or logs notifications
// when none is enabled.
func buildNotifier(cfg *config.NotificationsConfig, log *slog.Logger) (notify.Notifier, error) {
	var notifiers []notify.Notifier

	if e := cfg.Email; e.Enabled {
		email, err := notify.NewEmailNotifier(notify.EmailConfig{
			Server:     e.Server,
			Port:       e.Port,
			Username:   e.Username,
			Password:   e.Password,
			Sender:     e.Sender,
			Recipients: e.Recipients,
		})
		if err != nil {
			return nil, fmt.Errorf("configuring email: %w", err)
		}
		notifiers = append(notifiers, email)
	}
	if d := cfg.Discord; d.Enabled {
		notifiers = append(notifiers, notify.NewDiscordNotifier(d.WebhookURL))
	}

	if len(notifiers) == 0 {
		log.Warn("no notification transport enabled, notifications will only be logged")
		return notify.NewNoOpNotifier(log), nil
	}
	return notify.NewMultiNotifier(notifiers...), nil
}

// openHistory connects to the history database and applies migrations. It
// returns nil when no database is configured.
func openHistory(ctx context.Context, cfg *config.DatabaseConfig, log *slog.Logger) (*store.PostgresStore, error) {
	if !cfg.Enabled() {
		log.Info("notification history disabled")
		return nil, nil
	}

	s, err := store.NewPostgresStore(ctx, cfg.DSN(), cfg.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("connecting to history database: %w", err)
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}
	log.Info("notification history enabled", "host", cfg.Host, "database", cfg.Name)
	return s, nil
}
