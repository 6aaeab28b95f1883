// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	domain "github.com/donaldgifford/ticket-monitor/pkg/types"
)

// Config is the top-level application configuration.
type Config struct {
	Monitor       MonitorConfig       `yaml:"monitor"`
	Vendors       VendorsConfig       `yaml:"vendors"`
	Targets       []TargetConfig      `yaml:"targets"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// MonitorConfig defines polling cadence and supervision settings.
type MonitorConfig struct {
	Interval         time.Duration `yaml:"interval"`
	Rest             RestConfig    `yaml:"rest"`
	LivenessInterval time.Duration `yaml:"liveness_interval"`
	StallAfter       time.Duration `yaml:"stall_after"`
	ShutdownGrace    time.Duration `yaml:"shutdown_grace"`
	RenotifyCooldown time.Duration `yaml:"renotify_cooldown"` // 0: until the offer lapses
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
}

// RestConfig defines the periodic long rest.
type RestConfig struct {
	Every int           `yaml:"every"`
	Min   time.Duration `yaml:"min"`
	Max   time.Duration `yaml:"max"`
}

// VendorsConfig holds per-vendor credentials.
type VendorsConfig struct {
	LiveLab LiveLabConfig `yaml:"livelab"`
	Maoyan  MaoyanConfig  `yaml:"maoyan"`
}

// LiveLabConfig defines LiveLab API settings.
type LiveLabConfig struct {
	Authorization string `yaml:"authorization"`
	BaseURL       string `yaml:"base_url"`
}

// MaoyanConfig defines Maoyan API settings.
type MaoyanConfig struct {
	Token   string `yaml:"token"`
	UUID    string `yaml:"uuid"`
	MTGSig  string `yaml:"mtgsig"`
	CityID  string `yaml:"city_id"`
	BaseURL string `yaml:"base_url"`
}

// TargetConfig defines one monitored show.
type TargetConfig struct {
	Name        string         `yaml:"name"`
	Vendor      string         `yaml:"vendor"`
	Enabled     *bool          `yaml:"enabled"` // default: true
	ShowID      string         `yaml:"show_id"`
	ProjectID   string         `yaml:"project_id"`
	Prices      []float64      `yaml:"prices"`
	Dates       []string       `yaml:"dates"`
	Contact     domain.Contact `yaml:"contact"`
	FrequentIDs []string       `yaml:"frequent_ids"`
}

// IsEnabled reports whether the target should be polled.
func (t *TargetConfig) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// Criteria converts the target into immutable match criteria.
func (t *TargetConfig) Criteria() *domain.TargetCriteria {
	return &domain.TargetCriteria{
		Name:        t.Name,
		Vendor:      domain.Vendor(t.Vendor),
		ShowID:      t.ShowID,
		ProjectID:   t.ProjectID,
		Enabled:     t.IsEnabled(),
		Prices:      append([]float64(nil), t.Prices...),
		Dates:       append([]string(nil), t.Dates...),
		Contact:     t.Contact,
		FrequentIDs: append([]string(nil), t.FrequentIDs...),
	}
}

// NotificationsConfig defines notification targets.
type NotificationsConfig struct {
	Email   EmailConfig   `yaml:"email"`
	Discord DiscordConfig `yaml:"discord"`
}

// EmailConfig defines SMTP settings.
type EmailConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Server     string   `yaml:"server"`
	Port       int      `yaml:"port"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	Sender     string   `yaml:"sender"`
	Recipients []string `yaml:"recipients"`
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// ServerConfig defines the status HTTP server settings.
type ServerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig defines PostgreSQL connection settings for notification
// history. History is disabled when Host is empty.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// Enabled reports whether a history database is configured.
func (d *DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// TelemetryConfig defines OpenTelemetry export settings. Export is disabled
// when OTLPEndpoint is empty.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
	ServiceName  string `yaml:"service_name"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	File   string `yaml:"file"`   // optional, records are also written here
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation. Variables from a .env file in the working
// directory are loaded first; existing environment values win.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// EnabledTargets returns the criteria of every enabled target.
func (c *Config) EnabledTargets() []*domain.TargetCriteria {
	var out []*domain.TargetCriteria
	for i := range c.Targets {
		if c.Targets[i].IsEnabled() {
			out = append(out, c.Targets[i].Criteria())
		}
	}
	return out
}

// Target returns the named target's criteria.
func (c *Config) Target(name string) (*domain.TargetCriteria, bool) {
	for i := range c.Targets {
		if c.Targets[i].Name == name {
			return c.Targets[i].Criteria(), true
		}
	}
	return nil, false
}

func applyDefaults(cfg *Config) {
	applyMonitorDefaults(&cfg.Monitor)
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyLoggingDefaults(&cfg.Logging)
	if cfg.Notifications.Email.Port == 0 {
		cfg.Notifications.Email.Port = 587
	}
}

func applyMonitorDefaults(m *MonitorConfig) {
	if m.Interval == 0 {
		m.Interval = 5 * time.Second
	}
	if m.Rest.Every == 0 {
		m.Rest.Every = 50
	}
	if m.Rest.Min == 0 {
		m.Rest.Min = 2 * time.Minute
	}
	if m.Rest.Max == 0 {
		m.Rest.Max = 5 * time.Minute
	}
	if m.LivenessInterval == 0 {
		m.LivenessInterval = 60 * time.Second
	}
	if m.StallAfter == 0 {
		m.StallAfter = 5 * time.Minute
	}
	if m.ShutdownGrace == 0 {
		m.ShutdownGrace = 10 * time.Second
	}
	if m.ConnectTimeout == 0 {
		m.ConnectTimeout = 5 * time.Second
	}
	if m.ReadTimeout == 0 {
		m.ReadTimeout = 10 * time.Second
	}
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 4
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.ServiceName == "" {
		t.ServiceName = "ticket-monitor"
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	m := &cfg.Monitor
	if m.Interval < 0 {
		errs = append(errs, errors.New("monitor.interval must not be negative"))
	}
	if m.Rest.Every < 0 {
		errs = append(errs, errors.New("monitor.rest.every must not be negative"))
	}
	if m.Rest.Max < m.Rest.Min {
		errs = append(errs, fmt.Errorf(
			"monitor.rest.max (%s) must not be less than monitor.rest.min (%s)",
			m.Rest.Max, m.Rest.Min,
		))
	}
	if m.LivenessInterval < time.Second {
		errs = append(errs, errors.New("monitor.liveness_interval must be at least 1s"))
	}
	if m.RenotifyCooldown < 0 {
		errs = append(errs, errors.New("monitor.renotify_cooldown must not be negative"))
	}

	errs = append(errs, validateTargets(cfg)...)

	if e := &cfg.Notifications.Email; e.Enabled {
		if e.Server == "" {
			errs = append(errs, errors.New("notifications.email.server is required when email is enabled"))
		}
		if e.Sender == "" {
			errs = append(errs, errors.New("notifications.email.sender is required when email is enabled"))
		}
		if len(e.Recipients) == 0 {
			errs = append(errs, errors.New("notifications.email.recipients is required when email is enabled"))
		}
	}
	if d := &cfg.Notifications.Discord; d.Enabled && d.WebhookURL == "" {
		errs = append(errs, errors.New("notifications.discord.webhook_url is required when discord is enabled"))
	}

	if cfg.Database.Enabled() {
		if cfg.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required when database.host is set"))
		}
		if cfg.Database.User == "" {
			errs = append(errs, errors.New("database.user is required when database.host is set"))
		}
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be one of: text, json (got %q)", cfg.Logging.Format))
	}

	return errors.Join(errs...)
}

func validateTargets(cfg *Config) []error {
	var errs []error
	seen := make(map[string]bool, len(cfg.Targets))
	needLiveLab, needMaoyan := false, false

	for i := range cfg.Targets {
		t := &cfg.Targets[i]
		prefix := fmt.Sprintf("targets[%d]", i)

		if t.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else if seen[t.Name] {
			errs = append(errs, fmt.Errorf("%s.name %q is not unique", prefix, t.Name))
		}
		seen[t.Name] = true

		if t.ShowID == "" {
			errs = append(errs, fmt.Errorf("%s.show_id is required", prefix))
		}

		switch domain.Vendor(t.Vendor) {
		case domain.VendorLiveLab:
			needLiveLab = needLiveLab || t.IsEnabled()
		case domain.VendorMaoyan:
			needMaoyan = needMaoyan || t.IsEnabled()
			if t.ProjectID == "" {
				errs = append(errs, fmt.Errorf("%s.project_id is required for maoyan targets", prefix))
			}
		default:
			errs = append(errs, fmt.Errorf(
				"%s.vendor must be one of: livelab, maoyan (got %q)", prefix, t.Vendor,
			))
		}
	}

	if needLiveLab && cfg.Vendors.LiveLab.Authorization == "" {
		errs = append(errs, errors.New("vendors.livelab.authorization is required for enabled livelab targets"))
	}
	if needMaoyan && cfg.Vendors.Maoyan.Token == "" {
		errs = append(errs, errors.New("vendors.maoyan.token is required for enabled maoyan targets"))
	}

	return errs
}
