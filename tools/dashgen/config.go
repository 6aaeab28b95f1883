package main

import "errors"

// KnownMetrics is the set of metric names exported by ticket-monitor plus
// recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"tm_http_request_duration_seconds": true,
	"tm_http_requests_total":           true,

	// Health metrics.
	"tm_healthz_up": true,
	"tm_readyz_up":  true,

	// Polling metrics.
	"tm_polls_total":           true,
	"tm_poll_errors_total":     true,
	"tm_poll_duration_seconds": true,
	"tm_long_rests_total":      true,

	// Findings and notification metrics.
	"tm_findings_total":                 true,
	"tm_notifications_sent_total":       true,
	"tm_notification_failures_total":    true,
	"tm_notifications_suppressed_total": true,
	"tm_reservations_total":             true,
	"tm_history_write_failures_total":   true,

	// Supervisor metrics.
	"tm_pollers_alive":         true,
	"tm_poller_restarts_total": true,
	"tm_poller_crashes_total":  true,
	"tm_pollers_stalled":       true,

	// Recording rules.
	"tm:http_requests:rate5m":    true,
	"tm:http_errors:rate5m":      true,
	"tm:polls:rate5m":            true,
	"tm:poll_errors:rate5m":      true,
	"tm:poll_error_ratio:rate5m": true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
	// PlainRules writes rule files without the PrometheusRule wrapper.
	PlainRules bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
