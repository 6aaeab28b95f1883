package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// FindingsRate returns a timeseries panel showing available offers found,
// split by whether they matched the target's criteria.
func FindingsRate() *timeseries.PanelBuilder {
	return newTimeseries("Available Offers", "Available offers seen per minute, split by criteria match", TSWidth).
		WithTarget(PromQuery(
			`sum by (vendor, match) (rate(tm_findings_total`+JobSelector()+`[5m])) * 60`,
			"{{vendor}} match={{match}}", "A",
		)).
		Legend(TableLegend("max", "last"))
}

// NotificationsSent returns a bar panel showing delivered and suppressed
// notifications by kind.
func NotificationsSent() *timeseries.PanelBuilder {
	return newTimeseries("Notifications", "Delivered versus duplicate-suppressed notifications", TSWidth).
		WithTarget(PromQuery(
			`sum by (kind) (increase(tm_notifications_sent_total`+JobSelector()+`[1h]))`,
			"sent {{kind}}", "A",
		)).
		WithTarget(PromQuery(
			`sum by (kind) (increase(tm_notifications_suppressed_total`+JobSelector()+`[1h]))`,
			"suppressed {{kind}}", "B",
		)).
		Legend(TableLegend("sum")).
		DrawStyle(common.GraphDrawStyleBars)
}

func NotificationFailures() *stat.PanelBuilder {
	return newStat("Notification Failures (24h)", "Failed email or Discord deliveries in the last 24 hours",
		`sum(increase(tm_notification_failures_total`+JobSelector()+`[24h]))`, "").
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}

// Reservations returns a stat panel showing order placement attempts by
// result in the past 24 hours.
func Reservations() *stat.PanelBuilder {
	return newStat("Orders (24h)", "Order placement attempts by result",
		`sum by (result) (increase(tm_reservations_total`+JobSelector()+`[24h]))`, "{{result}}").
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		GraphMode(common.BigValueGraphModeNone).
		TextMode(common.BigValueTextModeValueAndName)
}

// HistoryWriteFailures returns a stat panel counting notification history
// rows that could not be written.
func HistoryWriteFailures() *stat.PanelBuilder {
	return newStat("History Write Failures (24h)", "Sent notifications missing from the history table",
		`increase(tm_history_write_failures_total`+JobSelector()+`[24h])`, "").
		Thresholds(ThresholdsGreenYellowRed(1, 10)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone)
}
