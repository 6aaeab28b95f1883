package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// PollRate returns a timeseries panel showing vendor polls per minute by
// target.
func PollRate() *timeseries.PanelBuilder {
	return newTimeseries("Polls / min", "Vendor polls attempted per minute, per target", 8).
		WithTarget(PromQuery(`tm:polls:rate5m * 60`, "{{target}}", "A")).
		Legend(TableLegend("mean", "last"))
}

// PollErrors returns a stacked bar panel of failed polls by vendor and
// error kind.
func PollErrors() *timeseries.PanelBuilder {
	return newTimeseries("Poll Errors", "Failed polls per minute by vendor and error kind", 8).
		WithTarget(PromQuery(`tm:poll_errors:rate5m * 60`, "{{vendor}} {{kind}}", "A")).
		FillOpacity(30).
		LineWidth(1).
		Stacking(common.NewStackingConfigBuilder().Mode(common.StackingModeNormal)).
		Legend(TableLegend("sum")).
		DrawStyle(common.GraphDrawStyleBars)
}

// PollDuration returns a timeseries panel showing p95 poll latency per
// vendor.
func PollDuration() *timeseries.PanelBuilder {
	return newTimeseries("Poll Duration (p95)", "95th percentile vendor round trip, per vendor", 8).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum by (le, vendor) (rate(tm_poll_duration_seconds_bucket`+JobSelector()+`[5m])))`,
			"{{vendor}}", "A",
		)).
		Unit("s").
		Thresholds(ThresholdsGreenYellowRed(2, 8))
}

// LongRests returns a stat panel counting forced long rests in the last
// 24 hours.
func LongRests() *stat.PanelBuilder {
	return newStat("Long Rests (24h)", "Forced pauses taken after every N polls",
		`increase(tm_long_rests_total`+JobSelector()+`[24h])`, "").
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeArea)
}

// PollerRestarts returns a stat panel counting supervisor restarts of
// crashed pollers in the last 24 hours.
func PollerRestarts() *stat.PanelBuilder {
	return newStat("Poller Restarts (24h)", "Pollers replaced after a crash",
		`sum(increase(tm_poller_restarts_total`+JobSelector()+`[24h]))`, "").
		Thresholds(ThresholdsGreenYellowRed(1, 10)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone)
}
