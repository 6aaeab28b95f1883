package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
)

// ReadyzStat returns a stat panel showing the readiness check status.
func ReadyzStat() *stat.PanelBuilder {
	return newStat("Readyz", "Readiness check status (1 = every poller alive, 0 = not ready)", `tm_readyz_up`, "").
		Thresholds(ThresholdsRedGreen(1)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone).
		TextMode(common.BigValueTextModeValue)
}

// PollersAliveStat returns a stat panel showing how many pollers were alive
// at the last liveness check.
func PollersAliveStat() *stat.PanelBuilder {
	return newStat("Pollers Alive", "Pollers alive at the last liveness check", `tm_pollers_alive`, "").
		Thresholds(ThresholdsRedGreen(1)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}

// PollersStalledStat returns a stat panel showing live pollers that have not
// completed a poll within the stall window.
func PollersStalledStat() *stat.PanelBuilder {
	return newStat("Pollers Stalled", "Live pollers with no completed poll inside the stall window", `tm_pollers_stalled`, "").
		Thresholds(ThresholdsGreenYellowRed(1, 2)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone)
}

func UptimeStat() *stat.PanelBuilder {
	return newStat("Uptime", "Time since process start", `time() - process_start_time_seconds`+JobSelector(), "").
		Unit("s").
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeNone)
}
