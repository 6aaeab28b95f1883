package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

func RequestRate() *timeseries.PanelBuilder {
	return newTimeseries("Request Rate", "Status API requests per second, probes and scrapes included", TSWidth).
		WithTarget(PromQuery(`tm:http_requests:rate5m`, "req/s", "A")).
		Unit("reqps")
}

// LatencyPercentiles returns a timeseries panel showing p50, p95, and p99
// HTTP request latencies.
func LatencyPercentiles() *timeseries.PanelBuilder {
	b := newTimeseries("Latency Percentiles", "HTTP request duration percentiles", TSWidth).Unit("s")
	for i, q := range []string{"0.50", "0.95", "0.99"} {
		expr := fmt.Sprintf(
			`histogram_quantile(%s, sum by (le) (rate(tm_http_request_duration_seconds_bucket%s[5m])))`,
			q, JobSelector(),
		)
		b = b.WithTarget(PromQuery(expr, "p"+q[2:], string(rune('A'+i))))
	}
	return b
}

// ErrorRate returns a timeseries panel showing the HTTP 5xx error rate
// as a percentage.
func ErrorRate() *timeseries.PanelBuilder {
	return newTimeseries("Error Rate %", "HTTP 5xx error rate as percentage of total requests", TSWidth).
		WithTarget(PromQuery(`tm:http_errors:rate5m / tm:http_requests:rate5m * 100`, "error %", "A")).
		Unit("percent").
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemeThresholds())
}
