package rules

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return newPrometheusRule("tm-recording-rules",
		Rule{
			Record: "tm:http_requests:rate5m",
			Expr:   `sum(rate(tm_http_requests_total[5m]))`,
		},
		Rule{
			Record: "tm:http_errors:rate5m",
			Expr:   `sum(rate(tm_http_requests_total{status=~"5.."}[5m]))`,
		},
		Rule{
			Record: "tm:polls:rate5m",
			Expr:   `sum by (vendor, target) (rate(tm_polls_total[5m]))`,
		},
		Rule{
			Record: "tm:poll_errors:rate5m",
			Expr:   `sum by (vendor, kind) (rate(tm_poll_errors_total[5m]))`,
		},
		Rule{
			Record: "tm:poll_error_ratio:rate5m",
			Expr:   `sum by (vendor) (rate(tm_poll_errors_total[5m])) / sum by (vendor) (rate(tm_polls_total[5m]))`,
		},
	)
}
