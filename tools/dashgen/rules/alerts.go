package rules

const (
	severityCritical = "critical"
	severityWarning  = "warning"
)

// AlertRules returns a PrometheusRule CR containing alert rules for
// ticket-monitor operational monitoring.
func AlertRules() PrometheusRule {
	return newPrometheusRule("tm-alerts",
		alert("TmDown",
			`absent(up{job="ticket-monitor"})`, "2m", severityCritical,
			"Ticket Monitor is down",
			"The ticket-monitor job has been absent for more than 2 minutes."),
		alert("TmPollersNotReady",
			`tm_readyz_up == 0`, "5m", severityCritical,
			"One or more pollers are down",
			"Readiness has reported a dead poller for 5 minutes and the supervisor has not recovered it."),
		alert("TmPollerStalled",
			`tm_pollers_stalled > 0`, "10m", severityWarning,
			"A poller is alive but not completing polls",
			"At least one poller has been past its stall window for 10 minutes. Check vendor latency or a hung request."),
		alert("TmPollerCrashLoop",
			`increase(tm_poller_restarts_total[30m]) > 5`, "0m", severityWarning,
			"Poller {{ $labels.target }} keeps crashing",
			"The supervisor restarted this poller more than 5 times in 30 minutes."),
		alert("TmVendorRejecting",
			`sum by (vendor) (rate(tm_poll_errors_total{kind="vendor_rejected"}[10m])) > 0`, "10m", severityWarning,
			"{{ $labels.vendor }} is rejecting requests",
			"Polls have returned an authentication error for 10 minutes. Credentials may have expired."),
		alert("TmHighPollErrorRatio",
			`tm:poll_error_ratio:rate5m > 0.5`, "15m", severityWarning,
			"Most polls to {{ $labels.vendor }} are failing",
			"More than half of the polls have failed over the last 15 minutes."),
		alert("TmNotificationFailures",
			`increase(tm_notification_failures_total[5m]) > 0`, "1m", severityCritical,
			"Notification delivery failures detected",
			"One or more email or Discord notifications failed to send. Availability may go unreported."),
		alert("TmReservationFailures",
			`increase(tm_reservations_total{result=~"failed|unknown"}[15m]) > 0`, "0m", severityWarning,
			"Order placement is failing",
			"An order attempt for a matching offer failed or lost its response in the last 15 minutes."),
	)
}
