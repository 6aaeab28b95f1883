package validate

import (
	"testing"

	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/prometheus"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/ticket-monitor/tools/dashgen/rules"
)

func buildDashboard(t *testing.T, exprs ...string) dashboard.Dashboard {
	t.Helper()
	p := timeseries.NewPanelBuilder().Title("test")
	for _, e := range exprs {
		p = p.WithTarget(prometheus.NewDataqueryBuilder().Expr(e).RefId("A"))
	}
	dash, err := dashboard.NewDashboardBuilder("test").
		WithRow(dashboard.NewRowBuilder("row").WithPanel(p)).
		Build()
	require.NoError(t, err)
	return dash
}

func TestDashboard(t *testing.T) {
	t.Parallel()

	known := map[string]bool{
		"tm_polls_total":           true,
		"tm_poll_duration_seconds": true,
	}

	tests := []struct {
		name       string
		exprs      []string
		wantErrs   int
		wantWarns  int
		errContain string
	}{
		{
			name:  "known counter",
			exprs: []string{`rate(tm_polls_total[5m])`},
		},
		{
			name:  "histogram bucket resolves to base name",
			exprs: []string{`histogram_quantile(0.95, sum by (le) (rate(tm_poll_duration_seconds_bucket[5m])))`},
		},
		{
			name:       "unknown metric",
			exprs:      []string{`rate(tm_mystery_total[5m])`},
			wantErrs:   1,
			errContain: "unknown metric tm_mystery_total",
		},
		{
			name:       "syntax error",
			exprs:      []string{`rate(tm_polls_total[5m]`},
			wantErrs:   1,
			errContain: "parsing",
		},
		{
			name:      "panel without targets",
			wantWarns: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := Dashboard(buildDashboard(t, tt.exprs...), known)
			assert.Len(t, r.Errors, tt.wantErrs, "errors: %v", r.Errors)
			assert.Len(t, r.Warnings, tt.wantWarns, "warnings: %v", r.Warnings)
			assert.Equal(t, tt.wantErrs == 0, r.Ok())
			if tt.errContain != "" {
				assert.Contains(t, r.Errors[0], tt.errContain)
			}
		})
	}
}

func TestRules(t *testing.T) {
	t.Parallel()

	known := map[string]bool{"tm_polls_total": true}
	cr := rules.PrometheusRule{Spec: rules.PrometheusRuleSpec{Groups: []rules.RuleGroup{{
		Name: "g",
		Rules: []rules.Rule{
			{Record: "tm:polls:rate5m", Expr: `sum(rate(tm_polls_total[5m]))`},
			{Alert: "UsesRecorded", Expr: `tm:polls:rate5m == 0`, Labels: map[string]string{"severity": "warning"}},
			{Alert: "NoSeverity", Expr: `tm_polls_total > 0`},
			{Expr: `up`},
		},
	}}}}

	r := Rules(cr, known)
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "neither record nor alert")
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "NoSeverity")
	assert.True(t, known["tm:polls:rate5m"])
}
