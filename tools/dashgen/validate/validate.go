// Package validate checks generated dashboards and rules: every PromQL
// expression must parse and may only reference known metric names.
package validate

import (
	"fmt"
	"strings"

	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/prometheus"
	"github.com/prometheus/prometheus/promql/parser"

	"github.com/donaldgifford/ticket-monitor/tools/dashgen/rules"
)

// histogramSuffixes are the series a histogram metric exposes under its
// base name.
var histogramSuffixes = []string{"_bucket", "_count", "_sum"}

// Result collects validation problems. Errors fail generation; warnings are
// reported but tolerated.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether no errors were found.
func (r *Result) Ok() bool { return len(r.Errors) == 0 }

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Dashboard validates every Prometheus target of every panel, including
// panels nested in rows.
func Dashboard(dash dashboard.Dashboard, known map[string]bool) *Result {
	r := &Result{}
	for _, p := range dash.Panels {
		if p.Panel != nil {
			panel(r, p.Panel, known)
		}
		if p.RowPanel != nil {
			for i := range p.RowPanel.Panels {
				panel(r, &p.RowPanel.Panels[i], known)
			}
		}
	}
	return r
}

// Rules validates the expressions of every rule in cr. Recorded names are
// added to the known set so later rules and dashboards may reference them.
func Rules(cr rules.PrometheusRule, known map[string]bool) *Result {
	r := &Result{}
	for _, g := range cr.Spec.Groups {
		for _, rule := range g.Rules {
			name := rule.Record
			if name == "" {
				name = rule.Alert
			}
			if name == "" {
				r.errorf("group %s: rule has neither record nor alert", g.Name)
				continue
			}
			expr(r, fmt.Sprintf("rule %s", name), rule.Expr, known)
			if rule.Record != "" {
				known[rule.Record] = true
			}
			if rule.Alert != "" && rule.Labels["severity"] == "" {
				r.warnf("alert %s: no severity label", rule.Alert)
			}
		}
	}
	return r
}

func panel(r *Result, p *dashboard.Panel, known map[string]bool) {
	title := "untitled"
	if p.Title != nil {
		title = *p.Title
	}
	if len(p.Targets) == 0 {
		r.warnf("panel %q: no targets", title)
		return
	}
	for _, t := range p.Targets {
		var q string
		switch dq := t.(type) {
		case prometheus.Dataquery:
			q = dq.Expr
		case *prometheus.Dataquery:
			q = dq.Expr
		default:
			r.warnf("panel %q: non-prometheus target %T", title, t)
			continue
		}
		expr(r, fmt.Sprintf("panel %q", title), q, known)
	}
}

func expr(r *Result, where, q string, known map[string]bool) {
	if strings.TrimSpace(q) == "" {
		r.errorf("%s: empty expression", where)
		return
	}

	parsed, err := parser.ParseExpr(q)
	if err != nil {
		r.errorf("%s: parsing %q: %v", where, q, err)
		return
	}

	parser.Inspect(parsed, func(node parser.Node, _ []parser.Node) error {
		vs, ok := node.(*parser.VectorSelector)
		if !ok || vs.Name == "" {
			return nil
		}
		if !isKnown(vs.Name, known) {
			r.errorf("%s: unknown metric %s", where, vs.Name)
		}
		return nil
	})
}

func isKnown(name string, known map[string]bool) bool {
	if known[name] {
		return true
	}
	for _, suffix := range histogramSuffixes {
		if base, ok := strings.CutSuffix(name, suffix); ok && known[base] {
			return true
		}
	}
	return false
}
