package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/ticket-monitor/tools/dashgen/dashboards"
	"github.com/donaldgifford/ticket-monitor/tools/dashgen/rules"
	"github.com/donaldgifford/ticket-monitor/tools/dashgen/validate"
)

func TestDefaultConfigValid(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate_EmptyOutputDir(t *testing.T) {
	t.Parallel()
	cfg := Config{OutputDir: "", DashboardEnabled: true}
	assert.Error(t, cfg.Validate())
}

func TestConfigValidate_NothingEnabled(t *testing.T) {
	t.Parallel()
	cfg := Config{OutputDir: "/tmp", DashboardEnabled: false, RulesEnabled: false}
	assert.Error(t, cfg.Validate())
}

func TestBuildOverviewDashboard(t *testing.T) {
	t.Parallel()

	dash, err := dashboards.BuildOverview().Build()
	require.NoError(t, err)

	require.NotNil(t, dash.Uid)
	assert.Equal(t, "tm-overview", *dash.Uid)

	require.NotNil(t, dash.Title)
	assert.Equal(t, "Ticket Monitor Overview", *dash.Title)

	require.NotNil(t, dash.Templating)
	assert.Len(t, dash.Templating.List, 1)
	assert.Equal(t, "datasource", dash.Templating.List[0].Name)

	assert.Len(t, dash.Panels, 4)

	totalPanels := 0
	for _, p := range dash.Panels {
		if p.RowPanel != nil {
			totalPanels += len(p.RowPanel.Panels)
		}
	}
	assert.Equal(t, 17, totalPanels)

	known := map[string]bool{}
	for k, v := range KnownMetrics {
		known[k] = v
	}
	result := validate.Dashboard(dash, known)
	assert.True(t, result.Ok(), "validation errors: %v", result.Errors)
	assert.Empty(t, result.Warnings, "unexpected warnings: %v", result.Warnings)
}

func TestRecordingRules(t *testing.T) {
	t.Parallel()

	cr := rules.RecordingRules()
	assert.Equal(t, "monitoring.coreos.com/v1", cr.APIVersion)
	assert.Equal(t, "PrometheusRule", cr.Kind)
	assert.Equal(t, "tm-recording-rules", cr.Metadata.Name)

	require.Len(t, cr.Spec.Groups, 1)
	group := cr.Spec.Groups[0]
	assert.Equal(t, "tm-recording-rules", group.Name)

	expectedRecords := []string{
		"tm:http_requests:rate5m",
		"tm:http_errors:rate5m",
		"tm:polls:rate5m",
		"tm:poll_errors:rate5m",
		"tm:poll_error_ratio:rate5m",
	}
	require.Len(t, group.Rules, len(expectedRecords))
	for i, rule := range group.Rules {
		assert.Equal(t, expectedRecords[i], rule.Record)
		assert.True(t, KnownMetrics[rule.Record], "%s missing from KnownMetrics", rule.Record)
	}

	data, err := yaml.Marshal(cr)
	require.NoError(t, err)
	assert.Contains(t, string(data), "apiVersion: monitoring.coreos.com/v1")
}

func TestAlertRules(t *testing.T) {
	t.Parallel()

	cr := rules.AlertRules()
	assert.Equal(t, "tm-alerts", cr.Metadata.Name)

	require.Len(t, cr.Spec.Groups, 1)
	group := cr.Spec.Groups[0]
	assert.Equal(t, "tm-alerts", group.Name)

	expectedAlerts := []string{
		"TmDown",
		"TmPollersNotReady",
		"TmPollerStalled",
		"TmPollerCrashLoop",
		"TmVendorRejecting",
		"TmHighPollErrorRatio",
		"TmNotificationFailures",
		"TmReservationFailures",
	}
	require.Len(t, group.Rules, len(expectedAlerts))
	for i, rule := range group.Rules {
		assert.Equal(t, expectedAlerts[i], rule.Alert)
		assert.NotEmpty(t, rule.Labels["severity"], "alert %s missing severity", rule.Alert)
		assert.NotEmpty(t, rule.Annotations["summary"], "alert %s missing summary", rule.Alert)
		assert.NotEmpty(t, rule.Annotations["description"], "alert %s missing description", rule.Alert)
	}
}

func TestRun_WritesArtifacts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, run(Config{OutputDir: dir, DashboardEnabled: true, RulesEnabled: true}, false))

	for _, rel := range []string{
		filepath.Join("prometheus", "tm-recording-rules.yaml"),
		filepath.Join("prometheus", "tm-alerts.yaml"),
		filepath.Join("grafana", "data", "tm-overview.json"),
	} {
		data, err := os.ReadFile(filepath.Join(dir, rel))
		require.NoError(t, err, rel)
		assert.NotEmpty(t, data, rel)
	}

	alerts, err := os.ReadFile(filepath.Join(dir, "prometheus", "tm-alerts.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(alerts), generatedHeader)
}

func TestRun_ValidateOnlyWritesNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, run(Config{OutputDir: dir, RulesEnabled: true}, true))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerate_PlainRules(t *testing.T) {
	t.Parallel()

	artifacts, err := generate(Config{OutputDir: "unused", RulesEnabled: true, PlainRules: true})
	require.NoError(t, err)
	require.NotEmpty(t, artifacts)

	var file rules.RuleFile
	require.NoError(t, yaml.Unmarshal(artifacts[0].data, &file))
	require.Len(t, file.Groups, 1)
	assert.Equal(t, "tm-recording-rules", file.Groups[0].Name)
	assert.NotContains(t, string(artifacts[0].data), "apiVersion")
}

func TestGenerate_RulesOnly(t *testing.T) {
	t.Parallel()

	artifacts, err := generate(Config{OutputDir: "unused", RulesEnabled: true})
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	for _, a := range artifacts {
		assert.Equal(t, "prometheus", filepath.Dir(a.path))
	}
}
