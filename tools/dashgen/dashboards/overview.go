// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/ticket-monitor/tools/dashgen/panels"
)

// UID is the stable Grafana identifier of the overview dashboard.
const UID = "tm-overview"

// BuildOverview constructs the Ticket Monitor overview dashboard.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("Ticket Monitor Overview").
		Uid(UID).
		Tags([]string{"tm", "ticket-monitor"}).
		Refresh("30s").
		Time("now-6h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.PollersAliveStat()).
		WithPanel(panels.PollersStalledStat()).
		WithPanel(panels.UptimeStat()))

	b.WithRow(dashboard.NewRowBuilder("Polling").
		WithPanel(panels.PollRate()).
		WithPanel(panels.PollErrors()).
		WithPanel(panels.PollDuration()).
		WithPanel(panels.LongRests()).
		WithPanel(panels.PollerRestarts()))

	b.WithRow(dashboard.NewRowBuilder("Offers & Notifications").
		WithPanel(panels.FindingsRate()).
		WithPanel(panels.NotificationsSent()).
		WithPanel(panels.NotificationFailures()).
		WithPanel(panels.Reservations()).
		WithPanel(panels.HistoryWriteFailures()))

	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
