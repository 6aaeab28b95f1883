package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/ticket-monitor/internal/api/client"
	domain "github.com/donaldgifford/ticket-monitor/pkg/types"
)

const statusTimeout = 10 * time.Second

func newClient() *apiclient.Client {
	return apiclient.New(viper.GetString("server"))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func statusCommand() *cobra.Command {
	var asJSON bool

	c := &cobra.Command{
		Use:   "status [target]",
		Short: "Show poller state from a running monitor",
		Long: "Queries the status API of a running `ticket-monitor run` (server.enabled\n" +
			"must be true) and prints readiness plus each poller's counters.",
		Args: cobra.MaximumNArgs(1),
		Example: `  ticket-monitor status
  ticket-monitor status spring-tour --json
  ticket-monitor status --server http://monitor.lan:8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
			defer cancel()
			c := newClient()

			if len(args) == 1 {
				st, err := c.GetPoller(ctx, args[0])
				if err != nil {
					if apiclient.IsNotFound(err) {
						return fmt.Errorf("no poller for target %q", args[0])
					}
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), st)
				}
				return printPollerTable(cmd.OutOrStdout(), []domain.PollerState{*st})
			}

			ready, reason, err := c.Ready(ctx)
			if err != nil {
				return err
			}
			list, err := c.ListPollers(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), struct {
					Ready  bool   `json:"ready"`
					Status string `json:"status"`
					*apiclient.PollerList
				}{ready, reason, list})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "status: %s (%d/%d pollers alive)\n\n", reason, list.Alive, list.Total)
			return printPollerTable(cmd.OutOrStdout(), list.Pollers)
		},
	}

	c.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return c
}

func historyCommand() *cobra.Command {
	var (
		asJSON bool
		filter apiclient.NotificationFilter
		vendor string
		kind   string
		within time.Duration
	)

	c := &cobra.Command{
		Use:   "history",
		Short: "List sent notifications from a running monitor",
		Long: "Pages through the notification history recorded by a running monitor.\n" +
			"Requires the database to be configured on the server side.",
		Args: cobra.NoArgs,
		Example: `  ticket-monitor history --target spring-tour
  ticket-monitor history --kind reservation --since 24h --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
			defer cancel()

			filter.Vendor = domain.Vendor(vendor)
			filter.Kind = domain.NotificationKind(kind)
			if within > 0 {
				filter.Since = time.Now().Add(-within)
			}

			page, err := newClient().ListNotifications(ctx, filter)
			if err != nil {
				if apiclient.IsNotFound(err) {
					return fmt.Errorf("server has no notification history (database not configured)")
				}
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), page)
			}
			if len(page.Notifications) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notifications found.")
				return nil
			}
			if err := printNotificationTable(cmd.OutOrStdout(), page.Notifications); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nshowing %d-%d of %d\n",
				page.Offset+1, page.Offset+len(page.Notifications), page.Total)
			return nil
		},
	}

	c.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	c.Flags().StringVar(&filter.Target, "target", "", "only this target")
	c.Flags().StringVar(&vendor, "vendor", "", "only this vendor (livelab, maoyan)")
	c.Flags().StringVar(&kind, "kind", "", "only this kind (availability, reservation)")
	c.Flags().DurationVar(&within, "since", 0, "only notifications sent within this duration")
	c.Flags().IntVar(&filter.Limit, "limit", 0, "page size (server default 50)")
	c.Flags().IntVar(&filter.Offset, "offset", 0, "page offset")
	return c
}
