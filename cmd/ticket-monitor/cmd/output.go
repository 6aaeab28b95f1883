package cmd

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	domain "github.com/donaldgifford/ticket-monitor/pkg/types"
)

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

// checkRow is one line of check output.
type checkRow struct {
	Target string           `json:"target"`
	Show   string           `json:"show"`
	Offer  domain.SeatOffer `json:"offer"`
	Match  bool             `json:"target_match"`
}

// checkRows flattens a poll into one row per offer. Only available offers
// can be target matches.
func checkRows(target *domain.TargetCriteria, result *domain.PollResult, findings []domain.Finding) []checkRow {
	matched := make(map[string]bool, len(findings))
	for i := range findings {
		if findings[i].IsTargetMatch {
			matched[findings[i].Offer.ID] = true
		}
	}

	rows := make([]checkRow, 0, len(result.Offers))
	for _, o := range result.Offers {
		rows = append(rows, checkRow{
			Target: target.Name,
			Show:   result.ShowName,
			Offer:  o,
			Match:  o.Available && matched[o.ID],
		})
	}
	return rows
}

func printCheckTable(w io.Writer, rows []checkRow) error {
	tw := newTabWriter(w)
	tw.writef("TARGET\tSHOW\tSESSION\tTIER\tPRICE\tREMAINING\tAVAILABLE\tMATCH\n")
	for i := range rows {
		r := &rows[i]
		remaining := "-"
		if r.Offer.Remaining > 0 {
			remaining = strconv.Itoa(r.Offer.Remaining)
		}
		tw.writef("%s\t%s\t%s\t%s\t%s\t%s\t%v\t%v\n",
			r.Target,
			r.Show,
			r.Offer.SessionLabel,
			r.Offer.Name,
			r.Offer.PriceString(),
			remaining,
			r.Offer.Available,
			r.Match,
		)
	}
	return tw.finish()
}

func printTargetTable(w io.Writer, targets []*domain.TargetCriteria) error {
	tw := newTabWriter(w)
	tw.writef("NAME\tVENDOR\tSHOW\tENABLED\tPRICES\tDATES\n")
	for _, t := range targets {
		tw.writef("%s\t%s\t%s\t%v\t%v\t%v\n", t.Name, t.Vendor, t.ShowID, t.Enabled, t.Prices, t.Dates)
	}
	return tw.finish()
}

func printPollerTable(w io.Writer, states []domain.PollerState) error {
	tw := newTabWriter(w)
	tw.writef("TARGET\tVENDOR\tPHASE\tALIVE\tRUNS\tERRORS\tRESTARTS\tLAST POLL\n")
	for i := range states {
		st := &states[i]
		last := "never"
		if st.LastPollAt != nil {
			last = st.LastPollAt.Local().Format(time.DateTime)
		}
		tw.writef("%s\t%s\t%s\t%v\t%d\t%d\t%d\t%s\n",
			st.Target, st.Vendor, st.Phase, st.Alive, st.Runs, st.Errors, st.Restarts, last)
	}
	return tw.finish()
}

func printNotificationTable(w io.Writer, records []domain.NotificationRecord) error {
	tw := newTabWriter(w)
	tw.writef("SENT\tTARGET\tVENDOR\tKIND\tOFFERS\tSUBJECT\n")
	for i := range records {
		r := &records[i]
		tw.writef("%s\t%s\t%s\t%s\t%d\t%s\n",
			r.SentAt.Local().Format(time.DateTime), r.Target, r.Vendor, r.Kind, r.OfferCount, r.Subject)
	}
	return tw.finish()
}
