package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/donaldgifford/ticket-monitor/internal/metrics"
	"github.com/donaldgifford/ticket-monitor/internal/notify"
	"github.com/donaldgifford/ticket-monitor/internal/vendor"
	domain "github.com/donaldgifford/ticket-monitor/pkg/types"
)

// HistoryRecorder stores an audit entry for each delivered notification.
// It is never consulted for deduplication.
type HistoryRecorder interface {
	RecordNotification(ctx context.Context, rec *domain.NotificationRecord) error
}

// Dispatcher deduplicates findings and delivers notifications. One
// Dispatcher is shared by every poller; its state lives for the life of the
// process.
type Dispatcher struct {
	notifier notify.Notifier
	history  HistoryRecorder
	cooldown time.Duration
	log      *slog.Logger
	nowFunc  func() time.Time

	mu      sync.Mutex
	shows   map[domain.NotificationKey]*showState
	matches map[domain.NotificationKey]time.Time
}

// showState tracks one (vendor, show) pair across polls.
type showState struct {
	// notifiedAt is zero when no aggregate notice is in effect.
	notifiedAt time.Time
	// seen holds the match keys of offers available in the last poll.
	seen map[domain.NotificationKey]struct{}
	// lapsed holds offers that were seen and then went missing.
	lapsed map[domain.NotificationKey]struct{}
	// returned holds lapsed offers that came back and have not been part of
	// a delivered aggregate notice yet.
	returned map[domain.NotificationKey]struct{}
}

// DispatcherOption configures the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets a custom logger.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.log = l
	}
}

// WithCooldown lets a delivered key notify again once d has elapsed.
// Zero keeps keys suppressed until the offer disappears and comes back.
func WithCooldown(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) {
		dp.cooldown = d
	}
}

// WithHistory records delivered notifications.
func WithHistory(h HistoryRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.history = h
	}
}

// WithDispatcherNowFunc overrides the clock for testing.
func WithDispatcherNowFunc(f func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.nowFunc = f
	}
}

// NewDispatcher creates a Dispatcher that delivers through n.
func NewDispatcher(n notify.Notifier, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		notifier: n,
		log:      slog.Default(),
		nowFunc:  time.Now,
		shows:    make(map[domain.NotificationKey]*showState),
		matches:  make(map[domain.NotificationKey]time.Time),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch handles the findings of one successful poll. The first target
// match not already handled is offered to reserver; a placed order yields a
// reservation notice. Remaining findings are sent as one aggregate notice
// when the show has not been notified, its cooldown elapsed or an offer came
// back after disappearing. Failures are logged and never returned.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	target *domain.TargetCriteria,
	result *domain.PollResult,
	findings []domain.Finding,
	reserver vendor.Reserver,
) {
	if result == nil {
		return
	}
	showKey := domain.ShowKey(result.Vendor, result.ShowID)
	now := d.nowFunc()

	d.mu.Lock()
	d.observe(showKey, result, findings)
	if len(findings) == 0 {
		d.mu.Unlock()
		return
	}

	var (
		candidate    = -1
		suppressed   = make(map[int]bool)
		candidateKey domain.NotificationKey
	)
	for i := range findings {
		f := &findings[i]
		if !f.IsTargetMatch {
			continue
		}
		key := domain.MatchKey(result.Vendor, result.ShowID, &f.Offer)
		if d.matchSuppressed(key, now) {
			suppressed[i] = true
			continue
		}
		if candidate < 0 && reserver != nil {
			candidate = i
			candidateKey = key
			// Claim before unlocking so concurrent pollers on the same show
			// cannot order twice.
			d.matches[key] = now
		}
	}
	d.mu.Unlock()

	if n := len(suppressed); n > 0 {
		metrics.NotificationsSuppressedTotal.WithLabelValues(string(domain.KindReservation)).Add(float64(n))
	}

	reserved := false
	if candidate >= 0 {
		reserved = d.reserve(ctx, target, result, &findings[candidate], reserver, candidateKey, now)
	}

	plain := make([]domain.Finding, 0, len(findings))
	for i := range findings {
		if suppressed[i] || (reserved && i == candidate) {
			continue
		}
		plain = append(plain, findings[i])
	}
	if len(plain) == 0 {
		return
	}

	d.mu.Lock()
	st := d.shows[showKey]
	var returned []domain.NotificationKey
	for i := range plain {
		key := domain.MatchKey(result.Vendor, result.ShowID, &plain[i].Offer)
		if _, ok := st.returned[key]; ok {
			returned = append(returned, key)
		}
	}
	due := st.notifiedAt.IsZero() || len(returned) > 0 ||
		(d.cooldown > 0 && now.Sub(st.notifiedAt) >= d.cooldown)
	if !due {
		d.mu.Unlock()
		metrics.NotificationsSuppressedTotal.WithLabelValues(string(domain.KindAvailability)).Inc()
		d.log.Debug("availability already notified",
			"vendor", result.Vendor,
			"show_id", result.ShowID,
			"offers", len(plain),
		)
		return
	}
	prev := st.notifiedAt
	st.notifiedAt = now
	for _, key := range returned {
		delete(st.returned, key)
	}
	d.mu.Unlock()

	subject := fmt.Sprintf("Tickets available: %s", result.ShowName)
	body := availabilityBody(result, plain)
	if err := d.send(ctx, target, result, domain.KindAvailability, subject, body, len(plain)); err != nil {
		d.mu.Lock()
		if st.notifiedAt.Equal(now) {
			st.notifiedAt = prev
		}
		for _, key := range returned {
			st.returned[key] = struct{}{}
		}
		d.mu.Unlock()
	}
}

// observe updates presence tracking for the show. Offers missing from this
// poll release their match keys and are remembered as lapsed; a poll with
// nothing available releases the show key.
func (d *Dispatcher) observe(
	showKey domain.NotificationKey,
	result *domain.PollResult,
	findings []domain.Finding,
) {
	st, ok := d.shows[showKey]
	if !ok {
		st = &showState{
			seen:     make(map[domain.NotificationKey]struct{}),
			lapsed:   make(map[domain.NotificationKey]struct{}),
			returned: make(map[domain.NotificationKey]struct{}),
		}
		d.shows[showKey] = st
	}

	current := make(map[domain.NotificationKey]struct{}, len(findings))
	for i := range findings {
		key := domain.MatchKey(result.Vendor, result.ShowID, &findings[i].Offer)
		current[key] = struct{}{}
		if _, gone := st.lapsed[key]; gone {
			st.returned[key] = struct{}{}
			delete(st.lapsed, key)
		}
	}
	for key := range st.seen {
		if _, still := current[key]; !still {
			st.lapsed[key] = struct{}{}
			delete(st.returned, key)
			delete(d.matches, key)
		}
	}
	st.seen = current

	if len(findings) == 0 {
		st.notifiedAt = time.Time{}
	}
}

func (d *Dispatcher) matchSuppressed(key domain.NotificationKey, now time.Time) bool {
	at, ok := d.matches[key]
	if !ok {
		return false
	}
	return d.cooldown <= 0 || now.Sub(at) < d.cooldown
}

// reserve attempts the order and reports whether it was placed. The match
// key stays marked after a placed order even when the notice fails, since
// the order exists, and after an order whose outcome is unknown.
func (d *Dispatcher) reserve(
	ctx context.Context,
	target *domain.TargetCriteria,
	result *domain.PollResult,
	f *domain.Finding,
	reserver vendor.Reserver,
	key domain.NotificationKey,
	claimedAt time.Time,
) bool {
	log := d.log.With("vendor", result.Vendor, "show_id", result.ShowID, "offer", f.Offer.ID)

	if err := reserver.TryReserve(ctx, target, f); err != nil {
		if errors.Is(err, vendor.ErrOrderUnknown) {
			// The order may exist; keep the claim so it is never placed twice.
			metrics.ReservationsTotal.WithLabelValues("unknown").Inc()
			log.Error("order outcome unknown, not retrying this offer",
				"error", err,
				"kind", vendor.KindOf(err),
			)
			return false
		}
		metrics.ReservationsTotal.WithLabelValues("failed").Inc()
		log.Warn("order placement failed, falling back to availability notice",
			"error", err,
			"kind", vendor.KindOf(err),
		)
		d.mu.Lock()
		if at, ok := d.matches[key]; ok && at.Equal(claimedAt) {
			delete(d.matches, key)
		}
		d.mu.Unlock()
		return false
	}

	metrics.ReservationsTotal.WithLabelValues("placed").Inc()
	log.Info("order placed", "price", f.Offer.Price, "session", f.Offer.SessionLabel)

	subject := fmt.Sprintf("Order placed: %s", result.ShowName)
	_ = d.send(ctx, target, result, domain.KindReservation, subject, reservationBody(result, f), 1)
	return true
}

func (d *Dispatcher) send(
	ctx context.Context,
	target *domain.TargetCriteria,
	result *domain.PollResult,
	kind domain.NotificationKind,
	subject, body string,
	offers int,
) error {
	var partial *notify.PartialError
	switch err := d.notifier.Send(ctx, subject, body); {
	case errors.As(err, &partial):
		// Delivered through at least one transport; counts as sent.
		metrics.NotificationFailuresTotal.WithLabelValues(string(kind)).Inc()
		d.log.Warn("notification partially delivered",
			"vendor", result.Vendor,
			"show_id", result.ShowID,
			"kind", kind,
			"delivered", partial.Delivered,
			"error", err,
		)
	case err != nil:
		metrics.NotificationFailuresTotal.WithLabelValues(string(kind)).Inc()
		d.log.Error("sending notification",
			"vendor", result.Vendor,
			"show_id", result.ShowID,
			"kind", kind,
			"error", err,
		)
		return err
	}
	metrics.NotificationsSentTotal.WithLabelValues(string(kind)).Inc()
	d.log.Info("notification sent",
		"vendor", result.Vendor,
		"show_id", result.ShowID,
		"kind", kind,
		"offers", offers,
	)

	if d.history != nil {
		rec := &domain.NotificationRecord{
			ID:         uuid.NewString(),
			Vendor:     result.Vendor,
			ShowID:     result.ShowID,
			Target:     target.Name,
			Kind:       kind,
			Subject:    subject,
			OfferCount: offers,
			SentAt:     d.nowFunc(),
		}
		if err := d.history.RecordNotification(ctx, rec); err != nil {
			metrics.HistoryWriteFailuresTotal.Inc()
			d.log.Warn("recording notification history", "error", err)
		}
	}
	return nil
}

func availabilityBody(result *domain.PollResult, findings []domain.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Show: %s\n", result.ShowName)
	if result.OnSaleAt != nil {
		fmt.Fprintf(&b, "On sale: %s\n", result.OnSaleAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(&b, "Available offers (%d):\n", len(findings))
	for i := range findings {
		writeOfferLine(&b, &findings[i])
	}
	return b.String()
}

func reservationBody(result *domain.PollResult, f *domain.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "An order was placed for %s.\n", result.ShowName)
	writeOfferLine(&b, f)
	b.WriteString("Payment is pending. Complete it in the vendor app before the order expires.\n")
	return b.String()
}

func writeOfferLine(b *strings.Builder, f *domain.Finding) {
	o := &f.Offer
	fmt.Fprintf(b, "- %s | %s | %s", o.SessionLabel, o.Name, o.PriceString())
	if o.Remaining > 0 {
		fmt.Fprintf(b, " | remaining %d", o.Remaining)
	}
	if f.IsTargetMatch {
		b.WriteString(" | target match")
	}
	b.WriteString("\n")
}
