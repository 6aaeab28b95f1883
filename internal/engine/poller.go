package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/donaldgifford/ticket-monitor/internal/metrics"
	"github.com/donaldgifford/ticket-monitor/internal/vendor"
	domain "github.com/donaldgifford/ticket-monitor/pkg/types"
)

const instrumentationName = "github.com/donaldgifford/ticket-monitor/internal/engine"

var (
	tracer = otel.Tracer(instrumentationName)

	pollCycles, _ = otel.Meter(instrumentationName).Int64Counter(
		"ticket_monitor.poll.cycles",
		metric.WithDescription("Poll cycles completed, by vendor and outcome."),
	)
)

// CrashError is returned by Poller.Run when the loop panicked.
type CrashError struct {
	ID     string
	Target string
	Value  any
	Stack  []byte
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("poller %q crashed (correlation id %s): %v", e.Target, e.ID, e.Value)
}

// Poller drives one adapter for one target: throttle, poll, evaluate,
// dispatch, repeat. Cycles never overlap.
type Poller struct {
	target     *domain.TargetCriteria
	adapter    vendor.Adapter
	reserver   vendor.Reserver
	limiter    *RateLimiter
	dispatcher *Dispatcher
	log        *slog.Logger
	nowFunc    func() time.Time

	mu    sync.RWMutex
	state domain.PollerState

	done chan struct{}
	err  error
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollerLogger sets a custom logger.
func WithPollerLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) {
		p.log = l
	}
}

// WithInstanceID sets the poller instance id. A random id is used otherwise.
func WithInstanceID(id string) PollerOption {
	return func(p *Poller) {
		p.state.InstanceID = id
	}
}

// WithRestarts records how many instances preceded this one.
func WithRestarts(n int) PollerOption {
	return func(p *Poller) {
		p.state.Restarts = n
	}
}

// WithPollerNowFunc overrides the clock for testing.
func WithPollerNowFunc(f func() time.Time) PollerOption {
	return func(p *Poller) {
		p.nowFunc = f
	}
}

// NewPoller creates a Poller for target. When adapter also implements
// vendor.Reserver, target matches are offered to it for ordering.
func NewPoller(
	target *domain.TargetCriteria,
	adapter vendor.Adapter,
	limiter *RateLimiter,
	dispatcher *Dispatcher,
	opts ...PollerOption,
) *Poller {
	p := &Poller{
		target:     target,
		adapter:    adapter,
		limiter:    limiter,
		dispatcher: dispatcher,
		log:        slog.Default(),
		nowFunc:    time.Now,
		done:       make(chan struct{}),
	}
	if r, ok := adapter.(vendor.Reserver); ok {
		p.reserver = r
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.state.InstanceID == "" {
		p.state.InstanceID = uuid.NewString()
	}
	p.state.Target = target.Name
	p.state.Vendor = adapter.Vendor()
	p.state.Phase = domain.PhaseIdle
	p.state.Alive = true
	p.state.StartedAt = p.nowFunc()
	p.log = p.log.With(
		"target", target.Name,
		"vendor", adapter.Vendor(),
		"poller_id", p.state.InstanceID,
	)
	return p
}

// Run loops until ctx is canceled or the loop panics. It returns the
// context error on cancellation and a *CrashError on panic. A poller counts
// as alive from construction until Run returns; Run must be called once.
func (p *Poller) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			crash := &CrashError{
				ID:     uuid.NewString(),
				Target: p.target.Name,
				Value:  r,
				Stack:  debug.Stack(),
			}
			metrics.PollerCrashesTotal.WithLabelValues(p.target.Name).Inc()
			p.log.Error("poller crashed",
				"correlation_id", crash.ID,
				"panic", r,
				"stack", string(crash.Stack),
			)
			err = crash
		}

		p.mu.Lock()
		p.state.Alive = false
		p.state.Phase = domain.PhaseStopped
		p.err = err
		p.mu.Unlock()
		close(p.done)
	}()

	p.log.Info("poller started")
	for {
		if err := ctx.Err(); err != nil {
			p.log.Info("poller stopping")
			return err
		}

		if p.State().Runs == 0 {
			p.setPhase(domain.PhaseIdle)
		} else {
			p.setPhase(domain.PhaseResting)
		}
		if _, err := p.limiter.Throttle(ctx, p.target.Name); err != nil {
			p.log.Info("poller stopping")
			return err
		}

		p.cycle(ctx)
		p.limiter.Finished(p.target.Name)
	}
}

// cycle performs one poll, evaluate and dispatch pass.
func (p *Poller) cycle(ctx context.Context) {
	vendorName := string(p.adapter.Vendor())
	ctx, span := tracer.Start(ctx, "poller.cycle", trace.WithAttributes(
		attribute.String("target", p.target.Name),
		attribute.String("vendor", vendorName),
	))
	defer span.End()

	if ctx.Err() != nil {
		return
	}
	p.setPhase(domain.PhasePolling)

	start := p.nowFunc()
	result, err := p.adapter.Poll(ctx, p.target)
	if err == nil && result == nil {
		err = &vendor.PollError{
			Kind:   vendor.KindProtocol,
			Vendor: p.adapter.Vendor(),
			Err:    errors.New("adapter returned no result"),
		}
	}
	polledAt := p.nowFunc()
	metrics.PollDuration.WithLabelValues(vendorName).Observe(polledAt.Sub(start).Seconds())
	metrics.PollsTotal.WithLabelValues(vendorName, p.target.Name).Inc()

	p.mu.Lock()
	p.state.Runs++
	p.state.LastPollAt = &polledAt
	if err != nil {
		p.state.Errors++
	}
	p.mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.pollFailed(ctx, span, err)
		return
	}

	if ctx.Err() != nil {
		return
	}
	p.setPhase(domain.PhaseEvaluating)
	findings := Evaluate(result, p.target)
	matches := len(TargetMatches(findings))
	metrics.FindingsTotal.WithLabelValues(vendorName, "true").Add(float64(matches))
	metrics.FindingsTotal.WithLabelValues(vendorName, "false").Add(float64(len(findings) - matches))
	span.SetAttributes(
		attribute.Int("offers", len(result.Offers)),
		attribute.Int("findings", len(findings)),
		attribute.Int("matches", matches),
	)
	if len(findings) > 0 {
		p.log.Info("tickets available",
			"show", result.ShowName,
			"findings", len(findings),
			"matches", matches,
		)
	} else {
		p.log.Debug("no tickets available", "show", result.ShowName, "offers", len(result.Offers))
	}

	if ctx.Err() != nil {
		return
	}
	p.setPhase(domain.PhaseDispatching)
	p.dispatcher.Dispatch(ctx, p.target, result, findings, p.reserver)

	pollCycles.Add(ctx, 1, metric.WithAttributes(
		attribute.String("vendor", vendorName),
		attribute.String("outcome", "ok"),
	))
}

func (p *Poller) pollFailed(ctx context.Context, span trace.Span, err error) {
	kind := vendor.KindOf(err)
	metrics.PollErrorsTotal.WithLabelValues(string(p.adapter.Vendor()), string(kind)).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, string(kind))
	pollCycles.Add(ctx, 1, metric.WithAttributes(
		attribute.String("vendor", string(p.adapter.Vendor())),
		attribute.String("outcome", string(kind)),
	))

	switch kind {
	case vendor.KindRejected:
		p.log.Error("vendor rejected the session, credentials may need refreshing",
			"error", err, "kind", kind)
	case vendor.KindTransport:
		p.log.Warn("poll failed", "error", err, "kind", kind)
	default:
		p.log.Error("poll failed", "error", err, "kind", kind)
	}
}

func (p *Poller) setPhase(phase domain.PollerPhase) {
	p.mu.Lock()
	p.state.Phase = phase
	p.mu.Unlock()
}

// State returns a snapshot of the poller's progress.
func (p *Poller) State() domain.PollerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.state
	if s.LastPollAt != nil {
		t := *s.LastPollAt
		s.LastPollAt = &t
	}
	return s
}

// Done is closed when Run returns.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Err returns the error Run returned, or nil while it is running.
func (p *Poller) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}
