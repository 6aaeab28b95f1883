package engine

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/donaldgifford/ticket-monitor/internal/metrics"
)

const (
	defaultRestEvery = 50
	defaultRestMin   = 2 * time.Minute
	defaultRestMax   = 5 * time.Minute
)

// RateLimiter spaces consecutive polls of one poller and forces a long rest
// after every N polls. A poll starts no sooner than the interval after the
// previous poll finished, and a token bucket keeps starts at least one
// interval apart. Counts are kept per poller id for the life of the limiter,
// so a restarted poller keeps its cadence.
type RateLimiter struct {
	interval  time.Duration
	restEvery int64
	restMin   time.Duration
	restMax   time.Duration

	mu      sync.Mutex
	pollers map[string]*pollerBudget

	nowFunc   func() time.Time
	sleepFunc func(ctx context.Context, d time.Duration) error
	randFunc  func(n int64) int64
}

type pollerBudget struct {
	limiter  *rate.Limiter
	calls    int64
	finished time.Time
}

// RateLimiterOption configures the RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRest sets the long rest policy: after every `every` polls the next
// call sleeps a duration drawn uniformly from [minRest, maxRest].
// every <= 0 disables long rests.
func WithRest(every int, minRest, maxRest time.Duration) RateLimiterOption {
	return func(r *RateLimiter) {
		r.restEvery = int64(every)
		r.restMin = minRest
		r.restMax = max(maxRest, minRest)
	}
}

// WithRateLimiterNowFunc overrides the clock for testing.
func WithRateLimiterNowFunc(f func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		r.nowFunc = f
	}
}

// WithSleepFunc overrides how the limiter waits for testing.
func WithSleepFunc(f func(ctx context.Context, d time.Duration) error) RateLimiterOption {
	return func(r *RateLimiter) {
		r.sleepFunc = f
	}
}

// WithRandFunc overrides the source used to pick long rest durations.
// f must return a value in [0, n).
func WithRandFunc(f func(n int64) int64) RateLimiterOption {
	return func(r *RateLimiter) {
		r.randFunc = f
	}
}

// NewRateLimiter creates a limiter that allows one poll per interval for
// each poller. An interval of zero disables spacing.
func NewRateLimiter(interval time.Duration, opts ...RateLimiterOption) *RateLimiter {
	r := &RateLimiter{
		interval:  interval,
		restEvery: defaultRestEvery,
		restMin:   defaultRestMin,
		restMax:   defaultRestMax,
		pollers:   make(map[string]*pollerBudget),
		nowFunc:   time.Now,
		sleepFunc: sleepCtx,
		randFunc:  rand.Int64N,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Throttle blocks until pollerID may issue its next poll and returns how
// long it waited. It returns early with the context error on cancellation.
// The call count behind the long rest is never reset, including when the
// supervisor replaces a crashed poller with a fresh one for the same id.
func (r *RateLimiter) Throttle(ctx context.Context, pollerID string) (time.Duration, error) {
	delay, rest := r.reserve(pollerID)
	if rest {
		metrics.LongRestsTotal.Inc()
	}
	if delay <= 0 {
		return 0, ctx.Err()
	}
	if err := r.sleepFunc(ctx, delay); err != nil {
		return delay, err
	}
	return delay, nil
}

// Finished records that pollerID completed a poll cycle. The next Throttle
// waits at least the interval from this moment.
func (r *RateLimiter) Finished(pollerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.budget(pollerID).finished = r.nowFunc()
}

// Calls returns how many times pollerID has been throttled.
func (r *RateLimiter) Calls(pollerID string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.pollers[pollerID]; ok {
		return b.calls
	}
	return 0
}

func (r *RateLimiter) reserve(pollerID string) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.budget(pollerID)
	b.calls++

	now := r.nowFunc()
	if r.restEvery > 0 && b.calls > 1 && (b.calls-1)%r.restEvery == 0 {
		rest := r.longRest()
		return rest + r.delayAt(b, now.Add(rest)), true
	}
	return r.delayAt(b, now), false
}

// delayAt takes a token at t and returns how much longer than t the poll
// must wait. The token is taken even after a long rest so the poll after it
// keeps the normal spacing.
func (r *RateLimiter) delayAt(b *pollerBudget, t time.Time) time.Duration {
	delay := b.limiter.ReserveN(t, 1).DelayFrom(t)
	if !b.finished.IsZero() {
		delay = max(delay, b.finished.Add(r.interval).Sub(t))
	}
	return max(delay, 0)
}

// budget returns the state for pollerID. r.mu must be held.
func (r *RateLimiter) budget(pollerID string) *pollerBudget {
	b, ok := r.pollers[pollerID]
	if !ok {
		b = &pollerBudget{limiter: rate.NewLimiter(rate.Every(r.interval), 1)}
		r.pollers[pollerID] = b
	}
	return b
}

func (r *RateLimiter) longRest() time.Duration {
	span := int64(r.restMax - r.restMin)
	if span <= 0 {
		return r.restMin
	}
	return r.restMin + time.Duration(r.randFunc(span+1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
