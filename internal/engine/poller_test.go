package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ptestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/ticket-monitor/internal/metrics"
	"github.com/donaldgifford/ticket-monitor/internal/vendor"
	domain "github.com/donaldgifford/ticket-monitor/pkg/types"
)

// funcAdapter is a vendor.Adapter backed by a function.
type funcAdapter struct {
	vendor domain.Vendor
	calls  atomic.Int64
	poll   func(n int64) (*domain.PollResult, error)
}

func (a *funcAdapter) Vendor() domain.Vendor { return a.vendor }

func (a *funcAdapter) Poll(context.Context, *domain.TargetCriteria) (*domain.PollResult, error) {
	return a.poll(a.calls.Add(1))
}

// reservingAdapter adds order placement to funcAdapter.
type reservingAdapter struct {
	*funcAdapter
	reserved atomic.Int64
}

func (r *reservingAdapter) TryReserve(context.Context, *domain.TargetCriteria, *domain.Finding) error {
	r.reserved.Add(1)
	return nil
}

func pollerTarget(name string) *domain.TargetCriteria {
	return &domain.TargetCriteria{
		Name:    name,
		Vendor:  domain.VendorLiveLab,
		ShowID:  "proj-42",
		Enabled: true,
		Prices:  []float64{380},
		Dates:   []string{"周六"},
	}
}

func steadyAdapter(offers ...domain.SeatOffer) *funcAdapter {
	return &funcAdapter{
		vendor: domain.VendorLiveLab,
		poll: func(int64) (*domain.PollResult, error) {
			return pollOf(offers...), nil
		},
	}
}

func fastLimiter() *RateLimiter {
	return NewRateLimiter(time.Millisecond, WithRest(0, 0, 0))
}

func runPoller(t *testing.T, p *Poller) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, errCh
}

func TestPoller_PollsAndDispatches(t *testing.T) {
	t.Parallel()

	n := &captureNotifier{}
	adapter := steadyAdapter(saturdayOffer("a", 580, true))
	p := NewPoller(pollerTarget("poll-dispatch"), adapter, fastLimiter(),
		NewDispatcher(n, WithDispatcherLogger(quietLogger())),
		WithPollerLogger(quietLogger()),
	)

	cancel, errCh := runPoller(t, p)

	require.Eventually(t, func() bool { return p.State().Runs >= 3 }, 5*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}

	st := p.State()
	assert.False(t, st.Alive)
	assert.Equal(t, domain.PhaseStopped, st.Phase)
	assert.NotNil(t, st.LastPollAt)
	assert.Equal(t, "poll-dispatch", st.Target)
	assert.Len(t, n.messages(), 1, "repeated identical polls notify once")
	assert.ErrorIs(t, p.Err(), context.Canceled)
}

func TestPoller_RestsAfterSlowPoll(t *testing.T) {
	t.Parallel()

	const (
		interval = 40 * time.Millisecond
		pollTime = 60 * time.Millisecond
	)

	var (
		mu     sync.Mutex
		starts []time.Time
	)
	adapter := &funcAdapter{
		vendor: domain.VendorLiveLab,
		poll: func(int64) (*domain.PollResult, error) {
			mu.Lock()
			starts = append(starts, time.Now())
			mu.Unlock()
			time.Sleep(pollTime)
			return pollOf(), nil
		},
	}
	p := NewPoller(pollerTarget("slow-vendor"), adapter,
		NewRateLimiter(interval, WithRest(0, 0, 0)),
		NewDispatcher(&captureNotifier{}, WithDispatcherLogger(quietLogger())),
		WithPollerLogger(quietLogger()),
	)

	cancel, errCh := runPoller(t, p)
	require.Eventually(t, func() bool { return p.State().Runs >= 3 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	<-errCh

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(starts), 3)
	for i := 1; i < len(starts); i++ {
		assert.GreaterOrEqual(t, starts[i].Sub(starts[i-1]), pollTime+interval,
			"poll %d started before resting a full interval", i+1)
	}
}

func TestPoller_ReservesThroughAdapter(t *testing.T) {
	t.Parallel()

	n := &captureNotifier{}
	adapter := &reservingAdapter{funcAdapter: steadyAdapter(saturdayOffer("a", 380, true))}
	p := NewPoller(pollerTarget("poll-reserve"), adapter, fastLimiter(),
		NewDispatcher(n, WithDispatcherLogger(quietLogger())),
		WithPollerLogger(quietLogger()),
	)

	cancel, errCh := runPoller(t, p)
	require.Eventually(t, func() bool { return p.State().Runs >= 3 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	<-errCh

	assert.Equal(t, int64(1), adapter.reserved.Load())
	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Order placed: Spring Tour", msgs[0].Subject)
}

func TestPoller_PollErrorsAreSkipped(t *testing.T) {
	t.Parallel()

	adapter := &funcAdapter{
		vendor: domain.VendorMaoyan,
		poll: func(n int64) (*domain.PollResult, error) {
			switch n {
			case 1:
				return nil, &vendor.PollError{Kind: vendor.KindTransport, Vendor: domain.VendorMaoyan, Err: errors.New("dial")}
			case 2:
				return nil, &vendor.PollError{Kind: vendor.KindRejected, Vendor: domain.VendorMaoyan, Err: errors.New("401")}
			case 3:
				return nil, nil
			default:
				return pollOf(saturdayOffer("a", 580, true)), nil
			}
		},
	}

	rejectedBefore := ptestutil.ToFloat64(metrics.PollErrorsTotal.WithLabelValues("maoyan", "vendor_rejected"))

	n := &captureNotifier{}
	p := NewPoller(pollerTarget("poll-errors"), adapter, fastLimiter(),
		NewDispatcher(n, WithDispatcherLogger(quietLogger())),
		WithPollerLogger(quietLogger()),
	)

	cancel, errCh := runPoller(t, p)
	require.Eventually(t, func() bool { return len(n.messages()) == 1 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	st := p.State()
	assert.GreaterOrEqual(t, st.Runs, int64(4))
	assert.Equal(t, int64(3), st.Errors)

	rejectedAfter := ptestutil.ToFloat64(metrics.PollErrorsTotal.WithLabelValues("maoyan", "vendor_rejected"))
	assert.InDelta(t, 1, rejectedAfter-rejectedBefore, 0.001)
}

func TestPoller_PanicBecomesCrashError(t *testing.T) {
	t.Parallel()

	adapter := &funcAdapter{
		vendor: domain.VendorLiveLab,
		poll: func(int64) (*domain.PollResult, error) {
			panic("unexpected response shape")
		},
	}
	p := NewPoller(pollerTarget("poll-crash"), adapter, fastLimiter(),
		NewDispatcher(&captureNotifier{}, WithDispatcherLogger(quietLogger())),
		WithPollerLogger(quietLogger()),
	)

	err := p.Run(context.Background())
	require.Error(t, err)

	var crash *CrashError
	require.ErrorAs(t, err, &crash)
	assert.Equal(t, "poll-crash", crash.Target)
	assert.NotEmpty(t, crash.ID)
	assert.NotEmpty(t, crash.Stack)
	assert.Contains(t, crash.Error(), "unexpected response shape")

	select {
	case <-p.Done():
	default:
		t.Fatal("done channel not closed")
	}
	assert.False(t, p.State().Alive)
}

func TestPoller_StopsDuringThrottle(t *testing.T) {
	t.Parallel()

	adapter := steadyAdapter()
	p := NewPoller(pollerTarget("poll-throttle"), adapter,
		NewRateLimiter(time.Hour, WithRest(0, 0, 0)),
		NewDispatcher(&captureNotifier{}, WithDispatcherLogger(quietLogger())),
		WithPollerLogger(quietLogger()),
	)

	cancel, errCh := runPoller(t, p)
	require.Eventually(t, func() bool { return p.State().Runs == 1 }, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return p.State().Phase == domain.PhaseResting }, 5*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("throttle did not observe cancellation")
	}
	assert.Equal(t, int64(1), adapter.calls.Load())
}

func TestPoller_StateSnapshotIsCopy(t *testing.T) {
	t.Parallel()

	p := NewPoller(pollerTarget("poll-snapshot"), steadyAdapter(), fastLimiter(),
		NewDispatcher(&captureNotifier{}),
		WithInstanceID("fixed-id"),
		WithRestarts(2),
	)

	st := p.State()
	assert.Equal(t, "fixed-id", st.InstanceID)
	assert.Equal(t, 2, st.Restarts)
	assert.True(t, st.Alive)
	assert.Equal(t, domain.PhaseIdle, st.Phase)
	assert.Equal(t, domain.VendorLiveLab, st.Vendor)
	assert.NoError(t, p.Err())
}
