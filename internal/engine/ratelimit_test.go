package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when the limiter sleeps.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

func newTestLimiter(clock *fakeClock, interval time.Duration, opts ...RateLimiterOption) *RateLimiter {
	base := []RateLimiterOption{
		WithRateLimiterNowFunc(clock.Now),
		WithSleepFunc(clock.Sleep),
	}
	return NewRateLimiter(interval, append(base, opts...)...)
}

func TestRateLimiter_Throttle_Spacing(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	rl := newTestLimiter(clock, 5*time.Second)

	first, err := rl.Throttle(context.Background(), "a")
	require.NoError(t, err)
	assert.Zero(t, first, "first poll is not delayed")

	for i := range 5 {
		d, err := rl.Throttle(context.Background(), "a")
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, d, "call %d", i+2)
	}
	assert.Equal(t, int64(6), rl.Calls("a"))
}

func TestRateLimiter_Throttle_RestsAfterCycle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pollTime time.Duration
		want     time.Duration
	}{
		{name: "fast poll", pollTime: time.Second, want: 5 * time.Second},
		{name: "poll exactly one interval", pollTime: 5 * time.Second, want: 5 * time.Second},
		{name: "poll slower than interval", pollTime: 6 * time.Second, want: 5 * time.Second},
		{name: "poll hits read timeout with retries", pollTime: 32 * time.Second, want: 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			clock := newFakeClock()
			rl := newTestLimiter(clock, 5*time.Second)

			for i := range 3 {
				_, err := rl.Throttle(context.Background(), "a")
				require.NoError(t, err)

				require.NoError(t, clock.Sleep(context.Background(), tt.pollTime))
				rl.Finished("a")

				d, err := rl.Throttle(context.Background(), "a")
				require.NoError(t, err)
				assert.Equal(t, tt.want, d, "cycle %d", i+1)

				require.NoError(t, clock.Sleep(context.Background(), tt.pollTime))
				rl.Finished("a")
			}
		})
	}
}

func TestRateLimiter_Finished_UnknownPoller(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	rl := newTestLimiter(clock, 5*time.Second)

	rl.Finished("a")
	d, err := rl.Throttle(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d, "a finished cycle is always followed by a rest")
	assert.Equal(t, int64(1), rl.Calls("a"))
}

func TestRateLimiter_Throttle_LongRest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		randFunc func(n int64) int64
		want     time.Duration
	}{
		{
			name:     "lower bound",
			randFunc: func(int64) int64 { return 0 },
			want:     2 * time.Minute,
		},
		{
			name:     "upper bound",
			randFunc: func(n int64) int64 { return n - 1 },
			want:     5 * time.Minute,
		},
		{
			name:     "midpoint",
			randFunc: func(n int64) int64 { return n / 2 },
			want:     2*time.Minute + 90*time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			clock := newFakeClock()
			rl := newTestLimiter(clock, 5*time.Second,
				WithRest(50, 2*time.Minute, 5*time.Minute),
				WithRandFunc(tt.randFunc),
			)

			for i := range 50 {
				d, err := rl.Throttle(context.Background(), "a")
				require.NoError(t, err)
				assert.LessOrEqual(t, d, 5*time.Second, "call %d", i+1)
			}

			d, err := rl.Throttle(context.Background(), "a")
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
			assert.GreaterOrEqual(t, d, 2*time.Minute)
			assert.LessOrEqual(t, d, 5*time.Minute)

			next, err := rl.Throttle(context.Background(), "a")
			require.NoError(t, err)
			assert.Equal(t, 5*time.Second, next, "spacing resumes after the rest")
		})
	}
}

func TestRateLimiter_Throttle_RestEveryN(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	rl := newTestLimiter(clock, time.Second,
		WithRest(3, time.Hour, time.Hour),
	)

	var rests []int
	for i := 1; i <= 10; i++ {
		d, err := rl.Throttle(context.Background(), "a")
		require.NoError(t, err)
		if d >= time.Hour {
			rests = append(rests, i)
		}
	}
	assert.Equal(t, []int{4, 7, 10}, rests)
}

func TestRateLimiter_Throttle_PerPoller(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	rl := newTestLimiter(clock, 10*time.Second)

	_, err := rl.Throttle(context.Background(), "a")
	require.NoError(t, err)

	d, err := rl.Throttle(context.Background(), "b")
	require.NoError(t, err)
	assert.Zero(t, d, "pollers do not share a budget")

	assert.Equal(t, int64(1), rl.Calls("a"))
	assert.Equal(t, int64(1), rl.Calls("b"))
	assert.Zero(t, rl.Calls("c"))
}

func TestRateLimiter_Throttle_RestDisabled(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	rl := newTestLimiter(clock, time.Second, WithRest(0, time.Hour, time.Hour))

	for range 120 {
		d, err := rl.Throttle(context.Background(), "a")
		require.NoError(t, err)
		assert.Less(t, d, time.Hour)
	}
}

func TestRateLimiter_Throttle_Canceled(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(time.Hour)

	_, err := rl.Throttle(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = rl.Throttle(ctx, "a")
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Minute)
}
