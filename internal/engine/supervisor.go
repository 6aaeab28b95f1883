package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/donaldgifford/ticket-monitor/internal/metrics"
	"github.com/donaldgifford/ticket-monitor/internal/vendor"
	domain "github.com/donaldgifford/ticket-monitor/pkg/types"
)

const (
	defaultLivenessInterval = 60 * time.Second
	defaultStallAfter       = 5 * time.Minute
	defaultShutdownGrace    = 10 * time.Second
)

// ErrShutdownTimeout is returned by Shutdown when pollers did not stop
// within the grace period.
var ErrShutdownTimeout = errors.New("pollers did not stop within the grace period")

// Binding pairs a target with the adapter that polls it.
type Binding struct {
	Target  *domain.TargetCriteria
	Adapter vendor.Adapter
}

// Supervisor runs one Poller per enabled target and restarts pollers whose
// loop has died. Liveness is read from poller state snapshots, never by
// joining a poller, so a hung poll cannot block the watch.
type Supervisor struct {
	bindings   []Binding
	limiter    *RateLimiter
	dispatcher *Dispatcher
	log        *slog.Logger
	nowFunc    func() time.Time

	liveness   time.Duration
	stallAfter time.Duration
	grace      time.Duration

	cron *cron.Cron

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	order   []string
	pollers map[string]*Poller
	byName  map[string]Binding
	wg      sync.WaitGroup
	started bool
	stopped bool
}

// SupervisorOption configures the Supervisor.
type SupervisorOption func(*Supervisor)

// WithSupervisorLogger sets a custom logger.
func WithSupervisorLogger(l *slog.Logger) SupervisorOption {
	return func(s *Supervisor) {
		s.log = l
	}
}

// WithLivenessInterval sets how often pollers are checked.
func WithLivenessInterval(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.liveness = d
	}
}

// WithStallAfter sets how long a live poller may go without completing a
// poll before it is reported as stalled.
func WithStallAfter(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.stallAfter = d
	}
}

// WithShutdownGrace sets how long Shutdown waits for pollers to stop.
func WithShutdownGrace(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.grace = d
	}
}

// WithSupervisorNowFunc overrides the clock for testing.
func WithSupervisorNowFunc(f func() time.Time) SupervisorOption {
	return func(s *Supervisor) {
		s.nowFunc = f
	}
}

// NewSupervisor creates a Supervisor. Disabled targets are skipped; target
// names must be unique among enabled targets.
func NewSupervisor(
	bindings []Binding,
	limiter *RateLimiter,
	dispatcher *Dispatcher,
	opts ...SupervisorOption,
) (*Supervisor, error) {
	s := &Supervisor{
		limiter:    limiter,
		dispatcher: dispatcher,
		log:        slog.Default(),
		nowFunc:    time.Now,
		liveness:   defaultLivenessInterval,
		stallAfter: defaultStallAfter,
		grace:      defaultShutdownGrace,
		pollers:    make(map[string]*Poller),
		byName:     make(map[string]Binding),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, b := range bindings {
		if b.Target == nil || b.Adapter == nil {
			return nil, errors.New("binding requires a target and an adapter")
		}
		if !b.Target.Enabled {
			s.log.Info("target disabled, skipping", "target", b.Target.Name)
			continue
		}
		if _, dup := s.byName[b.Target.Name]; dup {
			return nil, fmt.Errorf("duplicate target name %q", b.Target.Name)
		}
		s.byName[b.Target.Name] = b
		s.order = append(s.order, b.Target.Name)
		s.bindings = append(s.bindings, b)
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc("@every "+s.liveness.String(), s.CheckLiveness); err != nil {
		return nil, fmt.Errorf("registering liveness check: %w", err)
	}

	return s, nil
}

// Start spawns one poller per enabled target and begins the liveness watch.
// Pollers stop when ctx is canceled or Shutdown is called.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("supervisor already started")
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, name := range s.order {
		s.spawnLocked(s.byName[name], 0)
	}
	metrics.PollersAlive.Set(float64(len(s.order)))

	s.cron.Start()
	s.log.Info("supervisor started",
		"pollers", len(s.order),
		"liveness_interval", s.liveness,
	)
	return nil
}

// CheckLiveness restarts dead pollers with a fresh instance bound to the
// same target, reports stalled ones and logs a heartbeat. It is run by the
// liveness watch and is safe to call directly.
func (s *Supervisor) CheckLiveness() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.stopped || s.ctx.Err() != nil {
		return
	}

	now := s.nowFunc()
	alive, stalled := 0, 0
	for _, name := range s.order {
		p := s.pollers[name]
		st := p.State()

		if !st.Alive {
			s.log.Warn("poller is dead, restarting",
				"target", name,
				"poller_id", st.InstanceID,
				"restarts", st.Restarts+1,
				"error", p.Err(),
			)
			metrics.PollerRestartsTotal.WithLabelValues(name).Inc()
			s.spawnLocked(s.byName[name], st.Restarts+1)
			alive++
			continue
		}
		alive++

		last := st.StartedAt
		if st.LastPollAt != nil {
			last = *st.LastPollAt
		}
		if s.stallAfter > 0 && now.Sub(last) > s.stallAfter {
			stalled++
			s.log.Warn("poller stalled",
				"target", name,
				"poller_id", st.InstanceID,
				"phase", st.Phase,
				"since", now.Sub(last).Round(time.Second),
			)
		}
	}

	metrics.PollersAlive.Set(float64(alive))
	metrics.PollersStalled.Set(float64(stalled))
	s.log.Info("heartbeat", "pollers", alive, "stalled", stalled)
}

// Shutdown cancels every poller and waits until they stop or the grace
// period elapses, whichever comes first. It is safe to call more than once.
func (s *Supervisor) Shutdown() error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.cancel()
	s.mu.Unlock()

	cronCtx := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(s.grace)
	defer timer.Stop()

	select {
	case <-done:
		metrics.PollersAlive.Set(0)
		s.log.Info("supervisor stopped")
		return nil
	case <-timer.C:
		s.log.Error("shutdown grace period elapsed, abandoning pollers", "grace", s.grace)
		return ErrShutdownTimeout
	}
}

// Status returns a snapshot of every poller in configuration order.
func (s *Supervisor) Status() []domain.PollerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.PollerState, 0, len(s.order))
	for _, name := range s.order {
		if p, ok := s.pollers[name]; ok {
			out = append(out, p.State())
		}
	}
	return out
}

// Ready reports whether the supervisor is running and every poller is
// alive.
func (s *Supervisor) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.stopped {
		return false
	}
	for _, name := range s.order {
		if !s.pollers[name].State().Alive {
			return false
		}
	}
	return true
}

// Entries returns the registered cron entries for inspection.
func (s *Supervisor) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Supervisor) spawnLocked(b Binding, restarts int) {
	p := NewPoller(b.Target, b.Adapter, s.limiter, s.dispatcher,
		WithPollerLogger(s.log),
		WithInstanceID(uuid.NewString()),
		WithRestarts(restarts),
		WithPollerNowFunc(s.nowFunc),
	)
	s.pollers[b.Target.Name] = p

	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			var crash *CrashError
			if errors.As(err, &crash) {
				s.log.Error("poller exited after crash, restart pending",
					"target", crash.Target,
					"correlation_id", crash.ID,
				)
				return
			}
			s.log.Warn("poller exited", "target", b.Target.Name, "error", err)
		}
	}()
}
