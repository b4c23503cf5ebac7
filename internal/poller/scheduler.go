package poller

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/nerrad567/homedash/internal/state"
)

// DefaultInterval is the pause between cycles.
const DefaultInterval = 30 * time.Second

// Logger is the logging interface used by the poller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Step computes one telemetry aggregate per cycle.
type Step interface {
	// Field is the document field the aggregate is stored under.
	Field() string
	Compute(ctx context.Context) (any, error)
}

// Store is what the scheduler needs from the state store.
// Satisfied by *state.Store.
type Store interface {
	Update(ctx context.Context, user string, fields state.Fields) (*state.Document, error)
	Users(ctx context.Context) ([]string, error)
}

// Cycle is the outcome of one RunOnce.
type Cycle struct {
	At time.Time
	// Values holds each successful step's aggregate, keyed by field.
	Values map[string]any
	// Users are the users whose documents were updated.
	Users []string
}

// Listener is notified after every cycle.
type Listener interface {
	CycleComplete(ctx context.Context, c Cycle)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, c Cycle)

// CycleComplete calls f.
func (f ListenerFunc) CycleComplete(ctx context.Context, c Cycle) { f(ctx, c) }

// Scheduler runs the steps on a fixed interval.
//
// Thread Safety: RunOnce may be called while Run is active; cycles are
// serialised.
type Scheduler struct {
	steps    []Step
	store    Store
	interval time.Duration
	users    []string

	mu        sync.Mutex // serialises cycles
	listeners []Listener
	logger    Logger
	now       func() time.Time
}

// NewScheduler creates a scheduler. users always receive telemetry, in
// addition to every user the store already knows.
func NewScheduler(store Store, interval time.Duration, users []string, steps ...Step) (*Scheduler, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	return &Scheduler{
		steps:    steps,
		store:    store,
		interval: interval,
		users:    slices.Clone(users),
		logger:   noopLogger{},
		now:      time.Now,
	}, nil
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// AddListener registers l. Must be called before Run.
func (s *Scheduler) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Interval returns the pause between cycles.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Run executes cycles until ctx is cancelled. The interval is measured from
// the end of one cycle to the start of the next.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("poller started", "interval", s.interval, "steps", len(s.steps))
	defer s.logger.Info("poller stopped")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		s.RunOnce(ctx)
		timer.Reset(s.interval)
	}
}

// RunOnce executes a single cycle and returns its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) Cycle {
	s.mu.Lock()
	defer s.mu.Unlock()

	cycle := Cycle{At: s.now(), Values: make(map[string]any, len(s.steps))}

	fields := make(state.Fields, len(s.steps))
	for _, step := range s.steps {
		if ctx.Err() != nil {
			return cycle
		}
		v, err := step.Compute(ctx)
		if err != nil {
			s.logger.Warn("poll step failed", "field", step.Field(), "error", err)
			continue
		}
		fields[step.Field()] = v
		cycle.Values[step.Field()] = v
	}

	if len(fields) > 0 {
		cycle.Users = s.persist(ctx, fields)
	}

	s.logger.Debug("poll cycle complete",
		"fields", len(cycle.Values),
		"users", len(cycle.Users),
		"duration", s.now().Sub(cycle.At))

	for _, l := range s.listeners {
		l.CycleComplete(ctx, cycle)
	}
	return cycle
}

// persist merges fields into every target document.
func (s *Scheduler) persist(ctx context.Context, fields state.Fields) []string {
	targets := s.targets(ctx)
	updated := make([]string, 0, len(targets))
	for _, user := range targets {
		if _, err := s.store.Update(ctx, user, fields); err != nil {
			s.logger.Error("persisting telemetry failed", "user", user, "error", err)
			continue
		}
		updated = append(updated, user)
	}
	return updated
}

// targets returns the configured users followed by stored users, without
// duplicates.
func (s *Scheduler) targets(ctx context.Context) []string {
	stored, err := s.store.Users(ctx)
	if err != nil {
		s.logger.Warn("listing users failed", "error", err)
	}

	seen := make(map[string]bool, len(s.users)+len(stored))
	out := make([]string, 0, len(s.users)+len(stored))
	for _, list := range [][]string{s.users, stored} {
		for _, u := range list {
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}
