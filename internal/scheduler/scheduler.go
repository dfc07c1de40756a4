// Package scheduler drives reminder dispatch on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/paymenext/internal/metrics"
	"github.com/mmynk/paymenext/internal/models"
)

// DefaultInterval is the time between two dispatch cycles.
const DefaultInterval = 60 * time.Second

// Dispatcher sends the reminders that are due. ledger.ReminderService
// implements it.
type Dispatcher interface {
	DispatchDue(ctx context.Context) ([]models.Reminder, error)
}

// Locker guards a cycle across processes. TryLock must not block waiting for
// another holder; it reports false when the lock is taken.
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLocker makes every cycle acquire l first. Cycles that cannot get the
// lock are skipped.
func WithLocker(l Locker) Option {
	return func(s *Scheduler) { s.locker = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Scheduler runs dispatch cycles in a background goroutine. The first cycle
// runs as soon as the scheduler starts.
type Scheduler struct {
	dispatcher Dispatcher
	interval   time.Duration
	locker     Locker
	metrics    *metrics.Metrics
	logger     *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(dispatcher Dispatcher, opts ...Option) *Scheduler {
	s := &Scheduler{
		dispatcher: dispatcher,
		interval:   DefaultInterval,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "scheduler")
	return s
}

// Start launches the loop. It returns immediately; calling it on a running
// scheduler does nothing. The loop also ends when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	s.logger.Info("Reminder scheduler started", "interval", s.interval)
	go s.loop(loopCtx, done)
}

// Stop stops scheduling new cycles and waits for the loop to exit. An
// in-flight cycle finishes the reminder it is sending. Stop is safe to call
// more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if done == nil {
		return
	}

	cancel()
	<-done
	s.logger.Info("Reminder scheduler stopped")
}

// Running reports whether the loop is active. It turns false as soon as Stop
// is called, while an in-flight cycle may still be finishing.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle runs one dispatch cycle synchronously and returns the number of
// reminders sent. Errors and panics are logged, never returned.
func (s *Scheduler) RunCycle(ctx context.Context) (sent int) {
	start := time.Now()
	outcome := metrics.OutcomeOK

	defer func() {
		if r := recover(); r != nil {
			outcome = metrics.OutcomePanic
			sent = 0
			s.logger.Error("Reminder cycle panicked", "panic", r)
		}
		s.metrics.CycleFinished(outcome, time.Since(start))
	}()

	if s.locker != nil {
		acquired, err := s.locker.TryLock(ctx)
		if err != nil {
			outcome = metrics.OutcomeError
			s.logger.Warn("Failed to acquire cycle lock", "error", err)
			return 0
		}
		if !acquired {
			outcome = metrics.OutcomeSkipped
			s.logger.Debug("Cycle lock held elsewhere, skipping cycle")
			return 0
		}
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("Failed to release cycle lock", "error", err)
			}
		}()
	}

	reminders, err := s.dispatcher.DispatchDue(ctx)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.Info("Reminder cycle interrupted", "sent", len(reminders))
	case err != nil:
		outcome = metrics.OutcomeError
		s.logger.Error("Reminder cycle failed", "error", err)
	}

	if len(reminders) > 0 {
		s.logger.Info("Reminder cycle complete",
			"sent", len(reminders),
			"duration", time.Since(start),
		)
	}
	return len(reminders)
}
