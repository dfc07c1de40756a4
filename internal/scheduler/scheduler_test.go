package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/paymenext/internal/metrics"
	"github.com/mmynk/paymenext/internal/models"
)

type fakeDispatcher struct {
	calls atomic.Int32
	fn    func(ctx context.Context) ([]models.Reminder, error)
}

func (f *fakeDispatcher) DispatchDue(ctx context.Context) ([]models.Reminder, error) {
	f.calls.Add(1)
	if f.fn != nil {
		return f.fn(ctx)
	}
	return nil, nil
}

type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	err      error
	unlocked int
}

func (l *fakeLocker) TryLock(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeLocker) Unlock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.unlocked++
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStartRunsImmediatelyAndOnInterval(t *testing.T) {
	d := &fakeDispatcher{}
	s := New(d, WithInterval(10*time.Millisecond), WithLogger(quietLogger()))

	s.Start(context.Background())
	s.Start(context.Background())
	require.True(t, s.Running())

	require.Eventually(t, func() bool { return d.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	assert.False(t, s.Running())

	after := d.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, d.calls.Load(), "no cycles after Stop")
}

func TestFirstCycleIsImmediate(t *testing.T) {
	d := &fakeDispatcher{}
	s := New(d, WithInterval(time.Hour), WithLogger(quietLogger()))

	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool { return d.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestStopWaitsForInFlightCycle(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	d := &fakeDispatcher{fn: func(ctx context.Context) ([]models.Reminder, error) {
		close(started)
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return []models.Reminder{{ID: "r1"}}, ctx.Err()
	}}
	s := New(d, WithInterval(time.Hour), WithLogger(quietLogger()))

	s.Start(context.Background())
	<-started
	s.Stop()

	assert.True(t, finished.Load())
}

func TestRunningDoesNotBlockWhileStopping(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	d := &fakeDispatcher{fn: func(ctx context.Context) ([]models.Reminder, error) {
		close(started)
		<-release
		return nil, nil
	}}
	s := New(d, WithInterval(time.Hour), WithLogger(quietLogger()))

	s.Start(context.Background())
	<-started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	require.Eventually(t, func() bool { return !s.Running() }, time.Second, 5*time.Millisecond)
	select {
	case <-stopped:
		t.Fatal("Stop returned before the in-flight cycle finished")
	default:
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the cycle finished")
	}
}

func TestCycleFailuresAreSwallowed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	var n atomic.Int32
	d := &fakeDispatcher{fn: func(ctx context.Context) ([]models.Reminder, error) {
		switch n.Add(1) {
		case 1:
			return nil, errors.New("database is locked")
		case 2:
			panic("nil pointer")
		default:
			return []models.Reminder{{ID: "a"}, {ID: "b"}}, nil
		}
	}}
	s := New(d, WithMetrics(m), WithLogger(quietLogger()))
	ctx := context.Background()

	assert.Equal(t, 0, s.RunCycle(ctx))
	assert.NotPanics(t, func() { s.RunCycle(ctx) })
	assert.Equal(t, 2, s.RunCycle(ctx))

	families, err := reg.Gather()
	require.NoError(t, err)
	outcomes := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "paymenext_scheduler_cycles_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			outcomes[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{
		metrics.OutcomeError: 1,
		metrics.OutcomePanic: 1,
		metrics.OutcomeOK:    1,
	}, outcomes)
}

func TestLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("acquires and releases", func(t *testing.T) {
		d := &fakeDispatcher{}
		l := &fakeLocker{}
		s := New(d, WithLocker(l), WithLogger(quietLogger()))

		s.RunCycle(ctx)
		s.RunCycle(ctx)
		assert.Equal(t, int32(2), d.calls.Load())
		assert.Equal(t, 2, l.unlocked)
	})

	t.Run("skips when held elsewhere", func(t *testing.T) {
		d := &fakeDispatcher{}
		l := &fakeLocker{held: true}
		s := New(d, WithLocker(l), WithLogger(quietLogger()))

		assert.Equal(t, 0, s.RunCycle(ctx))
		assert.Zero(t, d.calls.Load())
		assert.Zero(t, l.unlocked)
	})

	t.Run("lock error skips the cycle", func(t *testing.T) {
		d := &fakeDispatcher{}
		l := &fakeLocker{err: errors.New("redis down")}
		s := New(d, WithLocker(l), WithLogger(quietLogger()))

		s.RunCycle(ctx)
		assert.Zero(t, d.calls.Load())
	})

	t.Run("releases after panic", func(t *testing.T) {
		d := &fakeDispatcher{fn: func(ctx context.Context) ([]models.Reminder, error) {
			panic("boom")
		}}
		l := &fakeLocker{}
		s := New(d, WithLocker(l), WithLogger(quietLogger()))

		s.RunCycle(ctx)
		assert.Equal(t, 1, l.unlocked)
		assert.False(t, l.held)
	})
}

func TestStopOnParentCancel(t *testing.T) {
	d := &fakeDispatcher{}
	s := New(d, WithInterval(5*time.Millisecond), WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	require.Eventually(t, func() bool { return d.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()

	// Stop still returns once the loop has exited on its own.
	s.Stop()
	assert.False(t, s.Running())
}
