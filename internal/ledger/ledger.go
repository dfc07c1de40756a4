// Package ledger implements the domain operations of PayMeNext on top of a
// storage.Store: group management, expense allocation, settlement and
// payment reminders.
//
// Services are safe for concurrent use. The store's transactions are the
// only serialization point; services hold no mutable state of their own.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmynk/paymenext/internal/metrics"
)

// DefaultThrottle is the pause between two reminders of one dispatch cycle.
const DefaultThrottle = time.Second

// Option configures a service.
type Option func(*options)

type options struct {
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics
	throttle time.Duration
	icon     string
	sleep    func(ctx context.Context, d time.Duration) error
}

func buildOptions(component string, opts []Option) options {
	o := options{
		now:      func() time.Time { return time.Now().UTC() },
		logger:   slog.Default(),
		throttle: DefaultThrottle,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With("component", component)
	return o
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithThrottle sets the delay between consecutive reminders in one cycle.
// Zero disables it.
func WithThrottle(d time.Duration) Option {
	return func(o *options) { o.throttle = d }
}

// WithIcon sets the icon reference attached to notifications.
func WithIcon(ref string) Option {
	return func(o *options) { o.icon = ref }
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
