// Package app assembles the PayMeNext components from a Config. Both the
// server and the standalone reminder worker start from here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/paymenext/internal/config"
	"github.com/mmynk/paymenext/internal/ledger"
	"github.com/mmynk/paymenext/internal/lock"
	"github.com/mmynk/paymenext/internal/metrics"
	"github.com/mmynk/paymenext/internal/notify"
	"github.com/mmynk/paymenext/internal/scheduler"
	"github.com/mmynk/paymenext/internal/storage/sqlite"
)

// App holds the wired components and the resources they own.
type App struct {
	Store      *sqlite.SQLiteStore
	Metrics    *metrics.Metrics
	Notifier   *notify.Breaker
	Groups     *ledger.GroupService
	Expenses   *ledger.ExpenseService
	Settlement *ledger.SettlementService
	Reminders  *ledger.ReminderService
	Scheduler  *scheduler.Scheduler

	closers []func() error
}

// New opens the store, connects the notifier and the optional Redis lock,
// and builds the services. Metrics are registered on reg.
func New(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (_ *App, err error) {
	a := &App{Metrics: metrics.New(reg)}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Store, err = sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.closers = append(a.closers, a.Store.Close)
	logger.Info("Storage initialized", "database", cfg.DBPath)

	inner, err := a.buildNotifier(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Notifier = notify.NewBreaker(inner, notify.BreakerConfig{
		MaxRequests:         cfg.Breaker.MaxRequests,
		Interval:            cfg.Breaker.Interval,
		Timeout:             cfg.Breaker.Timeout,
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
	}, logger)

	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithMetrics(a.Metrics),
		ledger.WithThrottle(cfg.ReminderThrottle),
		ledger.WithIcon(cfg.NotificationIcon),
	}
	a.Groups = ledger.NewGroupService(a.Store, opts...)
	a.Expenses = ledger.NewExpenseService(a.Store, opts...)
	a.Settlement = ledger.NewSettlementService(a.Store, opts...)
	a.Reminders = ledger.NewReminderService(a.Store, a.Notifier, opts...)

	schedOpts := []scheduler.Option{
		scheduler.WithInterval(cfg.SchedulerInterval),
		scheduler.WithMetrics(a.Metrics),
		scheduler.WithLogger(logger),
	}
	if cfg.RedisURL != "" {
		locker, err := a.buildLocker(ctx, cfg)
		if err != nil {
			return nil, err
		}
		schedOpts = append(schedOpts, scheduler.WithLocker(locker))
		logger.Info("Distributed dispatch lock enabled", "key", lock.DefaultKey, "expiry", cfg.LockExpiry)
	}
	a.Scheduler = scheduler.New(a.Reminders, schedOpts...)

	return a, nil
}

func (a *App) buildNotifier(cfg *config.Config, logger *slog.Logger) (notify.Notifier, error) {
	switch cfg.Notifier {
	case "amqp":
		n, err := notify.NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AMQP notifier: %w", err)
		}
		a.closers = append(a.closers, n.Close)
		logger.Info("AMQP notifier initialized", "exchange", cfg.AMQPExchange, "routing_key", cfg.AMQPRoutingKey)
		return n, nil
	case "log", "":
		return notify.NewLogNotifier(logger), nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", cfg.Notifier)
	}
}

func (a *App) buildLocker(ctx context.Context, cfg *config.Config) (*lock.RedisLocker, error) {
	client, err := lock.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return lock.NewRedisLocker(client, lock.DefaultKey, cfg.LockExpiry), nil
}

// Close stops the scheduler and releases resources in reverse order of
// acquisition.
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
