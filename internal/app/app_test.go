package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/paymenext/internal/config"
	"github.com/mmynk/paymenext/internal/ledger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DBPath:            filepath.Join(t.TempDir(), "app.db"),
		SchedulerInterval: time.Minute,
		Notifier:          "log",
		NotificationIcon:  "/icon.png",
		Breaker: config.Breaker{
			MaxRequests:         1,
			Interval:            time.Minute,
			Timeout:             30 * time.Second,
			ConsecutiveFailures: 5,
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRunsCycle(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), prometheus.NewRegistry(), discardLogger())
	require.NoError(t, err)
	defer a.Close()

	group, err := a.Groups.CreateGroup(ctx, "Flat", []string{"Alice", "Bob"})
	require.NoError(t, err)
	expense, err := a.Expenses.CreateExpense(ctx, ledger.CreateExpenseParams{
		GroupID:     group.ID,
		Description: "Internet",
		Amount:      decimal.RequireFromString("40"),
		CreatedBy:   "Alice",
	})
	require.NoError(t, err)

	_, err = a.Reminders.Schedule(ctx, expense.SplitEntries[1].ID, time.Now().Add(-time.Second), "")
	require.NoError(t, err)

	assert.Equal(t, 1, a.Scheduler.RunCycle(ctx))
	assert.Equal(t, 0, a.Scheduler.RunCycle(ctx), "sent reminders are not sent again")
	assert.Equal(t, "closed", a.Notifier.State())
}

func TestNewWithRedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.LockExpiry = time.Minute

	a, err := New(context.Background(), cfg, prometheus.NewRegistry(), discardLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 0, a.Scheduler.RunCycle(context.Background()))
	assert.False(t, mr.Exists("paymenext:reminders:dispatch"), "lock released after the cycle")
}

func TestNewFailures(t *testing.T) {
	t.Run("unknown notifier", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Notifier = "pigeon"
		_, err := New(context.Background(), cfg, prometheus.NewRegistry(), discardLogger())
		assert.ErrorContains(t, err, "unknown notifier")
	})

	t.Run("unreachable redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		cfg := testConfig(t)
		cfg.RedisURL = "redis://" + addr
		_, err := New(context.Background(), cfg, prometheus.NewRegistry(), discardLogger())
		assert.ErrorContains(t, err, "failed to connect to redis")
	})
}
