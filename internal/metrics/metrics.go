// Package metrics defines the Prometheus collectors exported by PayMeNext.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "paymenext"

// Cycle outcomes recorded by the scheduler.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomePanic   = "panic"
	OutcomeSkipped = "skipped"
)

// Metrics holds the application collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	remindersDispatched prometheus.Counter
	notifyFailures      prometheus.Counter
	cycles              *prometheus.CounterVec
	cycleDuration       prometheus.Histogram
	expensesCreated     prometheus.Counter
	splitsToggled       *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		remindersDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_dispatched_total",
			Help:      "Reminders delivered to the notifier and marked sent.",
		}),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_notify_failures_total",
			Help:      "Reminder notifications that failed and stay pending.",
		}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_cycles_total",
			Help:      "Reminder scheduler cycles by outcome.",
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_cycle_duration_seconds",
			Help:      "Duration of reminder scheduler cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		expensesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_created_total",
			Help:      "Expenses recorded and allocated.",
		}),
		splitsToggled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "split_entries_toggled_total",
			Help:      "Split entry paid toggles by resulting state.",
		}, []string{"state"}),
	}

	reg.MustRegister(
		m.remindersDispatched,
		m.notifyFailures,
		m.cycles,
		m.cycleDuration,
		m.expensesCreated,
		m.splitsToggled,
	)
	return m
}

func (m *Metrics) ReminderDispatched() {
	if m == nil {
		return
	}
	m.remindersDispatched.Inc()
}

func (m *Metrics) NotifyFailed() {
	if m == nil {
		return
	}
	m.notifyFailures.Inc()
}

// CycleFinished records one scheduler cycle.
func (m *Metrics) CycleFinished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
	if outcome != OutcomeSkipped {
		m.cycleDuration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) ExpenseCreated() {
	if m == nil {
		return
	}
	m.expensesCreated.Inc()
}

// SplitToggled records a paid toggle; paid is the entry's new state.
func (m *Metrics) SplitToggled(paid bool) {
	if m == nil {
		return
	}
	state := "unpaid"
	if paid {
		state = "paid"
	}
	m.splitsToggled.WithLabelValues(state).Inc()
}
