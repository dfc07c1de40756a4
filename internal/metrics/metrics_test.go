package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ReminderDispatched()
	m.ReminderDispatched()
	m.NotifyFailed()
	m.ExpenseCreated()
	m.SplitToggled(true)
	m.SplitToggled(false)
	m.SplitToggled(true)
	m.CycleFinished(OutcomeOK, 20*time.Millisecond)
	m.CycleFinished(OutcomeSkipped, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.remindersDispatched))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifyFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.expensesCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.splitsToggled.WithLabelValues("paid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.splitsToggled.WithLabelValues("unpaid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues(OutcomeSkipped)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.cycleDuration))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ReminderDispatched()
		m.NotifyFailed()
		m.ExpenseCreated()
		m.SplitToggled(true)
		m.CycleFinished(OutcomeError, time.Second)
	})
}
