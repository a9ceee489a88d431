package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SourceRequest("US", OutcomeSuccess, 50)
	m.SourceRequest("US", OutcomeSuccess, 50)
	m.SourceRequest("JP", OutcomeRejected, 0)
	m.Publish("US", 100, nil)
	m.Publish("JP", 0, errors.New("boom"))
	m.Partition("ok")

	assert.InDelta(t, 2, testutil.ToFloat64(m.sourceRequests.WithLabelValues("US", OutcomeSuccess)), 0)
	assert.InDelta(t, 100, testutil.ToFloat64(m.sourceItems.WithLabelValues("US")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.sourceRequests.WithLabelValues("JP", OutcomeRejected)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.publishes.WithLabelValues(OutcomeFailure)), 0)
	assert.InDelta(t, 100, testutil.ToFloat64(m.rowsWritten.WithLabelValues("US")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.partitions.WithLabelValues("ok")), 0)
}

func TestMetrics_RunInFlight(t *testing.T) {
	m := New(prometheus.NewRegistry())

	done := m.RunStarted()
	assert.InDelta(t, 1, testutil.ToFloat64(m.runsInFlight), 0)

	done()
	assert.InDelta(t, 0, testutil.ToFloat64(m.runsInFlight), 0)
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.SourceRequest("US", OutcomeSuccess, 1)
		m.Partition("ok")
		m.Publish("US", 1, nil)
		m.ObserveStage("fetch", time.Second)
		m.RunStarted()()
		m.TriggerRejected("busy")
	})
}
