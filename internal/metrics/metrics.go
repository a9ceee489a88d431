// Package metrics exposes Prometheus instrumentation for the trending worker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ytrends"

// Source request outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeTransport = "transport_error"
	OutcomeRejected  = "rejected"
	OutcomeFailure   = "failure"
)

// Metrics groups every collector the worker updates. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	sourceRequests   *prometheus.CounterVec
	sourceItems      *prometheus.CounterVec
	partitions       *prometheus.CounterVec
	publishes        *prometheus.CounterVec
	rowsWritten      *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	runDuration      prometheus.Histogram
	lastSuccess      *prometheus.GaugeVec
	runsInFlight     prometheus.Gauge
	triggersRejected *prometheus.CounterVec
}

// New registers the worker collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		sourceRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Page requests issued to the ranking API by outcome.",
		}, []string{"partition", "outcome"}),
		sourceItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_items_total",
			Help:      "Items received from the ranking API.",
		}, []string{"partition"}),
		partitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partitions_total",
			Help:      "Processed partitions by final status.",
		}, []string{"status"}),
		publishes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Artifact uploads by outcome.",
		}, []string{"outcome"}),
		rowsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written to published artifacts.",
		}, []string{"partition"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"stage"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a full run over all partitions.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		lastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful publish per partition.",
		}, []string{"partition"}),
		runsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_flight",
			Help:      "Runs currently executing.",
		}),
		triggersRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_rejected_total",
			Help:      "Trigger requests that did not start a run.",
		}, []string{"reason"}),
	}
}

// SourceRequest records one page request.
func (m *Metrics) SourceRequest(partition, outcome string, items int) {
	if m == nil {
		return
	}

	m.sourceRequests.WithLabelValues(partition, outcome).Inc()

	if items > 0 {
		m.sourceItems.WithLabelValues(partition).Add(float64(items))
	}
}

// Partition records the final status of a partition.
func (m *Metrics) Partition(status string) {
	if m == nil {
		return
	}

	m.partitions.WithLabelValues(status).Inc()
}

// Publish records an upload attempt.
func (m *Metrics) Publish(partition string, rows int, err error) {
	if m == nil {
		return
	}

	if err != nil {
		m.publishes.WithLabelValues(OutcomeFailure).Inc()
		return
	}

	m.publishes.WithLabelValues(OutcomeSuccess).Inc()
	m.rowsWritten.WithLabelValues(partition).Add(float64(rows))
	m.lastSuccess.WithLabelValues(partition).SetToCurrentTime()
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}

	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RunStarted marks a run as in flight and returns a func that completes it.
func (m *Metrics) RunStarted() func() {
	if m == nil {
		return func() {}
	}

	start := time.Now()
	m.runsInFlight.Inc()

	return func() {
		m.runsInFlight.Dec()
		m.runDuration.Observe(time.Since(start).Seconds())
	}
}

// TriggerRejected records a trigger that did not start a run.
func (m *Metrics) TriggerRejected(reason string) {
	if m == nil {
		return
	}

	m.triggersRejected.WithLabelValues(reason).Inc()
}
