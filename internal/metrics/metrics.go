// Package metrics exposes Prometheus counters for the bot.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK           = "ok"
	OutcomeUnauthorized = "unauthorized"
	OutcomeModelError   = "model_error"
	OutcomeShapeError   = "shape_error"
	OutcomeInvalid      = "invalid"
	OutcomeStoreError   = "store_error"
	OutcomeError        = "error"
)

// Metrics groups the bot's collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	updates         *prometheus.CounterVec
	modelLatency    *prometheus.HistogramVec
	mirrorFailures  *prometheus.CounterVec
	pendingEvicted  prometheus.Counter
	backups         *prometheus.CounterVec
	confirmedAmount *prometheus.CounterVec
}

// New registers the collectors on a fresh registry together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farm_ledger",
			Name:      "updates_total",
			Help:      "Handled messages by command and outcome.",
		}, []string{"command", "outcome"}),
		modelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "farm_ledger",
			Name:      "model_request_seconds",
			Help:      "Latency of language model calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"outcome"}),
		mirrorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farm_ledger",
			Name:      "mirror_failures_total",
			Help:      "Failed writes to mirror sinks.",
		}, []string{"sink"}),
		pendingEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "farm_ledger",
			Name:      "pending_evicted_total",
			Help:      "Expired pending confirmations removed by the sweeper.",
		}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farm_ledger",
			Name:      "backups_total",
			Help:      "Scheduled workbook backups by outcome.",
		}, []string{"outcome"}),
		confirmedAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farm_ledger",
			Name:      "confirmed_amount_total",
			Help:      "Sum of confirmed transaction amounts by process.",
		}, []string{"process"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.updates,
		m.modelLatency,
		m.mirrorFailures,
		m.pendingEvicted,
		m.backups,
		m.confirmedAmount,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Update counts one handled message.
func (m *Metrics) Update(command, outcome string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(command, outcome).Inc()
}

// ModelCall records the duration of a model request.
func (m *Metrics) ModelCall(d time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.modelLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

// MirrorFailure counts a failed mirror write.
func (m *Metrics) MirrorFailure(sink string) {
	if m == nil {
		return
	}
	m.mirrorFailures.WithLabelValues(sink).Inc()
}

// PendingEvicted counts swept pending entries.
func (m *Metrics) PendingEvicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.pendingEvicted.Add(float64(n))
}

// Backup counts a backup run.
func (m *Metrics) Backup(outcome string) {
	if m == nil {
		return
	}
	m.backups.WithLabelValues(outcome).Inc()
}

// Confirmed adds a confirmed transaction amount.
func (m *Metrics) Confirmed(process string, amount float64) {
	if m == nil {
		return
	}
	m.confirmedAmount.WithLabelValues(process).Add(amount)
}
