// Package metrics defines the Prometheus collectors exported by the service.
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docgen"

// Metrics groups the collectors for job processing.
type Metrics struct {
	jobsSubmitted   prometheus.Counter
	jobsRejected    *prometheus.CounterVec
	jobsFinished    *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	backendAttempts *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	storeDegraded   prometheus.Gauge
	reg             prometheus.Registerer
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		reg: reg,
		jobsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Total number of accepted generation jobs",
		}),
		jobsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_rejected_total",
			Help:      "Total number of submissions refused before a job was queued",
		}, []string{"reason"}),
		jobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Total number of finalized jobs by terminal status and error kind",
		}, []string{"status", "kind"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time from submission to terminal write",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"status"}),
		backendAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_attempts_total",
			Help:      "Backend attempts by backend, model and outcome",
		}, []string{"backend", "model", "outcome"}),
		tokensUsed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Tokens reported by backends, by direction",
		}, []string{"backend", "direction"}),
		storeDegraded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_degraded",
			Help:      "1 when the primary result store was unreachable at startup",
		}),
	}
}

// JobSubmitted counts an accepted submission.
func (m *Metrics) JobSubmitted() {
	if m == nil {
		return
	}
	m.jobsSubmitted.Inc()
}

// JobRejected counts a refused submission.
func (m *Metrics) JobRejected(reason string) {
	if m == nil {
		return
	}
	m.jobsRejected.WithLabelValues(reason).Inc()
}

// JobFinished records a terminal write. kind is empty for completed jobs.
func (m *Metrics) JobFinished(status, kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobsFinished.WithLabelValues(status, kind).Inc()
	m.jobDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// BackendAttempt records one backend call. outcome is "success" or an
// error kind.
func (m *Metrics) BackendAttempt(backend, model, outcome string) {
	if m == nil {
		return
	}
	m.backendAttempts.WithLabelValues(backend, model, outcome).Inc()
}

// Tokens adds reported token counts.
func (m *Metrics) Tokens(backend string, input, output int) {
	if m == nil {
		return
	}
	if input > 0 {
		m.tokensUsed.WithLabelValues(backend, "input").Add(float64(input))
	}
	if output > 0 {
		m.tokensUsed.WithLabelValues(backend, "output").Add(float64(output))
	}
}

// StoreDegraded sets the degraded store gauge.
func (m *Metrics) StoreDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.storeDegraded.Set(1)
		return
	}
	m.storeDegraded.Set(0)
}

// RegisterQueueDepth exports the current queue length through depth.
func (m *Metrics) RegisterQueueDepth(depth func() int) {
	if m == nil {
		return
	}
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Jobs waiting for a worker",
	}, func() float64 { return float64(depth()) })
}
