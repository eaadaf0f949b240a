package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Job run outcomes, used as the outcome label.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// JobMetrics records maintenance job runs. A nil *JobMetrics records nothing.
type JobMetrics struct {
	duration    *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	now         func() time.Time
}

func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return nil
	}
	m := &JobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chapas_maintenance_job_duration_seconds",
			Help:    "Duration of maintenance job runs that acquired their lock.",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60},
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chapas_maintenance_job_runs_total",
			Help: "Maintenance job runs by outcome. Skipped means another replica held the lock.",
		}, []string{"job", "outcome"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chapas_maintenance_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}, []string{"job"}),
		now: time.Now,
	}
	reg.MustRegister(m.duration, m.runs, m.lastSuccess)
	return m
}

func (m *JobMetrics) ObserveDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(job)).Observe(d.Seconds())
}

func (m *JobMetrics) IncSuccess(job string) {
	if m == nil {
		return
	}
	m.inc(job, OutcomeSuccess)
	m.lastSuccess.WithLabelValues(normalizeLabel(job)).Set(float64(m.now().Unix()))
}

func (m *JobMetrics) IncFailure(job string) { m.inc(job, OutcomeFailure) }

func (m *JobMetrics) IncSkipped(job string) { m.inc(job, OutcomeSkipped) }

func (m *JobMetrics) inc(job, outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(job), outcome).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
