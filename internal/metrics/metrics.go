// Package metrics provides the Prometheus collectors of spec §4.9.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every collector the scheduler emits.
type Metrics struct {
	JobsTotal          *prometheus.CounterVec
	JobExecutionsTotal *prometheus.CounterVec
	JobRetriesTotal    *prometheus.CounterVec
	JobDurationSeconds *prometheus.HistogramVec

	ActiveJobs  *prometheus.GaugeVec
	PendingJobs *prometheus.GaugeVec
	FailedJobs  *prometheus.GaugeVec
}

// durationBuckets is the bucket list spec §4.9 names verbatim.
var durationBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// New creates a Metrics instance registered against prometheus's default
// registerer.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance registered against registerer,
// so tests can use a private registry instead of the global default.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduler_jobs_total",
				Help: "Total number of scheduled jobs observed, by terminal or transitional status.",
			},
			[]string{"status", "asset_type"},
		),
		JobExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduler_job_executions_total",
				Help: "Total number of job execution attempts.",
			},
			[]string{"status", "asset_type", "error_category"},
		),
		JobRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduler_job_retries_total",
				Help: "Total number of retry attempts scheduled, per job.",
			},
			[]string{"job_id", "asset_type"},
		),
		JobDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scheduler_job_duration_seconds",
				Help:    "Wall-clock duration of a job execution attempt.",
				Buckets: durationBuckets,
			},
			[]string{"asset_type", "status"},
		),
	}

	activeJobs := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scheduler_active_jobs",
		Help: "Current number of active jobs.",
	}, []string{"asset_type"})
	pendingJobs := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scheduler_pending_jobs",
		Help: "Current number of pending jobs.",
	}, []string{"asset_type"})
	failedJobs := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scheduler_failed_jobs",
		Help: "Current number of failed jobs.",
	}, []string{"asset_type"})

	registerer.MustRegister(
		m.JobsTotal, m.JobExecutionsTotal, m.JobRetriesTotal, m.JobDurationSeconds,
		activeJobs, pendingJobs, failedJobs,
	)
	m.ActiveJobs = activeJobs
	m.PendingJobs = pendingJobs
	m.FailedJobs = failedJobs
	return m
}
