package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SchedulerErrorTypeDeadlineExceeded = "deadline_exceeded"
	SchedulerErrorTypeLedger           = "ledger"
	SchedulerErrorTypeUnknown          = "unknown"
)

// SchedulerMetrics captures background job health.
type SchedulerMetrics struct {
	jobRuns     *prometheus.CounterVec
	jobErrors   *prometheus.CounterVec
	jobTimeouts *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	processed   *prometheus.CounterVec
}

// ErrorClassifier maps a job error onto a low-cardinality label.
type ErrorClassifier func(err error) string

func NewSchedulerMetrics(registerer prometheus.Registerer) *SchedulerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &SchedulerMetrics{
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staydesk_scheduler_job_runs_total",
			Help: "Scheduler job executions.",
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staydesk_scheduler_job_errors_total",
			Help: "Scheduler job failures by error type.",
		}, []string{"job", "error_type"}),
		jobTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staydesk_scheduler_job_timeouts_total",
			Help: "Scheduler jobs that hit their deadline.",
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "staydesk_scheduler_job_duration_seconds",
			Help:    "Scheduler job duration.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 300},
		}, []string{"job"}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staydesk_scheduler_items_processed_total",
			Help: "Items a job acted on.",
		}, []string{"job"}),
	}
	m.jobRuns = registerOrReuse(registerer, m.jobRuns).(*prometheus.CounterVec)
	m.jobErrors = registerOrReuse(registerer, m.jobErrors).(*prometheus.CounterVec)
	m.jobTimeouts = registerOrReuse(registerer, m.jobTimeouts).(*prometheus.CounterVec)
	m.jobDuration = registerOrReuse(registerer, m.jobDuration).(*prometheus.HistogramVec)
	m.processed = registerOrReuse(registerer, m.processed).(*prometheus.CounterVec)
	return m
}

func (m *SchedulerMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) IncJobError(job string, err error, classify ErrorClassifier) {
	if m == nil || err == nil {
		return
	}
	errorType := SchedulerErrorTypeUnknown
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		errorType = SchedulerErrorTypeDeadlineExceeded
	case classify != nil:
		errorType = classify(err)
	}
	m.jobErrors.WithLabelValues(job, errorType).Inc()
}

func (m *SchedulerMetrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *SchedulerMetrics) AddProcessed(job string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.processed.WithLabelValues(job).Add(float64(n))
}
