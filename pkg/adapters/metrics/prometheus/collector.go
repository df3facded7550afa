package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	decisionsSubmitted *prometheus.CounterVec
	jobsCreated        *prometheus.CounterVec
	jobsCompleted      *prometheus.CounterVec
	jobRetries         *prometheus.CounterVec
	deadLetters        *prometheus.CounterVec
	ledgerApplies      *prometheus.CounterVec
	jobDuration        prometheus.Histogram
	pendingJobs        prometheus.Gauge
	agentsRegistered   prometheus.Gauge
	agentsInflight     prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector
func NewCollector() *Collector {
	return &Collector{
		decisionsSubmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcu_decisions_submitted_total",
				Help: "Total number of decision batches submitted",
			},
			[]string{"status"},
		),
		jobsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcu_jobs_created_total",
				Help: "Total number of jobs created",
			},
			[]string{"action_type"},
		),
		jobsCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcu_jobs_completed_total",
				Help: "Total number of jobs reaching a terminal status",
			},
			[]string{"status"},
		),
		jobRetries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcu_job_retries_total",
				Help: "Total number of job retry schedules",
			},
			[]string{"action_type"},
		),
		deadLetters: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcu_dead_letters_total",
				Help: "Total number of dead-lettered jobs",
			},
			[]string{"reason"},
		),
		ledgerApplies: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcu_ledger_applies_total",
				Help: "Total number of ledger apply calls",
			},
			[]string{"outcome"},
		),
		jobDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mcu_job_duration_seconds",
				Help:    "Job execution duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
		),
		pendingJobs: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mcu_pending_jobs",
				Help: "Number of jobs waiting for an agent",
			},
		),
		agentsRegistered: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mcu_agents_registered",
				Help: "Number of registered agents",
			},
		),
		agentsInflight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mcu_agents_inflight_jobs",
				Help: "Number of jobs currently held by agents",
			},
		),
	}
}

// RecordDecisionSubmitted records a decision submission
func (c *Collector) RecordDecisionSubmitted(status string) {
	c.decisionsSubmitted.WithLabelValues(status).Inc()
}

// RecordJobCreated records a job creation
func (c *Collector) RecordJobCreated(actionType string) {
	c.jobsCreated.WithLabelValues(actionType).Inc()
}

// RecordJobCompleted records a terminal job outcome
func (c *Collector) RecordJobCompleted(status string, duration time.Duration) {
	c.jobsCompleted.WithLabelValues(status).Inc()
	if duration > 0 {
		c.jobDuration.Observe(duration.Seconds())
	}
}

// RecordJobRetry records a scheduled retry
func (c *Collector) RecordJobRetry(actionType string) {
	c.jobRetries.WithLabelValues(actionType).Inc()
}

// RecordDeadLetter records a dead-lettered job
func (c *Collector) RecordDeadLetter(reason string) {
	c.deadLetters.WithLabelValues(reason).Inc()
}

// RecordLedgerApply records one ledger apply call
func (c *Collector) RecordLedgerApply(outcome string) {
	c.ledgerApplies.WithLabelValues(outcome).Inc()
}

// SetPendingJobs sets the current pending queue size
func (c *Collector) SetPendingJobs(count int) {
	c.pendingJobs.Set(float64(count))
}

// RecordRegistryStatus records agent registry occupancy
func (c *Collector) RecordRegistryStatus(registered, inflight int) {
	c.agentsRegistered.Set(float64(registered))
	c.agentsInflight.Set(float64(inflight))
}
