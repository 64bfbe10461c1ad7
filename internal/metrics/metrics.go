// Package metrics exposes the service counters to Prometheus. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "najdeno"

// Metrics holds the service collectors.
type Metrics struct {
	registry *prometheus.Registry

	matches       prometheus.Counter
	conflicts     prometheus.Counter
	notifications *prometheus.CounterVec
	claims        prometheus.Counter
	cancels       prometheus.Counter
	swept         *prometheus.CounterVec
	jobRuns       *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		matches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_created_total",
			Help:      "Matches created by reconciliation passes.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_conflicts_total",
			Help:      "Candidate pairs that were already handled when the match was attempted.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Match notifications by outcome.",
		}, []string{"outcome"}),
		claims: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "Found records handed over to a claimant.",
		}),
		cancels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_cancellations_total",
			Help:      "Matches cancelled by staff.",
		}),
		swept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_records_total",
			Help:      "Records evaluated by the archival sweep, by result.",
		}, []string{"result"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by job and outcome.",
		}, []string{"job", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Scheduled job run time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.matches, m.conflicts, m.notifications, m.claims, m.cancels,
		m.swept, m.jobRuns, m.jobDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Notification outcomes.
const (
	Sent    = "sent"
	Failed  = "failed"
	Dropped = "dropped"
	Skipped = "skipped"
)

// Sweep results.
const (
	Archived = "archived"
	Errored  = "error"
)

func (m *Metrics) MatchCreated() {
	if m != nil {
		m.matches.Inc()
	}
}

func (m *Metrics) MatchConflict() {
	if m != nil {
		m.conflicts.Inc()
	}
}

// Notification counts one notification with the given outcome.
func (m *Metrics) Notification(outcome string) {
	if m != nil {
		m.notifications.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Claimed() {
	if m != nil {
		m.claims.Inc()
	}
}

func (m *Metrics) MatchCancelled() {
	if m != nil {
		m.cancels.Inc()
	}
}

// Swept adds the totals of one sweep.
func (m *Metrics) Swept(archived, skipped, errors int) {
	if m == nil {
		return
	}
	m.swept.WithLabelValues(Archived).Add(float64(archived))
	m.swept.WithLabelValues(Skipped).Add(float64(skipped))
	m.swept.WithLabelValues(Errored).Add(float64(errors))
}

// JobRun records one scheduled run.
func (m *Metrics) JobRun(job string, seconds float64, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
	m.jobDuration.WithLabelValues(job).Observe(seconds)
}
