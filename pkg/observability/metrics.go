package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the access engine.
type Metrics struct {
	// Evaluation metrics
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram

	// Result cache metrics
	CacheHitsTotal          prometheus.Counter
	CacheMissesTotal        prometheus.Counter
	CacheInvalidationsTotal prometheus.Counter

	// Lifecycle metrics
	AssignmentMutationsTotal *prometheus.CounterVec
	ElevationReviewsTotal    *prometheus.CounterVec
	ExpiredAssignmentsSwept  prometheus.Counter

	// Audit metrics. Audit writes are best-effort: failures never fail
	// the decision, so the failure rate must be visible to operators.
	AuditWriteFailuresTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		EvaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_evaluations_total",
				Help: "Total number of permission evaluations",
			},
			[]string{"outcome"},
		),
		EvaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gatekeeper_evaluation_duration_seconds",
				Help:    "Permission evaluation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_result_cache_hits_total",
			Help: "Total number of permission result cache hits",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_result_cache_misses_total",
			Help: "Total number of permission result cache misses",
		}),
		CacheInvalidationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_result_cache_invalidations_total",
			Help: "Total number of wholesale cache invalidations",
		}),
		AssignmentMutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_assignment_mutations_total",
				Help: "Total number of role assignment mutations",
			},
			[]string{"action"},
		),
		ElevationReviewsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatekeeper_elevation_reviews_total",
				Help: "Total number of elevation request reviews",
			},
			[]string{"decision"},
		),
		ExpiredAssignmentsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_expired_assignments_swept_total",
			Help: "Total number of expired assignments removed by cleanup",
		}),
		AuditWriteFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_audit_write_failures_total",
			Help: "Total number of failed audit sink writes",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.EvaluationsTotal,
		m.EvaluationDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheInvalidationsTotal,
		m.AssignmentMutationsTotal,
		m.ElevationReviewsTotal,
		m.ExpiredAssignmentsSwept,
		m.AuditWriteFailuresTotal,
	)

	return m
}

// Handler returns an HTTP handler serving the metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
