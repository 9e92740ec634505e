package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Balance metrics
	BalanceReads *prometheus.CounterVec

	// Withdrawal metrics
	WithdrawalRequests        *prometheus.CounterVec
	WithdrawalAmount          prometheus.Histogram
	AllocationDuration        prometheus.Histogram
	AllocationInconsistencies prometheus.Counter

	// Contribution metrics
	ContributionsRecorded prometheus.Counter

	// Projection metrics
	ProjectionUpdates  *prometheus.CounterVec
	ProjectionFailures *prometheus.CounterVec
	ProjectionDrift    prometheus.Counter

	// Event metrics
	EventsDispatched *prometheus.CounterVec
	OutboxPublished  *prometheus.CounterVec
	OutboxFailures   prometheus.Counter

	// Lock metrics
	LockWaitDuration prometheus.Histogram
	LockFailures     prometheus.Counter

	// API metrics
	HTTPRequests         *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Balance metrics
		BalanceReads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pensionledger_balance_reads_total",
				Help: "Total balance reads by source (live or projection)",
			},
			[]string{"source"},
		),

		// Withdrawal metrics
		WithdrawalRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pensionledger_withdrawal_requests_total",
				Help: "Total withdrawal requests by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		WithdrawalAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pensionledger_withdrawal_approved_amount",
			Help:    "Approved withdrawal amounts",
			Buckets: []float64{10, 100, 1000, 10000, 100000, 1000000},
		}),
		AllocationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pensionledger_allocation_duration_seconds",
			Help:    "Duration of withdrawal allocation transactions",
			Buckets: prometheus.DefBuckets,
		}),
		AllocationInconsistencies: factory.NewCounter(prometheus.CounterOpts{
			Name: "pensionledger_allocation_inconsistencies_total",
			Help: "Allocations aborted because contributions could not back the approved amount",
		}),

		// Contribution metrics
		ContributionsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "pensionledger_contributions_recorded_total",
			Help: "Total number of contributions recorded",
		}),

		// Projection metrics
		ProjectionUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pensionledger_projection_updates_total",
				Help: "Total balance projection upserts by trigger",
			},
			[]string{"trigger"},
		),
		ProjectionFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pensionledger_projection_failures_total",
				Help: "Total failed balance projection refreshes by trigger",
			},
			[]string{"trigger"},
		),
		ProjectionDrift: factory.NewCounter(prometheus.CounterOpts{
			Name: "pensionledger_projection_drift_total",
			Help: "Projections found out of sync during reconciliation",
		}),

		// Event metrics
		EventsDispatched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pensionledger_events_dispatched_total",
				Help: "Domain events handled by the in-process bus",
			},
			[]string{"event_type", "status"},
		),
		OutboxPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pensionledger_outbox_published_total",
				Help: "Outbox events published by type",
			},
			[]string{"event_type"},
		),
		OutboxFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "pensionledger_outbox_failures_total",
			Help: "Outbox events that failed to publish",
		}),

		// Lock metrics
		LockWaitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pensionledger_user_lock_wait_seconds",
			Help:    "Time spent waiting for the per-user withdrawal lock",
			Buckets: prometheus.DefBuckets,
		}),
		LockFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "pensionledger_user_lock_failures_total",
			Help: "Per-user lock acquisitions that failed",
		}),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pensionledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pensionledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pensionledger_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		// Rate limiting metrics
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pensionledger_rate_limit_hits_total",
				Help: "Requests rejected by the per-client rate limiter",
			},
			[]string{"path"},
		),
	}
}
