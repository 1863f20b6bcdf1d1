// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Discovery metrics
	CandidatesDiscovered *prometheus.CounterVec
	QueueDepth           prometheus.Gauge
	QueueEvictions       prometheus.Counter

	// Pipeline metrics
	CandidatesValidated *prometheus.CounterVec
	DecisionsTotal      *prometheus.CounterVec
	AdmissionsBlocked   *prometheus.CounterVec

	// Execution metrics
	SubmissionAttempts  prometheus.Counter
	TradesExecuted      *prometheus.CounterVec
	SubmitDuration      prometheus.Histogram
	UnconfirmedExhausts prometheus.Counter

	// Position metrics
	OpenPositions    prometheus.Gauge
	PositionExits    *prometheus.CounterVec
	RealizedPnlSol   prometheus.Gauge
	UnrealizedPnlSol prometheus.Gauge
	DailyPnlSol      prometheus.Gauge

	// Breaker metrics
	BreakerTripped prometheus.Gauge
	BreakerTrips   *prometheus.CounterVec

	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
	WSReconnects   prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "curve_sniper"
	}

	return &Metrics{
		CandidatesDiscovered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "candidates_discovered_total",
			Help:      "Total candidates discovered by source",
		}, []string{"source"}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Current number of candidates waiting to mature",
		}),
		QueueEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "evictions_total",
			Help:      "Total candidates evicted from a full queue",
		}),

		CandidatesValidated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "candidates_validated_total",
			Help:      "Total validation attempts by outcome",
		}, []string{"outcome"}),
		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "decisions_total",
			Help:      "Total trade decisions by outcome",
		}, []string{"outcome"}),
		AdmissionsBlocked: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "admissions_blocked_total",
			Help:      "Total admissions blocked by gate",
		}, []string{"gate"}),

		SubmissionAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "submission_attempts_total",
			Help:      "Total transaction submission attempts including resubmissions",
		}),
		TradesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "trades_executed_total",
			Help:      "Total confirmed trades by side",
		}, []string{"side"}),
		SubmitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "submit_duration_seconds",
			Help:      "Wall time from first submission to terminal state",
			Buckets:   []float64{1, 2, 5, 10, 20, 45, 90, 180},
		}),
		UnconfirmedExhausts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "unconfirmed_exhausts_total",
			Help:      "Total submissions that exhausted retries without confirmation",
		}),

		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "open",
			Help:      "Current number of open positions",
		}),
		PositionExits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "exits_total",
			Help:      "Total position exits by reason",
		}, []string{"reason"}),
		RealizedPnlSol: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "realized_pnl_sol",
			Help:      "Cumulative realized PnL in SOL since start",
		}),
		UnrealizedPnlSol: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "unrealized_pnl_sol",
			Help:      "Open PnL in SOL across all positions at last tick prices",
		}),
		DailyPnlSol: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "daily_pnl_sol",
			Help:      "Realized PnL in SOL since the last daily reset",
		}),

		BreakerTripped: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "tripped",
			Help:      "1 when the circuit breaker is tripped",
		}),
		BreakerTrips: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "trips_total",
			Help:      "Total circuit breaker trips by reason class",
		}, []string{"reason"}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "RPC call latency by method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "ws_reconnects_total",
			Help:      "Total websocket reconnections",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
