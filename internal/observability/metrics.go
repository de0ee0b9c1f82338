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
	// Evaluation pipeline metrics
	SignalsEvaluated   prometheus.Counter
	SignalsRejected    *prometheus.CounterVec
	TradesExecuted     prometheus.Counter
	EvaluationDuration prometheus.Histogram
	StageDuration      *prometheus.HistogramVec

	// Sentiment metrics
	SentimentCacheHits   prometheus.Counter
	SentimentCacheMisses prometheus.Counter
	ClassifierLatency    prometheus.Histogram

	// Position metrics
	PositionsClosed *prometheus.CounterVec
	OpenPositions   prometheus.Gauge
	CumulativePnL   prometheus.Gauge

	// Circuit breaker metrics
	TradingPaused  prometheus.Gauge
	MarketCrashes  prometheus.Counter
	VolatileAlerts prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sol_swarm"
	}

	return &Metrics{
		SignalsEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "signals_evaluated_total",
			Help:      "Total number of signals run through the evaluation pipeline",
		}),
		SignalsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "signals_rejected_total",
			Help:      "Total number of rejected signals by pipeline stage",
		}, []string{"stage"}),
		TradesExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "trades_executed_total",
			Help:      "Total number of executed trades",
		}),
		EvaluationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "evaluation_duration_seconds",
			Help:      "Full pipeline evaluation duration per signal",
			Buckets:   prometheus.DefBuckets,
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),

		SentimentCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sentiment",
			Name:      "cache_hits_total",
			Help:      "Total number of sentiment cache hits",
		}),
		SentimentCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sentiment",
			Name:      "cache_misses_total",
			Help:      "Total number of sentiment cache misses",
		}),
		ClassifierLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sentiment",
			Name:      "classifier_latency_seconds",
			Help:      "Latency of a single text classification",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),

		PositionsClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "closed_total",
			Help:      "Total number of closed positions by exit status",
		}, []string{"status"}),
		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "open",
			Help:      "Current number of open positions",
		}),
		CumulativePnL: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "cumulative_pnl_usd",
			Help:      "Cumulative realized P&L in USD",
		}),

		TradingPaused: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "trading_paused",
			Help:      "1 when the trading circuit breaker is engaged, 0 otherwise",
		}),
		MarketCrashes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "crashes_detected_total",
			Help:      "Total number of market crash detections",
		}),
		VolatileAlerts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "volatile_alerts_total",
			Help:      "Total number of volatility alerts",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
