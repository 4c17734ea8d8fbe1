package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DecisionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "arena_decision_latency_seconds",
		Help: "Latency of provider decision calls",
	}, []string{"provider"})

	ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_provider_errors_total",
		Help: "Total number of provider calls degraded to HOLD",
	}, []string{"provider", "kind"})

	TradesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_trades_executed_total",
		Help: "Total number of executed trade legs",
	}, []string{"action"})

	Liquidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_liquidations_total",
		Help: "Total number of forced liquidations",
	})

	CandlesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_candles_processed_total",
		Help: "Total number of candles processed across runs",
	})

	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_active_runs",
		Help: "Number of simulation runs currently in flight",
	})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_total",
		Help: "Total number of active WebSocket connections",
	})
)
