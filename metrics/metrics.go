package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline run, RPC and per-stage counters.

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pumpfeed",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Total pipeline runs by outcome",
	}, []string{"outcome"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pumpfeed",
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Pipeline run duration",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
	})

	TokensEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pumpfeed",
		Subsystem: "pipeline",
		Name:      "tokens_emitted_total",
		Help:      "Total token records returned by pipeline runs",
	})

	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pumpfeed",
		Subsystem: "scanner",
		Name:      "transactions_total",
		Help:      "Transaction scans by outcome (ok, empty, error)",
	}, []string{"outcome"})

	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pumpfeed",
		Subsystem: "resolver",
		Name:      "candidates_total",
		Help:      "Metadata resolutions by outcome (ok, not_found, decode_error, error)",
	}, []string{"outcome"})

	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pumpfeed",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total Solana RPC calls by method and status",
	}, []string{"method", "status"})

	RPCLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pumpfeed",
		Subsystem: "rpc",
		Name:      "call_duration_seconds",
		Help:      "Solana RPC call duration",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method"})

	RPCRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pumpfeed",
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "Calls delayed by the local RPC rate limiter",
	}, []string{"method"})
)
