package service

import (
	"time"

	"mini-ledger/pkg/apperror"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels besides error codes.
const (
	outcomeApplied  = "applied"
	outcomeReplayed = "replayed"
	outcomeError    = "error"
)

// Replay sources.
const (
	replayFromCache   = "cache"
	replayFromStorage = "storage"
	replayUnderLock   = "lock"
)

var (
	ledgerOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operations_total",
		Help: "Ledger use-case invocations by outcome",
	}, []string{"operation", "outcome"})

	ledgerOpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_operation_duration_seconds",
		Help:    "Ledger use-case latency",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"operation"})

	ledgerReplaysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_idempotent_replays_total",
		Help: "Requests answered from a previously recorded result",
	}, []string{"operation", "source"})
)

func observe(op string, start time.Time, replayed bool, err error) {
	ledgerOpLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())

	outcome := outcomeApplied
	switch {
	case err != nil:
		outcome = apperror.CodeOf(err)
		if outcome == "" {
			outcome = outcomeError
		}
	case replayed:
		outcome = outcomeReplayed
	}
	ledgerOpsTotal.WithLabelValues(op, outcome).Inc()
}
