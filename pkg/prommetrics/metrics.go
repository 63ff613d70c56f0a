package prommetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// KeeperNamespace is the namespace for all keeper related metrics
const KeeperNamespace = "keeper"

// Cycle outcomes used as the "outcome" label of KeeperCycles
const (
	OutcomeCompleted = "completed"
	OutcomeEmpty     = "empty"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Keeper metrics
var (
	KeeperCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: KeeperNamespace,
		Name:      "cycles_total",
		Help:      "Count of keeper cycles by outcome",
	}, []string{"outcome"})
	KeeperCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: KeeperNamespace,
		Name:      "cycle_duration_seconds",
		Help:      "Wall-clock duration of a keeper cycle",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
	KeeperDueCharges = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: KeeperNamespace,
		Name:      "due_charges",
		Help:      "How many due charges the last scan found",
	})
	KeeperProfitableCharges = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: KeeperNamespace,
		Name:      "profitable_charges",
		Help:      "How many due charges passed the profit filter in the last cycle",
	})
	KeeperChargesExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: KeeperNamespace,
		Name:      "charges_executed_total",
		Help:      "Count of charge transactions accepted by the node",
	})
	KeeperChargesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: KeeperNamespace,
		Name:      "charges_failed_total",
		Help:      "Count of charge submissions that failed",
	})
	KeeperBroadcastFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: KeeperNamespace,
		Name:      "broadcast_failures_total",
		Help:      "Count of transactions rejected by the node or lost in transit",
	})
	KeeperQueryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: KeeperNamespace,
		Name:      "query_failures_total",
		Help:      "Count of failed read-only queries by contract function",
	}, []string{"function"})
	KeeperBlockHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: KeeperNamespace,
		Name:      "block_height",
		Help:      "Chain tip height observed at the start of the last cycle",
	})
)
