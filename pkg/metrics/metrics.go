package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Define global variables for metrics.
// We use 'promauto' which automatically registers metrics without complex initialization.

var (
	// 1. Walks (Counters)
	// Counts completed walks and the total number of emitted steps.
	WalksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graphwalk_walks_total",
			Help: "Total number of random walks generated",
		},
	)

	WalkStepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graphwalk_walk_steps_total",
			Help: "Total number of walk steps emitted",
		},
	)

	// Walks that terminated early on a trap node (out-degree zero).
	TrapTerminationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graphwalk_trap_terminations_total",
			Help: "Total number of walks terminated early on a trap node",
		},
	)

	// 2. Mini-batch sampling (Counters)
	// Triples are labeled by kind so the positive/negative balance is observable.
	BatchTriplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphwalk_batch_triples_total",
			Help: "Total number of sampled edge triples",
		},
		[]string{"kind"}, // "positive" | "negative"
	)

	// Rejected negative candidates (false negatives, avoided edges, self loops).
	// Critical for spotting near-complete graphs where rejection dominates.
	NegativeRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graphwalk_negative_rejections_total",
			Help: "Total number of rejected negative sample candidates",
		},
	)

	// 3. Graph size (Gauges)
	// Tracks the dimensions of the most recently built graph.
	GraphNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "graphwalk_graph_nodes",
			Help: "Number of nodes in the most recently built graph",
		},
	)

	GraphEdges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "graphwalk_graph_edges",
			Help: "Number of directed edges in the most recently built graph",
		},
	)
)
