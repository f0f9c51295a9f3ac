// Package sampler produces mini-batches of (source, destination, label) edge
// triples for edge-prediction training: positives drawn from the graph's edge
// list, negatives drawn from a configurable endpoint distribution with
// rejection of known edges.
//
// A batch is a lazy, finite stream. Every triple is a pure function of the
// batch seed and the triple's index, so a batch can be consumed by several
// goroutines concurrently and two batches with the same seed are identical.
package sampler

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/sanonone/graphwalk/internal/rng"
	"github.com/sanonone/graphwalk/pkg/graph"
	"github.com/sanonone/graphwalk/pkg/metrics"
)

const defaultMaxAttempts = 10000

var (
	ErrBatchSize     = errors.New("sampler: batch size must be at least 1")
	ErrTooFewNodes   = errors.New("sampler: graph must have at least 2 nodes")
	ErrPositiveRatio = errors.New("sampler: positive ratio must be a finite value in [0, 1]")
	ErrNoEdges       = errors.New("sampler: graph has no edges to sample positives from")
	// ErrMaxAttempts means the rejection loop gave up before finding an
	// acceptable negative, which only happens when the filters leave almost no
	// valid candidates (a near-complete graph, or GraphToAvoid covering most
	// pairs). Raising Config.MaxAttempts trades the guard for the guarantee
	// that sampling only stops on a truly exhausted candidate space.
	ErrMaxAttempts = errors.New("sampler: exhausted attempts to sample a negative edge; the graph may be near-complete")
)

// Triple is one labeled edge sample: Label is true for edges present in the
// graph and false for sampled negatives.
type Triple struct {
	Source      graph.NodeID
	Destination graph.NodeID
	Label       bool
}

// Config controls batch composition. The zero value asks for scale-free
// negative sampling with a 0.5 positive ratio, matching the defaults every
// embedding model trains with.
type Config struct {
	// BatchSize is the exact number of triples per batch. Required.
	BatchSize int
	// PositiveRatio is the expected fraction of positive triples. Zero means
	// the 0.5 default; use a tiny epsilon for an all-negative batch.
	PositiveRatio float64
	// AvoidSelfLoops rejects negative candidates with equal endpoints.
	AvoidSelfLoops bool
	// AvoidFalseNegatives rejects negative candidates that exist as edges in
	// the support graph. Slows sampling on dense graphs; see MaxAttempts.
	AvoidFalseNegatives bool
	// UniformNegatives draws negative endpoints uniformly over nodes instead
	// of the default scale-free draw (a random edge's endpoint, which biases
	// toward high-degree nodes the way the true degree distribution does).
	UniformNegatives bool
	// MaxAttempts bounds the rejection loop per negative slot so a complete
	// graph cannot spin forever. Zero means 10000; raise it for graphs dense
	// enough that valid negatives are rare but do exist.
	MaxAttempts int
	// Support is the graph consulted by AvoidFalseNegatives. Nil means the
	// sampled graph itself.
	Support *graph.Graph
	// GraphToAvoid optionally rejects negatives that appear as edges in a
	// second graph, typically the held-out test split, so evaluation edges
	// never leak into the negative pool.
	GraphToAvoid *graph.Graph
}

// Sampler draws mini-batches from one graph with one fixed configuration.
// Safe for concurrent use.
type Sampler struct {
	g   *graph.Graph
	cfg Config

	// negThreshold partitions the uint64 space: a slot whose mixed seed falls
	// at or below it becomes a negative sample.
	negThreshold uint64
}

func New(g *graph.Graph, cfg Config) (*Sampler, error) {
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("%w: %d", ErrBatchSize, cfg.BatchSize)
	}
	if g == nil || g.NumNodes() < 2 {
		return nil, ErrTooFewNodes
	}
	if g.NumEdges() == 0 {
		return nil, ErrNoEdges
	}
	if cfg.PositiveRatio == 0 {
		cfg.PositiveRatio = 0.5
	}
	if cfg.PositiveRatio < 0 || cfg.PositiveRatio > 1 || math.IsNaN(cfg.PositiveRatio) {
		return nil, fmt.Errorf("%w: %v", ErrPositiveRatio, cfg.PositiveRatio)
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Support == nil {
		cfg.Support = g
	}
	return &Sampler{
		g:            g,
		cfg:          cfg,
		negThreshold: uint64((1 - cfg.PositiveRatio) * float64(math.MaxUint64)),
	}, nil
}

// Sample starts a new batch. Batches with the same seed are identical;
// callers wanting fresh data advance the seed themselves (e.g. one seed per
// training step), which keeps every batch reproducible.
func (s *Sampler) Sample(seed uint64) *Batch {
	return &Batch{s: s, base: rng.SplitMix64(seed), n: s.cfg.BatchSize}
}

// Batch is one lazy batch of exactly BatchSize triples. Next may be called
// from several goroutines; an atomic cursor hands out each index exactly
// once.
type Batch struct {
	s    *Sampler
	base uint64
	n    int

	cursor atomic.Int64
	err    atomic.Pointer[error]
}

// Next returns the next triple. ok is false once the batch is exhausted or a
// slot failed; check Err to tell the two apart.
func (b *Batch) Next() (Triple, bool) {
	i := b.cursor.Add(1) - 1
	if int(i) >= b.n || b.err.Load() != nil {
		return Triple{}, false
	}
	t, err := b.s.triple(b.base, uint64(i))
	if err != nil {
		b.err.CompareAndSwap(nil, &err)
		return Triple{}, false
	}
	return t, true
}

// Err returns the first sampling failure, if any.
func (b *Batch) Err() error {
	if p := b.err.Load(); p != nil {
		return *p
	}
	return nil
}

// Collect drains the remainder of the batch into a slice.
func (b *Batch) Collect() ([]Triple, error) {
	out := make([]Triple, 0, b.n)
	for {
		t, ok := b.Next()
		if !ok {
			break
		}
		out = append(out, t)
	}
	return out, b.Err()
}

// triple deterministically computes slot i of a batch.
func (s *Sampler) triple(base, i uint64) (Triple, error) {
	state := rng.SplitMix64(base + i)
	if state > s.negThreshold {
		state = rng.SplitMix64(state)
		e := graph.EdgeID(rng.Uniform(uint64(s.g.NumEdges()), state))
		src, dst := s.g.EndpointsUnchecked(e)
		metrics.BatchTriplesTotal.WithLabelValues("positive").Inc()
		return Triple{Source: src, Destination: dst, Label: true}, nil
	}

	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		state = rng.SplitMix64(state)
		src := s.drawNode(state)
		dst := s.drawNode(state*2 + 1)

		if s.cfg.AvoidSelfLoops && src == dst ||
			s.cfg.AvoidFalseNegatives && s.cfg.Support.HasEdge(src, dst) ||
			s.cfg.GraphToAvoid != nil && s.cfg.GraphToAvoid.HasEdge(src, dst) {
			metrics.NegativeRejectionsTotal.Inc()
			continue
		}
		metrics.BatchTriplesTotal.WithLabelValues("negative").Inc()
		return Triple{Source: src, Destination: dst, Label: false}, nil
	}
	return Triple{}, fmt.Errorf("%w (%d attempts)", ErrMaxAttempts, s.cfg.MaxAttempts)
}

// drawNode draws one endpoint: uniformly over nodes, or scale-free by taking
// a uniformly drawn edge's endpoint, which reproduces the graph's degree
// distribution.
func (s *Sampler) drawNode(seed uint64) graph.NodeID {
	if s.cfg.UniformNegatives {
		return graph.NodeID(rng.Uniform(uint64(s.g.NumNodes()), seed))
	}
	e := graph.EdgeID(rng.Uniform(uint64(s.g.NumEdges()), seed))
	src, dst := s.g.EndpointsUnchecked(e)
	if rng.SplitMix64(seed)&1 == 0 {
		return src
	}
	return dst
}
