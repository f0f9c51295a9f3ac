package walks

import (
	"fmt"
	"log/slog"

	"github.com/sanonone/graphwalk/internal/parallel"
	"github.com/sanonone/graphwalk/internal/rng"
	"github.com/sanonone/graphwalk/pkg/graph"
	"github.com/sanonone/graphwalk/pkg/metrics"
)

// Engine generates random walks over one graph with one validated parameter
// set. It holds no mutable state between calls: every call derives all
// randomness from the parameters' seed and the walk's global index, so walks
// are reproducible independently of worker scheduling.
type Engine struct {
	// Workers caps the number of concurrent workers. Zero means one per CPU.
	Workers int

	g *graph.Graph
	p *Parameters

	start, end graph.NodeID // resolved walk range
}

// NewEngine validates the parameters against the graph. Graph-independent
// invariants were already enforced by NewParameters; here the node range and
// the dense mapping are checked against the actual node count.
func NewEngine(g *graph.Graph, p *Parameters) (*Engine, error) {
	if g == nil || g.NumNodes() == 0 {
		return nil, confErr("graph", ErrEmptyGraph)
	}
	n := uint32(g.NumNodes())
	start, end := p.startNode, p.endNode
	if start == 0 && end == 0 {
		end = n
	}
	if end > n || start >= end {
		return nil, confErr("node range", fmt.Errorf("%w: [%d, %d) with %d nodes", ErrInvertedRange, start, end, n))
	}
	if p.denseNodeMapping != nil && len(p.denseNodeMapping) != g.NumNodes() {
		return nil, confErr("dense_node_mapping", fmt.Errorf("%w: got %d entries for %d nodes", ErrMappingSize, len(p.denseNodeMapping), g.NumNodes()))
	}
	return &Engine{g: g, p: p, start: graph.NodeID(start), end: graph.NodeID(end)}, nil
}

// WalkCount returns the number of walks one generation pass produces:
// one per (node in range, iteration) pair.
func (e *Engine) WalkCount() int {
	return int(e.end-e.start) * e.p.iterations
}

// Walks generates all walks, dropping those that terminated on a trap before
// reaching MinLength. Each returned walk is at least 1 and at most Length
// nodes long.
func (e *Engine) Walks() ([][]graph.NodeID, error) {
	count := e.WalkCount()
	buf := make([]graph.NodeID, count*e.p.length)
	lengths, err := e.WalksInto(buf)
	if err != nil {
		return nil, err
	}
	out := make([][]graph.NodeID, 0, count)
	for i, n := range lengths {
		if n >= e.p.minLength {
			out = append(out, buf[i*e.p.length:i*e.p.length+n])
		}
	}
	return out, nil
}

// WalksInto fills a caller-provided flat buffer of WalkCount()*Length node
// ids and returns the per-walk lengths. Walk i occupies the row
// buf[i*Length : (i+1)*Length]; entries past the returned length are
// untouched. The dense node mapping, when configured, is applied to every
// emitted id.
func (e *Engine) WalksInto(buf []graph.NodeID) ([]int, error) {
	count := e.WalkCount()
	if len(buf) != count*e.p.length {
		return nil, confErr("buffer", fmt.Errorf("%w: got %d, want %d", ErrBufferSize, len(buf), count*e.p.length))
	}

	firstOrder := e.p.IsFirstOrder() && !e.g.HasWeights()
	if firstOrder {
		slog.Debug("generating walks", "algorithm", "uniform first order", "walks", count)
	} else {
		slog.Debug("generating walks", "algorithm", "biased second order", "walks", count)
	}

	lengths := make([]int, count)
	err := parallel.RunRange(e.Workers, count, func(_, lo, hi int) {
		sc := newScratch(e.p.maxNeighbours)
		for i := lo; i < hi; i++ {
			node := e.start + graph.NodeID(i/e.p.iterations)
			walkSeed := rng.SplitMix64(e.p.seed + uint64(i))
			row := buf[i*e.p.length : (i+1)*e.p.length]
			var n int
			if firstOrder {
				n = e.uniformWalk(row, node, walkSeed)
			} else {
				n = e.biasedWalk(row, node, walkSeed, sc)
			}
			if e.p.denseNodeMapping != nil {
				for j := 0; j < n; j++ {
					row[j] = e.p.denseNodeMapping[row[j]]
				}
			}
			lengths[i] = n
		}
	})
	if err != nil {
		return nil, err
	}

	var steps, truncated int
	for _, n := range lengths {
		steps += n
		if n < e.p.length {
			truncated++
		}
	}
	metrics.WalksTotal.Add(float64(count))
	metrics.WalkStepsTotal.Add(float64(steps))
	metrics.TrapTerminationsTotal.Add(float64(truncated))
	return lengths, nil
}

// uniformWalk is the first-order fast path: every step samples uniformly from
// the current node's contiguous neighbour range.
func (e *Engine) uniformWalk(row []graph.NodeID, node graph.NodeID, seed uint64) int {
	row[0] = node
	cur := node
	for step := 1; step < e.p.length; step++ {
		if e.g.IsTrap(cur) {
			return step
		}
		lo, hi := e.g.NeighbourRange(cur)
		edge := lo + graph.EdgeID(rng.Uniform(uint64(hi-lo), rng.SplitMix64(seed+uint64(step))))
		cur = e.g.DestinationUnchecked(edge)
		row[step] = cur
	}
	return e.p.length
}

// biasedWalk is the second-order path. The first step has no previous node
// and uses the node transition; subsequent steps bias by the previous node's
// neighbourhood and the arrival edge type.
func (e *Engine) biasedWalk(row []graph.NodeID, node graph.NodeID, seed uint64, sc *scratch) int {
	row[0] = node
	if e.p.length == 1 || e.g.IsTrap(node) {
		return 1
	}

	cur, arrival := e.nodeStep(node, rng.SplitMix64(seed+1), sc)
	row[1] = cur

	prev := node
	for step := 2; step < e.p.length; step++ {
		if e.g.IsTrap(cur) {
			return step
		}
		next, edge := e.edgeStep(prev, cur, arrival, rng.SplitMix64(seed+uint64(step)), sc)
		row[step] = next
		prev, cur, arrival = cur, next, edge
	}
	return e.p.length
}
