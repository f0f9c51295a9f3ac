package walks

import (
	"slices"

	"github.com/sanonone/graphwalk/internal/rng"
	"github.com/sanonone/graphwalk/pkg/graph"
)

// scratch holds the per-worker buffers reused across transition computations,
// keeping the hot path allocation-free once warmed up.
type scratch struct {
	weights []float64
	edges   []graph.EdgeID
	subset  []uint32
	visited *rng.BitSet
}

func newScratch(maxNeighbours int) *scratch {
	n := maxNeighbours
	if n == 0 {
		n = 64
	}
	return &scratch{
		weights: make([]float64, 0, n),
		edges:   make([]graph.EdgeID, 0, n),
		subset:  make([]uint32, 0, n),
		visited: rng.NewBitSet(256),
	}
}

// candidates fills sc.edges with the edge ids to consider for one step out of
// node: the full neighbour range, or a random bounded subset when the degree
// exceeds MaxNeighbours.
func (e *Engine) candidates(node graph.NodeID, seed uint64, sc *scratch) {
	lo, hi := e.g.NeighbourRange(node)
	deg := int(hi - lo)
	sc.edges = sc.edges[:0]
	if e.p.maxNeighbours > 0 && deg > e.p.maxNeighbours {
		sc.subset = rng.SampleUnique(uint32(deg), uint32(e.p.maxNeighbours), seed, sc.visited, sc.subset)
		for _, off := range sc.subset {
			sc.edges = append(sc.edges, lo+graph.EdgeID(off))
		}
		return
	}
	for edge := lo; edge < hi; edge++ {
		sc.edges = append(sc.edges, edge)
	}
}

// nodeStep performs the first transition of a biased walk, where no previous
// node exists yet: only edge weights, the node-type bias, and degree
// normalization apply.
func (e *Engine) nodeStep(cur graph.NodeID, seed uint64, sc *scratch) (graph.NodeID, graph.EdgeID) {
	e.candidates(cur, rng.Xorshift(seed), sc)
	sc.weights = sc.weights[:0]
	for _, edge := range sc.edges {
		c := e.g.DestinationUnchecked(edge)
		w := float64(e.g.WeightUnchecked(edge))
		w = e.applyNodeBiases(w, cur, c)
		sc.weights = append(sc.weights, w)
	}
	chosen := sc.edges[rng.SampleWeighted(sc.weights, seed)]
	return e.g.DestinationUnchecked(chosen), chosen
}

// edgeStep performs one second-order transition given the previous node, the
// current node and the edge used to arrive at it.
func (e *Engine) edgeStep(prev, cur graph.NodeID, arrival graph.EdgeID, seed uint64, sc *scratch) (graph.NodeID, graph.EdgeID) {
	e.candidates(cur, rng.Xorshift(seed), sc)

	prevNeigh := e.g.Neighbours(prev)
	var prevMin, prevMax graph.NodeID
	if len(prevNeigh) > 0 {
		prevMin, prevMax = prevNeigh[0], prevNeigh[len(prevNeigh)-1]
	}

	ww := e.p.weights
	typed := e.g.HasEdgeTypes() && ww.ChangeEdgeType != 1
	var arrivalType graph.EdgeTypeID
	if typed {
		arrivalType = e.g.EdgeTypeUnchecked(arrival)
	}

	sc.weights = sc.weights[:0]
	for _, edge := range sc.edges {
		c := e.g.DestinationUnchecked(edge)
		w := float64(e.g.WeightUnchecked(edge))
		w = e.applyNodeBiases(w, cur, c)

		if typed && e.g.EdgeTypeUnchecked(edge) != arrivalType {
			w /= ww.ChangeEdgeType
		}

		switch {
		case c == prev:
			// Return move.
			w /= ww.Return
		case e.isPreviousNeighbour(prevNeigh, prevMin, prevMax, c):
			// Common-neighbour move keeps weight 1x.
		default:
			// New-territory move.
			w /= ww.Explore
		}

		sc.weights = append(sc.weights, w)
	}
	chosen := sc.edges[rng.SampleWeighted(sc.weights, seed)]
	return e.g.DestinationUnchecked(chosen), chosen
}

// applyNodeBiases applies the biases that depend only on the candidate node:
// the node-type change penalty and degree normalization.
func (e *Engine) applyNodeBiases(w float64, cur, candidate graph.NodeID) float64 {
	if e.p.weights.ChangeNodeType != 1 && e.g.HasNodeTypes() {
		if e.g.NodeTypeUnchecked(candidate) != e.g.NodeTypeUnchecked(cur) {
			w /= e.p.weights.ChangeNodeType
		}
	}
	if e.p.normalizeByDegree {
		if d := e.g.Degree(candidate); d > 0 {
			w /= float64(d)
		}
	}
	return w
}

// isPreviousNeighbour checks whether c is adjacent to the previous node,
// using the min/max bounds of its sorted neighbour slice as a fast reject
// before the binary search.
func (e *Engine) isPreviousNeighbour(prevNeigh []graph.NodeID, prevMin, prevMax, c graph.NodeID) bool {
	if len(prevNeigh) == 0 || c < prevMin || c > prevMax {
		return false
	}
	_, found := slices.BinarySearch(prevNeigh, c)
	return found
}
