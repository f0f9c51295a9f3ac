package graph

import (
	"sort"
	"sync"
)

// Graph is the immutable CSR-style graph storage. All edges are stored as
// directed entries sorted by source, so the outbound edges of node i occupy
// the contiguous range [offsets[i], offsets[i+1]). Undirected graphs store a
// mirrored entry for every edge.
//
// The structure is built once by a Builder and then only read, billions of
// times, concurrently and without locks.
type Graph struct {
	directed bool

	// Parallel arrays of length NumEdges, sorted by sources.
	sources      []NodeID
	destinations []NodeID

	// offsets has length NumNodes+1. A node with offsets[i] == offsets[i+1]
	// is a trap (no outbound edges).
	offsets []EdgeID

	// Optional per-edge / per-node attributes. Nil when absent.
	weights   []float32
	edgeTypes []EdgeTypeID
	nodeTypes []NodeTypeID

	nodes         *Vocabulary[NodeID]
	nodeTypeVocab *Vocabulary[NodeTypeID]
	edgeTypeVocab *Vocabulary[EdgeTypeID]

	hasTraps bool

	// Lazily computed caches.
	multigraphOnce sync.Once
	multigraph     bool
}

func (g *Graph) NumNodes() int { return len(g.offsets) - 1 }

func (g *Graph) NumEdges() int { return len(g.sources) }

func (g *Graph) IsDirected() bool { return g.directed }

func (g *Graph) HasWeights() bool { return g.weights != nil }

func (g *Graph) HasEdgeTypes() bool { return g.edgeTypes != nil }

func (g *Graph) HasNodeTypes() bool { return g.nodeTypes != nil }

// HasTrapNodes reports whether any node has out-degree zero.
func (g *Graph) HasTrapNodes() bool { return g.hasTraps }

// Degree returns the out-degree of node. An out-of-range node is a programmer
// error and panics; IDs obtained from this graph are always in range.
func (g *Graph) Degree(node NodeID) int {
	return int(g.offsets[node+1] - g.offsets[node])
}

// IsTrap reports whether node has no outbound edges.
func (g *Graph) IsTrap(node NodeID) bool {
	return g.offsets[node] == g.offsets[node+1]
}

// NeighbourRange returns the half-open edge-id range [lo, hi) of node's
// outbound edges.
func (g *Graph) NeighbourRange(node NodeID) (lo, hi EdgeID) {
	return g.offsets[node], g.offsets[node+1]
}

// Neighbours returns the destinations of node's outbound edges as a view into
// the graph's storage: no allocation, sorted ascending, and valid for the
// lifetime of the graph. Callers must not modify it.
func (g *Graph) Neighbours(node NodeID) []NodeID {
	return g.destinations[g.offsets[node]:g.offsets[node+1]]
}

// HasEdge reports whether a directed edge src -> dst exists, by binary search
// within src's neighbour range.
func (g *Graph) HasEdge(src, dst NodeID) bool {
	if int(src) >= g.NumNodes() || int(dst) >= g.NumNodes() {
		return false
	}
	neigh := g.Neighbours(src)
	i := sort.Search(len(neigh), func(i int) bool { return neigh[i] >= dst })
	return i < len(neigh) && neigh[i] == dst
}

// EdgeIDRange returns the half-open edge-id range of the parallel edges
// src -> dst. For simple graphs the range has length one. ok is false when no
// such edge exists.
func (g *Graph) EdgeIDRange(src, dst NodeID) (lo, hi EdgeID, ok bool) {
	if int(src) >= g.NumNodes() {
		return 0, 0, false
	}
	neigh := g.Neighbours(src)
	base := g.offsets[src]
	i := sort.Search(len(neigh), func(i int) bool { return neigh[i] >= dst })
	if i == len(neigh) || neigh[i] != dst {
		return 0, 0, false
	}
	j := i
	for j < len(neigh) && neigh[j] == dst {
		j++
	}
	return base + EdgeID(i), base + EdgeID(j), true
}

// EdgeEndpoints returns the (source, destination) pair of edge e.
func (g *Graph) EdgeEndpoints(e EdgeID) (NodeID, NodeID, error) {
	if e >= EdgeID(len(g.sources)) {
		return 0, 0, &QueryError{Kind: "edge", ID: uint64(e), Max: uint64(len(g.sources))}
	}
	return g.sources[e], g.destinations[e], nil
}

// EdgeWeight returns the weight of edge e. ok is false when the graph carries
// no weights.
func (g *Graph) EdgeWeight(e EdgeID) (w float32, ok bool, err error) {
	if e >= EdgeID(len(g.sources)) {
		return 0, false, &QueryError{Kind: "edge", ID: uint64(e), Max: uint64(len(g.sources))}
	}
	if g.weights == nil {
		return 0, false, nil
	}
	return g.weights[e], true, nil
}

// EdgeType returns the type of edge e. ok is false when the graph carries no
// edge types.
func (g *Graph) EdgeType(e EdgeID) (t EdgeTypeID, ok bool, err error) {
	if e >= EdgeID(len(g.sources)) {
		return 0, false, &QueryError{Kind: "edge", ID: uint64(e), Max: uint64(len(g.sources))}
	}
	if g.edgeTypes == nil {
		return 0, false, nil
	}
	return g.edgeTypes[e], true, nil
}

// NodeType returns the type of node n. ok is false when the graph carries no
// node types.
func (g *Graph) NodeType(n NodeID) (t NodeTypeID, ok bool, err error) {
	if int(n) >= g.NumNodes() {
		return 0, false, &QueryError{Kind: "node", ID: uint64(n), Max: uint64(g.NumNodes())}
	}
	if g.nodeTypes == nil {
		return 0, false, nil
	}
	return g.nodeTypes[n], true, nil
}

// Unchecked accessors for the walk/sampling hot path. They assume the caller
// has already validated its identifiers (anything handed out by this graph
// is valid) and will read out of bounds if misused.

// WeightUnchecked returns the weight of edge e, or 1 for unweighted graphs.
func (g *Graph) WeightUnchecked(e EdgeID) float32 {
	if g.weights == nil {
		return 1
	}
	return g.weights[e]
}

// EdgeTypeUnchecked returns the type of edge e. Only meaningful when
// HasEdgeTypes is true.
func (g *Graph) EdgeTypeUnchecked(e EdgeID) EdgeTypeID { return g.edgeTypes[e] }

// NodeTypeUnchecked returns the type of node n. Only meaningful when
// HasNodeTypes is true.
func (g *Graph) NodeTypeUnchecked(n NodeID) NodeTypeID { return g.nodeTypes[n] }

// DestinationUnchecked returns the destination of edge e.
func (g *Graph) DestinationUnchecked(e EdgeID) NodeID { return g.destinations[e] }

// EndpointsUnchecked returns the endpoints of edge e without bounds checks.
func (g *Graph) EndpointsUnchecked(e EdgeID) (NodeID, NodeID) {
	return g.sources[e], g.destinations[e]
}

// Vocabulary helpers.

// NodeName returns the name of node id. Panics on out-of-range ids.
func (g *Graph) NodeName(id NodeID) string { return g.nodes.Name(id) }

// NodeByName returns the dense id of the named node.
func (g *Graph) NodeByName(name string) (NodeID, bool) { return g.nodes.Get(name) }

// EdgeTypeName returns the name of an edge type id.
func (g *Graph) EdgeTypeName(id EdgeTypeID) string { return g.edgeTypeVocab.Name(id) }

// NodeTypeName returns the name of a node type id.
func (g *Graph) NodeTypeName(id NodeTypeID) string { return g.nodeTypeVocab.Name(id) }

// NumEdgeTypes returns the number of distinct edge types, 0 when untyped.
func (g *Graph) NumEdgeTypes() int {
	if g.edgeTypeVocab == nil {
		return 0
	}
	return g.edgeTypeVocab.Len()
}

// NumNodeTypes returns the number of distinct node types, 0 when untyped.
func (g *Graph) NumNodeTypes() int {
	if g.nodeTypeVocab == nil {
		return 0
	}
	return g.nodeTypeVocab.Len()
}

// IsMultigraph reports whether the graph holds parallel edges with distinct
// types between the same node pair. Computed on first use and cached.
func (g *Graph) IsMultigraph() bool {
	g.multigraphOnce.Do(func() {
		if g.edgeTypes == nil {
			return
		}
		for i := 1; i < len(g.sources); i++ {
			if g.sources[i] == g.sources[i-1] &&
				g.destinations[i] == g.destinations[i-1] &&
				g.edgeTypes[i] != g.edgeTypes[i-1] {
				g.multigraph = true
				return
			}
		}
	})
	return g.multigraph
}

// DenseNodeMapping returns a total remapping of node ids such that every node
// touching at least one edge (as source or destination) is assigned a compact
// id in [0, dense); isolated nodes follow in [dense, NumNodes). The mapping is
// injective and is the one used to size embedding output buffers.
func (g *Graph) DenseNodeMapping() (mapping []NodeID, dense uint32) {
	n := g.NumNodes()
	mapping = make([]NodeID, n)
	seen := make([]bool, n)
	for i := range g.sources {
		seen[g.sources[i]] = true
		seen[g.destinations[i]] = true
	}
	var next NodeID
	for i, ok := range seen {
		if ok {
			mapping[i] = next
			next++
		}
	}
	dense = uint32(next)
	for i, ok := range seen {
		if !ok {
			mapping[i] = next
			next++
		}
	}
	return mapping, dense
}
