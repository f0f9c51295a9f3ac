package graph

import (
	"fmt"
	"slices"
)

// rebuild assembles a new graph from the given records, inheriting the
// attribute presence flags of src. Records need not be sorted.
func rebuild(src *Graph, records []edgeRecord, nodes *Vocabulary[NodeID],
	nodeTypes []NodeTypeID, ntv *Vocabulary[NodeTypeID], etv *Vocabulary[EdgeTypeID],
) *Graph {
	slices.SortFunc(records, func(a, c edgeRecord) int {
		if edgeRecordLess(a, c) {
			return -1
		}
		if edgeRecordLess(c, a) {
			return 1
		}
		return 0
	})

	g := &Graph{
		directed:      src.directed,
		sources:       make([]NodeID, len(records)),
		destinations:  make([]NodeID, len(records)),
		offsets:       make([]EdgeID, nodes.Len()+1),
		nodes:         nodes,
		nodeTypeVocab: ntv,
		edgeTypeVocab: etv,
		nodeTypes:     nodeTypes,
	}
	if src.weights != nil {
		g.weights = make([]float32, len(records))
	}
	if etv != nil {
		g.edgeTypes = make([]EdgeTypeID, len(records))
	}
	for i, rec := range records {
		g.sources[i] = rec.src
		g.destinations[i] = rec.dst
		if g.weights != nil {
			g.weights[i] = rec.weight
		}
		if g.edgeTypes != nil {
			g.edgeTypes[i] = rec.etype
		}
	}
	fillOffsets(g)
	return g
}

func (g *Graph) records() []edgeRecord {
	out := make([]edgeRecord, len(g.sources))
	for i := range g.sources {
		out[i] = edgeRecord{src: g.sources[i], dst: g.destinations[i], weight: g.WeightUnchecked(EdgeID(i))}
		if g.edgeTypes != nil {
			out[i].etype = g.edgeTypes[i]
		}
	}
	return out
}

// Remap returns a new graph whose node ids are permuted by the given
// bijection: node i of the receiver becomes node mapping[i]. The degree
// sequence and the (src, dst, weight, type) edge multiset are preserved.
// A mapping that is not a bijection over [0, NumNodes) is rejected.
func (g *Graph) Remap(mapping []NodeID) (*Graph, error) {
	n := g.NumNodes()
	if len(mapping) != n {
		return nil, structural("remap", fmt.Errorf("%w: mapping covers %d of %d nodes", ErrNotBijective, len(mapping), n))
	}
	inverse := make([]NodeID, n)
	seen := make([]bool, n)
	for old, next := range mapping {
		if int(next) >= n || seen[next] {
			return nil, structural("remap", fmt.Errorf("%w: id %d", ErrNotBijective, next))
		}
		seen[next] = true
		inverse[next] = NodeID(old)
	}

	nodes := NewVocabulary[NodeID]()
	for next := 0; next < n; next++ {
		nodes.Insert(g.nodes.Name(inverse[next]))
	}
	var nodeTypes []NodeTypeID
	if g.nodeTypes != nil {
		nodeTypes = make([]NodeTypeID, n)
		for next := 0; next < n; next++ {
			nodeTypes[next] = g.nodeTypes[inverse[next]]
		}
	}

	records := g.records()
	for i := range records {
		records[i].src = mapping[records[i].src]
		records[i].dst = mapping[records[i].dst]
	}
	return rebuild(g, records, nodes, nodeTypes, g.nodeTypeVocab, g.edgeTypeVocab), nil
}

// WithSelfLoops returns a new graph where every trap node gains a self-loop,
// producing a trap-free graph. weight is only used on weighted graphs;
// loopType names the edge type of the new loops and must be empty for untyped
// graphs and non-empty for typed ones.
func (g *Graph) WithSelfLoops(weight float32, loopType string) (*Graph, error) {
	if g.HasEdgeTypes() == (loopType == "") {
		return nil, structural("self loops", fmt.Errorf("loop type %q does not match graph typing", loopType))
	}
	etv := g.edgeTypeVocab
	var etype EdgeTypeID
	if loopType != "" {
		etv = etv.clone()
		etype = etv.Insert(loopType)
	}

	records := g.records()
	for i := NodeID(0); int(i) < g.NumNodes(); i++ {
		if !g.IsTrap(i) {
			continue
		}
		records = append(records, edgeRecord{src: i, dst: i, etype: etype, weight: weight})
	}
	return rebuild(g, records, g.nodes, g.nodeTypes, g.nodeTypeVocab, etv), nil
}

// Subgraph returns the subgraph induced by keep, with the kept nodes remapped
// to dense ids in keep order. Duplicate entries in keep are rejected.
func (g *Graph) Subgraph(keep []NodeID) (*Graph, error) {
	n := g.NumNodes()
	const absent = ^NodeID(0)
	lookup := make([]NodeID, n)
	for i := range lookup {
		lookup[i] = absent
	}
	nodes := NewVocabulary[NodeID]()
	var nodeTypes []NodeTypeID
	for next, old := range keep {
		if int(old) >= n {
			return nil, structural("subgraph", &QueryError{Kind: "node", ID: uint64(old), Max: uint64(n)})
		}
		if lookup[old] != absent {
			return nil, structural("subgraph", fmt.Errorf("%w: %q", ErrDuplicateNode, g.nodes.Name(old)))
		}
		lookup[old] = NodeID(next)
		nodes.Insert(g.nodes.Name(old))
		if g.nodeTypes != nil {
			nodeTypes = append(nodeTypes, g.nodeTypes[old])
		}
	}

	var records []edgeRecord
	for i := range g.sources {
		src, dst := lookup[g.sources[i]], lookup[g.destinations[i]]
		if src == absent || dst == absent {
			continue
		}
		rec := edgeRecord{src: src, dst: dst, weight: g.WeightUnchecked(EdgeID(i))}
		if g.edgeTypes != nil {
			rec.etype = g.edgeTypes[i]
		}
		records = append(records, rec)
	}
	return rebuild(g, records, nodes, nodeTypes, g.nodeTypeVocab, g.edgeTypeVocab), nil
}

// SetAllEdgeTypes returns a new graph whose every edge carries the single
// given type. On a multigraph this would silently collapse semantically
// distinct parallel edges, so it fails with ErrMultigraphCollapse instead.
func (g *Graph) SetAllEdgeTypes(name string) (*Graph, error) {
	if g.IsMultigraph() {
		return nil, structural("set all edge types", ErrMultigraphCollapse)
	}
	etv := NewVocabulary[EdgeTypeID]()
	etv.Insert(name)
	records := g.records()
	for i := range records {
		records[i].etype = 0
	}
	return rebuild(g, records, g.nodes, g.nodeTypes, g.nodeTypeVocab, etv), nil
}
