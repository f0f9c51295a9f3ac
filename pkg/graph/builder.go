package graph

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/tidwall/btree"

	"github.com/sanonone/graphwalk/pkg/metrics"
)

// DuplicatePolicy selects what Build does when the same
// (source, destination, edge type) triple is inserted twice.
type DuplicatePolicy int

const (
	// DuplicateIsError aborts the build with ErrDuplicateEdge.
	DuplicateIsError DuplicatePolicy = iota
	// DuplicateIgnore silently keeps the first occurrence.
	DuplicateIgnore
)

// Config controls how a Builder assembles the graph.
type Config struct {
	// Directed selects directed storage. Undirected graphs get a mirrored
	// entry for every edge at build time.
	Directed bool
	// AllowMultigraph permits parallel edges with distinct edge types between
	// the same node pair.
	AllowMultigraph bool
	// Duplicates selects the deduplication policy.
	Duplicates DuplicatePolicy
}

// Edge is one parsed input edge. The CSV/TSV layer (external to this module)
// hands over already-validated tuples in this shape.
type Edge struct {
	Source      string
	Destination string
	// Type is the edge type name; empty for untyped graphs. Mixing typed and
	// untyped edges is a structural error.
	Type string
	// Weight is only read when HasWeight is set. Mixing weighted and
	// unweighted edges is a structural error.
	Weight    float32
	HasWeight bool
}

type edgeRecord struct {
	src, dst NodeID
	etype    EdgeTypeID
	weight   float32
}

func edgeRecordLess(a, b edgeRecord) bool {
	if a.src != b.src {
		return a.src < b.src
	}
	if a.dst != b.dst {
		return a.dst < b.dst
	}
	return a.etype < b.etype
}

// Builder accumulates nodes and edges and assembles an immutable Graph.
// Edges are kept in a B-tree keyed by (source, destination, type), which
// gives sorted iteration and O(log n) duplicate detection in one structure.
// A Builder is not safe for concurrent use; parallel parsers feed one builder
// through their own batching.
type Builder struct {
	cfg Config

	nodes         *Vocabulary[NodeID]
	nodeTypeVocab *Vocabulary[NodeTypeID]
	edgeTypeVocab *Vocabulary[EdgeTypeID]
	nodeTypes     []NodeTypeID

	// explicitNodes is set once AddNode has been used: from then on edges may
	// only reference declared nodes.
	explicitNodes bool

	tree *btree.BTreeG[edgeRecord]

	sawWeighted, sawUnweighted bool
	sawTyped, sawUntyped       bool
	sawTypedNode               bool
	sawUntypedNode             bool
}

func NewBuilder(cfg Config) *Builder {
	return &Builder{
		cfg:   cfg,
		nodes: NewVocabulary[NodeID](),
		tree:  btree.NewBTreeG(edgeRecordLess),
	}
}

// AddNode declares a node ahead of edge insertion. Once any node has been
// declared explicitly, edges referencing undeclared nodes are rejected.
// nodeType may be empty for untyped graphs.
func (b *Builder) AddNode(name, nodeType string) (NodeID, error) {
	b.explicitNodes = true
	id, err := b.nodes.InsertUnique(name)
	if err != nil {
		return 0, structural("add node", err)
	}
	if nodeType == "" {
		b.sawUntypedNode = true
		b.nodeTypes = append(b.nodeTypes, 0)
		return id, nil
	}
	b.sawTypedNode = true
	if b.nodeTypeVocab == nil {
		b.nodeTypeVocab = NewVocabulary[NodeTypeID]()
	}
	b.nodeTypes = append(b.nodeTypes, b.nodeTypeVocab.Insert(nodeType))
	return id, nil
}

// EnsureNodeCount declares n nodes with numeric names, for callers that hand
// over pre-resolved dense integer ids instead of names.
func (b *Builder) EnsureNodeCount(n uint32) {
	b.explicitNodes = true
	for uint32(b.nodes.Len()) < n {
		b.nodes.Insert(strconv.FormatUint(uint64(b.nodes.Len()), 10))
		b.sawUntypedNode = true
		b.nodeTypes = append(b.nodeTypes, 0)
	}
}

// AddEdge inserts one named edge. Unknown node names are discovered and
// assigned dense ids, unless nodes were declared explicitly, in which case an
// undeclared name is a structural error.
func (b *Builder) AddEdge(e Edge) error {
	src, err := b.resolveNode(e.Source)
	if err != nil {
		return err
	}
	dst, err := b.resolveNode(e.Destination)
	if err != nil {
		return err
	}
	var etype EdgeTypeID
	if e.Type != "" {
		b.sawTyped = true
		if b.edgeTypeVocab == nil {
			b.edgeTypeVocab = NewVocabulary[EdgeTypeID]()
		}
		etype = b.edgeTypeVocab.Insert(e.Type)
	} else {
		b.sawUntyped = true
	}
	w := float32(1)
	if e.HasWeight {
		b.sawWeighted = true
		if e.Weight <= 0 || e.Weight != e.Weight {
			return structural("add edge", fmt.Errorf("weight %v of edge %q -> %q is not a positive number", e.Weight, e.Source, e.Destination))
		}
		w = e.Weight
	} else {
		b.sawUnweighted = true
	}
	return b.insert(edgeRecord{src: src, dst: dst, etype: etype, weight: w})
}

// AddEdgeIDs inserts one edge by pre-resolved dense node ids. The nodes must
// already be declared (AddNode or EnsureNodeCount).
func (b *Builder) AddEdgeIDs(src, dst NodeID, typeName string, weight float32, hasWeight bool) error {
	n := uint32(b.nodes.Len())
	if uint32(src) >= n || uint32(dst) >= n {
		return structural("add edge", fmt.Errorf("%w: edge (%d, %d) with %d declared nodes", ErrUnknownNode, src, dst, n))
	}
	name := func(id NodeID) string { return b.nodes.Name(id) }
	return b.AddEdge(Edge{
		Source: name(src), Destination: name(dst),
		Type: typeName, Weight: weight, HasWeight: hasWeight,
	})
}

func (b *Builder) resolveNode(name string) (NodeID, error) {
	if b.explicitNodes {
		id, ok := b.nodes.Get(name)
		if !ok {
			return 0, structural("add edge", fmt.Errorf("%w: %q", ErrUnknownNode, name))
		}
		return id, nil
	}
	return b.nodes.Insert(name), nil
}

func (b *Builder) insert(rec edgeRecord) error {
	if _, ok := b.tree.Get(rec); ok {
		if b.cfg.Duplicates == DuplicateIgnore {
			return nil
		}
		return structural("add edge", fmt.Errorf("%w: (%s, %s, type %d)",
			ErrDuplicateEdge, b.nodes.Name(rec.src), b.nodes.Name(rec.dst), rec.etype))
	}
	if !b.cfg.AllowMultigraph {
		// Any record sharing (src, dst) but holding a different type would
		// make this a multigraph.
		conflict := false
		b.tree.Ascend(edgeRecord{src: rec.src, dst: rec.dst}, func(it edgeRecord) bool {
			conflict = it.src == rec.src && it.dst == rec.dst
			return false
		})
		if conflict {
			return structural("add edge", fmt.Errorf(
				"parallel typed edge (%s, %s) requires AllowMultigraph",
				b.nodes.Name(rec.src), b.nodes.Name(rec.dst)))
		}
	}
	b.tree.Set(rec)
	return nil
}

// Build assembles the graph. Any malformed input surfaces here as a
// StructuralError; no partial graph is ever returned.
func (b *Builder) Build() (*Graph, error) {
	if b.nodes.Len() == 0 {
		return nil, structural("build", ErrEmptyGraph)
	}
	if b.sawWeighted && b.sawUnweighted {
		return nil, structural("build", fmt.Errorf("mix of weighted and unweighted edges"))
	}
	if b.sawTyped && b.sawUntyped {
		return nil, structural("build", fmt.Errorf("mix of typed and untyped edges"))
	}
	if b.sawTypedNode && b.sawUntypedNode {
		return nil, structural("build", fmt.Errorf("mix of typed and untyped nodes"))
	}

	records := make([]edgeRecord, 0, b.tree.Len())
	b.tree.Scan(func(it edgeRecord) bool {
		records = append(records, it)
		return true
	})

	if !b.cfg.Directed {
		mirrored, err := b.mirror(records)
		if err != nil {
			return nil, err
		}
		records = mirrored
	}

	n := b.nodes.Len()
	g := &Graph{
		directed:      b.cfg.Directed,
		sources:       make([]NodeID, len(records)),
		destinations:  make([]NodeID, len(records)),
		offsets:       make([]EdgeID, n+1),
		nodes:         b.nodes,
		nodeTypeVocab: b.nodeTypeVocab,
		edgeTypeVocab: b.edgeTypeVocab,
	}
	if b.sawWeighted {
		g.weights = make([]float32, len(records))
	}
	if b.sawTyped {
		g.edgeTypes = make([]EdgeTypeID, len(records))
	}
	if b.sawTypedNode {
		g.nodeTypes = b.nodeTypes
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

	metrics.GraphNodes.Set(float64(g.NumNodes()))
	metrics.GraphEdges.Set(float64(g.NumEdges()))
	slog.Debug("graph built",
		"nodes", g.NumNodes(),
		"edges", g.NumEdges(),
		"directed", g.directed,
		"traps", g.hasTraps,
	)
	return g, nil
}

// mirror adds the reverse entry of every undirected edge. Edges supplied in
// both directions must agree on weight; self-loops are stored once.
func (b *Builder) mirror(records []edgeRecord) ([]edgeRecord, error) {
	out := records
	for _, rec := range records {
		if rec.src == rec.dst {
			continue
		}
		rev := edgeRecord{src: rec.dst, dst: rec.src, etype: rec.etype}
		if existing, ok := b.tree.Get(rev); ok {
			if existing.weight != rec.weight {
				return nil, structural("mirror", fmt.Errorf("%w: (%s, %s)",
					ErrConflictingMirror, b.nodes.Name(rec.src), b.nodes.Name(rec.dst)))
			}
			continue // the caller already supplied both directions
		}
		rev.weight = rec.weight
		out = append(out, rev)
	}
	slices.SortFunc(out, func(a, c edgeRecord) int {
		if edgeRecordLess(a, c) {
			return -1
		}
		if edgeRecordLess(c, a) {
			return 1
		}
		return 0
	})
	return out, nil
}

// fillOffsets computes the CSR offsets in a single pass, filling forward gaps
// so that every trap node t ends with offsets[t] == offsets[t+1].
func fillOffsets(g *Graph) {
	n := NodeID(g.NumNodes())
	var cur NodeID
	for i, src := range g.sources {
		for cur <= src {
			g.offsets[cur] = EdgeID(i)
			cur++
		}
	}
	for cur <= n {
		g.offsets[cur] = EdgeID(len(g.sources))
		cur++
	}
	for i := NodeID(0); i < n; i++ {
		if g.offsets[i] == g.offsets[i+1] {
			g.hasTraps = true
			break
		}
	}
}

// FromEdges is a convenience wrapper building a graph straight from an edge
// slice with node discovery.
func FromEdges(edges []Edge, cfg Config) (*Graph, error) {
	b := NewBuilder(cfg)
	for _, e := range edges {
		if err := b.AddEdge(e); err != nil {
			return nil, err
		}
	}
	return b.Build()
}
