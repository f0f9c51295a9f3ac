// Package graph implements the compact immutable graph representation used by
// the walk engine and the mini-batch sampler: string vocabularies mapping
// names to dense integer identifiers, and a CSR adjacency layout with optional
// per-edge weights and node/edge types.
//
// A Graph is built once through a Builder and never mutated afterwards, which
// is what allows it to be shared across worker goroutines without locking.
// Transformations (Remap, WithSelfLoops, Subgraph) always produce a new Graph.
package graph

// NodeID indexes the dense [0, N) node range. Sparse or original identifiers
// are never used internally; the node Vocabulary owns the translation.
type NodeID uint32

// EdgeID indexes the globally sorted-by-source edge list.
type EdgeID uint64

// NodeTypeID indexes the node-type vocabulary.
type NodeTypeID uint16

// EdgeTypeID indexes the edge-type vocabulary.
type EdgeTypeID uint16
