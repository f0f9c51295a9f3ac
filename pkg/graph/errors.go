package graph

import (
	"errors"
	"fmt"
)

// Sentinel causes for structural errors detected at construction time.
var (
	ErrDuplicateEdge      = errors.New("duplicate edge")
	ErrDuplicateNode      = errors.New("duplicate node")
	ErrUnknownNode        = errors.New("edge references a node absent from the node list")
	ErrConflictingMirror  = errors.New("undirected edge provided in both directions with conflicting attributes")
	ErrMultigraphCollapse = errors.New("operation would collapse parallel typed edges of a multigraph")
	ErrEmptyGraph         = errors.New("graph has no nodes")
	ErrNotBijective       = errors.New("node mapping is not a bijection")
)

// StructuralError reports malformed input detected while building a graph.
// It always aborts the whole build; no partial graph is ever returned.
type StructuralError struct {
	Op  string // the construction step that failed, e.g. "add edge", "mirror"
	Err error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("graph: %s: %v", e.Op, e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }

func structural(op string, err error) error {
	return &StructuralError{Op: op, Err: err}
}

// QueryError reports an out-of-range identifier passed to a checked accessor.
// The unchecked accessors skip this validation and panic or read garbage when
// misused; they exist because per-step bounds checks are too expensive on the
// walk hot path.
type QueryError struct {
	Kind string // "node", "edge", "node type", "edge type"
	ID   uint64
	Max  uint64 // exclusive upper bound
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("graph: %s id %d out of range [0, %d)", e.Kind, e.ID, e.Max)
}
