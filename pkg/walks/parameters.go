// Package walks implements the random-walk generation engine: validated walk
// parameters, first-order (uniform) and second-order (Node2Vec-style biased)
// walks over a compressed graph, and the co-occurrence table derived from
// generated walks.
package walks

import (
	"errors"
	"fmt"
	"math"

	"github.com/sanonone/graphwalk/internal/rng"
	"github.com/sanonone/graphwalk/pkg/graph"
)

// defaultMaxNeighbours bounds the neighbour set considered per biased step
// when the caller does not choose a bound explicitly. Sampling from a random
// subset is an unbiased approximation that keeps per-step cost constant on
// hub nodes.
const defaultMaxNeighbours = 100

// Sentinel causes for configuration errors.
var (
	ErrZeroLength        = errors.New("walk length must be at least 1")
	ErrMinLength         = errors.New("minimum walk length must be smaller than the walk length")
	ErrZeroIterations    = errors.New("iterations must be a strictly positive integer")
	ErrInvalidWeight     = errors.New("walk weight is not a strictly positive finite number")
	ErrInvertedRange     = errors.New("start node must not exceed end node")
	ErrZeroMaxNeighbours = errors.New("max neighbours must be a strictly positive integer")
	ErrEmptyGraph        = errors.New("cannot walk a graph with zero nodes")
	ErrMappingSize       = errors.New("dense node mapping must cover every node")
	ErrBufferSize        = errors.New("output buffer does not match walk count times walk length")
)

// ConfigurationError reports an invalid walk configuration. It is always
// raised at construction time, never once walking has started.
type ConfigurationError struct {
	Param string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("walks: invalid %s: %v", e.Param, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func confErr(param string, err error) error {
	return &ConfigurationError{Param: param, Err: err}
}

// Weights holds the four Node2Vec-style bias weights. A weight of exactly 1
// is neutral; the zero value of a field is treated as "unset" and defaults
// to 1 during validation.
type Weights struct {
	// Return biases stepping back to the previous node (the inverse of the
	// classic p parameter): the unnormalized transition weight of the return
	// move is multiplied by 1/Return.
	Return float64 `yaml:"return_weight"`
	// Explore biases stepping to nodes not adjacent to the previous node
	// (the inverse of the classic q parameter).
	Explore float64 `yaml:"explore_weight"`
	// ChangeNodeType penalizes moving to a node of a different type.
	ChangeNodeType float64 `yaml:"change_node_type_weight"`
	// ChangeEdgeType penalizes traversing an edge type different from the
	// one used to arrive at the current node.
	ChangeEdgeType float64 `yaml:"change_edge_type_weight"`
}

// DefaultWeights returns the neutral parametrization, which yields a
// first-order walk.
func DefaultWeights() Weights {
	return Weights{Return: 1, Explore: 1, ChangeNodeType: 1, ChangeEdgeType: 1}
}

// IsFirstOrder reports whether all four weights are neutral, enabling the
// cheaper uniform sampling path.
func (w Weights) IsFirstOrder() bool {
	return w.Return == 1 && w.Explore == 1 && w.ChangeNodeType == 1 && w.ChangeEdgeType == 1
}

func validateWeight(name string, v float64) (float64, error) {
	if v == 0 {
		return 1, nil // unset
	}
	if v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, confErr(name, fmt.Errorf("%w: %v", ErrInvalidWeight, v))
	}
	return v, nil
}

// Config is the mutable form of the walk parameters, loadable from YAML.
// Zero values mean "use the default" wherever a default exists.
type Config struct {
	// Length is the maximal number of nodes per walk. Required, >= 1.
	Length int `yaml:"length"`
	// MinLength discards walks that terminated on a trap before reaching
	// this many nodes. Must be smaller than Length.
	MinLength int `yaml:"min_length"`
	// Iterations is how many walks are started from each node. Defaults to 1.
	Iterations int `yaml:"iterations"`

	Weights Weights `yaml:"weights"`

	// StartNode and EndNode restrict walking to the [StartNode, EndNode)
	// range of node ids. Both zero means the whole graph.
	StartNode uint32 `yaml:"start_node"`
	EndNode   uint32 `yaml:"end_node"`

	// Seed makes every walk bit-for-bit reproducible. Defaults to 42.
	Seed uint64 `yaml:"seed"`

	// MaxNeighbours bounds the neighbour subset considered per biased step.
	// nil uses the default (100); a negative value disables the bound and
	// considers every neighbour; zero is a configuration error.
	MaxNeighbours *int `yaml:"max_neighbours"`

	// NormalizeByDegree divides each candidate's transition weight by the
	// candidate's degree, damping hub attraction.
	NormalizeByDegree bool `yaml:"normalize_by_degree"`

	// DownsampleByDegree probabilistically skips high-degree central nodes
	// when deriving co-occurrence pairs from walks, countering hub
	// oversampling. It does not alter walk contents.
	DownsampleByDegree bool `yaml:"downsample_by_degree"`

	// DenseNodeMapping, when non-nil, remaps every emitted node id before it
	// is written to the output buffer, compacting ids for embedding-matrix
	// indexing. It must cover every node; injectivity is deliberately not
	// enforced (collapsing nodes onto one embedding row is permitted).
	DenseNodeMapping []graph.NodeID `yaml:"-"`
}

// Parameters is the validated, immutable walk configuration. All invariant
// violations surface in NewParameters; a Parameters value in hand is always
// safe to walk with.
type Parameters struct {
	length     int
	minLength  int
	iterations int
	weights    Weights

	startNode uint32
	endNode   uint32 // 0 with startNode 0 means the whole graph

	seed uint64 // pre-mixed

	maxNeighbours      int // 0 = unbounded
	normalizeByDegree  bool
	downsampleByDegree bool
	denseNodeMapping   []graph.NodeID
}

func NewParameters(cfg Config) (*Parameters, error) {
	if cfg.Length < 1 {
		return nil, confErr("length", fmt.Errorf("%w: %d", ErrZeroLength, cfg.Length))
	}
	if cfg.MinLength < 0 || cfg.MinLength >= cfg.Length {
		return nil, confErr("min_length", fmt.Errorf("%w: %d >= %d", ErrMinLength, cfg.MinLength, cfg.Length))
	}
	iterations := cfg.Iterations
	if iterations == 0 {
		iterations = 1
	}
	if iterations < 0 {
		return nil, confErr("iterations", fmt.Errorf("%w: %d", ErrZeroIterations, iterations))
	}
	if cfg.EndNode != 0 && cfg.StartNode > cfg.EndNode {
		return nil, confErr("start_node", fmt.Errorf("%w: [%d, %d)", ErrInvertedRange, cfg.StartNode, cfg.EndNode))
	}

	w := cfg.Weights
	var err error
	if w.Return, err = validateWeight("return_weight", w.Return); err != nil {
		return nil, err
	}
	if w.Explore, err = validateWeight("explore_weight", w.Explore); err != nil {
		return nil, err
	}
	if w.ChangeNodeType, err = validateWeight("change_node_type_weight", w.ChangeNodeType); err != nil {
		return nil, err
	}
	if w.ChangeEdgeType, err = validateWeight("change_edge_type_weight", w.ChangeEdgeType); err != nil {
		return nil, err
	}

	maxNeighbours := defaultMaxNeighbours
	if cfg.MaxNeighbours != nil {
		switch v := *cfg.MaxNeighbours; {
		case v == 0:
			return nil, confErr("max_neighbours", ErrZeroMaxNeighbours)
		case v < 0:
			maxNeighbours = 0 // explicit opt-out: consider every neighbour
		default:
			maxNeighbours = v
		}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = 42
	}

	return &Parameters{
		length:             cfg.Length,
		minLength:          cfg.MinLength,
		iterations:         iterations,
		weights:            w,
		startNode:          cfg.StartNode,
		endNode:            cfg.EndNode,
		seed:               rng.SplitMix64(seed),
		maxNeighbours:      maxNeighbours,
		normalizeByDegree:  cfg.NormalizeByDegree,
		downsampleByDegree: cfg.DownsampleByDegree,
		denseNodeMapping:   cfg.DenseNodeMapping,
	}, nil
}

func (p *Parameters) Length() int      { return p.length }
func (p *Parameters) MinLength() int   { return p.minLength }
func (p *Parameters) Iterations() int  { return p.iterations }
func (p *Parameters) Weights() Weights { return p.weights }
func (p *Parameters) Seed() uint64     { return p.seed }

// IsFirstOrder reports whether the parametrization describes a first-order
// walk (all biases neutral and no degree normalization), which selects the
// uniform sampling fast path.
func (p *Parameters) IsFirstOrder() bool {
	return p.weights.IsFirstOrder() && !p.normalizeByDegree
}
