package walks

import (
	"errors"
	"math"
	"math/bits"
	"sync/atomic"

	"github.com/sanonone/graphwalk/internal/parallel"
	"github.com/sanonone/graphwalk/internal/rng"
	"github.com/sanonone/graphwalk/pkg/graph"
	"github.com/sanonone/graphwalk/pkg/hogwild"
)

var ErrWindowSize = errors.New("window size must be at least 1")

// CooccurrenceEntry is one cell of the co-occurrence matrix: how often
// Context appeared within the window around Source, as a frequency
// normalized over the whole table.
type CooccurrenceEntry struct {
	Source    graph.NodeID
	Context   graph.NodeID
	Frequency float64
}

// cooccurrenceTable is a lock-free open-addressing hash table from
// (source, context) pairs to exact float accumulators. Keys are claimed with
// compare-and-swap; values go through a hogwild.Accumulator so concurrent
// counts are never lost. The table is sized for the worst-case number of
// distinct pairs up front, so insertion can never fail mid-count.
type cooccurrenceTable struct {
	keys []atomic.Uint64 // packed pair + 1; 0 marks an empty slot
	vals *hogwild.Accumulator
	mask uint64
}

func newCooccurrenceTable(maxPairs int) *cooccurrenceTable {
	size := 1 << bits.Len(uint(maxPairs)*2)
	return &cooccurrenceTable{
		keys: make([]atomic.Uint64, size),
		vals: hogwild.NewAccumulator(size),
		mask: uint64(size - 1),
	}
}

func packPair(src, ctx graph.NodeID) uint64 {
	return uint64(src)<<32 | uint64(ctx)
}

func (t *cooccurrenceTable) add(src, ctx graph.NodeID, w float32) {
	key := packPair(src, ctx) + 1
	i := rng.SplitMix64(key) & t.mask
	for {
		switch k := t.keys[i].Load(); k {
		case key:
			t.vals.Add(int(i), w)
			return
		case 0:
			if t.keys[i].CompareAndSwap(0, key) {
				t.vals.Add(int(i), w)
				return
			}
			// Lost the claim race; re-read the slot.
		default:
			i = (i + 1) & t.mask
		}
	}
}

// Cooccurrence generates walks with the engine's parameters and reduces them
// to the exact co-occurrence frequency table used by GloVe-style models:
// every pair of nodes appearing within windowSize positions of each other in
// a walk contributes one count, and counts are normalized to frequencies over
// the whole table.
//
// When the engine's parameters enable DownsampleByDegree, a central position
// holding a node of degree d is skipped with probability 1 - 1/sqrt(d),
// countering the oversampling of hubs in the generated walks. The skip draws
// derive from the walk seed, so the table stays reproducible.
func (e *Engine) Cooccurrence(windowSize int) ([]CooccurrenceEntry, error) {
	if windowSize < 1 {
		return nil, confErr("window_size", ErrWindowSize)
	}
	if e.p.downsampleByDegree && e.p.denseNodeMapping != nil {
		// Degrees are looked up by emitted id, which a dense mapping rewrites.
		return nil, confErr("downsample_by_degree", errors.New("cannot be combined with a dense node mapping"))
	}
	walks, err := e.Walks()
	if err != nil {
		return nil, err
	}

	var positions int
	for _, w := range walks {
		positions += len(w)
	}
	table := newCooccurrenceTable(positions * 2 * windowSize)

	err = parallel.RunRange(e.Workers, len(walks), func(_, lo, hi int) {
		for wi := lo; wi < hi; wi++ {
			walk := walks[wi]
			skipSeed := rng.SplitMix64(e.p.seed ^ (uint64(wi) << 17))
			for i, center := range walk {
				if e.p.downsampleByDegree {
					skipSeed = rng.SplitMix64(skipSeed)
					d := e.g.Degree(center)
					if d > 1 && rng.Float64(skipSeed) > 1/math.Sqrt(float64(d)) {
						continue
					}
				}
				lo := i - windowSize
				if lo < 0 {
					lo = 0
				}
				hi := i + windowSize + 1
				if hi > len(walk) {
					hi = len(walk)
				}
				for j := lo; j < hi; j++ {
					if j == i {
						continue
					}
					table.add(center, walk[j], 1)
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}

	var total float64
	counts := table.vals.Snapshot()
	for i := range table.keys {
		if table.keys[i].Load() != 0 {
			total += float64(counts[i])
		}
	}
	if total == 0 {
		return nil, nil
	}

	entries := make([]CooccurrenceEntry, 0, len(walks))
	for i := range table.keys {
		k := table.keys[i].Load()
		if k == 0 {
			continue
		}
		packed := k - 1
		entries = append(entries, CooccurrenceEntry{
			Source:    graph.NodeID(packed >> 32),
			Context:   graph.NodeID(packed & 0xFFFFFFFF),
			Frequency: float64(counts[i]) / total,
		})
	}
	return entries, nil
}
