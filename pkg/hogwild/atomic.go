package hogwild

import (
	"math"
	"sync/atomic"
)

// Float32 is an atomic float32 emulated with a compare-and-swap retry loop
// over the value's bit pattern. Unlike Buffer writes, adds through Float32
// are never lost: under contention a worker re-reads and retries until its
// delta lands.
type Float32 struct {
	bits atomic.Uint32
}

func (f *Float32) Load() float32 {
	return math.Float32frombits(f.bits.Load())
}

func (f *Float32) Store(v float32) {
	f.bits.Store(math.Float32bits(v))
}

// Add atomically adds delta and returns the new value.
func (f *Float32) Add(delta float32) float32 {
	for {
		old := f.bits.Load()
		next := math.Float32frombits(old) + delta
		if f.bits.CompareAndSwap(old, math.Float32bits(next)) {
			return next
		}
	}
}

// Accumulator is a fixed-size table of atomic float32 cells. It backs the
// co-occurrence counting table, the one aggregation in the training pipeline
// that requires exact sums; the embedding hot path does not pay for it.
type Accumulator struct {
	cells []Float32
}

func NewAccumulator(n int) *Accumulator {
	return &Accumulator{cells: make([]Float32, n)}
}

func (a *Accumulator) Len() int { return len(a.cells) }

// Add atomically adds delta to cell i. Safe for any number of concurrent
// callers on any cells.
func (a *Accumulator) Add(i int, delta float32) {
	a.cells[i].Add(delta)
}

func (a *Accumulator) Load(i int) float32 {
	return a.cells[i].Load()
}

// Snapshot copies the current cell values. Concurrent adds during the copy
// land either before or after their cell is read; call it after workers have
// joined for an exact total.
func (a *Accumulator) Snapshot() []float32 {
	out := make([]float32, len(a.cells))
	for i := range a.cells {
		out[i] = a.cells[i].Load()
	}
	return out
}
