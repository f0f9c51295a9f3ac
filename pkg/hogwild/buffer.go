// Package hogwild provides the two shared-memory primitives used by
// embedding training loops:
//
//   - Buffer, a deliberately unsynchronized view over a flat float32 matrix
//     that many workers mutate concurrently (Hogwild-style training), and
//   - Accumulator, a compare-and-swap float accumulator that is exact under
//     contention, for the few places where exactness matters.
//
// The two types sit at opposite ends of the consistency/throughput trade and
// must not be confused: Buffer tolerates lost and stale updates, Accumulator
// guarantees exact sums at a higher per-update cost.
package hogwild

import (
	"errors"
	"fmt"
)

var ErrShape = errors.New("hogwild: data length does not match rows*cols")

// Buffer wraps a flat numeric matrix (typically nodes x embedding size) and
// hands out mutable views to concurrent workers WITHOUT any synchronization.
//
// This is not a synchronization primitive. Overlapping concurrent writes may
// interleave at the granularity of individual element stores, and readers
// must not rely on read-after-write visibility across goroutines. This is an
// accepted approximation: gradient-style numeric updates tolerate bounded
// staleness, and the alternative (locking per row) erases the throughput the
// training loop exists for. Workers that write disjoint row ranges observe no
// interference at all.
//
// The caller owns the underlying slice for the duration of a training call
// and must not resize it while workers hold views; doing so is a contract
// violation, not a recoverable error.
type Buffer struct {
	data []float32
	rows int
	cols int
}

// Wrap borrows data as a rows x cols matrix. The slice is not copied.
func Wrap(data []float32, rows, cols int) (*Buffer, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("%w: len %d, shape %dx%d", ErrShape, len(data), rows, cols)
	}
	return &Buffer{data: data, rows: rows, cols: cols}, nil
}

func (b *Buffer) Rows() int { return b.rows }
func (b *Buffer) Cols() int { return b.cols }

// Row returns the mutable row i. The view is unsynchronized; see the type
// documentation for the aliasing rules.
func (b *Buffer) Row(i int) []float32 {
	return b.data[i*b.cols : (i+1)*b.cols]
}

// Slice returns the mutable element range [lo, hi), crossing row boundaries.
// Used to hand each worker a disjoint region of the matrix.
func (b *Buffer) Slice(lo, hi int) []float32 {
	return b.data[lo:hi]
}

// Raw returns the whole backing slice.
func (b *Buffer) Raw() []float32 { return b.data }
