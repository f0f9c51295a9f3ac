// Package mmarray stores dense 2D numeric arrays in memory-mapped files, so
// embedding matrices larger than RAM can be trained in place and survive
// process restarts without a serialization step.
//
// The on-disk layout is a fixed 32-byte header followed by row-major cell
// data, either float32 or float16. The float32 view aliases the mapping
// directly, which is what makes in-place lock-free training work: writers
// touch the mapped bytes and the OS pages them out.
package mmarray

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"
	"unsafe"

	"github.com/cenkalti/backoff/v4"
	"github.com/edsrzf/mmap-go"
	"github.com/x448/float16"
)

// DType selects the per-cell storage format.
type DType uint8

const (
	Float32 DType = iota
	Float16
)

func (d DType) size() int {
	if d == Float16 {
		return 2
	}
	return 4
}

func (d DType) String() string {
	if d == Float16 {
		return "float16"
	}
	return "float32"
}

const (
	magic      = uint32(0x47574d41) // "GWMA"
	headerSize = 32
)

var (
	ErrShape      = errors.New("mmarray: rows and cols must be positive")
	ErrBadMagic   = errors.New("mmarray: file is not an mmarray file")
	ErrShapeMatch = errors.New("mmarray: file shape does not match requested shape")
	ErrDType      = errors.New("mmarray: file dtype does not match requested dtype")
	ErrTruncated  = errors.New("mmarray: file is shorter than its header claims")
	ErrWrongType  = errors.New("mmarray: view type does not match array dtype")
)

// Shape is the logical dimensions of an array.
type Shape struct {
	Rows int
	Cols int
}

func (s Shape) cells() int { return s.Rows * s.Cols }

// Array is one open memory-mapped array. Not safe for concurrent Close, but
// concurrent reads and writes through the views follow the same relaxed
// contract as an in-memory buffer: races on distinct cells are fine, races
// on one cell lose one of the writes.
type Array struct {
	f     *os.File
	m     mmap.MMap
	shape Shape
	dtype DType
}

// retryFS runs fn with a short exponential backoff. Mapping a freshly
// created file can fail transiently on network filesystems while the size
// change propagates.
func retryFS(fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second
	return backoff.Retry(fn, b)
}

// Create makes a new array file at path, truncating any existing file, and
// maps it. Cells start zeroed.
func Create(path string, shape Shape, dtype DType) (*Array, error) {
	if shape.Rows <= 0 || shape.Cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrShape, shape.Rows, shape.Cols)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mmarray: create %s: %w", path, err)
	}
	size := int64(headerSize + shape.cells()*dtype.size())
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("mmarray: size %s: %w", path, err)
	}

	var hdr [headerSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], magic)
	hdr[4] = byte(dtype)
	binary.LittleEndian.PutUint64(hdr[8:], uint64(shape.Rows))
	binary.LittleEndian.PutUint64(hdr[16:], uint64(shape.Cols))
	if _, err := f.WriteAt(hdr[:], 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("mmarray: header %s: %w", path, err)
	}

	a := &Array{f: f, shape: shape, dtype: dtype}
	if err := retryFS(func() error {
		m, err := mmap.Map(f, mmap.RDWR, 0)
		a.m = m
		return err
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("mmarray: map %s: %w", path, err)
	}
	return a, nil
}

// Open maps an existing array file and validates its header against the
// expected shape and dtype.
func Open(path string, shape Shape, dtype DType) (*Array, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("mmarray: open %s: %w", path, err)
	}
	a := &Array{f: f, shape: shape, dtype: dtype}
	if err := retryFS(func() error {
		m, err := mmap.Map(f, mmap.RDWR, 0)
		a.m = m
		return err
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("mmarray: map %s: %w", path, err)
	}
	if err := a.checkHeader(); err != nil {
		a.Close()
		return nil, fmt.Errorf("mmarray: open %s: %w", path, err)
	}
	return a, nil
}

func (a *Array) checkHeader() error {
	if len(a.m) < headerSize {
		return ErrTruncated
	}
	if binary.LittleEndian.Uint32(a.m[0:]) != magic {
		return ErrBadMagic
	}
	if DType(a.m[4]) != a.dtype {
		return ErrDType
	}
	rows := int(binary.LittleEndian.Uint64(a.m[8:]))
	cols := int(binary.LittleEndian.Uint64(a.m[16:]))
	if rows != a.shape.Rows || cols != a.shape.Cols {
		return fmt.Errorf("%w: file is %dx%d, want %dx%d", ErrShapeMatch, rows, cols, a.shape.Rows, a.shape.Cols)
	}
	if len(a.m) < headerSize+a.shape.cells()*a.dtype.size() {
		return ErrTruncated
	}
	return nil
}

func (a *Array) Shape() Shape { return a.shape }
func (a *Array) DType() DType { return a.dtype }

// Float32 returns the whole array as a flat row-major []float32 aliasing the
// mapping. Only valid for Float32 arrays.
func (a *Array) Float32() ([]float32, error) {
	if a.dtype != Float32 {
		return nil, ErrWrongType
	}
	p := unsafe.Pointer(&a.m[headerSize])
	return unsafe.Slice((*float32)(p), a.shape.cells()), nil
}

// Row returns one row of a Float32 array as a slice aliasing the mapping.
func (a *Array) Row(i int) ([]float32, error) {
	all, err := a.Float32()
	if err != nil {
		return nil, err
	}
	lo := i * a.shape.Cols
	return all[lo : lo+a.shape.Cols : lo+a.shape.Cols], nil
}

func (a *Array) cellOffset(row, col int) int {
	return headerSize + (row*a.shape.Cols+col)*a.dtype.size()
}

// Float16At reads one cell of a Float16 array, widened to float32.
func (a *Array) Float16At(row, col int) (float32, error) {
	if a.dtype != Float16 {
		return 0, ErrWrongType
	}
	off := a.cellOffset(row, col)
	return float16.Frombits(binary.LittleEndian.Uint16(a.m[off:])).Float32(), nil
}

// SetFloat16At writes one cell of a Float16 array, narrowing from float32.
func (a *Array) SetFloat16At(row, col int, v float32) error {
	if a.dtype != Float16 {
		return ErrWrongType
	}
	off := a.cellOffset(row, col)
	binary.LittleEndian.PutUint16(a.m[off:], float16.Fromfloat32(v).Bits())
	return nil
}

// Flush writes dirty pages back to disk.
func (a *Array) Flush() error {
	return a.m.Flush()
}

// Close flushes, unmaps and closes the file. The array and any views taken
// from it must not be used afterwards.
func (a *Array) Close() error {
	var first error
	if a.m != nil {
		if err := a.m.Flush(); err != nil {
			first = err
		}
		if err := a.m.Unmap(); err != nil && first == nil {
			first = err
		}
		a.m = nil
	}
	if a.f != nil {
		if err := a.f.Close(); err != nil && first == nil {
			first = err
		}
		a.f = nil
	}
	return first
}
