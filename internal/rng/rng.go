// Package rng provides the deterministic pseudo-random primitives shared by
// the walk engine and the mini-batch sampler.
//
// Everything here is a pure function of its seed argument: the same seed
// always yields the same draw, which is what makes walk generation and batch
// sampling bit-for-bit reproducible regardless of worker scheduling. State is
// advanced by explicitly re-mixing the seed (splitmix64 chains), never by
// hidden mutable generators.
package rng

import (
	"math/bits"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// SplitMix64 advances the splitmix64 sequence by one step.
func SplitMix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Xorshift is a cheaper scrambler used where a full splitmix step is overkill
// (e.g. deriving a second stream from an already-mixed seed).
func Xorshift(x uint64) uint64 {
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	return x
}

// Uniform returns a value in [0, n) derived from seed.
// Uses the multiply-shift reduction instead of modulo, which is both faster
// and free of modulo bias. n must be > 0.
func Uniform(n, seed uint64) uint64 {
	hi, _ := bits.Mul64(SplitMix64(seed), n)
	return hi
}

// Float64 returns a value in [0, 1) derived from seed.
func Float64(seed uint64) float64 {
	return float64(SplitMix64(seed)>>11) / (1 << 53)
}

// SampleWeighted draws an index proportionally to the given unnormalized
// weights. The slice is overwritten with its cumulative sums, so callers that
// reuse a scratch buffer must refill it before the next call. Weights must be
// non-negative with a positive total; len(weights) must be > 0.
func SampleWeighted(weights []float64, seed uint64) int {
	floats.CumSum(weights, weights)
	total := weights[len(weights)-1]
	r := Float64(seed) * total
	// Smallest index whose cumulative weight exceeds r.
	return sort.SearchFloat64s(weights, r)
}
