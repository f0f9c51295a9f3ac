package rng

import "slices"

// SampleUnique draws k distinct values from [0, n) uniformly and returns them
// sorted ascending. It uses Floyd's algorithm, so exactly k draws are made
// regardless of how close k is to n. The visited set and the out slice are
// provided by the caller so hot loops can reuse them per worker; out is
// appended to from length zero and returned, possibly regrown.
//
// If k >= n the full range is returned. k must be > 0.
func SampleUnique(n, k uint32, seed uint64, visited *BitSet, out []uint32) []uint32 {
	out = out[:0]
	if k >= n {
		for i := uint32(0); i < n; i++ {
			out = append(out, i)
		}
		return out
	}

	visited.Clear()
	visited.EnsureCapacity(n)

	for j := n - k; j < n; j++ {
		seed = SplitMix64(seed)
		t := uint32(Uniform(uint64(j)+1, seed))
		if visited.Has(t) {
			// t was already chosen; j itself is guaranteed fresh.
			t = j
		}
		visited.Add(t)
		out = append(out, t)
	}

	slices.Sort(out)
	return out
}
