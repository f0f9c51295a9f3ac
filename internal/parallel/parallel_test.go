package parallel

import (
	"strings"
	"sync/atomic"
	"testing"
)

func TestWorkers(t *testing.T) {
	cases := []struct {
		requested, total, want int
	}{
		{4, 100, 4},
		{4, 2, 2},
		{-1, 1, 1},
		{8, 8, 8},
	}
	for _, c := range cases {
		if got := Workers(c.requested, c.total); got != c.want {
			t.Errorf("Workers(%d, %d) = %d, want %d", c.requested, c.total, got, c.want)
		}
	}
	if got := Workers(0, 1000); got < 1 {
		t.Errorf("Workers(0, 1000) = %d, want at least 1", got)
	}
}

func TestRunRangeCoversEveryIndexOnce(t *testing.T) {
	const total = 1000
	hits := make([]atomic.Int32, total)
	err := RunRange(7, total, func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			hits[i].Add(1)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := range hits {
		if n := hits[i].Load(); n != 1 {
			t.Fatalf("index %d visited %d times", i, n)
		}
	}
}

func TestRunRangeChunksAreDisjoint(t *testing.T) {
	const total = 37
	owner := make([]atomic.Int32, total)
	err := RunRange(5, total, func(w, lo, hi int) {
		for i := lo; i < hi; i++ {
			owner[i].Store(int32(w) + 1)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := range owner {
		if owner[i].Load() == 0 {
			t.Fatalf("index %d not assigned to any worker", i)
		}
	}
}

func TestRunRangeEmpty(t *testing.T) {
	called := false
	if err := RunRange(4, 0, func(_, _, _ int) { called = true }); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("fn called for an empty range")
	}
}

func TestRunRangePanicBecomesError(t *testing.T) {
	err := RunRange(3, 30, func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			if i == 15 {
				panic("boom at 15")
			}
		}
	})
	if err == nil {
		t.Fatal("expected an error from a panicking worker")
	}
	if !strings.Contains(err.Error(), "boom at 15") {
		t.Errorf("error does not carry the panic value: %v", err)
	}
}
