// Package parallel provides the fixed-size worker scheduling used by bulk
// operations: walk generation and batch collection partition their index
// space into contiguous chunks, one per worker, and join at the end.
//
// Workers write to disjoint regions of pre-sized output buffers, so no
// synchronization beyond the final join is needed.
package parallel

import (
	"fmt"
	"runtime"
	"sync"
)

// Workers normalizes a requested worker count: non-positive values mean "one
// per available CPU", and the count is never larger than the amount of work.
func Workers(requested, total int) int {
	w := requested
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	if w > total {
		w = total
	}
	if w < 1 {
		w = 1
	}
	return w
}

// RunRange splits [0, total) into one contiguous chunk per worker and runs fn
// on each chunk concurrently. fn receives the worker index and its half-open
// range. A panic inside a worker is recovered and returned as an error after
// all workers have joined, so no goroutine is leaked.
func RunRange(workers, total int, fn func(worker, lo, hi int)) error {
	if total == 0 {
		return nil
	}
	workers = Workers(workers, total)
	chunk := (total + workers - 1) / workers

	var wg sync.WaitGroup
	panics := make([]any, workers)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > total {
			hi = total
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panics[w] = r
				}
			}()
			fn(w, lo, hi)
		}(w, lo, hi)
	}
	wg.Wait()

	for _, r := range panics {
		if r != nil {
			return fmt.Errorf("parallel: worker panicked: %v", r)
		}
	}
	return nil
}
