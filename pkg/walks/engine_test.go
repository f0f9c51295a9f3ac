package walks

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sanonone/graphwalk/pkg/graph"
)

// cycleGraph builds the directed cycle 0 -> 1 -> ... -> n-1 -> 0.
func cycleGraph(t *testing.T, n uint32) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder(graph.Config{Directed: true})
	b.EnsureNodeCount(n)
	for i := uint32(0); i < n; i++ {
		if err := b.AddEdgeIDs(graph.NodeID(i), graph.NodeID((i+1)%n), "", 0, false); err != nil {
			t.Fatal(err)
		}
	}
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// starGraph builds a directed star: node 0 points at nodes 1..leaves.
func starGraph(t *testing.T, leaves uint32) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder(graph.Config{Directed: true})
	b.EnsureNodeCount(leaves + 1)
	for i := uint32(1); i <= leaves; i++ {
		if err := b.AddEdgeIDs(0, graph.NodeID(i), "", 0, false); err != nil {
			t.Fatal(err)
		}
	}
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// triangleGraph builds the undirected complete graph on 3 nodes.
func triangleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder(graph.Config{})
	b.EnsureNodeCount(3)
	for _, e := range [][2]graph.NodeID{{0, 1}, {1, 2}, {0, 2}} {
		if err := b.AddEdgeIDs(e[0], e[1], "", 0, false); err != nil {
			t.Fatal(err)
		}
	}
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func mustParams(t *testing.T, cfg Config) *Parameters {
	t.Helper()
	p, err := NewParameters(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func mustEngine(t *testing.T, g *graph.Graph, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(g, mustParams(t, cfg))
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestNewEngineValidation(t *testing.T) {
	g := cycleGraph(t, 4)

	if _, err := NewEngine(nil, mustParams(t, Config{Length: 5})); !errors.Is(err, ErrEmptyGraph) {
		t.Errorf("nil graph: got %v", err)
	}
	if _, err := NewEngine(g, mustParams(t, Config{Length: 5, StartNode: 2, EndNode: 9})); !errors.Is(err, ErrInvertedRange) {
		t.Errorf("range past the node count: got %v", err)
	}
	if _, err := NewEngine(g, mustParams(t, Config{Length: 5, StartNode: 3, EndNode: 3})); !errors.Is(err, ErrInvertedRange) {
		t.Errorf("empty range: got %v", err)
	}
	if _, err := NewEngine(g, mustParams(t, Config{Length: 5, DenseNodeMapping: []graph.NodeID{0, 1}})); !errors.Is(err, ErrMappingSize) {
		t.Errorf("short mapping: got %v", err)
	}
}

func TestWalkCount(t *testing.T) {
	g := cycleGraph(t, 4)
	if got := mustEngine(t, g, Config{Length: 5, Iterations: 3}).WalkCount(); got != 12 {
		t.Errorf("WalkCount() = %d, want 12", got)
	}
	if got := mustEngine(t, g, Config{Length: 5, StartNode: 1, EndNode: 3}).WalkCount(); got != 2 {
		t.Errorf("restricted WalkCount() = %d, want 2", got)
	}
}

func TestWalksFollowTheCycle(t *testing.T) {
	// Every node of a directed cycle has exactly one outbound edge, so the
	// walks are fully determined.
	const n = 4
	g := cycleGraph(t, n)
	walks, err := mustEngine(t, g, Config{Length: 5}).Walks()
	if err != nil {
		t.Fatal(err)
	}
	if len(walks) != n {
		t.Fatalf("got %d walks, want %d", len(walks), n)
	}
	for start, w := range walks {
		if len(w) != 5 {
			t.Fatalf("walk %d has length %d, want 5", start, len(w))
		}
		for step, node := range w {
			if want := graph.NodeID((start + step) % n); node != want {
				t.Fatalf("walk %d = %v, want steps around the cycle", start, w)
			}
		}
	}
}

func TestWalksStopAtTraps(t *testing.T) {
	b := graph.NewBuilder(graph.Config{Directed: true})
	b.EnsureNodeCount(2)
	if err := b.AddEdgeIDs(0, 1, "", 0, false); err != nil {
		t.Fatal(err)
	}
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	// Without a minimum, the walk starting on the trap survives as [1].
	walks, err := mustEngine(t, g, Config{Length: 5}).Walks()
	if err != nil {
		t.Fatal(err)
	}
	if len(walks) != 2 || len(walks[0]) != 2 || len(walks[1]) != 1 {
		t.Fatalf("walks = %v, want [0 1] and [1]", walks)
	}

	// MinLength filters it out.
	walks, err = mustEngine(t, g, Config{Length: 5, MinLength: 2}).Walks()
	if err != nil {
		t.Fatal(err)
	}
	if len(walks) != 1 || len(walks[0]) != 2 {
		t.Fatalf("filtered walks = %v, want only [0 1]", walks)
	}
}

func TestSingleTrapNodeGraph(t *testing.T) {
	b := graph.NewBuilder(graph.Config{Directed: true})
	b.EnsureNodeCount(1)
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if g.Degree(0) != 0 || !g.IsTrap(0) {
		t.Fatal("single edgeless node must be a trap")
	}

	walks, err := mustEngine(t, g, Config{Length: 10}).Walks()
	if err != nil {
		t.Fatal(err)
	}
	if len(walks) != 1 || len(walks[0]) != 1 || walks[0][0] != 0 {
		t.Fatalf("walks = %v, want a single [0]", walks)
	}
}

func TestLengthOneWalksOnBothPaths(t *testing.T) {
	// Length 1 walks are just the start nodes, whatever the biasing. The
	// biased path must not look one step ahead.
	g := triangleGraph(t)
	cases := map[string]Config{
		"first order": {Length: 1},
		"biased":      {Length: 1, Weights: Weights{Return: 2, Explore: 0.5, ChangeNodeType: 1, ChangeEdgeType: 1}},
		"normalized":  {Length: 1, NormalizeByDegree: true},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			walks, err := mustEngine(t, g, cfg).Walks()
			if err != nil {
				t.Fatal(err)
			}
			if len(walks) != 3 {
				t.Fatalf("got %d walks, want 3", len(walks))
			}
			for start, w := range walks {
				if len(w) != 1 || w[0] != graph.NodeID(start) {
					t.Errorf("walk %d = %v, want [%d]", start, w, start)
				}
			}
		})
	}
}

func TestWalksDeterministicAcrossWorkers(t *testing.T) {
	g := starGraph(t, 20)
	cfg := Config{Length: 2, Iterations: 50, Seed: 99, StartNode: 0, EndNode: 1}

	run := func(workers int) []graph.NodeID {
		e := mustEngine(t, g, cfg)
		e.Workers = workers
		buf := make([]graph.NodeID, e.WalkCount()*2)
		if _, err := e.WalksInto(buf); err != nil {
			t.Fatal(err)
		}
		return buf
	}

	one := run(1)
	eight := run(8)
	for i := range one {
		if one[i] != eight[i] {
			t.Fatalf("walks diverge at position %d with different worker counts", i)
		}
	}
}

func TestWalksDifferentSeedsDiffer(t *testing.T) {
	g := starGraph(t, 50)
	collect := func(seed uint64) []graph.NodeID {
		e := mustEngine(t, g, Config{Length: 2, Iterations: 100, Seed: seed, StartNode: 0, EndNode: 1})
		buf := make([]graph.NodeID, e.WalkCount()*2)
		if _, err := e.WalksInto(buf); err != nil {
			t.Fatal(err)
		}
		return buf
	}
	a, b := collect(1), collect(2)
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical walks")
	}
}

func TestWalksIntoRejectsWrongBuffer(t *testing.T) {
	e := mustEngine(t, cycleGraph(t, 4), Config{Length: 5})
	if _, err := e.WalksInto(make([]graph.NodeID, 3)); !errors.Is(err, ErrBufferSize) {
		t.Fatalf("got %v, want ErrBufferSize", err)
	}
}

func TestWalksApplyDenseMapping(t *testing.T) {
	g := cycleGraph(t, 3)
	mapping := []graph.NodeID{10, 11, 12}
	walks, err := mustEngine(t, g, Config{Length: 4, DenseNodeMapping: mapping}).Walks()
	if err != nil {
		t.Fatal(err)
	}
	for _, w := range walks {
		for _, node := range w {
			if node < 10 || node > 12 {
				t.Fatalf("mapping not applied: %v", w)
			}
		}
	}
}

// checkUniform applies a chi-squared goodness-of-fit test against the uniform
// distribution over k categories.
func checkUniform(t *testing.T, counts []int, draws int) {
	t.Helper()
	k := len(counts)
	expected := float64(draws) / float64(k)
	var stat float64
	for _, c := range counts {
		d := float64(c) - expected
		stat += d * d / expected
	}
	dist := distuv.ChiSquared{K: float64(k - 1)}
	if p := dist.Survival(stat); p < 1e-4 {
		t.Errorf("draws are not uniform: chi2 = %.2f over %d categories, p = %g", stat, k, p)
	}
}

func TestUniformWalkIsUniform(t *testing.T) {
	const leaves = 8
	const iterations = 10000
	g := starGraph(t, leaves)
	walks, err := mustEngine(t, g, Config{
		Length: 2, Iterations: iterations, StartNode: 0, EndNode: 1,
	}).Walks()
	if err != nil {
		t.Fatal(err)
	}

	counts := make([]int, leaves)
	for _, w := range walks {
		counts[w[1]-1]++
	}
	checkUniform(t, counts, iterations)
}

func TestBiasedWalkNeutralWeightsStayUniform(t *testing.T) {
	// Degree normalization forces the biased path; on a star the leaves all
	// have degree zero, so the draw must still be uniform.
	const leaves = 8
	const iterations = 10000
	g := starGraph(t, leaves)
	walks, err := mustEngine(t, g, Config{
		Length: 2, Iterations: iterations, StartNode: 0, EndNode: 1,
		NormalizeByDegree: true,
	}).Walks()
	if err != nil {
		t.Fatal(err)
	}

	counts := make([]int, leaves)
	for _, w := range walks {
		counts[w[1]-1]++
	}
	checkUniform(t, counts, iterations)
}

// returnRatio walks the triangle and reports the fraction of steps that went
// straight back to the node visited two steps earlier.
func returnRatio(t *testing.T, cfg Config) float64 {
	t.Helper()
	walks, err := mustEngine(t, triangleGraph(t), cfg).Walks()
	if err != nil {
		t.Fatal(err)
	}
	var returns, steps int
	for _, w := range walks {
		for i := 2; i < len(w); i++ {
			steps++
			if w[i] == w[i-2] {
				returns++
			}
		}
	}
	if steps == 0 {
		t.Fatal("no comparable steps generated")
	}
	return float64(returns) / float64(steps)
}

func TestReturnWeightDiscouragesBacktracking(t *testing.T) {
	base := Config{Length: 20, Iterations: 200, Seed: 7}

	// First order: both neighbours equally likely, so roughly half the steps
	// backtrack.
	uniform := returnRatio(t, base)
	if uniform < 0.4 || uniform > 0.6 {
		t.Errorf("first-order return ratio = %.3f, want about 0.5", uniform)
	}

	// A large return weight divides the backtracking move's weight by 100.
	biased := base
	biased.Weights = Weights{Return: 100, Explore: 1, ChangeNodeType: 1, ChangeEdgeType: 1}
	ratio := returnRatio(t, biased)
	if ratio >= 0.05 {
		t.Errorf("biased return ratio = %.3f, want below 0.05", ratio)
	}
	if ratio == 0 {
		t.Error("backtracking should be rare, not impossible")
	}
}

func TestExploreWeightPinsWalkToNeighbourhood(t *testing.T) {
	// Path graph 0 - 1 - 2 - 3 (undirected). Starting at 1, a huge explore
	// weight makes leaving the previous node's neighbourhood unlikely; on a
	// path every forward move is new territory, so the walk oscillates.
	b := graph.NewBuilder(graph.Config{})
	b.EnsureNodeCount(4)
	for _, e := range [][2]graph.NodeID{{0, 1}, {1, 2}, {2, 3}} {
		if err := b.AddEdgeIDs(e[0], e[1], "", 0, false); err != nil {
			t.Fatal(err)
		}
	}
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	walks, err := mustEngine(t, g, Config{
		Length: 30, Iterations: 100, Seed: 3, StartNode: 1, EndNode: 2,
		Weights: Weights{Return: 1, Explore: 1000, ChangeNodeType: 1, ChangeEdgeType: 1},
	}).Walks()
	if err != nil {
		t.Fatal(err)
	}

	var backtracks, steps int
	for _, w := range walks {
		for i := 2; i < len(w); i++ {
			steps++
			if w[i] == w[i-2] {
				backtracks++
			}
		}
	}
	if ratio := float64(backtracks) / float64(steps); ratio < 0.95 {
		t.Errorf("backtrack ratio = %.3f, want near 1 with a prohibitive explore weight", ratio)
	}
}

func TestWeightedEdgesBiasTheWalk(t *testing.T) {
	// Node 0 has a weight-99 edge to node 1 and a weight-1 edge to node 2.
	b := graph.NewBuilder(graph.Config{Directed: true})
	b.EnsureNodeCount(3)
	if err := b.AddEdgeIDs(0, 1, "", 99, true); err != nil {
		t.Fatal(err)
	}
	if err := b.AddEdgeIDs(0, 2, "", 1, true); err != nil {
		t.Fatal(err)
	}
	g, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	const iterations = 1000
	walks, err := mustEngine(t, g, Config{
		Length: 2, Iterations: iterations, StartNode: 0, EndNode: 1,
	}).Walks()
	if err != nil {
		t.Fatal(err)
	}
	var heavy int
	for _, w := range walks {
		if w[1] == 1 {
			heavy++
		}
	}
	// Expected 99% to the heavy edge.
	if heavy < iterations*95/100 {
		t.Errorf("heavy edge taken %d/%d times, want about 99%%", heavy, iterations)
	}
}

func TestWalksEveryStepIsAnEdge(t *testing.T) {
	g := triangleGraph(t)
	for _, cfg := range []Config{
		{Length: 10, Iterations: 20},
		{Length: 10, Iterations: 20, Weights: Weights{Return: 2, Explore: 0.5, ChangeNodeType: 1, ChangeEdgeType: 1}},
	} {
		walks, err := mustEngine(t, g, cfg).Walks()
		if err != nil {
			t.Fatal(err)
		}
		for _, w := range walks {
			for i := 1; i < len(w); i++ {
				if !g.HasEdge(w[i-1], w[i]) {
					t.Fatalf("walk %v uses a non-edge at step %d", w, i)
				}
			}
		}
	}
}

func TestMaxNeighboursBoundedStepStaysValid(t *testing.T) {
	// A hub with 500 leaves and a bound of 10: every step must still land on
	// a real neighbour, and the draw must remain deterministic.
	g := starGraph(t, 500)
	ten := 10
	cfg := Config{
		Length: 2, Iterations: 200, StartNode: 0, EndNode: 1,
		MaxNeighbours: &ten,
		// Force the biased path; the bound only applies there.
		NormalizeByDegree: true,
	}

	first, err := mustEngine(t, g, cfg).Walks()
	if err != nil {
		t.Fatal(err)
	}
	second, err := mustEngine(t, g, cfg).Walks()
	if err != nil {
		t.Fatal(err)
	}
	for i, w := range first {
		if w[1] < 1 || w[1] > 500 {
			t.Fatalf("walk landed outside the graph: %v", w)
		}
		if second[i][1] != w[1] {
			t.Fatal("bounded sampling is not deterministic")
		}
	}
}
