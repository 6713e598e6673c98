package orfl

import (
	"math/rand"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func testForestParams() ForestParams {
	return ForestParams{
		NumTrees: 10,
		Param: Param{
			NumClasses: 2,
			MinSamples: 5,
			MinGain:    0.1,
			NumTests:   10,
			Lam:        1,
			Metric:     Entropy{},
		},
		Ranges: []FeatureRange{{Min: 0, Max: 10}},
		Seed:   41,
	}
}

//separableDataset is 50 one-dimensional points split cleanly at x = 5.
func separableDataset() (ds Dataset) {
	ds.Features = mat.NewDense(50, 1, nil)
	ds.Labels = make([]int, 50)
	for i := 0; i < 50; i++ {
		x := float64(i) * 0.2
		ds.Features.Set(i, 0, x)
		if x >= 5 {
			ds.Labels[i] = 1
		}
	}
	return
}

func TestForestConvergesOnSeparableStream(t *testing.T) {
	forest := NewForest(testForestParams())
	ds := separableDataset()

	for epoch := 0; epoch < 40; epoch++ {
		forest.Train(ds)
	}

	if got := forest.Predict([]float64{2}); got != 0 {
		t.Errorf("predict(2) = %d, want 0", got)
	}
	if got := forest.Predict([]float64{8}); got != 1 {
		t.Errorf("predict(8) = %d, want 1", got)
	}
	if accuracy := forest.Accuracy(ds); accuracy < 0.9 {
		t.Errorf("accuracy %g too low after convergence", accuracy)
	}
}

func TestForestPredictTieBreak(t *testing.T) {
	params := testForestParams()
	params.NumTrees = 2
	forest := NewForest(params)

	// Two trees, one vote each: the winner must be the first tree's class.
	first := splitTestTree(&forest.params.Param)
	second := splitTestTree(&forest.params.Param)
	forest.Trees = []*OnlineTree{first, second}

	if got := forest.Predict([]float64{8}); got != 1 {
		t.Fatalf("sanity: both trees vote 1, got %d", got)
	}

	// Force a genuine tie: flip the first tree's leaf majorities so it votes
	// 0 at x=8 while the second still votes 1.
	first.Nodes[1].Stats.ClassCounts = []float64{1, 10}
	first.Nodes[2].Stats.ClassCounts = []float64{10, 1}
	if got := forest.Predict([]float64{8}); got != 0 {
		t.Errorf("on a 1-1 tie the first tree's vote must win, got %d", got)
	}
}

func TestForestDensity(t *testing.T) {
	forest := NewForest(testForestParams())
	ds := separableDataset()
	for epoch := 0; epoch < 10; epoch++ {
		forest.Train(ds)
	}

	density := forest.Density([]float64{2})
	sum := 0.0
	for _, p := range density {
		if p <= 0 || p >= 1 {
			t.Fatalf("density entry out of (0,1): %v", density)
		}
		sum += p
	}
	if sum > 1+1e-9 {
		t.Errorf("averaged density sum %g exceeds 1", sum)
	}
	if density[0] <= density[1] {
		t.Errorf("x=2 lives in class-0 territory, got density %v", density)
	}
}

func TestForestAgesNeverResetWithoutDrift(t *testing.T) {
	params := testForestParams()
	params.Param.Gamma = 0
	forest := NewForest(params)
	ds := separableDataset()

	forest.Train(ds)
	ages := make([]int, len(forest.Trees))
	for i, tree := range forest.Trees {
		ages[i] = tree.Age
	}

	for epoch := 0; epoch < 20; epoch++ {
		forest.Train(ds)
		for i, tree := range forest.Trees {
			if tree.Age < ages[i] {
				t.Fatalf("tree %d age dropped from %d to %d with gamma=0", i, ages[i], tree.Age)
			}
			ages[i] = tree.Age
		}
	}
}

func TestForestDriftResetsStaleTrees(t *testing.T) {
	params := testForestParams()
	params.Param.Gamma = 0.01 // trees become eligible past age 100
	forest := NewForest(params)

	// Random labels keep every tree's out-of-bag error high, so once trees
	// age past the threshold resets happen almost surely.
	rng := rand.New(rand.NewSource(43))
	sawReset := false
	ages := make([]int, len(forest.Trees))
	for i := 0; i < 3000 && !sawReset; i++ {
		forest.Update([]float64{rng.Float64() * 10}, rng.Intn(2))
		for j, tree := range forest.Trees {
			if tree.Age < ages[j] {
				sawReset = true
			}
			ages[j] = tree.Age
		}
	}
	if !sawReset {
		t.Error("no tree was ever reset under drift with high OOB error")
	}
}

func TestConfusionMatrixConservation(t *testing.T) {
	forest := NewForest(testForestParams())
	ds := separableDataset()
	forest.Train(ds)

	confusion := forest.ConfusionMatrix(ds)
	if got, want := mat.Sum(confusion), float64(ds.Len()); got != want {
		t.Errorf("confusion matrix sums to %g, want %g", got, want)
	}
}

func TestConfusionMatrixLengthMismatchPanics(t *testing.T) {
	forest := NewForest(testForestParams())
	ds := separableDataset()
	ds.Labels = ds.Labels[:10]

	defer func() {
		if recover() == nil {
			t.Error("mismatched feature and label lengths must panic")
		}
	}()
	forest.ConfusionMatrix(ds)
}

func TestLeaveOneOutCrossValidate(t *testing.T) {
	params := testForestParams()
	params.NumTrees = 5
	forest := NewForest(params)

	ds := Dataset{
		Features: mat.NewDense(10, 1, []float64{0.5, 1, 1.5, 2, 2.5, 7, 7.5, 8, 8.5, 9}),
		Labels:   []int{0, 0, 0, 0, 0, 1, 1, 1, 1, 1},
	}

	confusion := forest.LeaveOneOutCrossValidate(ds)
	if got := mat.Sum(confusion); got != 10 {
		t.Errorf("confusion matrix sums to %g, want 10", got)
	}
	r, c := confusion.Dims()
	if r != 2 || c != 2 {
		t.Errorf("confusion matrix is %dx%d, want 2x2", r, c)
	}
}

func TestForestParallelUpdateMatchesScale(t *testing.T) {
	params := testForestParams()
	params.ThreadsNum = 4
	forest := NewForest(params)
	ds := separableDataset()

	for epoch := 0; epoch < 40; epoch++ {
		forest.Train(ds)
	}

	if got := forest.Predict([]float64{2}); got != 0 {
		t.Errorf("parallel forest: predict(2) = %d, want 0", got)
	}
	if got := forest.Predict([]float64{8}); got != 1 {
		t.Errorf("parallel forest: predict(8) = %d, want 1", got)
	}
}

func TestForestStructuralDiagnostics(t *testing.T) {
	forest := NewForest(testForestParams())
	ds := separableDataset()
	for epoch := 0; epoch < 20; epoch++ {
		forest.Train(ds)
	}

	if forest.MeanTreeSize() < 1 {
		t.Error("mean tree size below 1")
	}
	if forest.MeanNumLeaves() < 1 {
		t.Error("mean leaf count below 1")
	}
	if forest.MeanMaxDepth() <= 0 {
		t.Error("trained forest should have grown past the root")
	}
}

func TestForestSaveLoadRoundTrip(t *testing.T) {
	forest := NewForest(testForestParams())
	ds := separableDataset()
	for epoch := 0; epoch < 20; epoch++ {
		forest.Train(ds)
	}

	filename := filepath.Join(t.TempDir(), "model.json")
	forest.Save(filename)
	loaded := LoadModel(filename, 47)

	for _, x := range []float64{0.5, 2, 4.9, 5.1, 8, 9.5} {
		if got, want := loaded.Predict([]float64{x}), forest.Predict([]float64{x}); got != want {
			t.Errorf("loaded model predicts %d at x=%g, original %d", got, x, want)
		}
	}
	if loaded.NumClasses() != forest.NumClasses() {
		t.Error("class count did not round-trip")
	}
}

func TestNewForestRejectsBadParams(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ForestParams)
	}{
		{"lam too large", func(p *ForestParams) { p.Param.Lam = 11 }},
		{"no classes", func(p *ForestParams) { p.Param.NumClasses = 0 }},
		{"negative gamma", func(p *ForestParams) { p.Param.Gamma = -1 }},
		{"no trees", func(p *ForestParams) { p.NumTrees = 0 }},
		{"no ranges", func(p *ForestParams) { p.Ranges = nil }},
		{"nil metric", func(p *ForestParams) { p.Param.Metric = nil }},
	}
	for _, tc := range cases {
		params := testForestParams()
		tc.mutate(&params)
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%s: construction must panic", tc.name)
				}
			}()
			NewForest(params)
		}()
	}
}
