package orfl

import (
	"log"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"
)

//Forest is an online random forest: a fixed collection of independent online
//trees sharing one hyperparameter set and one feature range prior. Trees hold
//no shared mutable state, so per-example updates may fan out to a worker pool.
type Forest struct {
	Trees []*OnlineTree

	params  ForestParams
	ranges  []FeatureRange
	threads int
	rng     *rand.Rand
}

//ForestParams collect arguments required to construct a forest. A zero Seed
//asks for a wall-clock seed; any other value makes the forest fully
//reproducible. A zero NumTests in Param derives round(sqrt(dimX)).
type ForestParams struct {
	NumTrees   int
	Param      Param
	Ranges     []FeatureRange
	ThreadsNum int
	Seed       int64
}

//NewForest creates a forest of empty trees. Hyperparameters are validated
//here and nowhere else; the update and predict paths trust them.
func NewForest(params ForestParams) (forest *Forest) {
	params.Param.Validate()
	if params.NumTrees < 1 {
		log.Panicf("NumTrees must be positive, got %d", params.NumTrees)
	}
	if len(params.Ranges) == 0 {
		log.Panic("Ranges must hold one interval per feature dimension")
	}
	if params.Param.NumTests == 0 {
		params.Param.NumTests = int(math.Round(math.Sqrt(float64(len(params.Ranges)))))
	}
	if params.Seed == 0 {
		params.Seed = time.Now().UnixNano()
	}
	if params.ThreadsNum < 1 {
		params.ThreadsNum = 1
	}

	forest = &Forest{
		params:  params,
		ranges:  params.Ranges,
		threads: params.ThreadsNum,
		rng:     rand.New(rand.NewSource(params.Seed)),
	}
	forest.Trees = make([]*OnlineTree, params.NumTrees)
	for i := range forest.Trees {
		treeRng := rand.New(rand.NewSource(forest.rng.Int63()))
		forest.Trees[i] = NewOnlineTree(&forest.params.Param, forest.ranges, treeRng)
	}
	return
}

//NumClasses returns the class count the forest was built for.
func (forest *Forest) NumClasses() int {
	return forest.params.Param.NumClasses
}

//Update feeds one labeled example to every tree, then runs the temporal
//reweighting step. The drift controller reads post-update age and out-of-bag
//state, so it only runs after every tree has observed the example.
func (forest *Forest) Update(x []float64, label int) {
	if forest.threads > 1 {
		pool := NewPool(forest.threads)
		for _, tree := range forest.Trees {
			pool.AddTask(&TaskTreeUpdate{tree: tree, x: x, label: label})
		}
		pool.Close()
		pool.WaitAll()
	} else {
		for _, tree := range forest.Trees {
			tree.Update(x, label)
		}
	}

	if forest.params.Param.Gamma > 0 {
		forest.temporalReweight()
	}
}

//temporalReweight is the drift controller: among trees old enough to judge
//(age beyond 1/gamma) one is picked uniformly and reset with probability
//equal to its out-of-bag error estimate. Stale, poorly performing structure
//is shed first; fresh or accurate trees survive.
func (forest *Forest) temporalReweight() {
	ageThreshold := 1 / forest.params.Param.Gamma
	var eligible []*OnlineTree
	for _, tree := range forest.Trees {
		if float64(tree.Age) > ageThreshold {
			eligible = append(eligible, tree)
		}
	}
	if len(eligible) == 0 {
		return
	}
	tree := eligible[forest.rng.Intn(len(eligible))]
	if forest.rng.Float64() < tree.OutOfBagErrorEstimate() {
		tree.Reset()
	}
}

//Predict aggregates one vote per tree and returns the class with the largest
//count. On a tie the winner is the class that reached the maximal count first
//while scanning trees in order.
func (forest *Forest) Predict(x []float64) (best int) {
	predictions := make([]int, len(forest.Trees))
	if forest.threads > 1 {
		pool := NewPool(forest.threads)
		for i, tree := range forest.Trees {
			pool.AddTask(&TaskTreePredict{result: predictions, ind: i, tree: tree, x: x})
		}
		pool.Close()
		pool.WaitAll()
	} else {
		for i, tree := range forest.Trees {
			predictions[i] = tree.Predict(x)
		}
	}

	votes := make([]int, forest.NumClasses())
	bestCount := 0
	for _, c := range predictions {
		votes[c]++
		if votes[c] > bestCount {
			bestCount = votes[c]
			best = c
		}
	}
	return
}

//Density averages the per-tree class distributions for x.
func (forest *Forest) Density(x []float64) (density []float64) {
	density = make([]float64, forest.NumClasses())
	for _, tree := range forest.Trees {
		for c, p := range tree.Density(x) {
			density[c] += p
		}
	}
	for c := range density {
		density[c] /= float64(len(forest.Trees))
	}
	return
}

//Train runs one shuffled pass of Update over the dataset.
func (forest *Forest) Train(ds Dataset) {
	h, _ := ds.validatedDimensions()
	for _, ind := range forest.rng.Perm(h) {
		forest.Update(ds.Row(ind), ds.Labels[ind])
	}
}

//ConfusionMatrix counts, for every example, its true class against the class
//the forest predicts. Cell (p, q) holds the number of class-p examples
//predicted as class q.
func (forest *Forest) ConfusionMatrix(ds Dataset) (confusion *mat.Dense) {
	h, _ := ds.validatedDimensions()
	numClasses := forest.NumClasses()
	confusion = mat.NewDense(numClasses, numClasses, nil)
	for p := 0; p < h; p++ {
		predicted := forest.Predict(ds.Row(p))
		confusion.Set(ds.Labels[p], predicted, confusion.At(ds.Labels[p], predicted)+1)
	}
	return
}

//Accuracy returns the fraction of examples the forest classifies correctly.
func (forest *Forest) Accuracy(ds Dataset) float64 {
	h, _ := ds.validatedDimensions()
	hits := 0
	for p := 0; p < h; p++ {
		if forest.Predict(ds.Row(p)) == ds.Labels[p] {
			hits++
		}
	}
	return float64(hits) / float64(h)
}

//LeaveOneOutCrossValidate trains one fresh forest per example on everything
//except that example, in a freshly shuffled order, and accumulates the
//held-out predictions into one confusion matrix. Each round owns a private
//forest, so rounds run on the worker pool when ThreadsNum allows.
//Deliberately O(n) forest builds and O(n^2) updates; meant for small sets.
func (forest *Forest) LeaveOneOutCrossValidate(ds Dataset) (confusion *mat.Dense) {
	h, _ := ds.validatedDimensions()
	seeds := make([]int64, h)
	for i := range seeds {
		seeds[i] = forest.rng.Int63()
	}

	result := make([]int, h)
	holdOut := func(ind int) int {
		roundParams := forest.params
		roundParams.Seed = seeds[ind]
		roundParams.ThreadsNum = 1
		round := NewForest(roundParams)
		round.Train(ds.Without(ind))
		return round.Predict(ds.Row(ind))
	}

	if forest.threads > 1 {
		pool := NewPool(forest.threads)
		for i := 0; i < h; i++ {
			pool.AddTask(&TaskHoldOut{result: result, ind: i, holdOutFunc: holdOut})
		}
		pool.Close()
		pool.WaitAll()
	} else {
		for i := 0; i < h; i++ {
			result[i] = holdOut(i)
		}
	}

	numClasses := forest.NumClasses()
	confusion = mat.NewDense(numClasses, numClasses, nil)
	for i := 0; i < h; i++ {
		confusion.Set(ds.Labels[i], result[i], confusion.At(ds.Labels[i], result[i])+1)
	}
	return
}

//MeanTreeSize averages the node count over the forest's trees.
func (forest *Forest) MeanTreeSize() float64 {
	total := 0
	for _, tree := range forest.Trees {
		total += tree.Size()
	}
	return float64(total) / float64(len(forest.Trees))
}

//MeanNumLeaves averages the leaf count over the forest's trees.
func (forest *Forest) MeanNumLeaves() float64 {
	total := 0
	for _, tree := range forest.Trees {
		total += tree.NumLeaves()
	}
	return float64(total) / float64(len(forest.Trees))
}

//MeanMaxDepth averages the maximal depth over the forest's trees.
func (forest *Forest) MeanMaxDepth() float64 {
	total := 0
	for _, tree := range forest.Trees {
		total += tree.MaxDepth()
	}
	return float64(total) / float64(len(forest.Trees))
}
