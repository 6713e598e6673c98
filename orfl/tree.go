package orfl

import (
	"math/rand"
)

//TreeNode is a node of a tree. The tree is stored in an array. LeftIndex and
//RightIndex are equal to -1 when the node is a leaf, otherwise they contain
//array indices of the children. Every node owns its Stats; for internal nodes
//the Stats hold the committed split.
type TreeNode struct {
	Stats      *Info
	LeftIndex  int
	RightIndex int
}

//IsLeaf returns whether this node has children.
func (node TreeNode) IsLeaf() bool {
	return node.LeftIndex == -1
}

//OnlineTree is one probabilistic decision tree of an online forest. It grows
//by splitting leaves as labeled examples stream in, decides per example how
//many times to absorb it (online bagging) and tracks its own out-of-bag error
//on the examples it skipped.
type OnlineTree struct {
	Nodes      []TreeNode
	Age        int
	OOBCorrect []int
	OOBTotal   []int

	param  *Param
	ranges []FeatureRange
	rng    *rand.Rand
}

//NewOnlineTree creates an empty tree: a single leaf with an all-ones prior.
//The random generator is owned by the tree, which keeps parallel forest
//updates free of shared state.
func NewOnlineTree(param *Param, ranges []FeatureRange, rng *rand.Rand) (tree *OnlineTree) {
	tree = &OnlineTree{param: param, ranges: ranges, rng: rng}
	tree.Reset()
	return
}

//Reset discards the grown structure and returns the tree to its initial
//state: a fresh root leaf, zero age and cleared out-of-bag accumulators.
func (tree *OnlineTree) Reset() {
	tree.Nodes = []TreeNode{{
		Stats:     newInfo(tree.param, tree.ranges, tree.rng, nil),
		LeftIndex: -1, RightIndex: -1,
	}}
	tree.Age = 0
	tree.OOBCorrect = make([]int, tree.param.NumClasses)
	tree.OOBTotal = make([]int, tree.param.NumClasses)
}

//FindLeaf descends from the root to the leaf responsible for x. Descent sends
//x[dim] > loc right, so a feature exactly on a threshold goes left here even
//though the candidate statistics counted it in the right bucket while the
//split was accumulating. Both conventions are deliberate and must stay as
//they are.
func (tree *OnlineTree) FindLeaf(x []float64) (ind int) {
	for !tree.Nodes[ind].IsLeaf() {
		node := tree.Nodes[ind]
		if x[node.Stats.SplitDim] > node.Stats.SplitLoc {
			ind = node.RightIndex
		} else {
			ind = node.LeftIndex
		}
	}
	return
}

//Predict returns the majority class of the leaf responsible for x.
func (tree *OnlineTree) Predict(x []float64) int {
	return tree.Nodes[tree.FindLeaf(x)].Stats.PredictedClass()
}

//Density returns the smoothed class distribution of the leaf responsible for x.
func (tree *OnlineTree) Density(x []float64) []float64 {
	return tree.Nodes[tree.FindLeaf(x)].Stats.DensityEstimate()
}

//Update absorbs one labeled example. A Poisson draw decides how many bootstrap
//replicas of the example this tree processes. A zero draw makes the example
//out-of-bag: it only scores the tree's current prediction. Otherwise each
//replica ages the tree, updates the responsible leaf and may split it.
func (tree *OnlineTree) Update(x []float64, label int) {
	k := samplePoisson(tree.rng, tree.param.Lam)
	if k == 0 {
		tree.OOBTotal[label]++
		if tree.Predict(x) == label {
			tree.OOBCorrect[label]++
		}
		return
	}
	for rep := 0; rep < k; rep++ {
		tree.Age++
		ind := tree.FindLeaf(x)
		leaf := tree.Nodes[ind].Stats
		leaf.Update(x, label)
		if leaf.NumSamplesSeen > tree.param.MinSamples {
			tree.trySplit(ind)
		}
	}
}

//trySplit commits the best candidate split of a leaf when its gain clears the
//threshold, allocating two fresh child leaves whose class count priors are the
//winning candidate's accumulated buckets.
func (tree *OnlineTree) trySplit(ind int) {
	leaf := tree.Nodes[ind].Stats
	dim, loc, left, right, bestGain, ok := leaf.bestCandidate(tree.param.Metric)
	if !ok || bestGain <= tree.param.MinGain {
		return
	}
	leaf.CommitSplit(dim, loc)

	leftIndex := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, TreeNode{
		Stats:     newInfo(tree.param, tree.ranges, tree.rng, left),
		LeftIndex: -1, RightIndex: -1,
	})
	rightIndex := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, TreeNode{
		Stats:     newInfo(tree.param, tree.ranges, tree.rng, right),
		LeftIndex: -1, RightIndex: -1,
	})
	tree.Nodes[ind].LeftIndex = leftIndex
	tree.Nodes[ind].RightIndex = rightIndex
}

//OutOfBagErrorEstimate averages the per-class error rates over all classes.
//A class the tree has never held out contributes zero error.
func (tree *OnlineTree) OutOfBagErrorEstimate() (estimate float64) {
	for c := range tree.OOBTotal {
		if tree.OOBTotal[c] == 0 {
			continue
		}
		estimate += 1 - float64(tree.OOBCorrect[c])/float64(tree.OOBTotal[c])
	}
	return estimate / float64(tree.param.NumClasses)
}

//Size returns the number of nodes in the tree.
func (tree *OnlineTree) Size() int {
	return len(tree.Nodes)
}

//NumLeaves returns the number of leaf nodes in the tree.
func (tree *OnlineTree) NumLeaves() (leaves int) {
	for _, node := range tree.Nodes {
		if node.IsLeaf() {
			leaves++
		}
	}
	return
}

//MaxDepth returns the length of the longest root-to-leaf path, the root
//alone counting as depth zero.
func (tree *OnlineTree) MaxDepth() int {
	return tree.depthBelow(0)
}

func (tree *OnlineTree) depthBelow(ind int) int {
	node := tree.Nodes[ind]
	if node.IsLeaf() {
		return 0
	}
	leftDepth := tree.depthBelow(node.LeftIndex)
	rightDepth := tree.depthBelow(node.RightIndex)
	if leftDepth > rightDepth {
		return leftDepth + 1
	}
	return rightDepth + 1
}

//Clone deep-copies the tree, node stats included. The copy shares the
//hyperparameters and the range prior but keeps the receiver's generator, so
//it is meant for inspection rather than independent training.
func (tree *OnlineTree) Clone() (out *OnlineTree) {
	out = &OnlineTree{
		Nodes:      make([]TreeNode, len(tree.Nodes)),
		Age:        tree.Age,
		OOBCorrect: append([]int(nil), tree.OOBCorrect...),
		OOBTotal:   append([]int(nil), tree.OOBTotal...),
		param:      tree.param,
		ranges:     tree.ranges,
		rng:        tree.rng,
	}
	for i, node := range tree.Nodes {
		out.Nodes[i] = TreeNode{
			Stats:     node.Stats.clone(),
			LeftIndex: node.LeftIndex, RightIndex: node.RightIndex,
		}
	}
	return
}
