package orfl

import (
	"fmt"
	"math/rand"
	"strings"

	"gorgonia.org/tensor"
)

//Info is the streaming state of one tree node: Laplace-smoothed class counts,
//the committed split once one is made, and while the node is still a leaf a
//table of randomized candidate splits with per-bucket class counts. SplitDim
//is -1 until the node splits; a node splits at most once.
type Info struct {
	SplitDim       int
	SplitLoc       float64
	ClassCounts    []float64
	NumSamplesSeen int

	testDims   []int
	testLocs   []float64
	testCounts *tensor.Dense // shape (numTests, 2, numClasses); bucket 0 is left
}

//newInfo creates leaf state with the given class count prior (all ones when
//nil) and a freshly drawn candidate table. Candidate dimensions are uniform
//over feature indices and thresholds uniform within that dimension's range
//prior; both stay fixed until the node splits or is discarded.
func newInfo(param *Param, ranges []FeatureRange, rng *rand.Rand, prior []float64) (info *Info) {
	if prior == nil {
		prior = onesSlice(param.NumClasses)
	}
	info = &Info{
		SplitDim:    -1,
		ClassCounts: prior,
	}
	info.drawCandidates(param, ranges, rng)
	return
}

//drawCandidates fills the candidate table. Bucket counters start at one,
//keeping the Laplace floor that holds for every count vector in the tree.
func (info *Info) drawCandidates(param *Param, ranges []FeatureRange, rng *rand.Rand) {
	info.testDims = make([]int, param.NumTests)
	info.testLocs = make([]float64, param.NumTests)
	for t := 0; t < param.NumTests; t++ {
		dim := rng.Intn(len(ranges))
		info.testDims[t] = dim
		info.testLocs[t] = ranges[dim].Min + rng.Float64()*(ranges[dim].Max-ranges[dim].Min)
	}
	info.testCounts = tensor.New(
		tensor.WithShape(param.NumTests, 2, param.NumClasses),
		tensor.WithBacking(onesSlice(param.NumTests*2*param.NumClasses)),
	)
}

//Update absorbs one labeled example: the class counts and the sample counter
//advance, and every candidate split counts the example in the bucket its
//threshold routes it to (x[dim] < loc goes left, otherwise right).
func (info *Info) Update(x []float64, label int) {
	info.ClassCounts[label]++
	info.NumSamplesSeen++
	for t, dim := range info.testDims {
		bucket := 1
		if x[dim] < info.testLocs[t] {
			bucket = 0
		}
		value, err := info.testCounts.At(t, bucket, label)
		HandleError(err)
		HandleError(info.testCounts.SetAt(value.(float64)+1, t, bucket, label))
	}
}

//PredictedClass is the argmax of the class counts, first maximum winning.
func (info *Info) PredictedClass() int {
	return argmaxFirst(info.ClassCounts)
}

//DensityEstimate is the Laplace-smoothed class distribution. The smoothing
//keeps every entry strictly positive; the entries approach a unit sum as the
//node absorbs more examples.
func (info *Info) DensityEstimate() (density []float64) {
	density = make([]float64, len(info.ClassCounts))
	n := float64(info.NumSamplesSeen + len(info.ClassCounts))
	for i, c := range info.ClassCounts {
		density[i] = c / n
	}
	return
}

//bucketCounts copies one bucket of one candidate out of the count tensor.
func (info *Info) bucketCounts(t, bucket, numClasses int) (counts []float64) {
	counts = make([]float64, numClasses)
	for c := 0; c < numClasses; c++ {
		value, err := info.testCounts.At(t, bucket, c)
		HandleError(err)
		counts[c] = value.(float64)
	}
	return
}

//bestCandidate evaluates every candidate split against the current class
//counts and returns the one with the maximal gain, earlier candidates winning
//ties. ok is false when the node has no candidate table left.
func (info *Info) bestCandidate(metric SplitMetric) (dim int, loc float64, left, right []float64, bestGain float64, ok bool) {
	numClasses := len(info.ClassCounts)
	for t := range info.testDims {
		leftCounts := info.bucketCounts(t, 0, numClasses)
		rightCounts := info.bucketCounts(t, 1, numClasses)
		gain := Gain(metric, info.ClassCounts, leftCounts, rightCounts)
		if !ok || gain > bestGain {
			ok = true
			bestGain = gain
			dim = info.testDims[t]
			loc = info.testLocs[t]
			left = leftCounts
			right = rightCounts
		}
	}
	return
}

//CommitSplit records the chosen split and drops the candidate table. The
//accumulated statistics move on to the two children, so the node's own counts
//return to the all-ones prior. After this call the node never splits again.
func (info *Info) CommitSplit(dim int, loc float64) {
	info.SplitDim = dim
	info.SplitLoc = loc
	info.testDims = nil
	info.testLocs = nil
	info.testCounts = nil
	info.ClassCounts = onesSlice(len(info.ClassCounts))
}

//clone deep-copies the node state, including the candidate count tensor.
func (info *Info) clone() (out *Info) {
	out = &Info{
		SplitDim:       info.SplitDim,
		SplitLoc:       info.SplitLoc,
		ClassCounts:    append([]float64(nil), info.ClassCounts...),
		NumSamplesSeen: info.NumSamplesSeen,
	}
	if info.testCounts != nil {
		out.testDims = append([]int(nil), info.testDims...)
		out.testLocs = append([]float64(nil), info.testLocs...)
		out.testCounts = info.testCounts.Clone().(*tensor.Dense)
	}
	return
}

//GraphDescription returns the description of a node for tree rendering as a graph.
func (info *Info) GraphDescription() string {
	var sb strings.Builder
	if info.SplitDim == -1 {
		sb.WriteString(fmt.Sprintln("# ", info.NumSamplesSeen))
		sb.WriteString(fmt.Sprintf("counts: %v\n", info.ClassCounts))
		sb.WriteString(fmt.Sprintf("class: %d", info.PredictedClass()))
	} else {
		sb.WriteString(fmt.Sprintf("f_%d > %6.5g", info.SplitDim, info.SplitLoc))
	}
	return sb.String()
}
