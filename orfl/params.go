package orfl

import (
	"log"
	"math"
)

//MaxLam bounds the Poisson rate so that the inverse transform sampler
//terminates after a reasonable number of uniform draws.
const MaxLam = 10.0

//SplitMetric measures the impurity of a Laplace-smoothed class count vector.
type SplitMetric interface {
	Impurity(counts []float64) float64
	Name() string
}

//Entropy is the Shannon entropy impurity.
type Entropy struct{}

//Gini is the Gini impurity.
type Gini struct{}

func (Entropy) Impurity(counts []float64) (value float64) {
	n := laplaceTotal(counts)
	for _, c := range counts {
		p := c / n
		value -= p * math.Log(p)
	}
	return
}

func (Entropy) Name() string { return "entropy" }

func (Gini) Impurity(counts []float64) (value float64) {
	n := laplaceTotal(counts)
	for _, c := range counts {
		p := c / n
		value += p * (1 - p)
	}
	return
}

func (Gini) Name() string { return "gini" }

//MetricByName maps a metric name from a config or a model dump to its implementation.
func MetricByName(name string) SplitMetric {
	switch name {
	case "entropy":
		return Entropy{}
	case "gini":
		return Gini{}
	}
	log.Panicf("unknown split metric %q", name)
	return nil
}

//laplaceTotal is the smoothed mass of a count vector: the raw sum plus one
//unit per class, matching the all-ones initialization of the counts themselves.
func laplaceTotal(counts []float64) float64 {
	n := float64(len(counts))
	for _, c := range counts {
		n += c
	}
	return n
}

//Param collects the hyperparameters shared by every tree in a forest.
type Param struct {
	NumClasses int
	MinSamples int
	MinGain    float64
	Gamma      float64
	NumTests   int
	Lam        float64
	Metric     SplitMetric
}

//Validate panics on hyperparameter combinations the algorithm cannot run with.
//Construction is the only place these can be caught; the update and predict
//paths assume a valid Param throughout.
func (param Param) Validate() {
	if param.NumClasses < 1 {
		log.Panicf("NumClasses must be positive, got %d", param.NumClasses)
	}
	if param.Lam <= 0 || param.Lam > MaxLam {
		log.Panicf("Lam must be in (0, %g], got %g", MaxLam, param.Lam)
	}
	if param.Gamma < 0 {
		log.Panicf("Gamma must be non-negative, got %g", param.Gamma)
	}
	if param.NumTests < 0 {
		log.Panicf("NumTests must be non-negative, got %d", param.NumTests)
	}
	if param.Metric == nil {
		log.Panic("Metric must be set")
	}
}

//FeatureRange bounds the interval a random split threshold may be drawn from
//in one feature dimension. The prior is fixed at forest construction.
type FeatureRange struct {
	Min, Max float64
}
