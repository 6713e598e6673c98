package orfl

//Gain is the impurity reduction achieved by partitioning the parent counts
//into the left and right buckets of a candidate split. Child terms are
//weighted by their Laplace-smoothed mass. Numerical noise can push the raw
//difference slightly below zero, so the result is clamped at zero.
func Gain(metric SplitMetric, parent, left, right []float64) float64 {
	nLeft := laplaceTotal(left)
	nRight := laplaceTotal(right)
	n := nLeft + nRight

	value := metric.Impurity(parent) -
		nLeft/n*metric.Impurity(left) -
		nRight/n*metric.Impurity(right)
	if value < 0 {
		return 0
	}
	return value
}
