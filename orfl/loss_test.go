package orfl

import (
	"math"
	"math/rand"
	"testing"
)

func TestImpurityBalancedVersusSkewed(t *testing.T) {
	balanced := []float64{50, 50}
	skewed := []float64{99, 1}

	for _, metric := range []SplitMetric{Entropy{}, Gini{}} {
		if metric.Impurity(balanced) <= metric.Impurity(skewed) {
			t.Errorf("%s: balanced counts should be more impure than skewed ones", metric.Name())
		}
	}
}

func TestEntropyOfBalancedCounts(t *testing.T) {
	// With counts (49, 49) the smoothed distribution is exactly (0.5, 0.5).
	value := Entropy{}.Impurity([]float64{49, 49})
	if math.Abs(value-math.Ln2) > 1e-12 {
		t.Errorf("expected ln 2, got %g", value)
	}
}

func TestGiniOfBalancedCounts(t *testing.T) {
	value := Gini{}.Impurity([]float64{49, 49})
	if math.Abs(value-0.5) > 1e-12 {
		t.Errorf("expected 0.5, got %g", value)
	}
}

func TestGainNeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, metric := range []SplitMetric{Entropy{}, Gini{}} {
		for trial := 0; trial < 1000; trial++ {
			parent := make([]float64, 3)
			left := make([]float64, 3)
			right := make([]float64, 3)
			for c := range parent {
				left[c] = float64(1 + rng.Intn(50))
				right[c] = float64(1 + rng.Intn(50))
				parent[c] = left[c] + right[c]
			}
			if gain := Gain(metric, parent, left, right); gain < 0 {
				t.Fatalf("%s: negative gain %g for parent=%v left=%v right=%v",
					metric.Name(), gain, parent, left, right)
			}
		}
	}
}

func TestGainOfCleanSeparation(t *testing.T) {
	parent := []float64{51, 51}
	left := []float64{50, 1}
	right := []float64{1, 50}
	gain := Gain(Entropy{}, parent, left, right)
	if gain < 0.3 {
		t.Errorf("clean separation should carry a large gain, got %g", gain)
	}
}

func TestMetricByNameRoundTrip(t *testing.T) {
	for _, name := range []string{"entropy", "gini"} {
		if got := MetricByName(name).Name(); got != name {
			t.Errorf("metric %q resolved to %q", name, got)
		}
	}
}
