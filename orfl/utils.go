package orfl

import (
	"log"
	"math"
	"math/rand"
)

//HandleError panics on a non-nil error. Used on must-succeed paths where the
//caller has no way to continue.
func HandleError(err error) {
	if err != nil {
		log.Panic(err)
	}
}

//samplePoisson draws from Poisson(lam) by inverse transform sampling: uniform
//draws are multiplied together until the running product falls below e^-lam,
//and the number of extra multiplications performed is the sample. Bounding lam
//by MaxLam keeps the expected loop length short.
func samplePoisson(rng *rand.Rand, lam float64) (k int) {
	limit := math.Exp(-lam)
	prod := rng.Float64()
	for prod >= limit {
		prod *= rng.Float64()
		k++
	}
	return
}

//onesSlice returns a float slice of the given length filled with ones.
func onesSlice(n int) []float64 {
	counts := make([]float64, n)
	for i := range counts {
		counts[i] = 1
	}
	return counts
}

//argmaxFirst returns the index of the first maximal value in the slice.
func argmaxFirst(values []float64) (best int) {
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return
}
