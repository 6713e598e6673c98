package orfl

import (
	"log"
	"math"
	"math/rand"
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

//Dataset pairs a feature matrix (one row per example) with integer class
//labels. Evaluation routines check the pairing before touching the data.
type Dataset struct {
	Features *mat.Dense
	Labels   []int
}

//Len returns the number of examples.
func (ds Dataset) Len() int {
	h, _ := ds.Features.Dims()
	return h
}

//Row copies one feature vector out of the matrix.
func (ds Dataset) Row(ind int) []float64 {
	return mat.Row(nil, ind, ds.Features)
}

//validatedDimensions checks the consistency of the feature matrix and the
//label slice and returns the number of examples and the feature dimension.
func (ds Dataset) validatedDimensions() (h, w int) {
	h, w = ds.Features.Dims()
	if len(ds.Labels) != h {
		log.Panicf("the label count %d is not equal to the feature row count %d", len(ds.Labels), h)
	}
	return
}

//Without returns a copy of the dataset with one example removed.
func (ds Dataset) Without(ind int) (out Dataset) {
	h, w := ds.validatedDimensions()
	out.Features = mat.NewDense(h-1, w, nil)
	out.Labels = make([]int, 0, h-1)
	for p := 0; p < h; p++ {
		if p == ind {
			continue
		}
		out.Features.SetRow(len(out.Labels), ds.Row(p))
		out.Labels = append(out.Labels, ds.Labels[p])
	}
	return
}

//FeatureRanges computes the per-dimension min/max envelope of the dataset,
//the usual way to obtain the threshold prior for a forest trained on it.
func (ds Dataset) FeatureRanges() (ranges []FeatureRange) {
	h, w := ds.Features.Dims()
	ranges = make([]FeatureRange, w)
	for q := 0; q < w; q++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for p := 0; p < h; p++ {
			v := ds.Features.At(p, q)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		ranges[q] = FeatureRange{Min: lo, Max: hi}
	}
	return
}

//NumClasses returns one past the largest label in the dataset.
func (ds Dataset) NumClasses() (numClasses int) {
	for _, label := range ds.Labels {
		if label+1 > numClasses {
			numClasses = label + 1
		}
	}
	return
}

//ReadNpy reads the content of an npy file into a dense matrix.
func ReadNpy(fileName string) (denseMat *mat.Dense) {
	f, err := os.Open(fileName)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { HandleError(f.Close()) }()

	r, err := npyio.NewReader(f)
	if err != nil {
		log.Fatal(err)
	}

	denseMat = &mat.Dense{}
	HandleError(r.Read(denseMat))
	return
}

//ReadDataset reads the two components of a data set and unites them into one
//Dataset object. Labels are stored as an h-by-1 float array on disk.
func ReadDataset(fileNameFeatures, fileNameLabels string) (ds Dataset) {
	log.Print("\ttry to load features <", fileNameFeatures, ">")
	ds.Features = ReadNpy(fileNameFeatures)
	log.Print("\ttry to load labels <", fileNameLabels, ">")
	rawLabels := ReadNpy(fileNameLabels)

	h, _ := rawLabels.Dims()
	ds.Labels = make([]int, h)
	for p := 0; p < h; p++ {
		ds.Labels[p] = int(rawLabels.At(p, 0))
	}
	ds.validatedDimensions()
	return
}

//GenerateBlobs builds a synthetic classification dataset: n examples drawn
//from numClasses Gaussian blobs in dim dimensions, class c centered at
//(3c, 3c, ...). Handy for demos and stream experiments.
func GenerateBlobs(n, numClasses, dim int, spread float64, rng *rand.Rand) (ds Dataset) {
	ds.Features = mat.NewDense(n, dim, nil)
	ds.Labels = make([]int, n)
	for p := 0; p < n; p++ {
		label := rng.Intn(numClasses)
		ds.Labels[p] = label
		center := 3 * float64(label)
		for q := 0; q < dim; q++ {
			ds.Features.Set(p, q, center+spread*rng.NormFloat64())
		}
	}
	return
}
