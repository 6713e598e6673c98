package orfl

import (
	"encoding/json"
	"log"
	"os"
)

type paramDump struct {
	NumClasses int
	MinSamples int
	MinGain    float64
	Gamma      float64
	NumTests   int
	Lam        float64
	Metric     string
}

type treeDump struct {
	Nodes      []TreeNode
	Age        int
	OOBCorrect []int
	OOBTotal   []int
}

type forestDump struct {
	Param      paramDump
	Ranges     []FeatureRange
	NumTrees   int
	ThreadsNum int
	Trees      []treeDump
}

//Save writes the forest to a JSON model file. Candidate split tables are
//training-only state and are not persisted; committed splits, class counts
//and out-of-bag accumulators round-trip.
func (forest *Forest) Save(filename string) {
	dest, err := os.Create(filename)
	if err != nil {
		log.Print("can't open file ", filename, " to write")
	}
	HandleError(err)
	defer func() { HandleError(dest.Close()) }()

	dump := forestDump{
		Param: paramDump{
			NumClasses: forest.params.Param.NumClasses,
			MinSamples: forest.params.Param.MinSamples,
			MinGain:    forest.params.Param.MinGain,
			Gamma:      forest.params.Param.Gamma,
			NumTests:   forest.params.Param.NumTests,
			Lam:        forest.params.Param.Lam,
			Metric:     forest.params.Param.Metric.Name(),
		},
		Ranges:     forest.ranges,
		NumTrees:   len(forest.Trees),
		ThreadsNum: forest.threads,
	}
	for _, tree := range forest.Trees {
		dump.Trees = append(dump.Trees, treeDump{
			Nodes:      tree.Nodes,
			Age:        tree.Age,
			OOBCorrect: tree.OOBCorrect,
			OOBTotal:   tree.OOBTotal,
		})
	}

	modelByteRepr, err := json.MarshalIndent(dump, "", "  ")
	HandleError(err)

	_, err = dest.Write(modelByteRepr)
	HandleError(err)
}

//LoadModel reads a JSON model file back into a usable forest. Every loaded
//leaf gets a freshly drawn candidate table, so training can continue from
//where the saved forest left off.
func LoadModel(filename string, seed int64) (forest *Forest) {
	source, err := os.Open(filename)
	HandleError(err)
	defer func() { HandleError(source.Close()) }()

	var dump forestDump
	decoder := json.NewDecoder(source)
	HandleError(decoder.Decode(&dump))

	forest = NewForest(ForestParams{
		NumTrees: dump.NumTrees,
		Param: Param{
			NumClasses: dump.Param.NumClasses,
			MinSamples: dump.Param.MinSamples,
			MinGain:    dump.Param.MinGain,
			Gamma:      dump.Param.Gamma,
			NumTests:   dump.Param.NumTests,
			Lam:        dump.Param.Lam,
			Metric:     MetricByName(dump.Param.Metric),
		},
		Ranges:     dump.Ranges,
		ThreadsNum: dump.ThreadsNum,
		Seed:       seed,
	})
	for i, td := range dump.Trees {
		tree := forest.Trees[i]
		tree.Nodes = td.Nodes
		tree.Age = td.Age
		tree.OOBCorrect = td.OOBCorrect
		tree.OOBTotal = td.OOBTotal
		for _, node := range tree.Nodes {
			if node.IsLeaf() {
				node.Stats.drawCandidates(tree.param, tree.ranges, tree.rng)
			}
		}
	}
	return
}
