package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/sbinet/npyio"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"onlineforest/orfl"
	"onlineforest/pkg/utils"
)

func decodeConfig(srcConfig string, out interface{}) {
	file, err := os.Open(srcConfig)
	orfl.HandleError(err)
	defer func() { orfl.HandleError(file.Close()) }()

	decoder := json.NewDecoder(file)
	orfl.HandleError(decoder.Decode(out))
}

type ForestConfig struct {
	NumTrees   int     `json:"num_trees"`
	NumClasses int     `json:"num_classes"`
	MinSamples int     `json:"min_samples"`
	MinGain    float64 `json:"min_gain"`
	Gamma      float64 `json:"gamma"`
	NumTests   int     `json:"num_tests"`
	Lam        float64 `json:"lam"`
	Metric     string  `json:"metric"`
	ThreadsNum int     `json:"threads_num"`
	Seed       int64   `json:"seed"`
}

func (cfg ForestConfig) forestParams(ranges []orfl.FeatureRange) orfl.ForestParams {
	metric := cfg.Metric
	if metric == "" {
		metric = "entropy"
	}
	return orfl.ForestParams{
		NumTrees: cfg.NumTrees,
		Param: orfl.Param{
			NumClasses: cfg.NumClasses,
			MinSamples: cfg.MinSamples,
			MinGain:    cfg.MinGain,
			Gamma:      cfg.Gamma,
			NumTests:   cfg.NumTests,
			Lam:        cfg.Lam,
			Metric:     orfl.MetricByName(metric),
		},
		Ranges:     ranges,
		ThreadsNum: cfg.ThreadsNum,
		Seed:       cfg.Seed,
	}
}

type TrainConfig struct {
	ForestConfig
	FileNameTrainFeatures string `json:"filename_train_features"`
	FileNameTrainLabels   string `json:"filename_train_labels"`
	FileNameTestFeatures  string `json:"filename_test_features"`
	FileNameTestLabels    string `json:"filename_test_labels"`
	FileNameModel         string `json:"filename_model"`
	FileNameCurvePng      string `json:"filename_curve_png"`
	Epochs                int    `json:"epochs"`
}

func train(srcConfig string) {
	logger := utils.Logger()
	defer logger.Sync()

	var trainConfig TrainConfig
	decodeConfig(srcConfig, &trainConfig)
	if trainConfig.Epochs < 1 {
		trainConfig.Epochs = 1
	}

	dsTrain := orfl.ReadDataset(trainConfig.FileNameTrainFeatures, trainConfig.FileNameTrainLabels)
	dsEval := dsTrain
	if trainConfig.FileNameTestFeatures != "" {
		dsEval = orfl.ReadDataset(trainConfig.FileNameTestFeatures, trainConfig.FileNameTestLabels)
	}

	forest := orfl.NewForest(trainConfig.forestParams(dsTrain.FeatureRanges()))

	curve := make([]float64, 0, trainConfig.Epochs)
	for epoch := 1; epoch <= trainConfig.Epochs; epoch++ {
		forest.Train(dsTrain)
		accuracy := forest.Accuracy(dsEval)
		curve = append(curve, accuracy)
		logger.Info("epoch done",
			zap.Int("epoch", epoch),
			zap.Float64("accuracy", accuracy),
			zap.Float64("mean_tree_size", forest.MeanTreeSize()),
			zap.Float64("mean_num_leaves", forest.MeanNumLeaves()),
			zap.Float64("mean_max_depth", forest.MeanMaxDepth()),
		)
	}

	if trainConfig.FileNameModel != "" {
		forest.Save(trainConfig.FileNameModel)
		logger.Info("model saved", zap.String("path", trainConfig.FileNameModel))
	}
	if trainConfig.FileNameCurvePng != "" {
		plotLearningCurve(curve, trainConfig.FileNameCurvePng)
		logger.Info("learning curve saved", zap.String("path", trainConfig.FileNameCurvePng))
	}
}

func plotLearningCurve(accuracies []float64, filename string) {
	p := plot.New()
	p.Title.Text = "Online learning curve"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "accuracy"

	points := make(plotter.XYs, len(accuracies))
	for i, accuracy := range accuracies {
		points[i].X = float64(i + 1)
		points[i].Y = accuracy
	}
	orfl.HandleError(plotutil.AddLinePoints(p, "accuracy", points))
	orfl.HandleError(p.Save(6*vg.Inch, 4*vg.Inch, filename))
}

type PredictConfig struct {
	FileNameFeatures   string `json:"filename_features"`
	FileNameModel      string `json:"filename_model"`
	FileNamePrediction string `json:"filename_prediction"`
}

func predict(srcConfig string) {
	var predictConfig PredictConfig
	decodeConfig(srcConfig, &predictConfig)

	features := orfl.ReadNpy(predictConfig.FileNameFeatures)
	forest := orfl.LoadModel(predictConfig.FileNameModel, time.Now().UnixNano())

	h, _ := features.Dims()
	prediction := mat.NewDense(h, 1, nil)
	for p := 0; p < h; p++ {
		prediction.Set(p, 0, float64(forest.Predict(mat.Row(nil, p, features))))
	}

	dst, err := os.Create(predictConfig.FileNamePrediction)
	orfl.HandleError(err)
	defer func() { orfl.HandleError(dst.Close()) }()
	orfl.HandleError(npyio.Write(dst, prediction))
}

type CrossValidateConfig struct {
	ForestConfig
	FileNameFeatures string `json:"filename_features"`
	FileNameLabels   string `json:"filename_labels"`
}

func crossValidate(srcConfig string) {
	logger := utils.Logger()
	defer logger.Sync()

	var cvConfig CrossValidateConfig
	decodeConfig(srcConfig, &cvConfig)

	ds := orfl.ReadDataset(cvConfig.FileNameFeatures, cvConfig.FileNameLabels)
	forest := orfl.NewForest(cvConfig.forestParams(ds.FeatureRanges()))

	confusion := forest.LeaveOneOutCrossValidate(ds)
	fmt.Println("leave-one-out confusion matrix:")
	fmt.Printf("%.0f\n", mat.Formatted(confusion))
	logger.Info("cross-validation done", zap.Float64("accuracy", accuracyFromConfusion(confusion)))
}

func accuracyFromConfusion(confusion *mat.Dense) float64 {
	h, w := confusion.Dims()
	diagonal, total := 0.0, 0.0
	for p := 0; p < h; p++ {
		for q := 0; q < w; q++ {
			total += confusion.At(p, q)
			if p == q {
				diagonal += confusion.At(p, q)
			}
		}
	}
	return diagonal / total
}

type GraphConfig struct {
	FileNameModel     string `json:"filename_model"`
	FigureType        string `json:"figure_type"`
	PicturesDirectory string `json:"pictures_directory"`
	DumpPrefix        string `json:"dump_prefix"`
}

func graph(srcConfig string) {
	var graphConfig GraphConfig
	decodeConfig(srcConfig, &graphConfig)

	forest := orfl.LoadModel(graphConfig.FileNameModel, time.Now().UnixNano())
	forest.RenderTrees(graphConfig.DumpPrefix, graphConfig.FigureType, graphConfig.PicturesDirectory)
}

//demo trains on a synthetic blob stream and reports evaluation metrics.
//It ignores the config argument so that it can run out of the box.
func demo(string) {
	logger := utils.Logger()
	defer logger.Sync()

	rng := rand.New(rand.NewSource(1))
	ds := orfl.GenerateBlobs(2000, 3, 2, 0.8, rng)

	forest := orfl.NewForest(orfl.ForestParams{
		NumTrees: 20,
		Param: orfl.Param{
			NumClasses: 3,
			MinSamples: 10,
			MinGain:    0.05,
			Gamma:      0.001,
			Lam:        1,
			Metric:     orfl.Entropy{},
		},
		Ranges:     ds.FeatureRanges(),
		ThreadsNum: runtime.NumCPU(),
		Seed:       1,
	})

	for epoch := 1; epoch <= 3; epoch++ {
		forest.Train(ds)
		logger.Info("demo epoch done",
			zap.Int("epoch", epoch),
			zap.Float64("accuracy", forest.Accuracy(ds)),
		)
	}

	fmt.Println("confusion matrix:")
	fmt.Printf("%.0f\n", mat.Formatted(forest.ConfusionMatrix(ds)))
}

func main() {
	runMode := flag.String("mode", "train", "you can select 'train', 'predict', 'cv', 'graph' or 'demo' modes")
	config := flag.String("config", "orf_config.json", "a config file for the run of the program")
	memprofile := flag.String("memprofile", "", "write memory profile to `file`")

	flag.Parse()

	map[string]func(string){
		"train":   train,
		"predict": predict,
		"cv":      crossValidate,
		"graph":   graph,
		"demo":    demo,
	}[*runMode](*config)

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		orfl.HandleError(err)
		defer func() { orfl.HandleError(f.Close()) }()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal("could not write memory profile: ", err)
		}
	}
}
