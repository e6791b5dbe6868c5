package main

import (
	"fmt"
	"math/rand"

	"github.com/kiln-ml/kiln/autodiff"
	"github.com/kiln-ml/kiln/backend/cpu"
	"github.com/kiln-ml/kiln/dataset"
	"github.com/kiln-ml/kiln/internal/config"
	"github.com/kiln-ml/kiln/nn"
	"github.com/kiln-ml/kiln/optim"
)

// engine is the backend every kiln run computes on.
type engine = *autodiff.Engine[*cpu.Backend]

func newEngine() engine { return autodiff.New(cpu.New()) }

// loadData resolves the configured source into train and test splits.
// Sources that ship without a test split hold out the last tenth.
func loadData(cfg config.DatasetConfig, seed int64) (trainSet, testSet *dataset.Dataset, err error) {
	switch cfg.Kind {
	case "mnist":
		return dataset.LoadMNIST(cfg.Dir)
	case "fashion":
		return dataset.LoadFashionMNIST(cfg.Dir)
	case "csv":
		full, err := dataset.LoadCSV(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		trainSet, testSet = full.Split(0.1)
		return trainSet, testSet, nil
	case "synthetic":
		trainSet, testSet = dataset.Synthetic(cfg.Samples, seed).Split(0.1)
		return trainSet, testSet, nil
	default:
		return nil, nil, fmt.Errorf("unknown dataset kind %q", cfg.Kind)
	}
}

// buildModel assembles the configured MLP over the dataset's input
// width and class count.
func buildModel(cfg config.ModelConfig, features, classes int, rng *rand.Rand, eng engine) (*nn.MLP[engine], error) {
	act, err := nn.ParseActivation(cfg.Activation)
	if err != nil {
		return nil, err
	}
	sizes := make([]int, 0, len(cfg.Hidden)+2)
	sizes = append(sizes, features)
	sizes = append(sizes, cfg.Hidden...)
	sizes = append(sizes, classes)
	return nn.NewMLPWith(sizes, act, rng, eng), nil
}

func buildOptimizer(cfg config.OptimizerConfig, params []*nn.Parameter[engine]) (optim.Optimizer, error) {
	switch cfg.Kind {
	case "sgd":
		return optim.NewSGD(params, optim.SGDConfig{
			LR:       cfg.LR,
			Momentum: cfg.Momentum,
		}), nil
	case "adam":
		return optim.NewAdam(params, optim.AdamConfig{
			LR:    cfg.LR,
			Betas: [2]float32{cfg.Beta1, cfg.Beta2},
			Eps:   cfg.Eps,
		}), nil
	default:
		return nil, fmt.Errorf("unknown optimizer kind %q", cfg.Kind)
	}
}
