package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/kiln-ml/kiln/dataset"
	"github.com/kiln-ml/kiln/internal/config"
	"github.com/kiln-ml/kiln/internal/serialization"
	"github.com/kiln-ml/kiln/nn"
	"github.com/kiln-ml/kiln/train"
)

// runEval rebuilds the model the run file describes, loads its weights
// from a saved model or checkpoint and reports loss and accuracy on
// the test split.
func runEval(args []string) error {
	fs := flag.NewFlagSet("kiln eval", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML run file the model was trained with")
	checkpointPath := fs.String("checkpoint", "", "model or checkpoint file to evaluate")
	batch := fs.Int("batch", 0, "override dataset.batch_size")
	data := fs.String("data", "", "override dataset.dir")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *checkpointPath == "" {
		return fmt.Errorf("eval: -checkpoint is required")
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "batch":
			cfg.Dataset.BatchSize = *batch
		case "data":
			cfg.Dataset.Dir = *data
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	_, testSet, err := loadData(cfg.Dataset, cfg.Seed)
	if err != nil {
		return err
	}
	if testSet.Len() == 0 {
		return fmt.Errorf("eval: dataset %s has no test split", cfg.Dataset.Kind)
	}

	eng := newEngine()
	rng := rand.New(rand.NewSource(cfg.Seed))
	model, err := buildModel(cfg.Model, testSet.Features(), testSet.NumClasses(), rng, eng)
	if err != nil {
		return err
	}
	if err := serialization.LoadModel(*checkpointPath, model.Parameters()); err != nil {
		return err
	}

	logger := log.New(os.Stderr, "kiln: ", log.LstdFlags)
	if header, err := serialization.ReadHeader(*checkpointPath); err == nil && header.Run != nil {
		logger.Printf("checkpoint from epoch %d: train loss=%.4f acc=%.2f%%",
			header.Run.Epoch, header.Run.Loss, header.Run.Accuracy*100)
	}

	loader := dataset.NewLoader(testSet, dataset.LoaderConfig{
		BatchSize: cfg.Dataset.BatchSize,
	}, eng)
	loss, acc, err := train.Evaluate[engine](model, nn.NewCrossEntropyLoss(eng), eng, loader)
	if err != nil {
		return err
	}
	fmt.Printf("loss=%.4f  accuracy=%.2f%%  (%d samples)\n", loss, acc*100, testSet.Len())
	return nil
}
