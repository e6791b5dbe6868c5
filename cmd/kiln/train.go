package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/kiln-ml/kiln/dataset"
	"github.com/kiln-ml/kiln/internal/config"
	"github.com/kiln-ml/kiln/internal/monitor"
	"github.com/kiln-ml/kiln/internal/serialization"
	"github.com/kiln-ml/kiln/nn"
	"github.com/kiln-ml/kiln/train"
)

// runTrain loads the run file, applies flag overrides, trains for the
// configured epochs and optionally writes a checkpoint. -resume
// restores parameters from an earlier checkpoint and trains only the
// epochs it has not yet seen. Flags touch the config only when set on
// the command line, so absent flags never clobber run file values.
func runTrain(args []string) error {
	fs := flag.NewFlagSet("kiln train", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML run file (defaults apply when empty)")
	epochs := fs.Int("epochs", 0, "override epochs")
	batch := fs.Int("batch", 0, "override dataset.batch_size")
	lr := fs.Float64("lr", 0, "override optimizer.lr")
	seed := fs.Int64("seed", 0, "override seed")
	data := fs.String("data", "", "override dataset.dir")
	checkpoint := fs.String("checkpoint", "", "override checkpoint path")
	monitorAddr := fs.String("monitor", "", "override monitor.addr")
	resume := fs.String("resume", "", "checkpoint to resume training from")
	if err := fs.Parse(args); err != nil {
		return err
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
		case "epochs":
			cfg.Epochs = *epochs
		case "batch":
			cfg.Dataset.BatchSize = *batch
		case "lr":
			cfg.Optimizer.LR = float32(*lr)
		case "seed":
			cfg.Seed = *seed
		case "data":
			cfg.Dataset.Dir = *data
		case "checkpoint":
			cfg.Checkpoint = *checkpoint
		case "monitor":
			cfg.Monitor.Addr = *monitorAddr
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	trainSet, testSet, err := loadData(cfg.Dataset, cfg.Seed)
	if err != nil {
		return err
	}
	logger := log.New(os.Stderr, "kiln: ", log.LstdFlags)
	logger.Printf("dataset %s: %d train / %d test samples, %d classes",
		cfg.Dataset.Kind, trainSet.Len(), testSet.Len(), trainSet.NumClasses())

	eng := newEngine()
	rng := rand.New(rand.NewSource(cfg.Seed))
	model, err := buildModel(cfg.Model, trainSet.Features(), trainSet.NumClasses(), rng, eng)
	if err != nil {
		return err
	}
	opt, err := buildOptimizer(cfg.Optimizer, model.Parameters())
	if err != nil {
		return err
	}

	startEpoch := 0
	if *resume != "" {
		meta, err := serialization.LoadCheckpoint(*resume, model.Parameters())
		if err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		startEpoch = meta.Epoch
		logger.Printf("resumed %s at epoch %d (loss=%.4f)", *resume, meta.Epoch, meta.Loss)
		if startEpoch >= cfg.Epochs {
			return fmt.Errorf("resume: checkpoint already at epoch %d of %d", startEpoch, cfg.Epochs)
		}
	}

	loader := dataset.NewLoader(trainSet, dataset.LoaderConfig{
		BatchSize: cfg.Dataset.BatchSize,
		Shuffle:   true,
		Seed:      cfg.Seed,
	}, eng)

	trainCfg := train.Config{
		Epochs:   cfg.Epochs - startEpoch,
		LogEvery: cfg.LogEvery,
		Logger:   logger,
	}
	if cfg.Monitor.Addr != "" {
		mon := monitor.New(monitor.Config{Addr: cfg.Monitor.Addr, Logger: logger})
		mon.Start()
		defer mon.Close()
		trainCfg.Hook = mon.Hook()
	}

	trainer := train.New[engine](model, nn.NewCrossEntropyLoss(eng), opt, eng, trainCfg)
	history, err := trainer.Fit(loader)
	if err != nil {
		return err
	}

	if testSet.Len() > 0 {
		testLoader := dataset.NewLoader(testSet, dataset.LoaderConfig{
			BatchSize: cfg.Dataset.BatchSize,
		}, eng)
		loss, acc, err := train.Evaluate[engine](model, nn.NewCrossEntropyLoss(eng), eng, testLoader)
		if err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}
		logger.Printf("test  loss=%.4f  acc=%.2f%%", loss, acc*100)
	}

	if cfg.Checkpoint != "" {
		last, _ := history.Last()
		run := serialization.RunMeta{
			Epoch:     startEpoch + last.Epoch,
			Loss:      last.Loss,
			Accuracy:  last.Accuracy,
			Optimizer: cfg.Optimizer.Kind,
			LR:        float64(cfg.Optimizer.LR),
		}
		if err := serialization.SaveCheckpoint(cfg.Checkpoint, model.Parameters(), run); err != nil {
			return fmt.Errorf("checkpoint: %w", err)
		}
		logger.Printf("checkpoint written to %s", cfg.Checkpoint)
	}
	return nil
}
