// Package train drives the optimization of kiln classifiers.
//
// The Trainer owns no numeric code. Each step wires four injected
// capabilities together: a data source yields a batch, the classifier
// produces logits under tape recording, the criterion reduces them to
// a scalar loss, reverse-mode differentiation turns the loss into a
// gradient map, and the optimizer folds the gradients into the
// parameters. Gradient clearing and tape clearing bracket every step.
//
// The loop is synchronous and single threaded. Given a fixed shuffle
// seed and fixed initial parameters, two runs produce identical
// parameter trajectories and identical histories.
package train

import (
	"fmt"
	"log"
	"time"

	"github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/internal/dataset"
	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/optim"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Classifier maps a batch of flattened inputs to per-class scores.
// nn.MLP satisfies it.
type Classifier[B tensor.Backend] interface {
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]
	Parameters() []*nn.Parameter[B]
	InFeatures() int
}

// Criterion reduces logits and integer class targets to a scalar loss.
// nn.CrossEntropyLoss satisfies it.
type Criterion[B tensor.Backend] interface {
	Forward(logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B]
}

// Source yields the mini-batches of one epoch. Reset begins a new
// epoch and may reshuffle. Next returns false once the epoch is
// exhausted. Batches reports how many batches a full epoch yields.
// dataset.Loader satisfies it.
type Source[B tensor.Backend] interface {
	Reset()
	Next() (*dataset.Batch[B], bool)
	Batches() int
}

// Config tunes a Trainer.
type Config struct {
	// Epochs is the number of passes Fit makes over the source.
	// Values below 1 are treated as 1.
	Epochs int

	// LogEvery is the number of epochs between progress lines;
	// 0 logs every epoch.
	LogEvery int

	// Hook, when set, runs after each completed epoch. Returning
	// true stops training early.
	Hook func(EpochStats) bool

	// Logger receives progress lines. Nil falls back to log.Default().
	Logger *log.Logger
}

// Trainer runs the training loop over injected capabilities. The type
// parameter is the autodiff decorator the model's tensors live on.
type Trainer[B autodiff.Recorder] struct {
	model     Classifier[B]
	criterion Criterion[B]
	opt       optim.Optimizer
	engine    B
	cfg       Config
}

// New assembles a Trainer. The optimizer must have been built over the
// same parameters the model reports, and engine must be the decorator
// behind the model's tensors.
func New[B autodiff.Recorder](model Classifier[B], criterion Criterion[B], opt optim.Optimizer, engine B, cfg Config) *Trainer[B] {
	if cfg.Epochs < 1 {
		cfg.Epochs = 1
	}
	return &Trainer[B]{
		model:     model,
		criterion: criterion,
		opt:       opt,
		engine:    engine,
		cfg:       cfg,
	}
}

// Step runs one optimization step on batch and returns the batch loss.
//
// The order is fixed: gradients are zeroed first, the input is
// validated and flattened before any forward work, forward and loss
// run under tape recording, backward produces the gradient map, the
// optimizer folds it in, and the tape is cleared last. A *ShapeError
// return means no parameter was touched.
func (t *Trainer[B]) Step(batch *dataset.Batch[B]) (float32, error) {
	loss, _, err := t.step(batch)
	return loss, err
}

func (t *Trainer[B]) step(batch *dataset.Batch[B]) (loss float32, accuracy float64, err error) {
	t.opt.ZeroGrad()

	input, err := flattenInput(batch.Images, t.model.InFeatures())
	if err != nil {
		return 0, 0, err
	}

	tape := t.engine.Tape()
	tape.StartRecording()
	defer func() {
		tape.StopRecording()
		tape.Clear()
	}()

	logits := t.model.Forward(input)
	lossT := t.criterion.Forward(logits, batch.Labels)

	grads := autodiff.Backward(lossT, t.engine)
	t.opt.Step(grads)

	return lossT.Item(), nn.Accuracy(logits, batch.Labels), nil
}

// Epoch resets src and steps through every batch it yields. An empty
// epoch returns ErrNoBatches with the trainer state unchanged; a step
// error aborts the epoch and surfaces as is.
func (t *Trainer[B]) Epoch(src Source[B]) (EpochStats, error) {
	start := time.Now()
	src.Reset()

	var (
		lossSum float64
		accSum  float64
		samples int
		batches int
	)
	for {
		batch, ok := src.Next()
		if !ok {
			break
		}
		loss, acc, err := t.step(batch)
		if err != nil {
			return EpochStats{}, err
		}
		n := batch.Size()
		lossSum += float64(loss)
		accSum += acc * float64(n)
		samples += n
		batches++
	}
	if batches == 0 {
		return EpochStats{}, ErrNoBatches
	}

	return EpochStats{
		Loss:     lossSum / float64(batches),
		Accuracy: accSum / float64(samples),
		Batches:  batches,
		Elapsed:  time.Since(start),
	}, nil
}

// Fit trains for cfg.Epochs epochs and returns the collected history.
// ErrNoBatches and *ShapeError abort the run; the history gathered up
// to the failing epoch comes back alongside the error.
func (t *Trainer[B]) Fit(src Source[B]) (*History, error) {
	history := &History{}
	logEvery := t.cfg.LogEvery
	if logEvery < 1 {
		logEvery = 1
	}

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		stats, err := t.Epoch(src)
		if err != nil {
			return history, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		stats.Epoch = epoch
		history.Record(stats)

		if epoch%logEvery == 0 || epoch == t.cfg.Epochs {
			t.logf("epoch %d/%d  loss=%.4f  acc=%.2f%%  lr=%g  (%d batches in %s)",
				epoch, t.cfg.Epochs, stats.Loss, stats.Accuracy*100,
				t.opt.GetLR(), stats.Batches, stats.Elapsed.Round(time.Millisecond))
		}
		if t.cfg.Hook != nil && t.cfg.Hook(stats) {
			break
		}
	}
	return history, nil
}

func (t *Trainer[B]) logf(format string, args ...any) {
	logger := t.cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}

// flattenInput validates the per-sample width against the classifier
// and reshapes higher-rank image batches down to [batch, features].
// It runs before recording starts, so the reshape never lands on the
// tape.
func flattenInput[B tensor.Backend](images *tensor.Tensor[float32, B], want int) (*tensor.Tensor[float32, B], error) {
	shape := images.Shape()
	batch := shape[0]
	per := images.NumElements() / batch
	if per != want {
		return nil, &ShapeError{Got: per, Want: want}
	}
	if len(shape) == 2 {
		return images, nil
	}
	return images.Reshape(batch, per), nil
}
