package train_test

import (
	"errors"
	"io"
	"log"
	"math/rand"
	"testing"

	"github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/internal/backend/cpu"
	"github.com/kiln-ml/kiln/internal/dataset"
	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/optim"
	"github.com/kiln-ml/kiln/internal/tensor"
	"github.com/kiln-ml/kiln/internal/train"
)

type eng = *autodiff.Engine[*cpu.CPUBackend]

type rig struct {
	engine  eng
	model   *nn.MLP[eng]
	opt     *optim.SGD[eng]
	trainer *train.Trainer[eng]
	loader  *dataset.Loader[eng]
}

func newRig(t *testing.T, cfg train.Config, samples int) *rig {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}

	engine := autodiff.New(cpu.New())
	model := nn.NewMLP([]int{784, 16, 10}, rand.New(rand.NewSource(1)), engine)
	opt := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.1})
	trainer := train.New[eng](model, nn.NewCrossEntropyLoss(engine), opt, engine, cfg)

	data := dataset.Synthetic(samples, 1)
	loader := dataset.NewLoader(data, dataset.LoaderConfig{BatchSize: 8, Shuffle: true, Seed: 3}, engine)

	return &rig{engine: engine, model: model, opt: opt, trainer: trainer, loader: loader}
}

func snapshot(model train.Classifier[eng]) [][]float32 {
	var out [][]float32
	for _, p := range model.Parameters() {
		out = append(out, append([]float32(nil), p.Tensor().Data()...))
	}
	return out
}

func paramsEqual(a, b [][]float32) bool {
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

func firstBatch(t *testing.T, r *rig) *dataset.Batch[eng] {
	t.Helper()
	r.loader.Reset()
	batch, ok := r.loader.Next()
	if !ok {
		t.Fatal("loader yielded no batch")
	}
	return batch
}

func TestStep_UpdatesParameters(t *testing.T) {
	r := newRig(t, train.Config{}, 16)
	before := snapshot(r.model)

	loss, err := r.trainer.Step(firstBatch(t, r))
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if loss <= 0 {
		t.Errorf("loss = %g, want a positive cross-entropy", loss)
	}
	if paramsEqual(before, snapshot(r.model)) {
		t.Error("parameters unchanged after a step")
	}
}

func TestStep_ClearsTape(t *testing.T) {
	r := newRig(t, train.Config{}, 16)

	if _, err := r.trainer.Step(firstBatch(t, r)); err != nil {
		t.Fatalf("Step: %v", err)
	}

	tape := r.engine.Tape()
	if tape.Len() != 0 {
		t.Errorf("tape holds %d ops after a step, want 0", tape.Len())
	}
	if tape.Recording() {
		t.Error("recording still on after a step")
	}
}

func TestStep_ShapeMismatch(t *testing.T) {
	r := newRig(t, train.Config{}, 16)
	before := snapshot(r.model)

	// 10 features per sample into a 784-feature classifier.
	images, err := tensor.FromSlice(make([]float32, 20), tensor.Shape{2, 10}, r.engine)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	labels, err := tensor.FromSlice([]int32{0, 1}, tensor.Shape{2}, r.engine)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	_, err = r.trainer.Step(&dataset.Batch[eng]{Images: images, Labels: labels})

	var shapeErr *train.ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("err = %v, want *train.ShapeError", err)
	}
	if shapeErr.Got != 10 || shapeErr.Want != 784 {
		t.Errorf("ShapeError = {Got: %d, Want: %d}, want {Got: 10, Want: 784}", shapeErr.Got, shapeErr.Want)
	}
	if !paramsEqual(before, snapshot(r.model)) {
		t.Error("parameters modified by a rejected step")
	}
	if r.engine.Tape().Len() != 0 {
		t.Error("rejected step left ops on the tape")
	}
}

func TestStep_FlattensImageBatches(t *testing.T) {
	r := newRig(t, train.Config{}, 16)

	// [batch, rows, cols] input flattens to [batch, 784].
	images := tensor.Rand[float32](tensor.Shape{4, 28, 28}, rand.New(rand.NewSource(2)), r.engine)
	labels, err := tensor.FromSlice([]int32{0, 1, 2, 3}, tensor.Shape{4}, r.engine)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	if _, err := r.trainer.Step(&dataset.Batch[eng]{Images: images, Labels: labels}); err != nil {
		t.Fatalf("Step: %v", err)
	}
}

// scriptedCriterion returns a fixed loss per call and records nothing,
// which pins epoch averaging down to exact arithmetic.
type scriptedCriterion struct {
	engine eng
	losses []float32
	calls  int
}

func (c *scriptedCriterion) Forward(_ *tensor.Tensor[float32, eng], _ *tensor.Tensor[int32, eng]) *tensor.Tensor[float32, eng] {
	v := c.losses[c.calls%len(c.losses)]
	c.calls++
	return tensor.Full[float32](tensor.Shape{}, v, c.engine)
}

func TestEpoch_AveragesBatchLosses(t *testing.T) {
	engine := autodiff.New(cpu.New())
	model := nn.NewMLP([]int{784, 8, 10}, rand.New(rand.NewSource(1)), engine)
	opt := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.1})
	criterion := &scriptedCriterion{engine: engine, losses: []float32{2, 4, 6}}
	trainer := train.New[eng](model, criterion, opt, engine, train.Config{Logger: log.New(io.Discard, "", 0)})

	loader := dataset.NewLoader(dataset.Synthetic(12, 1), dataset.LoaderConfig{BatchSize: 4}, engine)

	stats, err := trainer.Epoch(loader)
	if err != nil {
		t.Fatalf("Epoch: %v", err)
	}
	if stats.Batches != 3 {
		t.Fatalf("Batches = %d, want 3", stats.Batches)
	}
	if stats.Loss != 4 {
		t.Errorf("Loss = %g, want (2+4+6)/3 = 4", stats.Loss)
	}
}

func TestEpoch_NoBatches(t *testing.T) {
	r := newRig(t, train.Config{}, 16)
	empty := dataset.NewLoader(&dataset.Dataset{Rows: 28, Cols: 28}, dataset.LoaderConfig{BatchSize: 8}, r.engine)

	_, err := r.trainer.Epoch(empty)
	if !errors.Is(err, train.ErrNoBatches) {
		t.Fatalf("err = %v, want ErrNoBatches", err)
	}
}

func TestFit_RecordsHistory(t *testing.T) {
	r := newRig(t, train.Config{Epochs: 3}, 24)

	history, err := r.trainer.Fit(r.loader)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if history.Len() != 3 {
		t.Fatalf("history has %d epochs, want 3", history.Len())
	}
	for i, stats := range history.Epochs() {
		if stats.Epoch != i+1 {
			t.Errorf("epoch %d numbered %d", i, stats.Epoch)
		}
		if stats.Batches != 3 {
			t.Errorf("epoch %d stepped %d batches, want 3", stats.Epoch, stats.Batches)
		}
	}
}

func TestFit_LossFallsOnSeparableData(t *testing.T) {
	r := newRig(t, train.Config{Epochs: 5}, 40)

	history, err := r.trainer.Fit(r.loader)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	losses := history.Losses()
	if losses[len(losses)-1] >= losses[0] {
		t.Errorf("loss went from %g to %g over 5 epochs, want a decrease", losses[0], losses[len(losses)-1])
	}
}

func TestFit_HookStopsEarly(t *testing.T) {
	stopAfter := 2
	var seen []int
	cfg := train.Config{
		Epochs: 10,
		Hook: func(stats train.EpochStats) bool {
			seen = append(seen, stats.Epoch)
			return stats.Epoch >= stopAfter
		},
	}
	r := newRig(t, cfg, 16)

	history, err := r.trainer.Fit(r.loader)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if history.Len() != stopAfter {
		t.Errorf("history has %d epochs, want %d", history.Len(), stopAfter)
	}
	if len(seen) != stopAfter {
		t.Errorf("hook ran %d times, want %d", len(seen), stopAfter)
	}
}

// dryingSource behaves like its inner source for a number of epochs
// and then comes up empty.
type dryingSource struct {
	inner  train.Source[eng]
	epochs int
	resets int
}

func (s *dryingSource) Reset() {
	s.resets++
	s.inner.Reset()
}

func (s *dryingSource) Next() (*dataset.Batch[eng], bool) {
	if s.resets > s.epochs {
		return nil, false
	}
	return s.inner.Next()
}

func (s *dryingSource) Batches() int { return s.inner.Batches() }

func TestFit_ReturnsPartialHistoryOnError(t *testing.T) {
	r := newRig(t, train.Config{Epochs: 5}, 16)
	src := &dryingSource{inner: r.loader, epochs: 2}

	history, err := r.trainer.Fit(src)
	if !errors.Is(err, train.ErrNoBatches) {
		t.Fatalf("err = %v, want ErrNoBatches", err)
	}
	if history.Len() != 2 {
		t.Errorf("history has %d epochs, want the 2 completed before the failure", history.Len())
	}
}

func TestFit_Deterministic(t *testing.T) {
	runOnce := func() ([]float64, [][]float32) {
		r := newRig(t, train.Config{Epochs: 3}, 24)
		history, err := r.trainer.Fit(r.loader)
		if err != nil {
			t.Fatalf("Fit: %v", err)
		}
		return history.Losses(), snapshot(r.model)
	}

	losses1, params1 := runOnce()
	losses2, params2 := runOnce()

	for i := range losses1 {
		if losses1[i] != losses2[i] {
			t.Errorf("epoch %d loss differs between identical runs: %g vs %g", i+1, losses1[i], losses2[i])
		}
	}
	if !paramsEqual(params1, params2) {
		t.Error("final parameters differ between identical runs")
	}
}

func TestEvaluate(t *testing.T) {
	r := newRig(t, train.Config{Epochs: 2}, 24)
	if _, err := r.trainer.Fit(r.loader); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	before := snapshot(r.model)
	loss, accuracy, err := train.Evaluate[eng](r.model, nn.NewCrossEntropyLoss(r.engine), r.engine, r.loader)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if loss <= 0 {
		t.Errorf("loss = %g, want positive", loss)
	}
	if accuracy < 0 || accuracy > 1 {
		t.Errorf("accuracy = %g, want within [0, 1]", accuracy)
	}
	if !paramsEqual(before, snapshot(r.model)) {
		t.Error("Evaluate modified parameters")
	}
	if r.engine.Tape().Len() != 0 {
		t.Error("Evaluate left ops on the tape")
	}
}

func TestEvaluate_NoBatches(t *testing.T) {
	r := newRig(t, train.Config{}, 16)
	empty := dataset.NewLoader(&dataset.Dataset{Rows: 28, Cols: 28}, dataset.LoaderConfig{BatchSize: 4}, r.engine)

	_, _, err := train.Evaluate[eng](r.model, nn.NewCrossEntropyLoss(r.engine), r.engine, empty)
	if !errors.Is(err, train.ErrNoBatches) {
		t.Fatalf("err = %v, want ErrNoBatches", err)
	}
}
