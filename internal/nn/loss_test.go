package nn_test

import (
	"math"
	"testing"

	"github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/tensor"
)

func TestCrossEntropyLoss_UniformLogits(t *testing.T) {
	b := newEngine()
	criterion := nn.NewCrossEntropyLoss(b)

	logits := mustTensor(t, make([]float32, 6), tensor.Shape{2, 3}, b)
	targets := mustTensor(t, []int32{0, 2}, tensor.Shape{2}, b)

	loss := criterion.Forward(logits, targets)
	if !loss.Shape().Equal(tensor.Shape{}) {
		t.Fatalf("loss shape = %v, want scalar", loss.Shape())
	}
	if want := float32(math.Log(3)); !almost(loss.Item(), want) {
		t.Errorf("loss = %g, want %g", loss.Item(), want)
	}
}

func TestCrossEntropyLoss_MatchesManual(t *testing.T) {
	b := newEngine()
	criterion := nn.NewCrossEntropyLoss(b)

	logits := mustTensor(t, []float32{1, 2, 3}, tensor.Shape{1, 3}, b)
	targets := mustTensor(t, []int32{2}, tensor.Shape{1}, b)

	lse := math.Log(math.Exp(1) + math.Exp(2) + math.Exp(3))
	want := float32(lse - 3)

	loss := criterion.Forward(logits, targets)
	if !almost(loss.Item(), want) {
		t.Errorf("loss = %g, want %g", loss.Item(), want)
	}
}

func TestCrossEntropyLoss_GradientRowsSumToZero(t *testing.T) {
	b := newEngine()
	criterion := nn.NewCrossEntropyLoss(b)

	b.Tape().StartRecording()
	logits := mustTensor(t, []float32{0.5, -1, 2, 1, 1, 1}, tensor.Shape{2, 3}, b)
	targets := mustTensor(t, []int32{2, 0}, tensor.Shape{2}, b)
	loss := criterion.Forward(logits, targets)

	grads := autodiff.Backward(loss, b)
	grad := grads[logits.Raw()]
	if grad == nil {
		t.Fatal("logits received no gradient")
	}

	// Softmax minus one-hot sums to zero within each row.
	g := grad.AsFloat32()
	for row := 0; row < 2; row++ {
		var sum float32
		for col := 0; col < 3; col++ {
			sum += g[row*3+col]
		}
		if !almost(sum, 0) {
			t.Errorf("row %d gradient sums to %g, want 0", row, sum)
		}
	}
}

func TestCrossEntropyLoss_RejectsShapeMismatch(t *testing.T) {
	b := newEngine()
	criterion := nn.NewCrossEntropyLoss(b)

	logits := mustTensor(t, make([]float32, 6), tensor.Shape{2, 3}, b)
	targets := mustTensor(t, []int32{0, 1, 2}, tensor.Shape{3}, b)

	defer func() {
		if recover() == nil {
			t.Error("batch mismatch between logits and targets must panic")
		}
	}()
	criterion.Forward(logits, targets)
}

func TestMSELoss_Fused(t *testing.T) {
	b := newEngine()
	criterion := nn.NewMSELoss(b)

	pred := mustTensor(t, []float32{3, 5}, tensor.Shape{2}, b)
	targets := mustTensor(t, []float32{1, 2}, tensor.Shape{2}, b)

	loss := criterion.Forward(pred, targets)
	if !almost(loss.Item(), 6.5) {
		t.Errorf("loss = %g, want 6.5", loss.Item())
	}
}

func TestMSELoss_ComposedFallback(t *testing.T) {
	mock := tensor.NewMockBackend()
	criterion := nn.NewMSELoss(mock)

	pred := mustTensor(t, []float32{3, 5}, tensor.Shape{2}, mock)
	targets := mustTensor(t, []float32{1, 2}, tensor.Shape{2}, mock)

	// The mock lacks a fused MSE, so the loss composes primitives.
	loss := criterion.Forward(pred, targets)
	if !almost(loss.Item(), 6.5) {
		t.Errorf("loss = %g, want 6.5", loss.Item())
	}
}

func TestAccuracy(t *testing.T) {
	b := newEngine()

	logits := mustTensor(t, []float32{
		5, 1, 1,
		0, 3, 1,
		2, 0, 1,
	}, tensor.Shape{3, 3}, b)
	targets := mustTensor(t, []int32{0, 1, 2}, tensor.Shape{3}, b)

	got := nn.Accuracy(logits, targets)
	if math.Abs(got-2.0/3.0) > 1e-9 {
		t.Errorf("Accuracy = %g, want %g", got, 2.0/3.0)
	}
}

func TestAccuracy_AllCorrect(t *testing.T) {
	b := newEngine()

	logits := mustTensor(t, []float32{9, 0, 0, 9}, tensor.Shape{2, 2}, b)
	targets := mustTensor(t, []int32{0, 1}, tensor.Shape{2}, b)

	if got := nn.Accuracy(logits, targets); got != 1 {
		t.Errorf("Accuracy = %g, want 1", got)
	}
}
