package nn

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

type crossEntropyBackend interface {
	CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor
}

type mseBackend interface {
	MSE(pred, target *tensor.RawTensor) *tensor.RawTensor
}

// CrossEntropyLoss is the criterion for multi-class classification:
// mean negative log-likelihood of integer targets under
// softmax(logits), fused for stability and the cheap
// (softmax - onehot)/batch gradient.
type CrossEntropyLoss[B tensor.Backend] struct {
	backend B
}

// NewCrossEntropyLoss creates the criterion on the given backend.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{backend: backend}
}

// Forward computes the scalar mean loss for logits [batch, classes]
// against class indices [batch].
func (c *CrossEntropyLoss[B]) Forward(logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	ceb, ok := any(c.backend).(crossEntropyBackend)
	if !ok {
		panic("nn: backend does not implement CrossEntropy (wrap it with autodiff.New)")
	}
	return tensor.New[float32](ceb.CrossEntropy(logits.Raw(), targets.Raw()), c.backend)
}

// Parameters returns nil; losses are parameter-free.
func (c *CrossEntropyLoss[B]) Parameters() []*Parameter[B] { return nil }

// MSELoss computes mean((pred - target)²), the standard regression loss.
type MSELoss[B tensor.Backend] struct {
	backend B
}

// NewMSELoss creates the criterion on the given backend.
func NewMSELoss[B tensor.Backend](backend B) *MSELoss[B] {
	return &MSELoss[B]{backend: backend}
}

// Forward computes the scalar mean loss. Shapes must match exactly.
// Backends without the fused kernel fall back to a composed
// sub-square-mean, which stays differentiable through recorded
// primitives.
func (m *MSELoss[B]) Forward(pred, targets *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !pred.Shape().Equal(targets.Shape()) {
		panic(fmt.Sprintf("nn: MSE shapes differ: %v vs %v", pred.Shape(), targets.Shape()))
	}

	if mb, ok := any(m.backend).(mseBackend); ok {
		return tensor.New[float32](mb.MSE(pred.Raw(), targets.Raw()), m.backend)
	}

	diff := pred.Sub(targets)
	return diff.Mul(diff).Sum().DivScalar(float32(pred.NumElements()))
}

// Parameters returns nil; losses are parameter-free.
func (m *MSELoss[B]) Parameters() []*Parameter[B] { return nil }

// Accuracy returns the fraction of rows whose argmax matches the target
// class, for logits [batch, classes] and targets [batch].
func Accuracy[B tensor.Backend](logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) float64 {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("nn: Accuracy logits must be 2D, got %v", shape))
	}
	if targets.NumElements() != shape[0] {
		panic(fmt.Sprintf("nn: Accuracy batch mismatch: %d logits rows, %d targets", shape[0], targets.NumElements()))
	}
	if shape[0] == 0 {
		return 0
	}

	preds := logits.Argmax(1).Data()
	want := targets.Data()

	correct := 0
	for i := range preds {
		if preds[i] == want[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(preds))
}
