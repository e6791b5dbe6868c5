// Package autodiff layers reverse-mode differentiation over any compute
// backend.
//
// Engine is a decorator: it satisfies tensor.Backend by delegating every
// kernel to the backend it wraps, and while its Tape is recording it
// appends one ops.Operation per call. Tape.Backward then replays the
// recorded graph in reverse and accumulates a gradient per tensor.
//
// Beyond the core Backend contract the engine carries the differentiable
// network operations (ReLU, Sigmoid, Tanh, CrossEntropy, MSE). Layers
// that need them assert for the method instead of widening the Backend
// interface, so plain backends stay small.
//
//	engine := autodiff.New(cpu.New())
//	engine.Tape().StartRecording()
//	y := x.Mul(x)
//	grads := autodiff.Backward(y, engine)
//	grads[x.Raw()] // dy/dx
package autodiff

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/autodiff/ops"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Engine wraps a backend with gradient recording. It implements
// tensor.Backend, so tensors parameterized on *Engine[B] route every
// operation through the tape.
type Engine[B tensor.Backend] struct {
	inner B
	tape  *Tape
}

// New wraps a backend with a fresh, non-recording tape.
func New[B tensor.Backend](inner B) *Engine[B] {
	return &Engine[B]{inner: inner, tape: NewTape()}
}

// Tape returns the engine's gradient tape for recording control.
func (e *Engine[B]) Tape() *Tape { return e.tape }

// Inner returns the wrapped backend.
func (e *Engine[B]) Inner() B { return e.inner }

// Name returns the decorated backend name.
func (e *Engine[B]) Name() string { return "Autodiff(" + e.inner.Name() + ")" }

// Device returns the wrapped backend's device.
func (e *Engine[B]) Device() tensor.Device { return e.inner.Device() }

// Recorder is any backend carrying a gradient tape. *Engine implements it.
type Recorder interface {
	tensor.Backend
	Tape() *Tape
}

// Backward seeds the gradient of out with ones and walks the tape in
// reverse. The returned map holds one gradient per RawTensor the graph
// touched, keyed by identity.
func Backward[T tensor.DType, B Recorder](out *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	tape := backend.Tape()
	if tape.Len() == 0 {
		panic("autodiff: empty tape (was recording started before the forward pass?)")
	}

	seed, err := tensor.NewRaw(out.Shape(), out.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("autodiff: seed gradient: %v", err))
	}
	switch out.DType() {
	case tensor.Float32:
		data := seed.AsFloat32()
		for i := range data {
			data[i] = 1
		}
	case tensor.Float64:
		data := seed.AsFloat64()
		for i := range data {
			data[i] = 1
		}
	default:
		panic(fmt.Sprintf("autodiff: cannot differentiate dtype %s", out.DType()))
	}

	return tape.Backward(out.Raw(), seed, backend)
}

// Add computes a + b and records it.
//
// The Pin calls keep operands out of the inner backend's in-place reuse
// path for the duration of the kernel; a recorded graph node must never
// double as somebody's scratch buffer.
func (e *Engine[B]) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	defer a.Pin()()
	defer b.Pin()()

	out := e.inner.Add(a, b)
	if e.tape.Recording() {
		e.tape.Record(ops.NewAddOp(a, b, out))
	}
	return out
}

// Sub computes a - b and records it.
func (e *Engine[B]) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	defer a.Pin()()
	defer b.Pin()()

	out := e.inner.Sub(a, b)
	if e.tape.Recording() {
		e.tape.Record(ops.NewSubOp(a, b, out))
	}
	return out
}

// Mul computes a * b and records it.
func (e *Engine[B]) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	defer a.Pin()()
	defer b.Pin()()

	out := e.inner.Mul(a, b)
	if e.tape.Recording() {
		e.tape.Record(ops.NewMulOp(a, b, out))
	}
	return out
}

// Div computes a / b and records it.
func (e *Engine[B]) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	defer a.Pin()()
	defer b.Pin()()

	out := e.inner.Div(a, b)
	if e.tape.Recording() {
		e.tape.Record(ops.NewDivOp(a, b, out))
	}
	return out
}

// MatMul computes a @ b and records it.
func (e *Engine[B]) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	defer a.Pin()()
	defer b.Pin()()

	out := e.inner.MatMul(a, b)
	if e.tape.Recording() {
		e.tape.Record(ops.NewMatMulOp(a, b, out))
	}
	return out
}

// Reshape reinterprets x under a new shape and records it.
func (e *Engine[B]) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	defer x.Pin()()

	out := e.inner.Reshape(x, shape)
	if e.tape.Recording() {
		e.tape.Record(ops.NewReshapeOp(x, out))
	}
	return out
}

// Transpose permutes x and records it.
func (e *Engine[B]) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	defer x.Pin()()

	out := e.inner.Transpose(x, axes...)
	if e.tape.Recording() {
		// The backward pass needs the full permutation, so normalize
		// the default (reverse all axes) here.
		if len(axes) == 0 {
			n := len(x.Shape())
			axes = make([]int, n)
			for i := range axes {
				axes[i] = n - 1 - i
			}
		}
		e.tape.Record(ops.NewTransposeOp(x, out, axes))
	}
	return out
}

// Expand broadcasts x to a larger shape and records it.
func (e *Engine[B]) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	defer x.Pin()()

	out := e.inner.Expand(x, shape)
	if e.tape.Recording() {
		e.tape.Record(ops.NewExpandOp(x, out))
	}
	return out
}

// AddScalar computes x + scalar and records it.
func (e *Engine[B]) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	defer x.Pin()()

	out := e.inner.AddScalar(x, scalar)
	if e.tape.Recording() {
		e.tape.Record(ops.NewAddScalarOp(x, out))
	}
	return out
}

// SubScalar computes x - scalar and records it.
func (e *Engine[B]) SubScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	defer x.Pin()()

	out := e.inner.SubScalar(x, scalar)
	if e.tape.Recording() {
		e.tape.Record(ops.NewSubScalarOp(x, out))
	}
	return out
}

// MulScalar computes x * scalar and records it.
func (e *Engine[B]) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	defer x.Pin()()

	out := e.inner.MulScalar(x, scalar)
	if e.tape.Recording() {
		e.tape.Record(ops.NewMulScalarOp(x, out, scalar))
	}
	return out
}

// DivScalar computes x / scalar and records it.
func (e *Engine[B]) DivScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	defer x.Pin()()

	out := e.inner.DivScalar(x, scalar)
	if e.tape.Recording() {
		e.tape.Record(ops.NewDivScalarOp(x, out, scalar))
	}
	return out
}

// Exp computes eˣ and records it.
func (e *Engine[B]) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.Pin()()

	out := e.inner.Exp(x)
	if e.tape.Recording() {
		e.tape.Record(ops.NewExpOp(x, out))
	}
	return out
}

// Log computes ln(x) and records it.
func (e *Engine[B]) Log(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.Pin()()

	out := e.inner.Log(x)
	if e.tape.Recording() {
		e.tape.Record(ops.NewLogOp(x, out))
	}
	return out
}

// Sqrt computes √x and records it.
func (e *Engine[B]) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.Pin()()

	out := e.inner.Sqrt(x)
	if e.tape.Recording() {
		e.tape.Record(ops.NewSqrtOp(x, out))
	}
	return out
}

// Softmax normalizes along dim and records it.
func (e *Engine[B]) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	defer x.Pin()()

	out := e.inner.Softmax(x, dim)
	if e.tape.Recording() {
		if dim < 0 {
			dim += len(x.Shape())
		}
		e.tape.Record(ops.NewSoftmaxOp(x, out, dim))
	}
	return out
}

// Sum reduces x to a scalar and records it.
func (e *Engine[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.Pin()()

	out := e.inner.Sum(x)
	if e.tape.Recording() {
		e.tape.Record(ops.NewSumOp(x, out))
	}
	return out
}

// SumDim reduces one dimension and records it.
func (e *Engine[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	defer x.Pin()()

	out := e.inner.SumDim(x, dim, keepDim)
	if e.tape.Recording() {
		if dim < 0 {
			dim += len(x.Shape())
		}
		e.tape.Record(ops.NewSumDimOp(x, out, dim, keepDim))
	}
	return out
}

// MeanDim averages one dimension and records it.
func (e *Engine[B]) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	defer x.Pin()()

	out := e.inner.MeanDim(x, dim, keepDim)
	if e.tape.Recording() {
		if dim < 0 {
			dim += len(x.Shape())
		}
		e.tape.Record(ops.NewMeanDimOp(x, out, dim, keepDim))
	}
	return out
}

// Argmax is not differentiable and passes through without recording.
func (e *Engine[B]) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	return e.inner.Argmax(x, dim)
}

// Cast is not differentiable and passes through without recording.
func (e *Engine[B]) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	return e.inner.Cast(x, dtype)
}

// ReLU computes max(0, x) and records it. Not part of the core Backend
// contract; layers reach it by capability assertion.
func (e *Engine[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	out := ops.ReLU(x)
	if e.tape.Recording() {
		e.tape.Record(ops.NewReLUOp(x, out))
	}
	return out
}

// Sigmoid computes 1/(1+e⁻ˣ) and records it.
func (e *Engine[B]) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	out := ops.Sigmoid(x)
	if e.tape.Recording() {
		e.tape.Record(ops.NewSigmoidOp(x, out))
	}
	return out
}

// Tanh computes tanh(x) and records it.
func (e *Engine[B]) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	out := ops.Tanh(x)
	if e.tape.Recording() {
		e.tape.Record(ops.NewTanhOp(x, out))
	}
	return out
}

// CrossEntropy computes the fused softmax negative log-likelihood of
// int32 class targets under 2D logits and records it.
func (e *Engine[B]) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	out := ops.CrossEntropy(logits, targets)
	if e.tape.Recording() {
		e.tape.Record(ops.NewCrossEntropyOp(logits, targets, out))
	}
	return out
}

// MSE computes mean squared error against a constant target and records it.
func (e *Engine[B]) MSE(pred, target *tensor.RawTensor) *tensor.RawTensor {
	out := ops.MSE(pred, target)
	if e.tape.Recording() {
		e.tape.Record(ops.NewMSEOp(pred, target, out))
	}
	return out
}
