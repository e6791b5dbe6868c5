package ops

import (
	"fmt"
	"math"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// ReLU computes max(0, x) into a fresh tensor. Float dtypes only.
func ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return apply("relu", x, func(v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	})
}

// Sigmoid computes 1/(1+exp(-x)) into a fresh tensor. Float dtypes only.
func Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return apply("sigmoid", x, func(v float64) float64 {
		return 1 / (1 + math.Exp(-v))
	})
}

// Tanh computes tanh(x) into a fresh tensor. Float dtypes only.
func Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return apply("tanh", x, math.Tanh)
}

// ReLUOp records out = max(0, x). The gradient passes where x > 0 and is
// zero elsewhere.
type ReLUOp struct{ unary }

// NewReLUOp creates the record for a ReLU.
func NewReLUOp(in, out *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{unary{in, out}}
}

func (op *ReLUOp) Backward(grad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	dst := alloc("relu", op.in.Shape(), op.in.DType(), op.in.Device())
	switch op.in.DType() {
	case tensor.Float32:
		reluGrad(dst.AsFloat32(), grad.AsFloat32(), op.in.AsFloat32())
	case tensor.Float64:
		reluGrad(dst.AsFloat64(), grad.AsFloat64(), op.in.AsFloat64())
	default:
		panic(fmt.Sprintf("relu: unsupported dtype %s", op.in.DType()))
	}
	return []*tensor.RawTensor{dst}
}

func reluGrad[T ~float32 | ~float64](dst, grad, x []T) {
	for i := range dst {
		if x[i] > 0 {
			dst[i] = grad[i]
		} else {
			dst[i] = 0
		}
	}
}

// SigmoidOp records out = σ(x). With s = σ(x) cached as the output, the
// gradient is grad * s * (1-s).
type SigmoidOp struct{ unary }

// NewSigmoidOp creates the record for a sigmoid.
func NewSigmoidOp(in, out *tensor.RawTensor) *SigmoidOp {
	return &SigmoidOp{unary{in, out}}
}

func (op *SigmoidOp) Backward(grad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	dst := alloc("sigmoid", op.in.Shape(), op.in.DType(), op.in.Device())
	switch op.in.DType() {
	case tensor.Float32:
		sigmoidGrad(dst.AsFloat32(), grad.AsFloat32(), op.out.AsFloat32())
	case tensor.Float64:
		sigmoidGrad(dst.AsFloat64(), grad.AsFloat64(), op.out.AsFloat64())
	default:
		panic(fmt.Sprintf("sigmoid: unsupported dtype %s", op.in.DType()))
	}
	return []*tensor.RawTensor{dst}
}

func sigmoidGrad[T ~float32 | ~float64](dst, grad, s []T) {
	for i := range dst {
		dst[i] = grad[i] * s[i] * (1 - s[i])
	}
}

// TanhOp records out = tanh(x). The gradient is grad * (1 - out²).
type TanhOp struct{ unary }

// NewTanhOp creates the record for a tanh.
func NewTanhOp(in, out *tensor.RawTensor) *TanhOp {
	return &TanhOp{unary{in, out}}
}

func (op *TanhOp) Backward(grad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	dst := alloc("tanh", op.in.Shape(), op.in.DType(), op.in.Device())
	switch op.in.DType() {
	case tensor.Float32:
		tanhGrad(dst.AsFloat32(), grad.AsFloat32(), op.out.AsFloat32())
	case tensor.Float64:
		tanhGrad(dst.AsFloat64(), grad.AsFloat64(), op.out.AsFloat64())
	default:
		panic(fmt.Sprintf("tanh: unsupported dtype %s", op.in.DType()))
	}
	return []*tensor.RawTensor{dst}
}

func tanhGrad[T ~float32 | ~float64](dst, grad, s []T) {
	for i := range dst {
		dst[i] = grad[i] * (1 - s[i]*s[i])
	}
}

// apply maps f element-wise into a fresh tensor of the same shape.
func apply(name string, x *tensor.RawTensor, f func(float64) float64) *tensor.RawTensor {
	out := alloc(name, x.Shape(), x.DType(), x.Device())
	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), out.AsFloat32()
		for i, v := range src {
			dst[i] = float32(f(float64(v)))
		}
	case tensor.Float64:
		src, dst := x.AsFloat64(), out.AsFloat64()
		for i, v := range src {
			dst[i] = f(v)
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}
	return out
}
