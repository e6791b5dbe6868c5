package ops

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// ExpOp records out = exp(x). d(exp(x))/dx = exp(x) = out.
type ExpOp struct{ unary }

// NewExpOp creates the record for out = exp(x).
func NewExpOp(in, out *tensor.RawTensor) *ExpOp {
	return &ExpOp{unary{in, out}}
}

func (op *ExpOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Mul(grad, op.out)}
}

// LogOp records out = ln(x). d(ln(x))/dx = 1/x.
type LogOp struct{ unary }

// NewLogOp creates the record for out = ln(x).
func NewLogOp(in, out *tensor.RawTensor) *LogOp {
	return &LogOp{unary{in, out}}
}

func (op *LogOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Div(grad, op.in)}
}

// SqrtOp records out = √x. d(√x)/dx = 1/(2√x) = 1/(2·out).
type SqrtOp struct{ unary }

// NewSqrtOp creates the record for out = √x.
func NewSqrtOp(in, out *tensor.RawTensor) *SqrtOp {
	return &SqrtOp{unary{in, out}}
}

func (op *SqrtOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	half := backend.MulScalar(grad, 0.5)
	return []*tensor.RawTensor{backend.Div(half, op.out)}
}

// alloc creates an uninitialized gradient tensor, panicking on the kinds
// of shape errors that indicate a bug in the recording op itself.
func alloc(name string, shape tensor.Shape, dtype tensor.DataType, device tensor.Device) *tensor.RawTensor {
	out, err := tensor.NewRaw(shape, dtype, device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}
	return out
}
