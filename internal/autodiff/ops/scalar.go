package ops

import "github.com/kiln-ml/kiln/internal/tensor"

// AddScalarOp records out = x + c. The gradient passes through.
type AddScalarOp struct{ unary }

// NewAddScalarOp creates the record for out = x + c.
func NewAddScalarOp(in, out *tensor.RawTensor) *AddScalarOp {
	return &AddScalarOp{unary{in, out}}
}

func (op *AddScalarOp) Backward(grad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{grad.Clone()}
}

// SubScalarOp records out = x - c. The gradient passes through.
type SubScalarOp struct{ unary }

// NewSubScalarOp creates the record for out = x - c.
func NewSubScalarOp(in, out *tensor.RawTensor) *SubScalarOp {
	return &SubScalarOp{unary{in, out}}
}

func (op *SubScalarOp) Backward(grad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{grad.Clone()}
}

// MulScalarOp records out = x * c.
type MulScalarOp struct {
	unary
	scalar any
}

// NewMulScalarOp creates the record for out = x * c.
func NewMulScalarOp(in, out *tensor.RawTensor, scalar any) *MulScalarOp {
	return &MulScalarOp{unary{in, out}, scalar}
}

func (op *MulScalarOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MulScalar(grad, op.scalar)}
}

// DivScalarOp records out = x / c.
type DivScalarOp struct {
	unary
	scalar any
}

// NewDivScalarOp creates the record for out = x / c.
func NewDivScalarOp(in, out *tensor.RawTensor, scalar any) *DivScalarOp {
	return &DivScalarOp{unary{in, out}, scalar}
}

func (op *DivScalarOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.DivScalar(grad, op.scalar)}
}
