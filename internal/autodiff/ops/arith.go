package ops

import "github.com/kiln-ml/kiln/internal/tensor"

// AddOp records out = a + b.
//
// d(a+b)/da = 1 and d(a+b)/db = 1, so the output gradient flows to both
// inputs unchanged, modulo broadcast reduction.
type AddOp struct{ binary }

// NewAddOp creates the record for out = a + b.
func NewAddOp(a, b, out *tensor.RawTensor) *AddOp {
	return &AddOp{binary{a, b, out}}
}

func (op *AddOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		unbroadcast(grad, op.a.Shape(), backend),
		unbroadcast(grad, op.b.Shape(), backend),
	}
}

// SubOp records out = a - b.
type SubOp struct{ binary }

// NewSubOp creates the record for out = a - b.
func NewSubOp(a, b, out *tensor.RawTensor) *SubOp {
	return &SubOp{binary{a, b, out}}
}

func (op *SubOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	neg := backend.MulScalar(grad, -1.0)
	return []*tensor.RawTensor{
		unbroadcast(grad, op.a.Shape(), backend),
		unbroadcast(neg, op.b.Shape(), backend),
	}
}

// MulOp records out = a * b.
//
// d(a*b)/da = b and d(a*b)/db = a.
type MulOp struct{ binary }

// NewMulOp creates the record for out = a * b.
func NewMulOp(a, b, out *tensor.RawTensor) *MulOp {
	return &MulOp{binary{a, b, out}}
}

func (op *MulOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradA := backend.Mul(grad, op.b)
	gradB := backend.Mul(grad, op.a)
	return []*tensor.RawTensor{
		unbroadcast(gradA, op.a.Shape(), backend),
		unbroadcast(gradB, op.b.Shape(), backend),
	}
}

// DivOp records out = a / b.
//
// d(a/b)/da = 1/b and d(a/b)/db = -a/b².
type DivOp struct{ binary }

// NewDivOp creates the record for out = a / b.
func NewDivOp(a, b, out *tensor.RawTensor) *DivOp {
	return &DivOp{binary{a, b, out}}
}

func (op *DivOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradA := backend.Div(grad, op.b)

	// -grad * a / b² written as -(grad * out) / b, reusing out = a/b.
	gradB := backend.Div(backend.Mul(grad, op.out), op.b)
	gradB = backend.MulScalar(gradB, -1.0)

	return []*tensor.RawTensor{
		unbroadcast(gradA, op.a.Shape(), backend),
		unbroadcast(gradB, op.b.Shape(), backend),
	}
}

// unbroadcast reduces grad back to target, undoing any broadcast the
// forward pass applied. Broadcasting aligns shapes from the right, so
// extra leading dimensions are summed away first, then every dimension
// the target holds at size 1.
//
// When shapes already match the gradient is returned as a shared-storage
// clone, which keeps it off the backend's in-place path.
func unbroadcast(grad *tensor.RawTensor, target tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	shape := grad.Shape()
	if shape.Equal(target) {
		return grad.Clone()
	}

	if len(target) == 0 {
		return backend.Sum(grad)
	}

	for len(shape) > len(target) {
		grad = backend.SumDim(grad, 0, false)
		shape = grad.Shape()
	}

	for d := range target {
		if target[d] == 1 && shape[d] > 1 {
			grad = backend.SumDim(grad, d, true)
			shape = grad.Shape()
		}
	}

	if !shape.Equal(target) {
		grad = backend.Reshape(grad, target)
	}
	return grad
}
