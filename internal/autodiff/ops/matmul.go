package ops

import "github.com/kiln-ml/kiln/internal/tensor"

// MatMulOp records out = a @ b for 2D operands.
//
// d(A@B)/dA = grad @ Bᵀ and d(A@B)/dB = Aᵀ @ grad.
type MatMulOp struct{ binary }

// NewMatMulOp creates the record for out = a @ b.
func NewMatMulOp(a, b, out *tensor.RawTensor) *MatMulOp {
	return &MatMulOp{binary{a, b, out}}
}

func (op *MatMulOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradA := backend.MatMul(grad, backend.Transpose(op.b, 1, 0))
	gradB := backend.MatMul(backend.Transpose(op.a, 1, 0), grad)
	return []*tensor.RawTensor{gradA, gradB}
}
