package ops

import "github.com/kiln-ml/kiln/internal/tensor"

// ReshapeOp records out = reshape(in). Gradients reshape straight back.
type ReshapeOp struct{ unary }

// NewReshapeOp creates the record for a reshape.
func NewReshapeOp(in, out *tensor.RawTensor) *ReshapeOp {
	return &ReshapeOp{unary{in, out}}
}

func (op *ReshapeOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Reshape(grad, op.in.Shape())}
}

// TransposeOp records out = transpose(in, axes). The gradient is the
// output gradient permuted by the inverse axes.
type TransposeOp struct {
	unary
	axes []int
}

// NewTransposeOp creates the record for a transpose. axes must already be
// the full normalized permutation the forward pass used.
func NewTransposeOp(in, out *tensor.RawTensor, axes []int) *TransposeOp {
	op := &TransposeOp{unary: unary{in, out}}
	op.axes = append(op.axes, axes...)
	return op
}

func (op *TransposeOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inverse := make([]int, len(op.axes))
	for i, ax := range op.axes {
		inverse[ax] = i
	}
	return []*tensor.RawTensor{backend.Transpose(grad, inverse...)}
}

// ExpandOp records out = expand(in, shape). The gradient sums back over
// the stretched dimensions.
type ExpandOp struct{ unary }

// NewExpandOp creates the record for a broadcast expansion.
func NewExpandOp(in, out *tensor.RawTensor) *ExpandOp {
	return &ExpandOp{unary{in, out}}
}

func (op *ExpandOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{unbroadcast(grad, op.in.Shape(), backend)}
}
