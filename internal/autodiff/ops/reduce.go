package ops

import "github.com/kiln-ml/kiln/internal/tensor"

// SumOp records out = Σx over every element. The scalar output gradient
// broadcasts back to every input position.
type SumOp struct{ unary }

// NewSumOp creates the record for a full-tensor sum.
func NewSumOp(in, out *tensor.RawTensor) *SumOp {
	return &SumOp{unary{in, out}}
}

func (op *SumOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Expand(grad, op.in.Shape())}
}

// SumDimOp records out = Σx along one dimension.
type SumDimOp struct {
	unary
	dim     int
	keepDim bool
}

// NewSumDimOp creates the record for a per-dimension sum. dim must be
// normalized to [0, ndim).
func NewSumDimOp(in, out *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	return &SumDimOp{unary{in, out}, dim, keepDim}
}

func (op *SumDimOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{spreadDim(grad, op.in.Shape(), op.dim, op.keepDim, backend)}
}

// MeanDimOp records out = mean(x) along one dimension. The gradient is
// the SumDim gradient scaled by 1/n.
type MeanDimOp struct {
	unary
	dim     int
	keepDim bool
}

// NewMeanDimOp creates the record for a per-dimension mean. dim must be
// normalized to [0, ndim).
func NewMeanDimOp(in, out *tensor.RawTensor, dim int, keepDim bool) *MeanDimOp {
	return &MeanDimOp{unary{in, out}, dim, keepDim}
}

func (op *MeanDimOp) Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	n := op.in.Shape()[op.dim]
	scaled := backend.DivScalar(grad, float64(n))
	return []*tensor.RawTensor{spreadDim(scaled, op.in.Shape(), op.dim, op.keepDim, backend)}
}

// spreadDim expands a reduced gradient back over the reduced dimension.
func spreadDim(grad *tensor.RawTensor, target tensor.Shape, dim int, keepDim bool, backend tensor.Backend) *tensor.RawTensor {
	if !keepDim {
		kept := target.Clone()
		kept[dim] = 1
		grad = backend.Reshape(grad, kept)
	}
	return backend.Expand(grad, target)
}
