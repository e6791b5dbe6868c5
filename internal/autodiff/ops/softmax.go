package ops

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// SoftmaxOp records out = softmax(x, dim).
//
// With s = softmax(x), the Jacobian-vector product collapses to
//
//	dx_j = s_j * (grad_j - Σ_i grad_i * s_i)
//
// per softmax lane, so only the cached output is needed for backward.
type SoftmaxOp struct {
	unary
	dim int
}

// NewSoftmaxOp creates the record for a softmax. dim must be normalized
// to [0, ndim).
func NewSoftmaxOp(in, out *tensor.RawTensor, dim int) *SoftmaxOp {
	return &SoftmaxOp{unary{in, out}, dim}
}

func (op *SoftmaxOp) Backward(grad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	in := op.in
	dst := alloc("softmax", in.Shape(), in.DType(), in.Device())
	outer, size, inner := splitDim(in.Shape(), op.dim)

	switch in.DType() {
	case tensor.Float32:
		softmaxGrad(dst.AsFloat32(), grad.AsFloat32(), op.out.AsFloat32(), outer, size, inner)
	case tensor.Float64:
		softmaxGrad(dst.AsFloat64(), grad.AsFloat64(), op.out.AsFloat64(), outer, size, inner)
	default:
		panic(fmt.Sprintf("softmax: unsupported dtype %s", in.DType()))
	}
	return []*tensor.RawTensor{dst}
}

func softmaxGrad[T ~float32 | ~float64](dst, grad, s []T, outer, size, inner int) {
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o*size*inner + in

			var dot float64
			for j := 0; j < size; j++ {
				idx := base + j*inner
				dot += float64(grad[idx]) * float64(s[idx])
			}
			for j := 0; j < size; j++ {
				idx := base + j*inner
				dst[idx] = s[idx] * (grad[idx] - T(dot))
			}
		}
	}
}

// splitDim factors a shape around dim into (outer, size, inner) extents
// so a kernel can walk the dim lanes of a contiguous tensor.
func splitDim(shape tensor.Shape, dim int) (outer, size, inner int) {
	outer, inner = 1, 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}
	size = shape[dim]
	for d := dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}
	return outer, size, inner
}
