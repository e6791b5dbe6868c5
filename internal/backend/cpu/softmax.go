package cpu

import (
	"fmt"
	"math"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Softmax normalizes along dim: softmax(x)_i = exp(x_i) / sum_j exp(x_j).
// The max is subtracted per slice before exponentiating so large logits do
// not overflow.
func (c *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	dim = normalizeDim("softmax", dim, len(shape))

	result := c.alloc("softmax", shape, x.DType())
	outer, size, inner := splitAt(shape, dim)

	switch x.DType() {
	case tensor.Float32:
		softmaxKernel(result.AsFloat32(), x.AsFloat32(), outer, size, inner)
	case tensor.Float64:
		softmaxKernel(result.AsFloat64(), x.AsFloat64(), outer, size, inner)
	default:
		panic(fmt.Sprintf("softmax: float tensors required, got %s", x.DType()))
	}
	return result
}

func softmaxKernel[T interface{ ~float32 | ~float64 }](dst, src []T, outer, size, inner int) {
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o * size * inner

			maxV := src[base+in]
			for s := 1; s < size; s++ {
				if v := src[base+s*inner+in]; v > maxV {
					maxV = v
				}
			}

			var sum T
			for s := 0; s < size; s++ {
				idx := base + s*inner + in
				e := T(math.Exp(float64(src[idx] - maxV)))
				dst[idx] = e
				sum += e
			}

			for s := 0; s < size; s++ {
				dst[base+s*inner+in] /= sum
			}
		}
	}
}
