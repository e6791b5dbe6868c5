package cpu

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Expand broadcasts x to a larger shape, materializing the repeated
// elements.
func (c *CPUBackend) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	outShape, _, err := tensor.BroadcastShapes(x.Shape(), shape)
	if err != nil {
		panic(fmt.Sprintf("expand: %v", err))
	}
	if !outShape.Equal(shape) {
		panic(fmt.Sprintf("expand: %v does not broadcast to %v", x.Shape(), shape))
	}

	result := c.alloc("expand", shape, x.DType())
	switch x.DType() {
	case tensor.Float32:
		expandKernel(result.AsFloat32(), x.AsFloat32(), x.Shape(), shape)
	case tensor.Float64:
		expandKernel(result.AsFloat64(), x.AsFloat64(), x.Shape(), shape)
	case tensor.Int32:
		expandKernel(result.AsInt32(), x.AsInt32(), x.Shape(), shape)
	case tensor.Int64:
		expandKernel(result.AsInt64(), x.AsInt64(), x.Shape(), shape)
	default:
		panic(fmt.Sprintf("expand: unsupported dtype %s", x.DType()))
	}
	return result
}

func expandKernel[T tensor.DType](dst, src []T, inShape, outShape tensor.Shape) {
	strides := broadcastStrides(inShape, outShape)
	ndim := len(outShape)
	coord := make([]int, ndim)
	srcIdx := 0

	for i := range dst {
		dst[i] = src[srcIdx]

		for d := ndim - 1; d >= 0; d-- {
			coord[d]++
			srcIdx += strides[d]
			if coord[d] < outShape[d] {
				break
			}
			coord[d] = 0
			srcIdx -= outShape[d] * strides[d]
		}
	}
}
