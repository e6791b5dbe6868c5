package cpu

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Sum reduces every element into a scalar-shaped tensor.
func (c *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := c.alloc("sum", tensor.Shape{}, x.DType())

	switch x.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] = sumAll(x.AsFloat32())
	case tensor.Float64:
		result.AsFloat64()[0] = sumAll(x.AsFloat64())
	case tensor.Int32:
		result.AsInt32()[0] = sumAll(x.AsInt32())
	case tensor.Int64:
		result.AsInt64()[0] = sumAll(x.AsInt64())
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}
	return result
}

func sumAll[T tensor.DType](src []T) T {
	var sum T
	for _, v := range src {
		sum += v
	}
	return sum
}

// SumDim sums along dim. With keepDim the reduced dimension stays as size 1.
func (c *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return c.reduceDim("sumdim", x, dim, keepDim, false)
}

// MeanDim averages along dim. With keepDim the reduced dimension stays as
// size 1.
func (c *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return c.reduceDim("meandim", x, dim, keepDim, true)
}

func (c *CPUBackend) reduceDim(name string, x *tensor.RawTensor, dim int, keepDim, mean bool) *tensor.RawTensor {
	shape := x.Shape()
	dim = normalizeDim(name, dim, len(shape))
	outer, size, inner := splitAt(shape, dim)

	outShape := make(tensor.Shape, 0, len(shape))
	for i, d := range shape {
		switch {
		case i != dim:
			outShape = append(outShape, d)
		case keepDim:
			outShape = append(outShape, 1)
		}
	}

	result := c.alloc(name, outShape, x.DType())
	switch x.DType() {
	case tensor.Float32:
		reduceKernel(result.AsFloat32(), x.AsFloat32(), outer, size, inner, mean)
	case tensor.Float64:
		reduceKernel(result.AsFloat64(), x.AsFloat64(), outer, size, inner, mean)
	default:
		panic(fmt.Sprintf("%s: float tensors required, got %s", name, x.DType()))
	}
	return result
}

func reduceKernel[T interface{ ~float32 | ~float64 }](dst, src []T, outer, size, inner int, mean bool) {
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			var sum T
			for s := 0; s < size; s++ {
				sum += src[(o*size+s)*inner+in]
			}
			if mean {
				sum /= T(size)
			}
			dst[o*inner+in] = sum
		}
	}
}

// Argmax returns int32 indices of the maxima along dim. The reduced
// dimension is removed from the result shape.
func (c *CPUBackend) Argmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	dim = normalizeDim("argmax", dim, len(shape))
	outer, size, inner := splitAt(shape, dim)

	outShape := make(tensor.Shape, 0, len(shape)-1)
	for i, d := range shape {
		if i != dim {
			outShape = append(outShape, d)
		}
	}

	result := c.alloc("argmax", outShape, tensor.Int32)
	switch x.DType() {
	case tensor.Float32:
		argmaxKernel(result.AsInt32(), x.AsFloat32(), outer, size, inner)
	case tensor.Float64:
		argmaxKernel(result.AsInt32(), x.AsFloat64(), outer, size, inner)
	case tensor.Int32:
		argmaxKernel(result.AsInt32(), x.AsInt32(), outer, size, inner)
	case tensor.Int64:
		argmaxKernel(result.AsInt32(), x.AsInt64(), outer, size, inner)
	default:
		panic(fmt.Sprintf("argmax: unsupported dtype %s", x.DType()))
	}
	return result
}

func argmaxKernel[T tensor.DType](dst []int32, src []T, outer, size, inner int) {
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			best := src[o*size*inner+in]
			bestIdx := 0
			for s := 1; s < size; s++ {
				if v := src[(o*size+s)*inner+in]; v > best {
					best = v
					bestIdx = s
				}
			}
			dst[o*inner+in] = int32(bestIdx)
		}
	}
}

func normalizeDim(name string, dim, ndim int) int {
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("%s: dimension %d out of range for %dD tensor", name, dim, ndim))
	}
	return dim
}

// splitAt factors a shape into the element counts before, at and after dim.
func splitAt(shape tensor.Shape, dim int) (outer, size, inner int) {
	outer, inner = 1, 1
	for _, d := range shape[:dim] {
		outer *= d
	}
	for _, d := range shape[dim+1:] {
		inner *= d
	}
	return outer, shape[dim], inner
}
