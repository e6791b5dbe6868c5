// Package cpu implements the CPU compute backend. Dense products go through
// gonum BLAS; element-wise kernels are generic loops with an in-place fast
// path for uniquely referenced buffers.
package cpu

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// CPUBackend executes tensor operations on the host CPU.
type CPUBackend struct {
	device tensor.Device
}

// New creates a CPU backend.
func New() *CPUBackend {
	return &CPUBackend{device: tensor.CPU}
}

// Name returns the backend name.
func (c *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (c *CPUBackend) Device() tensor.Device {
	return c.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (c *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.arith("add", opAdd, a, b)
}

// Sub performs element-wise subtraction with broadcasting.
func (c *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.arith("sub", opSub, a, b)
}

// Mul performs element-wise multiplication with broadcasting.
func (c *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.arith("mul", opMul, a, b)
}

// Div performs element-wise division with broadcasting.
func (c *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.arith("div", opDiv, a, b)
}

// arith picks the execution path shared by the four arithmetic ops: write
// into a when it holds the only buffer reference, a fresh vectorized pass
// when shapes already agree, and the strided broadcast walk otherwise.
func (c *CPUBackend) arith(name string, op arithOp, a, b *tensor.RawTensor) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", name, a.DType(), b.DType()))
	}

	outShape, broadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	if !broadcast && a.Shape().Equal(b.Shape()) {
		if a.Unique() {
			arithInplace(op, a, b)
			return a
		}
		result := c.alloc(name, outShape, a.DType())
		arithVectorized(op, result, a, b)
		return result
	}

	result := c.alloc(name, outShape, a.DType())
	arithBroadcast(op, result, a, b, outShape)
	return result
}

func (c *CPUBackend) alloc(name string, shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, dtype, c.device)
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}
	return result
}

// Reshape returns the same storage viewed under a new shape. Zero-copy.
func (c *CPUBackend) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	view, err := x.WithShape(shape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return view
}

// Transpose permutes the tensor's dimensions. With no axes the order is
// reversed, which for 2D is the ordinary transpose.
func (c *CPUBackend) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: %d axes for a %dD tensor", len(axes), ndim))
	}
	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim {
			panic(fmt.Sprintf("transpose: axis %d out of range for %dD tensor", ax, ndim))
		}
		if seen[ax] {
			panic(fmt.Sprintf("transpose: duplicate axis %d", ax))
		}
		seen[ax] = true
	}

	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		outShape[i] = shape[ax]
	}

	result := c.alloc("transpose", outShape, x.DType())
	switch x.DType() {
	case tensor.Float32:
		permute(result.AsFloat32(), x.AsFloat32(), shape, outShape, axes)
	case tensor.Float64:
		permute(result.AsFloat64(), x.AsFloat64(), shape, outShape, axes)
	case tensor.Int32:
		permute(result.AsInt32(), x.AsInt32(), shape, outShape, axes)
	case tensor.Int64:
		permute(result.AsInt64(), x.AsInt64(), shape, outShape, axes)
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", x.DType()))
	}
	return result
}

// permute copies src into dst following the axis permutation.
func permute[T tensor.DType](dst, src []T, inShape, outShape tensor.Shape, axes []int) {
	inStrides := inShape.Strides()
	ndim := len(outShape)
	coord := make([]int, ndim)

	for i := range dst {
		srcIdx := 0
		for d, ax := range axes {
			srcIdx += coord[d] * inStrides[ax]
		}
		dst[i] = src[srcIdx]

		for d := ndim - 1; d >= 0; d-- {
			coord[d]++
			if coord[d] < outShape[d] {
				break
			}
			coord[d] = 0
		}
	}
}
