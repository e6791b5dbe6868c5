package cpu

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// AddScalar adds a scalar to every element.
func (c *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return c.scalarOp("addscalar", opAdd, x, scalar)
}

// SubScalar subtracts a scalar from every element.
func (c *CPUBackend) SubScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return c.scalarOp("subscalar", opSub, x, scalar)
}

// MulScalar multiplies every element by a scalar.
func (c *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return c.scalarOp("mulscalar", opMul, x, scalar)
}

// DivScalar divides every element by a scalar.
func (c *CPUBackend) DivScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	if f, ok := toFloat64(scalar); ok && f == 0 {
		panic("divscalar: division by zero")
	}
	return c.scalarOp("divscalar", opDiv, x, scalar)
}

func (c *CPUBackend) scalarOp(name string, op arithOp, x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result := c.alloc(name, x.Shape(), x.DType())

	switch x.DType() {
	case tensor.Float32:
		scalarKernel(op, result.AsFloat32(), x.AsFloat32(), convertScalar[float32](name, scalar))
	case tensor.Float64:
		scalarKernel(op, result.AsFloat64(), x.AsFloat64(), convertScalar[float64](name, scalar))
	case tensor.Int32:
		scalarKernel(op, result.AsInt32(), x.AsInt32(), convertScalar[int32](name, scalar))
	case tensor.Int64:
		scalarKernel(op, result.AsInt64(), x.AsInt64(), convertScalar[int64](name, scalar))
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}
	return result
}

func scalarKernel[T tensor.DType](op arithOp, dst, src []T, s T) {
	switch op {
	case opAdd:
		for i, v := range src {
			dst[i] = v + s
		}
	case opSub:
		for i, v := range src {
			dst[i] = v - s
		}
	case opMul:
		for i, v := range src {
			dst[i] = v * s
		}
	case opDiv:
		for i, v := range src {
			dst[i] = v / s
		}
	}
}

// convertScalar coerces the scalar argument to the tensor's element type.
func convertScalar[T tensor.DType](name string, scalar any) T {
	switch v := scalar.(type) {
	case float32:
		return T(v)
	case float64:
		return T(v)
	case int:
		return T(v)
	case int32:
		return T(v)
	case int64:
		return T(v)
	default:
		panic(fmt.Sprintf("%s: unsupported scalar type %T", name, scalar))
	}
}

func toFloat64(scalar any) (float64, bool) {
	switch v := scalar.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
