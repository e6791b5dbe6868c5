package cpu

import (
	"fmt"
	"math"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Exp computes element-wise e^x.
func (c *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return c.mapFloat("exp", x, math.Exp)
}

// Log computes the element-wise natural logarithm. Panics on non-positive
// input: upstream layers are expected to keep their arguments in domain.
func (c *CPUBackend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return c.mapFloat("log", x, func(v float64) float64 {
		if v <= 0 {
			panic(fmt.Sprintf("log: non-positive value %g", v))
		}
		return math.Log(v)
	})
}

// Sqrt computes the element-wise square root.
func (c *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return c.mapFloat("sqrt", x, func(v float64) float64 {
		if v < 0 {
			panic(fmt.Sprintf("sqrt: negative value %g", v))
		}
		return math.Sqrt(v)
	})
}

func (c *CPUBackend) mapFloat(name string, x *tensor.RawTensor, f func(float64) float64) *tensor.RawTensor {
	result := c.alloc(name, x.Shape(), x.DType())

	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), result.AsFloat32()
		for i, v := range src {
			dst[i] = float32(f(float64(v)))
		}
	case tensor.Float64:
		src, dst := x.AsFloat64(), result.AsFloat64()
		for i, v := range src {
			dst[i] = f(v)
		}
	default:
		panic(fmt.Sprintf("%s: float tensors required, got %s", name, x.DType()))
	}
	return result
}
