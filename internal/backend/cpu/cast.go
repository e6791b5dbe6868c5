package cpu

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Cast converts x to another element type. Casting to the same dtype
// returns x unchanged.
func (c *CPUBackend) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	if x.DType() == dtype {
		return x
	}

	result := c.alloc("cast", x.Shape(), dtype)
	switch x.DType() {
	case tensor.Float32:
		castInto(result, x.AsFloat32())
	case tensor.Float64:
		castInto(result, x.AsFloat64())
	case tensor.Int32:
		castInto(result, x.AsInt32())
	case tensor.Int64:
		castInto(result, x.AsInt64())
	default:
		panic(fmt.Sprintf("cast: unsupported source dtype %s", x.DType()))
	}
	return result
}

func castInto[S tensor.DType](result *tensor.RawTensor, src []S) {
	switch result.DType() {
	case tensor.Float32:
		castSlice(result.AsFloat32(), src)
	case tensor.Float64:
		castSlice(result.AsFloat64(), src)
	case tensor.Int32:
		castSlice(result.AsInt32(), src)
	case tensor.Int64:
		castSlice(result.AsInt64(), src)
	default:
		panic(fmt.Sprintf("cast: unsupported target dtype %s", result.DType()))
	}
}

func castSlice[D, S tensor.DType](dst []D, src []S) {
	for i, v := range src {
		dst[i] = D(v)
	}
}
