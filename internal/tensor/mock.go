package tensor

import (
	"fmt"
	"math"
)

// Verify that MockBackend satisfies Backend.
var _ Backend = (*MockBackend)(nil)

// MockBackend executes every operation with naive loops over float64.
// It exists so package tests can exercise Tensor plumbing without pulling
// in a real backend. Arithmetic results must be float tensors.
type MockBackend struct{}

// NewMockBackend returns a MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// Name returns the backend name.
func (m *MockBackend) Name() string {
	return "mock"
}

// Device returns CPU.
func (m *MockBackend) Device() Device {
	return CPU
}

func (m *MockBackend) alloc(shape Shape, dtype DataType) *RawTensor {
	r, err := NewRaw(shape, dtype, CPU)
	if err != nil {
		panic(err)
	}
	return r
}

// values reads any numeric tensor as []float64.
func values(x *RawTensor) []float64 {
	switch x.DType() {
	case Float32:
		src := x.AsFloat32()
		out := make([]float64, len(src))
		for i, v := range src {
			out[i] = float64(v)
		}
		return out
	case Float64:
		return append([]float64(nil), x.AsFloat64()...)
	case Int32:
		src := x.AsInt32()
		out := make([]float64, len(src))
		for i, v := range src {
			out[i] = float64(v)
		}
		return out
	case Int64:
		src := x.AsInt64()
		out := make([]float64, len(src))
		for i, v := range src {
			out[i] = float64(v)
		}
		return out
	default:
		panic(fmt.Sprintf("mock: unsupported dtype %s", x.DType()))
	}
}

// store writes float64 values back into a float tensor.
func store(dst *RawTensor, vals []float64) {
	switch dst.DType() {
	case Float32:
		out := dst.AsFloat32()
		for i, v := range vals {
			out[i] = float32(v)
		}
	case Float64:
		copy(dst.AsFloat64(), vals)
	default:
		panic(fmt.Sprintf("mock: float tensor required, got %s", dst.DType()))
	}
}

// broadcastIndex maps a coordinate in the output shape onto the flat index
// of an input with right-aligned shape, treating size-1 dimensions as fixed.
func broadcastIndex(coord []int, shape Shape) int {
	strides := shape.Strides()
	offset := len(coord) - len(shape)
	idx := 0
	for i := range shape {
		c := coord[offset+i]
		if shape[i] == 1 {
			c = 0
		}
		idx += c * strides[i]
	}
	return idx
}

func (m *MockBackend) elementWise(a, b *RawTensor, op func(x, y float64) float64) *RawTensor {
	outShape, _, err := BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(err)
	}

	result := m.alloc(outShape, a.DType())
	av, bv := values(a), values(b)
	out := make([]float64, outShape.NumElements())

	coord := make([]int, len(outShape))
	for i := range out {
		out[i] = op(av[broadcastIndex(coord, a.Shape())], bv[broadcastIndex(coord, b.Shape())])
		for d := len(coord) - 1; d >= 0; d-- {
			coord[d]++
			if coord[d] < outShape[d] {
				break
			}
			coord[d] = 0
		}
	}

	store(result, out)
	return result
}

// Add performs element-wise addition with broadcasting.
func (m *MockBackend) Add(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (m *MockBackend) Sub(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (m *MockBackend) Mul(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (m *MockBackend) Div(a, b *RawTensor) *RawTensor {
	return m.elementWise(a, b, func(x, y float64) float64 { return x / y })
}

// MatMul computes (M, K) @ (K, N) with a triple loop.
func (m *MockBackend) MatMul(a, b *RawTensor) *RawTensor {
	as, bs := a.Shape(), b.Shape()
	if len(as) != 2 || len(bs) != 2 || as[1] != bs[0] {
		panic(fmt.Sprintf("mock matmul: incompatible shapes %v and %v", as, bs))
	}
	mRows, k, n := as[0], as[1], bs[1]

	result := m.alloc(Shape{mRows, n}, a.DType())
	av, bv := values(a), values(b)
	out := make([]float64, mRows*n)
	for i := 0; i < mRows; i++ {
		for j := 0; j < n; j++ {
			var sum float64
			for p := 0; p < k; p++ {
				sum += av[i*k+p] * bv[p*n+j]
			}
			out[i*n+j] = sum
		}
	}
	store(result, out)
	return result
}

// Reshape copies the elements under a new shape.
func (m *MockBackend) Reshape(x *RawTensor, shape Shape) *RawTensor {
	if shape.NumElements() != x.NumElements() {
		panic(fmt.Sprintf("mock reshape: %v cannot hold %d elements", shape, x.NumElements()))
	}
	result := m.alloc(shape, x.DType())
	copy(result.Data(), x.Data())
	return result
}

// Transpose permutes dimensions.
func (m *MockBackend) Transpose(x *RawTensor, axes ...int) *RawTensor {
	shape := x.Shape()
	ndim := len(shape)
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	outShape := make(Shape, ndim)
	for i, ax := range axes {
		outShape[i] = shape[ax]
	}

	result := m.alloc(outShape, x.DType())
	xv := values(x)
	out := make([]float64, len(xv))
	inStrides := shape.Strides()
	coord := make([]int, ndim)
	for i := range out {
		src := 0
		for d, ax := range axes {
			src += coord[d] * inStrides[ax]
		}
		out[i] = xv[src]
		for d := ndim - 1; d >= 0; d-- {
			coord[d]++
			if coord[d] < outShape[d] {
				break
			}
			coord[d] = 0
		}
	}
	store(result, out)
	return result
}

// Expand broadcasts x to shape.
func (m *MockBackend) Expand(x *RawTensor, shape Shape) *RawTensor {
	result := m.alloc(shape, x.DType())
	xv := values(x)
	out := make([]float64, shape.NumElements())
	coord := make([]int, len(shape))
	for i := range out {
		out[i] = xv[broadcastIndex(coord, x.Shape())]
		for d := len(coord) - 1; d >= 0; d-- {
			coord[d]++
			if coord[d] < shape[d] {
				break
			}
			coord[d] = 0
		}
	}
	store(result, out)
	return result
}

func scalarValue(scalar any) float64 {
	switch v := scalar.(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		panic(fmt.Sprintf("mock: unsupported scalar %T", scalar))
	}
}

func (m *MockBackend) mapElements(x *RawTensor, f func(v float64) float64) *RawTensor {
	result := m.alloc(x.Shape(), x.DType())
	vals := values(x)
	for i, v := range vals {
		vals[i] = f(v)
	}
	store(result, vals)
	return result
}

// AddScalar adds scalar to every element.
func (m *MockBackend) AddScalar(x *RawTensor, scalar any) *RawTensor {
	s := scalarValue(scalar)
	return m.mapElements(x, func(v float64) float64 { return v + s })
}

// SubScalar subtracts scalar from every element.
func (m *MockBackend) SubScalar(x *RawTensor, scalar any) *RawTensor {
	s := scalarValue(scalar)
	return m.mapElements(x, func(v float64) float64 { return v - s })
}

// MulScalar multiplies every element by scalar.
func (m *MockBackend) MulScalar(x *RawTensor, scalar any) *RawTensor {
	s := scalarValue(scalar)
	return m.mapElements(x, func(v float64) float64 { return v * s })
}

// DivScalar divides every element by scalar.
func (m *MockBackend) DivScalar(x *RawTensor, scalar any) *RawTensor {
	s := scalarValue(scalar)
	return m.mapElements(x, func(v float64) float64 { return v / s })
}

// Exp applies e^x element-wise.
func (m *MockBackend) Exp(x *RawTensor) *RawTensor {
	return m.mapElements(x, math.Exp)
}

// Log applies the natural logarithm element-wise.
func (m *MockBackend) Log(x *RawTensor) *RawTensor {
	return m.mapElements(x, math.Log)
}

// Sqrt applies the square root element-wise.
func (m *MockBackend) Sqrt(x *RawTensor) *RawTensor {
	return m.mapElements(x, math.Sqrt)
}

// Softmax normalizes along the last dimension only; the mock does not
// support other dims.
func (m *MockBackend) Softmax(x *RawTensor, dim int) *RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim != len(shape)-1 {
		panic("mock softmax: last dimension only")
	}

	result := m.alloc(shape, x.DType())
	vals := values(x)
	width := shape[len(shape)-1]
	for start := 0; start < len(vals); start += width {
		row := vals[start : start+width]
		maxV := row[0]
		for _, v := range row {
			maxV = math.Max(maxV, v)
		}
		var sum float64
		for i, v := range row {
			row[i] = math.Exp(v - maxV)
			sum += row[i]
		}
		for i := range row {
			row[i] /= sum
		}
	}
	store(result, vals)
	return result
}

// Sum reduces all elements to a scalar-shaped tensor.
func (m *MockBackend) Sum(x *RawTensor) *RawTensor {
	result := m.alloc(Shape{}, x.DType())
	var sum float64
	for _, v := range values(x) {
		sum += v
	}
	store(result, []float64{sum})
	return result
}

// SumDim sums along dim.
func (m *MockBackend) SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor {
	return m.reduceDim(x, dim, keepDim, false)
}

// MeanDim averages along dim.
func (m *MockBackend) MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor {
	return m.reduceDim(x, dim, keepDim, true)
}

func (m *MockBackend) reduceDim(x *RawTensor, dim int, keepDim, mean bool) *RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	outer := 1
	for _, d := range shape[:dim] {
		outer *= d
	}
	inner := 1
	for _, d := range shape[dim+1:] {
		inner *= d
	}
	size := shape[dim]

	outShape := make(Shape, 0, len(shape))
	for i, d := range shape {
		switch {
		case i != dim:
			outShape = append(outShape, d)
		case keepDim:
			outShape = append(outShape, 1)
		}
	}

	result := m.alloc(outShape, x.DType())
	vals := values(x)
	out := make([]float64, outer*inner)
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			var sum float64
			for s := 0; s < size; s++ {
				sum += vals[(o*size+s)*inner+in]
			}
			if mean {
				sum /= float64(size)
			}
			out[o*inner+in] = sum
		}
	}
	store(result, out)
	return result
}

// Argmax returns int32 indices of the maxima along dim.
func (m *MockBackend) Argmax(x *RawTensor, dim int) *RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	outer := 1
	for _, d := range shape[:dim] {
		outer *= d
	}
	inner := 1
	for _, d := range shape[dim+1:] {
		inner *= d
	}
	size := shape[dim]

	outShape := make(Shape, 0, len(shape)-1)
	for i, d := range shape {
		if i != dim {
			outShape = append(outShape, d)
		}
	}

	result := m.alloc(outShape, Int32)
	vals := values(x)
	out := result.AsInt32()
	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			best, bestIdx := vals[o*size*inner+in], 0
			for s := 1; s < size; s++ {
				if v := vals[(o*size+s)*inner+in]; v > best {
					best, bestIdx = v, s
				}
			}
			out[o*inner+in] = int32(bestIdx)
		}
	}
	return result
}

// Cast converts between float element types.
func (m *MockBackend) Cast(x *RawTensor, dtype DataType) *RawTensor {
	result := m.alloc(x.Shape(), dtype)
	switch dtype {
	case Float32, Float64:
		store(result, values(x))
	case Int32:
		out := result.AsInt32()
		for i, v := range values(x) {
			out[i] = int32(v)
		}
	default:
		panic(fmt.Sprintf("mock cast: unsupported dtype %s", dtype))
	}
	return result
}
