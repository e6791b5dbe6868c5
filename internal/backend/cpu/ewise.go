package cpu

import (
	"fmt"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// arithOp selects the arithmetic kernel. Keeping the switch outside the
// element loop lets each instantiation compile to a tight loop.
type arithOp int

const (
	opAdd arithOp = iota
	opSub
	opMul
	opDiv
)

func arithInplace(op arithOp, a, b *tensor.RawTensor) {
	switch a.DType() {
	case tensor.Float32:
		vectorized(op, a.AsFloat32(), a.AsFloat32(), b.AsFloat32())
	case tensor.Float64:
		vectorized(op, a.AsFloat64(), a.AsFloat64(), b.AsFloat64())
	case tensor.Int32:
		vectorized(op, a.AsInt32(), a.AsInt32(), b.AsInt32())
	case tensor.Int64:
		vectorized(op, a.AsInt64(), a.AsInt64(), b.AsInt64())
	default:
		panic(fmt.Sprintf("arith: unsupported dtype %s", a.DType()))
	}
}

func arithVectorized(op arithOp, result, a, b *tensor.RawTensor) {
	switch a.DType() {
	case tensor.Float32:
		vectorized(op, result.AsFloat32(), a.AsFloat32(), b.AsFloat32())
	case tensor.Float64:
		vectorized(op, result.AsFloat64(), a.AsFloat64(), b.AsFloat64())
	case tensor.Int32:
		vectorized(op, result.AsInt32(), a.AsInt32(), b.AsInt32())
	case tensor.Int64:
		vectorized(op, result.AsInt64(), a.AsInt64(), b.AsInt64())
	default:
		panic(fmt.Sprintf("arith: unsupported dtype %s", a.DType()))
	}
}

func arithBroadcast(op arithOp, result, a, b *tensor.RawTensor, outShape tensor.Shape) {
	switch a.DType() {
	case tensor.Float32:
		broadcast(op, result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape)
	case tensor.Float64:
		broadcast(op, result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape)
	case tensor.Int32:
		broadcast(op, result.AsInt32(), a.AsInt32(), b.AsInt32(), a.Shape(), b.Shape(), outShape)
	case tensor.Int64:
		broadcast(op, result.AsInt64(), a.AsInt64(), b.AsInt64(), a.Shape(), b.Shape(), outShape)
	default:
		panic(fmt.Sprintf("arith: unsupported dtype %s", a.DType()))
	}
}

// vectorized runs dst = a OP b over buffers of identical layout. dst may
// alias a for the in-place path.
func vectorized[T tensor.DType](op arithOp, dst, a, b []T) {
	switch op {
	case opAdd:
		for i := range dst {
			dst[i] = a[i] + b[i]
		}
	case opSub:
		for i := range dst {
			dst[i] = a[i] - b[i]
		}
	case opMul:
		for i := range dst {
			dst[i] = a[i] * b[i]
		}
	case opDiv:
		for i := range dst {
			dst[i] = a[i] / b[i]
		}
	}
}

// broadcastStrides maps inShape onto outShape right-aligned: stretched and
// missing dimensions get stride 0 so their coordinate never advances the
// source index.
func broadcastStrides(inShape, outShape tensor.Shape) []int {
	strides := make([]int, len(outShape))
	orig := inShape.Strides()
	offset := len(outShape) - len(inShape)

	for i := range outShape {
		j := i - offset
		if j < 0 || inShape[j] == 1 {
			continue
		}
		strides[i] = orig[j]
	}
	return strides
}

// broadcast runs dst = a OP b where a and b stretch to outShape.
func broadcast[T tensor.DType](op arithOp, dst, a, b []T, aShape, bShape, outShape tensor.Shape) {
	aStrides := broadcastStrides(aShape, outShape)
	bStrides := broadcastStrides(bShape, outShape)

	ndim := len(outShape)
	coord := make([]int, ndim)
	aIdx, bIdx := 0, 0

	for i := range dst {
		switch op {
		case opAdd:
			dst[i] = a[aIdx] + b[bIdx]
		case opSub:
			dst[i] = a[aIdx] - b[bIdx]
		case opMul:
			dst[i] = a[aIdx] * b[bIdx]
		case opDiv:
			dst[i] = a[aIdx] / b[bIdx]
		}

		for d := ndim - 1; d >= 0; d-- {
			coord[d]++
			aIdx += aStrides[d]
			bIdx += bStrides[d]
			if coord[d] < outShape[d] {
				break
			}
			coord[d] = 0
			aIdx -= outShape[d] * aStrides[d]
			bIdx -= outShape[d] * bStrides[d]
		}
	}
}
