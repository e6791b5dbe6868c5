// Copyright 2025 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"math/rand"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// DType is the constraint for tensor element types.
// Supported types: float32, float64, int32, int64.
type DType = tensor.DType

// DataType is the runtime tag of a tensor's element type.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
)

// Device identifies where tensor data lives.
type Device = tensor.Device

// CPU is the only device Kiln currently ships.
const CPU Device = tensor.CPU

// Shape holds the dimensions of a tensor.
// Shape{2, 3, 4} is a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Backend is the compute interface a device implementation satisfies.
type Backend = tensor.Backend

// RawTensor is untyped tensor storage.
type RawTensor = tensor.RawTensor

// Tensor is a typed view over a RawTensor bound to a backend.
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// New wraps an existing RawTensor in a typed tensor.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return tensor.New[T](raw, b)
}

// NewRaw allocates untyped storage for the given shape and dtype.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// FromSlice builds a tensor from data laid out in row-major order.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice(data, shape, b)
}

// Zeros returns a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T](shape, b)
}

// Ones returns a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T](shape, b)
}

// Full returns a tensor filled with value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	return tensor.Full(shape, value, b)
}

// Rand returns a tensor of uniform values in [0, 1). A nil rng uses the
// global source.
func Rand[T DType, B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[T, B] {
	return tensor.Rand[T](shape, rng, b)
}

// Randn returns a tensor of standard normal values. A nil rng uses the
// global source.
func Randn[T DType, B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[T, B] {
	return tensor.Randn[T](shape, rng, b)
}

// Arange returns a 1D tensor holding start, start+1, ..., end-1.
func Arange[T DType, B Backend](start, end T, b B) *Tensor[T, B] {
	return tensor.Arange(start, end, b)
}

// BroadcastShapes computes the broadcast shape of two shapes under the
// NumPy rules. The flag is true when either operand needs stretching.
//
// Example:
//
//	shape, stretched, err := tensor.BroadcastShapes(
//	    tensor.Shape{3, 1},
//	    tensor.Shape{3, 4},
//	)
//	// shape = [3, 4], stretched = true
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}
