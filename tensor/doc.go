// Copyright 2025 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor is the public API for tensor operations in Kiln.
//
// The package defines the core types for type-safe tensor math:
//   - Tensor[T, B]: generic tensor carrying its element type and backend
//   - RawTensor: untyped storage shared between backends
//   - Backend: the compute interface a device implementation satisfies
//   - Shape, DataType, Device: core definitions
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	z := x.Add(y)
package tensor
