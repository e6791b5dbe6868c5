// Copyright 2025 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides automatic differentiation capabilities.
//
// This package implements reverse-mode automatic differentiation
// (backpropagation) using a gradient tape. It wraps any backend to add
// autodiff capabilities.
//
// Example:
//
//	import (
//	    "github.com/kiln-ml/kiln/autodiff"
//	    "github.com/kiln-ml/kiln/backend/cpu"
//	    "github.com/kiln-ml/kiln/tensor"
//	)
//
//	func main() {
//	    // Wrap CPU backend with autodiff
//	    engine := autodiff.New(cpu.New())
//
//	    engine.Tape().StartRecording()
//	    x := tensor.Ones[float32](tensor.Shape{2, 3}, engine)
//	    y := x.Mul(x) // Operations recorded on tape
//
//	    // Compute gradients
//	    grads := autodiff.Backward(y, engine)
//	    engine.Tape().StopRecording()
//	    grads[x.Raw()] // dy/dx
//	}
package autodiff

import (
	"github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Engine is the autodiff-enabled backend decorator.
type Engine[B tensor.Backend] = autodiff.Engine[B]

// New creates a new autodiff engine wrapping the given backend.
//
// Example:
//
//	engine := autodiff.New(cpu.New())
func New[B tensor.Backend](inner B) *Engine[B] {
	return autodiff.New(inner)
}

// Tape records operations for automatic differentiation.
type Tape = autodiff.Tape

// NewTape creates a new gradient tape.
func NewTape() *Tape {
	return autodiff.NewTape()
}

// Recorder is the capability interface for backends that record a
// gradient tape and support backpropagation.
type Recorder = autodiff.Recorder

// Backward computes gradients of out with respect to every tensor on the
// tape, keyed by raw tensor storage. It panics if the tape is empty.
func Backward[T tensor.DType, B Recorder](out *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.Backward(out, backend)
}
