// Package ops holds the differentiable operations recorded on a gradient
// tape. Every type here pairs one forward result with the rule that maps
// the output gradient back onto the input gradients.
//
// Forward values are computed by a tensor.Backend (or by the helpers in
// this package for ops outside the core Backend contract). Backward rules
// receive a backend so they can reuse its kernels for the heavy lifting.
package ops

import "github.com/kiln-ml/kiln/internal/tensor"

// Operation is one node of the recorded computation graph.
type Operation interface {
	// Backward maps the gradient of the output onto gradients of the
	// inputs, in the same order as Inputs. A nil entry means the input
	// is not differentiated.
	Backward(grad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the tensors the forward pass consumed.
	Inputs() []*tensor.RawTensor

	// Output returns the tensor the forward pass produced.
	Output() *tensor.RawTensor
}

// binary is the shared state of a two-input operation.
type binary struct {
	a, b, out *tensor.RawTensor
}

func (op *binary) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.a, op.b} }

func (op *binary) Output() *tensor.RawTensor { return op.out }

// unary is the shared state of a one-input operation.
type unary struct {
	in, out *tensor.RawTensor
}

func (op *unary) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.in} }

func (op *unary) Output() *tensor.RawTensor { return op.out }
