package nn

import "github.com/kiln-ml/kiln/internal/tensor"

// Parameter is a trainable tensor with an attached gradient slot.
//
// The gradient is nil until a backward pass assigns it and nil again
// after ZeroGrad; optimizers skip parameters without a gradient.
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[float32, B]
	grad   *tensor.Tensor[float32, B]
}

// NewParameter wraps an initialized tensor as a trainable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{name: name, tensor: t}
}

// Name returns the parameter name, e.g. "weight" or "bias".
func (p *Parameter[B]) Name() string { return p.name }

// Tensor returns the underlying parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] { return p.tensor }

// Grad returns the current gradient, nil before the first backward pass.
func (p *Parameter[B]) Grad() *tensor.Tensor[float32, B] { return p.grad }

// SetGrad attaches a gradient, replacing any previous one.
func (p *Parameter[B]) SetGrad(grad *tensor.Tensor[float32, B]) { p.grad = grad }

// ZeroGrad drops the gradient.
func (p *Parameter[B]) ZeroGrad() { p.grad = nil }
