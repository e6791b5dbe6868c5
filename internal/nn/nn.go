// Package nn provides the building blocks for feed-forward classifiers:
// the Module interface, trainable Parameters, the Linear layer, ReLU /
// Sigmoid / Tanh activations, the Sequential container, an MLP
// convenience model, and the CrossEntropy and MSE losses.
//
// Modules compose the PyTorch way, adapted to Go generics:
//
//	model := nn.NewSequential[B](
//	    nn.NewLinear(784, 128, rng, backend),
//	    nn.NewReLU[B](),
//	    nn.NewLinear(128, 10, rng, backend),
//	)
//
// Differentiable non-linear ops (activations, losses) are not part of the
// tensor.Backend contract; modules assert the backend for the capability
// at Forward time, which in practice means training runs on an
// autodiff.Engine.
package nn

import "github.com/kiln-ml/kiln/internal/tensor"

// Module is one composable piece of a network.
type Module[B tensor.Backend] interface {
	// Forward computes the module output for a batch of inputs.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns the module's trainable parameters, nested
	// modules included. Parameter-free modules return nil.
	Parameters() []*Parameter[B]
}
