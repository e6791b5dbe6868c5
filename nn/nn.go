// Copyright 2025 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"

	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Module is the common interface for all neural network modules.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter represents a trainable parameter in a neural network.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Layers

// Linear represents a fully connected (dense) layer.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a new linear layer with Xavier initialization.
// rng seeds the weight init; nil uses the global source.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewLinear(784, 128, rng, backend)
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, rng *rand.Rand, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, rng, backend)
}

// MLP represents a multi-layer perceptron built from linear layers with
// activations between the hidden ones.
type MLP[B tensor.Backend] = nn.MLP[B]

// Activation selects the nonlinearity between MLP layers.
type Activation = nn.Activation

// Supported hidden-layer activations.
const (
	ActReLU    = nn.ActReLU
	ActSigmoid = nn.ActSigmoid
	ActTanh    = nn.ActTanh
)

// ParseActivation maps a name like "relu" to its Activation.
func ParseActivation(s string) (Activation, error) {
	return nn.ParseActivation(s)
}

// NewMLP builds an MLP from layer widths with ReLU between hidden layers.
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewMLP([]int{784, 128, 10}, rng, backend)
func NewMLP[B tensor.Backend](sizes []int, rng *rand.Rand, backend B) *MLP[B] {
	return nn.NewMLP(sizes, rng, backend)
}

// NewMLPWith is NewMLP with a selectable hidden activation.
//
// Example:
//
//	model := nn.NewMLPWith([]int{784, 128, 10}, nn.ActTanh, rng, backend)
func NewMLPWith[B tensor.Backend](sizes []int, act Activation, rng *rand.Rand, backend B) *MLP[B] {
	return nn.NewMLPWith(sizes, act, rng, backend)
}

// Activations

// ReLU represents the Rectified Linear Unit activation function.
type ReLU[B tensor.Backend] = nn.ReLU[B]

// NewReLU creates a new ReLU activation layer.
func NewReLU[B tensor.Backend]() *ReLU[B] {
	return nn.NewReLU[B]()
}

// Sigmoid represents the Sigmoid activation function.
type Sigmoid[B tensor.Backend] = nn.Sigmoid[B]

// NewSigmoid creates a new Sigmoid activation layer.
func NewSigmoid[B tensor.Backend]() *Sigmoid[B] {
	return nn.NewSigmoid[B]()
}

// Tanh represents the Tanh activation function.
type Tanh[B tensor.Backend] = nn.Tanh[B]

// NewTanh creates a new Tanh activation layer.
func NewTanh[B tensor.Backend]() *Tanh[B] {
	return nn.NewTanh[B]()
}

// Loss Functions

// CrossEntropyLoss represents the cross-entropy loss for classification.
type CrossEntropyLoss[B tensor.Backend] = nn.CrossEntropyLoss[B]

// NewCrossEntropyLoss creates a new cross-entropy loss function.
//
// Example:
//
//	backend := cpu.New()
//	criterion := nn.NewCrossEntropyLoss(backend)
//	loss := criterion.Forward(logits, labels)
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return nn.NewCrossEntropyLoss(backend)
}

// MSELoss represents the mean squared error loss for regression.
type MSELoss[B tensor.Backend] = nn.MSELoss[B]

// NewMSELoss creates a new MSE loss function.
//
// Example:
//
//	backend := cpu.New()
//	criterion := nn.NewMSELoss(backend)
//	loss := criterion.Forward(predictions, targets)
func NewMSELoss[B tensor.Backend](backend B) *MSELoss[B] {
	return nn.NewMSELoss(backend)
}

// Accuracy returns the fraction of rows whose argmax logit matches the
// target class label.
func Accuracy[B tensor.Backend](logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) float64 {
	return nn.Accuracy(logits, targets)
}

// Sequential

// Sequential represents a sequential container of modules.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a new sequential model.
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewSequential(
//	    nn.NewLinear(784, 128, rng, backend),
//	    nn.NewReLU[*cpu.Backend](),
//	    nn.NewLinear(128, 10, rng, backend),
//	)
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// Initialization functions

// XavierUniform initializes a tensor with Xavier/Glorot uniform samples
// scaled by fan-in and fan-out.
func XavierUniform[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	return nn.XavierUniform(fanIn, fanOut, shape, rng, backend)
}

// HeNormal initializes a tensor with He normal samples scaled by fan-in,
// suited to ReLU networks.
func HeNormal[B tensor.Backend](fanIn int, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	return nn.HeNormal(fanIn, shape, rng, backend)
}
