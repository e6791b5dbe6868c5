// Copyright 2025 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network layers and building blocks.
//
// # Overview
//
// This package contains:
//   - Layers: Linear, MLP
//   - Activations: ReLU, Sigmoid, Tanh
//   - Loss functions: CrossEntropyLoss, MSELoss
//   - Utilities: Sequential, Module interface, Parameter, Accuracy
//   - Initialization: XavierUniform, HeNormal
//
// # Basic Usage
//
//	import (
//	    "github.com/kiln-ml/kiln/nn"
//	    "github.com/kiln-ml/kiln/backend/cpu"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    // Build a simple MLP
//	    model := nn.NewSequential(
//	        nn.NewLinear(784, 128, nil, backend),
//	        nn.NewReLU[*cpu.Backend](),
//	        nn.NewLinear(128, 10, nil, backend),
//	    )
//
//	    // Forward pass
//	    output := model.Forward(input)
//	}
//
// Or let MLP wire the layers for you:
//
//	model := nn.NewMLP([]int{784, 128, 10}, rng, backend)
//
// # Loss Functions
//
// CrossEntropyLoss fuses log-softmax with negative log-likelihood and is
// numerically stable for classification:
//
//	criterion := nn.NewCrossEntropyLoss(backend)
//	loss := criterion.Forward(logits, labels)
//
// MSELoss is for regression:
//
//	criterion := nn.NewMSELoss(backend)
//	loss := criterion.Forward(predictions, targets)
//
// # Parameter Management
//
// Access model parameters for optimization:
//
//	params := model.Parameters()
//	for _, param := range params {
//	    fmt.Println(param.Name(), param.Tensor().Shape())
//	}
package nn
