// Copyright 2025 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimization algorithms for training neural networks.
//
// # Overview
//
// This package contains:
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation with bias correction
//   - Optimizer interface for custom optimizers
//
// # Basic Usage
//
//	import (
//	    "github.com/kiln-ml/kiln/optim"
//	    "github.com/kiln-ml/kiln/nn"
//	    "github.com/kiln-ml/kiln/backend/cpu"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    model := nn.NewMLP([]int{784, 128, 10}, rng, backend)
//
//	    optimizer := optim.NewSGD(
//	        model.Parameters(),
//	        optim.SGDConfig{LR: 0.01, Momentum: 0.9},
//	    )
//
//	    // Inside the training step, after autodiff.Backward:
//	    optimizer.Step(grads)
//	    optimizer.ZeroGrad()
//	}
//
// Optimizers consume the gradient map produced by autodiff.Backward and
// update parameter buffers in place. Parameters without an entry in the
// map took no part in the forward pass and are left untouched.
package optim
