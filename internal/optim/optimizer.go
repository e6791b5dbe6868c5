// Package optim implements the optimizers used to fit kiln models.
//
// Every optimizer consumes the gradient map produced by autodiff.Backward
// and updates parameter buffers in place. Parameters absent from the map
// took no part in the forward pass and are left untouched.
package optim

import (
	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Optimizer updates model parameters from a gradient map.
type Optimizer interface {
	// Step applies one update from the gradients keyed by parameter
	// storage, as returned by autodiff.Backward.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// ZeroGrad drops every parameter gradient. Call it before each
	// backward pass so stale gradients never bleed into the next step.
	ZeroGrad()

	// GetLR reports the current learning rate.
	GetLR() float32
}

// lookup returns the gradient buffer recorded for param, or nil when
// the parameter has no entry in the map.
func lookup[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) []float32 {
	grad := grads[param.Tensor().Raw()]
	if grad == nil {
		return nil
	}
	return grad.AsFloat32()
}
