package optim

import (
	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// SGD is stochastic gradient descent with optional momentum.
//
// Without momentum each step applies
//
//	param -= lr * grad
//
// and with momentum
//
//	velocity = momentum*velocity + grad
//	param -= lr * velocity
//
// Velocity buffers are allocated lazily, the first time a parameter
// receives a gradient.
type SGD[B tensor.Backend] struct {
	params     []*nn.Parameter[B]
	lr         float32
	momentum   float32
	velocities map[*nn.Parameter[B]][]float32
}

// SGDConfig configures NewSGD. A zero LR defaults to 0.01; Momentum
// stays off unless set.
type SGDConfig struct {
	LR       float32
	Momentum float32
}

// NewSGD creates an SGD optimizer over params.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig) *SGD[B] {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD[B]{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*nn.Parameter[B]][]float32),
	}
}

// Step applies one descent update in place. Parameters without a
// gradient are skipped.
func (s *SGD[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, param := range s.params {
		grad := lookup(param, grads)
		if grad == nil {
			continue
		}
		data := param.Tensor().Raw().AsFloat32()

		if s.momentum == 0 {
			for i := range data {
				data[i] -= s.lr * grad[i]
			}
			continue
		}

		velocity := s.velocities[param]
		if velocity == nil {
			velocity = make([]float32, len(data))
			s.velocities[param] = velocity
		}
		for i := range data {
			velocity[i] = s.momentum*velocity[i] + grad[i]
			data[i] -= s.lr * velocity[i]
		}
	}
}

// ZeroGrad drops the gradient of every tracked parameter.
func (s *SGD[B]) ZeroGrad() {
	for _, param := range s.params {
		param.ZeroGrad()
	}
}

// GetLR reports the current learning rate.
func (s *SGD[B]) GetLR() float32 { return s.lr }

// SetLR replaces the learning rate for subsequent steps.
func (s *SGD[B]) SetLR(lr float32) { s.lr = lr }
