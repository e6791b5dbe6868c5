package optim

import (
	"math"

	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Adam is the adaptive moment estimation optimizer of Kingma & Ba
// (arXiv:1412.6980). It keeps exponential moving averages of gradients
// and squared gradients per parameter and corrects their startup bias:
//
//	m = beta1*m + (1-beta1)*grad
//	v = beta2*v + (1-beta2)*grad²
//	mHat = m / (1 - beta1^t)
//	vHat = v / (1 - beta2^t)
//	param -= lr * mHat / (sqrt(vHat) + eps)
type Adam[B tensor.Backend] struct {
	params []*nn.Parameter[B]
	lr     float32
	beta1  float32
	beta2  float32
	eps    float32

	t int
	m map[*nn.Parameter[B]][]float32
	v map[*nn.Parameter[B]][]float32
}

// AdamConfig configures NewAdam. Zero fields take the customary
// defaults: LR 0.001, Betas {0.9, 0.999}, Eps 1e-8.
type AdamConfig struct {
	LR    float32
	Betas [2]float32
	Eps   float32
}

// NewAdam creates an Adam optimizer over params.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig) *Adam[B] {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam[B]{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make(map[*nn.Parameter[B]][]float32),
		v:      make(map[*nn.Parameter[B]][]float32),
	}
}

// Step applies one Adam update in place. Parameters without a gradient
// are skipped and their moments stay untouched.
func (a *Adam[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.t++
	correction1 := 1 - float32(math.Pow(float64(a.beta1), float64(a.t)))
	correction2 := 1 - float32(math.Pow(float64(a.beta2), float64(a.t)))

	for _, param := range a.params {
		grad := lookup(param, grads)
		if grad == nil {
			continue
		}
		data := param.Tensor().Raw().AsFloat32()

		m := a.m[param]
		if m == nil {
			m = make([]float32, len(data))
			a.m[param] = m
		}
		v := a.v[param]
		if v == nil {
			v = make([]float32, len(data))
			a.v[param] = v
		}

		for i := range data {
			g := grad[i]
			m[i] = a.beta1*m[i] + (1-a.beta1)*g
			v[i] = a.beta2*v[i] + (1-a.beta2)*g*g

			mHat := m[i] / correction1
			vHat := v[i] / correction2
			data[i] -= a.lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
		}
	}
}

// ZeroGrad drops the gradient of every tracked parameter.
func (a *Adam[B]) ZeroGrad() {
	for _, param := range a.params {
		param.ZeroGrad()
	}
}

// GetLR reports the current learning rate.
func (a *Adam[B]) GetLR() float32 { return a.lr }

// SetLR replaces the learning rate for subsequent steps.
func (a *Adam[B]) SetLR(lr float32) { a.lr = lr }

// Timestep reports how many steps have been applied.
func (a *Adam[B]) Timestep() int { return a.t }
