package nn

import (
	"fmt"
	"math/rand"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// MLP is a feed-forward classifier: Linear layers joined by an
// activation, with the final layer emitting raw logits. Inputs with
// more than two dimensions are flattened per sample before the first
// layer, so image batches like [n, 28, 28] feed a 784-wide input
// directly.
type MLP[B tensor.Backend] struct {
	layers *Sequential[B]
	sizes  []int
}

// Activation selects the nonlinearity between MLP layers.
type Activation int

// Supported hidden-layer activations.
const (
	ActReLU Activation = iota
	ActSigmoid
	ActTanh
)

func (a Activation) String() string {
	switch a {
	case ActSigmoid:
		return "sigmoid"
	case ActTanh:
		return "tanh"
	default:
		return "relu"
	}
}

// ParseActivation maps a name like "relu" to its Activation.
func ParseActivation(s string) (Activation, error) {
	switch s {
	case "relu":
		return ActReLU, nil
	case "sigmoid":
		return ActSigmoid, nil
	case "tanh":
		return ActTanh, nil
	default:
		return 0, fmt.Errorf("nn: unknown activation %q", s)
	}
}

func newActivation[B tensor.Backend](a Activation) Module[B] {
	switch a {
	case ActSigmoid:
		return NewSigmoid[B]()
	case ActTanh:
		return NewTanh[B]()
	default:
		return NewReLU[B]()
	}
}

// NewMLP builds an MLP from layer widths, e.g. {784, 128, 10} for a
// one-hidden-layer MNIST classifier. Hidden layers use ReLU. rng seeds
// the weight init; nil uses the global source.
func NewMLP[B tensor.Backend](sizes []int, rng *rand.Rand, backend B) *MLP[B] {
	return NewMLPWith(sizes, ActReLU, rng, backend)
}

// NewMLPWith is NewMLP with a selectable hidden activation.
func NewMLPWith[B tensor.Backend](sizes []int, act Activation, rng *rand.Rand, backend B) *MLP[B] {
	if len(sizes) < 2 {
		panic(fmt.Sprintf("nn: MLP needs at least input and output widths, got %v", sizes))
	}

	seq := NewSequential[B]()
	for i := 0; i < len(sizes)-1; i++ {
		seq.Add(NewLinear(sizes[i], sizes[i+1], rng, backend))
		if i < len(sizes)-2 {
			seq.Add(newActivation[B](act))
		}
	}

	return &MLP[B]{layers: seq, sizes: append([]int(nil), sizes...)}
}

// Forward maps a batch to logits of shape [batch, OutClasses].
func (m *MLP[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if shape := input.Shape(); len(shape) > 2 {
		batch := shape[0]
		input = input.Reshape(batch, input.NumElements()/batch)
	}
	return m.layers.Forward(input)
}

// Parameters returns every layer's weight and bias in order.
func (m *MLP[B]) Parameters() []*Parameter[B] {
	return m.layers.Parameters()
}

// InFeatures returns the flattened input width the first layer expects.
func (m *MLP[B]) InFeatures() int { return m.sizes[0] }

// OutClasses returns the logit width of the final layer.
func (m *MLP[B]) OutClasses() int { return m.sizes[len(m.sizes)-1] }
