package nn

import (
	"fmt"
	"math/rand"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Linear is a fully connected layer computing y = x @ Wᵀ + b.
//
// The weight has shape [outFeatures, inFeatures] and the bias
// [outFeatures]. Weights start Xavier-uniform, biases at zero.
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B]
	bias        *Parameter[B]
}

// NewLinear creates a dense layer. rng seeds the weight init; nil uses
// the global source.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, rng *rand.Rand, backend B) *Linear[B] {
	if inFeatures < 1 || outFeatures < 1 {
		panic(fmt.Sprintf("nn: Linear dimensions must be positive, got %dx%d", inFeatures, outFeatures))
	}

	weight := XavierUniform(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, rng, backend)
	bias := tensor.Zeros[float32](tensor.Shape{outFeatures}, backend)

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", weight),
		bias:        NewParameter("bias", bias),
	}
}

// Forward maps [batch, inFeatures] to [batch, outFeatures].
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("nn: Linear input must be 2D [batch, features], got %v", shape))
	}
	if shape[1] != l.inFeatures {
		panic(fmt.Sprintf("nn: Linear expects %d input features, got %d", l.inFeatures, shape[1]))
	}

	// [batch, in] @ [in, out], bias broadcast over rows.
	out := input.MatMul(l.weight.Tensor().T())
	return out.Add(l.bias.Tensor())
}

// Parameters returns [weight, bias].
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}

// Weight returns the weight parameter, shape [outFeatures, inFeatures].
func (l *Linear[B]) Weight() *Parameter[B] { return l.weight }

// Bias returns the bias parameter, shape [outFeatures].
func (l *Linear[B]) Bias() *Parameter[B] { return l.bias }

// InFeatures returns the expected input width.
func (l *Linear[B]) InFeatures() int { return l.inFeatures }

// OutFeatures returns the output width.
func (l *Linear[B]) OutFeatures() int { return l.outFeatures }
