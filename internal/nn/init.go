package nn

import (
	"math"
	"math/rand"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// XavierUniform draws weights from U(-a, a) with a = √(6/(fanIn+fanOut)),
// which keeps activation variance roughly constant across layers. A nil
// rng falls back to the global source; pass a seeded one for
// reproducible models.
func XavierUniform[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	raw, err := tensor.NewRaw(shape, tensor.Float32, backend.Device())
	if err != nil {
		panic(err)
	}
	data := raw.AsFloat32()
	for i := range data {
		data[i] = float32((uniform(rng)*2 - 1) * bound)
	}
	return tensor.New[float32](raw, backend)
}

// HeNormal draws weights from N(0, √(2/fanIn)), the matching choice for
// ReLU stacks. A nil rng falls back to the global source.
func HeNormal[B tensor.Backend](fanIn int, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[float32, B] {
	std := math.Sqrt(2.0 / float64(fanIn))

	raw, err := tensor.NewRaw(shape, tensor.Float32, backend.Device())
	if err != nil {
		panic(err)
	}
	data := raw.AsFloat32()
	for i := range data {
		data[i] = float32(gauss(rng) * std)
	}
	return tensor.New[float32](raw, backend)
}

func uniform(rng *rand.Rand) float64 {
	if rng != nil {
		return rng.Float64()
	}
	return rand.Float64()
}

func gauss(rng *rand.Rand) float64 {
	if rng != nil {
		return rng.NormFloat64()
	}
	return rand.NormFloat64()
}
