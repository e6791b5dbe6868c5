package tensor

import (
	"math"
	"math/rand"
)

// Zeros allocates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	raw, err := NewRaw(shape, TypeOf[T](), b.Device())
	if err != nil {
		panic(err)
	}
	// Buffers come back zeroed from the allocator.
	return New[T, B](raw, b)
}

// Ones allocates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full(shape, T(1), b)
}

// Full allocates a tensor filled with value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Rand fills a float tensor with uniform values in [0, 1) drawn from rng.
// Pass nil to use the shared math/rand source.
func Rand[T DType, B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	switch data := any(t.Data()).(type) {
	case []float32:
		for i := range data {
			data[i] = float32(uniform(rng))
		}
	case []float64:
		for i := range data {
			data[i] = uniform(rng)
		}
	default:
		panic("Rand supports float32 and float64 only")
	}
	return t
}

// Randn fills a float tensor with standard normal values via the Box-Muller
// transform. Pass nil to use the shared math/rand source.
func Randn[T DType, B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	switch data := any(t.Data()).(type) {
	case []float32:
		for i := 0; i < len(data); i += 2 {
			z0, z1 := boxMuller(rng)
			data[i] = float32(z0)
			if i+1 < len(data) {
				data[i+1] = float32(z1)
			}
		}
	case []float64:
		for i := 0; i < len(data); i += 2 {
			z0, z1 := boxMuller(rng)
			data[i] = z0
			if i+1 < len(data) {
				data[i+1] = z1
			}
		}
	default:
		panic("Randn supports float32 and float64 only")
	}
	return t
}

// Arange creates a 1D tensor holding start, start+1, ..., end-1.
func Arange[T DType, B Backend](start, end T, b B) *Tensor[T, B] {
	n := int(float64(end) - float64(start))
	if n <= 0 {
		panic("Arange needs end > start")
	}

	t := Zeros[T, B](Shape{n}, b)
	data := t.Data()
	for i := range data {
		data[i] = start + T(i)
	}
	return t
}

func uniform(rng *rand.Rand) float64 {
	if rng == nil {
		return rand.Float64()
	}
	return rng.Float64()
}

// boxMuller turns two uniform draws into two independent standard normals.
func boxMuller(rng *rand.Rand) (float64, float64) {
	u1 := uniform(rng)
	for u1 == 0 {
		u1 = uniform(rng)
	}
	u2 := uniform(rng)
	r := math.Sqrt(-2 * math.Log(u1))
	return r * math.Cos(2 * math.Pi * u2), r * math.Sin(2 * math.Pi * u2)
}
