package dataset

import "github.com/kiln-ml/kiln/internal/tensor"

// Batch is one mini-batch of images and labels living on backend B.
type Batch[B tensor.Backend] struct {
	Images *tensor.Tensor[float32, B] // [n, features]
	Labels *tensor.Tensor[int32, B]   // [n]
}

// Size returns the number of samples in the batch.
func (b *Batch[B]) Size() int {
	return b.Images.Shape()[0]
}
