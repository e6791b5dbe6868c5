package dataset

import (
	"math/rand"

	"github.com/kiln-ml/kiln/internal/parallel"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Loader feeds a Dataset to the training loop as mini-batches on
// backend B. It satisfies the trainer's Source contract: Reset begins
// an epoch, Next yields batches until the epoch is exhausted, and the
// final batch keeps whatever samples remain.
//
// Shuffling draws one permutation per Reset from a seeded generator,
// so a fixed seed fixes the whole sequence of epoch orderings. A
// fresh Loader is exhausted; call Reset before iterating.
type Loader[B tensor.Backend] struct {
	data      *Dataset
	backend   B
	batchSize int
	shuffle   bool
	rng       *rand.Rand
	order     []int
	cursor    int
	workers   parallel.Config
}

// LoaderConfig configures NewLoader.
type LoaderConfig struct {
	BatchSize int   // samples per batch; values below 1 become 32
	Shuffle   bool  // draw a new sample order on every Reset
	Seed      int64 // shuffle seed
}

// NewLoader creates a Loader over data.
func NewLoader[B tensor.Backend](data *Dataset, cfg LoaderConfig, backend B) *Loader[B] {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 32
	}
	l := &Loader[B]{
		data:      data,
		backend:   backend,
		batchSize: cfg.BatchSize,
		shuffle:   cfg.Shuffle,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		order:     make([]int, data.Len()),
		cursor:    data.Len(),
		workers:   parallel.DefaultConfig(),
	}
	for i := range l.order {
		l.order[i] = i
	}
	return l
}

// Reset begins a new epoch: the cursor rewinds and, when shuffling is
// on, the next permutation is drawn from the seeded generator.
func (l *Loader[B]) Reset() {
	if l.shuffle {
		l.rng.Shuffle(len(l.order), func(i, j int) {
			l.order[i], l.order[j] = l.order[j], l.order[i]
		})
	}
	l.cursor = 0
}

// Next assembles and returns the next batch, or false once the epoch
// is exhausted.
func (l *Loader[B]) Next() (*Batch[B], bool) {
	if l.cursor >= l.data.Len() {
		return nil, false
	}
	end := l.cursor + l.batchSize
	if end > l.data.Len() {
		end = l.data.Len()
	}
	batch := l.assemble(l.order[l.cursor:end])
	l.cursor = end
	return batch, true
}

// Batches returns the number of batches one epoch yields, counting
// the final short batch.
func (l *Loader[B]) Batches() int {
	return (l.data.Len() + l.batchSize - 1) / l.batchSize
}

// assemble copies the selected samples into fresh device tensors,
// fanning the row copies out across the worker pool.
func (l *Loader[B]) assemble(indices []int) *Batch[B] {
	n := len(indices)
	features := l.data.Features()

	imagesRaw, err := tensor.NewRaw(tensor.Shape{n, features}, tensor.Float32, l.backend.Device())
	if err != nil {
		panic(err)
	}
	labelsRaw, err := tensor.NewRaw(tensor.Shape{n}, tensor.Int32, l.backend.Device())
	if err != nil {
		panic(err)
	}

	imagesData := imagesRaw.AsFloat32()
	labelsData := labelsRaw.AsInt32()
	parallel.For(n, func(i int) {
		src := indices[i]
		copy(imagesData[i*features:(i+1)*features], l.data.Images[src])
		labelsData[i] = l.data.Labels[src]
	}, l.workers)

	return &Batch[B]{
		Images: tensor.New[float32](imagesRaw, l.backend),
		Labels: tensor.New[int32](labelsRaw, l.backend),
	}
}
