// Package dataset loads MNIST-class image data and feeds it to the
// training loop as mini-batches.
//
// Every loader produces the same in-memory form: one flattened
// float32 image per sample with pixels normalized to [0, 1], and an
// int32 class index per sample. Sources covered are the official IDX
// binary files (plain or gzipped), Kaggle-style CSV exports, and a
// deterministic synthetic generator for tests and demos.
package dataset

// Dataset is an in-memory labeled image collection.
type Dataset struct {
	Images  [][]float32 // one flattened image per sample, values in [0, 1]
	Labels  []int32     // class index per sample
	Classes []string    // class names indexed by label
	Rows    int         // image height in pixels
	Cols    int         // image width in pixels
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.Images) }

// Features returns the flattened width of one sample.
func (d *Dataset) Features() int { return d.Rows * d.Cols }

// NumClasses returns the number of classes.
func (d *Dataset) NumClasses() int { return len(d.Classes) }

// Split partitions the dataset in order: frac is the fraction moved
// into the second part, so Split(0.2) keeps the first 80% in the
// first part. Both parts share the underlying sample storage.
func (d *Dataset) Split(frac float64) (*Dataset, *Dataset) {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	cut := d.Len() - int(float64(d.Len())*frac)

	first := &Dataset{
		Images:  d.Images[:cut],
		Labels:  d.Labels[:cut],
		Classes: d.Classes,
		Rows:    d.Rows,
		Cols:    d.Cols,
	}
	second := &Dataset{
		Images:  d.Images[cut:],
		Labels:  d.Labels[cut:],
		Classes: d.Classes,
		Rows:    d.Rows,
		Cols:    d.Cols,
	}
	return first, second
}
