package train

import (
	"errors"
	"fmt"
)

// ErrNoBatches reports that an epoch's batch sequence was empty. The
// trainer's state is unchanged, so the caller can refill or
// reconfigure the source and try again.
var ErrNoBatches = errors.New("train: data source produced no batches")

// ShapeError reports a batch whose per-sample width does not match the
// classifier's input width. It surfaces before the forward pass, so no
// parameter of the failing step has been touched.
type ShapeError struct {
	Got  int // features per sample in the offending batch
	Want int // classifier input width
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("train: batch has %d features per sample, classifier expects %d", e.Got, e.Want)
}
