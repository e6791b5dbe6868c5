package train

import (
	"github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/internal/nn"
)

// Evaluate runs a full pass over src with recording off and returns
// the average batch loss and overall accuracy. Parameters are never
// modified. An empty source returns ErrNoBatches; a batch whose width
// does not match the model returns *ShapeError.
func Evaluate[B autodiff.Recorder](model Classifier[B], criterion Criterion[B], engine B, src Source[B]) (loss, accuracy float64, err error) {
	tape := engine.Tape()
	if tape.Recording() {
		tape.StopRecording()
		defer tape.StartRecording()
	}

	src.Reset()
	var (
		lossSum float64
		accSum  float64
		samples int
		batches int
	)
	for {
		batch, ok := src.Next()
		if !ok {
			break
		}
		input, ferr := flattenInput(batch.Images, model.InFeatures())
		if ferr != nil {
			return 0, 0, ferr
		}
		logits := model.Forward(input)
		lossT := criterion.Forward(logits, batch.Labels)

		n := batch.Size()
		lossSum += float64(lossT.Item())
		accSum += nn.Accuracy(logits, batch.Labels) * float64(n)
		samples += n
		batches++
	}
	if batches == 0 {
		return 0, 0, ErrNoBatches
	}
	return lossSum / float64(batches), accSum / float64(samples), nil
}
