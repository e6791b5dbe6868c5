package train

import "time"

// EpochStats summarizes one completed training epoch.
type EpochStats struct {
	Epoch    int           `json:"epoch"`    // 1-based epoch number within a Fit run
	Loss     float64       `json:"loss"`     // average batch loss
	Accuracy float64       `json:"accuracy"` // fraction of samples classified correctly
	Batches  int           `json:"batches"`  // batches stepped
	Elapsed  time.Duration `json:"elapsed"`  // wall time of the epoch
}

// History is the ordered record of a training run.
type History struct {
	epochs []EpochStats
}

// Record appends stats to the history.
func (h *History) Record(stats EpochStats) {
	h.epochs = append(h.epochs, stats)
}

// Len returns the number of recorded epochs.
func (h *History) Len() int { return len(h.epochs) }

// Epochs returns the recorded stats in order.
func (h *History) Epochs() []EpochStats { return h.epochs }

// Last returns the most recent stats, or false when nothing has been
// recorded.
func (h *History) Last() (EpochStats, bool) {
	if len(h.epochs) == 0 {
		return EpochStats{}, false
	}
	return h.epochs[len(h.epochs)-1], true
}

// Best returns the epoch with the lowest average loss.
func (h *History) Best() (EpochStats, bool) {
	if len(h.epochs) == 0 {
		return EpochStats{}, false
	}
	best := h.epochs[0]
	for _, e := range h.epochs[1:] {
		if e.Loss < best.Loss {
			best = e
		}
	}
	return best, true
}

// Losses returns the average loss of each epoch in order.
func (h *History) Losses() []float64 {
	out := make([]float64, len(h.epochs))
	for i, e := range h.epochs {
		out[i] = e.Loss
	}
	return out
}

// Accuracies returns the accuracy of each epoch in order.
func (h *History) Accuracies() []float64 {
	out := make([]float64, len(h.epochs))
	for i, e := range h.epochs {
		out[i] = e.Accuracy
	}
	return out
}
