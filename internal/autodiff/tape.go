package autodiff

import (
	"github.com/kiln-ml/kiln/internal/autodiff/ops"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Tape records operations in execution order while recording is on, then
// replays them backwards to produce gradients.
//
// A tape is single-threaded state. Training loops own one tape per
// engine, clear it after every optimizer step, and leave recording off
// outside the forward pass.
type Tape struct {
	ops       []ops.Operation
	recording bool
}

// NewTape creates an empty, non-recording tape.
func NewTape() *Tape {
	return &Tape{ops: make([]ops.Operation, 0, 64)}
}

// StartRecording turns recording on.
func (t *Tape) StartRecording() { t.recording = true }

// StopRecording turns recording off.
func (t *Tape) StopRecording() { t.recording = false }

// Recording reports whether operations are currently being recorded.
func (t *Tape) Recording() bool { return t.recording }

// Record appends one operation. Callers gate on Recording.
func (t *Tape) Record(op ops.Operation) {
	t.ops = append(t.ops, op)
}

// Len returns the number of recorded operations.
func (t *Tape) Len() int { return len(t.ops) }

// Clear drops every recorded operation, keeping the recording state.
func (t *Tape) Clear() {
	t.ops = t.ops[:0]
}

// Backward walks the recorded operations in reverse, seeding root with
// seed and accumulating per-tensor gradients with the chain rule. The
// returned map is keyed by the graph's RawTensor identities. Operations
// recorded after root, or on branches that never reach it, are skipped.
//
// Recording is suspended for the duration of the walk so the backward
// kernels do not append to the tape they are replaying.
func (t *Tape) Backward(root, seed *tensor.RawTensor, backend tensor.Backend) map[*tensor.RawTensor]*tensor.RawTensor {
	grads := make(map[*tensor.RawTensor]*tensor.RawTensor)
	if len(t.ops) == 0 {
		return grads
	}

	grads[root] = seed

	was := t.recording
	t.recording = false
	defer func() { t.recording = was }()

	for i := len(t.ops) - 1; i >= 0; i-- {
		op := t.ops[i]

		grad, ok := grads[op.Output()]
		if !ok {
			continue
		}

		inputGrads := op.Backward(grad, backend)
		for j, in := range op.Inputs() {
			g := inputGrads[j]
			if g == nil {
				continue
			}
			if prev, ok := grads[in]; ok {
				grads[in] = backend.Add(prev, g)
			} else {
				grads[in] = g
			}
		}
	}
	return grads
}
