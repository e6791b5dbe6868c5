package ops

import (
	"fmt"
	"math"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// CrossEntropy computes the mean negative log-likelihood of integer class
// targets under softmax(logits), as a fresh scalar tensor.
//
// logits must be [batch, classes] float, targets [batch] int32. The
// log-sum-exp trick keeps the computation stable for large logits.
func CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	rows, cols := checkLossShapes(logits, targets)
	out := alloc("cross-entropy", tensor.Shape{}, logits.DType(), logits.Device())

	switch logits.DType() {
	case tensor.Float32:
		out.AsFloat32()[0] = float32(ceForward(logits.AsFloat32(), targets.AsInt32(), rows, cols))
	case tensor.Float64:
		out.AsFloat64()[0] = ceForward(logits.AsFloat64(), targets.AsInt32(), rows, cols)
	default:
		panic(fmt.Sprintf("cross-entropy: unsupported dtype %s", logits.DType()))
	}
	return out
}

// CrossEntropyOp records the fused softmax + negative log-likelihood loss.
//
// The fusion buys the textbook gradient
//
//	d loss / d logits[b,j] = (softmax(logits[b])[j] - onehot[b,j]) / batch
//
// which is why the two stages are recorded as one op instead of a
// softmax node feeding a gather and a mean.
//
// Targets are class indices, not differentiated, so Inputs lists only
// the logits.
type CrossEntropyOp struct {
	logits  *tensor.RawTensor
	targets *tensor.RawTensor
	out     *tensor.RawTensor
}

// NewCrossEntropyOp creates the record for a cross-entropy loss.
func NewCrossEntropyOp(logits, targets, out *tensor.RawTensor) *CrossEntropyOp {
	return &CrossEntropyOp{logits, targets, out}
}

func (op *CrossEntropyOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.logits}
}

func (op *CrossEntropyOp) Output() *tensor.RawTensor { return op.out }

func (op *CrossEntropyOp) Backward(grad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	rows, cols := op.logits.Shape()[0], op.logits.Shape()[1]
	dst := alloc("cross-entropy", op.logits.Shape(), op.logits.DType(), op.logits.Device())

	switch op.logits.DType() {
	case tensor.Float32:
		ceBackward(dst.AsFloat32(), op.logits.AsFloat32(), op.targets.AsInt32(), grad.AsFloat32()[0], rows, cols)
	case tensor.Float64:
		ceBackward(dst.AsFloat64(), op.logits.AsFloat64(), op.targets.AsInt32(), grad.AsFloat64()[0], rows, cols)
	default:
		panic(fmt.Sprintf("cross-entropy: unsupported dtype %s", op.logits.DType()))
	}
	return []*tensor.RawTensor{dst}
}

func ceForward[T ~float32 | ~float64](logits []T, targets []int32, rows, cols int) float64 {
	var total float64
	for r := 0; r < rows; r++ {
		row := logits[r*cols : (r+1)*cols]
		t := int(targets[r])
		if t < 0 || t >= cols {
			panic(fmt.Sprintf("cross-entropy: target %d out of range [0, %d)", t, cols))
		}
		total += logSumExp(row) - float64(row[t])
	}
	return total / float64(rows)
}

func ceBackward[T ~float32 | ~float64](dst, logits []T, targets []int32, scale T, rows, cols int) {
	for r := 0; r < rows; r++ {
		row := logits[r*cols : (r+1)*cols]
		out := dst[r*cols : (r+1)*cols]
		lse := logSumExp(row)
		t := int(targets[r])

		// exp(x - logSumExp) is the softmax probability.
		for j := range row {
			p := T(math.Exp(float64(row[j]) - lse))
			if j == t {
				p--
			}
			out[j] = scale * p / T(rows)
		}
	}
}

func logSumExp[T ~float32 | ~float64](row []T) float64 {
	maxv := float64(row[0])
	for _, v := range row[1:] {
		if float64(v) > maxv {
			maxv = float64(v)
		}
	}
	var sum float64
	for _, v := range row {
		sum += math.Exp(float64(v) - maxv)
	}
	return maxv + math.Log(sum)
}

// MSE computes mean((pred-target)²) over every element, as a fresh
// scalar tensor. Shapes and dtypes must match exactly.
func MSE(pred, target *tensor.RawTensor) *tensor.RawTensor {
	checkPairShapes("mse", pred, target)
	out := alloc("mse", tensor.Shape{}, pred.DType(), pred.Device())

	switch pred.DType() {
	case tensor.Float32:
		out.AsFloat32()[0] = float32(mseForward(pred.AsFloat32(), target.AsFloat32()))
	case tensor.Float64:
		out.AsFloat64()[0] = mseForward(pred.AsFloat64(), target.AsFloat64())
	default:
		panic(fmt.Sprintf("mse: unsupported dtype %s", pred.DType()))
	}
	return out
}

// MSEOp records the mean squared error loss. Targets are constants, so
// Inputs lists only the prediction.
type MSEOp struct {
	pred   *tensor.RawTensor
	target *tensor.RawTensor
	out    *tensor.RawTensor
}

// NewMSEOp creates the record for an MSE loss.
func NewMSEOp(pred, target, out *tensor.RawTensor) *MSEOp {
	return &MSEOp{pred, target, out}
}

func (op *MSEOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.pred} }

func (op *MSEOp) Output() *tensor.RawTensor { return op.out }

func (op *MSEOp) Backward(grad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	dst := alloc("mse", op.pred.Shape(), op.pred.DType(), op.pred.Device())

	switch op.pred.DType() {
	case tensor.Float32:
		mseBackward(dst.AsFloat32(), op.pred.AsFloat32(), op.target.AsFloat32(), grad.AsFloat32()[0])
	case tensor.Float64:
		mseBackward(dst.AsFloat64(), op.pred.AsFloat64(), op.target.AsFloat64(), grad.AsFloat64()[0])
	default:
		panic(fmt.Sprintf("mse: unsupported dtype %s", op.pred.DType()))
	}
	return []*tensor.RawTensor{dst}
}

func mseForward[T ~float32 | ~float64](pred, target []T) float64 {
	var total float64
	for i := range pred {
		d := float64(pred[i]) - float64(target[i])
		total += d * d
	}
	return total / float64(len(pred))
}

func mseBackward[T ~float32 | ~float64](dst, pred, target []T, scale T) {
	n := T(len(pred))
	for i := range dst {
		dst[i] = scale * 2 * (pred[i] - target[i]) / n
	}
}

func checkLossShapes(logits, targets *tensor.RawTensor) (rows, cols int) {
	ls := logits.Shape()
	if len(ls) != 2 {
		panic(fmt.Sprintf("cross-entropy: logits must be 2D, got shape %v", ls))
	}
	ts := targets.Shape()
	if len(ts) != 1 {
		panic(fmt.Sprintf("cross-entropy: targets must be 1D, got shape %v", ts))
	}
	if ts[0] != ls[0] {
		panic(fmt.Sprintf("cross-entropy: batch mismatch: %d logits rows, %d targets", ls[0], ts[0]))
	}
	if targets.DType() != tensor.Int32 {
		panic(fmt.Sprintf("cross-entropy: targets must be int32, got %s", targets.DType()))
	}
	return ls[0], ls[1]
}

func checkPairShapes(name string, a, b *tensor.RawTensor) {
	if !a.Shape().Equal(b.Shape()) {
		panic(fmt.Sprintf("%s: shape mismatch: %v vs %v", name, a.Shape(), b.Shape()))
	}
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: %s vs %s", name, a.DType(), b.DType()))
	}
}
