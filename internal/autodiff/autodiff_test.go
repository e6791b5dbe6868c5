package autodiff_test

import (
	"math"
	"testing"

	"github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/internal/backend/cpu"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// eng is the engine type every test in this package trains against.
type eng = *autodiff.Engine[*cpu.CPUBackend]

var _ tensor.Backend = eng(nil)

func newEngine() eng {
	return autodiff.New(cpu.New())
}

func fromSlice(t *testing.T, b eng, data []float32, shape tensor.Shape) *tensor.Tensor[float32, eng] {
	t.Helper()
	x, err := tensor.FromSlice(data, shape, b)
	if err != nil {
		t.Fatalf("FromSlice(%v): %v", shape, err)
	}
	return x
}

func wantFloat32(t *testing.T, name string, got, want []float32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: length %d, want %d", name, len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-5 {
			t.Errorf("%s[%d] = %g, want %g", name, i, got[i], want[i])
		}
	}
}

func TestEngine_Name(t *testing.T) {
	b := newEngine()
	if b.Name() != "Autodiff(CPU)" {
		t.Errorf("Name() = %q, want %q", b.Name(), "Autodiff(CPU)")
	}
}

func TestEngine_Device(t *testing.T) {
	b := newEngine()
	if b.Device() != tensor.CPU {
		t.Errorf("Device() = %v, want %v", b.Device(), tensor.CPU)
	}
}

func TestTape_Recording(t *testing.T) {
	tape := newEngine().Tape()

	if tape.Recording() {
		t.Error("new tape should not be recording")
	}
	tape.StartRecording()
	if !tape.Recording() {
		t.Error("tape should record after StartRecording")
	}
	tape.StopRecording()
	if tape.Recording() {
		t.Error("tape should stop after StopRecording")
	}
}

func TestTape_Clear(t *testing.T) {
	b := newEngine()
	b.Tape().StartRecording()

	x := fromSlice(t, b, []float32{1, 2}, tensor.Shape{2})
	x.Mul(x)
	if b.Tape().Len() != 1 {
		t.Fatalf("tape has %d ops, want 1", b.Tape().Len())
	}

	b.Tape().Clear()
	if b.Tape().Len() != 0 {
		t.Errorf("tape has %d ops after Clear, want 0", b.Tape().Len())
	}
	if !b.Tape().Recording() {
		t.Error("Clear must keep the recording state")
	}
}

func TestEngine_NoRecordingByDefault(t *testing.T) {
	b := newEngine()
	x := fromSlice(t, b, []float32{1, 2, 3}, tensor.Shape{3})

	x.Mul(x).Sum()

	if b.Tape().Len() != 0 {
		t.Errorf("tape recorded %d ops without StartRecording", b.Tape().Len())
	}
}

func TestEngine_ArgmaxCastNotRecorded(t *testing.T) {
	b := newEngine()
	b.Tape().StartRecording()

	x := fromSlice(t, b, []float32{1, 5, 2, 7, 3, 0}, tensor.Shape{2, 3})
	x.Argmax(1)
	x.Int32()

	if b.Tape().Len() != 0 {
		t.Errorf("Argmax/Cast recorded %d ops, want 0", b.Tape().Len())
	}
}

func TestBackward_AddMulChain(t *testing.T) {
	b := newEngine()
	b.Tape().StartRecording()

	// y = (x + 2) * 3, dy/dx = 3
	x := fromSlice(t, b, []float32{5}, tensor.Shape{1})
	two := fromSlice(t, b, []float32{2}, tensor.Shape{1})
	three := fromSlice(t, b, []float32{3}, tensor.Shape{1})

	y := x.Add(two).Mul(three)
	grads := autodiff.Backward(y, b)

	wantFloat32(t, "dy/dx", grads[x.Raw()].AsFloat32(), []float32{3})
	wantFloat32(t, "dy/dthree", grads[three.Raw()].AsFloat32(), []float32{7})
}

func TestBackward_Square(t *testing.T) {
	b := newEngine()
	b.Tape().StartRecording()

	// y = x², both uses of x must accumulate: dy/dx = 2x.
	x := fromSlice(t, b, []float32{3, -4}, tensor.Shape{2})
	y := x.Mul(x)

	grads := autodiff.Backward(y, b)
	wantFloat32(t, "dy/dx", grads[x.Raw()].AsFloat32(), []float32{6, -8})
}

func TestBackward_BroadcastBias(t *testing.T) {
	b := newEngine()
	b.Tape().StartRecording()

	// loss = Σ(x + bias) with bias broadcast over two rows.
	x := fromSlice(t, b, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	bias := fromSlice(t, b, []float32{10, 20, 30}, tensor.Shape{3})

	loss := x.Add(bias).Sum()
	grads := autodiff.Backward(loss, b)

	wantFloat32(t, "dloss/dx", grads[x.Raw()].AsFloat32(), []float32{1, 1, 1, 1, 1, 1})
	wantFloat32(t, "dloss/dbias", grads[bias.Raw()].AsFloat32(), []float32{2, 2, 2})
}

func TestBackward_MatMul(t *testing.T) {
	b := newEngine()
	b.Tape().StartRecording()

	a := fromSlice(t, b, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	m := fromSlice(t, b, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2})

	loss := a.MatMul(m).Sum()
	grads := autodiff.Backward(loss, b)

	// dA[i,j] = Σ_k m[j,k], dM[i,j] = Σ_k a[k,i].
	wantFloat32(t, "dloss/da", grads[a.Raw()].AsFloat32(), []float32{3, 7, 11, 3, 7, 11})
	wantFloat32(t, "dloss/dm", grads[m.Raw()].AsFloat32(), []float32{5, 5, 7, 7, 9, 9})
}

func TestBackward_SkipsOpsAfterRoot(t *testing.T) {
	b := newEngine()
	b.Tape().StartRecording()

	x := fromSlice(t, b, []float32{3}, tensor.Shape{1})
	y := x.Mul(x)
	x.Add(x) // recorded after y, must not leak into y's gradient

	grads := autodiff.Backward(y, b)
	wantFloat32(t, "dy/dx", grads[x.Raw()].AsFloat32(), []float32{6})
}

func TestBackward_Div(t *testing.T) {
	b := newEngine()
	b.Tape().StartRecording()

	num := fromSlice(t, b, []float32{6, 8}, tensor.Shape{2})
	den := fromSlice(t, b, []float32{2, 4}, tensor.Shape{2})

	loss := num.Div(den).Sum()
	grads := autodiff.Backward(loss, b)

	wantFloat32(t, "dloss/dnum", grads[num.Raw()].AsFloat32(), []float32{0.5, 0.25})
	wantFloat32(t, "dloss/dden", grads[den.Raw()].AsFloat32(), []float32{-1.5, -0.5})
}

func TestBackward_Transpose(t *testing.T) {
	b := newEngine()
	b.Tape().StartRecording()

	x := fromSlice(t, b, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	w := fromSlice(t, b, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2})

	loss := x.T().Mul(w).Sum()
	grads := autodiff.Backward(loss, b)

	// Gradient of Σ(xᵀ ⊙ w) is wᵀ.
	wantFloat32(t, "dloss/dx", grads[x.Raw()].AsFloat32(), []float32{1, 3, 5, 2, 4, 6})
}

func TestBackward_Reshape(t *testing.T) {
	b := newEngine()
	b.Tape().StartRecording()

	x := fromSlice(t, b, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	w := fromSlice(t, b, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{6})

	loss := x.Reshape(6).Mul(w).Sum()
	grads := autodiff.Backward(loss, b)

	wantFloat32(t, "dloss/dx", grads[x.Raw()].AsFloat32(), []float32{1, 2, 3, 4, 5, 6})
	if !grads[x.Raw()].Shape().Equal(tensor.Shape{2, 3}) {
		t.Errorf("gradient shape %v, want [2 3]", grads[x.Raw()].Shape())
	}
}

func TestBackward_ReLUMask(t *testing.T) {
	b := newEngine()
	b.Tape().StartRecording()

	x := fromSlice(t, b, []float32{-1, 2, -3, 4}, tensor.Shape{4})
	y := tensor.New[float32](b.ReLU(x.Raw()), b)

	grads := autodiff.Backward(y.Sum(), b)
	wantFloat32(t, "drelu/dx", grads[x.Raw()].AsFloat32(), []float32{0, 1, 0, 1})
}

func TestBackward_SigmoidTanh(t *testing.T) {
	b := newEngine()
	b.Tape().StartRecording()

	x := fromSlice(t, b, []float32{0}, tensor.Shape{1})
	sig := tensor.New[float32](b.Sigmoid(x.Raw()), b)
	tnh := tensor.New[float32](b.Tanh(x.Raw()), b)

	grads := autodiff.Backward(sig.Add(tnh).Sum(), b)

	// σ'(0) = 0.25, tanh'(0) = 1.
	wantFloat32(t, "d(σ+tanh)/dx", grads[x.Raw()].AsFloat32(), []float32{1.25})
}

func TestBackward_CrossEntropyUniform(t *testing.T) {
	b := newEngine()
	b.Tape().StartRecording()

	logits := fromSlice(t, b, []float32{0, 0, 0, 0, 0, 0}, tensor.Shape{2, 3})
	targets, err := tensor.FromSlice([]int32{0, 2}, tensor.Shape{2}, b)
	if err != nil {
		t.Fatalf("FromSlice targets: %v", err)
	}

	loss := tensor.New[float32](b.CrossEntropy(logits.Raw(), targets.Raw()), b)
	if got, want := loss.Item(), float32(math.Log(3)); math.Abs(float64(got-want)) > 1e-5 {
		t.Errorf("uniform cross-entropy = %g, want ln(3) = %g", got, want)
	}

	grads := autodiff.Backward(loss, b)

	// (softmax - onehot) / batch with softmax = 1/3 everywhere.
	third := float32(1.0 / 3.0)
	want := []float32{
		(third - 1) / 2, third / 2, third / 2,
		third / 2, third / 2, (third - 1) / 2,
	}
	wantFloat32(t, "dloss/dlogits", grads[logits.Raw()].AsFloat32(), want)
}

func TestBackward_CrossEntropyRowsSumToZero(t *testing.T) {
	b := newEngine()
	b.Tape().StartRecording()

	logits := fromSlice(t, b, []float32{2, -1, 0.5, -3, 1, 4}, tensor.Shape{2, 3})
	targets, err := tensor.FromSlice([]int32{1, 0}, tensor.Shape{2}, b)
	if err != nil {
		t.Fatalf("FromSlice targets: %v", err)
	}

	loss := tensor.New[float32](b.CrossEntropy(logits.Raw(), targets.Raw()), b)
	grads := autodiff.Backward(loss, b)

	data := grads[logits.Raw()].AsFloat32()
	for r := 0; r < 2; r++ {
		var sum float32
		for j := 0; j < 3; j++ {
			sum += data[r*3+j]
		}
		if math.Abs(float64(sum)) > 1e-6 {
			t.Errorf("gradient row %d sums to %g, want 0", r, sum)
		}
	}
}

func TestBackward_MSE(t *testing.T) {
	b := newEngine()
	b.Tape().StartRecording()

	pred := fromSlice(t, b, []float32{1, 2}, tensor.Shape{2})
	target := fromSlice(t, b, []float32{0, 0}, tensor.Shape{2})

	loss := tensor.New[float32](b.MSE(pred.Raw(), target.Raw()), b)
	if got := loss.Item(); math.Abs(float64(got-2.5)) > 1e-6 {
		t.Errorf("mse = %g, want 2.5", got)
	}

	grads := autodiff.Backward(loss, b)

	// 2(pred-target)/n = pred here.
	wantFloat32(t, "dloss/dpred", grads[pred.Raw()].AsFloat32(), []float32{1, 2})
	if grads[target.Raw()] != nil {
		t.Error("targets must not receive a gradient")
	}
}

func TestBackward_SoftmaxWeighted(t *testing.T) {
	b := newEngine()
	b.Tape().StartRecording()

	x := fromSlice(t, b, []float32{0, 0, 0}, tensor.Shape{1, 3})
	w := fromSlice(t, b, []float32{1, 0, 0}, tensor.Shape{1, 3})

	loss := x.Softmax(-1).Mul(w).Sum()
	grads := autodiff.Backward(loss, b)

	// s = 1/3 everywhere, dot = Σ w·s = 1/3:
	// dx_j = s_j (w_j - dot).
	want := []float32{2.0 / 9.0, -1.0 / 9.0, -1.0 / 9.0}
	wantFloat32(t, "dloss/dx", grads[x.Raw()].AsFloat32(), want)
}

func TestBackward_MeanDim(t *testing.T) {
	b := newEngine()
	b.Tape().StartRecording()

	x := fromSlice(t, b, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	loss := x.MeanDim(1, false).Sum()

	grads := autodiff.Backward(loss, b)
	third := float32(1.0 / 3.0)
	wantFloat32(t, "dloss/dx", grads[x.Raw()].AsFloat32(),
		[]float32{third, third, third, third, third, third})
}
