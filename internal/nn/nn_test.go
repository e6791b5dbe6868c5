package nn_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/internal/backend/cpu"
	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/tensor"
)

type eng = *autodiff.Engine[*cpu.CPUBackend]

func newEngine() eng {
	return autodiff.New(cpu.New())
}

func almost(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func mustTensor[T tensor.DType, B tensor.Backend](t *testing.T, data []T, shape tensor.Shape, b B) *tensor.Tensor[T, B] {
	t.Helper()
	x, err := tensor.FromSlice(data, shape, b)
	if err != nil {
		t.Fatalf("FromSlice(%v): %v", shape, err)
	}
	return x
}

func TestParameter(t *testing.T) {
	b := newEngine()

	data := mustTensor(t, []float32{1, 2, 3}, tensor.Shape{3}, b)
	param := nn.NewParameter("weight", data)

	if param.Name() != "weight" {
		t.Errorf("Name() = %q, want %q", param.Name(), "weight")
	}
	if param.Tensor() != data {
		t.Error("Tensor() must return the wrapped tensor")
	}
	if param.Grad() != nil {
		t.Error("Grad() must start nil")
	}

	grad := mustTensor(t, []float32{0.1, 0.2, 0.3}, tensor.Shape{3}, b)
	param.SetGrad(grad)
	if param.Grad() != grad {
		t.Error("SetGrad() must attach the gradient")
	}

	param.ZeroGrad()
	if param.Grad() != nil {
		t.Error("ZeroGrad() must drop the gradient")
	}
}

func TestLinear_Creation(t *testing.T) {
	b := newEngine()
	rng := rand.New(rand.NewSource(1))

	layer := nn.NewLinear(10, 5, rng, b)

	if layer.InFeatures() != 10 {
		t.Errorf("InFeatures() = %d, want 10", layer.InFeatures())
	}
	if layer.OutFeatures() != 5 {
		t.Errorf("OutFeatures() = %d, want 5", layer.OutFeatures())
	}
	if !layer.Weight().Tensor().Shape().Equal(tensor.Shape{5, 10}) {
		t.Errorf("weight shape = %v, want [5 10]", layer.Weight().Tensor().Shape())
	}
	if !layer.Bias().Tensor().Shape().Equal(tensor.Shape{5}) {
		t.Errorf("bias shape = %v, want [5]", layer.Bias().Tensor().Shape())
	}
	for i, v := range layer.Bias().Tensor().Data() {
		if v != 0 {
			t.Errorf("bias[%d] = %g, want 0", i, v)
		}
	}
	if got := len(layer.Parameters()); got != 2 {
		t.Errorf("Parameters() has %d entries, want 2", got)
	}
}

func TestLinear_Forward(t *testing.T) {
	b := newEngine()
	layer := nn.NewLinear(3, 2, rand.New(rand.NewSource(1)), b)

	// Pin the layer to known values.
	copy(layer.Weight().Tensor().Data(), []float32{1, 2, 3, 4, 5, 6})
	copy(layer.Bias().Tensor().Data(), []float32{10, 20})

	x := mustTensor(t, []float32{1, 1, 1, 2, 0, -1}, tensor.Shape{2, 3}, b)
	y := layer.Forward(x)

	if !y.Shape().Equal(tensor.Shape{2, 2}) {
		t.Fatalf("output shape = %v, want [2 2]", y.Shape())
	}
	want := []float32{16, 35, 9, 22}
	for i, v := range y.Data() {
		if !almost(v, want[i]) {
			t.Errorf("y[%d] = %g, want %g", i, v, want[i])
		}
	}
}

func TestLinear_ForwardRejectsWrongWidth(t *testing.T) {
	b := newEngine()
	layer := nn.NewLinear(3, 2, rand.New(rand.NewSource(1)), b)
	x := mustTensor(t, []float32{1, 2}, tensor.Shape{1, 2}, b)

	defer func() {
		if recover() == nil {
			t.Error("Forward with 2 features into a 3-feature layer must panic")
		}
	}()
	layer.Forward(x)
}

func TestLinear_GradientFlow(t *testing.T) {
	b := newEngine()
	layer := nn.NewLinear(3, 2, rand.New(rand.NewSource(1)), b)

	b.Tape().StartRecording()
	x := mustTensor(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, b)
	loss := layer.Forward(x).Sum()

	grads := autodiff.Backward(loss, b)

	wGrad := grads[layer.Weight().Tensor().Raw()]
	if wGrad == nil {
		t.Fatal("weight received no gradient")
	}
	if !wGrad.Shape().Equal(tensor.Shape{2, 3}) {
		t.Errorf("weight gradient shape = %v, want [2 3]", wGrad.Shape())
	}

	bGrad := grads[layer.Bias().Tensor().Raw()]
	if bGrad == nil {
		t.Fatal("bias received no gradient")
	}
	// d(Σy)/d(bias_j) counts one per batch row.
	for i, v := range bGrad.AsFloat32() {
		if !almost(v, 2) {
			t.Errorf("bias grad[%d] = %g, want 2", i, v)
		}
	}
}

func TestSequential(t *testing.T) {
	b := newEngine()
	rng := rand.New(rand.NewSource(2))

	model := nn.NewSequential[eng](
		nn.NewLinear(4, 3, rng, b),
		nn.NewReLU[eng](),
	)
	model.Add(nn.NewLinear(3, 2, rng, b))

	if model.Len() != 3 {
		t.Errorf("Len() = %d, want 3", model.Len())
	}
	if got := len(model.Parameters()); got != 4 {
		t.Errorf("Parameters() has %d entries, want 4", got)
	}

	x := mustTensor(t, []float32{1, 2, 3, 4}, tensor.Shape{1, 4}, b)
	y := model.Forward(x)
	if !y.Shape().Equal(tensor.Shape{1, 2}) {
		t.Errorf("output shape = %v, want [1 2]", y.Shape())
	}
}

func TestReLU_Forward(t *testing.T) {
	b := newEngine()
	relu := nn.NewReLU[eng]()

	x := mustTensor(t, []float32{-2, -0.5, 0, 1.5}, tensor.Shape{4}, b)
	y := relu.Forward(x)

	want := []float32{0, 0, 0, 1.5}
	for i, v := range y.Data() {
		if !almost(v, want[i]) {
			t.Errorf("relu[%d] = %g, want %g", i, v, want[i])
		}
	}
	if relu.Parameters() != nil {
		t.Error("ReLU must have no parameters")
	}
}

func TestSigmoidTanh_Forward(t *testing.T) {
	b := newEngine()

	x := mustTensor(t, []float32{0}, tensor.Shape{1}, b)

	if got := nn.NewSigmoid[eng]().Forward(x).Data()[0]; !almost(got, 0.5) {
		t.Errorf("sigmoid(0) = %g, want 0.5", got)
	}
	if got := nn.NewTanh[eng]().Forward(x).Data()[0]; !almost(got, 0) {
		t.Errorf("tanh(0) = %g, want 0", got)
	}
}

func TestActivation_RequiresCapableBackend(t *testing.T) {
	raw := cpu.New()
	x, err := tensor.FromSlice([]float32{1}, tensor.Shape{1}, raw)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("ReLU on a backend without the capability must panic")
		}
	}()
	nn.NewReLU[*cpu.CPUBackend]().Forward(x)
}
