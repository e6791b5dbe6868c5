package cpu

import (
	"math"
	"testing"

	"github.com/kiln-ml/kiln/internal/tensor"
)

func TestExp(t *testing.T) {
	backend := New()
	x := rawFloat32(t, []float32{0, 1, 2}, tensor.Shape{3})

	got := backend.Exp(x).AsFloat32()
	want := []float32{1, float32(math.E), float32(math.Exp(2))}
	if !float32SliceEqual(got, want) {
		t.Errorf("Exp = %v, want %v", got, want)
	}
}

func TestLog(t *testing.T) {
	backend := New()
	x := rawFloat32(t, []float32{1, float32(math.E), 10}, tensor.Shape{3})

	got := backend.Log(x).AsFloat32()
	want := []float32{0, 1, float32(math.Log(10))}
	if !float32SliceEqual(got, want) {
		t.Errorf("Log = %v, want %v", got, want)
	}
}

func TestLogNonPositive(t *testing.T) {
	backend := New()
	x := rawFloat32(t, []float32{0}, tensor.Shape{1})

	defer func() {
		if recover() == nil {
			t.Error("Log of zero should panic")
		}
	}()
	backend.Log(x)
}

func TestSqrt(t *testing.T) {
	backend := New()
	x := rawFloat32(t, []float32{0, 4, 9}, tensor.Shape{3})

	got := backend.Sqrt(x).AsFloat32()
	want := []float32{0, 2, 3}
	if !float32SliceEqual(got, want) {
		t.Errorf("Sqrt = %v, want %v", got, want)
	}
}

func TestSqrtNegative(t *testing.T) {
	backend := New()
	x := rawFloat32(t, []float32{-1}, tensor.Shape{1})

	defer func() {
		if recover() == nil {
			t.Error("Sqrt of a negative should panic")
		}
	}()
	backend.Sqrt(x)
}

func TestSoftmax(t *testing.T) {
	backend := New()
	x := rawFloat32(t, []float32{1, 2, 3, 1, 1, 1}, tensor.Shape{2, 3})

	result := backend.Softmax(x, -1)
	got := result.AsFloat32()

	// Each row sums to one.
	for row := 0; row < 2; row++ {
		var sum float32
		for col := 0; col < 3; col++ {
			sum += got[row*3+col]
		}
		if d := sum - 1; d > 1e-5 || d < -1e-5 {
			t.Errorf("row %d sum = %v, want 1", row, sum)
		}
	}

	// Uniform logits give uniform probabilities.
	third := float32(1.0 / 3.0)
	if !float32SliceEqual(got[3:], []float32{third, third, third}) {
		t.Errorf("uniform row = %v", got[3:])
	}
	// Larger logits get larger mass.
	if !(got[2] > got[1] && got[1] > got[0]) {
		t.Errorf("softmax should preserve order, got %v", got[:3])
	}
}

func TestSoftmaxLargeLogits(t *testing.T) {
	backend := New()
	x := rawFloat32(t, []float32{1000, 1000}, tensor.Shape{1, 2})

	got := backend.Softmax(x, 1).AsFloat32()
	if !float32SliceEqual(got, []float32{0.5, 0.5}) {
		t.Errorf("Softmax overflowed: %v", got)
	}
}
