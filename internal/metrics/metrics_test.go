package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ml/kiln/internal/metrics"
)

func TestWindow_FillsThenEvicts(t *testing.T) {
	w := metrics.NewWindow(3)

	w.Push(1)
	w.Push(2)
	assert.Equal(t, 2, w.Len())
	assert.Equal(t, []float64{1, 2}, w.Values())

	w.Push(3)
	w.Push(4) // evicts 1
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, 4, w.Count())
	assert.Equal(t, []float64{2, 3, 4}, w.Values())
}

func TestWindow_Stats(t *testing.T) {
	w := metrics.NewWindow(4)
	for _, v := range []float64{2, 4, 6, 8} {
		w.Push(v)
	}

	assert.InDelta(t, 5.0, w.Mean(), 1e-12)
	assert.Equal(t, 2.0, w.Min())
	assert.Equal(t, 8.0, w.Max())
	assert.InDelta(t, 2.581988897, w.Std(), 1e-6)

	s := w.Summary()
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 8.0, s.Last)
	assert.InDelta(t, 5.0, s.Mean, 1e-12)
}

func TestWindow_Empty(t *testing.T) {
	w := metrics.NewWindow(8)

	assert.Equal(t, 0, w.Len())
	assert.Equal(t, 0.0, w.Mean())
	assert.Equal(t, 0.0, w.Min())
	assert.Equal(t, 0.0, w.Max())
	assert.Equal(t, 0.0, w.Std())
	assert.Empty(t, w.Values())
}

func TestWindow_SingleObservationStd(t *testing.T) {
	w := metrics.NewWindow(8)
	w.Push(3)
	assert.Equal(t, 0.0, w.Std())
}

func TestWindow_MinimumSize(t *testing.T) {
	w := metrics.NewWindow(0)
	w.Push(1)
	w.Push(2)

	require.Equal(t, 1, w.Len())
	assert.Equal(t, []float64{2}, w.Values())
}

func TestEMA_SeedsOnFirstUpdate(t *testing.T) {
	e := metrics.NewEMA(0.5)
	assert.False(t, e.Primed())
	assert.Equal(t, 0.0, e.Value())

	got := e.Update(10)
	assert.Equal(t, 10.0, got)
	assert.True(t, e.Primed())
}

func TestEMA_Smooths(t *testing.T) {
	e := metrics.NewEMA(0.5)
	e.Update(10)

	assert.InDelta(t, 7.0, e.Update(4), 1e-12)  // 0.5*4 + 0.5*10
	assert.InDelta(t, 5.5, e.Update(4), 1e-12)  // 0.5*4 + 0.5*7
	assert.InDelta(t, 5.5, e.Value(), 1e-12)
}

func TestEMA_BadAlphaFallsBack(t *testing.T) {
	e := metrics.NewEMA(0)
	e.Update(10)
	// alpha 0.1: 0.1*20 + 0.9*10
	assert.InDelta(t, 11.0, e.Update(20), 1e-12)
}
