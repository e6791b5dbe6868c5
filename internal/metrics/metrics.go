// Package metrics tracks scalar training series such as loss and
// accuracy. Window keeps a bounded tail of recent observations and
// EMA maintains an exponentially smoothed estimate. Both are small
// enough to update once per batch without showing up in a profile.
package metrics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Window retains the most recent observations of a scalar series.
// Once full, each Push evicts the oldest value.
type Window struct {
	values []float64
	next   int
	last   float64
	count  int
}

// NewWindow returns a window holding at most size observations.
// Sizes below 1 are raised to 1.
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{values: make([]float64, 0, size)}
}

// Push records an observation.
func (w *Window) Push(v float64) {
	w.last = v
	w.count++
	if len(w.values) < cap(w.values) {
		w.values = append(w.values, v)
		return
	}
	w.values[w.next] = v
	w.next = (w.next + 1) % len(w.values)
}

// Len returns the number of retained observations.
func (w *Window) Len() int { return len(w.values) }

// Count returns the number of observations ever pushed, including
// evicted ones.
func (w *Window) Count() int { return w.count }

// Values returns the retained observations oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, 0, len(w.values))
	if len(w.values) < cap(w.values) {
		return append(out, w.values...)
	}
	out = append(out, w.values[w.next:]...)
	return append(out, w.values[:w.next]...)
}

// Mean returns the mean of the retained observations, or 0 when empty.
func (w *Window) Mean() float64 {
	if len(w.values) == 0 {
		return 0
	}
	return stat.Mean(w.values, nil)
}

// Min returns the smallest retained observation, or 0 when empty.
func (w *Window) Min() float64 {
	if len(w.values) == 0 {
		return 0
	}
	return floats.Min(w.values)
}

// Max returns the largest retained observation, or 0 when empty.
func (w *Window) Max() float64 {
	if len(w.values) == 0 {
		return 0
	}
	return floats.Max(w.values)
}

// Std returns the sample standard deviation of the retained
// observations, or 0 with fewer than two of them.
func (w *Window) Std() float64 {
	if len(w.values) < 2 {
		return 0
	}
	return stat.StdDev(w.values, nil)
}

// Summary is a point-in-time view of a window.
type Summary struct {
	Count int     `json:"count"`
	Last  float64 `json:"last"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Std   float64 `json:"std"`
}

// Summary captures the window's current statistics.
func (w *Window) Summary() Summary {
	return Summary{
		Count: w.count,
		Last:  w.last,
		Mean:  w.Mean(),
		Min:   w.Min(),
		Max:   w.Max(),
		Std:   w.Std(),
	}
}

// EMA is an exponentially weighted moving average. The first update
// seeds the estimate directly.
type EMA struct {
	alpha  float64
	value  float64
	primed bool
}

// NewEMA returns an average with the given smoothing factor in (0, 1].
// Larger factors weight recent observations more. Out-of-range factors
// fall back to 0.1.
func NewEMA(alpha float64) *EMA {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.1
	}
	return &EMA{alpha: alpha}
}

// Update folds in an observation and returns the new estimate.
func (e *EMA) Update(v float64) float64 {
	if !e.primed {
		e.value = v
		e.primed = true
		return e.value
	}
	e.value = e.alpha*v + (1-e.alpha)*e.value
	return e.value
}

// Value returns the current estimate, 0 before the first update.
func (e *EMA) Value() float64 { return e.value }

// Primed reports whether at least one observation has been folded in.
func (e *EMA) Primed() bool { return e.primed }
