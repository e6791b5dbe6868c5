package tensor

import "fmt"

// Shape holds tensor dimensions, outermost first. A zero-length Shape is a
// scalar.
type Shape []int

// NumElements returns the number of elements a tensor of this shape holds.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate reports an error when any dimension is non-positive.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("dimension %d is %d, must be positive", i, dim)
		}
	}
	return nil
}

// Equal reports whether s and other have identical dimensions.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the shape.
func (s Shape) Clone() Shape {
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

// Strides computes row-major strides: stride[i] is the element distance
// between consecutive indices of dimension i.
func (s Shape) Strides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}
	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// String renders the shape as "[d0 d1 ...]".
func (s Shape) String() string {
	return fmt.Sprint([]int(s))
}

// BroadcastShapes resolves two shapes under NumPy broadcasting: dimensions
// are matched right to left, and each pair must be equal or contain a 1.
// Missing leading dimensions count as 1.
//
// The returned flag is true when a dimension had to be stretched from 1,
// i.e. a kernel must broadcast rather than run the element-wise fast path.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	n := max(len(a), len(b))
	out := make(Shape, n)
	broadcast := false

	for i := 0; i < n; i++ {
		ad, bd := 1, 1
		if j := len(a) - 1 - i; j >= 0 {
			ad = a[j]
		}
		if j := len(b) - 1 - i; j >= 0 {
			bd = b[j]
		}

		switch {
		case ad == bd:
			out[n-1-i] = ad
		case ad == 1:
			out[n-1-i] = bd
			broadcast = true
		case bd == 1:
			out[n-1-i] = ad
			broadcast = true
		default:
			return nil, false, fmt.Errorf("cannot broadcast %v with %v: dimension %d has %d vs %d",
				a, b, n-1-i, ad, bd)
		}
	}

	return out, broadcast, nil
}
