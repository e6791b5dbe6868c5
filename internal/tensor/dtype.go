// Package tensor provides the core tensor types shared by every Kiln backend.
package tensor

// DType is the compile-time constraint for element types a Tensor may carry.
type DType interface {
	~float32 | ~float64 | ~int32 | ~int64
}

// DataType is the runtime tag matching a DType instantiation.
type DataType int

// Supported element types. Training runs on Float32; labels are Int32.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
)

// Size returns the width of one element in bytes.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns the Go-style name of the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	default:
		return "unknown"
	}
}

// TypeOf reports the DataType for a generic element type T.
func TypeOf[T DType]() DataType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	case int64:
		return Int64
	default:
		panic("unsupported element type")
	}
}
