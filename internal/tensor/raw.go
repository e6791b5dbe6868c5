package tensor

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Device identifies where a tensor's buffer lives and which backend family
// may touch it. Kiln executes on the CPU only.
type Device int

// CPU is the only supported device.
const CPU Device = iota

// String returns a human-readable device name.
func (d Device) String() string {
	if d == CPU {
		return "CPU"
	}
	return "Unknown"
}

// storage is a reference-counted byte buffer shared between RawTensor views.
// Sharing makes Clone cheap; a count of one lets kernels write results in
// place instead of allocating.
type storage struct {
	data []byte
	refs atomic.Int32
}

func newStorage(size int) *storage {
	s := &storage{data: make([]byte, size)}
	s.refs.Store(1)
	return s
}

func (s *storage) retain() {
	s.refs.Add(1)
}

func (s *storage) release() {
	if s.refs.Add(-1) == 0 {
		s.data = nil
	}
}

func (s *storage) unique() bool {
	return s.refs.Load() == 1
}

// RawTensor is the untyped tensor representation backends operate on:
// a shape, a runtime element type, and a shared storage buffer.
type RawTensor struct {
	buf    *storage
	shape  Shape
	stride []int
	dtype  DataType
	device Device
}

// NewRaw allocates a zero-filled RawTensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	return &RawTensor{
		buf:    newStorage(shape.NumElements() * dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.Strides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the row-major element strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the runtime element type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the device the buffer lives on.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the buffer size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data exposes the raw backing bytes. Writes alias every view that shares
// this storage.
func (r *RawTensor) Data() []byte {
	return r.buf.data
}

// AsFloat32 views the buffer as []float32. Panics on dtype mismatch.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.buf.data[0])), r.NumElements())
}

// AsFloat64 views the buffer as []float64. Panics on dtype mismatch.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(fmt.Sprintf("tensor dtype is %s, not float64", r.dtype))
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&r.buf.data[0])), r.NumElements())
}

// AsInt32 views the buffer as []int32. Panics on dtype mismatch.
func (r *RawTensor) AsInt32() []int32 {
	if r.dtype != Int32 {
		panic(fmt.Sprintf("tensor dtype is %s, not int32", r.dtype))
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&r.buf.data[0])), r.NumElements())
}

// AsInt64 views the buffer as []int64. Panics on dtype mismatch.
func (r *RawTensor) AsInt64() []int64 {
	if r.dtype != Int64 {
		panic(fmt.Sprintf("tensor dtype is %s, not int64", r.dtype))
	}
	return unsafe.Slice((*int64)(unsafe.Pointer(&r.buf.data[0])), r.NumElements())
}

// WithShape returns a view of the same storage under a new shape. No data
// moves; the element count must not change.
func (r *RawTensor) WithShape(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != r.NumElements() {
		return nil, fmt.Errorf("shape %v holds %d elements, tensor has %d",
			shape, shape.NumElements(), r.NumElements())
	}

	r.buf.retain()
	return &RawTensor{
		buf:    r.buf,
		shape:  shape.Clone(),
		stride: shape.Strides(),
		dtype:  r.dtype,
		device: r.device,
	}, nil
}

// Clone returns a view sharing this tensor's storage. The copy is cheap;
// actual data is duplicated only when a kernel needs an exclusive buffer.
func (r *RawTensor) Clone() *RawTensor {
	r.buf.retain()
	return &RawTensor{
		buf:    r.buf,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		device: r.device,
	}
}

// Release drops this view's reference to the shared storage.
func (r *RawTensor) Release() {
	r.buf.release()
}

// Unique reports whether this view holds the only reference to the storage.
// Kernels may overwrite unique buffers in place.
func (r *RawTensor) Unique() bool {
	return r.buf.unique()
}

// Pin bumps the reference count so kernels cannot reuse the buffer in
// place, and returns the matching unpin. The recording engine pins operation
// inputs for the duration of the forward call: the backward pass needs the
// original values intact.
//
//	defer x.Pin()()
func (r *RawTensor) Pin() func() {
	r.buf.retain()
	return r.buf.release
}
