package serialization

import (
	"time"

	"github.com/kiln-ml/kiln/internal/tensor"
)

// Format constants.
const (
	Magic         = "KILN"
	FormatVersion = 1
	prefixSize    = 16 // magic + version byte + reserved + header size
	DataAlignment = 64 // tensor data starts on a 64-byte boundary
	ChecksumSize  = 32 // SHA-256 trailer
)

// MaxHeaderSize bounds the JSON header so a corrupt length field cannot
// drive a huge allocation.
const MaxHeaderSize = 16 * 1024 * 1024

// Header is the JSON metadata block of a .kiln file.
type Header struct {
	Version   int          `json:"version"`
	CreatedAt time.Time    `json:"created_at"`
	Model     string       `json:"model,omitempty"`
	Tensors   []TensorMeta `json:"tensors"`
	Run       *RunMeta     `json:"run,omitempty"`
}

// TensorMeta locates one tensor inside the data section.
type TensorMeta struct {
	Name   string `json:"name"`
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
}

// RunMeta records where a training run stood when the file was written.
type RunMeta struct {
	Epoch     int     `json:"epoch"`
	Loss      float64 `json:"loss"`
	Accuracy  float64 `json:"accuracy"`
	Optimizer string  `json:"optimizer,omitempty"`
	LR        float64 `json:"lr,omitempty"`
}

// Entry pairs a tensor with its stored name.
type Entry struct {
	Name string
	Raw  *tensor.RawTensor
}

func parseDType(s string) (tensor.DataType, bool) {
	switch s {
	case "float32":
		return tensor.Float32, true
	case "float64":
		return tensor.Float64, true
	case "int32":
		return tensor.Int32, true
	case "int64":
		return tensor.Int64, true
	default:
		return 0, false
	}
}

// padding returns the number of zero bytes needed to advance pos to the
// next DataAlignment boundary.
func padding(pos int64) int64 {
	return (DataAlignment - (pos % DataAlignment)) % DataAlignment
}
