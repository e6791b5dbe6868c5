package serialization

import (
	"errors"
	"fmt"
)

// Sentinel errors for structurally broken files.
var (
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrTruncated          = errors.New("file truncated")
)

// ValidationError reports a header that is well-formed JSON but
// describes an impossible or unsafe tensor layout.
type ValidationError struct {
	Type    string // kind of failure, e.g. "out_of_bounds", "offset_overlap"
	Tensor  string // primary tensor name involved
	Tensor2 string // second tensor name for overlap failures
	Details string
}

func (e *ValidationError) Error() string {
	if e.Tensor2 != "" {
		return fmt.Sprintf("%s: tensors %q and %q: %s", e.Type, e.Tensor, e.Tensor2, e.Details)
	}
	if e.Tensor != "" {
		return fmt.Sprintf("%s: tensor %q: %s", e.Type, e.Tensor, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}
