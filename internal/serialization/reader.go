package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Read parses a .kiln stream and materializes every tensor on device.
// The header and data section are fully validated, including the
// trailing checksum, before any entry is returned.
func Read(r io.Reader, device tensor.Device) ([]Entry, Header, error) {
	prefix := make([]byte, prefixSize)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, Header{}, truncated("prefix", err)
	}
	if string(prefix[0:4]) != Magic {
		return nil, Header{}, ErrInvalidMagic
	}
	if prefix[4] != FormatVersion {
		return nil, Header{}, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, prefix[4], FormatVersion)
	}

	headerSize := binary.LittleEndian.Uint64(prefix[8:16])
	if headerSize > MaxHeaderSize {
		return nil, Header{}, ErrHeaderTooLarge
	}
	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, Header{}, truncated("header", err)
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, Header{}, fmt.Errorf("parse header: %w", err)
	}

	if pad := padding(prefixSize + int64(headerSize)); pad > 0 {
		if _, err := io.CopyN(io.Discard, r, pad); err != nil {
			return nil, Header{}, truncated("padding", err)
		}
	}

	rest, err := io.ReadAll(r)
	if err != nil {
		return nil, Header{}, fmt.Errorf("read data: %w", err)
	}
	if len(rest) < ChecksumSize {
		return nil, Header{}, ErrTruncated
	}
	data := rest[:len(rest)-ChecksumSize]
	var stored [32]byte
	copy(stored[:], rest[len(rest)-ChecksumSize:])
	if err := ValidateChecksum(ComputeChecksum(data), stored); err != nil {
		return nil, Header{}, err
	}
	if err := ValidateHeader(&header, int64(len(data))); err != nil {
		return nil, Header{}, err
	}

	entries := make([]Entry, len(header.Tensors))
	for i, meta := range header.Tensors {
		dtype, ok := parseDType(meta.DType)
		if !ok {
			return nil, Header{}, fmt.Errorf("tensor %s: unsupported dtype %q", meta.Name, meta.DType)
		}
		shape := tensor.Shape(meta.Shape)
		if err := shape.Validate(); err != nil {
			return nil, Header{}, fmt.Errorf("tensor %s: %w", meta.Name, err)
		}
		if want := int64(shape.NumElements() * dtype.Size()); want != meta.Size {
			return nil, Header{}, &ValidationError{
				Type:    "size_mismatch",
				Tensor:  meta.Name,
				Details: fmt.Sprintf("shape %v needs %d bytes, header says %d", meta.Shape, want, meta.Size),
			}
		}

		raw, err := tensor.NewRaw(shape, dtype, device)
		if err != nil {
			return nil, Header{}, fmt.Errorf("tensor %s: %w", meta.Name, err)
		}
		copy(raw.Data(), data[meta.Offset:meta.Offset+meta.Size])
		entries[i] = Entry{Name: meta.Name, Raw: raw}
	}
	return entries, header, nil
}

// ReadHeader parses only the metadata of a .kiln file. The data
// section is not read and the checksum is not verified.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	prefix := make([]byte, prefixSize)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return Header{}, truncated("prefix", err)
	}
	if string(prefix[0:4]) != Magic {
		return Header{}, ErrInvalidMagic
	}
	if prefix[4] != FormatVersion {
		return Header{}, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, prefix[4], FormatVersion)
	}
	headerSize := binary.LittleEndian.Uint64(prefix[8:16])
	if headerSize > MaxHeaderSize {
		return Header{}, ErrHeaderTooLarge
	}
	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return Header{}, truncated("header", err)
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return Header{}, fmt.Errorf("parse header: %w", err)
	}
	return header, nil
}

// LoadModel reads path and copies its tensors into params positionally.
// Shapes and dtypes must match exactly; on any mismatch no parameter is
// modified.
func LoadModel[B tensor.Backend](path string, params []*nn.Parameter[B]) error {
	_, err := load(path, params)
	return err
}

// LoadCheckpoint is LoadModel plus the stored run metadata.
func LoadCheckpoint[B tensor.Backend](path string, params []*nn.Parameter[B]) (RunMeta, error) {
	header, err := load(path, params)
	if err != nil {
		return RunMeta{}, err
	}
	if header.Run == nil {
		return RunMeta{}, fmt.Errorf("%s: no run metadata, not a checkpoint", path)
	}
	return *header.Run, nil
}

func load[B tensor.Backend](path string, params []*nn.Parameter[B]) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	entries, header, err := Read(bufio.NewReader(f), tensor.CPU)
	if err != nil {
		return Header{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(entries) != len(params) {
		return Header{}, fmt.Errorf("%s holds %d tensors, model has %d parameters", path, len(entries), len(params))
	}

	// Validate everything before touching the first parameter.
	for i, e := range entries {
		target := params[i].Tensor()
		if e.Raw.DType() != tensor.Float32 {
			return Header{}, fmt.Errorf("tensor %s: dtype %s, parameters are float32", e.Name, e.Raw.DType())
		}
		if !e.Raw.Shape().Equal(target.Shape()) {
			return Header{}, fmt.Errorf("tensor %s: stored shape %v, parameter shape %v", e.Name, e.Raw.Shape(), target.Shape())
		}
	}
	for i, e := range entries {
		copy(params[i].Tensor().Raw().Data(), e.Raw.Data())
	}
	return header, nil
}

func truncated(section string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: %w", section, ErrTruncated)
	}
	return fmt.Errorf("read %s: %w", section, err)
}
