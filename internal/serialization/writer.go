package serialization

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Write streams entries to w in .kiln format. The header's Model and
// Run fields pass through as given; Version, CreatedAt and Tensors are
// filled in here. Tensor bytes land in entry order, so identical
// entries always produce an identical data section.
func Write(w io.Writer, entries []Entry, header Header) error {
	header.Version = FormatVersion
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}

	header.Tensors = make([]TensorMeta, len(entries))
	var offset int64
	for i, e := range entries {
		size := int64(e.Raw.NumElements() * e.Raw.DType().Size())
		header.Tensors[i] = TensorMeta{
			Name:   e.Name,
			DType:  e.Raw.DType().String(),
			Shape:  []int(e.Raw.Shape()),
			Offset: offset,
			Size:   size,
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}

	prefix := make([]byte, prefixSize)
	copy(prefix[0:4], Magic)
	prefix[4] = FormatVersion
	binary.LittleEndian.PutUint64(prefix[8:16], uint64(len(headerJSON)))

	if _, err := w.Write(prefix); err != nil {
		return fmt.Errorf("write prefix: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if pad := padding(prefixSize + int64(len(headerJSON))); pad > 0 {
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return fmt.Errorf("write padding: %w", err)
		}
	}

	digest := sha256.New()
	data := io.MultiWriter(w, digest)
	for _, e := range entries {
		if _, err := data.Write(e.Raw.Data()); err != nil {
			return fmt.Errorf("write tensor %s: %w", e.Name, err)
		}
	}
	if _, err := w.Write(digest.Sum(nil)); err != nil {
		return fmt.Errorf("write checksum: %w", err)
	}
	return nil
}

// Entries names a parameter slice for storage. Names carry the
// positional index so duplicates across layers stay distinct.
func Entries[B tensor.Backend](params []*nn.Parameter[B]) []Entry {
	entries := make([]Entry, len(params))
	for i, p := range params {
		name := strconv.Itoa(i)
		if p.Name() != "" {
			name += "." + p.Name()
		}
		entries[i] = Entry{Name: name, Raw: p.Tensor().Raw()}
	}
	return entries
}

// SaveModel writes the parameter state of a model to path.
func SaveModel[B tensor.Backend](path string, params []*nn.Parameter[B], model string) error {
	return save(path, params, Header{Model: model})
}

// SaveCheckpoint writes parameter state plus run metadata so training
// can resume from this point.
func SaveCheckpoint[B tensor.Backend](path string, params []*nn.Parameter[B], run RunMeta) error {
	return save(path, params, Header{Run: &run})
}

func save[B tensor.Backend](path string, params []*nn.Parameter[B], header Header) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, Entries(params), header); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
