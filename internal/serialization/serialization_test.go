package serialization_test

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ml/kiln/internal/backend/cpu"
	"github.com/kiln-ml/kiln/internal/nn"
	"github.com/kiln-ml/kiln/internal/serialization"
	"github.com/kiln-ml/kiln/internal/tensor"
)

type cb = *cpu.CPUBackend

func newModel(t *testing.T, seed int64, sizes ...int) *nn.MLP[cb] {
	t.Helper()
	if len(sizes) == 0 {
		sizes = []int{12, 8, 4}
	}
	return nn.NewMLP(sizes, rand.New(rand.NewSource(seed)), cpu.New())
}

func flatParams(params []*nn.Parameter[cb]) []float32 {
	var out []float32
	for _, p := range params {
		out = append(out, p.Tensor().Data()...)
	}
	return out
}

func scribble(params []*nn.Parameter[cb]) {
	for _, p := range params {
		data := p.Tensor().Data()
		for i := range data {
			data[i] = -1
		}
	}
}

func TestSaveLoadModel_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.kiln")
	model := newModel(t, 1)
	want := flatParams(model.Parameters())

	require.NoError(t, serialization.SaveModel(path, model.Parameters(), "mlp"))

	// Same architecture, different init. Loading must restore the
	// saved values exactly.
	restored := newModel(t, 99)
	require.NoError(t, serialization.LoadModel(path, restored.Parameters()))
	assert.Equal(t, want, flatParams(restored.Parameters()))
}

func TestSaveLoadCheckpoint_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.kiln")
	model := newModel(t, 1)
	want := flatParams(model.Parameters())

	run := serialization.RunMeta{
		Epoch:     7,
		Loss:      0.123,
		Accuracy:  0.94,
		Optimizer: "sgd",
		LR:        0.01,
	}
	require.NoError(t, serialization.SaveCheckpoint(path, model.Parameters(), run))

	restored := newModel(t, 99)
	scribble(restored.Parameters())
	got, err := serialization.LoadCheckpoint(path, restored.Parameters())
	require.NoError(t, err)

	assert.Equal(t, run, got)
	assert.Equal(t, want, flatParams(restored.Parameters()))
}

func TestLoadCheckpoint_PlainModelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.kiln")
	model := newModel(t, 1)
	require.NoError(t, serialization.SaveModel(path, model.Parameters(), "mlp"))

	_, err := serialization.LoadCheckpoint(path, model.Parameters())
	assert.ErrorContains(t, err, "no run metadata")
}

func TestLoadModel_ArchitectureMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.kiln")
	model := newModel(t, 1, 12, 8, 4)
	require.NoError(t, serialization.SaveModel(path, model.Parameters(), "mlp"))

	other := newModel(t, 2, 12, 6, 4)
	before := flatParams(other.Parameters())

	err := serialization.LoadModel(path, other.Parameters())
	require.Error(t, err)
	assert.Equal(t, before, flatParams(other.Parameters()), "failed load must not touch parameters")
}

func TestWrite_DeterministicBytes(t *testing.T) {
	model := newModel(t, 1)
	entries := serialization.Entries(model.Parameters())
	header := serialization.Header{CreatedAt: time.Unix(0, 0).UTC()}

	var a, b bytes.Buffer
	require.NoError(t, serialization.Write(&a, entries, header))
	require.NoError(t, serialization.Write(&b, entries, header))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestReadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ckpt.kiln")
	model := newModel(t, 1)
	run := serialization.RunMeta{Epoch: 3, Loss: 1.5}
	require.NoError(t, serialization.SaveCheckpoint(path, model.Parameters(), run))

	header, err := serialization.ReadHeader(path)
	require.NoError(t, err)
	require.NotNil(t, header.Run)
	assert.Equal(t, 3, header.Run.Epoch)
	assert.Len(t, header.Tensors, len(model.Parameters()))
	assert.Equal(t, "0.weight", header.Tensors[0].Name)
}

func writeModelFile(t *testing.T) (string, []byte) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.kiln")
	model := newModel(t, 1)
	require.NoError(t, serialization.SaveModel(path, model.Parameters(), "mlp"))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return path, raw
}

func TestRead_BadMagic(t *testing.T) {
	_, raw := writeModelFile(t)
	raw[0] = 'X'

	_, _, err := serialization.Read(bytes.NewReader(raw), tensor.CPU)
	assert.ErrorIs(t, err, serialization.ErrInvalidMagic)
}

func TestRead_UnsupportedVersion(t *testing.T) {
	_, raw := writeModelFile(t)
	raw[4] = 42

	_, _, err := serialization.Read(bytes.NewReader(raw), tensor.CPU)
	assert.ErrorIs(t, err, serialization.ErrUnsupportedVersion)
}

func TestRead_CorruptData(t *testing.T) {
	_, raw := writeModelFile(t)
	raw[len(raw)-serialization.ChecksumSize-8] ^= 0xFF

	_, _, err := serialization.Read(bytes.NewReader(raw), tensor.CPU)
	assert.ErrorIs(t, err, serialization.ErrChecksumMismatch)
}

func TestRead_Truncated(t *testing.T) {
	_, raw := writeModelFile(t)

	// Cuts inside the fixed prefix and the JSON header.
	for _, cut := range []int{3, 20} {
		_, _, err := serialization.Read(bytes.NewReader(raw[:cut]), tensor.CPU)
		assert.ErrorIs(t, err, serialization.ErrTruncated, "cut at %d", cut)
	}

	// A cut leaving fewer bytes than the checksum trailer.
	headerLen := int(binary.LittleEndian.Uint64(raw[8:16]))
	pos := 16 + headerLen
	dataOffset := pos + (serialization.DataAlignment-pos%serialization.DataAlignment)%serialization.DataAlignment
	_, _, err := serialization.Read(bytes.NewReader(raw[:dataOffset+10]), tensor.CPU)
	assert.ErrorIs(t, err, serialization.ErrTruncated)

	// A cut inside the data section leaves a full trailer that no
	// longer matches.
	_, _, err = serialization.Read(bytes.NewReader(raw[:len(raw)-8]), tensor.CPU)
	assert.ErrorIs(t, err, serialization.ErrChecksumMismatch)
}

func TestRead_RejectsOversizedHeader(t *testing.T) {
	_, raw := writeModelFile(t)
	// Header size field claims more than MaxHeaderSize.
	for i := 8; i < 16; i++ {
		raw[i] = 0xFF
	}

	_, _, err := serialization.Read(bytes.NewReader(raw), tensor.CPU)
	assert.ErrorIs(t, err, serialization.ErrHeaderTooLarge)
}
