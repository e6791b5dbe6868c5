package serialization_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ml/kiln/internal/serialization"
)

func TestValidateName(t *testing.T) {
	for _, name := range []string{"0.weight", "1.bias", "layer_3.running_mean"} {
		assert.NoError(t, serialization.ValidateName(name), name)
	}

	cases := map[string]string{
		"path traversal": "..weight",
		"slash":          "a/b",
		"backslash":      "a\\b",
		"null byte":      "w\x00t",
		"too long":       strings.Repeat("x", serialization.MaxTensorNameLen+1),
	}
	for label, name := range cases {
		err := serialization.ValidateName(name)
		require.Error(t, err, label)

		var verr *serialization.ValidationError
		require.ErrorAs(t, err, &verr, label)
	}
}

func TestValidateMetas(t *testing.T) {
	ok := []serialization.TensorMeta{
		{Name: "a", Offset: 0, Size: 64},
		{Name: "b", Offset: 64, Size: 16},
	}
	assert.NoError(t, serialization.ValidateMetas(ok, 80))

	t.Run("overlap", func(t *testing.T) {
		metas := []serialization.TensorMeta{
			{Name: "a", Offset: 0, Size: 64},
			{Name: "b", Offset: 32, Size: 16},
		}
		var verr *serialization.ValidationError
		err := serialization.ValidateMetas(metas, 128)
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "offset_overlap", verr.Type)
	})

	t.Run("out of bounds", func(t *testing.T) {
		metas := []serialization.TensorMeta{{Name: "a", Offset: 0, Size: 100}}
		var verr *serialization.ValidationError
		err := serialization.ValidateMetas(metas, 80)
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "out_of_bounds", verr.Type)
	})

	t.Run("negative size", func(t *testing.T) {
		metas := []serialization.TensorMeta{{Name: "a", Offset: 0, Size: -4}}
		var verr *serialization.ValidationError
		err := serialization.ValidateMetas(metas, 80)
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "negative_offset", verr.Type)
	})
}
