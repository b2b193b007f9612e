package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abcd"))
	assert.Equal(t, "****6789", MaskSecret("AC0123456789"))
	assert.Equal(t, "acct_****wxyz", MaskSecret("acct_1Nabcwxyz"))
}

func TestMaskFields(t *testing.T) {
	out := MaskFields(map[string]any{
		"account_sid": "AC0123456789",
		"enabled":     true,
		"":            "dropped",
		"nested":      map[string]any{"token": "tok_secretvalue"},
	})

	assert.Equal(t, "****6789", out["account_sid"])
	assert.Equal(t, true, out["enabled"])
	assert.NotContains(t, out, "")
	assert.Equal(t, map[string]any{"token": "tok_****alue"}, out["nested"])
	assert.Nil(t, MaskFields(nil))
}
