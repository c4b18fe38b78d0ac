package token

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Unique(t *testing.T) {
	const trials = 1000

	gen := NewGenerator(rand.Reader)

	seen := make(map[string]struct{}, trials)
	for i := 0; i < trials; i++ {
		tok, err := gen.Generate(42)
		require.NoError(t, err)
		require.Len(t, tok, 64)

		_, dup := seen[tok]
		require.False(t, dup, "token collision after %d draws", i)
		seen[tok] = struct{}{}
	}
}

func TestGenerate_DeterministicWithSeededSource(t *testing.T) {
	key := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	tok1, err := NewGenerator(bytes.NewReader(key)).Generate(7)
	require.NoError(t, err)

	tok2, err := NewGenerator(bytes.NewReader(key)).Generate(7)
	require.NoError(t, err)

	assert.Equal(t, tok1, tok2)
}

func TestGenerate_BindsAccountIdentity(t *testing.T) {
	key := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	tok1, err := NewGenerator(bytes.NewReader(key)).Generate(7)
	require.NoError(t, err)

	tok2, err := NewGenerator(bytes.NewReader(key)).Generate(8)
	require.NoError(t, err)

	assert.NotEqual(t, tok1, tok2)
}

func TestGenerate_ExhaustedSource(t *testing.T) {
	gen := NewGenerator(bytes.NewReader([]byte{1, 2, 3}))

	_, err := gen.Generate(1)
	require.Error(t, err)
}
