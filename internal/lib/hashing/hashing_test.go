package hashing

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum_FixedFormat(t *testing.T) {
	digest := Sum([]byte("secret1s1"))

	assert.Len(t, digest, 64)
	assert.Equal(t, digest, Sum([]byte("secret1s1")))
	assert.NotEqual(t, digest, Sum([]byte("secret2s1")))
}

func TestVerify(t *testing.T) {
	digest := Sum([]byte("secret1" + "s1"))

	assert.True(t, Verify(digest, []byte("secret1"+"s1")))
	assert.False(t, Verify(digest, []byte("wrong"+"s1")))
	assert.False(t, Verify(digest, []byte("secret1"+"s2")))
}

func TestNewSalt(t *testing.T) {
	salt1, err := NewSalt(rand.Reader)
	require.NoError(t, err)

	salt2, err := NewSalt(rand.Reader)
	require.NoError(t, err)

	assert.Len(t, salt1, 32)
	assert.NotEqual(t, salt1, salt2)
}

func TestNewSalt_ExhaustedSource(t *testing.T) {
	_, err := NewSalt(bytes.NewReader([]byte{1, 2, 3}))
	require.Error(t, err)
}
