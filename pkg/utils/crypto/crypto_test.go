package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	sealed, err := Encrypt("ya29.token", "k1")
	require.NoError(t, err)
	assert.NotEqual(t, "ya29.token", sealed)

	plain, err := Decrypt(sealed, "k1")
	require.NoError(t, err)
	assert.Equal(t, "ya29.token", plain)

	_, err = Decrypt(sealed, "other")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestEmptyValues(t *testing.T) {
	sealed, err := Encrypt("", "k1")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	plain, err := Decrypt("", "k1")
	require.NoError(t, err)
	assert.Empty(t, plain)

	_, err = Decrypt("not base64!", "k1")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}
