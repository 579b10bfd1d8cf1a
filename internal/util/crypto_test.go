package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plain := []byte(`{"accessToken":"abc","refreshToken":"def","exp":1234}`)

	enc, err := EncryptAES("local-key", plain)
	require.NoError(t, err)
	assert.NotEqual(t, plain, enc)

	dec, err := DecryptAES("local-key", enc)
	require.NoError(t, err)
	assert.Equal(t, plain, dec)
}

func TestDecryptWrongKey(t *testing.T) {
	enc, err := EncryptAES("key-a", []byte("secret"))
	require.NoError(t, err)

	_, err = DecryptAES("key-b", enc)
	assert.Error(t, err)
}

func TestDecryptTruncated(t *testing.T) {
	_, err := DecryptAES("key", []byte("short"))
	assert.Error(t, err)
}

func TestEncryptIsSalted(t *testing.T) {
	a, err := EncryptAES("key", []byte("same input"))
	require.NoError(t, err)
	b, err := EncryptAES("key", []byte("same input"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
