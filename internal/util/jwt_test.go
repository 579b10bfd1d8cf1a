package util

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
	})
	s, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	got, err := TokenExpiry(signedToken(t, exp))
	require.NoError(t, err)
	assert.Equal(t, exp.Unix(), got.Unix())
}

func TestTokenExpiryGarbage(t *testing.T) {
	_, err := TokenExpiry("not-a-jwt")
	assert.Error(t, err)
}

func TestTokenExpiryMissingClaim(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"})
	s, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = TokenExpiry(s)
	assert.Error(t, err)
}
