package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("auth", []byte(`{"accessToken":"a"}`)))

	v, err := s.Get("auth")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"accessToken":"a"}`), v)
}

func TestPutOverwrites(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("auth", []byte("one")))
	require.NoError(t, s.Put("auth", []byte("two")))

	v, err := s.Get("auth")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), v)
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put("auth", []byte("x")))
	require.NoError(t, s.Delete("auth"))

	_, err := s.Get("auth")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting again is fine
	assert.NoError(t, s.Delete("auth"))
}
