package session

import (
	"testing"
	"time"

	"pocketfolio/internal/database"
	"pocketfolio/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()})
	s, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func testStore(t *testing.T) (*Store, *database.Store) {
	t.Helper()
	local, err := database.Open(database.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })
	return NewStore(local, "test-key", zerolog.Nop()), local
}

func liveSession(t *testing.T) models.Session {
	t.Helper()
	exp := time.Now().Add(time.Hour)
	return models.Session{
		AccessToken:  testToken(t, exp),
		RefreshToken: "refresh",
		Exp:          exp.Unix(),
	}
}

func TestLoadWithoutStoredSession(t *testing.T) {
	s, _ := testStore(t)
	assert.ErrorIs(t, s.Load(), ErrNoSession)
	assert.False(t, s.Snapshot().LoggedIn)
}

func TestSetPersistsAcrossRestart(t *testing.T) {
	s, local := testStore(t)
	sess := liveSession(t)
	require.NoError(t, s.Set(sess))

	// same local store, fresh session store: simulates a process restart
	reborn := NewStore(local, "test-key", zerolog.Nop())
	require.NoError(t, reborn.Load())

	snap := reborn.Snapshot()
	assert.True(t, snap.LoggedIn)
	assert.Equal(t, sess.AccessToken, snap.Session.AccessToken)
	assert.Equal(t, sess.RefreshToken, snap.Session.RefreshToken)
}

func TestLoadExpiredSessionClears(t *testing.T) {
	s, local := testStore(t)
	exp := time.Now().Add(-time.Hour)
	require.NoError(t, s.Set(models.Session{
		AccessToken: testToken(t, exp),
		Exp:         exp.Unix(),
	}))

	reborn := NewStore(local, "test-key", zerolog.Nop())
	assert.ErrorIs(t, reborn.Load(), ErrNoSession)

	// the stale blob is gone
	_, err := local.Get("auth")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestLoadWrongEncryptionKeyClears(t *testing.T) {
	s, local := testStore(t)
	require.NoError(t, s.Set(liveSession(t)))

	reborn := NewStore(local, "different-key", zerolog.Nop())
	assert.ErrorIs(t, reborn.Load(), ErrNoSession)
}

func TestTokenCapturedAtDispatchTime(t *testing.T) {
	s, _ := testStore(t)
	first := liveSession(t)
	require.NoError(t, s.Set(first))

	tok, err := s.Token()
	require.NoError(t, err)

	// rotate mid-flight; the captured value must not change
	exp := time.Now().Add(2 * time.Hour)
	second := models.Session{
		AccessToken:  testToken(t, exp),
		RefreshToken: "refresh-2",
		Exp:          exp.Unix(),
	}
	require.NoError(t, s.Set(second))
	require.NotEqual(t, first.AccessToken, second.AccessToken)

	assert.Equal(t, first.AccessToken, tok)

	tok2, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, second.AccessToken, tok2)
}

func TestClear(t *testing.T) {
	s, local := testStore(t)
	require.NoError(t, s.Set(liveSession(t)))
	require.NoError(t, s.Clear())

	_, err := s.Token()
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = local.Get("auth")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestSubscribeSeesRotationAndLogout(t *testing.T) {
	s, _ := testStore(t)
	ch, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.Set(liveSession(t)))
	snap := <-ch
	assert.True(t, snap.LoggedIn)

	require.NoError(t, s.Clear())
	snap = <-ch
	assert.False(t, snap.LoggedIn)
	assert.Greater(t, snap.Version, uint64(1))
}
