package session

import (
	"encoding/json"
	"sync"
	"time"

	"pocketfolio/internal/database"
	"pocketfolio/internal/models"
	"pocketfolio/internal/util"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// storageKey is the fixed local-store key the session JSON lives under.
const storageKey = "auth"

// ErrNoSession signals that no usable credential is available; callers treat
// it as a redirect to the entry screen.
var ErrNoSession = errors.New("NO_SESSION")

// Snapshot is a point-in-time copy of the session state. Reads capture a
// snapshot; they never alias the store's mutable state.
type Snapshot struct {
	Session  models.Session
	Version  uint64
	LoggedIn bool
}

// Store owns the process-wide session credential. It persists every change to
// the local store (encrypted when a key is configured) and notifies
// subscribers on rotation and logout.
type Store struct {
	mu         sync.RWMutex
	current    *models.Session
	version    uint64
	subs       map[int]chan Snapshot
	nextSub    int
	local      *database.Store
	encryptKey string
	log        zerolog.Logger
}

func NewStore(local *database.Store, encryptKey string, log zerolog.Logger) *Store {
	return &Store{
		subs:       make(map[int]chan Snapshot),
		local:      local,
		encryptKey: encryptKey,
		log:        log.With().Str("component", "session").Logger(),
	}
}

// Load reads the persisted session back at startup. A missing, undecodable or
// expired value clears any stored remnant and returns ErrNoSession.
func (s *Store) Load() error {
	raw, err := s.local.Get(storageKey)
	if errors.Is(err, database.ErrNotFound) {
		return errors.Wrap(ErrNoSession, "no stored session")
	}
	if err != nil {
		return errors.Wrap(err, "read stored session")
	}

	if s.encryptKey != "" {
		raw, err = util.DecryptAES(s.encryptKey, raw)
		if err != nil {
			s.log.Warn().Err(err).Msg("stored session undecryptable, clearing")
			_ = s.local.Delete(storageKey)
			return errors.Wrap(ErrNoSession, "stored session undecryptable")
		}
	}

	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		s.log.Warn().Err(err).Msg("stored session corrupt, clearing")
		_ = s.local.Delete(storageKey)
		return errors.Wrap(ErrNoSession, "stored session corrupt")
	}

	if !usable(sess, time.Now()) {
		_ = s.local.Delete(storageKey)
		return errors.Wrap(ErrNoSession, "stored session expired")
	}

	s.mu.Lock()
	s.current = &sess
	s.version++
	s.notifyLocked()
	s.mu.Unlock()
	return nil
}

// usable checks the session's own expiry and, when the access token is a
// parseable JWT, its exp claim as well.
func usable(sess models.Session, now time.Time) bool {
	if !sess.Valid(now) {
		return false
	}
	if exp, err := util.TokenExpiry(sess.AccessToken); err == nil && now.After(exp) {
		return false
	}
	return true
}

// Set installs a new session (login or rotation) and persists it.
func (s *Store) Set(sess models.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "marshal session")
	}
	if s.encryptKey != "" {
		raw, err = util.EncryptAES(s.encryptKey, raw)
		if err != nil {
			return errors.Wrap(err, "encrypt session")
		}
	}
	if err := s.local.Put(storageKey, raw); err != nil {
		return errors.Wrap(err, "persist session")
	}

	s.mu.Lock()
	s.current = &sess
	s.version++
	s.notifyLocked()
	s.mu.Unlock()
	return nil
}

// Clear drops the session and its persisted blob (logout).
func (s *Store) Clear() error {
	if err := s.local.Delete(storageKey); err != nil {
		return errors.Wrap(err, "clear stored session")
	}

	s.mu.Lock()
	s.current = nil
	s.version++
	s.notifyLocked()
	s.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Version: s.version}
	if s.current != nil {
		snap.Session = *s.current
		snap.LoggedIn = true
	}
	return snap
}

// Token returns the access token captured at call time. Requests hold on to
// the returned value; a concurrent rotation does not affect them.
func (s *Store) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return "", errors.Wrap(ErrNoSession, "not logged in")
	}
	return s.current.AccessToken, nil
}

// Subscribe registers for session-change notifications. The returned cancel
// function must be called when the subscriber goes away.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Snapshot, 4)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// notifyLocked delivers the current snapshot to all subscribers, best effort.
// Callers hold s.mu.
func (s *Store) notifyLocked() {
	snap := Snapshot{Version: s.version}
	if s.current != nil {
		snap.Session = *s.current
		snap.LoggedIn = true
	}
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
