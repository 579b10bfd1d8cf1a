package cache

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Fetcher loads the value for a key from the gateway.
type Fetcher func(ctx context.Context) (any, error)

// Update is delivered to subscribers whenever a fetch for their key resolves.
// On a load error Value still holds the last known-good value; the error is
// surfaced alongside it, never over it.
type Update struct {
	Value any
	Err   error
}

type entry struct {
	fetcher  Fetcher
	value    any
	hasValue bool
	loadErr  error
	stale    bool
	subs     map[int]chan Update

	// fetch coordination: dispatchSeq counts dispatched fetches; only the
	// response carrying the latest seq is applied, so a superseded fetch that
	// resolves late is discarded instead of clobbering a newer value.
	inflight           bool
	inflightRevalidate bool
	dispatchSeq        uint64
}

// Cache is a keyed, subscriber-counted cache of server-derived reads.
// At most one fetch per key is in flight; entries are destroyed when their
// last subscriber leaves, so long sessions do not accumulate dead keys.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	nextSub int
	baseCtx context.Context
	log     zerolog.Logger
}

func New(ctx context.Context, log zerolog.Logger) *Cache {
	return &Cache{
		entries: make(map[Key]*entry),
		baseCtx: ctx,
		log:     log.With().Str("component", "cache").Logger(),
	}
}

// Subscription is one component's interest in a key. Holders read the current
// value with Current, get change signals from Updates, and must call
// Unsubscribe when done.
type Subscription struct {
	cache   *Cache
	key     Key
	id      int
	updates chan Update
	once    sync.Once
}

// Subscribe registers interest in key. If no fresh value exists a fetch is
// dispatched; if a fetch is already outstanding the subscriber joins it
// instead of issuing a duplicate request.
func (c *Cache) Subscribe(key Key, fetcher Fetcher) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		e = &entry{subs: make(map[int]chan Update)}
		c.entries[key] = e
	}
	e.fetcher = fetcher

	sub := &Subscription{
		cache:   c,
		key:     key,
		id:      c.nextSub,
		updates: make(chan Update, 16),
	}
	c.nextSub++
	e.subs[sub.id] = sub.updates

	if (!e.hasValue || e.stale) && !e.inflight {
		c.dispatchLocked(key, e, e.stale)
	}
	return sub
}

// Invalidate marks the entry stale and refetches for active subscribers.
// A refetch already running for a previous invalidation is joined; a fetch
// dispatched before this invalidation is superseded, because its response may
// predate the mutation that triggered the invalidation.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return
	}
	e.stale = true
	if len(e.subs) == 0 {
		return
	}
	if e.inflight && e.inflightRevalidate {
		return
	}
	c.dispatchLocked(key, e, true)
}

// dispatchLocked starts a fetch for key. Callers hold c.mu.
func (c *Cache) dispatchLocked(key Key, e *entry, revalidate bool) {
	e.dispatchSeq++
	seq := e.dispatchSeq
	e.inflight = true
	e.inflightRevalidate = revalidate
	fetch := e.fetcher

	c.log.Debug().Str("key", string(key)).Uint64("seq", seq).Bool("revalidate", revalidate).Msg("fetch dispatched")

	go func() {
		value, err := fetch(c.baseCtx)
		c.complete(key, seq, value, err)
	}()
}

func (c *Cache) complete(key Key, seq uint64, value any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		// last subscriber left while the fetch was in flight
		c.log.Debug().Str("key", string(key)).Uint64("seq", seq).Msg("fetch result for dead entry discarded")
		return
	}
	if seq != e.dispatchSeq {
		// a newer fetch was dispatched after this one; last request wins
		c.log.Debug().Str("key", string(key)).Uint64("seq", seq).Msg("superseded fetch discarded")
		return
	}

	e.inflight = false
	e.inflightRevalidate = false

	if err != nil {
		// keep the last known-good value; surface the failure distinctly
		e.loadErr = err
		c.log.Warn().Str("key", string(key)).Err(err).Msg("fetch failed")
	} else {
		e.value = value
		e.hasValue = true
		e.loadErr = nil
		e.stale = false
	}

	u := Update{Value: e.value, Err: e.loadErr}
	for _, ch := range e.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

// Updates signals value changes and load errors. Delivery is best effort; the
// authoritative state is always Current.
func (s *Subscription) Updates() <-chan Update {
	return s.updates
}

// Current returns the entry's value and load error as of now. Without an
// intervening invalidation or subscription the same value is returned every
// time.
func (s *Subscription) Current() (any, error) {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	e, ok := s.cache.entries[s.key]
	if !ok {
		return nil, nil
	}
	return e.value, e.loadErr
}

// Wait blocks until the key has resolved at least once (value or load error)
// or ctx is done.
func (s *Subscription) Wait(ctx context.Context) (any, error) {
	for {
		s.cache.mu.Lock()
		e, ok := s.cache.entries[s.key]
		if !ok { // unsubscribed
			s.cache.mu.Unlock()
			return nil, nil
		}
		if e.hasValue || e.loadErr != nil {
			value, err := e.value, e.loadErr
			s.cache.mu.Unlock()
			return value, err
		}
		s.cache.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.updates:
		}
	}
}

// Refresh is the manual refresh handle: it behaves like an invalidation of
// the subscribed key.
func (s *Subscription) Refresh() {
	s.cache.Invalidate(s.key)
}

// Unsubscribe withdraws interest. When the last subscriber leaves, the entry
// is destroyed and any in-flight fetch result is discarded on arrival.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cache.mu.Lock()
		defer s.cache.mu.Unlock()

		e, ok := s.cache.entries[s.key]
		if !ok {
			return
		}
		if ch, ok := e.subs[s.id]; ok {
			delete(e.subs, s.id)
			close(ch)
		}
		if len(e.subs) == 0 {
			delete(s.cache.entries, s.key)
		}
	})
}
