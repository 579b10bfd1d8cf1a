package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCache() *Cache {
	return New(context.Background(), zerolog.Nop())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestSubscribeFetchesOnce(t *testing.T) {
	c := testCache()
	var calls int64
	fetcher := func(ctx context.Context) (any, error) {
		atomic.AddInt64(&calls, 1)
		return []string{"acc-1"}, nil
	}

	sub := c.Subscribe(AccountsKey(), fetcher)
	defer sub.Unsubscribe()

	v, err := sub.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"acc-1"}, v)
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))
}

func TestRepeatedReadsAreStable(t *testing.T) {
	c := testCache()
	value := []string{"a", "b"}
	sub := c.Subscribe(AccountsKey(), func(ctx context.Context) (any, error) {
		return value, nil
	})
	defer sub.Unsubscribe()

	first, err := sub.Wait(context.Background())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		got, gotErr := sub.Current()
		assert.NoError(t, gotErr)
		// same value, not a fresh copy, on every read
		assert.Same(t, &value[0], &got.([]string)[0])
		assert.Equal(t, first, got)
	}
}

func TestSecondSubscriberJoinsInflightFetch(t *testing.T) {
	c := testCache()
	gate := make(chan struct{})
	var calls int64
	fetcher := func(ctx context.Context) (any, error) {
		atomic.AddInt64(&calls, 1)
		<-gate
		return "value", nil
	}

	a := c.Subscribe(AccountsKey(), fetcher)
	defer a.Unsubscribe()
	b := c.Subscribe(AccountsKey(), fetcher)
	defer b.Unsubscribe()

	close(gate)

	va, err := a.Wait(context.Background())
	require.NoError(t, err)
	vb, err := b.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "value", va)
	assert.Equal(t, "value", vb)
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls), "joined fetch must not duplicate the request")
}

func TestInvalidateRefetches(t *testing.T) {
	c := testCache()
	var calls int64
	fetcher := func(ctx context.Context) (any, error) {
		n := atomic.AddInt64(&calls, 1)
		if n == 1 {
			return "old", nil
		}
		return "new", nil
	}

	sub := c.Subscribe(AccountsKey(), fetcher)
	defer sub.Unsubscribe()

	v, err := sub.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "old", v)

	c.Invalidate(AccountsKey())

	waitFor(t, func() bool {
		got, _ := sub.Current()
		return got == "new"
	})
	assert.EqualValues(t, 2, atomic.LoadInt64(&calls))
}

func TestInvalidateWithoutSubscribersIsANoop(t *testing.T) {
	c := testCache()
	c.Invalidate(AccountsKey()) // no entry at all

	var calls int64
	sub := c.Subscribe(AccountsKey(), func(ctx context.Context) (any, error) {
		atomic.AddInt64(&calls, 1)
		return "v", nil
	})
	_, err := sub.Wait(context.Background())
	require.NoError(t, err)
	sub.Unsubscribe()

	// entry destroyed with its last subscriber; invalidating now fetches nothing
	c.Invalidate(AccountsKey())
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))
}

func TestLateSupersededResponseIsDiscarded(t *testing.T) {
	c := testCache()
	firstGate := make(chan struct{})
	var calls int64
	fetcher := func(ctx context.Context) (any, error) {
		n := atomic.AddInt64(&calls, 1)
		if n == 1 {
			<-firstGate // fetch A: dispatched first, resolves last
			return "A", nil
		}
		return "B", nil
	}

	sub := c.Subscribe(AccountsKey(), fetcher)
	defer sub.Unsubscribe()

	// fetch A is outstanding; the invalidation supersedes it with fetch B
	c.Invalidate(AccountsKey())

	waitFor(t, func() bool {
		got, _ := sub.Current()
		return got == "B"
	})

	// now let A's stale response arrive; it must be discarded, not applied
	close(firstGate)
	time.Sleep(50 * time.Millisecond)

	got, err := sub.Current()
	assert.NoError(t, err)
	assert.Equal(t, "B", got)
}

func TestCoalescedInvalidationsJoin(t *testing.T) {
	c := testCache()
	gate := make(chan struct{})
	var calls int64
	fetcher := func(ctx context.Context) (any, error) {
		n := atomic.AddInt64(&calls, 1)
		if n == 2 {
			<-gate
		}
		return n, nil
	}

	sub := c.Subscribe(AccountsKey(), fetcher)
	defer sub.Unsubscribe()
	_, err := sub.Wait(context.Background())
	require.NoError(t, err)

	c.Invalidate(AccountsKey()) // dispatches revalidation (blocked)
	c.Invalidate(AccountsKey()) // joins it
	c.Invalidate(AccountsKey()) // joins it
	close(gate)

	waitFor(t, func() bool {
		got, _ := sub.Current()
		return got == int64(2)
	})
	assert.EqualValues(t, 2, atomic.LoadInt64(&calls))
}

func TestFetchFailureKeepsLastKnownGood(t *testing.T) {
	c := testCache()
	boom := errors.New("gateway down")
	var calls int64
	fetcher := func(ctx context.Context) (any, error) {
		if atomic.AddInt64(&calls, 1) == 1 {
			return "good", nil
		}
		return nil, boom
	}

	sub := c.Subscribe(AccountsKey(), fetcher)
	defer sub.Unsubscribe()
	_, err := sub.Wait(context.Background())
	require.NoError(t, err)

	c.Invalidate(AccountsKey())

	waitFor(t, func() bool {
		_, gotErr := sub.Current()
		return gotErr != nil
	})

	got, gotErr := sub.Current()
	assert.Equal(t, "good", got, "failed refetch must not overwrite prior data")
	assert.ErrorIs(t, gotErr, boom)
}

func TestUnsubscribedFetchResultNotApplied(t *testing.T) {
	c := testCache()
	gate := make(chan struct{})
	var calls int64
	fetcher := func(ctx context.Context) (any, error) {
		atomic.AddInt64(&calls, 1)
		<-gate
		return "stale", nil
	}

	sub := c.Subscribe(AccountsKey(), fetcher)
	sub.Unsubscribe()
	close(gate)
	time.Sleep(20 * time.Millisecond)

	// entry was destroyed with the subscription; a new one starts clean
	fresh := c.Subscribe(AccountsKey(), func(ctx context.Context) (any, error) {
		return "fresh", nil
	})
	defer fresh.Unsubscribe()

	v, err := fresh.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}

func TestManualRefresh(t *testing.T) {
	c := testCache()
	var calls int64
	sub := c.Subscribe(AccountsKey(), func(ctx context.Context) (any, error) {
		return atomic.AddInt64(&calls, 1), nil
	})
	defer sub.Unsubscribe()

	_, err := sub.Wait(context.Background())
	require.NoError(t, err)

	sub.Refresh()
	waitFor(t, func() bool {
		got, _ := sub.Current()
		return got == int64(2)
	})
}
