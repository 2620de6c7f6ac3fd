package holdstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock is a settable clock for expiry tests.
type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func newManualClock() *manualClock {
	return &manualClock{t: time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStore() (*MemoryStore, *manualClock) {
	clock := newManualClock()
	s := NewMemoryStore()
	s.SetClock(clock.Now)
	return s, clock
}

func TestTryHoldSecondCallerLoses(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	ok, err := s.TryHold(ctx, 1, 10, 100, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TryHold(ctx, 1, 10, 200, 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not win")

	holder, held, err := s.Holder(ctx, 1, 10)
	require.NoError(t, err)
	require.True(t, held)
	assert.Equal(t, uint64(100), holder)
}

func TestTryHoldMutualExclusionConcurrent(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	const callers = 50
	var wg sync.WaitGroup
	wins := make(chan uint64, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(holder uint64) {
			defer wg.Done()
			ok, err := s.TryHold(ctx, 7, 42, holder, 10*time.Minute)
			if err == nil && ok {
				wins <- holder
			}
		}(uint64(i + 1))
	}
	wg.Wait()
	close(wins)

	var winners []uint64
	for w := range wins {
		winners = append(winners, w)
	}
	require.Len(t, winners, 1, "exactly one concurrent caller may win the seat")

	holder, held, err := s.Holder(ctx, 7, 42)
	require.NoError(t, err)
	require.True(t, held)
	assert.Equal(t, winners[0], holder)
}

func TestHoldExpiresWithoutRelease(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	ok, err := s.TryHold(ctx, 1, 10, 100, 10*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(9*time.Minute + 59*time.Second)
	held, err := s.IsHeld(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, held, "hold must survive until its TTL")

	clock.Advance(2 * time.Second)
	held, err = s.IsHeld(ctx, 1, 10)
	require.NoError(t, err)
	assert.False(t, held, "expiry must be observable with no release call")

	// The seat is claimable again by someone else.
	ok, err = s.TryHold(ctx, 1, 10, 200, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseIsIdempotent(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.Release(ctx, 1, 10), "releasing an absent key is not an error")

	ok, err := s.TryHold(ctx, 1, 10, 100, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.Release(ctx, 1, 10))
	require.NoError(t, s.Release(ctx, 1, 10))

	held, err := s.IsHeld(ctx, 1, 10)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestTryHoldAllAllOrNothing(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	// Seat 11 is already held by someone else.
	ok, err := s.TryHold(ctx, 1, 11, 999, 10*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.TryHoldAll(ctx, 1, []uint64{10, 11, 12}, 100, 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Nothing else was claimed by the failed call.
	for _, seatID := range []uint64{10, 12} {
		held, err := s.IsHeld(ctx, 1, seatID)
		require.NoError(t, err)
		assert.False(t, held, "seat %d must not be held after failed TryHoldAll", seatID)
	}

	// With seat 11 freed the same request succeeds for every seat.
	require.NoError(t, s.Release(ctx, 1, 11))
	ok, err = s.TryHoldAll(ctx, 1, []uint64{10, 11, 12}, 100, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	for _, seatID := range []uint64{10, 11, 12} {
		holder, held, err := s.Holder(ctx, 1, seatID)
		require.NoError(t, err)
		require.True(t, held)
		assert.Equal(t, uint64(100), holder)
	}
}

func TestHoldsAreScopedToShowtime(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	ok, err := s.TryHold(ctx, 1, 10, 100, 10*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// The same physical seat under a different showtime is a different key.
	ok, err = s.TryHold(ctx, 2, 10, 200, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
