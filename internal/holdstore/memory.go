package holdstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-process map.  It mirrors the
// Redis semantics, including lazy expiry: an expired entry simply stops
// being reported and is dropped on next touch.  It backs single-node
// development setups and the coordinator's tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryHold
	now     func() time.Time
}

type memoryHold struct {
	holder    uint64
	expiresAt time.Time
}

// NewMemoryStore returns an empty MemoryStore using the real clock.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryHold), now: time.Now}
}

// SetClock replaces the store's clock.  Tests use this to observe TTL
// expiry without sleeping.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// live reports whether an unexpired hold exists for key, pruning the
// entry when it has expired.  Caller must hold s.mu.
func (s *MemoryStore) live(key string) (memoryHold, bool) {
	h, ok := s.entries[key]
	if !ok {
		return memoryHold{}, false
	}
	if !s.now().Before(h.expiresAt) {
		delete(s.entries, key)
		return memoryHold{}, false
	}
	return h, true
}

func (s *MemoryStore) TryHold(_ context.Context, showtimeID, seatID, holderID uint64, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := seatKey(showtimeID, seatID)
	if _, held := s.live(key); held {
		return false, nil
	}
	s.entries[key] = memoryHold{holder: holderID, expiresAt: s.now().Add(ttl)}
	return true, nil
}

func (s *MemoryStore) Release(_ context.Context, showtimeID, seatID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, seatKey(showtimeID, seatID))
	return nil
}

func (s *MemoryStore) IsHeld(_ context.Context, showtimeID, seatID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, held := s.live(seatKey(showtimeID, seatID))
	return held, nil
}

func (s *MemoryStore) Holder(_ context.Context, showtimeID, seatID uint64) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, held := s.live(seatKey(showtimeID, seatID))
	if !held {
		return 0, false, nil
	}
	return h.holder, true, nil
}

func (s *MemoryStore) TryHoldAll(ctx context.Context, showtimeID uint64, seatIDs []uint64, holderID uint64, ttl time.Duration) (bool, error) {
	// Same pre-check-then-hold sequence as the Redis implementation so
	// both exhibit identical contract behaviour.
	for _, seatID := range seatIDs {
		held, err := s.IsHeld(ctx, showtimeID, seatID)
		if err != nil {
			return false, err
		}
		if held {
			return false, nil
		}
	}
	claimed := make([]uint64, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		ok, err := s.TryHold(ctx, showtimeID, seatID, holderID, ttl)
		if err != nil || !ok {
			s.ReleaseAll(ctx, showtimeID, claimed)
			return false, err
		}
		claimed = append(claimed, seatID)
	}
	return true, nil
}

func (s *MemoryStore) ReleaseAll(ctx context.Context, showtimeID uint64, seatIDs []uint64) {
	for _, seatID := range seatIDs {
		_ = s.Release(ctx, showtimeID, seatID)
	}
}
