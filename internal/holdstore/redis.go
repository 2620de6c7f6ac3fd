package holdstore

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a Redis client.  Each hold is a plain
// string key Seat:{showtimeID}:{seatID} whose value is the holder's user
// ID, written with SET NX PX so the claim and its TTL are a single
// atomic round trip.  Expiry is entirely Redis-side: once the TTL
// elapses the key stops existing and the seat reads as free with no
// coordinator action.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore returns a RedisStore bound to the provided client.  The
// client may be nil (Redis down at boot); every operation then reports
// ErrUnavailable, which callers treat as a failed hold attempt.
func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

// TryHold claims the seat for holderID.  SET NX returns false without
// mutating when an unexpired hold already exists, so two concurrent
// callers for the same key resolve to exactly one success.
func (s *RedisStore) TryHold(ctx context.Context, showtimeID, seatID, holderID uint64, ttl time.Duration) (bool, error) {
	if s.rdb == nil {
		return false, ErrUnavailable
	}
	ok, err := s.rdb.SetNX(ctx, seatKey(showtimeID, seatID), strconv.FormatUint(holderID, 10), ttl).Result()
	if err != nil {
		return false, ErrUnavailable
	}
	return ok, nil
}

// Release removes the hold for a seat.  Deleting an absent key is a
// no-op, which makes release idempotent.
func (s *RedisStore) Release(ctx context.Context, showtimeID, seatID uint64) error {
	if s.rdb == nil {
		return ErrUnavailable
	}
	if err := s.rdb.Del(ctx, seatKey(showtimeID, seatID)).Err(); err != nil {
		return ErrUnavailable
	}
	return nil
}

// IsHeld reports whether an unexpired hold exists for the seat.
func (s *RedisStore) IsHeld(ctx context.Context, showtimeID, seatID uint64) (bool, error) {
	if s.rdb == nil {
		return false, ErrUnavailable
	}
	n, err := s.rdb.Exists(ctx, seatKey(showtimeID, seatID)).Result()
	if err != nil {
		return false, ErrUnavailable
	}
	return n > 0, nil
}

// Holder returns the user currently holding the seat.
func (s *RedisStore) Holder(ctx context.Context, showtimeID, seatID uint64) (uint64, bool, error) {
	if s.rdb == nil {
		return 0, false, ErrUnavailable
	}
	v, err := s.rdb.Get(ctx, seatKey(showtimeID, seatID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, ErrUnavailable
	}
	holder, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		// Foreign value under our key convention: the seat is held, but
		// the holder cannot be attributed (holder 0 is never a real
		// user, IDs are positive).
		return 0, true, nil
	}
	return holder, true, nil
}

// TryHoldAll pre-checks every seat and then claims them one by one.
// When a claim fails mid-sequence (raced or store error), the seats
// claimed by this call are released best-effort and false is returned.
func (s *RedisStore) TryHoldAll(ctx context.Context, showtimeID uint64, seatIDs []uint64, holderID uint64, ttl time.Duration) (bool, error) {
	if s.rdb == nil {
		return false, ErrUnavailable
	}
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

// ReleaseAll removes the holds for the given seats.  Failures are logged
// and ignored: leftover keys expire on their own.
func (s *RedisStore) ReleaseAll(ctx context.Context, showtimeID uint64, seatIDs []uint64) {
	for _, seatID := range seatIDs {
		if err := s.Release(ctx, showtimeID, seatID); err != nil {
			log.Printf("holdstore: release seat %d showtime %d failed: %v", seatID, showtimeID, err)
		}
	}
}

// AcquireLock claims a short-lived mutual-exclusion key under the
// Lock:{name} convention and returns the token needed to release it.
// It is unrelated to seat holds and exists for callers that need a
// cheap distributed mutex (e.g. one-at-a-time sweeps).
func (s *RedisStore) AcquireLock(ctx context.Context, name string, expiry time.Duration) (string, bool, error) {
	if s.rdb == nil {
		return "", false, ErrUnavailable
	}
	token := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, lockKey(name), token, expiry).Result()
	if err != nil {
		return "", false, ErrUnavailable
	}
	return token, ok, nil
}

// ReleaseLock deletes the lock only while it still carries the caller's
// token, so an expired-and-reacquired lock is never stolen back.
func (s *RedisStore) ReleaseLock(ctx context.Context, name, token string) error {
	if s.rdb == nil {
		return ErrUnavailable
	}
	const script = `if redis.call('GET', KEYS[1]) == ARGV[1] then return redis.call('DEL', KEYS[1]) end return 0`
	if err := redis.NewScript(script).Run(ctx, s.rdb, []string{lockKey(name)}, token).Err(); err != nil && err != redis.Nil {
		return ErrUnavailable
	}
	return nil
}
