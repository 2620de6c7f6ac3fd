// Package holdstore provides atomic, TTL-bounded claims on
// (showtime, seat) pairs.  A hold is transient state: it is created when
// a customer selects seats, superseded when the seats are durably booked,
// and expires on its own otherwise.  The store is the sole source of
// truth for "who currently has this seat reserved, right now".
package holdstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable is returned when the backing store cannot be reached.
// Callers must treat it as "cannot hold", never as "seat is free".
var ErrUnavailable = errors.New("hold store unavailable")

// Store is the capability surface the reservation coordinator needs.
// All operations are safe for concurrent use from multiple processes.
type Store interface {
	// TryHold claims the (showtimeID, seatID) key for holderID with the
	// given TTL.  It returns true only when no unexpired hold existed;
	// the check-and-set is atomic per key.
	TryHold(ctx context.Context, showtimeID, seatID, holderID uint64, ttl time.Duration) (bool, error)

	// Release removes a hold.  Removing an absent key is not an error.
	Release(ctx context.Context, showtimeID, seatID uint64) error

	// IsHeld reports whether an unexpired hold exists for the key.
	IsHeld(ctx context.Context, showtimeID, seatID uint64) (bool, error)

	// Holder returns the holder of the key and whether a hold exists.
	// A held key whose holder cannot be determined reports holder 0;
	// real user IDs are always positive.
	Holder(ctx context.Context, showtimeID, seatID uint64) (uint64, bool, error)

	// TryHoldAll claims every seat or none.  The policy is pre-check then
	// hold: if any seat is already held nothing is claimed; if an error or
	// a lost race occurs mid-sequence, seats claimed by this call are
	// released (best effort) and false is returned.  Two pre-checks may
	// both pass before either holds, but TryHold's per-key atomicity still
	// makes a double-hold of any single seat impossible.
	TryHoldAll(ctx context.Context, showtimeID uint64, seatIDs []uint64, holderID uint64, ttl time.Duration) (bool, error)

	// ReleaseAll removes the holds for the given seats, best effort.
	ReleaseAll(ctx context.Context, showtimeID uint64, seatIDs []uint64)
}

// seatKey builds the hold key for a seat at a showtime.  The convention
// is shared with other services reading the store directly.
func seatKey(showtimeID, seatID uint64) string {
	return fmt.Sprintf("Seat:%d:%d", showtimeID, seatID)
}

// lockKey namespaces short-lived mutual-exclusion keys, unrelated to
// seat holds.
func lockKey(name string) string {
	return "Lock:" + name
}
