// Package notify defines the broadcast capability the reservation
// coordinator uses to push live seat-map updates, together with the
// event payloads.  Broadcasting is fire-and-forget: a failed broadcast
// never fails a booking operation.
package notify

import (
	"context"
	"strconv"
)

// Event names broadcast to a showtime's subscriber group.
const (
	EventSeatSelected = "SeatSelected" // a seat was held by a user
	EventSeatReleased = "SeatReleased" // a hold was released or expired
	EventSeatsSold    = "SeatsSold"    // seats were durably booked
)

// Broadcaster delivers an event with a JSON-marshalable payload to every
// subscriber of a group.  Implementations must be best-effort and safe
// for concurrent use; errors are logged by the implementation, not
// surfaced to booking flows.
type Broadcaster interface {
	Broadcast(ctx context.Context, groupKey, event string, payload interface{})
}

// ShowtimeGroup is the subscriber group key for one showtime's seat map.
func ShowtimeGroup(showtimeID uint64) string {
	return "showtime:" + strconv.FormatUint(showtimeID, 10)
}

// SeatEvent is the payload for SeatSelected and SeatReleased.
type SeatEvent struct {
	ShowtimeID uint64 `json:"showtime_id"`
	SeatID     uint64 `json:"seat_id"`
	UserID     uint64 `json:"user_id,omitempty"`
}

// SeatsSoldEvent is the payload for SeatsSold.
type SeatsSoldEvent struct {
	ShowtimeID uint64   `json:"showtime_id"`
	SeatIDs    []uint64 `json:"seat_ids"`
	BookingID  uint64   `json:"booking_id"`
}
