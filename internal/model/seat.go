package model

import "time"

// Seat status values persisted in the seats table.  HELD never appears
// here: holds live exclusively in the hold store and expire on their own.
const (
	SeatAvailable   = "AVAILABLE"   // free, may be held or booked
	SeatBooked      = "BOOKED"      // consumed by a non-cancelled booking
	SeatUnavailable = "UNAVAILABLE" // broken or blocked by an administrator
)

// Seat describes a physical seat in a room.  Seats are uniquely
// identified by their room, row label and seat number.  The status is
// durable and mutated only by the reservation coordinator during
// booking creation and cancellation.
//
// Fields:
//
//	ID         – primary key identifier.
//	RoomID     – room to which this seat belongs.
//	RowLabel   – letter or string designating the row.
//	SeatNumber – number of the seat within the row.
//	SeatTypeID – pricing category of the seat.
//	Status     – durable status (AVAILABLE, BOOKED, UNAVAILABLE).
//	CreatedAt  – creation timestamp.
//	UpdatedAt  – last update timestamp.
type Seat struct {
	ID         uint64    // seats.id
	RoomID     uint64    // seats.room_id
	RowLabel   string    // seats.row_label
	SeatNumber uint32    // seats.seat_number
	SeatTypeID uint64    // seats.seat_type_id
	Status     string    // seats.status
	CreatedAt  time.Time // seats.created_at
	UpdatedAt  time.Time // seats.updated_at
}

// SeatType is a pricing category for seats.  The surcharge is expressed
// as an integer percentage of the showtime base price (100 = standard,
// 150 = VIP at one and a half times base) so money math stays integral.
type SeatType struct {
	ID               uint64 // seat_types.id
	Name             string // seat_types.name
	SurchargePercent uint32 // seat_types.surcharge_percent
}
