package model

import "time"

// Showtime represents a scheduled screening of a movie in a particular
// room.  It is read-only input to the reservation coordinator: it scopes
// hold keys and supplies the base price for seat pricing.
//
// Fields:
//
//	ID             – primary key identifier.
//	MovieID        – movie being screened.
//	RoomID         – room where the screening takes place.
//	StartsAt       – when the screening begins.
//	EndsAt         – when the screening ends (must be after StartsAt).
//	BasePriceCents – base seat price in cents before surcharges.
//	IsActive       – whether the showtime is open for booking.
//	CreatedAt      – creation timestamp.
//	UpdatedAt      – last update timestamp.
type Showtime struct {
	ID             uint64    // showtimes.id
	MovieID        uint64    // showtimes.movie_id
	RoomID         uint64    // showtimes.room_id
	StartsAt       time.Time // showtimes.starts_at
	EndsAt         time.Time // showtimes.ends_at
	BasePriceCents int64     // showtimes.base_price_cents
	IsActive       bool      // showtimes.is_active
	CreatedAt      time.Time // showtimes.created_at
	UpdatedAt      time.Time // showtimes.updated_at
}
