package model

import "time"

// Booking status values.  Transitions are monotonic forward except
// CANCELLED, which is terminal and reachable from PENDING.
const (
	BookingPending   = "PENDING"   // created, awaiting payment
	BookingHolding   = "HOLDING"   // seats locked in the hold store, awaiting payment
	BookingPaid      = "PAID"      // payment confirmed
	BookingCancelled = "CANCELLED" // cancelled by user, payment failure, or sweep
)

// Booking records a user's ticket order for a showtime.  Seats referenced
// by its BookingDetails are marked BOOKED at creation time; payment
// confirmation only finalises the money side.  The Version column is an
// optimistic concurrency token bumped on every update.
//
// Fields:
//
//	ID                  – primary key identifier.
//	UserID              – user who placed the booking.
//	ShowtimeID          – showtime being booked (nullable for legacy rows).
//	BookingDate         – when the order was placed.
//	TotalAmountCents    – total price (seats + foods − discount) in cents.
//	Status              – state of the booking (see constants above).
//	PaymentMethod       – gateway used, once known.
//	TransactionID       – gateway transaction reference, once known.
//	VoucherID           – voucher applied, if any.
//	DiscountAmountCents – discount granted by the voucher, in cents.
//	Notes               – free-form customer note.
//	Version             – optimistic concurrency token.
//	CreatedAt           – creation timestamp.
//	UpdatedAt           – last update timestamp.
type Booking struct {
	ID                  uint64     // bookings.id
	UserID              uint64     // bookings.user_id
	ShowtimeID          *uint64    // bookings.showtime_id (nullable)
	BookingDate         time.Time  // bookings.booking_date
	TotalAmountCents    int64      // bookings.total_amount_cents
	Status              string     // bookings.status
	PaymentMethod       *string    // bookings.payment_method (nullable)
	TransactionID       *string    // bookings.transaction_id (nullable)
	VoucherID           *uint64    // bookings.voucher_id (nullable)
	DiscountAmountCents int64      // bookings.discount_amount_cents
	Notes               *string    // bookings.notes (nullable)
	Version             uint64     // bookings.version
	CreatedAt           time.Time  // bookings.created_at
	UpdatedAt           *time.Time // bookings.updated_at (nullable)
}

// BookingDetail is a seat-level line item of a booking.  The price is
// snapshotted at creation time and never recalculated, so later price
// changes cannot alter recorded revenue.
type BookingDetail struct {
	ID                  uint64    // booking_details.id
	BookingID           uint64    // booking_details.booking_id
	SeatID              uint64    // booking_details.seat_id
	PriceAtBookingCents int64     // booking_details.price_at_booking_cents
	CreatedAt           time.Time // booking_details.created_at
}

// BookingFood is a concession line item of a booking with its unit price
// snapshotted at creation time.
type BookingFood struct {
	ID             uint64 // booking_foods.id
	BookingID      uint64 // booking_foods.booking_id
	FoodID         uint64 // booking_foods.food_id
	Quantity       uint32 // booking_foods.quantity
	UnitPriceCents int64  // booking_foods.unit_price_cents
}
