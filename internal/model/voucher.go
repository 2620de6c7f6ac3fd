package model

import "time"

// Voucher grants a percentage discount capped at a maximum amount.
// Vouchers are read-only from the coordinator's perspective; validity
// is evaluated at booking-creation time.
type Voucher struct {
	ID              uint64    // vouchers.id
	Code            string    // vouchers.code
	DiscountPercent uint32    // vouchers.discount_percent
	MaxAmountCents  int64     // vouchers.max_amount_cents (0 = uncapped)
	IsActive        bool      // vouchers.is_active
	ExpiresAt       time.Time // vouchers.expires_at
}

// Food is a concession item purchasable alongside a booking.
type Food struct {
	ID         uint64 // foods.id
	Name       string // foods.name
	PriceCents int64  // foods.price_cents
	IsActive   bool   // foods.is_active
}
