// Package pricing computes booking prices.  Every function is pure: the
// caller loads the showtime, seat types, foods and voucher, and pricing
// turns them into cent amounts.  Prices are snapshotted into booking
// rows at creation time, so nothing here is ever re-evaluated for an
// existing booking.
package pricing

import (
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// SeatPrice returns the price of one seat for a showtime: the showtime
// base price scaled by the seat type's integer surcharge percentage
// (100 = base price, 150 = one and a half times base).
func SeatPrice(showtime *model.Showtime, seatType *model.SeatType) int64 {
	return showtime.BasePriceCents * int64(seatType.SurchargePercent) / 100
}

// FoodOrder pairs a concession item with the ordered quantity.
type FoodOrder struct {
	Food     model.Food
	Quantity uint32
}

// VoucherDiscount returns the discount a voucher grants on a subtotal:
// subtotal × percent / 100, capped at the voucher's maximum amount when
// one is set.  An inactive or expired voucher grants nothing.
func VoucherDiscount(v *model.Voucher, subtotalCents int64, now time.Time) int64 {
	if v == nil || !v.IsActive || !v.ExpiresAt.After(now) {
		return 0
	}
	discount := subtotalCents * int64(v.DiscountPercent) / 100
	if v.MaxAmountCents > 0 && discount > v.MaxAmountCents {
		discount = v.MaxAmountCents
	}
	if discount > subtotalCents {
		discount = subtotalCents
	}
	return discount
}

// Total computes the amount charged for a booking: seat prices plus food
// line items minus the voucher discount.  It returns the final total and
// the discount applied so both can be stored on the booking.
func Total(seatPricesCents []int64, foods []FoodOrder, voucher *model.Voucher, now time.Time) (totalCents, discountCents int64) {
	var subtotal int64
	for _, p := range seatPricesCents {
		subtotal += p
	}
	for _, fo := range foods {
		subtotal += fo.Food.PriceCents * int64(fo.Quantity)
	}
	discount := VoucherDiscount(voucher, subtotal, now)
	return subtotal - discount, discount
}
