package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestSeatPrice(t *testing.T) {
	showtime := &model.Showtime{BasePriceCents: 90000}

	assert.Equal(t, int64(90000), SeatPrice(showtime, &model.SeatType{SurchargePercent: 100}))
	assert.Equal(t, int64(135000), SeatPrice(showtime, &model.SeatType{SurchargePercent: 150}))
}

func TestVoucherDiscount(t *testing.T) {
	active := func(percent uint32, maxCents int64) *model.Voucher {
		return &model.Voucher{
			DiscountPercent: percent,
			MaxAmountCents:  maxCents,
			IsActive:        true,
			ExpiresAt:       testNow.Add(24 * time.Hour),
		}
	}

	tests := []struct {
		name     string
		voucher  *model.Voucher
		subtotal int64
		want     int64
	}{
		{"nil voucher", nil, 300000, 0},
		{"capped at max amount", active(20, 50000), 300000, 50000},
		{"under the cap", active(10, 50000), 300000, 30000},
		{"uncapped", active(20, 0), 300000, 60000},
		{"never exceeds subtotal", active(100, 0), 1000, 1000},
		{
			"inactive voucher",
			&model.Voucher{DiscountPercent: 20, IsActive: false, ExpiresAt: testNow.Add(time.Hour)},
			300000, 0,
		},
		{
			"expired voucher",
			&model.Voucher{DiscountPercent: 20, IsActive: true, ExpiresAt: testNow.Add(-time.Hour)},
			300000, 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VoucherDiscount(tt.voucher, tt.subtotal, testNow))
		})
	}
}

func TestTotal(t *testing.T) {
	voucher := &model.Voucher{
		DiscountPercent: 20,
		MaxAmountCents:  50000,
		IsActive:        true,
		ExpiresAt:       testNow.Add(time.Hour),
	}
	foods := []FoodOrder{
		{Food: model.Food{PriceCents: 45000}, Quantity: 2},
		{Food: model.Food{PriceCents: 30000}, Quantity: 1},
	}

	// Seats 90000 + 90000, foods 90000 + 30000 = 300000 subtotal.
	// 20% would be 60000, capped at 50000.
	total, discount := Total([]int64{90000, 90000}, foods, voucher, testNow)
	assert.Equal(t, int64(50000), discount)
	assert.Equal(t, int64(250000), total)

	total, discount = Total([]int64{90000}, nil, nil, testNow)
	assert.Equal(t, int64(0), discount)
	assert.Equal(t, int64(90000), total)
}
