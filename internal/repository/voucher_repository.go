package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// VoucherRepo provides read access to vouchers and foods.  Both are
// pricing inputs owned by catalog flows outside this service.
type VoucherRepo struct {
	db *sql.DB
}

// NewVoucherRepo returns a new VoucherRepo bound to the given database.
func NewVoucherRepo(db *sql.DB) *VoucherRepo { return &VoucherRepo{db: db} }

// GetByID returns a voucher by ID.  sql.ErrNoRows when absent.
func (r *VoucherRepo) GetByID(ctx context.Context, voucherID uint64) (*model.Voucher, error) {
	const q = `SELECT id, code, discount_percent, max_amount_cents, is_active, expires_at
	           FROM vouchers WHERE id = ?`
	var v model.Voucher
	err := r.db.QueryRowContext(ctx, q, voucherID).Scan(
		&v.ID, &v.Code, &v.DiscountPercent, &v.MaxAmountCents, &v.IsActive, &v.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetFoodByID returns a concession item by ID.  sql.ErrNoRows when absent.
func (r *VoucherRepo) GetFoodByID(ctx context.Context, foodID uint64) (*model.Food, error) {
	const q = `SELECT id, name, price_cents, is_active FROM foods WHERE id = ?`
	var f model.Food
	if err := r.db.QueryRowContext(ctx, q, foodID).Scan(&f.ID, &f.Name, &f.PriceCents, &f.IsActive); err != nil {
		return nil, err
	}
	return &f, nil
}
