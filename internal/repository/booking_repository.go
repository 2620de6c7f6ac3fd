package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// BookingRepo provides data access to the bookings, booking_details and
// booking_foods tables.  Writes that touch seat status must run inside
// the same transaction as the booking row they belong to; the *Tx
// methods exist for that and the caller owns commit/rollback.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle so callers can begin transactions
// spanning multiple repositories.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a new booking within the scope of an existing
// transaction and populates the generated ID on the provided record.
// Status should be a valid enumeration (PENDING, HOLDING, PAID,
// CANCELLED); new bookings start as PENDING.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings
	           (user_id, showtime_id, booking_date, total_amount_cents, status, voucher_id, discount_amount_cents, notes, version)
	           VALUES (?, ?, UTC_TIMESTAMP(), ?, ?, ?, ?, ?, 1)`
	res, err := tx.ExecContext(ctx, q, b.UserID, b.ShowtimeID, b.TotalAmountCents, b.Status, b.VoucherID, b.DiscountAmountCents, b.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// CreateDetailsBulkTx inserts one booking_details row per seat in a
// single statement.  The caller must supply the booking ID in each
// record.  Passing an empty slice has no effect and returns nil.
func (r *BookingRepo) CreateDetailsBulkTx(ctx context.Context, tx *sql.Tx, details []model.BookingDetail) error {
	if len(details) == 0 {
		return nil
	}
	query := `INSERT INTO booking_details (booking_id, seat_id, price_at_booking_cents) VALUES `
	args := make([]interface{}, 0, len(details)*3)
	for i, d := range details {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, d.BookingID, d.SeatID, d.PriceAtBookingCents)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// CreateFoodsBulkTx inserts the concession line items of a booking in a
// single statement.  Passing an empty slice has no effect.
func (r *BookingRepo) CreateFoodsBulkTx(ctx context.Context, tx *sql.Tx, foods []model.BookingFood) error {
	if len(foods) == 0 {
		return nil
	}
	query := `INSERT INTO booking_foods (booking_id, food_id, quantity, unit_price_cents) VALUES `
	args := make([]interface{}, 0, len(foods)*4)
	for i, f := range foods {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, f.BookingID, f.FoodID, f.Quantity, f.UnitPriceCents)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetByID returns a booking by ID.  ErrBookingNotFound when absent.
func (r *BookingRepo) GetByID(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	const q = `SELECT id, user_id, showtime_id, booking_date, total_amount_cents, status,
	                  payment_method, transaction_id, voucher_id, discount_amount_cents, notes, version,
	                  created_at, updated_at
	           FROM bookings WHERE id = ?`
	return r.scanBooking(r.db.QueryRowContext(ctx, q, bookingID))
}

// GetByIDTx is GetByID inside an existing transaction, locking the row
// with FOR UPDATE so concurrent status transitions serialize.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (*model.Booking, error) {
	const q = `SELECT id, user_id, showtime_id, booking_date, total_amount_cents, status,
	                  payment_method, transaction_id, voucher_id, discount_amount_cents, notes, version,
	                  created_at, updated_at
	           FROM bookings WHERE id = ? FOR UPDATE`
	return r.scanBooking(tx.QueryRowContext(ctx, q, bookingID))
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *BookingRepo) scanBooking(row rowScanner) (*model.Booking, error) {
	var b model.Booking
	var showtimeID sql.NullInt64
	var method, txnID, notes sql.NullString
	var voucherID sql.NullInt64
	var updatedAt sql.NullTime
	err := row.Scan(
		&b.ID, &b.UserID, &showtimeID, &b.BookingDate, &b.TotalAmountCents, &b.Status,
		&method, &txnID, &voucherID, &b.DiscountAmountCents, &notes, &b.Version,
		&b.CreatedAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if showtimeID.Valid {
		v := uint64(showtimeID.Int64)
		b.ShowtimeID = &v
	}
	if method.Valid {
		v := method.String
		b.PaymentMethod = &v
	}
	if txnID.Valid {
		v := txnID.String
		b.TransactionID = &v
	}
	if voucherID.Valid {
		v := uint64(voucherID.Int64)
		b.VoucherID = &v
	}
	if notes.Valid {
		v := notes.String
		b.Notes = &v
	}
	if updatedAt.Valid {
		v := updatedAt.Time
		b.UpdatedAt = &v
	}
	return &b, nil
}

// UpdateStatusTx sets the booking's status, bumping the version token.
// Payment method and transaction ID are recorded when provided (payment
// confirmation); passing nil leaves them untouched.  ErrBookingNotFound
// when the row does not exist.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, bookingID uint64, status string, method, transactionID *string) error {
	const q = `UPDATE bookings
	           SET status = ?,
	               payment_method = COALESCE(?, payment_method),
	               transaction_id = COALESCE(?, transaction_id),
	               version = version + 1,
	               updated_at = UTC_TIMESTAMP()
	           WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, status, method, transactionID, bookingID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	_ = n // zero rows can mean an identical update; existence was checked by the caller's read
	return nil
}

// SeatIDsByBookingTx returns the seat IDs referenced by a booking's
// details.  Used by cancellation to revert exactly the booked seats.
func (r *BookingRepo) SeatIDsByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) ([]uint64, error) {
	const q = `SELECT seat_id FROM booking_details WHERE booking_id = ?`
	rows, err := tx.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seatIDs []uint64
	for rows.Next() {
		var sid uint64
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		seatIDs = append(seatIDs, sid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seatIDs, nil
}

// ListByUser returns all bookings placed by a user, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	const q = `SELECT id, user_id, showtime_id, booking_date, total_amount_cents, status,
	                  payment_method, transaction_id, voucher_id, discount_amount_cents, notes, version,
	                  created_at, updated_at
	           FROM bookings WHERE user_id = ?
	           ORDER BY booking_date DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookings := make([]model.Booking, 0)
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

// ListStalePending returns the IDs of PENDING bookings created before
// the cutoff.  The sweep cancels them to free seats whose payment never
// arrived.
func (r *BookingRepo) ListStalePending(ctx context.Context, cutoff time.Time) ([]uint64, error) {
	const q = `SELECT id FROM bookings WHERE status = ? AND created_at < ?`
	rows, err := r.db.QueryContext(ctx, q, model.BookingPending, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
