package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// SeatRepo provides data access to the seats and seat_types tables.
// Seat status transitions are only valid inside a transaction together
// with the booking row they belong to; the *Tx methods exist for that.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a new SeatRepo bound to the provided database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// GetByID returns a single seat.  When the seat does not exist,
// sql.ErrNoRows is returned.
func (r *SeatRepo) GetByID(ctx context.Context, seatID uint64) (*model.Seat, error) {
	const q = `SELECT id, room_id, row_label, seat_number, seat_type_id, status, created_at, updated_at
	           FROM seats WHERE id = ?`
	var s model.Seat
	err := r.db.QueryRowContext(ctx, q, seatID).Scan(
		&s.ID, &s.RoomID, &s.RowLabel, &s.SeatNumber, &s.SeatTypeID, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByRoom returns every seat in a room ordered by row and number so
// seat maps render deterministically.
func (r *SeatRepo) ListByRoom(ctx context.Context, roomID uint64) ([]model.Seat, error) {
	const q = `SELECT id, room_id, row_label, seat_number, seat_type_id, status, created_at, updated_at
	           FROM seats WHERE room_id = ?
	           ORDER BY row_label, seat_number`
	rows, err := r.db.QueryContext(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]model.Seat, 0)
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.RoomID, &s.RowLabel, &s.SeatNumber, &s.SeatTypeID, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// GetTypeByID returns a seat type.  sql.ErrNoRows when absent.
func (r *SeatRepo) GetTypeByID(ctx context.Context, seatTypeID uint64) (*model.SeatType, error) {
	const q = `SELECT id, name, surcharge_percent FROM seat_types WHERE id = ?`
	var t model.SeatType
	if err := r.db.QueryRowContext(ctx, q, seatTypeID).Scan(&t.ID, &t.Name, &t.SurchargePercent); err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkBookedTx transitions the given seats from AVAILABLE to BOOKED
// within the provided transaction.  The status predicate in the WHERE
// clause is the authoritative double-booking guard: when any seat was
// raced to BOOKED between the caller's read and this write, the affected
// row count falls short and ErrSeatConflict is returned, at which point
// the caller must roll back the whole transaction.
func (r *SeatRepo) MarkBookedTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	query := `UPDATE seats SET status = ?, updated_at = UTC_TIMESTAMP() WHERE status = ? AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := make([]interface{}, 0, len(seatIDs)+2)
	args = append(args, model.SeatBooked, model.SeatAvailable)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != int64(len(seatIDs)) {
		return ErrSeatConflict
	}
	return nil
}

// MarkAvailableTx transitions the given seats back to AVAILABLE within
// the provided transaction.  Used by booking cancellation; seats already
// AVAILABLE are left untouched, so the call is idempotent.
func (r *SeatRepo) MarkAvailableTx(ctx context.Context, tx *sql.Tx, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	query := `UPDATE seats SET status = ?, updated_at = UTC_TIMESTAMP() WHERE status = ? AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := make([]interface{}, 0, len(seatIDs)+2)
	args = append(args, model.SeatAvailable, model.SeatBooked)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// placeholders builds a "?, ?, ?" list of length n for IN clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
