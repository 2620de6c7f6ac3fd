package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// ShowtimeRepo provides read access to the showtimes table.  Showtimes
// are catalog data owned elsewhere; the coordinator only needs lookups.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo returns a new ShowtimeRepo bound to the given database.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo { return &ShowtimeRepo{db: db} }

// GetByID returns a showtime by ID.  It returns ErrShowtimeNotFound when
// no row exists so handlers can map the condition to a 404 without
// leaking sql internals.
func (r *ShowtimeRepo) GetByID(ctx context.Context, showtimeID uint64) (*model.Showtime, error) {
	const q = `SELECT id, movie_id, room_id, starts_at, ends_at, base_price_cents, is_active, created_at, updated_at
	           FROM showtimes WHERE id = ?`
	var st model.Showtime
	err := r.db.QueryRowContext(ctx, q, showtimeID).Scan(
		&st.ID, &st.MovieID, &st.RoomID, &st.StartsAt, &st.EndsAt, &st.BasePriceCents, &st.IsActive, &st.CreatedAt, &st.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrShowtimeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}
