package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// Ledger is the transactional facade over the individual repositories.
// It exposes exactly the capability surface the reservation coordinator
// needs rather than a generic CRUD interface per entity, and it owns the
// transactions that keep booking rows and seat statuses consistent.
// Seat statuses are never written outside these methods.
type Ledger struct {
	db        *sql.DB
	Seats     *SeatRepo
	Showtimes *ShowtimeRepo
	Bookings  *BookingRepo
	Vouchers  *VoucherRepo
}

// NewLedger constructs a Ledger and its repositories over one database.
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{
		db:        db,
		Seats:     NewSeatRepo(db),
		Showtimes: NewShowtimeRepo(db),
		Bookings:  NewBookingRepo(db),
		Vouchers:  NewVoucherRepo(db),
	}
}

// Read-side lookups delegate straight to the repositories.

func (l *Ledger) GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error) {
	return l.Showtimes.GetByID(ctx, id)
}

func (l *Ledger) GetSeat(ctx context.Context, id uint64) (*model.Seat, error) {
	return l.Seats.GetByID(ctx, id)
}

func (l *Ledger) GetSeatType(ctx context.Context, id uint64) (*model.SeatType, error) {
	return l.Seats.GetTypeByID(ctx, id)
}

func (l *Ledger) ListSeatsInRoom(ctx context.Context, roomID uint64) ([]model.Seat, error) {
	return l.Seats.ListByRoom(ctx, roomID)
}

func (l *Ledger) GetVoucher(ctx context.Context, id uint64) (*model.Voucher, error) {
	return l.Vouchers.GetByID(ctx, id)
}

func (l *Ledger) GetFood(ctx context.Context, id uint64) (*model.Food, error) {
	return l.Vouchers.GetFoodByID(ctx, id)
}

func (l *Ledger) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return l.Bookings.GetByID(ctx, id)
}

func (l *Ledger) ListBookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return l.Bookings.ListByUser(ctx, userID)
}

func (l *Ledger) ListStalePending(ctx context.Context, cutoff time.Time) ([]uint64, error) {
	return l.Bookings.ListStalePending(ctx, cutoff)
}

// CreateBookingWithDetails persists a booking, its seat line items and
// its food line items, and marks every referenced seat BOOKED, all in
// one transaction.  The conditional status update inside MarkBookedTx is
// the write-time re-check: when any seat was raced to BOOKED since the
// caller's read, ErrSeatConflict comes back and nothing persists.  The
// booking record's ID is populated on success.
func (l *Ledger) CreateBookingWithDetails(ctx context.Context, b *model.Booking, details []model.BookingDetail, foods []model.BookingFood) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	seatIDs := make([]uint64, 0, len(details))
	for _, d := range details {
		seatIDs = append(seatIDs, d.SeatID)
	}
	// Claim the seats first so a lost race aborts before any insert.
	if err := l.Seats.MarkBookedTx(ctx, tx, seatIDs); err != nil {
		return err
	}
	if err := l.Bookings.CreateTx(ctx, tx, b); err != nil {
		return err
	}
	for i := range details {
		details[i].BookingID = b.ID
	}
	if err := l.Bookings.CreateDetailsBulkTx(ctx, tx, details); err != nil {
		return err
	}
	for i := range foods {
		foods[i].BookingID = b.ID
	}
	if err := l.Bookings.CreateFoodsBulkTx(ctx, tx, foods); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// MarkBookingPaid transitions a booking to PAID, recording the payment
// method and transaction reference.  Seats are not touched: they were
// consumed at creation time.  The call is idempotent — confirming an
// already PAID booking is a no-op success that keeps the original
// transaction ID.  Confirming a CANCELLED booking returns
// ErrInvalidTransition.
func (l *Ledger) MarkBookingPaid(ctx context.Context, bookingID uint64, method, transactionID string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := l.Bookings.GetByIDTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	switch b.Status {
	case model.BookingPaid:
		// Already confirmed; nothing to record twice.
		committed = true
		return tx.Commit()
	case model.BookingCancelled:
		return ErrInvalidTransition
	}
	if err := l.Bookings.UpdateStatusTx(ctx, tx, bookingID, model.BookingPaid, &method, &transactionID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// CancelBooking transitions a booking to CANCELLED and reverts the
// seats referenced by its details to AVAILABLE, in one transaction.  It
// returns the reverted seat IDs so the caller can release holds and
// broadcast.  Cancelling an already CANCELLED booking is a no-op;
// cancelling a PAID booking returns ErrInvalidTransition (refund flows
// are out of scope).
func (l *Ledger) CancelBooking(ctx context.Context, bookingID uint64) ([]uint64, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := l.Bookings.GetByIDTx(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	switch b.Status {
	case model.BookingCancelled:
		committed = true
		return nil, tx.Commit()
	case model.BookingPaid:
		return nil, ErrInvalidTransition
	}
	seatIDs, err := l.Bookings.SeatIDsByBookingTx(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := l.Bookings.UpdateStatusTx(ctx, tx, bookingID, model.BookingCancelled, nil, nil); err != nil {
		return nil, err
	}
	if err := l.Seats.MarkAvailableTx(ctx, tx, seatIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return seatIDs, nil
}
