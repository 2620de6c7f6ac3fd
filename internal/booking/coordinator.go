// Package booking implements the reservation coordinator: the state
// machine that takes a (showtime, seat) pair through Available → Held →
// Booked and a booking through Pending → Paid or Cancelled.  The
// coordinator holds no mutable in-process state — every decision is made
// against the hold store and the seat ledger — so any number of server
// instances can run it concurrently.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/holdstore"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/notify"
	"github.com/iliyamo/cinema-ticketing/internal/pricing"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// Ledger is the durable-store capability surface the coordinator needs.
// *repository.Ledger satisfies it in production; tests substitute an
// in-memory fake with the same transactional semantics.
type Ledger interface {
	GetShowtime(ctx context.Context, id uint64) (*model.Showtime, error)
	GetSeat(ctx context.Context, id uint64) (*model.Seat, error)
	GetSeatType(ctx context.Context, id uint64) (*model.SeatType, error)
	ListSeatsInRoom(ctx context.Context, roomID uint64) ([]model.Seat, error)
	GetVoucher(ctx context.Context, id uint64) (*model.Voucher, error)
	GetFood(ctx context.Context, id uint64) (*model.Food, error)

	// CreateBookingWithDetails atomically persists the booking, its line
	// items and the seats' AVAILABLE→BOOKED transition, re-checking seat
	// status at write time.  repository.ErrSeatConflict reports a lost
	// race; nothing persists in that case.
	CreateBookingWithDetails(ctx context.Context, b *model.Booking, details []model.BookingDetail, foods []model.BookingFood) error

	GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
	ListBookingsByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	MarkBookingPaid(ctx context.Context, bookingID uint64, method, transactionID string) error
	CancelBooking(ctx context.Context, bookingID uint64) ([]uint64, error)
	ListStalePending(ctx context.Context, cutoff time.Time) ([]uint64, error)
}

// Coordinator wires the hold store, the seat ledger and the broadcast
// sink into the booking state machine.
type Coordinator struct {
	ledger  Ledger
	holds   holdstore.Store
	sink    notify.Broadcaster
	holdTTL time.Duration
	now     func() time.Time
}

// NewCoordinator constructs a Coordinator.  holdTTL is how long a seat
// selection protects its seats while the customer completes checkout.
func NewCoordinator(ledger Ledger, holds holdstore.Store, sink notify.Broadcaster, holdTTL time.Duration) *Coordinator {
	if ledger == nil || holds == nil || sink == nil {
		panic("nil dependency passed to NewCoordinator")
	}
	return &Coordinator{
		ledger:  ledger,
		holds:   holds,
		sink:    sink,
		holdTTL: holdTTL,
		now:     time.Now,
	}
}

// Result carries the success flag and user-facing message every public
// coordinator operation reports.  Expected failures (not found, races,
// store outages) never surface as raw errors past this boundary.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SelectSeatsResult reports the outcome of a seat selection.
type SelectSeatsResult struct {
	Result
	SeatIDs       []uint64  `json:"seat_ids,omitempty"`
	HoldExpiresAt time.Time `json:"hold_expires_at,omitempty"`
}

// CreateBookingResult reports the outcome of booking creation.
type CreateBookingResult struct {
	Result
	BookingID        uint64 `json:"booking_id,omitempty"`
	TotalAmountCents int64  `json:"total_amount_cents,omitempty"`
}

func failSelect(msg string) SelectSeatsResult {
	return SelectSeatsResult{Result: Result{Success: false, Message: msg}}
}

func failCreate(msg string) CreateBookingResult {
	return CreateBookingResult{Result: Result{Success: false, Message: msg}}
}

// User-facing failure messages.  Conflicts are worded as retryable.
const (
	msgShowtimeNotFound = "showtime not found or no longer open for booking"
	msgSeatInvalid      = "invalid or already-booked seat"
	msgSeatHeld         = "one or more seats are held by another user"
	msgCannotHold       = "cannot hold seats, please try again"
	msgSeatGone         = "seat no longer available, please choose again"
	msgStoreDown        = "service temporarily unavailable, please try again"
)

// dedupe drops zero and repeated seat IDs while preserving order.
func dedupe(seatIDs []uint64) []uint64 {
	unique := make([]uint64, 0, len(seatIDs))
	seen := make(map[uint64]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	return unique
}

// SelectSeats is the hold-first flow: validate the showtime and seats,
// claim TTL-bounded holds for all of them, and announce the selection.
// Nothing durable changes; if the customer walks away the holds expire
// and the seats read as free again with no action from anyone.
func (c *Coordinator) SelectSeats(ctx context.Context, showtimeID uint64, seatIDs []uint64, userID uint64) SelectSeatsResult {
	seatIDs = dedupe(seatIDs)
	if len(seatIDs) == 0 {
		return failSelect("no valid seat IDs provided")
	}

	showtime, err := c.ledger.GetShowtime(ctx, showtimeID)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return failSelect(msgShowtimeNotFound)
		}
		log.Printf("booking: load showtime %d failed: %v", showtimeID, err)
		return failSelect(msgStoreDown)
	}
	if !showtime.IsActive || !showtime.StartsAt.After(c.now()) {
		return failSelect(msgShowtimeNotFound)
	}

	// Validate every seat before holding anything; fail fast on the
	// first violation so this call has zero side effects on failure.
	for _, seatID := range seatIDs {
		seat, err := c.ledger.GetSeat(ctx, seatID)
		if err != nil {
			if isNotFound(err) {
				return failSelect(msgSeatInvalid)
			}
			log.Printf("booking: load seat %d failed: %v", seatID, err)
			return failSelect(msgStoreDown)
		}
		if seat.RoomID != showtime.RoomID || seat.Status != model.SeatAvailable {
			return failSelect(msgSeatInvalid)
		}
		held, err := c.holds.IsHeld(ctx, showtimeID, seatID)
		if err != nil {
			// Hold store down means "cannot hold", never "seat is free".
			log.Printf("booking: hold check seat %d failed: %v", seatID, err)
			return failSelect(msgCannotHold)
		}
		if held {
			return failSelect(msgSeatHeld)
		}
	}

	ok, err := c.holds.TryHoldAll(ctx, showtimeID, seatIDs, userID, c.holdTTL)
	if err != nil {
		log.Printf("booking: hold seats for showtime %d failed: %v", showtimeID, err)
		return failSelect(msgCannotHold)
	}
	if !ok {
		return failSelect(msgSeatHeld)
	}

	group := notify.ShowtimeGroup(showtimeID)
	for _, seatID := range seatIDs {
		c.sink.Broadcast(ctx, group, notify.EventSeatSelected, notify.SeatEvent{
			ShowtimeID: showtimeID,
			SeatID:     seatID,
			UserID:     userID,
		})
	}
	return SelectSeatsResult{
		Result:        Result{Success: true, Message: "seats held successfully"},
		SeatIDs:       seatIDs,
		HoldExpiresAt: c.now().Add(c.holdTTL),
	}
}

// ReleaseSeats drops the caller's holds on the given seats, e.g. when a
// customer deselects them.  Seats held by someone else are left alone.
// It returns how many holds were released.
func (c *Coordinator) ReleaseSeats(ctx context.Context, showtimeID uint64, seatIDs []uint64, userID uint64) (int, error) {
	released := 0
	group := notify.ShowtimeGroup(showtimeID)
	for _, seatID := range dedupe(seatIDs) {
		holder, held, err := c.holds.Holder(ctx, showtimeID, seatID)
		if err != nil {
			return released, err
		}
		// holder 0 means the hold exists but cannot be attributed; it
		// is never the caller's to release.
		if !held || holder == 0 || holder != userID {
			continue
		}
		if err := c.holds.Release(ctx, showtimeID, seatID); err != nil {
			return released, err
		}
		released++
		c.sink.Broadcast(ctx, group, notify.EventSeatReleased, notify.SeatEvent{
			ShowtimeID: showtimeID,
			SeatID:     seatID,
		})
	}
	return released, nil
}

// FoodItem is one requested concession line.
type FoodItem struct {
	FoodID   uint64 `json:"food_id"`
	Quantity uint32 `json:"quantity"`
}

// CreateBookingRequest carries everything booking creation needs.
type CreateBookingRequest struct {
	UserID     uint64
	ShowtimeID uint64
	SeatIDs    []uint64
	VoucherID  *uint64
	Foods      []FoodItem
	Notes      *string
}

// CreateBooking creates a Pending booking and consumes its seats.  Any
// prior hold is advisory: the authoritative double-booking guard is the
// ledger transaction's write-time re-check of seat status, so this also
// serves the direct-book flow where no hold was taken.  On success the
// seats are durably BOOKED, the now-superseded holds are released and
// SeatsSold is broadcast; on any failure nothing persists and the holds
// for these seats are dropped so the seats return to the pool.
func (c *Coordinator) CreateBooking(ctx context.Context, req CreateBookingRequest) CreateBookingResult {
	seatIDs := dedupe(req.SeatIDs)
	if len(seatIDs) == 0 {
		return failCreate("no valid seat IDs provided")
	}

	showtime, err := c.ledger.GetShowtime(ctx, req.ShowtimeID)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return failCreate(msgShowtimeNotFound)
		}
		log.Printf("booking: load showtime %d failed: %v", req.ShowtimeID, err)
		return failCreate(msgStoreDown)
	}

	// Advisory availability read; prices are snapshotted from the same
	// seats.  The transaction below re-checks status authoritatively.
	seatTypes := make(map[uint64]*model.SeatType)
	details := make([]model.BookingDetail, 0, len(seatIDs))
	seatPrices := make([]int64, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		seat, err := c.ledger.GetSeat(ctx, seatID)
		if err != nil {
			if isNotFound(err) {
				return failCreate(msgSeatInvalid)
			}
			log.Printf("booking: load seat %d failed: %v", seatID, err)
			return failCreate(msgStoreDown)
		}
		if seat.RoomID != showtime.RoomID || seat.Status != model.SeatAvailable {
			return failCreate(msgSeatGone)
		}
		st, ok := seatTypes[seat.SeatTypeID]
		if !ok {
			st, err = c.ledger.GetSeatType(ctx, seat.SeatTypeID)
			if err != nil {
				log.Printf("booking: load seat type %d failed: %v", seat.SeatTypeID, err)
				return failCreate(msgStoreDown)
			}
			seatTypes[seat.SeatTypeID] = st
		}
		price := pricing.SeatPrice(showtime, st)
		seatPrices = append(seatPrices, price)
		details = append(details, model.BookingDetail{SeatID: seatID, PriceAtBookingCents: price})
	}

	foodOrders := make([]pricing.FoodOrder, 0, len(req.Foods))
	foodLines := make([]model.BookingFood, 0, len(req.Foods))
	for _, item := range req.Foods {
		if item.Quantity == 0 {
			continue
		}
		food, err := c.ledger.GetFood(ctx, item.FoodID)
		if err != nil {
			if isNotFound(err) {
				continue // unknown items are skipped, not fatal
			}
			log.Printf("booking: load food %d failed: %v", item.FoodID, err)
			return failCreate(msgStoreDown)
		}
		if !food.IsActive {
			continue
		}
		foodOrders = append(foodOrders, pricing.FoodOrder{Food: *food, Quantity: item.Quantity})
		foodLines = append(foodLines, model.BookingFood{
			FoodID:         food.ID,
			Quantity:       item.Quantity,
			UnitPriceCents: food.PriceCents,
		})
	}

	var voucher *model.Voucher
	if req.VoucherID != nil {
		voucher, err = c.ledger.GetVoucher(ctx, *req.VoucherID)
		if err != nil {
			if !isNotFound(err) {
				log.Printf("booking: load voucher %d failed: %v", *req.VoucherID, err)
				return failCreate(msgStoreDown)
			}
			voucher = nil
		}
	}

	total, discount := pricing.Total(seatPrices, foodOrders, voucher, c.now())

	showtimeID := req.ShowtimeID
	b := &model.Booking{
		UserID:              req.UserID,
		ShowtimeID:          &showtimeID,
		TotalAmountCents:    total,
		Status:              model.BookingPending,
		VoucherID:           req.VoucherID,
		DiscountAmountCents: discount,
		Notes:               req.Notes,
	}
	if err := c.ledger.CreateBookingWithDetails(ctx, b, details, foodLines); err != nil {
		// Whatever failed, nothing persisted; drop the holds so the
		// seats go straight back to the pool instead of waiting out the
		// TTL.
		c.holds.ReleaseAll(ctx, req.ShowtimeID, seatIDs)
		if errors.Is(err, repository.ErrSeatConflict) {
			return failCreate(msgSeatGone)
		}
		log.Printf("booking: create booking failed: %v", err)
		return failCreate(msgStoreDown)
	}

	// The seats are durably BOOKED; the transient holds are superseded.
	c.holds.ReleaseAll(ctx, req.ShowtimeID, seatIDs)
	c.sink.Broadcast(ctx, notify.ShowtimeGroup(req.ShowtimeID), notify.EventSeatsSold, notify.SeatsSoldEvent{
		ShowtimeID: req.ShowtimeID,
		SeatIDs:    seatIDs,
		BookingID:  b.ID,
	})
	return CreateBookingResult{
		Result:           Result{Success: true, Message: "booking created successfully"},
		BookingID:        b.ID,
		TotalAmountCents: total,
	}
}

// ConfirmPayment finalises the money side of a booking after the
// gateway reports success.  Seats are not touched — they were consumed
// at creation time.  Confirming an already-paid booking is a no-op
// success (gateway callbacks may repeat).
func (c *Coordinator) ConfirmPayment(ctx context.Context, bookingID uint64, method, transactionID string) error {
	return c.ledger.MarkBookingPaid(ctx, bookingID, method, transactionID)
}

// CancelBooking is the only path that frees a BOOKED seat: it marks the
// booking CANCELLED, reverts exactly the seats on its details to
// AVAILABLE, drops any stale holds, and announces the release.  It is
// used by explicit user cancellation, failed-payment callbacks and the
// pending sweep.
func (c *Coordinator) CancelBooking(ctx context.Context, bookingID uint64) error {
	b, err := c.ledger.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	seatIDs, err := c.ledger.CancelBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.ShowtimeID == nil || len(seatIDs) == 0 {
		return nil
	}
	c.holds.ReleaseAll(ctx, *b.ShowtimeID, seatIDs)
	group := notify.ShowtimeGroup(*b.ShowtimeID)
	for _, seatID := range seatIDs {
		c.sink.Broadcast(ctx, group, notify.EventSeatReleased, notify.SeatEvent{
			ShowtimeID: *b.ShowtimeID,
			SeatID:     seatID,
		})
	}
	return nil
}

// SweepPending cancels PENDING bookings older than maxAge.  It exists
// because seats are consumed at booking creation: a customer who never
// returns from the payment gateway would otherwise pin their seats
// forever.  Returns how many bookings were cancelled.
func (c *Coordinator) SweepPending(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := c.now().Add(-maxAge)
	ids, err := c.ledger.ListStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, id := range ids {
		if err := c.CancelBooking(ctx, id); err != nil {
			// A booking may have been paid or cancelled since listing;
			// skip it and keep sweeping.
			log.Printf("booking: sweep of booking %d failed: %v", id, err)
			continue
		}
		swept++
	}
	return swept, nil
}

// SeatStatus is one seat on the live seat map for a showtime.
type SeatStatus struct {
	SeatID     uint64  `json:"seat_id"`
	RowLabel   string  `json:"row_label"`
	SeatNumber uint32  `json:"seat_number"`
	SeatType   string  `json:"seat_type"`
	Status     string  `json:"status"` // Available | Held | Sold | Unavailable
	PriceCents int64   `json:"price_cents"`
	HeldBy     *uint64 `json:"held_by,omitempty"`
}

// SeatStatuses derives the live seat map for a showtime by overlaying
// the hold store on the durable seat statuses.  A BOOKED seat reads as
// Sold regardless of any stale hold entry still waiting out its TTL.
func (c *Coordinator) SeatStatuses(ctx context.Context, showtimeID uint64) ([]SeatStatus, error) {
	showtime, err := c.ledger.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	seats, err := c.ledger.ListSeatsInRoom(ctx, showtime.RoomID)
	if err != nil {
		return nil, err
	}
	seatTypes := make(map[uint64]*model.SeatType)
	statuses := make([]SeatStatus, 0, len(seats))
	for _, seat := range seats {
		st, ok := seatTypes[seat.SeatTypeID]
		if !ok {
			st, err = c.ledger.GetSeatType(ctx, seat.SeatTypeID)
			if err != nil {
				return nil, err
			}
			seatTypes[seat.SeatTypeID] = st
		}
		entry := SeatStatus{
			SeatID:     seat.ID,
			RowLabel:   seat.RowLabel,
			SeatNumber: seat.SeatNumber,
			SeatType:   st.Name,
			PriceCents: pricing.SeatPrice(showtime, st),
		}
		switch seat.Status {
		case model.SeatBooked:
			entry.Status = "Sold"
		case model.SeatUnavailable:
			entry.Status = "Unavailable"
		default:
			holder, held, err := c.holds.Holder(ctx, showtimeID, seat.ID)
			if err != nil {
				return nil, err
			}
			if held {
				entry.Status = "Held"
				if holder != 0 {
					entry.HeldBy = &holder
				}
			} else {
				entry.Status = "Available"
			}
		}
		statuses = append(statuses, entry)
	}
	return statuses, nil
}

// BookingForUser returns a booking if it belongs to the user, else
// repository.ErrBookingNotFound so ownership is not revealed.
func (c *Coordinator) BookingForUser(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
	b, err := c.ledger.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, repository.ErrBookingNotFound
	}
	return b, nil
}

// BookingsForUser returns the user's bookings, newest first.
func (c *Coordinator) BookingsForUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return c.ledger.ListBookingsByUser(ctx, userID)
}

// isNotFound reports whether err is any of the "row absent" shapes the
// ledger can produce.
func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, repository.ErrBookingNotFound)
}
