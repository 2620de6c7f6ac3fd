package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/booking"
	"github.com/iliyamo/cinema-ticketing/internal/holdstore"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/payment"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

const gatewaySecret = "test-gateway-secret"

// stubLedger is a minimal in-memory booking.Ledger for handler tests.
// Handler tests run sequentially, so no locking is needed.
type stubLedger struct {
	showtimes map[uint64]*model.Showtime
	seats     map[uint64]*model.Seat
	seatTypes map[uint64]*model.SeatType
	bookings  map[uint64]*model.Booking
	details   map[uint64][]model.BookingDetail
	nextID    uint64
}

func (s *stubLedger) GetShowtime(_ context.Context, id uint64) (*model.Showtime, error) {
	st, ok := s.showtimes[id]
	if !ok {
		return nil, repository.ErrShowtimeNotFound
	}
	return st, nil
}

func (s *stubLedger) GetSeat(_ context.Context, id uint64) (*model.Seat, error) {
	seat, ok := s.seats[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return seat, nil
}

func (s *stubLedger) GetSeatType(_ context.Context, id uint64) (*model.SeatType, error) {
	t, ok := s.seatTypes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t, nil
}

func (s *stubLedger) ListSeatsInRoom(_ context.Context, roomID uint64) ([]model.Seat, error) {
	out := make([]model.Seat, 0)
	for _, seat := range s.seats {
		if seat.RoomID == roomID {
			out = append(out, *seat)
		}
	}
	return out, nil
}

func (s *stubLedger) GetVoucher(context.Context, uint64) (*model.Voucher, error) {
	return nil, sql.ErrNoRows
}

func (s *stubLedger) GetFood(context.Context, uint64) (*model.Food, error) {
	return nil, sql.ErrNoRows
}

func (s *stubLedger) CreateBookingWithDetails(_ context.Context, b *model.Booking, details []model.BookingDetail, _ []model.BookingFood) error {
	for _, d := range details {
		seat, ok := s.seats[d.SeatID]
		if !ok || seat.Status != model.SeatAvailable {
			return repository.ErrSeatConflict
		}
	}
	for _, d := range details {
		s.seats[d.SeatID].Status = model.SeatBooked
	}
	s.nextID++
	b.ID = s.nextID
	b.CreatedAt = time.Now()
	cp := *b
	s.bookings[b.ID] = &cp
	s.details[b.ID] = details
	return nil
}

func (s *stubLedger) GetBooking(_ context.Context, id uint64) (*model.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *stubLedger) ListBookingsByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	out := make([]model.Booking, 0)
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *stubLedger) MarkBookingPaid(_ context.Context, bookingID uint64, method, transactionID string) error {
	b, ok := s.bookings[bookingID]
	if !ok {
		return repository.ErrBookingNotFound
	}
	switch b.Status {
	case model.BookingPaid:
		return nil
	case model.BookingCancelled:
		return repository.ErrInvalidTransition
	}
	b.Status = model.BookingPaid
	b.PaymentMethod = &method
	b.TransactionID = &transactionID
	return nil
}

func (s *stubLedger) CancelBooking(_ context.Context, bookingID uint64) ([]uint64, error) {
	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	switch b.Status {
	case model.BookingCancelled:
		return nil, nil
	case model.BookingPaid:
		return nil, repository.ErrInvalidTransition
	}
	seatIDs := make([]uint64, 0)
	for _, d := range s.details[bookingID] {
		seatIDs = append(seatIDs, d.SeatID)
		s.seats[d.SeatID].Status = model.SeatAvailable
	}
	b.Status = model.BookingCancelled
	return seatIDs, nil
}

func (s *stubLedger) ListStalePending(context.Context, time.Time) ([]uint64, error) {
	return nil, nil
}

// noopSink discards broadcasts.
type noopSink struct{}

func (noopSink) Broadcast(context.Context, string, string, interface{}) {}

func newTestHandler() (*BookingHandler, *stubLedger, *holdstore.MemoryStore) {
	ledger := &stubLedger{
		showtimes: make(map[uint64]*model.Showtime),
		seats:     make(map[uint64]*model.Seat),
		seatTypes: make(map[uint64]*model.SeatType),
		bookings:  make(map[uint64]*model.Booking),
		details:   make(map[uint64][]model.BookingDetail),
	}
	ledger.showtimes[1] = &model.Showtime{
		ID: 1, MovieID: 5, RoomID: 1,
		StartsAt:       time.Now().Add(2 * time.Hour),
		EndsAt:         time.Now().Add(4 * time.Hour),
		BasePriceCents: 120000,
		IsActive:       true,
	}
	ledger.seatTypes[1] = &model.SeatType{ID: 1, Name: "Standard", SurchargePercent: 100}
	for i := uint64(1); i <= 3; i++ {
		ledger.seats[i] = &model.Seat{ID: i, RoomID: 1, RowLabel: "A", SeatNumber: uint32(i), SeatTypeID: 1, Status: model.SeatAvailable}
	}

	holds := holdstore.NewMemoryStore()
	coord := booking.NewCoordinator(ledger, holds, noopSink{}, 10*time.Minute)
	return NewBookingHandler(coord, payment.NewHMACVerifier(gatewaySecret)), ledger, holds
}

func newJSONContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func asUser(c echo.Context, userID uint64) {
	c.Set("user_id", userID)
}

func TestSelectSeatsEndpointHoldsSeats(t *testing.T) {
	h, _, holds := newTestHandler()

	c, rec := newJSONContext(http.MethodPost, "/v1/showtimes/1/select", `{"seat_ids":[1,2]}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	asUser(c, 42)

	require.NoError(t, h.SelectSeats(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	held, err := holds.IsHeld(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.True(t, held)
}

func TestSelectSeatsEndpointRequiresAuth(t *testing.T) {
	h, _, _ := newTestHandler()

	c, rec := newJSONContext(http.MethodPost, "/v1/showtimes/1/select", `{"seat_ids":[1]}`)
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, h.SelectSeats(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSelectSeatsEndpointConflictOnHeldSeat(t *testing.T) {
	h, _, holds := newTestHandler()

	ok, err := holds.TryHold(context.Background(), 1, 1, 7, 10*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	c, rec := newJSONContext(http.MethodPost, "/v1/showtimes/1/select", `{"seat_ids":[1]}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	asUser(c, 42)

	require.NoError(t, h.SelectSeats(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSeatMapEndpoint(t *testing.T) {
	h, ledger, _ := newTestHandler()
	ledger.seats[2].Status = model.SeatBooked

	c, rec := newJSONContext(http.MethodGet, "/v1/showtimes/1/seats", "")
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, h.SeatMap(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Sold"`)
	assert.Contains(t, rec.Body.String(), `"Available"`)
}

func TestSeatMapEndpointUnknownShowtime(t *testing.T) {
	h, _, _ := newTestHandler()

	c, rec := newJSONContext(http.MethodGet, "/v1/showtimes/99/seats", "")
	c.SetParamNames("id")
	c.SetParamValues("99")

	require.NoError(t, h.SeatMap(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// createBooking drives the endpoint and returns the new booking's ID.
func createBooking(t *testing.T, h *BookingHandler, userID uint64, seatIDs string) uint64 {
	t.Helper()
	c, rec := newJSONContext(http.MethodPost, "/v1/bookings", `{"showtime_id":1,"seat_ids":`+seatIDs+`}`)
	asUser(c, userID)
	require.NoError(t, h.CreateBooking(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res booking.CreateBookingResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res.BookingID
}

func TestPaymentReturnConfirmsBooking(t *testing.T) {
	h, ledger, _ := newTestHandler()
	bookingID := createBooking(t, h, 42, "[1]")

	params := url.Values{}
	params.Set("booking_id", strconv.FormatUint(bookingID, 10))
	params.Set("status", "success")
	params.Set("transaction_id", "TXN-1")
	params.Set("signature", payment.Sign(params, []byte(gatewaySecret)))

	c, rec := newJSONContext(http.MethodGet, "/v1/payments/return?"+params.Encode(), "")
	require.NoError(t, h.PaymentReturn(c))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.BookingPaid, ledger.bookings[bookingID].Status)
}

func TestPaymentReturnFailureCancelsBookingAndFreesSeats(t *testing.T) {
	h, ledger, _ := newTestHandler()
	bookingID := createBooking(t, h, 42, "[1,2]")
	require.Equal(t, model.SeatBooked, ledger.seats[1].Status)

	params := url.Values{}
	params.Set("booking_id", strconv.FormatUint(bookingID, 10))
	params.Set("status", "failed")
	params.Set("transaction_id", "TXN-1")
	params.Set("signature", payment.Sign(params, []byte(gatewaySecret)))

	c, rec := newJSONContext(http.MethodGet, "/v1/payments/return?"+params.Encode(), "")
	require.NoError(t, h.PaymentReturn(c))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.BookingCancelled, ledger.bookings[bookingID].Status)
	assert.Equal(t, model.SeatAvailable, ledger.seats[1].Status)
	assert.Equal(t, model.SeatAvailable, ledger.seats[2].Status)
}

func TestPaymentReturnRejectsTamperedCallback(t *testing.T) {
	h, ledger, _ := newTestHandler()
	bookingID := createBooking(t, h, 42, "[1]")

	params := url.Values{}
	params.Set("booking_id", strconv.FormatUint(bookingID, 10))
	params.Set("status", "failed")
	params.Set("transaction_id", "TXN-1")
	params.Set("signature", payment.Sign(params, []byte(gatewaySecret)))
	params.Set("status", "success") // tampered after signing

	c, rec := newJSONContext(http.MethodGet, "/v1/payments/return?"+params.Encode(), "")
	require.NoError(t, h.PaymentReturn(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	// No state change on a bad signature.
	assert.Equal(t, model.BookingPending, ledger.bookings[bookingID].Status)
}

func TestCancelBookingEndpointHidesForeignBookings(t *testing.T) {
	h, ledger, _ := newTestHandler()
	bookingID := createBooking(t, h, 42, "[1]")

	c, rec := newJSONContext(http.MethodPost, "/v1/bookings/1/cancel", "")
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(bookingID, 10))
	asUser(c, 7)

	require.NoError(t, h.CancelBooking(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, model.BookingPending, ledger.bookings[bookingID].Status)
}

func TestCancelBookingEndpointRejectsPaidBooking(t *testing.T) {
	h, ledger, _ := newTestHandler()
	bookingID := createBooking(t, h, 42, "[1]")
	ledger.bookings[bookingID].Status = model.BookingPaid

	c, rec := newJSONContext(http.MethodPost, "/v1/bookings/1/cancel", "")
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(bookingID, 10))
	asUser(c, 42)

	require.NoError(t, h.CancelBooking(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
