package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/booking"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/payment"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// BookingHandler exposes the reservation flow over HTTP: seat maps,
// seat selection, booking creation, payment return and cancellation.
// All booking state decisions live in the coordinator; handlers only
// translate between HTTP and coordinator calls.
type BookingHandler struct {
	Coord    *booking.Coordinator
	Verifier payment.Verifier
}

// NewBookingHandler constructs a BookingHandler.  Both dependencies
// must be non-nil.
func NewBookingHandler(coord *booking.Coordinator, verifier payment.Verifier) *BookingHandler {
	if coord == nil || verifier == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Coord: coord, Verifier: verifier}
}

// SeatMap handles GET /v1/showtimes/:id/seats.  It returns every seat
// in the showtime's room with its live status (Available, Held, Sold or
// Unavailable) and price.
func (h *BookingHandler) SeatMap(c echo.Context) error {
	showtimeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || showtimeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	statuses, err := h.Coord.SeatStatuses(c.Request().Context(), showtimeID)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "showtime not found"})
		}
		log.Printf("handler: seat map for showtime %d failed: %v", showtimeID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seat map"})
	}
	return c.JSON(http.StatusOK, echo.Map{"showtime_id": showtimeID, "seats": statuses})
}

// SelectSeats handles POST /v1/showtimes/:id/select.  The body must
// contain a "seat_ids" array.  On success the seats are held for the
// caller until the hold TTL elapses or a booking consumes them.
func (h *BookingHandler) SelectSeats(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showtimeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || showtimeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	var body struct {
		SeatIDs []uint64 `json:"seat_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
	}

	res := h.Coord.SelectSeats(c.Request().Context(), showtimeID, body.SeatIDs, userID)
	if !res.Success {
		// Selection failures are contention or stale data, not server
		// faults; 409 tells the client to refresh and retry.
		return c.JSON(http.StatusConflict, res)
	}
	return c.JSON(http.StatusOK, res)
}

// ReleaseSeats handles POST /v1/showtimes/:id/release.  It drops the
// caller's holds on the listed seats; seats held by others are ignored.
func (h *BookingHandler) ReleaseSeats(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showtimeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || showtimeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	var body struct {
		SeatIDs []uint64 `json:"seat_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	released, err := h.Coord.ReleaseSeats(c.Request().Context(), showtimeID, body.SeatIDs, userID)
	if err != nil {
		log.Printf("handler: release seats for showtime %d failed: %v", showtimeID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to release seats"})
	}
	return c.JSON(http.StatusOK, echo.Map{"released": released})
}

// CreateBooking handles POST /v1/bookings.  The seats are consumed
// durably on success and the booking starts in PENDING awaiting the
// payment gateway's return callback.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		ShowtimeID uint64             `json:"showtime_id"`
		SeatIDs    []uint64           `json:"seat_ids"`
		VoucherID  *uint64            `json:"voucher_id"`
		Foods      []booking.FoodItem `json:"foods"`
		Notes      *string            `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ShowtimeID == 0 || len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "showtime_id and seat_ids are required"})
	}

	res := h.Coord.CreateBooking(c.Request().Context(), booking.CreateBookingRequest{
		UserID:     userID,
		ShowtimeID: body.ShowtimeID,
		SeatIDs:    body.SeatIDs,
		VoucherID:  body.VoucherID,
		Foods:      body.Foods,
		Notes:      body.Notes,
	})
	if !res.Success {
		return c.JSON(http.StatusConflict, res)
	}
	return c.JSON(http.StatusCreated, res)
}

// MyBookings handles GET /v1/bookings and lists the caller's bookings,
// newest first.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookings, err := h.Coord.BookingsForUser(c.Request().Context(), userID)
	if err != nil {
		log.Printf("handler: list bookings for user %d failed: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookings})
}

// GetBooking handles GET /v1/bookings/:id.  Bookings belonging to other
// users read as not found.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Coord.BookingForUser(c.Request().Context(), bookingID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		log.Printf("handler: get booking %d failed: %v", bookingID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load booking"})
	}
	return c.JSON(http.StatusOK, b)
}

// CancelBooking handles POST /v1/bookings/:id/cancel.  Only the owner
// may cancel, only before payment; the booking's seats return to the
// pool.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || bookingID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	// Ownership first so foreign bookings read as not found.
	if _, err := h.Coord.BookingForUser(c.Request().Context(), bookingID, userID); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		log.Printf("handler: load booking %d failed: %v", bookingID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load booking"})
	}
	if err := h.Coord.CancelBooking(c.Request().Context(), bookingID); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking already paid"})
		}
		log.Printf("handler: cancel booking %d failed: %v", bookingID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel booking"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "booking cancelled"})
}

// PaymentReturn handles GET /v1/payments/return, the gateway's redirect
// after a payment attempt.  The callback acts on booking state only
// when its signature verifies: success confirms the payment, failure
// cancels the booking and frees its seats.  A tampered callback changes
// nothing.
func (h *BookingHandler) PaymentReturn(c echo.Context) error {
	cb, err := h.Verifier.Verify(c.QueryParams())
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed payment callback"})
	}
	if !cb.SignatureValid {
		log.Printf("handler: payment callback for booking %d rejected: bad signature", cb.BookingID)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	}

	ctx := c.Request().Context()
	if cb.Success {
		err = h.Coord.ConfirmPayment(ctx, cb.BookingID, "gateway", cb.TransactionID)
	} else {
		err = h.Coord.CancelBooking(ctx, cb.BookingID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		if errors.Is(err, repository.ErrInvalidTransition) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking state does not permit this outcome"})
		}
		log.Printf("handler: payment callback for booking %d failed: %v", cb.BookingID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to process payment callback"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "booking_id": cb.BookingID, "paid": cb.Success})
}
