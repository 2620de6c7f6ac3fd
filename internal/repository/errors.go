// Package repository implements the durable seat ledger on MySQL.  It
// defines sentinel error values reused across repositories so that
// higher layers can distinguish failure scenarios with errors.Is
// instead of string matching.
package repository

import "errors"

// ErrShowtimeNotFound is returned when a showtime ID does not exist.
var ErrShowtimeNotFound = errors.New("showtime not found")

// ErrBookingNotFound is returned when a booking ID does not exist.
var ErrBookingNotFound = errors.New("booking not found")

// ErrInvalidTransition is returned when a booking status change would
// violate the forward-only state machine, e.g. confirming payment on a
// booking that was already cancelled.
var ErrInvalidTransition = errors.New("invalid booking status transition")

// ErrSeatConflict is returned when a seat's status no longer permits the
// requested transition, typically because a concurrent booking won the
// race between this transaction's read and its write.  Handlers should
// translate this into a retryable conflict response.
var ErrSeatConflict = errors.New("seat no longer available")
