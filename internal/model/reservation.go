package model

import "time"

// Reservation lifecycle statuses.  HELD is the initial state while the
// attached payment hold is unresolved.  CANCELLED and COMPLETED are
// terminal; the lifecycle scheduler never deletes rows, only transitions
// their status.
const (
	StatusHeld      = "HELD"
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// Payment statuses attached to a reservation's hold.
const (
	PaymentPending       = "PENDING"
	PaymentPaid          = "PAID"
	PaymentPartiallyPaid = "PARTIALLY_PAID"
	PaymentExpired       = "EXPIRED"
	PaymentFailed        = "FAILED"
)

// Reservation is a user's claim on a field for a half-open window
// [StartsAt, EndsAt) on a calendar date.  The payment hold is embedded:
// while the reservation is HELD with payment PENDING it blocks the slot
// only until HoldExpiresAt passes.
//
// Fields:
//  ID            – primary key identifier.
//  FieldID       – field being reserved.
//  UserID        – user who made the reservation.
//  BookingDate   – calendar date of the window (UTC midnight).
//  StartsAt      – inclusive window start, UTC.
//  EndsAt        – exclusive window end, UTC.
//  Status        – lifecycle status (HELD, ACTIVE, COMPLETED, CANCELLED).
//  PaymentStatus – hold payment state (PENDING, PAID, PARTIALLY_PAID,
//                  EXPIRED, FAILED).
//  HoldExpiresAt – instant after which an unpaid PENDING hold stops
//                  blocking the slot.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Reservation struct {
	ID            uint64    // reservations.id
	FieldID       uint64    // reservations.field_id
	UserID        uint64    // reservations.user_id
	BookingDate   time.Time // reservations.booking_date
	StartsAt      time.Time // reservations.starts_at
	EndsAt        time.Time // reservations.ends_at
	Status        string    // reservations.status
	PaymentStatus string    // reservations.payment_status
	HoldExpiresAt time.Time // reservations.hold_expires_at
	CreatedAt     time.Time // reservations.created_at
	UpdatedAt     time.Time // reservations.updated_at
}

// Occupies reports whether the reservation counts toward conflict
// detection at the given instant.  A reservation occupies its slot iff
// it is not in a terminal status and its hold is confirmed (paid or
// partially paid) or still pending and unexpired.  A FAILED payment
// stops occupying immediately, without waiting for the hold expiry.
func (r Reservation) Occupies(now time.Time) bool {
	if r.Status == StatusCancelled || r.Status == StatusCompleted {
		return false
	}
	switch r.PaymentStatus {
	case PaymentPaid, PaymentPartiallyPaid:
		return true
	case PaymentPending:
		return now.Before(r.HoldExpiresAt)
	default:
		return false
	}
}
