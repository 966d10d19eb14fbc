package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/field-reservation/internal/model"
)

// occupiedPred is the SQL form of the occupancy predicate: a reservation
// blocks its slot iff it is not terminal and its hold is confirmed, or
// still pending and unexpired.  Every availability query and every
// lifecycle transition is phrased against this predicate so that
// re-running any of them against the same store state is a no-op.
// Takes one argument: the current UTC time.
const occupiedPred = `r.status IN ('HELD','ACTIVE')
	AND (r.payment_status IN ('PAID','PARTIALLY_PAID')
	     OR (r.payment_status = 'PENDING' AND r.hold_expires_at > ?))`

const dateFmt = "2006-01-02"

// ReservationRepo provides data access to the reservations table.  All
// timestamps are stored and compared in UTC.  Lifecycle transitions are
// bulk, predicate-scoped updates: two workers racing on the same pass
// converge to the same end state because the predicate excludes already
// transitioned rows.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle for callers that need transactions.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// Affected identifies a reservation touched by a mutation together with
// the coordinates needed for cache invalidation and availability
// notification.
type Affected struct {
	ReservationID uint64
	FieldID       uint64
	BranchID      uint64
	UserID        uint64
	BookingDate   time.Time
}

// FindOccupying returns all reservations that currently block slots on
// the given field and date, evaluated at the supplied instant.
func (r *ReservationRepo) FindOccupying(ctx context.Context, fieldID uint64, date, now time.Time) ([]model.Reservation, error) {
	const q = `SELECT r.id, r.field_id, r.user_id, r.booking_date, r.starts_at, r.ends_at,
	                  r.status, r.payment_status, r.hold_expires_at, r.created_at, r.updated_at
	           FROM reservations r
	           WHERE r.field_id = ? AND r.booking_date = ? AND ` + occupiedPred + `
	           ORDER BY r.starts_at`
	rows, err := r.db.QueryContext(ctx, q, fieldID, date.UTC().Format(dateFmt), now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservations(rows)
}

// FindOccupyingByDate returns every occupying reservation for the date,
// grouped by field.  Used by the all-fields availability overview to
// avoid one query per field.
func (r *ReservationRepo) FindOccupyingByDate(ctx context.Context, date, now time.Time) (map[uint64][]model.Reservation, error) {
	const q = `SELECT r.id, r.field_id, r.user_id, r.booking_date, r.starts_at, r.ends_at,
	                  r.status, r.payment_status, r.hold_expires_at, r.created_at, r.updated_at
	           FROM reservations r
	           WHERE r.booking_date = ? AND ` + occupiedPred + `
	           ORDER BY r.field_id, r.starts_at`
	rows, err := r.db.QueryContext(ctx, q, date.UTC().Format(dateFmt), now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list, err := scanReservations(rows)
	if err != nil {
		return nil, err
	}
	byField := make(map[uint64][]model.Reservation, len(list))
	for _, res := range list {
		byField[res.FieldID] = append(byField[res.FieldID], res)
	}
	return byField, nil
}

// CreateHeld inserts a new HELD reservation with a PENDING payment hold.
// The whole operation runs in one transaction that serializes on the
// field row (SELECT ... FOR UPDATE) and re-checks the overlap predicate
// before inserting.  This is the store-level backstop for the guard's
// check-then-act race: two concurrent creates for the same field queue
// on the row lock and the second one observes the first one's insert.
// Returns ErrFieldNotFound or ErrSlotTaken as appropriate; on success
// the record's ID and timestamps are populated.
func (r *ReservationRepo) CreateHeld(ctx context.Context, res *model.Reservation, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock the field row so concurrent creates for the same field serialize.
	var fieldID uint64
	err = tx.QueryRowContext(ctx, `SELECT id FROM fields WHERE id = ? AND is_active = 1 FOR UPDATE`, res.FieldID).Scan(&fieldID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrFieldNotFound
	}
	if err != nil {
		return err
	}

	// Re-check the overlap predicate under the lock.
	const overlapQ = `SELECT EXISTS(
	        SELECT 1 FROM reservations r
	        WHERE r.field_id = ? AND r.booking_date = ? AND ` + occupiedPred + `
	          AND r.starts_at < ? AND r.ends_at > ?)`
	var taken bool
	if err := tx.QueryRowContext(ctx, overlapQ,
		res.FieldID, res.BookingDate.UTC().Format(dateFmt), now.UTC(),
		res.EndsAt.UTC(), res.StartsAt.UTC(),
	).Scan(&taken); err != nil {
		return err
	}
	if taken {
		return ErrSlotTaken
	}

	const ins = `INSERT INTO reservations
	        (field_id, user_id, booking_date, starts_at, ends_at, status, payment_status, hold_expires_at)
	        VALUES (?, ?, ?, ?, ?, 'HELD', 'PENDING', ?)`
	result, err := tx.ExecContext(ctx, ins,
		res.FieldID, res.UserID, res.BookingDate.UTC().Format(dateFmt),
		res.StartsAt.UTC(), res.EndsAt.UTC(), res.HoldExpiresAt.UTC(),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	res.Status = model.StatusHeld
	res.PaymentStatus = model.PaymentPending

	// Query back timestamps set by the database.
	const sel = `SELECT created_at, updated_at FROM reservations WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, res.ID).Scan(&res.CreatedAt, &res.UpdatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID loads a single reservation or sql.ErrNoRows.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT r.id, r.field_id, r.user_id, r.booking_date, r.starts_at, r.ends_at,
	                  r.status, r.payment_status, r.hold_expires_at, r.created_at, r.updated_at
	           FROM reservations r WHERE r.id = ?`
	row := r.db.QueryRowContext(ctx, q, id)
	var res model.Reservation
	if err := row.Scan(&res.ID, &res.FieldID, &res.UserID, &res.BookingDate, &res.StartsAt, &res.EndsAt,
		&res.Status, &res.PaymentStatus, &res.HoldExpiresAt, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListByUser returns a user's reservations newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	const q = `SELECT r.id, r.field_id, r.user_id, r.booking_date, r.starts_at, r.ends_at,
	                  r.status, r.payment_status, r.hold_expires_at, r.created_at, r.updated_at
	           FROM reservations r WHERE r.user_id = ? ORDER BY r.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReservations(rows)
}

// TransitionStatus moves a reservation from one status to another and
// reports whether a row actually changed.  The from-status guard in the
// WHERE clause makes re-application idempotent.
func (r *ReservationRepo) TransitionStatus(ctx context.Context, id uint64, from, to string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET status = ? WHERE id = ? AND status = ?`, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CancelByUser cancels a reservation on behalf of its owner.  The
// reservation must still be HELD or ACTIVE and its window must not have
// started yet.  Returns ErrForbidden when the reservation belongs to a
// different user and ErrCancelClosed when it can no longer be cancelled.
func (r *ReservationRepo) CancelByUser(ctx context.Context, id, userID uint64, now time.Time) (*Affected, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `SELECT r.user_id, r.field_id, f.branch_id, r.booking_date, r.starts_at, r.status
	           FROM reservations r JOIN fields f ON f.id = r.field_id
	           WHERE r.id = ? FOR UPDATE`
	var owner, fieldID, branchID uint64
	var bookingDate, startsAt time.Time
	var status string
	if err := tx.QueryRowContext(ctx, q, id).Scan(&owner, &fieldID, &branchID, &bookingDate, &startsAt, &status); err != nil {
		return nil, err
	}
	if owner != userID {
		return nil, ErrForbidden
	}
	if status != model.StatusHeld && status != model.StatusActive || !startsAt.After(now.UTC()) {
		return nil, ErrCancelClosed
	}
	if _, err := tx.ExecContext(ctx, `UPDATE reservations SET status = 'CANCELLED' WHERE id = ?`, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &Affected{ReservationID: id, FieldID: fieldID, BranchID: branchID, UserID: owner, BookingDate: bookingDate}, nil
}

// ConfirmPayment records the outcome reported by the payment gateway for
// a HELD reservation.  Allowed target statuses are PAID, PARTIALLY_PAID
// and FAILED.  The flip is gated on the hold still protecting its slot:
// a PENDING payment past hold_expires_at has stopped occupying the
// window, another user may already have booked it, and confirming the
// stale hold afterwards would leave two occupying reservations
// overlapping.  Returns ErrForbidden when the reservation belongs to a
// different user and ErrPaymentClosed when the reservation is no longer
// HELD or its pending hold has lapsed.  Retrying a confirmation that was
// already applied succeeds.
func (r *ReservationRepo) ConfirmPayment(ctx context.Context, id, userID uint64, paymentStatus string, now time.Time) (*Affected, error) {
	const q = `SELECT r.user_id, r.field_id, f.branch_id, r.booking_date
	           FROM reservations r JOIN fields f ON f.id = r.field_id
	           WHERE r.id = ?`
	var owner, fieldID, branchID uint64
	var bookingDate time.Time
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&owner, &fieldID, &branchID, &bookingDate); err != nil {
		return nil, err
	}
	if owner != userID {
		return nil, ErrForbidden
	}
	const upd = `UPDATE reservations SET payment_status = ?
	             WHERE id = ? AND status = 'HELD'
	               AND (payment_status = 'PARTIALLY_PAID'
	                    OR (payment_status = 'PENDING' AND hold_expires_at > ?))`
	result, err := r.db.ExecContext(ctx, upd, paymentStatus, id, now.UTC())
	if err != nil {
		return nil, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	affected := &Affected{ReservationID: id, FieldID: fieldID, BranchID: branchID, UserID: owner, BookingDate: bookingDate}
	if n == 0 {
		// MySQL reports zero affected rows both when the predicate did
		// not match and when the value was already the requested one.
		var status, current string
		if err := r.db.QueryRowContext(ctx,
			`SELECT status, payment_status FROM reservations WHERE id = ?`, id).Scan(&status, &current); err != nil {
			return nil, err
		}
		if status == model.StatusHeld && current == paymentStatus {
			return affected, nil
		}
		return nil, ErrPaymentClosed
	}
	return affected, nil
}

// ReleaseExpiredHolds cancels every HELD reservation whose hold no
// longer protects its slot: payment still PENDING past hold_expires_at,
// or payment FAILED/EXPIRED.  A pending payment is marked EXPIRED as
// part of the release.  Returns the affected rows for propagation.  The
// select and the update share the predicate inside one transaction, so
// concurrent scheduler workers cannot double-release.
func (r *ReservationRepo) ReleaseExpiredHolds(ctx context.Context, now time.Time) ([]Affected, error) {
	const pred = `r.status = 'HELD'
	    AND ((r.payment_status = 'PENDING' AND r.hold_expires_at <= ?)
	         OR r.payment_status IN ('FAILED','EXPIRED'))`
	const upd = `UPDATE reservations r SET
	        r.status = 'CANCELLED',
	        r.payment_status = IF(r.payment_status = 'PENDING', 'EXPIRED', r.payment_status)
	    WHERE ` + pred
	return r.bulkTransition(ctx, pred, upd, now.UTC())
}

// ActivateStarted moves HELD reservations with a confirmed hold whose
// window has begun into ACTIVE.  An unpaid reservation is never
// activated; if its hold has also expired, ReleaseExpiredHolds cancels
// it instead.
func (r *ReservationRepo) ActivateStarted(ctx context.Context, now time.Time) ([]Affected, error) {
	const pred = `r.status = 'HELD'
	    AND r.payment_status IN ('PAID','PARTIALLY_PAID')
	    AND r.starts_at <= ? AND r.ends_at > ?`
	const upd = `UPDATE reservations r SET r.status = 'ACTIVE' WHERE ` + pred
	return r.bulkTransition(ctx, pred, upd, now.UTC(), now.UTC())
}

// CompleteFinished moves ACTIVE reservations whose window has ended into
// COMPLETED.
func (r *ReservationRepo) CompleteFinished(ctx context.Context, now time.Time) ([]Affected, error) {
	const pred = `r.status = 'ACTIVE' AND r.ends_at <= ?`
	const upd = `UPDATE reservations r SET r.status = 'COMPLETED' WHERE ` + pred
	return r.bulkTransition(ctx, pred, upd, now.UTC())
}

// bulkTransition selects the rows matching pred, applies upd, and
// returns the affected coordinates.  Both statements run in one
// transaction with the same predicate and arguments.
func (r *ReservationRepo) bulkTransition(ctx context.Context, pred, upd string, args ...interface{}) ([]Affected, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sel := `SELECT r.id, r.field_id, f.branch_id, r.user_id, r.booking_date
	        FROM reservations r JOIN fields f ON f.id = r.field_id
	        WHERE ` + pred + ` FOR UPDATE`
	rows, err := tx.QueryContext(ctx, sel, args...)
	if err != nil {
		return nil, err
	}
	affected := make([]Affected, 0)
	for rows.Next() {
		var a Affected
		if scanErr := rows.Scan(&a.ReservationID, &a.FieldID, &a.BranchID, &a.UserID, &a.BookingDate); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		affected = append(affected, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(affected) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return affected, nil
	}
	if _, err := tx.ExecContext(ctx, upd, args...); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return affected, nil
}

func scanReservations(rows *sql.Rows) ([]model.Reservation, error) {
	list := make([]model.Reservation, 0)
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.FieldID, &res.UserID, &res.BookingDate, &res.StartsAt, &res.EndsAt,
			&res.Status, &res.PaymentStatus, &res.HoldExpiresAt, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
