package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/field-reservation/internal/availability"
	"github.com/iliyamo/field-reservation/internal/cache"
	"github.com/iliyamo/field-reservation/internal/clock"
	"github.com/iliyamo/field-reservation/internal/interval"
	"github.com/iliyamo/field-reservation/internal/model"
	"github.com/iliyamo/field-reservation/internal/notifier"
	"github.com/iliyamo/field-reservation/internal/queue"
	"github.com/iliyamo/field-reservation/internal/repository"
)

// ReservationHandler implements the booking trigger points.  Creation
// runs the guard's fast-path check before persisting and relies on the
// repository's transactional backstop for the final no-overlap
// guarantee; every successful mutation is followed by cache
// invalidation and then availability notification, in that order.
type ReservationHandler struct {
	Guard        *availability.Guard
	Reservations *repository.ReservationRepo
	Fields       *repository.FieldRepo
	Invalidator  *cache.Invalidator
	Notifier     *notifier.Notifier
	Clock        clock.Clock
	HoldTTL      time.Duration
}

// NewReservationHandler constructs a ReservationHandler.  All
// dependencies must be non-nil.
func NewReservationHandler(guard *availability.Guard, reservations *repository.ReservationRepo, fields *repository.FieldRepo, inv *cache.Invalidator, ntf *notifier.Notifier, clk clock.Clock, holdTTL time.Duration) *ReservationHandler {
	if guard == nil || reservations == nil || fields == nil || inv == nil || ntf == nil || clk == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	if holdTTL <= 0 {
		holdTTL = 15 * time.Minute
	}
	return &ReservationHandler{
		Guard:        guard,
		Reservations: reservations,
		Fields:       fields,
		Invalidator:  inv,
		Notifier:     ntf,
		Clock:        clk,
		HoldTTL:      holdTTL,
	}
}

// Create handles POST /v1/reservations.  The body specifies the field,
// date and HH:MM window.  On success the reservation is created HELD
// with a PENDING payment hold that expires after HoldTTL.
func (h *ReservationHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		FieldID uint64 `json:"field_id"`
		Date    string `json:"date"`
		Start   string `json:"start"`
		End     string `json:"end"`
	}
	if err := c.Bind(&body); err != nil || body.FieldID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	date, err := parseDate(body.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	start, err := parseClock(date, body.Start)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start must be HH:MM"})
	}
	end, err := parseClock(date, body.End)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end must be HH:MM"})
	}
	window, err := interval.New(start, end)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start must be before end"})
	}

	ctx := c.Request().Context()

	field, err := h.Fields.GetByID(ctx, body.FieldID)
	if err != nil {
		if errors.Is(err, repository.ErrFieldNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "field not found"})
		}
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "could not verify availability"})
	}

	// Fast path: reject early without touching the write path.  A store
	// failure here fails closed, we reject rather than risk a double
	// booking, and the client may retry.
	ok, err := h.Guard.IsAvailable(ctx, body.FieldID, date, window)
	if err != nil {
		if errors.Is(err, repository.ErrFieldNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "field not found"})
		}
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "could not verify availability"})
	}
	if !ok {
		return c.JSON(http.StatusConflict, echo.Map{"error": "slot already taken"})
	}

	now := h.Clock.Now()
	res := &model.Reservation{
		FieldID:       body.FieldID,
		UserID:        userID,
		BookingDate:   date,
		StartsAt:      window.Start,
		EndsAt:        window.End,
		HoldExpiresAt: now.Add(h.HoldTTL),
	}
	// The transactional insert re-checks the overlap under a field lock;
	// it is the real arbiter when two requests race past the guard.
	if err := h.Reservations.CreateHeld(ctx, res, now); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotTaken):
			return c.JSON(http.StatusConflict, echo.Map{"error": "slot already taken"})
		case errors.Is(err, repository.ErrFieldNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "field not found"})
		default:
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "could not create reservation"})
		}
	}

	h.propagate(c, field.BranchID, res.FieldID, userID, date, queue.ReasonCreated)

	return c.JSON(http.StatusCreated, echo.Map{
		"id":              res.ID,
		"field_id":        res.FieldID,
		"date":            date.Format("2006-01-02"),
		"start":           res.StartsAt.Format(time.RFC3339),
		"end":             res.EndsAt.Format(time.RFC3339),
		"status":          res.Status,
		"payment_status":  res.PaymentStatus,
		"hold_expires_at": res.HoldExpiresAt.Format(time.RFC3339),
	})
}

// Cancel handles DELETE /v1/reservations/:id.  Only the owner may
// cancel, and only before the window starts.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	affected, err := h.Reservations.CancelByUser(c.Request().Context(), resID, userID, h.Clock.Now())
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrCancelClosed):
			return c.JSON(http.StatusConflict, echo.Map{"error": "reservation can no longer be cancelled"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel reservation"})
		}
	}

	h.propagate(c, affected.BranchID, affected.FieldID, affected.UserID, affected.BookingDate, queue.ReasonCancelled)
	return c.NoContent(http.StatusNoContent)
}

// Get handles GET /v1/reservations/:id.  Only the owner may view a
// reservation.
func (h *ReservationHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.Reservations.GetByID(c.Request().Context(), resID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservation"})
	}
	if res.UserID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, res)
}

// ConfirmPayment handles POST /v1/reservations/:id/payment.  It is the
// hook the (out-of-scope) payment gateway integration calls to record
// the outcome for a HELD reservation.
func (h *ReservationHandler) ConfirmPayment(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	switch body.Status {
	case model.PaymentPaid, model.PaymentPartiallyPaid, model.PaymentFailed:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be PAID, PARTIALLY_PAID or FAILED"})
	}

	affected, err := h.Reservations.ConfirmPayment(c.Request().Context(), resID, userID, body.Status, h.Clock.Now())
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrPaymentClosed):
			return c.JSON(http.StatusConflict, echo.Map{"error": "payment window closed"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record payment"})
		}
	}

	h.propagate(c, affected.BranchID, affected.FieldID, affected.UserID, affected.BookingDate, queue.ReasonPayment)
	return c.JSON(http.StatusOK, echo.Map{"id": resID, "payment_status": body.Status})
}

// ListMine handles GET /v1/my-reservations.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Reservations.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// propagate invalidates stale projections and then broadcasts fresh
// availability.  Invalidation runs first so no reader can observe a
// stale cached picture after the broadcast; notification failures are
// logged inside the notifier and absorbed.  The request context is
// detached from cancellation: the client may disconnect as soon as the
// commit happened, and a committed mutation must still clear the cache.
func (h *ReservationHandler) propagate(c echo.Context, branchID, fieldID, userID uint64, date time.Time, reason string) {
	ctx := context.WithoutCancel(c.Request().Context())
	h.Invalidator.ReservationChanged(ctx, branchID, fieldID, userID)
	h.Notifier.Publish(ctx, fieldID, branchID, date, reason)
}
