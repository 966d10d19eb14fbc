// Package availability implements the reservation guard: the read-side
// decision logic that determines whether a proposed window may be
// accepted and what free slots remain on a field.  The guard is a fast
// path and early-rejection layer only; the store's transactional create
// re-checks the overlap predicate under a lock and is the final arbiter
// of the no-overlap invariant.
package availability

import (
	"context"
	"time"

	"github.com/iliyamo/field-reservation/internal/clock"
	"github.com/iliyamo/field-reservation/internal/interval"
	"github.com/iliyamo/field-reservation/internal/model"
)

// ReservationStore is the slice of the persistent store the guard
// consumes.  Implementations must evaluate the occupancy predicate at
// the supplied instant and surface store failures instead of swallowing
// them.
type ReservationStore interface {
	FindOccupying(ctx context.Context, fieldID uint64, date, now time.Time) ([]model.Reservation, error)
	FindOccupyingByDate(ctx context.Context, date, now time.Time) (map[uint64][]model.Reservation, error)
}

// FieldStore supplies field metadata (operating windows) to the guard.
type FieldStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Field, error)
	ListActive(ctx context.Context) ([]model.Field, error)
}

// Guard answers availability questions for fields.  All methods are
// read-only.
type Guard struct {
	reservations ReservationStore
	fields       FieldStore
	clock        clock.Clock
}

// NewGuard constructs a Guard.  All dependencies must be non-nil.
func NewGuard(reservations ReservationStore, fields FieldStore, clk clock.Clock) *Guard {
	if reservations == nil || fields == nil || clk == nil {
		panic("nil dependency passed to NewGuard")
	}
	return &Guard{reservations: reservations, fields: fields, clock: clk}
}

// FieldAvailability is one row of the all-fields overview: the field,
// the hourly slots still free on the requested date, and whether at
// least one of them remains.
type FieldAvailability struct {
	FieldID   uint64              `json:"field_id"`
	BranchID  uint64              `json:"branch_id"`
	Name      string              `json:"name"`
	Available bool                `json:"available"`
	FreeHours []interval.Interval `json:"free_hours"`
}

// IsAvailable reports whether the proposed window may be accepted on the
// field and date.  A malformed window is rejected with
// interval.ErrInvalidWindow before any store access.  The guard fails
// closed: when the store cannot be reached it returns false together
// with the error, so a reservation is rejected rather than risking a
// double booking.
func (g *Guard) IsAvailable(ctx context.Context, fieldID uint64, date time.Time, window interval.Interval) (bool, error) {
	if err := window.Validate(); err != nil {
		return false, err
	}
	field, err := g.fields.GetByID(ctx, fieldID)
	if err != nil {
		return false, err
	}
	operating := interval.DayWindow(date, field.OpenMin, field.CloseMin)
	if window.Start.Before(operating.Start) || window.End.After(operating.End) {
		return false, nil
	}
	occupying, err := g.reservations.FindOccupying(ctx, fieldID, date, g.clock.Now())
	if err != nil {
		return false, err
	}
	for _, res := range occupying {
		if window.Overlaps(interval.Interval{Start: res.StartsAt, End: res.EndsAt}) {
			return false, nil
		}
	}
	return true, nil
}

// AvailableSlots returns the free intervals within the field's operating
// window on the given date.  Store failures propagate to the caller;
// returning an empty result on error would falsely present the field as
// fully booked or fully free.
func (g *Guard) AvailableSlots(ctx context.Context, fieldID uint64, date time.Time) ([]interval.Interval, error) {
	field, err := g.fields.GetByID(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	occupying, err := g.reservations.FindOccupying(ctx, fieldID, date, g.clock.Now())
	if err != nil {
		return nil, err
	}
	occupied := make([]interval.Interval, 0, len(occupying))
	for _, res := range occupying {
		occupied = append(occupied, interval.Interval{Start: res.StartsAt, End: res.EndsAt})
	}
	operating := interval.DayWindow(date, field.OpenMin, field.CloseMin)
	return interval.FreeSlots(operating, occupied), nil
}

// AllFieldsAvailability computes the hourly availability overview for
// every active field on the given date.  A field is available iff at
// least one hourly slot inside its operating window is free of
// occupying reservations.
func (g *Guard) AllFieldsAvailability(ctx context.Context, date time.Time) ([]FieldAvailability, error) {
	fields, err := g.fields.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	byField, err := g.reservations.FindOccupyingByDate(ctx, date, g.clock.Now())
	if err != nil {
		return nil, err
	}
	hours := interval.HourlySlots(date)
	overview := make([]FieldAvailability, 0, len(fields))
	for _, field := range fields {
		operating := interval.DayWindow(date, field.OpenMin, field.CloseMin)
		free := make([]interval.Interval, 0, len(hours))
	slots:
		for _, slot := range hours {
			if slot.Start.Before(operating.Start) || slot.End.After(operating.End) {
				continue
			}
			for _, res := range byField[field.ID] {
				if slot.Overlaps(interval.Interval{Start: res.StartsAt, End: res.EndsAt}) {
					continue slots
				}
			}
			free = append(free, slot)
		}
		overview = append(overview, FieldAvailability{
			FieldID:   field.ID,
			BranchID:  field.BranchID,
			Name:      field.Name,
			Available: len(free) > 0,
			FreeHours: free,
		})
	}
	return overview, nil
}
