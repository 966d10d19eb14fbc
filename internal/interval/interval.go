// Package interval implements the half-open time interval model used for
// reservation conflict detection and availability computation.  Every
// reservation window in the system is a `[start, end)` interval: the end
// instant is excluded, so a booking ending at 10:00 never conflicts with
// one starting at 10:00.  The package is pure and performs no I/O.
package interval

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned when an interval does not satisfy
// start < end.  Callers should reject such windows before they reach
// the store.
var ErrInvalidWindow = errors.New("invalid window: start must be before end")

// Interval is a half-open time range [Start, End).  Start and End are
// expected to be UTC; the zero value is not a valid interval.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// New builds an Interval after validating that start precedes end.
func New(start, end time.Time) (Interval, error) {
	iv := Interval{Start: start.UTC(), End: end.UTC()}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// Validate reports whether the interval is well-formed.  An interval with
// start >= end (including zero-length) is rejected with ErrInvalidWindow.
func (iv Interval) Validate() error {
	if !iv.Start.Before(iv.End) {
		return ErrInvalidWindow
	}
	return nil
}

// Overlaps reports whether two half-open intervals share any instant.
// Touching intervals (a.End == b.Start or b.End == a.Start) do NOT
// overlap; this is what makes back-to-back bookings possible and it is
// the single most important rule in the engine.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && iv.End.After(other.Start)
}

// Contains reports whether t falls inside the interval, honoring the
// exclusive end.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration { return iv.End.Sub(iv.Start) }

// String renders the interval as "[15:04, 15:04)" on the interval's day.
// Used in logs and broker payloads only.
func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s)", iv.Start.UTC().Format("15:04"), iv.End.UTC().Format("15:04"))
}
