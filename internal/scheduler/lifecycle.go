package scheduler

import (
	"context"
	"time"

	"github.com/iliyamo/field-reservation/internal/clock"
	"github.com/iliyamo/field-reservation/internal/queue"
	"github.com/iliyamo/field-reservation/internal/repository"
)

// LifecycleStore is the slice of the persistent store the lifecycle
// tasks consume.  Each method is a predicate-scoped bulk transition that
// returns the rows it actually changed.
type LifecycleStore interface {
	ReleaseExpiredHolds(ctx context.Context, now time.Time) ([]repository.Affected, error)
	ActivateStarted(ctx context.Context, now time.Time) ([]repository.Affected, error)
	CompleteFinished(ctx context.Context, now time.Time) ([]repository.Affected, error)
}

// Propagator invalidates cached projections after a mutation.
type Propagator interface {
	ReservationChanged(ctx context.Context, branchID, fieldID, userID uint64)
}

// Broadcaster pushes recomputed availability to subscribers.
type Broadcaster interface {
	Publish(ctx context.Context, fieldID, branchID uint64, date time.Time, reason string)
}

// Lifecycle wires the three reconciliation tasks to the store and the
// propagation path.  Each task transitions rows in bulk, then
// invalidates and notifies per affected reservation; propagation
// failures are non-fatal because the next pass re-derives the same state
// and publishes again.
type Lifecycle struct {
	store       LifecycleStore
	clock       clock.Clock
	invalidator Propagator
	notifier    Broadcaster
}

// NewLifecycle constructs the lifecycle task set.  Store and clock must
// be non-nil; invalidator and notifier may be nil in tests.
func NewLifecycle(store LifecycleStore, clk clock.Clock, inv Propagator, bcast Broadcaster) *Lifecycle {
	if store == nil || clk == nil {
		panic("nil store or clock passed to NewLifecycle")
	}
	return &Lifecycle{store: store, clock: clk, invalidator: inv, notifier: bcast}
}

// RegisterAll registers the three lifecycle tasks on the runner with the
// given interval.  Release runs before activate in registration order,
// but no ordering between tasks is required for correctness: release
// only touches unpaid expired holds, which activation never matches.
func (l *Lifecycle) RegisterAll(r *Runner, interval time.Duration) {
	r.Register("release-expired-holds", interval, l.ReleaseExpiredHolds)
	r.Register("activate-started-reservations", interval, l.ActivateStarted)
	r.Register("complete-finished-reservations", interval, l.CompleteFinished)
}

// ReleaseExpiredHolds cancels HELD reservations whose payment hold no
// longer protects their slot, freeing the window for other users.
func (l *Lifecycle) ReleaseExpiredHolds(ctx context.Context) error {
	affected, err := l.store.ReleaseExpiredHolds(ctx, l.clock.Now())
	if err != nil {
		return err
	}
	l.propagate(ctx, affected, queue.ReasonReleased)
	return nil
}

// ActivateStarted moves confirmed reservations whose window has begun
// into ACTIVE.
func (l *Lifecycle) ActivateStarted(ctx context.Context) error {
	affected, err := l.store.ActivateStarted(ctx, l.clock.Now())
	if err != nil {
		return err
	}
	l.propagate(ctx, affected, queue.ReasonActivated)
	return nil
}

// CompleteFinished moves ACTIVE reservations whose window has ended into
// COMPLETED.
func (l *Lifecycle) CompleteFinished(ctx context.Context) error {
	affected, err := l.store.CompleteFinished(ctx, l.clock.Now())
	if err != nil {
		return err
	}
	l.propagate(ctx, affected, queue.ReasonCompleted)
	return nil
}

// propagate invalidates projections for every affected reservation and
// publishes fresh availability once per touched field and date.
func (l *Lifecycle) propagate(ctx context.Context, affected []repository.Affected, reason string) {
	if len(affected) == 0 {
		return
	}
	type fieldDate struct {
		fieldID uint64
		date    string
	}
	published := make(map[fieldDate]bool, len(affected))
	for _, a := range affected {
		if l.invalidator != nil {
			l.invalidator.ReservationChanged(ctx, a.BranchID, a.FieldID, a.UserID)
		}
		key := fieldDate{a.FieldID, a.BookingDate.UTC().Format("2006-01-02")}
		if l.notifier != nil && !published[key] {
			published[key] = true
			l.notifier.Publish(ctx, a.FieldID, a.BranchID, a.BookingDate, reason)
		}
	}
}
