package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/iliyamo/field-reservation/internal/model"
	"github.com/iliyamo/field-reservation/internal/repository"
)

// fakeLifecycleStore applies the same transition predicates as the SQL
// layer against an in-memory row set.
type fakeLifecycleStore struct {
	rows []model.Reservation
}

func (f *fakeLifecycleStore) affectedFor(r model.Reservation) repository.Affected {
	return repository.Affected{
		ReservationID: r.ID, FieldID: r.FieldID, BranchID: 1,
		UserID: r.UserID, BookingDate: r.BookingDate,
	}
}

func (f *fakeLifecycleStore) ReleaseExpiredHolds(_ context.Context, now time.Time) ([]repository.Affected, error) {
	out := make([]repository.Affected, 0)
	for i, r := range f.rows {
		expiredPending := r.PaymentStatus == model.PaymentPending && !r.HoldExpiresAt.After(now)
		dead := r.PaymentStatus == model.PaymentFailed || r.PaymentStatus == model.PaymentExpired
		if r.Status == model.StatusHeld && (expiredPending || dead) {
			f.rows[i].Status = model.StatusCancelled
			if r.PaymentStatus == model.PaymentPending {
				f.rows[i].PaymentStatus = model.PaymentExpired
			}
			out = append(out, f.affectedFor(f.rows[i]))
		}
	}
	return out, nil
}

func (f *fakeLifecycleStore) ActivateStarted(_ context.Context, now time.Time) ([]repository.Affected, error) {
	out := make([]repository.Affected, 0)
	for i, r := range f.rows {
		confirmed := r.PaymentStatus == model.PaymentPaid || r.PaymentStatus == model.PaymentPartiallyPaid
		if r.Status == model.StatusHeld && confirmed && !r.StartsAt.After(now) && r.EndsAt.After(now) {
			f.rows[i].Status = model.StatusActive
			out = append(out, f.affectedFor(f.rows[i]))
		}
	}
	return out, nil
}

func (f *fakeLifecycleStore) CompleteFinished(_ context.Context, now time.Time) ([]repository.Affected, error) {
	out := make([]repository.Affected, 0)
	for i, r := range f.rows {
		if r.Status == model.StatusActive && !r.EndsAt.After(now) {
			f.rows[i].Status = model.StatusCompleted
			out = append(out, f.affectedFor(f.rows[i]))
		}
	}
	return out, nil
}

// testClock is a mutable clock so a single Lifecycle can be stepped
// through simulated time.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

type countingPropagation struct {
	invalidated int
	published   int
}

func (c *countingPropagation) ReservationChanged(_ context.Context, _, _, _ uint64) { c.invalidated++ }
func (c *countingPropagation) Publish(_ context.Context, _, _ uint64, _ time.Time, _ string) {
	c.published++
}

var day = time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)

func res(id uint64, status, payment string, start, end, holdExpiry time.Time) model.Reservation {
	return model.Reservation{
		ID: id, FieldID: 3, UserID: 7, BookingDate: day,
		StartsAt: start, EndsAt: end,
		Status: status, PaymentStatus: payment, HoldExpiresAt: holdExpiry,
	}
}

func TestReleaseExpiredHolds(t *testing.T) {
	t.Parallel()

	now := day.Add(10 * time.Hour)
	clk := &testClock{now: now}
	store := &fakeLifecycleStore{rows: []model.Reservation{
		// pending, hold expired 6 minutes ago -> released
		res(1, model.StatusHeld, model.PaymentPending, day.Add(12*time.Hour), day.Add(13*time.Hour), now.Add(-6*time.Minute)),
		// pending, hold still live -> untouched
		res(2, model.StatusHeld, model.PaymentPending, day.Add(12*time.Hour), day.Add(13*time.Hour), now.Add(4*time.Minute)),
		// paid -> never released
		res(3, model.StatusHeld, model.PaymentPaid, day.Add(12*time.Hour), day.Add(13*time.Hour), now.Add(-time.Hour)),
		// failed before expiry -> released immediately
		res(4, model.StatusHeld, model.PaymentFailed, day.Add(12*time.Hour), day.Add(13*time.Hour), now.Add(time.Hour)),
	}}
	prop := &countingPropagation{}
	lc := NewLifecycle(store, clk, prop, prop)

	if err := lc.ReleaseExpiredHolds(context.Background()); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if store.rows[0].Status != model.StatusCancelled || store.rows[0].PaymentStatus != model.PaymentExpired {
		t.Fatalf("expired pending hold not released: %+v", store.rows[0])
	}
	if store.rows[1].Status != model.StatusHeld {
		t.Fatalf("live hold was released: %+v", store.rows[1])
	}
	if store.rows[2].Status != model.StatusHeld {
		t.Fatalf("paid reservation was released: %+v", store.rows[2])
	}
	if store.rows[3].Status != model.StatusCancelled {
		t.Fatalf("failed payment not released immediately: %+v", store.rows[3])
	}
	if prop.invalidated != 2 {
		t.Fatalf("expected 2 invalidations, got %d", prop.invalidated)
	}
	// both released rows share field+date, so availability publishes once
	if prop.published != 1 {
		t.Fatalf("expected 1 publish, got %d", prop.published)
	}

	// released reservations no longer occupy their slot
	if store.rows[0].Occupies(clk.Now()) {
		t.Fatalf("cancelled reservation still occupies its slot")
	}
}

func TestReleaseTakesPrecedenceOverActivation(t *testing.T) {
	t.Parallel()

	// Payment still pending past both hold expiry and start time: the
	// reservation must end up CANCELLED, never ACTIVE, regardless of
	// which task runs first.
	for _, order := range []string{"activate-first", "release-first"} {
		t.Run(order, func(t *testing.T) {
			now := day.Add(10 * time.Hour)
			clk := &testClock{now: now}
			store := &fakeLifecycleStore{rows: []model.Reservation{
				res(1, model.StatusHeld, model.PaymentPending, now.Add(-5*time.Minute), now.Add(55*time.Minute), now.Add(-time.Minute)),
			}}
			lc := NewLifecycle(store, clk, nil, nil)
			ctx := context.Background()

			if order == "activate-first" {
				_ = lc.ActivateStarted(ctx)
				_ = lc.ReleaseExpiredHolds(ctx)
			} else {
				_ = lc.ReleaseExpiredHolds(ctx)
				_ = lc.ActivateStarted(ctx)
			}
			if store.rows[0].Status != model.StatusCancelled {
				t.Fatalf("unpaid started reservation ended as %s, want CANCELLED", store.rows[0].Status)
			}
		})
	}
}

func TestActivateAndCompleteFlow(t *testing.T) {
	t.Parallel()

	// Paid reservation with starts_at = now-1m, ends_at = now+59m.
	now := day.Add(10 * time.Hour)
	clk := &testClock{now: now}
	store := &fakeLifecycleStore{rows: []model.Reservation{
		res(1, model.StatusHeld, model.PaymentPaid, now.Add(-time.Minute), now.Add(59*time.Minute), now.Add(-30*time.Minute)),
	}}
	lc := NewLifecycle(store, clk, nil, nil)
	ctx := context.Background()

	if err := lc.ActivateStarted(ctx); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if store.rows[0].Status != model.StatusActive {
		t.Fatalf("started paid reservation not activated: %s", store.rows[0].Status)
	}

	// Completion does not fire while the window is still open.
	if err := lc.CompleteFinished(ctx); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if store.rows[0].Status != model.StatusActive {
		t.Fatalf("reservation completed before its window ended")
	}

	// One hour later the window has ended.
	clk.now = now.Add(time.Hour)
	if err := lc.CompleteFinished(ctx); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if store.rows[0].Status != model.StatusCompleted {
		t.Fatalf("finished reservation not completed: %s", store.rows[0].Status)
	}
}

func TestLifecycleTasksAreIdempotent(t *testing.T) {
	t.Parallel()

	now := day.Add(10 * time.Hour)
	clk := &testClock{now: now}
	store := &fakeLifecycleStore{rows: []model.Reservation{
		res(1, model.StatusHeld, model.PaymentPending, day.Add(12*time.Hour), day.Add(13*time.Hour), now.Add(-time.Minute)),
		res(2, model.StatusHeld, model.PaymentPaid, now.Add(-time.Minute), now.Add(time.Hour), now),
		res(3, model.StatusActive, model.PaymentPaid, now.Add(-2*time.Hour), now.Add(-time.Hour), now),
	}}
	prop := &countingPropagation{}
	lc := NewLifecycle(store, clk, prop, prop)
	ctx := context.Background()

	runAll := func() {
		if err := lc.ReleaseExpiredHolds(ctx); err != nil {
			t.Fatalf("release: %v", err)
		}
		if err := lc.ActivateStarted(ctx); err != nil {
			t.Fatalf("activate: %v", err)
		}
		if err := lc.CompleteFinished(ctx); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}

	runAll()
	snapshot := make([]model.Reservation, len(store.rows))
	copy(snapshot, store.rows)
	firstPublishes := prop.published

	// A second pass over the same store state must change nothing and
	// publish nothing.
	runAll()
	for i := range snapshot {
		if store.rows[i].Status != snapshot[i].Status || store.rows[i].PaymentStatus != snapshot[i].PaymentStatus {
			t.Fatalf("row %d changed on re-run: %+v -> %+v", i, snapshot[i], store.rows[i])
		}
	}
	if prop.published != firstPublishes {
		t.Fatalf("re-run published %d extra notifications", prop.published-firstPublishes)
	}
}
