package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/field-reservation/internal/clock"
	"github.com/iliyamo/field-reservation/internal/interval"
	"github.com/iliyamo/field-reservation/internal/model"
	"github.com/iliyamo/field-reservation/internal/repository"
)

var errStoreDown = errors.New("store unavailable")

// fakeStore serves reservations from memory, applying the same occupancy
// predicate the SQL layer applies.  When failing is set, every call
// returns errStoreDown.
type fakeStore struct {
	fields       []model.Field
	reservations []model.Reservation
	failing      bool
}

func (f *fakeStore) FindOccupying(_ context.Context, fieldID uint64, date, now time.Time) ([]model.Reservation, error) {
	if f.failing {
		return nil, errStoreDown
	}
	out := make([]model.Reservation, 0)
	for _, r := range f.reservations {
		if r.FieldID == fieldID && sameDay(r.BookingDate, date) && r.Occupies(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) FindOccupyingByDate(_ context.Context, date, now time.Time) (map[uint64][]model.Reservation, error) {
	if f.failing {
		return nil, errStoreDown
	}
	out := make(map[uint64][]model.Reservation)
	for _, r := range f.reservations {
		if sameDay(r.BookingDate, date) && r.Occupies(now) {
			out[r.FieldID] = append(out[r.FieldID], r)
		}
	}
	return out, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uint64) (*model.Field, error) {
	if f.failing {
		return nil, errStoreDown
	}
	for i := range f.fields {
		if f.fields[i].ID == id {
			return &f.fields[i], nil
		}
	}
	return nil, repository.ErrFieldNotFound
}

func (f *fakeStore) ListActive(_ context.Context) ([]model.Field, error) {
	if f.failing {
		return nil, errStoreDown
	}
	return f.fields, nil
}

func sameDay(a, b time.Time) bool {
	return a.UTC().Truncate(24*time.Hour) == b.UTC().Truncate(24*time.Hour)
}

var (
	day = time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	now = day.Add(7 * time.Hour) // 07:00 on the booking day
)

func hour(h int) time.Time { return day.Add(time.Duration(h) * time.Hour) }

func win(sh, eh int) interval.Interval {
	return interval.Interval{Start: hour(sh), End: hour(eh)}
}

func paidRes(fieldID uint64, sh, eh int) model.Reservation {
	return model.Reservation{
		FieldID: fieldID, UserID: 1, BookingDate: day,
		StartsAt: hour(sh), EndsAt: hour(eh),
		Status: model.StatusHeld, PaymentStatus: model.PaymentPaid,
	}
}

func newGuard(store *fakeStore) *Guard {
	return NewGuard(store, store, clock.NewFixed(now))
}

func TestIsAvailable(t *testing.T) {
	t.Parallel()

	field := model.Field{ID: 3, BranchID: 1, Name: "Court A", OpenMin: 0, CloseMin: 1440, IsActive: true}

	t.Run("touching windows do not conflict", func(t *testing.T) {
		store := &fakeStore{fields: []model.Field{field}, reservations: []model.Reservation{paidRes(3, 12, 14)}}
		ok, err := newGuard(store).IsAvailable(context.Background(), 3, day, win(10, 12))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatalf("back-to-back window rejected")
		}
	})

	t.Run("overlapping window rejected", func(t *testing.T) {
		store := &fakeStore{fields: []model.Field{field}, reservations: []model.Reservation{paidRes(3, 12, 14)}}
		ok, err := newGuard(store).IsAvailable(context.Background(), 3, day, win(13, 15))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Fatalf("overlapping window accepted")
		}
	})

	t.Run("expired pending hold no longer blocks", func(t *testing.T) {
		res := paidRes(3, 12, 14)
		res.PaymentStatus = model.PaymentPending
		res.HoldExpiresAt = now.Add(-time.Minute)
		store := &fakeStore{fields: []model.Field{field}, reservations: []model.Reservation{res}}
		ok, err := newGuard(store).IsAvailable(context.Background(), 3, day, win(12, 14))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatalf("expired hold still blocks the slot")
		}
	})

	t.Run("unexpired pending hold blocks", func(t *testing.T) {
		res := paidRes(3, 12, 14)
		res.PaymentStatus = model.PaymentPending
		res.HoldExpiresAt = now.Add(5 * time.Minute)
		store := &fakeStore{fields: []model.Field{field}, reservations: []model.Reservation{res}}
		ok, err := newGuard(store).IsAvailable(context.Background(), 3, day, win(12, 14))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Fatalf("pending unexpired hold did not block the slot")
		}
	})

	t.Run("failed payment stops blocking immediately", func(t *testing.T) {
		res := paidRes(3, 12, 14)
		res.PaymentStatus = model.PaymentFailed
		res.HoldExpiresAt = now.Add(5 * time.Minute)
		store := &fakeStore{fields: []model.Field{field}, reservations: []model.Reservation{res}}
		ok, err := newGuard(store).IsAvailable(context.Background(), 3, day, win(12, 14))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatalf("failed payment still blocks the slot")
		}
	})

	t.Run("malformed window rejected before the store", func(t *testing.T) {
		store := &fakeStore{fields: []model.Field{field}, failing: true}
		ok, err := newGuard(store).IsAvailable(context.Background(), 3, day, win(14, 12))
		if !errors.Is(err, interval.ErrInvalidWindow) {
			t.Fatalf("expected ErrInvalidWindow, got %v", err)
		}
		if ok {
			t.Fatalf("malformed window accepted")
		}
	})

	t.Run("window outside operating hours rejected", func(t *testing.T) {
		short := field
		short.OpenMin, short.CloseMin = 8*60, 22*60
		store := &fakeStore{fields: []model.Field{short}}
		ok, err := newGuard(store).IsAvailable(context.Background(), 3, day, win(6, 8))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Fatalf("window before opening accepted")
		}
	})

	t.Run("fails closed when the store is unreachable", func(t *testing.T) {
		store := &fakeStore{fields: []model.Field{field}, failing: true}
		ok, err := newGuard(store).IsAvailable(context.Background(), 3, day, win(10, 12))
		if !errors.Is(err, errStoreDown) {
			t.Fatalf("expected store error, got %v", err)
		}
		if ok {
			t.Fatalf("guard must fail closed on store errors")
		}
	})
}

func TestAvailableSlots(t *testing.T) {
	t.Parallel()

	field := model.Field{ID: 3, BranchID: 1, Name: "Court A", OpenMin: 0, CloseMin: 1440, IsActive: true}
	store := &fakeStore{
		fields:       []model.Field{field},
		reservations: []model.Reservation{paidRes(3, 10, 12), paidRes(3, 14, 16)},
	}
	slots, err := newGuard(store).AvailableSlots(context.Background(), 3, day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []interval.Interval{win(0, 10), win(12, 14), win(16, 24)}
	if len(slots) != len(want) {
		t.Fatalf("got %v, want %v", slots, want)
	}
	for i := range want {
		if !slots[i].Start.Equal(want[i].Start) || !slots[i].End.Equal(want[i].End) {
			t.Fatalf("slot %d = %v, want %v", i, slots[i], want[i])
		}
	}

	t.Run("store errors propagate", func(t *testing.T) {
		down := &fakeStore{fields: []model.Field{field}, failing: true}
		if _, err := newGuard(down).AvailableSlots(context.Background(), 3, day); !errors.Is(err, errStoreDown) {
			t.Fatalf("expected store error, got %v", err)
		}
	})
}

func TestAllFieldsAvailability(t *testing.T) {
	t.Parallel()

	open := model.Field{ID: 1, BranchID: 1, Name: "Court A", OpenMin: 0, CloseMin: 1440, IsActive: true}
	packed := model.Field{ID: 2, BranchID: 1, Name: "Court B", OpenMin: 10 * 60, CloseMin: 12 * 60, IsActive: true}
	store := &fakeStore{
		fields:       []model.Field{open, packed},
		reservations: []model.Reservation{paidRes(2, 10, 12), paidRes(1, 8, 9)},
	}
	overview, err := newGuard(store).AllFieldsAvailability(context.Background(), day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overview) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(overview))
	}
	if !overview[0].Available || len(overview[0].FreeHours) != 23 {
		t.Fatalf("court A: available=%v free=%d, want available with 23 free hours",
			overview[0].Available, len(overview[0].FreeHours))
	}
	if overview[1].Available || len(overview[1].FreeHours) != 0 {
		t.Fatalf("court B: available=%v free=%d, want fully booked",
			overview[1].Available, len(overview[1].FreeHours))
	}
}
