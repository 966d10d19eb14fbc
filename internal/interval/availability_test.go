package interval

import (
	"testing"
	"time"
)

func TestFreeSlots(t *testing.T) {
	t.Parallel()

	fullDay := iv(t, 0, 24)

	t.Run("empty occupied returns operating window", func(t *testing.T) {
		got := FreeSlots(fullDay, nil)
		if len(got) != 1 || got[0] != fullDay {
			t.Fatalf("FreeSlots(window, nil) = %v, want [%v]", got, fullDay)
		}
	})

	t.Run("two occupied blocks split the day in three", func(t *testing.T) {
		occupied := []Interval{iv(t, 10, 12), iv(t, 14, 16)}
		want := []Interval{iv(t, 0, 10), iv(t, 12, 14), iv(t, 16, 24)}
		got := FreeSlots(fullDay, occupied)
		assertIntervals(t, got, want)
	})

	t.Run("unsorted and overlapping occupied input is merged", func(t *testing.T) {
		occupied := []Interval{iv(t, 14, 16), iv(t, 10, 12), iv(t, 11, 15)}
		want := []Interval{iv(t, 0, 10), iv(t, 16, 24)}
		got := FreeSlots(fullDay, occupied)
		assertIntervals(t, got, want)
	})

	t.Run("occupied flush with window edges", func(t *testing.T) {
		window := iv(t, 8, 22)
		occupied := []Interval{iv(t, 8, 10), iv(t, 20, 22)}
		want := []Interval{iv(t, 10, 20)}
		got := FreeSlots(window, occupied)
		assertIntervals(t, got, want)
	})

	t.Run("fully occupied window yields no free slots", func(t *testing.T) {
		window := iv(t, 8, 12)
		got := FreeSlots(window, []Interval{iv(t, 7, 13)})
		if len(got) != 0 {
			t.Fatalf("expected no free slots, got %v", got)
		}
	})
}

// TestFreeSlotsCover checks that the free slots plus the occupied set
// reconstruct the operating window exactly: sorted, gap-free, and with no
// overlap among the returned free slots.
func TestFreeSlotsCover(t *testing.T) {
	t.Parallel()

	window := iv(t, 6, 23)
	occupied := []Interval{iv(t, 9, 11), iv(t, 7, 8), iv(t, 11, 13), iv(t, 20, 21)}
	free := FreeSlots(window, occupied)

	for i, f := range free {
		if err := f.Validate(); err != nil {
			t.Fatalf("free slot %d invalid: %v", i, err)
		}
		for _, occ := range occupied {
			if f.Overlaps(occ) {
				t.Fatalf("free slot %v overlaps occupied %v", f, occ)
			}
		}
		if i > 0 && free[i-1].End.After(f.Start) {
			t.Fatalf("free slots out of order or overlapping: %v then %v", free[i-1], f)
		}
	}

	// Sum of free durations plus merged occupied coverage must equal the window.
	covered := time.Duration(0)
	for _, f := range free {
		covered += f.Duration()
	}
	for _, g := range FreeSlots(window, free) { // complement of the complement = merged occupied
		covered += g.Duration()
	}
	if covered != window.Duration() {
		t.Fatalf("cover mismatch: free+occupied = %v, window = %v", covered, window.Duration())
	}
}

func TestHourlySlots(t *testing.T) {
	t.Parallel()

	date := time.Date(2025, 6, 14, 15, 42, 7, 0, time.UTC) // time-of-day is ignored
	slots := HourlySlots(date)
	if len(slots) != 24 {
		t.Fatalf("expected 24 slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("first slot starts at %v", slots[0].Start)
	}
	for i, s := range slots {
		if s.Duration() != time.Hour {
			t.Fatalf("slot %d has duration %v", i, s.Duration())
		}
		if i > 0 && !slots[i-1].End.Equal(s.Start) {
			t.Fatalf("slot %d is not contiguous with its predecessor", i)
		}
	}
	if !slots[23].End.Equal(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("last slot ends at %v", slots[23].End)
	}
}

func TestDayWindow(t *testing.T) {
	t.Parallel()

	date := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	full := DayWindow(date, 0, 1440)
	if full.Duration() != 24*time.Hour {
		t.Fatalf("full-day window duration = %v", full.Duration())
	}
	partial := DayWindow(date, 8*60, 22*60)
	if !partial.Start.Equal(at(t, 8, 0)) || !partial.End.Equal(at(t, 22, 0)) {
		t.Fatalf("partial window = %v", partial)
	}
}

func assertIntervals(t *testing.T, got, want []Interval) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d intervals %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if !got[i].Start.Equal(want[i].Start) || !got[i].End.Equal(want[i].End) {
			t.Fatalf("interval %d = %v, want %v", i, got[i], want[i])
		}
	}
}
