package interval

import (
	"testing"
	"time"
)

func at(t *testing.T, hour, min int) time.Time {
	t.Helper()
	return time.Date(2025, 6, 14, hour, min, 0, 0, time.UTC)
}

func iv(t *testing.T, sh, eh int) Interval {
	t.Helper()
	return Interval{Start: at(t, sh, 0), End: at(t, eh, 0)}
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"touching end-to-start does not overlap", iv(t, 8, 10), iv(t, 10, 12), false},
		{"touching start-to-end does not overlap", iv(t, 10, 12), iv(t, 8, 10), false},
		{"partial overlap", iv(t, 8, 10), iv(t, 9, 11), true},
		{"identical intervals overlap", iv(t, 8, 10), iv(t, 8, 10), true},
		{"containment overlaps", iv(t, 8, 12), iv(t, 9, 10), true},
		{"disjoint with gap", iv(t, 8, 9), iv(t, 11, 12), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Overlaps(tc.b); got != tc.want {
				t.Fatalf("Overlaps(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
			// overlap is symmetric
			if got := tc.b.Overlaps(tc.a); got != tc.want {
				t.Fatalf("Overlaps(%v, %v) = %v, want %v (symmetry)", tc.b, tc.a, got, tc.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := iv(t, 8, 10).Validate(); err != nil {
		t.Fatalf("valid interval rejected: %v", err)
	}
	bad := Interval{Start: at(t, 10, 0), End: at(t, 10, 0)}
	if err := bad.Validate(); err != ErrInvalidWindow {
		t.Fatalf("zero-length interval accepted, err=%v", err)
	}
	inverted := Interval{Start: at(t, 12, 0), End: at(t, 10, 0)}
	if _, err := New(inverted.Start, inverted.End); err != ErrInvalidWindow {
		t.Fatalf("inverted interval accepted, err=%v", err)
	}
}

func TestContains(t *testing.T) {
	t.Parallel()

	window := iv(t, 8, 10)
	if !window.Contains(at(t, 8, 0)) {
		t.Fatalf("start instant should be contained")
	}
	if window.Contains(at(t, 10, 0)) {
		t.Fatalf("end instant must be excluded")
	}
	if !window.Contains(at(t, 9, 30)) {
		t.Fatalf("interior instant should be contained")
	}
}
