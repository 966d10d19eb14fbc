package cache

import (
	"path"
	"testing"
	"time"
)

var testDate = time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)

func TestProjectionKeysLiveUnderInvalidationScopes(t *testing.T) {
	t.Parallel()

	const prefix = "cache"
	keys := []string{
		AvailabilityKey(prefix, 1, 3, testDate),
		OverviewKey(prefix, testDate),
		UserReservationsKey(prefix, 7),
	}
	patterns := ReservationPatterns(prefix, 1, 3, 7)

	// Every projection a reservation mutation can stale must be covered
	// by at least one of the reservation-scope patterns.
	for _, key := range keys {
		covered := false
		for _, pattern := range patterns {
			ok, err := path.Match(pattern, key)
			if err != nil {
				t.Fatalf("bad pattern %q: %v", pattern, err)
			}
			if ok {
				covered = true
				break
			}
		}
		if !covered {
			t.Fatalf("key %q not covered by any reservation pattern %v", key, patterns)
		}
	}
}

func TestBranchPatternsCoverFieldSubtree(t *testing.T) {
	t.Parallel()

	const prefix = "cache"
	key := AvailabilityKey(prefix, 4, 9, testDate)
	for _, pattern := range BranchPatterns(prefix, 4) {
		if ok, _ := path.Match(pattern, key); ok {
			return
		}
	}
	t.Fatalf("branch scope does not cover field projection %q", key)
}

func TestScopesDoNotCrossBranches(t *testing.T) {
	t.Parallel()

	const prefix = "cache"
	other := AvailabilityKey(prefix, 2, 5, testDate)
	for _, pattern := range FieldPatterns(prefix, 1, 3) {
		if pattern == prefix+":dashboard:*" {
			continue
		}
		if ok, _ := path.Match(pattern, other); ok {
			t.Fatalf("field scope for branch 1 clears branch 2 projection %q via %q", other, pattern)
		}
	}
}
