// Package cache implements the read-projection cache and its coherence
// propagator.  Projections are stored in Redis under hierarchical keys
// (prefix → branch → field → projection) so that a mutation can clear
// everything that could be stale with a handful of key patterns instead
// of enumerating every cached query.  Over-invalidation is acceptable;
// under-invalidation is not.
package cache

import (
	"fmt"
	"time"
)

const dateFmt = "2006-01-02"

// AvailabilityKey is the projection key for one field's free slots on a
// date.  It lives under the branch/field subtree so both field- and
// branch-scoped invalidation reach it.
func AvailabilityKey(prefix string, branchID, fieldID uint64, date time.Time) string {
	return fmt.Sprintf("%s:branch:%d:field:%d:avail:%s", prefix, branchID, fieldID, date.UTC().Format(dateFmt))
}

// OverviewKey is the projection key for the all-fields hourly overview of
// a date.  Overviews aggregate every field, so they live under the
// dashboard subtree which every reservation mutation clears.
func OverviewKey(prefix string, date time.Time) string {
	return fmt.Sprintf("%s:dashboard:overview:%s", prefix, date.UTC().Format(dateFmt))
}

// UserReservationsKey is the projection key for a user's reservation list.
func UserReservationsKey(prefix string, userID uint64) string {
	return fmt.Sprintf("%s:user:%d:reservations", prefix, userID)
}

// BranchFieldsKey is the projection key for a branch's field listing.
func BranchFieldsKey(prefix string, branchID uint64) string {
	return fmt.Sprintf("%s:branch:%d:fields", prefix, branchID)
}

// ReservationPatterns returns the key patterns stale after a reservation
// mutation: the field's subtree, the subject's subtree, and every
// dashboard projection derived from reservation counts.
func ReservationPatterns(prefix string, branchID, fieldID, userID uint64) []string {
	return []string{
		fmt.Sprintf("%s:branch:%d:field:%d:*", prefix, branchID, fieldID),
		fmt.Sprintf("%s:user:%d:*", prefix, userID),
		fmt.Sprintf("%s:dashboard:*", prefix),
	}
}

// FieldPatterns returns the key patterns stale after a field mutation.
func FieldPatterns(prefix string, branchID, fieldID uint64) []string {
	return []string{
		fmt.Sprintf("%s:branch:%d:field:%d:*", prefix, branchID, fieldID),
		fmt.Sprintf("%s:branch:%d:fields", prefix, branchID),
		fmt.Sprintf("%s:dashboard:*", prefix),
	}
}

// BranchPatterns returns the key patterns stale after a branch or other
// administrative mutation: the whole branch subtree including every
// field under it.
func BranchPatterns(prefix string, branchID uint64) []string {
	return []string{
		fmt.Sprintf("%s:branch:%d:*", prefix, branchID),
		fmt.Sprintf("%s:dashboard:*", prefix),
	}
}
