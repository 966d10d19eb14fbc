package interval

import (
	"sort"
	"time"
)

// FreeSlots computes the complement of the occupied intervals within the
// operating window.  The result is a sorted, non-overlapping cover of
// exactly the free time inside window.  Occupied intervals may arrive
// unsorted or overlapping each other; the sort plus the max-merge on the
// cursor tolerates both.
func FreeSlots(window Interval, occupied []Interval) []Interval {
	if len(occupied) == 0 {
		return []Interval{window}
	}
	sorted := make([]Interval, len(occupied))
	copy(sorted, occupied)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	free := make([]Interval, 0, len(sorted)+1)
	cursor := window.Start
	for _, occ := range sorted {
		if cursor.Before(occ.Start) {
			end := occ.Start
			if end.After(window.End) {
				end = window.End
			}
			if cursor.Before(end) {
				free = append(free, Interval{Start: cursor, End: end})
			}
		}
		if occ.End.After(cursor) {
			cursor = occ.End
		}
	}
	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}

// HourlySlots returns the 24 contiguous one-hour intervals of the given
// calendar day, [00:00,01:00) through [23:00,24:00), in UTC.  Purely
// derived; used for the per-slot availability overview.
func HourlySlots(date time.Time) []Interval {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	slots := make([]Interval, 0, 24)
	for h := 0; h < 24; h++ {
		start := day.Add(time.Duration(h) * time.Hour)
		slots = append(slots, Interval{Start: start, End: start.Add(time.Hour)})
	}
	return slots
}

// DayWindow builds the operating window of a resource for the given date
// from opening minutes since midnight.  openMin of 0 and closeMin of 1440
// yield the full day [00:00, 24:00).
func DayWindow(date time.Time, openMin, closeMin uint16) Interval {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return Interval{
		Start: day.Add(time.Duration(openMin) * time.Minute),
		End:   day.Add(time.Duration(closeMin) * time.Minute),
	}
}
