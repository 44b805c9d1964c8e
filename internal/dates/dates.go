// Package dates holds the date-interval arithmetic the rest of the
// application keys on: half-open intervals, interval coalescing, and
// day-boundary helpers in a configured timezone.
package dates

import (
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds an interval; Start and End are used as given.
func NewInterval(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// Contains reports whether t falls inside the half-open range.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// IsZero reports whether both endpoints are unset.
func (iv Interval) IsZero() bool {
	return iv.Start.IsZero() && iv.End.IsZero()
}

// Merge coalesces intervals into the minimal set of disjoint intervals
// covering the input, returned in ascending order. Touching boundaries
// (a.End == b.Start) count as overlapping and are merged.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := make([]Interval, 0, len(sorted))
	active := sorted[0]

	for _, next := range sorted[1:] {
		if !next.Start.After(active.End) {
			if next.End.After(active.End) {
				active.End = next.End
			}
			continue
		}
		merged = append(merged, active)
		active = next
	}

	return append(merged, active)
}

// DayStart truncates t to the start of its day in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// AddDays shifts t by the given number of calendar days in loc.
// Calendar arithmetic (not 24h multiples) so DST transitions are kept.
func AddDays(t time.Time, days int, loc *time.Location) time.Time {
	return t.In(loc).AddDate(0, 0, days)
}

// StartOfMonth returns the first instant of the Gregorian month
// containing t, in loc.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
}

// MonthInterval returns the half-open interval spanning the Gregorian
// month containing t.
func MonthInterval(t time.Time, loc *time.Location) Interval {
	start := StartOfMonth(t, loc)
	return Interval{Start: start, End: start.AddDate(0, 1, 0)}
}

// DaysInMonth returns the Gregorian day count of the month containing t.
func DaysInMonth(t time.Time, loc *time.Location) int {
	start := StartOfMonth(t, loc)
	return start.AddDate(0, 1, -1).Day()
}

// DayKey formats t as an ISO yyyy-MM-dd key in loc. Keys are Gregorian
// and locale-independent; the solar-term table is addressed with them.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
