// Package dates holds the civil-date conventions shared by the enrichment
// engines. A "day" is a time.Time pinned to midnight UTC: the pipeline joins
// everything on calendar dates, never instants, so the UTC-midnight form acts
// as a timezone-naive date key that is safe to use in maps.
package dates

import "time"

// Day normalizes t to its calendar date, dropping clock time and zone.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayIn normalizes t to its calendar date as observed in loc.
func DayIn(t time.Time, loc *time.Location) time.Time {
	return Day(t.In(loc))
}

// AddDays returns the day n calendar days after d.
func AddDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

// DaysBetween returns b-a in whole calendar days. Both arguments must be
// normalized days.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// Range returns every day from start through end inclusive. An inverted range
// yields nil.
func Range(start, end time.Time) []time.Time {
	if end.Before(start) {
		return nil
	}
	n := DaysBetween(start, end) + 1
	out := make([]time.Time, 0, n)
	for d := start; !d.After(end); d = AddDays(d, 1) {
		out = append(out, d)
	}
	return out
}

// Span returns the min and max of a set of days, skipping zero values.
// ok is false when the set contains no usable day.
func Span(days []time.Time) (min, max time.Time, ok bool) {
	for _, d := range days {
		if d.IsZero() {
			continue
		}
		if !ok || d.Before(min) {
			min = d
		}
		if !ok || d.After(max) {
			max = d
		}
		ok = true
	}
	return min, max, ok
}

// DaysInMonth returns the number of days in the month containing d.
func DaysInMonth(d time.Time) int {
	return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MondayWeekday returns the Monday-based weekday index (Mon=0 .. Sun=6).
func MondayWeekday(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}
