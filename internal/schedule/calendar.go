// Package schedule computes when recurring obligations and card invoices
// fall due, how urgent they are, and how a financed purchase amortizes
// into an exact-sum installment plan. Every function is pure: the
// reference date always arrives as a parameter.
package schedule

import "time"

// lastDayOfMonth returns the number of days in the given month.
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// clampedDate builds a date in the given month with the day clamped to
// the month's length. A bill due on the 31st lands on Feb 28/29, never
// in March.
func clampedDate(year int, month time.Month, day int) time.Time {
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// midnightUTC truncates a timestamp to its calendar day.
func midnightUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextOccurrence returns the soonest date on or after reference whose
// day of month equals dayOfMonth, checking the reference month first and
// then the following month. Callers are responsible for passing a day
// in 1..31.
func NextOccurrence(dayOfMonth int, reference time.Time) time.Time {
	ref := midnightUTC(reference)

	candidate := clampedDate(ref.Year(), ref.Month(), dayOfMonth)
	if !candidate.Before(ref) {
		return candidate
	}

	// time.Date normalizes month 13 into January of the next year.
	next := time.Date(ref.Year(), ref.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return clampedDate(next.Year(), next.Month(), dayOfMonth)
}

// AddMonthsClamped advances t by the given number of calendar months,
// clamping the day to the target month's length. Unlike AddDate this
// never drifts into the following month: Jan 31 + 1 month is Feb 28/29.
func AddMonthsClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	return clampedDate(first.Year(), first.Month(), t.Day())
}

// DaysBetween returns the number of whole calendar days from one date to
// another, negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	return int(midnightUTC(to).Sub(midnightUTC(from)).Hours() / 24)
}
