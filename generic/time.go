package generic

import (
	"time"
)

// =============================================================================
// TIME ENCODING - Event times as monotonic integers
// =============================================================================

// SecondsPerDay is the smallest gap between two calendar days in the order
// encoding. Every sequence offset stays below it.
const SecondsPerDay int64 = 86400

// OrderTime encodes a time as epoch seconds. Sub-second precision is
// dropped; contract schedules are at most second-granular.
func OrderTime(t time.Time) int64 {
	return t.Unix()
}

// Constructors
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func DateTime(year int, month time.Month, day, hour, minute, second int) time.Time {
	return time.Date(year, month, day, hour, minute, second, 0, time.UTC)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func DaysBetween(from, to time.Time) int {
	return int(StartOfDay(to).Sub(StartOfDay(from)).Hours() / 24)
}

func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func EndOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), DaysInMonth(t.Year(), t.Month()), t.Hour(), t.Minute(), t.Second(), 0, t.Location())
}

func IsEndOfMonth(t time.Time) bool {
	return t.Day() == DaysInMonth(t.Year(), t.Month())
}

func MaxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func MinTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// Latest returns the latest of the given times, or the zero time.
func Latest(times ...time.Time) time.Time {
	var out time.Time
	for i, t := range times {
		if i == 0 || t.After(out) {
			out = t
		}
	}
	return out
}
