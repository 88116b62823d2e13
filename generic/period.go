package generic

import "time"

// =============================================================================
// PERIOD - A closed time window used by output filters
// =============================================================================

// Period is the closed window [Start, End]. A zero Start or End leaves that
// side open.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if t is within the window.
func (p Period) Contains(t time.Time) bool {
	if !p.Start.IsZero() && t.Before(p.Start) {
		return false
	}
	if !p.End.IsZero() && t.After(p.End) {
		return false
	}
	return true
}

// Validate rejects a window whose end is before its start.
func (p Period) Validate() error {
	if !p.Start.IsZero() && !p.End.IsZero() && p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// String returns a string representation of the period.
func (p Period) String() string {
	format := func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02T15:04:05")
	}
	return "[" + format(p.Start) + ", " + format(p.End) + "]"
}
