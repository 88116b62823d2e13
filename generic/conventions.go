package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONVENTION BOUNDARIES - Implemented by the conventions package
// =============================================================================

// DayCounter computes the year fraction between two dates.
type DayCounter interface {
	YearFraction(start, end time.Time) decimal.Decimal
}

// BusinessDayAdjuster shifts schedule dates onto business days.
type BusinessDayAdjuster interface {
	// Shift returns the event time of a schedule date.
	Shift(t time.Time) time.Time
	// ShiftCalc returns the time used in calculations. Shift-calculate
	// conventions return the shifted date; calculate-shift conventions
	// return t unchanged.
	ShiftCalc(t time.Time) time.Time
}

// EndOfMonthConvention decides whether month-based cycles stick to month ends.
type EndOfMonthConvention string

const (
	EOMSameDay    EndOfMonthConvention = "SD"
	EOMEndOfMonth EndOfMonthConvention = "EOM"
)

// ScheduleExpander turns an (anchor, cycle, end) triple into dates.
type ScheduleExpander interface {
	// Expand returns the anchor and every cycle date strictly before end,
	// plus end itself when includeEnd is set. An empty cycle yields the
	// anchor alone (and end when included).
	Expand(anchor, end time.Time, cycle string, eom EndOfMonthConvention, includeEnd bool) ([]time.Time, error)
	// Advance moves t by n cycles.
	Advance(t time.Time, cycle string, n int) (time.Time, error)
}
