/*
Package conventions provides the concrete day-count, calendar,
business-day and schedule-expansion collaborators the engine consumes
through the interfaces declared in generic/conventions.go.

KEY CONCEPTS:
  - DayCounter: year fraction between two dates (AA, A360, A365, 30E360,
    30E360ISDA, B252)
  - Calendar: which days are business days (NC, MF, named holiday sets)
  - Adjuster: business-day conventions (NOS, SCF, CSMF, ...)
  - Expander: cycle codes such as P3ML1 turned into date sets

All arithmetic is decimal; none of it is floating point.

SEE ALSO:
  - generic/conventions.go: The interfaces implemented here
*/
package conventions

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/cashflow-engine/generic"
)

// =============================================================================
// DAY COUNT CONVENTIONS
// =============================================================================

const (
	DayCountActualActual = "AA"
	DayCountActual360    = "A360"
	DayCountActual365    = "A365"
	DayCount30E360       = "30E360"
	DayCount30E360ISDA   = "30E360ISDA"
	DayCountBusiness252  = "B252"
)

var (
	d360 = decimal.NewFromInt(360)
	d365 = decimal.NewFromInt(365)
	d366 = decimal.NewFromInt(366)
	d252 = decimal.NewFromInt(252)
)

// NewDayCounter returns the day counter for a convention code. B252 counts
// business days of cal; 30E360ISDA needs the maturity date for its
// February rule and accepts a zero one.
func NewDayCounter(code string, cal Calendar, maturity time.Time) (generic.DayCounter, error) {
	switch code {
	case DayCountActualActual:
		return ActualActual{}, nil
	case DayCountActual360:
		return Actual360{}, nil
	case DayCountActual365:
		return Actual365{}, nil
	case DayCount30E360:
		return ThirtyE360{}, nil
	case DayCount30E360ISDA:
		return ThirtyE360ISDA{Maturity: maturity}, nil
	case DayCountBusiness252:
		if cal == nil {
			cal = MondayToFriday
		}
		return Business252{Calendar: cal}, nil
	}
	return nil, &generic.AttributeError{
		Attribute: generic.AttrDayCountConvention,
		Want:      generic.KindString,
		Reason:    fmt.Sprintf("unknown day count convention %q", code),
	}
}

func actualDays(start, end time.Time) decimal.Decimal {
	return decimal.NewFromInt(int64(generic.DaysBetween(start, end)))
}

// Actual360 is ACT/360.
type Actual360 struct{}

func (Actual360) YearFraction(start, end time.Time) decimal.Decimal {
	return actualDays(start, end).Div(d360)
}

// Actual365 is ACT/365 fixed.
type Actual365 struct{}

func (Actual365) YearFraction(start, end time.Time) decimal.Decimal {
	return actualDays(start, end).Div(d365)
}

// ActualActual is ACT/ACT ISDA: the days falling in each calendar year are
// divided by that year's length.
type ActualActual struct{}

func (ActualActual) YearFraction(start, end time.Time) decimal.Decimal {
	if !end.After(start) {
		return generic.Zero
	}
	total := generic.Zero
	cursor := generic.StartOfDay(start)
	last := generic.StartOfDay(end)
	for cursor.Before(last) {
		nextYear := time.Date(cursor.Year()+1, time.January, 1, 0, 0, 0, 0, cursor.Location())
		stop := generic.MinTime(nextYear, last)
		length := d365
		if isLeap(cursor.Year()) {
			length = d366
		}
		total = total.Add(actualDays(cursor, stop).Div(length))
		cursor = stop
	}
	return total
}

func isLeap(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

// ThirtyE360 is the Eurobond basis: day 31 counts as day 30.
type ThirtyE360 struct{}

func (ThirtyE360) YearFraction(start, end time.Time) decimal.Decimal {
	d1, d2 := start.Day(), end.Day()
	if d1 == 31 {
		d1 = 30
	}
	if d2 == 31 {
		d2 = 30
	}
	return thirty360(start, end, d1, d2)
}

// ThirtyE360ISDA additionally treats the last day of February as day 30,
// except when the end date is the maturity date.
type ThirtyE360ISDA struct {
	Maturity time.Time
}

func (c ThirtyE360ISDA) YearFraction(start, end time.Time) decimal.Decimal {
	d1, d2 := start.Day(), end.Day()
	if generic.IsEndOfMonth(start) {
		d1 = 30
	}
	if generic.IsEndOfMonth(end) && !(end.Month() == time.February && end.Equal(c.Maturity)) {
		d2 = 30
	}
	return thirty360(start, end, d1, d2)
}

func thirty360(start, end time.Time, d1, d2 int) decimal.Decimal {
	days := 360*(end.Year()-start.Year()) + 30*(int(end.Month())-int(start.Month())) + (d2 - d1)
	return decimal.NewFromInt(int64(days)).Div(d360)
}

// Business252 counts the business days in [start, end) over 252.
type Business252 struct {
	Calendar Calendar
}

func (c Business252) YearFraction(start, end time.Time) decimal.Decimal {
	n := 0
	for d := generic.StartOfDay(start); d.Before(generic.StartOfDay(end)); d = d.AddDate(0, 0, 1) {
		if c.Calendar.IsBusinessDay(d) {
			n++
		}
	}
	return decimal.NewFromInt(int64(n)).Div(d252)
}
