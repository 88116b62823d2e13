package conventions

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/warp/cashflow-engine/generic"
)

// =============================================================================
// CYCLES - P<n><unit>L<stub>
// =============================================================================

// Stub decides what happens to a final period shorter than the cycle.
type Stub byte

const (
	// ShortStub keeps the last cycle date; the final period is short.
	ShortStub Stub = '0'
	// LongStub drops the last cycle date; the final period is long.
	LongStub Stub = '1'
)

// Cycle is a parsed cycle code such as P3ML1.
type Cycle struct {
	N    int
	Unit byte
	Stub Stub
}

var cyclePattern = regexp.MustCompile(`^P(\d+)([DWMQHY])(?:L([01]))?$`)

// ParseCycle parses a cycle code. The stub suffix defaults to L1.
func ParseCycle(code string) (Cycle, error) {
	m := cyclePattern.FindStringSubmatch(code)
	if m == nil {
		return Cycle{}, &generic.ScheduleError{Cycle: code, Reason: "unparsable cycle"}
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Cycle{}, &generic.ScheduleError{Cycle: code, Reason: err.Error()}
	}
	stub := LongStub
	if m[3] == "0" {
		stub = ShortStub
	}
	return Cycle{N: n, Unit: m[2][0], Stub: stub}, nil
}

func (c Cycle) String() string {
	return fmt.Sprintf("P%d%cL%c", c.N, c.Unit, c.Stub)
}

// MonthBased reports whether the cycle counts in months.
func (c Cycle) MonthBased() bool {
	switch c.Unit {
	case 'M', 'Q', 'H', 'Y':
		return true
	}
	return false
}

// months returns the cycle length in months, or zero for day-based cycles.
func (c Cycle) months() int {
	switch c.Unit {
	case 'M':
		return c.N
	case 'Q':
		return 3 * c.N
	case 'H':
		return 6 * c.N
	case 'Y':
		return 12 * c.N
	}
	return 0
}

func (c Cycle) days() int {
	switch c.Unit {
	case 'D':
		return c.N
	case 'W':
		return 7 * c.N
	}
	return 0
}

// step returns anchor moved by k cycles. Month steps clamp to the month's
// last day instead of overflowing into the next month; with endOfMonth set
// they always land on the last day.
func (c Cycle) step(anchor time.Time, k int, endOfMonth bool) time.Time {
	if !c.MonthBased() {
		return anchor.AddDate(0, 0, k*c.days())
	}
	first := time.Date(anchor.Year(), anchor.Month(), 1, anchor.Hour(), anchor.Minute(), anchor.Second(), 0, anchor.Location())
	target := first.AddDate(0, k*c.months(), 0)
	last := generic.DaysInMonth(target.Year(), target.Month())
	day := anchor.Day()
	if endOfMonth || day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, anchor.Hour(), anchor.Minute(), anchor.Second(), 0, anchor.Location())
}

// =============================================================================
// EXPANDER
// =============================================================================

// maxScheduleDates bounds a single expansion.
const maxScheduleDates = 100_000

// Expander implements generic.ScheduleExpander.
type Expander struct{}

// Expand returns anchor, anchor+cycle, ... strictly before end, then end
// when includeEnd is set. A long stub drops the last cycle date when it
// does not coincide with end.
func (Expander) Expand(anchor, end time.Time, cycle string, eom generic.EndOfMonthConvention, includeEnd bool) ([]time.Time, error) {
	if end.Before(anchor) {
		return nil, &generic.ScheduleError{Anchor: anchor, End: end, Cycle: cycle, Reason: "end before anchor"}
	}
	if cycle == "" {
		dates := []time.Time{anchor}
		if includeEnd && !end.Equal(anchor) {
			dates = append(dates, end)
		}
		return dates, nil
	}

	c, err := ParseCycle(cycle)
	if err != nil {
		return nil, &generic.ScheduleError{Anchor: anchor, End: end, Cycle: cycle, Reason: "unparsable cycle"}
	}
	if c.N == 0 {
		return nil, &generic.ScheduleError{Anchor: anchor, End: end, Cycle: cycle, Reason: "zero-length cycle"}
	}
	endOfMonth := eom == generic.EOMEndOfMonth && c.MonthBased() && generic.IsEndOfMonth(anchor)

	var dates []time.Time
	for k := 0; ; k++ {
		if k >= maxScheduleDates {
			return nil, &generic.ScheduleError{Anchor: anchor, End: end, Cycle: cycle, Reason: "too many dates"}
		}
		d := c.step(anchor, k, endOfMonth)
		if !d.Before(end) {
			break
		}
		dates = append(dates, d)
	}

	if c.Stub == LongStub && len(dates) > 1 {
		if next := c.step(anchor, len(dates), endOfMonth); !next.Equal(end) {
			dates = dates[:len(dates)-1]
		}
	}
	if includeEnd {
		dates = append(dates, end)
	}
	return dates, nil
}

// Advance moves t by n cycles.
func (Expander) Advance(t time.Time, cycle string, n int) (time.Time, error) {
	c, err := ParseCycle(cycle)
	if err != nil {
		return time.Time{}, err
	}
	if c.N == 0 {
		return time.Time{}, &generic.ScheduleError{Anchor: t, Cycle: cycle, Reason: "zero-length cycle"}
	}
	return c.step(t, n, false), nil
}

var _ generic.ScheduleExpander = Expander{}
