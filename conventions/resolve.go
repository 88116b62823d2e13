package conventions

import (
	"time"

	"github.com/warp/cashflow-engine/generic"
)

// Defaults applied when terms leave a convention unset.
const (
	DefaultDayCount    = DayCountActual365
	DefaultBusinessDay = string(NoShift)
	DefaultCalendar    = CalendarNone
)

// Resolve builds the day counter, adjuster and schedule expander declared
// by a contract's terms.
func Resolve(terms *generic.Terms, calendars *Registry) (generic.DayCounter, generic.BusinessDayAdjuster, generic.ScheduleExpander, error) {
	if calendars == nil {
		calendars = NewRegistry()
	}

	calCode, err := terms.StringOr(generic.AttrCalendar, DefaultCalendar)
	if err != nil {
		return nil, nil, nil, err
	}
	cal, err := calendars.Lookup(calCode)
	if err != nil {
		return nil, nil, nil, err
	}

	bdc, err := terms.StringOr(generic.AttrBusinessDayConvention, DefaultBusinessDay)
	if err != nil {
		return nil, nil, nil, err
	}
	adj, err := NewAdjuster(bdc, cal)
	if err != nil {
		return nil, nil, nil, err
	}

	dcc, err := terms.StringOr(generic.AttrDayCountConvention, DefaultDayCount)
	if err != nil {
		return nil, nil, nil, err
	}
	maturity, err := terms.OptDate(generic.AttrMaturityDate)
	if err != nil {
		return nil, nil, nil, err
	}
	dc, err := NewDayCounter(dcc, cal, maturity.OrElse(time.Time{}))
	if err != nil {
		return nil, nil, nil, err
	}

	return dc, adj, Expander{}, nil
}
