package conventions

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/cashflow-engine/generic"
)

// =============================================================================
// CALENDARS
// =============================================================================

// Calendar decides which days are business days.
type Calendar interface {
	IsBusinessDay(t time.Time) bool
}

const (
	CalendarNone         = "NC"
	CalendarMondayFriday = "MF"
)

type noCalendar struct{}

func (noCalendar) IsBusinessDay(time.Time) bool { return true }

// NoCalendar treats every day as a business day.
var NoCalendar Calendar = noCalendar{}

// MondayToFriday treats weekends as non-business days.
var MondayToFriday Calendar = NewHolidayCalendar(CalendarMondayFriday, nil)

// HolidayCalendar is Monday to Friday minus a set of holidays.
type HolidayCalendar struct {
	Name     string
	holidays map[string]struct{}
}

func NewHolidayCalendar(name string, holidays []time.Time) *HolidayCalendar {
	c := &HolidayCalendar{Name: name, holidays: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		c.holidays[h.Format("2006-01-02")] = struct{}{}
	}
	return c
}

func (c *HolidayCalendar) IsBusinessDay(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	_, holiday := c.holidays[t.Format("2006-01-02")]
	return !holiday
}

// Holidays returns the holiday dates in ascending order.
func (c *HolidayCalendar) Holidays() []time.Time {
	out := make([]time.Time, 0, len(c.holidays))
	for k := range c.holidays {
		t, _ := time.Parse("2006-01-02", k)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// =============================================================================
// REGISTRY - Named calendars
// =============================================================================

// Registry resolves calendar codes. NC and MF are always present; named
// holiday calendars come from configuration or the database.
type Registry struct {
	mu        sync.RWMutex
	calendars map[string]Calendar
}

func NewRegistry() *Registry {
	return &Registry{calendars: map[string]Calendar{
		CalendarNone:         NoCalendar,
		CalendarMondayFriday: MondayToFriday,
	}}
}

// Register adds or replaces a named holiday calendar.
func (r *Registry) Register(name string, holidays []time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calendars[name] = NewHolidayCalendar(name, holidays)
}

// Lookup returns the calendar for a code. An empty code means NC.
func (r *Registry) Lookup(code string) (Calendar, error) {
	if code == "" {
		return NoCalendar, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.calendars[code]
	if !ok {
		return nil, &generic.AttributeError{
			Attribute: generic.AttrCalendar,
			Want:      generic.KindString,
			Reason:    fmt.Sprintf("unknown calendar %q", code),
		}
	}
	return c, nil
}

// Names lists the registered calendar codes.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.calendars))
	for name := range r.calendars {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
