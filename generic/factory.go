package generic

import "time"

// =============================================================================
// EVENT FACTORY
// =============================================================================

// Make builds an event whose schedule and event times are both t.
func Make(t time.Time, typ EventType, currency string, b Binding) ContractEvent {
	return ContractEvent{
		ScheduleTime: t,
		EventTime:    t,
		Type:         typ,
		Currency:     currency,
		binding:      b,
		order:        OrderTime(t) + typ.Offset(),
	}
}

// MakeAdjusted builds an event at t whose event time is shifted by the
// adjuster. The schedule time stays t under every convention; calculations
// move it with Environment.CalcTime. A nil adjuster leaves t unshifted.
func MakeAdjusted(t time.Time, typ EventType, currency string, b Binding, adj BusinessDayAdjuster) ContractEvent {
	ev := Make(t, typ, currency, b)
	if adj != nil {
		ev.EventTime = adj.Shift(t)
		ev.order = OrderTime(ev.EventTime) + typ.Offset()
	}
	return ev
}

// MakeSchedule builds one adjusted event per time, all sharing the category,
// currency and binding.
func MakeSchedule(times []time.Time, typ EventType, currency string, b Binding, adj BusinessDayAdjuster) []ContractEvent {
	out := make([]ContractEvent, 0, len(times))
	for _, t := range times {
		out = append(out, MakeAdjusted(t, typ, currency, b, adj))
	}
	return out
}
