package generic

import "time"

// =============================================================================
// OUTPUT FILTERS - Applied to a fully evaluated timeline
// =============================================================================
//
// Filters only discard events from the result. Every event before a window
// or reference time has already been evaluated, so the state carried by the
// first returned event is the same as in the full timeline.

// Filter combines the output variants. The zero Filter keeps everything.
type Filter struct {
	// NonContingentPrefix keeps only the events before the first contingent
	// event.
	NonContingentPrefix bool
	// PayoffOnly keeps cash-flow categories.
	PayoffOnly bool
	// Types keeps the listed categories when non-empty.
	Types []EventType
	// Window keeps events whose event time lies in the window.
	Window Period
	// From and Limit keep the first Limit events at or after From. A zero
	// Limit means no bound.
	From  time.Time
	Limit int
}

// Apply returns the events that pass the filter, in order.
func (f Filter) Apply(events []ContractEvent) []ContractEvent {
	out := events
	if f.NonContingentPrefix {
		out = BeforeFirstContingent(out)
	}
	if f.PayoffOnly {
		out = PayoffEvents(out)
	}
	if len(f.Types) > 0 {
		out = OfTypes(out, f.Types...)
	}
	if !f.Window.Start.IsZero() || !f.Window.End.IsZero() {
		out = Within(out, f.Window)
	}
	if !f.From.IsZero() || f.Limit > 0 {
		out = NextEvents(out, f.From, f.Limit)
	}
	return out
}

func keep(events []ContractEvent, pred func(ContractEvent) bool) []ContractEvent {
	out := make([]ContractEvent, 0, len(events))
	for _, e := range events {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

// PayoffEvents keeps events of cash-flow categories.
func PayoffEvents(events []ContractEvent) []ContractEvent {
	return keep(events, func(e ContractEvent) bool { return e.Type.IsCashFlow() })
}

// OfTypes keeps events of the given categories.
func OfTypes(events []ContractEvent, types ...EventType) []ContractEvent {
	set := make(map[EventType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return keep(events, func(e ContractEvent) bool { return set[e.Type] })
}

// Within keeps events whose event time lies in p.
func Within(events []ContractEvent, p Period) []ContractEvent {
	return keep(events, func(e ContractEvent) bool { return p.Contains(e.EventTime) })
}

// NextEvents returns the first n events at or after from. n <= 0 returns
// all of them.
func NextEvents(events []ContractEvent, from time.Time, n int) []ContractEvent {
	out := keep(events, func(e ContractEvent) bool { return !e.EventTime.Before(from) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// BeforeFirstContingent returns the prefix that precedes the first
// contingent event.
func BeforeFirstContingent(events []ContractEvent) []ContractEvent {
	for i, e := range events {
		if e.Contingent() {
			return events[:i:i]
		}
	}
	return events
}
