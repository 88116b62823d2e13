package generic

import (
	"fmt"
	"strings"
)

// =============================================================================
// EVENT TYPE - The closed set of event categories
// =============================================================================

// EventType is an event category. The declaration order is also the
// tie-break between categories that share a sequence offset, so appending
// new categories at the end never reorders existing ones.
type EventType int

const (
	EventAD   EventType = iota // analysis / monitoring
	EventIED                   // initial exchange
	EventPR                    // principal redemption
	EventPD                    // principal drawing
	EventPI                    // principal increase
	EventIP                    // interest payment
	EventIPFX                  // fixed-leg interest payment
	EventIPCI                  // interest capitalization
	EventIPFL                  // floating-leg interest payment
	EventFP                    // fee payment
	EventDV                    // dividend
	EventMR                    // margin call
	EventRR                    // rate reset
	EventRRF                   // rate reset at a known rate
	EventPRF                   // principal payment amount fixing
	EventSC                    // scaling index revision
	EventIPCB                  // interest calculation base revision
	EventPRD                   // purchase
	EventTD                    // termination
	EventMD                    // maturity
	EventXD                    // exercise
	EventSTD                   // settlement
	EventPP                    // prepayment
	EventPY                    // prepayment penalty
	EventCE                    // credit event

	eventTypeCount
)

var eventTypeNames = [eventTypeCount]string{
	EventAD:   "AD",
	EventIED:  "IED",
	EventPR:   "PR",
	EventPD:   "PD",
	EventPI:   "PI",
	EventIP:   "IP",
	EventIPFX: "IPFX",
	EventIPCI: "IPCI",
	EventIPFL: "IPFL",
	EventFP:   "FP",
	EventDV:   "DV",
	EventMR:   "MR",
	EventRR:   "RR",
	EventRRF:  "RRF",
	EventPRF:  "PRF",
	EventSC:   "SC",
	EventIPCB: "IPCB",
	EventPRD:  "PRD",
	EventTD:   "TD",
	EventMD:   "MD",
	EventXD:   "XD",
	EventSTD:  "STD",
	EventPP:   "PP",
	EventPY:   "PY",
	EventCE:   "CE",
}

// sequenceOffsets places same-time events in a financially meaningful order:
// an exchange happens before a payment on it, analysis snapshots observe
// every other same-time effect. Every offset is below SecondsPerDay.
var sequenceOffsets = [eventTypeCount]int64{
	EventIED:  20,
	EventPR:   30,
	EventPD:   30,
	EventPI:   30,
	EventIP:   40,
	EventIPFX: 40,
	EventIPCI: 40,
	EventIPFL: 45,
	EventFP:   60,
	EventDV:   70,
	EventMR:   80,
	EventRR:   100,
	EventRRF:  100,
	EventPRF:  105,
	EventSC:   110,
	EventIPCB: 120,
	EventPRD:  130,
	EventTD:   140,
	EventMD:   150,
	EventXD:   160,
	EventSTD:  170,
	EventPP:   900,
	EventPY:   900,
	EventCE:   900,
	EventAD:   950,
}

// Offset returns the tie-break offset of the category.
func (t EventType) Offset() int64 {
	if !t.Valid() {
		return 0
	}
	return sequenceOffsets[t]
}

func (t EventType) Valid() bool {
	return t >= 0 && t < eventTypeCount
}

func (t EventType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("EventType(%d)", int(t))
	}
	return eventTypeNames[t]
}

// IsCashFlow reports whether events of this category carry a cash flow.
// Resets, fixings, capitalization, exercise, credit events and analysis
// points only move state.
func (t EventType) IsCashFlow() bool {
	switch t {
	case EventAD, EventIPCI, EventRR, EventRRF, EventPRF, EventSC, EventIPCB, EventXD, EventCE:
		return false
	}
	return t.Valid()
}

// IsInterest reports whether the category belongs to the interest-payment
// family that swap and cap/floor netting combines.
func (t EventType) IsInterest() bool {
	return t == EventIP || t == EventIPFX || t == EventIPFL
}

// MarshalText encodes the category by its code.
func (t EventType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid event type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a category code.
func (t *EventType) UnmarshalText(b []byte) error {
	parsed, err := ParseEventType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseEventType parses a category code such as "IP" or "ied".
func ParseEventType(s string) (EventType, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range eventTypeNames {
		if name == code {
			return EventType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown event type %q", s)
}

// AllEventTypes returns every category in declaration order.
func AllEventTypes() []EventType {
	out := make([]EventType, 0, eventTypeCount)
	for t := EventType(0); t < eventTypeCount; t++ {
		out = append(out, t)
	}
	return out
}
