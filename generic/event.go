/*
event.go - The contract event and its total order

PURPOSE:
  A ContractEvent binds a time, a category, a currency and a payoff/
  state-transition pair. After evaluation it also carries the computed
  payoff and the state the transition produced.

TWO TIMES:
  ScheduleTime: the unadjusted calendar date used in day-count math
  EventTime:    ScheduleTime after business-day adjustment; used for
                ordering and reporting

TOTAL ORDER:
  key = OrderTime(EventTime) + Type.Offset()
  Equal keys fall back to the category declaration order, so the order
  never depends on insertion order.

VALUE SEMANTICS:
  Rewrites (Retype, WithBinding) return a new event; they never mutate a
  shared instance. The order key, the category and the binding always
  change together.

SEE ALSO:
  - sequence.go: Offsets
  - factory.go: Constructors
  - driver.go: Sort and sequential evaluation
*/
package generic

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ContractEvent is one occurrence in a contract's timeline.
type ContractEvent struct {
	ScheduleTime time.Time
	EventTime    time.Time
	Type         EventType
	Currency     string

	binding    Binding
	order      int64
	contingent bool

	evaluated bool
	payoff    decimal.Decimal
	state     StateSpace
}

// OrderKey is the event's position on the total order.
func (e ContractEvent) OrderKey() int64 {
	return e.order
}

// Compare returns a negative number when e sorts before o, zero when the two
// are order-equivalent and a positive number otherwise.
func (e ContractEvent) Compare(o ContractEvent) int {
	switch {
	case e.order < o.order:
		return -1
	case e.order > o.order:
		return 1
	case e.Type < o.Type:
		return -1
	case e.Type > o.Type:
		return 1
	}
	return 0
}

// Binding returns the bound computations.
func (e ContractEvent) Binding() Binding {
	return e.binding
}

// Retype returns a copy recategorized with a new binding. Retyping to the
// category the event already has returns it unchanged and ignores b; use
// WithBinding to swap computations without a category change.
func (e ContractEvent) Retype(typ EventType, b Binding) ContractEvent {
	if typ == e.Type {
		return e
	}
	e.Type = typ
	e.binding = b
	e.order = OrderTime(e.EventTime) + typ.Offset()
	return e
}

// WithBinding returns a copy bound to different computations.
func (e ContractEvent) WithBinding(b Binding) ContractEvent {
	e.binding = b
	return e
}

// Contingent reports whether the event came from the risk-factor source.
func (e ContractEvent) Contingent() bool {
	return e.contingent
}

// AsContingent returns a copy flagged as contingent.
func (e ContractEvent) AsContingent() ContractEvent {
	e.contingent = true
	return e
}

// Evaluated reports whether Evaluate has run.
func (e ContractEvent) Evaluated() bool {
	return e.evaluated
}

// Payoff returns the computed cash flow; zero before evaluation.
func (e ContractEvent) Payoff() decimal.Decimal {
	return e.payoff
}

// State returns the post-evaluation state; the zero value before evaluation.
func (e ContractEvent) State() StateSpace {
	return e.state
}

// Evaluate computes the payoff and then the next state from s. Both
// computations receive the schedule time. An event is evaluated exactly
// once per run.
func (e *ContractEvent) Evaluate(s StateSpace, terms *Terms, env Environment) error {
	if e.evaluated {
		return ErrAlreadyEvaluated
	}

	payoff := Zero
	if e.binding.Payoff != nil {
		p, err := e.binding.Payoff(e.ScheduleTime, s, terms, env)
		if err != nil {
			return err
		}
		payoff = p
	}

	next := s
	if e.binding.Transition != nil {
		ns, err := e.binding.Transition(e.ScheduleTime, s, terms, env)
		if err != nil {
			return err
		}
		next = ns
	} else {
		next.StatusDate = e.ScheduleTime
	}

	e.payoff = payoff
	e.state = next
	e.evaluated = true
	return nil
}

// withResult returns a copy carrying an already computed result.
func (e ContractEvent) withResult(payoff decimal.Decimal, s StateSpace) ContractEvent {
	e.payoff = payoff
	e.state = s
	e.evaluated = true
	return e
}

// SortEvents sorts in place by the total order.
func SortEvents(events []ContractEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Compare(events[j]) < 0
	})
}
