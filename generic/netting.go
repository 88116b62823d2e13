package generic

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// NETTING - Merging two independently evaluated streams
// =============================================================================

// NettingRule selects the categories that combine into one net event.
type NettingRule struct {
	// Name is the binding name of synthesized events.
	Name string
	// Categories participate in netting. All overrides it.
	Categories []EventType
	All        bool
	// Combine merges the two payoffs. Nil means their sum.
	Combine func(first, second decimal.Decimal) decimal.Decimal
}

func (r NettingRule) nets(t EventType) bool {
	if r.All {
		return true
	}
	for _, c := range r.Categories {
		if c == t {
			return true
		}
	}
	return false
}

type nettingKey struct {
	at  int64
	typ EventType
}

func nettingKeyOf(e ContractEvent) nettingKey {
	return nettingKey{at: e.EventTime.UnixNano(), typ: e.Type}
}

// Net merges two evaluated streams by (event time, category). A key present
// in both streams becomes one synthesized event when its category is
// nettable; otherwise the first stream's event is kept. Keys present in one
// stream only pass through unmodified. The result is sorted.
func Net(first, second []ContractEvent, rule NettingRule) ([]ContractEvent, error) {
	for _, e := range first {
		if !e.Evaluated() {
			return nil, fmt.Errorf("netting %s: first stream %s at %s: %w", rule.Name, e.Type, e.EventTime.Format(time.RFC3339), ErrNotEvaluated)
		}
	}
	pending := make(map[nettingKey][]ContractEvent, len(second))
	for _, e := range second {
		if !e.Evaluated() {
			return nil, fmt.Errorf("netting %s: second stream %s at %s: %w", rule.Name, e.Type, e.EventTime.Format(time.RFC3339), ErrNotEvaluated)
		}
		k := nettingKeyOf(e)
		pending[k] = append(pending[k], e)
	}

	combine := rule.Combine
	if combine == nil {
		combine = func(a, b decimal.Decimal) decimal.Decimal { return a.Add(b) }
	}

	out := make([]ContractEvent, 0, len(first)+len(second))
	for _, a := range first {
		k := nettingKeyOf(a)
		matches := pending[k]
		if len(matches) == 0 {
			out = append(out, a)
			continue
		}
		b := matches[0]
		pending[k] = matches[1:]

		if !rule.nets(a.Type) {
			out = append(out, a)
			continue
		}
		net, err := netEvent(a, b, rule.Name, combine)
		if err != nil {
			return nil, err
		}
		out = append(out, net)
	}
	for _, e := range second {
		k := nettingKeyOf(e)
		if rest := pending[k]; len(rest) > 0 && rest[0].Compare(e) == 0 {
			out = append(out, rest[0])
			pending[k] = rest[1:]
		}
	}

	SortEvents(out)
	return out, nil
}

// netEvent synthesizes the combined event and evaluates it immediately.
func netEvent(a, b ContractEvent, name string, combine func(a, b decimal.Decimal) decimal.Decimal) (ContractEvent, error) {
	payA, payB := a.Payoff(), b.Payoff()
	stateA, stateB := a.State(), b.State()

	ev := Make(a.ScheduleTime, a.Type, a.Currency, Binding{
		Name: name,
		Payoff: func(time.Time, StateSpace, *Terms, Environment) (decimal.Decimal, error) {
			return combine(payA, payB), nil
		},
		Transition: func(t time.Time, _ StateSpace, _ *Terms, _ Environment) (StateSpace, error) {
			s := stateA
			s.AccruedInterest = stateA.AccruedInterest.Add(stateB.AccruedInterest)
			s.FeeAccrued = stateA.FeeAccrued.Add(stateB.FeeAccrued)
			s.StatusDate = t
			return s, nil
		},
	})
	ev.EventTime = a.EventTime
	ev.order = a.order
	if err := ev.Evaluate(stateA, nil, Environment{}); err != nil {
		return ContractEvent{}, err
	}
	return ev, nil
}
