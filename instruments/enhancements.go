package instruments

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-engine/generic"
)

// Guaranteed exposures.
const (
	ExposureNotional         = "NO"
	ExposureNotionalInterest = "NI"
)

// =============================================================================
// LINKED CONTRACTS - Covered and covering contracts of an enhancement
// =============================================================================

// referenceKey is the key of a referenced contract's events in
// Environment.Linked. Embedded contracts without an ID get one derived from
// the parent and the reference position.
func referenceKey(parent *generic.Terms, ref generic.ContractReference, i int) generic.ContractID {
	switch {
	case ref.ContractID != "":
		return ref.ContractID
	case ref.Terms != nil && ref.Terms.ContractID() != "":
		return ref.Terms.ContractID()
	}
	return generic.ContractID(fmt.Sprintf("%s/%s/%d", parent.ContractID(), ref.Role, i))
}

// linkedAlgorithm evaluates embedded referenced contracts first and hands
// their events to the recipe through Environment.Linked, next to the
// events of contracts referenced by ID.
func linkedAlgorithm(build func(Request) (generic.Recipe, error)) algorithm {
	run := recipeAlgorithm(build)
	return func(e *Engine, req Request) ([]generic.ContractEvent, error) {
		refs, err := req.Terms.References()
		if err != nil {
			return nil, err
		}
		linked := make(map[generic.ContractID][]generic.ContractEvent, len(req.Env.Linked)+len(refs))
		for id, events := range req.Env.Linked {
			linked[id] = events
		}
		for i, ref := range refs {
			if ref.Terms == nil {
				continue
			}
			events, err := e.child(req, ref.Terms, req.AnalysisTimes)
			if err != nil {
				return nil, fmt.Errorf("%s reference %d: %w", ref.Role, i, err)
			}
			linked[referenceKey(req.Terms, ref, i)] = events
		}
		req.Env.Linked = linked
		return run(e, req)
	}
}

type linkedContract struct {
	id     generic.ContractID
	events []generic.ContractEvent
}

// stateAt is the state after the last event at or before t.
func (c linkedContract) stateAt(t time.Time) (generic.StateSpace, bool) {
	var s generic.StateSpace
	found := false
	for _, e := range c.events {
		if e.EventTime.After(t) {
			break
		}
		if e.Evaluated() {
			s, found = e.State(), true
		}
	}
	return s, found
}

// linkedContracts returns the evaluated contracts referenced with role.
// Market object references are skipped.
func linkedContracts(req Request, role generic.ReferenceRole) ([]linkedContract, error) {
	refs, err := req.Terms.References()
	if err != nil {
		return nil, err
	}
	var out []linkedContract
	for i, ref := range refs {
		if ref.Role != role || ref.MarketObject != "" {
			continue
		}
		key := referenceKey(req.Terms, ref, i)
		events, ok := req.Env.Linked[key]
		if !ok {
			return nil, fmt.Errorf("%s contract %s: %w", role, key, generic.ErrMissingDependency)
		}
		sorted := append([]generic.ContractEvent(nil), events...)
		generic.SortEvents(sorted)
		out = append(out, linkedContract{id: key, events: sorted})
	}
	return out, nil
}

// coveredEvents flattens the events of every covered contract.
func coveredEvents(req Request) ([]generic.ContractEvent, error) {
	contracts, err := linkedContracts(req, generic.RefCovered)
	if err != nil {
		return nil, err
	}
	var out []generic.ContractEvent
	for _, c := range contracts {
		out = append(out, c.events...)
	}
	generic.SortEvents(out)
	return out, nil
}

// firstCreditEvent finds the first event in [from, to] after which a
// covered contract has the covered performance. A zero to is open-ended.
func firstCreditEvent(events []generic.ContractEvent, covered generic.Performance, from, to time.Time) (time.Time, bool) {
	for _, e := range events {
		if !e.Evaluated() || e.EventTime.Before(from) || (!to.IsZero() && e.EventTime.After(to)) {
			continue
		}
		if e.State().ContractPerformance == covered {
			return e.EventTime, true
		}
	}
	return time.Time{}, false
}

// exposureAt sums the outstanding notional of the covered contracts at t,
// with accrued interest when withInterest is set.
func exposureAt(contracts []linkedContract, t time.Time, withInterest bool) decimal.Decimal {
	total := generic.Zero
	for _, c := range contracts {
		s, ok := c.stateAt(t)
		if !ok {
			continue
		}
		total = total.Add(s.NotionalPrincipal.Abs())
		if withInterest {
			total = total.Add(s.AccruedInterest.Abs())
		}
	}
	return total
}

// lastEventTime is the latest event time among the contracts.
func lastEventTime(contracts []linkedContract) time.Time {
	var out time.Time
	for _, c := range contracts {
		if n := len(c.events); n > 0 {
			out = generic.Latest(out, c.events[n-1].EventTime)
		}
	}
	return out
}

// =============================================================================
// CEG / CEC - Credit enhancements
// =============================================================================

// enhancement is the resolved terms shared by guarantees and collateral.
type enhancement struct {
	creditSwap
	covered      generic.Performance
	withInterest bool
	contracts    []linkedContract
	trigger      time.Time
	triggered    bool
}

func readEnhancement(req Request) (enhancement, error) {
	r := read(req.Terms)
	en := enhancement{
		creditSwap: creditSwap{
			role:        r.roleSign(),
			statusDate:  r.statusDate(),
			feeRate:     r.decOr(generic.AttrFeeRate, generic.Zero),
			coverage:    r.decOr(generic.AttrCoverageOfCreditEnhancement, generic.One),
			performance: r.performance(),
		},
		covered: generic.Performance(r.strOr(generic.AttrCreditEventTypeCovered, string(generic.PerformanceDefault))),
	}
	exposure := r.strOr(generic.AttrGuaranteedExposure, ExposureNotional)
	md := r.optDate(generic.AttrMaturityDate)
	if r.err != nil {
		return enhancement{}, r.err
	}
	switch exposure {
	case ExposureNotional, ExposureNotionalInterest:
		en.withInterest = exposure == ExposureNotionalInterest
	default:
		return enhancement{}, &generic.AttributeError{Attribute: generic.AttrGuaranteedExposure, Want: generic.KindString, Reason: "want NO or NI"}
	}

	var err error
	if en.contracts, err = linkedContracts(req, generic.RefCovered); err != nil {
		return enhancement{}, err
	}
	if len(en.contracts) == 0 {
		return enhancement{}, &generic.AttributeError{Attribute: generic.AttrContractStructure, Want: generic.KindReferences, Reason: "at least one COVE reference required"}
	}

	en.maturity = md.OrElse(lastEventTime(en.contracts))
	if en.maturity.IsZero() {
		en.maturity = req.horizon()
	}
	en.notional = en.coverage.Mul(exposureAt(en.contracts, en.statusDate, en.withInterest))

	var all []generic.ContractEvent
	for _, c := range en.contracts {
		all = append(all, c.events...)
	}
	generic.SortEvents(all)
	en.trigger, en.triggered = firstCreditEvent(all, en.covered, en.statusDate, en.maturity)
	return en, nil
}

// exposure is the covered amount at t.
func (en enhancement) exposure(t time.Time) decimal.Decimal {
	return en.coverage.Mul(exposureAt(en.contracts, t, en.withInterest))
}

func (en enhancement) recipe(ct ContractType, amount func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (decimal.Decimal, error)) generic.Recipe {
	bt := en.bindings()
	delete(bt, generic.EventCE)
	bt[generic.EventXD] = exercise("call-"+ct.String(), amount)
	return generic.Recipe{
		Name:     ct.String(),
		Bindings: bt,
		Schedule: func(b *generic.Builder) error {
			if !en.feeRate.IsZero() {
				if err := b.CycleFrom(generic.EventFP, generic.AttrCycleAnchorDateOfFee, generic.AttrCycleOfFee, en.statusDate, en.maturity, true); err != nil {
					return err
				}
			}
			if en.triggered {
				if err := b.At(generic.EventXD, en.trigger); err != nil {
					return err
				}
			}
			return b.At(generic.EventMD, en.maturity)
		},
		Rewrites:     []generic.Rewrite{generic.SettleAfter(generic.EventXD)},
		InitialState: en.initialState,
	}
}

func cegRecipe(req Request) (generic.Recipe, error) {
	en, err := readEnhancement(req)
	if err != nil {
		return generic.Recipe{}, err
	}
	guaranteed := func(t time.Time, _ generic.StateSpace, _ *generic.Terms, _ generic.Environment) (decimal.Decimal, error) {
		return en.role.Mul(en.exposure(t)), nil
	}
	return en.recipe(CEG, guaranteed), nil
}

func cecRecipe(req Request) (generic.Recipe, error) {
	en, err := readEnhancement(req)
	if err != nil {
		return generic.Recipe{}, err
	}
	refs, err := req.Terms.References(generic.RefCovering)
	if err != nil {
		return generic.Recipe{}, err
	}
	if len(refs) == 0 {
		return generic.Recipe{}, &generic.AttributeError{Attribute: generic.AttrContractStructure, Want: generic.KindReferences, Reason: "at least one COVI reference required"}
	}
	collateral, err := linkedContracts(req, generic.RefCovering)
	if err != nil {
		return generic.Recipe{}, err
	}
	var markets []string
	for _, ref := range refs {
		if ref.MarketObject != "" {
			markets = append(markets, ref.MarketObject)
		}
	}

	// The collateral claim is capped by what the collateral is worth.
	claim := func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
		value := exposureAt(collateral, t, false)
		for _, mo := range markets {
			v, err := env.Observe(mo, t, s, terms)
			if err != nil {
				return generic.Zero, err
			}
			value = value.Add(v.Abs())
		}
		return en.role.Mul(generic.MinDecimal(en.exposure(t), value)), nil
	}
	return en.recipe(CEC, claim), nil
}
