package instruments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-engine/generic"
)

// =============================================================================
// SWPPV - Plain vanilla interest rate swap
// =============================================================================
//
// The fixed leg accrues into AccruedInterest at NominalInterestRate, the
// floating leg into AccruedInterest2 at NominalInterestRate2. The role sign
// says which leg the holder receives: RFL receives fixed and pays floating.

type plainSwap struct {
	loan
	rate2      decimal.Decimal
	maturity   time.Time
	settlement string
}

func readPlainSwap(terms *generic.Terms) (plainSwap, error) {
	l, err := readLoan(terms)
	if err != nil {
		return plainSwap{}, err
	}
	r := read(terms)
	sw := plainSwap{
		loan:       l,
		rate2:      r.decOr(generic.AttrNominalInterestRate2, generic.Zero),
		maturity:   r.date(generic.AttrMaturityDate),
		settlement: r.strOr(generic.AttrDeliverySettlement, SettlementDelivery),
	}
	if r.err != nil {
		return plainSwap{}, r.err
	}
	if sw.settlement != SettlementDelivery && sw.settlement != SettlementNet {
		return plainSwap{}, &generic.AttributeError{Attribute: generic.AttrDeliverySettlement, Want: generic.KindString, Reason: "want D or S"}
	}
	return sw, nil
}

func (sw plainSwap) accrue(t time.Time, s generic.StateSpace, env generic.Environment) generic.StateSpace {
	y := yearFraction(env, s.StatusDate, t)
	s.AccruedInterest = s.AccruedInterest.Add(y.Mul(s.NominalInterestRate).Mul(s.NotionalPrincipal))
	s.AccruedInterest2 = s.AccruedInterest2.Add(y.Mul(s.NominalInterestRate2).Mul(s.NotionalPrincipal))
	s.StatusDate = generic.MaxTime(s.StatusDate, t)
	return s
}

func (sw plainSwap) open(t time.Time, s generic.StateSpace) generic.StateSpace {
	s = sw.loan.open(t, s)
	s.NominalInterestRate2 = sw.rate2
	s.AccruedInterest2 = generic.Zero
	return s
}

func (sw plainSwap) initialState(*generic.Terms, generic.Environment) (generic.StateSpace, error) {
	s := generic.NewStateSpace(sw.statusDate, sw.role)
	s.ContractPerformance = sw.performance
	s.MaturityDate = sw.maturity
	if ied, ok := sw.ied.Get(); !ok || ied.Before(sw.statusDate) {
		s = sw.open(sw.statusDate, s)
	}
	return s, nil
}

// settle returns a binding paying pay(s) after accrual and clearing the
// accruals clear touches.
func (sw plainSwap) settle(name string, pay func(s generic.StateSpace) decimal.Decimal, clear func(s generic.StateSpace) generic.StateSpace) generic.Binding {
	return performing(generic.Binding{
		Name: name,
		Payoff: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
			return pay(sw.accrue(t, s, env)), nil
		},
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			return clear(sw.accrue(t, s, env)), nil
		},
	})
}

func (sw plainSwap) bindings() generic.BindingTable {
	fixed := func(s generic.StateSpace) decimal.Decimal { return s.AccruedInterest }
	floating := func(s generic.StateSpace) decimal.Decimal { return s.AccruedInterest2.Neg() }
	clearFixed := func(s generic.StateSpace) generic.StateSpace {
		s.AccruedInterest = generic.Zero
		return s
	}
	clearFloating := func(s generic.StateSpace) generic.StateSpace {
		s.AccruedInterest2 = generic.Zero
		return s
	}

	return generic.BindingTable{
		generic.EventAD: {
			Name: "accrue-legs",
			Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
				return sw.accrue(t, s, env), nil
			},
		},
		generic.EventIED: {
			Name: "start-swap",
			Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (generic.StateSpace, error) {
				return sw.open(t, s), nil
			},
		},
		generic.EventIPFX: sw.settle("pay-fixed-leg", fixed, clearFixed),
		generic.EventIPFL: sw.settle("pay-floating-leg", floating, clearFloating),
		generic.EventIP: sw.settle("pay-net-interest",
			func(s generic.StateSpace) decimal.Decimal { return fixed(s).Add(floating(s)) },
			func(s generic.StateSpace) generic.StateSpace { return clearFloating(clearFixed(s)) }),
		generic.EventRR: {
			Name: "reset-floating-rate",
			Transition: func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
				s = sw.accrue(t, s, env)
				obs, err := sw.reset.observe(t, s, terms, env)
				if err != nil {
					return s, err
				}
				s.NominalInterestRate2 = sw.reset.apply(s.NominalInterestRate2, obs)
				return s, nil
			},
		},
		generic.EventRRF: {
			Name: "reset-floating-rate-fixed",
			Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
				s = sw.accrue(t, s, env)
				next, ok := sw.reset.next.Get()
				if !ok {
					return s, &generic.AttributeError{Attribute: generic.AttrNextResetRate, Want: generic.KindDecimal, Reason: "missing"}
				}
				s.NominalInterestRate2 = next
				return s, nil
			},
		},
		generic.EventPRD: {
			Name: "purchase-swap",
			Payoff: func(time.Time, generic.StateSpace, *generic.Terms, generic.Environment) (decimal.Decimal, error) {
				return sw.role.Mul(sw.purchasePrice).Neg(), nil
			},
			Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
				return sw.accrue(t, s, env), nil
			},
		},
		generic.EventTD: {
			Name: "terminate-swap",
			Payoff: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
				s = sw.accrue(t, s, env)
				return sw.role.Mul(sw.terminationPrice).Add(fixed(s)).Add(floating(s)), nil
			},
			Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (generic.StateSpace, error) {
				return closed(t, s), nil
			},
		},
		generic.EventMD: {
			Name: "mature-swap",
			Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (generic.StateSpace, error) {
				return closed(t, s), nil
			},
		},
		generic.EventCE: {
			Name: "default",
			Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
				s = sw.accrue(t, s, env)
				s.ContractPerformance = generic.PerformanceDefault
				s.NonPerformingDate = t
				return s, nil
			},
		},
	}
}

func swppvRecipe(req Request) (generic.Recipe, error) {
	sw, err := readPlainSwap(req.Terms)
	if err != nil {
		return generic.Recipe{}, err
	}
	return generic.Recipe{
		Name:     SWPPV.String(),
		Bindings: sw.bindings(),
		Schedule: func(b *generic.Builder) error {
			start := sw.start()
			legs := []generic.EventType{generic.EventIPFX, generic.EventIPFL}
			if sw.settlement == SettlementNet {
				legs = []generic.EventType{generic.EventIP}
			}
			for _, typ := range legs {
				if err := b.CycleFrom(typ, generic.AttrCycleAnchorDateOfInterestPayment, generic.AttrCycleOfInterestPayment, start, sw.maturity, true); err != nil {
					return err
				}
			}
			if err := b.CycleFrom(generic.EventRR, generic.AttrCycleAnchorDateOfRateReset, generic.AttrCycleOfRateReset, start, sw.maturity, false); err != nil {
				return err
			}
			if err := schedulePurchase(b); err != nil {
				return err
			}
			return b.At(generic.EventMD, sw.maturity)
		},
		Contingent:   true,
		Rewrites:     []generic.Rewrite{generic.FixFirstReset()},
		InitialState: sw.initialState,
	}, nil
}

// =============================================================================
// SWAPS - Swap of two child legs
// =============================================================================

// legTerms returns the embedded terms of a leg with the role the holder
// takes in it.
func legTerms(parent *generic.Terms, role generic.ReferenceRole, receive bool) (*generic.Terms, error) {
	ref, err := parent.Reference(role)
	if err != nil {
		return nil, err
	}
	if ref.Terms == nil {
		return nil, &generic.AttributeError{
			Attribute: generic.AttrContractStructure,
			Want:      generic.KindReferences,
			Reason:    string(role) + " leg must be an embedded contract",
		}
	}
	out := ref.Terms.Clone()
	legRole := generic.RoleRPL
	if receive {
		legRole = generic.RoleRPA
	}
	if err := out.Set(generic.AttrContractRole, string(legRole)); err != nil {
		return nil, err
	}
	if !out.Has(generic.AttrContractID) && parent.ContractID() != "" {
		if err := out.Set(generic.AttrContractID, string(parent.ContractID())+"/"+string(role)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// partition splits events into those whose category is in cats and the rest.
func partition(events []generic.ContractEvent, cats []generic.EventType) (in, out []generic.ContractEvent) {
	for _, e := range events {
		if containsType(cats, e.Type) {
			in = append(in, e)
		} else {
			out = append(out, e)
		}
	}
	return in, out
}

func containsType(cats []generic.EventType, t generic.EventType) bool {
	for _, c := range cats {
		if c == t {
			return true
		}
	}
	return false
}

func evaluateSwaps(e *Engine, req Request) ([]generic.ContractEvent, error) {
	r := read(req.Terms)
	role := r.roleSign()
	settlement := r.strOr(generic.AttrDeliverySettlement, SettlementDelivery)
	if r.err != nil {
		return nil, r.err
	}
	receiveFirst := role.IsPositive()
	first, err := legTerms(req.Terms, generic.RefFirstLeg, receiveFirst)
	if err != nil {
		return nil, err
	}
	second, err := legTerms(req.Terms, generic.RefSecondLeg, !receiveFirst)
	if err != nil {
		return nil, err
	}

	firstEvents, err := e.child(req, first, req.AnalysisTimes)
	if err != nil {
		return nil, err
	}
	secondEvents, err := e.child(req, second, req.AnalysisTimes)
	if err != nil {
		return nil, err
	}

	if settlement != SettlementNet {
		out := append(append([]generic.ContractEvent(nil), firstEvents...), secondEvents...)
		generic.SortEvents(out)
		return out, nil
	}

	// Cash settlement leaves one event per (time, category).
	return generic.Net(firstEvents, secondEvents, generic.NettingRule{Name: "net-legs", All: true})
}

// =============================================================================
// CAPFL - Cap / floor
// =============================================================================

// evaluateCapFloor evaluates the underlier with and without the cap and
// floor and pays the difference of the interest flows.
func evaluateCapFloor(e *Engine, req Request) ([]generic.ContractEvent, error) {
	r := read(req.Terms)
	role := r.roleSign()
	lifeCap := r.optDec(generic.AttrLifeCap)
	lifeFloor := r.optDec(generic.AttrLifeFloor)
	if r.err != nil {
		return nil, r.err
	}
	if !lifeCap.IsSet() && !lifeFloor.IsSet() {
		return nil, &generic.AttributeError{Attribute: generic.AttrLifeCap, Want: generic.KindDecimal, Reason: "a cap or a floor is required"}
	}

	ref, err := req.Terms.Reference(generic.RefUnderlying)
	if err != nil {
		return nil, err
	}
	if ref.Terms == nil {
		return nil, &generic.AttributeError{Attribute: generic.AttrContractStructure, Want: generic.KindReferences, Reason: "underlier must be an embedded contract"}
	}
	uncappedTerms := ref.Terms.Clone()
	uncappedTerms.Delete(generic.AttrLifeCap, generic.AttrLifeFloor)
	cappedTerms := uncappedTerms.Clone()
	for attr, v := range map[generic.Attribute]generic.Optional[decimal.Decimal]{
		generic.AttrLifeCap:   lifeCap,
		generic.AttrLifeFloor: lifeFloor,
	} {
		if d, ok := v.Get(); ok {
			if err := cappedTerms.Set(attr, d); err != nil {
				return nil, err
			}
		}
	}

	uncapped, err := e.child(req, uncappedTerms, req.AnalysisTimes)
	if err != nil {
		return nil, err
	}
	capped, err := e.child(req, cappedTerms, req.AnalysisTimes)
	if err != nil {
		return nil, err
	}

	cats := []generic.EventType{generic.EventAD, generic.EventIP}
	a, _ := partition(uncapped, cats)
	b, _ := partition(capped, cats)
	return generic.Net(a, b, generic.NettingRule{
		Name:       "cap-floor-difference",
		Categories: cats,
		Combine: func(x, y decimal.Decimal) decimal.Decimal {
			return role.Mul(x.Sub(y).Abs())
		},
	})
}
