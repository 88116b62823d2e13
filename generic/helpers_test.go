package generic_test

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/cashflow-engine/conventions"
	"github.com/warp/cashflow-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func day(y int, m time.Month, d int) time.Time {
	return generic.Date(y, m, d)
}

func testEnv() generic.Environment {
	return generic.Environment{
		DayCounter: conventions.Actual365{},
		Adjuster:   mustAdjuster("NOS"),
		Schedules:  conventions.Expander{},
	}
}

func mustAdjuster(code string) *conventions.Adjuster {
	a, err := conventions.NewAdjuster(code, conventions.MondayToFriday)
	if err != nil {
		panic(err)
	}
	return a
}

func accrue(t time.Time, s generic.StateSpace, env generic.Environment) generic.StateSpace {
	yf := env.DayCounter.YearFraction(s.StatusDate, t)
	s.AccruedInterest = s.AccruedInterest.Add(yf.Mul(s.NominalInterestRate).Mul(s.NotionalPrincipal))
	s.StatusDate = t
	return s
}

// loanBindings is a minimal bullet-loan formula set.
func loanBindings() generic.BindingTable {
	return generic.BindingTable{
		generic.EventAD: {Name: "accrue", Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			return accrue(t, s, env), nil
		}},
		generic.EventIED: {
			Name: "exchange",
			Payoff: func(_ time.Time, _ generic.StateSpace, terms *generic.Terms, _ generic.Environment) (decimal.Decimal, error) {
				n, err := terms.Decimal(generic.AttrNotionalPrincipal)
				return n.Neg(), err
			},
			Transition: func(t time.Time, s generic.StateSpace, terms *generic.Terms, _ generic.Environment) (generic.StateSpace, error) {
				n, err := terms.Decimal(generic.AttrNotionalPrincipal)
				if err != nil {
					return s, err
				}
				r, err := terms.DecimalOr(generic.AttrNominalInterestRate, generic.Zero)
				if err != nil {
					return s, err
				}
				s.NotionalPrincipal, s.NominalInterestRate, s.StatusDate = n, r, t
				return s, nil
			},
		},
		generic.EventIP: {
			Name: "interest",
			Payoff: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
				return accrue(t, s, env).AccruedInterest, nil
			},
			Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
				s = accrue(t, s, env)
				s.AccruedInterest = generic.Zero
				return s, nil
			},
		},
		generic.EventIPCI: {
			Name: "capitalize",
			Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
				s = accrue(t, s, env)
				s.NotionalPrincipal = s.NotionalPrincipal.Add(s.AccruedInterest)
				s.AccruedInterest = generic.Zero
				return s, nil
			},
		},
		generic.EventRR: {Name: "reset"},
		generic.EventRRF: {
			Name: "reset-fixed",
			Transition: func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
				s = accrue(t, s, env)
				r, err := terms.Decimal(generic.AttrNextResetRate)
				s.NominalInterestRate = r
				return s, err
			},
		},
		generic.EventPP: {
			Name: "prepay",
			Payoff: func(_ time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (decimal.Decimal, error) {
				return s.NotionalPrincipal, nil
			},
			Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
				s = accrue(t, s, env)
				s.NotionalPrincipal = generic.Zero
				return s, nil
			},
		},
		generic.EventTD: {
			Name: "terminate",
			Payoff: func(_ time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (decimal.Decimal, error) {
				return s.NotionalPrincipal, nil
			},
			Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (generic.StateSpace, error) {
				return generic.NewStateSpace(t, s.RoleSign), nil
			},
		},
		generic.EventMD: {
			Name: "mature",
			Payoff: func(_ time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (decimal.Decimal, error) {
				return s.NotionalPrincipal.Add(s.AccruedInterest), nil
			},
			Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (generic.StateSpace, error) {
				return generic.NewStateSpace(t, s.RoleSign), nil
			},
		},
	}
}

func loanRecipe() generic.Recipe {
	return generic.Recipe{
		Name:     "test-loan",
		Bindings: loanBindings(),
		Schedule: func(b *generic.Builder) error {
			ied, err := b.Terms.Date(generic.AttrInitialExchangeDate)
			if err != nil {
				return err
			}
			md, err := b.Terms.Date(generic.AttrMaturityDate)
			if err != nil {
				return err
			}
			if err := b.CycleFrom(generic.EventIP, generic.AttrCycleAnchorDateOfInterestPayment, generic.AttrCycleOfInterestPayment, ied, md, true); err != nil {
				return err
			}
			if err := b.CycleFrom(generic.EventRR, generic.AttrCycleAnchorDateOfRateReset, generic.AttrCycleOfRateReset, ied, md, false); err != nil {
				return err
			}
			return b.At(generic.EventMD, md)
		},
		Contingent: true,
		Rewrites:   []generic.Rewrite{generic.CapitalizeInterest(), generic.FixFirstReset()},
	}
}

// loanTerms: 1000 at 5% from 2024-01-01, yearly interest, matures 2026-01-01.
func loanTerms() *generic.Terms {
	return generic.NewTerms().
		MustSet(generic.AttrContractID, "loan-1").
		MustSet(generic.AttrContractType, "PAM").
		MustSet(generic.AttrContractRole, "RPA").
		MustSet(generic.AttrCurrency, "USD").
		MustSet(generic.AttrStatusDate, day(2024, time.January, 1)).
		MustSet(generic.AttrInitialExchangeDate, day(2024, time.January, 1)).
		MustSet(generic.AttrMaturityDate, day(2026, time.January, 1)).
		MustSet(generic.AttrNotionalPrincipal, generic.Dec("1000")).
		MustSet(generic.AttrNominalInterestRate, generic.Dec("0.05")).
		MustSet(generic.AttrCycleAnchorDateOfInterestPayment, day(2025, time.January, 1)).
		MustSet(generic.AttrCycleOfInterestPayment, "P1YL0")
}

func types(events []generic.ContractEvent) []generic.EventType {
	out := make([]generic.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

// fakeObserver serves fixed contingent events and flat series.
type fakeObserver struct {
	events []generic.ContractEvent
	values map[string]decimal.Decimal
}

func (f *fakeObserver) Keys() []string {
	out := make([]string, 0, len(f.values))
	for k := range f.values {
		out = append(out, k)
	}
	return out
}

func (f *fakeObserver) Times(string) []time.Time { return nil }

func (f *fakeObserver) ValueAt(key string, t time.Time, _ generic.StateSpace, _ *generic.Terms) (decimal.Decimal, error) {
	v, ok := f.values[key]
	if !ok {
		return generic.Zero, &generic.ObservationError{Key: key, At: t}
	}
	return v, nil
}

func (f *fakeObserver) UnscheduledEvents(*generic.Terms) ([]generic.ContractEvent, error) {
	return f.events, nil
}
