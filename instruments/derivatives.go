package instruments

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-engine/generic"
)

// Option types.
const (
	OptionCall   = "C"
	OptionPut    = "P"
	OptionCollar = "CP"
)

// Exercise styles.
const (
	ExerciseEuropean = "E"
	ExerciseAmerican = "A"
	ExerciseBermudan = "B"
)

// underlierSeries is the series quoting the underlier: the market object of
// the UDL reference, else the contract's own market object code.
func underlierSeries(terms *generic.Terms) (string, error) {
	refs, err := terms.References(generic.RefUnderlying)
	if err != nil {
		return "", err
	}
	for _, ref := range refs {
		if ref.MarketObject != "" {
			return ref.MarketObject, nil
		}
	}
	moc, err := terms.OptString(generic.AttrMarketObjectCode)
	if err != nil {
		return "", err
	}
	if v, ok := moc.Get(); ok && v != "" {
		return v, nil
	}
	return "", &generic.AttributeError{Attribute: generic.AttrMarketObjectCode, Want: generic.KindString, Reason: "underlier quote required"}
}

// settlement pays the exercise amount fixed by the preceding exercise and
// clears it, so a later settlement of the same contract pays nothing.
func settlement() generic.Binding {
	return generic.Binding{
		Name: "settle-exercise",
		Payoff: func(_ time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (decimal.Decimal, error) {
			return s.ExerciseAmount, nil
		},
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (generic.StateSpace, error) {
			s.StatusDate = t
			s.ExerciseAmount = generic.Zero
			return s, nil
		},
	}
}

// exercise fixes the exercise amount once; later exercises are no-ops.
func exercise(name string, amount func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (decimal.Decimal, error)) generic.Binding {
	return generic.Binding{
		Name: name,
		Transition: func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			s.StatusDate = t
			if !s.ExerciseDate.IsZero() {
				return s, nil
			}
			v, err := amount(t, s, terms, env)
			if err != nil {
				return s, err
			}
			s.ExerciseDate = t
			s.ExerciseAmount = v
			return s, nil
		},
	}
}

func maturityClose() generic.Binding {
	return generic.Binding{
		Name: "close-position",
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (generic.StateSpace, error) {
			return closed(t, s), nil
		},
	}
}

// =============================================================================
// OPTNS - Option
// =============================================================================

type option struct {
	position
	underlier    string
	optionType   string
	exerciseType string
	strike1      decimal.Decimal
	strike2      decimal.Decimal
	exerciseEnd  time.Time
	maturity     generic.Optional[time.Time]
}

func readOption(terms *generic.Terms) (option, error) {
	r := read(terms)
	o := option{
		position:     readPosition(r),
		optionType:   r.str(generic.AttrOptionType),
		exerciseType: r.strOr(generic.AttrOptionExerciseType, ExerciseEuropean),
		strike1:      r.dec(generic.AttrOptionStrike1),
		strike2:      r.decOr(generic.AttrOptionStrike2, generic.Zero),
		exerciseEnd:  r.date(generic.AttrOptionExerciseEndDate),
		maturity:     r.optDate(generic.AttrMaturityDate),
	}
	if r.err != nil {
		return option{}, r.err
	}
	switch o.optionType {
	case OptionCall, OptionPut, OptionCollar:
	default:
		return option{}, &generic.AttributeError{Attribute: generic.AttrOptionType, Want: generic.KindString, Reason: "want C, P or CP"}
	}
	switch o.exerciseType {
	case ExerciseEuropean, ExerciseAmerican, ExerciseBermudan:
	default:
		return option{}, &generic.AttributeError{Attribute: generic.AttrOptionExerciseType, Want: generic.KindString, Reason: "want E, A or B"}
	}
	var err error
	if o.underlier, err = underlierSeries(terms); err != nil {
		return option{}, err
	}
	return o, nil
}

// intrinsic is the per-unit payout at underlier price spot.
func (o option) intrinsic(spot decimal.Decimal) decimal.Decimal {
	call := generic.MaxDecimal(spot.Sub(o.strike1), generic.Zero)
	switch o.optionType {
	case OptionCall:
		return call
	case OptionPut:
		return generic.MaxDecimal(o.strike1.Sub(spot), generic.Zero)
	}
	return call.Add(generic.MaxDecimal(o.strike2.Sub(spot), generic.Zero))
}

func (o option) exerciseAmount(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
	spot, err := env.Observe(o.underlier, t, s, terms)
	if err != nil {
		return generic.Zero, err
	}
	return o.role.Mul(o.quantity).Mul(o.intrinsic(spot)), nil
}

func optnsRecipe(req Request) (generic.Recipe, error) {
	o, err := readOption(req.Terms)
	if err != nil {
		return generic.Recipe{}, err
	}
	return generic.Recipe{
		Name: OPTNS.String(),
		Bindings: generic.BindingTable{
			generic.EventAD:  {Name: "observe-position"},
			generic.EventPRD: o.purchase(),
			generic.EventTD:  o.terminate(),
			generic.EventXD:  exercise("exercise-option", o.exerciseAmount),
			generic.EventSTD: settlement(),
			generic.EventMD:  maturityClose(),
		},
		Schedule: func(b *generic.Builder) error {
			if err := schedulePurchase(b); err != nil {
				return err
			}
			// Early exercise of American and Bermudan options arrives as
			// contingent XD events; the final date always exercises.
			if err := b.At(generic.EventXD, o.exerciseEnd); err != nil {
				return err
			}
			if md, ok := o.maturity.Get(); ok {
				return b.At(generic.EventMD, md)
			}
			return nil
		},
		Contingent:   o.exerciseType != ExerciseEuropean,
		Rewrites:     []generic.Rewrite{generic.SettleAfter(generic.EventXD)},
		InitialState: o.initialState,
	}, nil
}

// =============================================================================
// FUTUR - Future
// =============================================================================

func futurRecipe(req Request) (generic.Recipe, error) {
	r := read(req.Terms)
	p := readPosition(r)
	price := r.dec(generic.AttrFuturesPrice)
	md := r.date(generic.AttrMaturityDate)
	if r.err != nil {
		return generic.Recipe{}, r.err
	}
	underlier, err := underlierSeries(req.Terms)
	if err != nil {
		return generic.Recipe{}, err
	}
	amount := func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
		spot, err := env.Observe(underlier, t, s, terms)
		if err != nil {
			return generic.Zero, err
		}
		return p.role.Mul(p.quantity).Mul(spot.Sub(price)), nil
	}
	return generic.Recipe{
		Name: FUTUR.String(),
		Bindings: generic.BindingTable{
			generic.EventAD:  {Name: "observe-position"},
			generic.EventPRD: p.purchase(),
			generic.EventTD:  p.terminate(),
			generic.EventXD:  exercise("expire-future", amount),
			generic.EventSTD: settlement(),
		},
		Schedule: func(b *generic.Builder) error {
			if err := schedulePurchase(b); err != nil {
				return err
			}
			return b.At(generic.EventXD, md)
		},
		Contingent:   true,
		Rewrites:     []generic.Rewrite{generic.SettleAfter(generic.EventXD)},
		InitialState: p.initialState,
	}, nil
}

// =============================================================================
// CDS - Credit default swap
// =============================================================================
//
// The protection buyer (role BUY) pays a premium accrued at feeRate on the
// notional. The first credit event of the reference entity fixes the
// protection payment, settled one settlementPeriod later; premiums stop.

type creditSwap struct {
	role        decimal.Decimal
	statusDate  time.Time
	notional    decimal.Decimal
	feeRate     decimal.Decimal
	coverage    decimal.Decimal
	maturity    time.Time
	performance generic.Performance
}

func (c creditSwap) accrue(t time.Time, s generic.StateSpace, env generic.Environment) generic.StateSpace {
	y := yearFraction(env, s.StatusDate, t)
	s.FeeAccrued = s.FeeAccrued.Add(y.Mul(c.feeRate).Mul(s.NotionalPrincipal))
	s.StatusDate = generic.MaxTime(s.StatusDate, t)
	return s
}

func (c creditSwap) premium() generic.Binding {
	return generic.Binding{
		Name: "pay-premium",
		Payoff: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
			if !s.ExerciseDate.IsZero() {
				return generic.Zero, nil
			}
			return c.accrue(t, s, env).FeeAccrued.Neg(), nil
		},
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			s = c.accrue(t, s, env)
			s.FeeAccrued = generic.Zero
			return s, nil
		},
	}
}

func (c creditSwap) bindings() generic.BindingTable {
	protection := func(time.Time, generic.StateSpace, *generic.Terms, generic.Environment) (decimal.Decimal, error) {
		return c.role.Mul(c.notional).Mul(c.coverage), nil
	}
	return generic.BindingTable{
		generic.EventAD: {
			Name: "accrue-premium",
			Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
				return c.accrue(t, s, env), nil
			},
		},
		generic.EventFP:  c.premium(),
		generic.EventCE:  exercise("trigger-protection", protection),
		generic.EventSTD: settlement(),
		generic.EventMD: {
			Name: "expire-protection",
			Payoff: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
				if !s.ExerciseDate.IsZero() {
					return generic.Zero, nil
				}
				return c.accrue(t, s, env).FeeAccrued.Neg(), nil
			},
			Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (generic.StateSpace, error) {
				return closed(t, s), nil
			},
		},
	}
}

func cdsRecipe(req Request) (generic.Recipe, error) {
	r := read(req.Terms)
	c := creditSwap{
		role:        r.roleSign(),
		statusDate:  r.statusDate(),
		notional:    r.dec(generic.AttrNotionalPrincipal),
		feeRate:     r.decOr(generic.AttrFeeRate, generic.Zero),
		coverage:    r.decOr(generic.AttrCoverageOfCreditEnhancement, generic.One),
		maturity:    r.date(generic.AttrMaturityDate),
		performance: r.performance(),
	}
	covered := generic.Performance(r.strOr(generic.AttrCreditEventTypeCovered, string(generic.PerformanceDefault)))
	if r.err != nil {
		return generic.Recipe{}, r.err
	}
	events, err := coveredEvents(req)
	if err != nil {
		return generic.Recipe{}, err
	}

	return generic.Recipe{
		Name:     CDS.String(),
		Bindings: c.bindings(),
		Schedule: func(b *generic.Builder) error {
			if err := b.CycleFrom(generic.EventFP, generic.AttrCycleAnchorDateOfFee, generic.AttrCycleOfFee, c.statusDate, c.maturity, true); err != nil {
				return err
			}
			if at, ok := firstCreditEvent(events, covered, c.statusDate, c.maturity); ok {
				if err := b.At(generic.EventCE, at); err != nil {
					return err
				}
			}
			return b.At(generic.EventMD, c.maturity)
		},
		Contingent:   true,
		Rewrites:     []generic.Rewrite{generic.SettleAfter(generic.EventCE)},
		InitialState: c.initialState,
	}, nil
}

func (c creditSwap) initialState(*generic.Terms, generic.Environment) (generic.StateSpace, error) {
	s := generic.NewStateSpace(c.statusDate, c.role)
	s.ContractPerformance = c.performance
	s.NotionalPrincipal = c.role.Mul(c.notional)
	s.MaturityDate = c.maturity
	return s, nil
}

// =============================================================================
// MAR - Margining account
// =============================================================================
//
// The holder posts the initial margin at IED. On every margining date the
// change of the position's market value since the last call is settled as
// variation margin. With maintenance bounds, a call is only made once the
// margin account (initial margin plus the unsettled change) leaves them.

type marginAccount struct {
	role          decimal.Decimal
	statusDate    time.Time
	ied           generic.Optional[time.Time]
	maturity      generic.Optional[time.Time]
	initialMargin decimal.Decimal
	lower         generic.Optional[decimal.Decimal]
	upper         generic.Optional[decimal.Decimal]
	marketObject  string
}

func readMarginAccount(terms *generic.Terms) (marginAccount, error) {
	r := read(terms)
	m := marginAccount{
		role:          r.roleSign(),
		statusDate:    r.statusDate(),
		ied:           r.optDate(generic.AttrInitialExchangeDate),
		maturity:      r.optDate(generic.AttrMaturityDate),
		initialMargin: r.dec(generic.AttrInitialMargin),
		lower:         r.optDec(generic.AttrMaintenanceMarginLowerBound),
		upper:         r.optDec(generic.AttrMaintenanceMarginUpperBound),
		marketObject:  r.str(generic.AttrMarketObjectCode),
	}
	return m, r.err
}

// value observes the market value; an account without an observation yet
// starts from zero.
func (m marginAccount) value(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
	v, err := env.Observe(m.marketObject, t, s, terms)
	if errors.Is(err, generic.ErrMissingObservation) {
		return generic.Zero, nil
	}
	return v, err
}

// call returns the variation to settle at t and whether a call is made.
func (m marginAccount) call(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (decimal.Decimal, decimal.Decimal, bool, error) {
	v, err := env.Observe(m.marketObject, t, s, terms)
	if err != nil {
		return generic.Zero, v, false, err
	}
	change := v.Sub(s.MarketValue)
	balance := m.initialMargin.Add(change)
	lower, hasLower := m.lower.Get()
	upper, hasUpper := m.upper.Get()
	if !hasLower && !hasUpper {
		return change, v, true, nil
	}
	if (hasLower && balance.LessThan(lower)) || (hasUpper && balance.GreaterThan(upper)) {
		return change, v, true, nil
	}
	return generic.Zero, v, false, nil
}

func (m marginAccount) bindings() generic.BindingTable {
	return generic.BindingTable{
		generic.EventAD: {Name: "observe-margin"},
		generic.EventIED: {
			Name: "post-initial-margin",
			Payoff: func(time.Time, generic.StateSpace, *generic.Terms, generic.Environment) (decimal.Decimal, error) {
				return m.role.Mul(m.initialMargin).Neg(), nil
			},
			Transition: func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
				return m.open(t, s, terms, env)
			},
		},
		generic.EventMR: {
			Name: "settle-variation-margin",
			Payoff: func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
				change, _, _, err := m.call(t, s, terms, env)
				return m.role.Mul(change), err
			},
			Transition: func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
				change, v, called, err := m.call(t, s, terms, env)
				if err != nil {
					return s, err
				}
				s.StatusDate = t
				if called {
					s.MarketValue = v
					s.VariationMargin = s.VariationMargin.Add(m.role.Mul(change))
				}
				return s, nil
			},
		},
		generic.EventMD: {
			Name: "return-margin",
			Payoff: func(_ time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (decimal.Decimal, error) {
				return s.NotionalPrincipal, nil
			},
			Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (generic.StateSpace, error) {
				return closed(t, s), nil
			},
		},
	}
}

func (m marginAccount) open(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
	v, err := m.value(t, s, terms, env)
	if err != nil {
		return s, err
	}
	s.StatusDate = t
	s.NotionalPrincipal = m.role.Mul(m.initialMargin)
	s.MarketValue = v
	return s, nil
}

func marRecipe(req Request) (generic.Recipe, error) {
	m, err := readMarginAccount(req.Terms)
	if err != nil {
		return generic.Recipe{}, err
	}
	md, matures := m.maturity.Get()
	end := md
	if !matures {
		end = req.horizon()
	}
	start := m.ied.OrElse(m.statusDate)

	return generic.Recipe{
		Name:     MAR.String(),
		Bindings: m.bindings(),
		Schedule: func(b *generic.Builder) error {
			if !end.IsZero() && !end.Before(start) {
				if err := b.CycleFrom(generic.EventMR, generic.AttrCycleAnchorDateOfMargining, generic.AttrCycleOfMargining, start, end, false); err != nil {
					return err
				}
			}
			if matures {
				return b.At(generic.EventMD, md)
			}
			return nil
		},
		Contingent: true,
		InitialState: func(terms *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			s := generic.NewStateSpace(m.statusDate, m.role)
			s.MaturityDate = md
			if ied, ok := m.ied.Get(); !ok || ied.Before(m.statusDate) {
				return m.open(m.statusDate, s, terms, env)
			}
			return s, nil
		},
	}, nil
}
