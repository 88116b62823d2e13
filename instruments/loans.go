package instruments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-engine/generic"
)

// =============================================================================
// PAM - Principal at maturity
// =============================================================================

func pamRecipe(req Request) (generic.Recipe, error) {
	l, err := readLoan(req.Terms)
	if err != nil {
		return generic.Recipe{}, err
	}
	md, err := req.Terms.Date(generic.AttrMaturityDate)
	if err != nil {
		return generic.Recipe{}, err
	}
	return generic.Recipe{
		Name:     PAM.String(),
		Bindings: l.bindings(),
		Schedule: func(b *generic.Builder) error {
			if err := l.scheduleCommon(b, md); err != nil {
				return err
			}
			return b.At(generic.EventMD, md)
		},
		Contingent: true,
		Rewrites: []generic.Rewrite{
			generic.CapitalizeInterest(),
			generic.FixFirstReset(),
			l.penalizePrepayments(),
		},
		InitialState: l.initialState,
	}, nil
}

// =============================================================================
// LAM / NAM / ANN - Amortizers
// =============================================================================

// amortizer is a loan repaid in installments on a principal redemption
// cycle.
type amortizer struct {
	loan
	// negative installments include interest; the principal portion is
	// what is left after interest and may be negative.
	negative bool
	// annuity installments are recomputed on every rate reset.
	annuity bool
	anchor  time.Time
	cycle   string
	// dates is the redemption schedule, maturity included.
	dates []time.Time
}

func readAmortizer(req Request, ct ContractType) (amortizer, error) {
	l, err := readLoan(req.Terms)
	if err != nil {
		return amortizer{}, err
	}
	r := read(req.Terms)
	anchorOpt := r.optDate(generic.AttrCycleAnchorDateOfPrincipalRedemption)
	cycleOpt := r.optCycle(generic.AttrCycleOfPrincipalRedemption)
	eom := generic.EndOfMonthConvention(r.strOr(generic.AttrEndOfMonthConvention, string(generic.EOMSameDay)))
	if r.err != nil {
		return amortizer{}, r.err
	}

	a := amortizer{loan: l, negative: ct == NAM || ct == ANN, annuity: ct == ANN}
	cycle, ok := cycleOpt.Get()
	if !ok {
		return amortizer{}, &generic.AttributeError{Attribute: generic.AttrCycleOfPrincipalRedemption, Want: generic.KindCycle, Reason: "missing"}
	}
	a.cycle = cycle
	a.anchor, ok = anchorOpt.Get()
	if !ok {
		a.anchor, err = req.Env.Schedules.Advance(l.start(), cycle, 1)
		if err != nil {
			return amortizer{}, err
		}
	}

	md, ok := l.maturity.Get()
	if !ok {
		if l.payment.IsZero() {
			return amortizer{}, &generic.AttributeError{
				Attribute: generic.AttrNextPrincipalRedemptionPayment,
				Want:      generic.KindDecimal,
				Reason:    "required when maturityDate is absent",
			}
		}
		md, err = generic.InferMaturity(generic.MaturityInput{
			StatusDate:  l.statusDate,
			Anchor:      a.anchor,
			Cycle:       cycle,
			EOM:         eom,
			Notional:    l.notional,
			Installment: l.payment,
			Rate:        l.rate,
			WithCoupon:  a.negative,
		}, req.Env.Schedules, req.Env.DayCounter)
		if err != nil {
			return amortizer{}, err
		}
		a.maturity = generic.Some(md)
	}

	a.dates, err = req.Env.Schedules.Expand(a.anchor, md, cycle, eom, true)
	if err != nil {
		return amortizer{}, err
	}

	if a.payment.IsZero() {
		switch ct {
		case LAM:
			a.payment = l.notional.Div(decimal.NewFromInt(int64(len(a.dates))))
		case ANN:
			from := generic.MaxTime(l.start(), l.statusDate)
			a.payment = annuity(l.notional.Add(l.accrued), l.rate, from, after(a.dates, from), req.Env.DayCounter)
		default:
			return amortizer{}, &generic.AttributeError{Attribute: generic.AttrNextPrincipalRedemptionPayment, Want: generic.KindDecimal, Reason: "missing"}
		}
	}
	return a, nil
}

// after returns the dates strictly after t.
func after(dates []time.Time, t time.Time) []time.Time {
	for i, d := range dates {
		if d.After(t) {
			return dates[i:]
		}
	}
	return nil
}

// annuity returns the level installment that repays notional, interest
// included, over the periods from..dates[0], dates[0]..dates[1], ... at the
// given rate.
func annuity(notional, rate decimal.Decimal, from time.Time, dates []time.Time, dc generic.DayCounter) decimal.Decimal {
	if len(dates) == 0 {
		return notional
	}
	discount, sum := generic.One, generic.Zero
	prev := from
	for _, d := range dates {
		growth := generic.One.Add(rate.Mul(dc.YearFraction(prev, d)))
		discount = discount.Div(growth)
		sum = sum.Add(discount)
		prev = d
	}
	return notional.Div(sum)
}

func (a amortizer) redeemed(t time.Time, s generic.StateSpace, env generic.Environment) (generic.StateSpace, decimal.Decimal) {
	s = a.accrue(t, s, env)
	amount := s.NextPrincipalRedemptionPayment
	if a.negative {
		amount = amount.Sub(s.AccruedInterest)
	}
	return s, capAt(amount, s.NotionalPrincipal)
}

func (a amortizer) redemption() generic.Binding {
	return performing(generic.Binding{
		Name: "redeem-principal",
		Payoff: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
			s, amount := a.redeemed(t, s, env)
			return s.NotionalScalingMultiplier.Mul(amount), nil
		},
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			s, amount := a.redeemed(t, s, env)
			s.NotionalPrincipal = s.NotionalPrincipal.Sub(amount)
			return a.followNotional(s), nil
		},
	})
}

// reprice recomputes the annuity installment over the remaining schedule.
func (a amortizer) reprice(t time.Time, s generic.StateSpace, env generic.Environment) generic.StateSpace {
	outstanding := s.NotionalPrincipal.Add(s.AccruedInterest)
	s.NextPrincipalRedemptionPayment = annuity(outstanding, s.NominalInterestRate, t, after(a.dates, t), env.DayCounter)
	return s
}

func (a amortizer) bindings() generic.BindingTable {
	bt := a.loan.bindings()
	bt[generic.EventPR] = a.redemption()
	if a.annuity {
		bt[generic.EventRR] = a.rateResetWith(a.reprice)
		bt[generic.EventRRF] = a.fixedRateReset(a.reprice)
	}
	return bt
}

func (a amortizer) recipe(ct ContractType) generic.Recipe {
	md := a.maturity.OrElse(time.Time{})
	return generic.Recipe{
		Name:     ct.String(),
		Bindings: a.bindings(),
		Schedule: func(b *generic.Builder) error {
			b.Maturity = md
			if err := a.scheduleCommon(b, md); err != nil {
				return err
			}
			// Installments that include interest pay it on the redemption
			// dates unless an interest cycle says otherwise.
			hasIP := b.Terms.Has(generic.AttrCycleOfInterestPayment) || b.Terms.Has(generic.AttrCycleAnchorDateOfInterestPayment)
			if a.negative && !hasIP {
				if err := b.Cycle(generic.EventIP, a.anchor, md, a.cycle, true); err != nil {
					return err
				}
			}
			bind, err := b.Binding(generic.EventPR)
			if err != nil {
				return err
			}
			for _, e := range generic.MakeSchedule(a.dates, generic.EventPR, b.Currency(), bind, b.Env.Adjuster) {
				if err := b.Add(e); err != nil {
					return err
				}
			}
			return b.At(generic.EventMD, md)
		},
		Contingent: true,
		Rewrites: []generic.Rewrite{
			generic.MatureFinalRedemption(),
			generic.CapitalizeInterest(),
			generic.FixFirstReset(),
			a.penalizePrepayments(),
		},
		InitialState: a.initialState,
	}
}

func amortizerRecipe(ct ContractType) func(Request) (generic.Recipe, error) {
	return func(req Request) (generic.Recipe, error) {
		a, err := readAmortizer(req, ct)
		if err != nil {
			return generic.Recipe{}, err
		}
		return a.recipe(ct), nil
	}
}

var (
	lamRecipe = amortizerRecipe(LAM)
	namRecipe = amortizerRecipe(NAM)
	annRecipe = amortizerRecipe(ANN)
)

// =============================================================================
// CLM - Call money
// =============================================================================

// callMaturity returns the maturity of an open-ended contract: the declared
// maturity, else the first call (XD) from the risk-factor source plus the
// notice period. The second result is false when neither exists.
func callMaturity(req Request, l loan) (time.Time, bool, error) {
	if md, ok := l.maturity.Get(); ok {
		return md, true, nil
	}
	if req.Env.RiskFactors == nil {
		return time.Time{}, false, nil
	}
	notice, err := req.Terms.OptCycle(generic.AttrXDayNotice)
	if err != nil {
		return time.Time{}, false, err
	}
	events, err := req.Env.RiskFactors.UnscheduledEvents(req.Terms)
	if err != nil {
		return time.Time{}, false, err
	}
	for _, e := range events {
		if e.Type != generic.EventXD || e.ScheduleTime.Before(l.statusDate) {
			continue
		}
		md := e.ScheduleTime
		if n, ok := notice.Get(); ok {
			md, err = req.Env.Schedules.Advance(md, n, 1)
			if err != nil {
				return time.Time{}, false, err
			}
		}
		return md, true, nil
	}
	return time.Time{}, false, nil
}

func (l loan) callNotice() generic.Binding {
	return generic.Binding{
		Name: "call",
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			return l.accrue(t, s, env), nil
		},
	}
}

// scheduleOpenEnded adds the capitalization, reset and fee cycles of a
// contract without a fixed maturity, up to end.
func (l loan) scheduleOpenEnded(b *generic.Builder, end time.Time) error {
	start := l.start()
	if end.IsZero() || end.Before(start) {
		return nil
	}
	if err := b.CycleFrom(generic.EventIPCI, generic.AttrCycleAnchorDateOfInterestPayment, generic.AttrCycleOfInterestPayment, start, end, false); err != nil {
		return err
	}
	if err := b.CycleFrom(generic.EventRR, generic.AttrCycleAnchorDateOfRateReset, generic.AttrCycleOfRateReset, start, end, false); err != nil {
		return err
	}
	if !l.feeRate.IsZero() {
		return b.CycleFrom(generic.EventFP, generic.AttrCycleAnchorDateOfFee, generic.AttrCycleOfFee, start, end, false)
	}
	return nil
}

func clmRecipe(req Request) (generic.Recipe, error) {
	l, err := readLoan(req.Terms)
	if err != nil {
		return generic.Recipe{}, err
	}
	md, matures, err := callMaturity(req, l)
	if err != nil {
		return generic.Recipe{}, err
	}
	end := md
	if !matures {
		end = req.horizon()
	}

	bt := l.bindings()
	bt[generic.EventXD] = l.callNotice()
	return generic.Recipe{
		Name:     CLM.String(),
		Bindings: bt,
		Schedule: func(b *generic.Builder) error {
			if err := l.scheduleOpenEnded(b, end); err != nil {
				return err
			}
			if !matures {
				return nil
			}
			b.Maturity = md
			return b.At(generic.EventMD, md)
		},
		Contingent:   true,
		Rewrites:     []generic.Rewrite{generic.FixFirstReset()},
		InitialState: l.initialState,
	}, nil
}

// =============================================================================
// UMP - Undefined maturity profile
// =============================================================================

// seriesAmount reads the unsigned amount of a contingent principal event.
func (l loan) seriesAmount(typ generic.EventType, t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
	v, err := env.Observe(generic.EventSeries(l.id, typ), t, s, terms)
	return v.Abs(), err
}

func (l loan) unscheduledRedemption() generic.Binding {
	amount := func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (generic.StateSpace, decimal.Decimal, error) {
		s = l.accrue(t, s, env)
		v, err := l.seriesAmount(generic.EventPR, t, s, terms, env)
		return s, capAt(l.role.Mul(v), s.NotionalPrincipal), err
	}
	return performing(generic.Binding{
		Name: "redeem-principal-unscheduled",
		Payoff: func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
			_, v, err := amount(t, s, terms, env)
			return v, err
		},
		Transition: func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			s, v, err := amount(t, s, terms, env)
			s.NotionalPrincipal = s.NotionalPrincipal.Sub(v)
			return l.followNotional(s), err
		},
	})
}

func (l loan) principalIncrease() generic.Binding {
	return generic.Binding{
		Name: "increase-principal",
		Payoff: func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
			v, err := l.seriesAmount(generic.EventPI, t, s, terms, env)
			return l.role.Mul(v).Neg(), err
		},
		Transition: func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			s = l.accrue(t, s, env)
			v, err := l.seriesAmount(generic.EventPI, t, s, terms, env)
			s.NotionalPrincipal = s.NotionalPrincipal.Add(l.role.Mul(v))
			return l.followNotional(s), err
		},
	}
}

func umpRecipe(req Request) (generic.Recipe, error) {
	l, err := readLoan(req.Terms)
	if err != nil {
		return generic.Recipe{}, err
	}
	md, matures := l.maturity.Get()
	end := md
	if !matures {
		end = req.horizon()
	}

	bt := l.bindings()
	bt[generic.EventPR] = l.unscheduledRedemption()
	bt[generic.EventPI] = l.principalIncrease()
	return generic.Recipe{
		Name:     UMP.String(),
		Bindings: bt,
		Schedule: func(b *generic.Builder) error {
			if err := l.scheduleOpenEnded(b, end); err != nil {
				return err
			}
			if !matures {
				return nil
			}
			return b.At(generic.EventMD, md)
		},
		Contingent:   true,
		Rewrites:     []generic.Rewrite{generic.FixFirstReset()},
		InitialState: l.initialState,
	}, nil
}
