package instruments

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-engine/generic"
)

// =============================================================================
// FORMULA LIBRARY - Payoffs and state transitions shared by lending contracts
// =============================================================================
//
// Amounts in the state are signed by the contract role: an asset-side
// notional is positive, a liability-side notional negative. Payoffs are
// therefore positive when the holder receives cash.
//
// Interest accrues as rate x interest calculation base x year fraction.
// Every transition first brings accruals forward to the event's schedule
// time, so formulas stay correct however many events share a period.

// Fee bases.
const (
	FeeAbsolute = "A"
	FeeNotional = "N"
)

// Interest calculation bases.
const (
	BaseNotional       = "NT"    // follows the notional
	BaseNotionalAtIED  = "NTIED" // fixed at the initial exchange
	BaseNotionalLagged = "NTL"   // revised on the IPCB cycle only
)

// Penalty types.
const (
	PenaltyNone     = "O"
	PenaltyAbsolute = "A"
	PenaltyNotional = "N"
)

// yearFraction measures between calculation times, so shift-calculate
// conventions accrue to the shifted dates.
func yearFraction(env generic.Environment, from, to time.Time) decimal.Decimal {
	from, to = env.CalcTime(from), env.CalcTime(to)
	if !to.After(from) {
		return generic.Zero
	}
	return env.DayCounter.YearFraction(from, to)
}

// performing zeroes the payoff once the contract stops performing.
func performing(b generic.Binding) generic.Binding {
	pof := b.Payoff
	if pof == nil {
		return b
	}
	b.Payoff = func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
		if !s.ContractPerformance.Performing() {
			return generic.Zero, nil
		}
		return pof(t, s, terms, env)
	}
	return b
}

// =============================================================================
// RATE RESET
// =============================================================================

// rateReset is the floating-rate terms of a contract.
type rateReset struct {
	marketObject string
	spread       decimal.Decimal
	multiplier   decimal.Decimal
	// periodFloor is the most negative change allowed per reset.
	periodCap   generic.Optional[decimal.Decimal]
	periodFloor generic.Optional[decimal.Decimal]
	lifeCap     generic.Optional[decimal.Decimal]
	lifeFloor   generic.Optional[decimal.Decimal]
	next        generic.Optional[decimal.Decimal]
}

func readRateReset(r *termReader) rateReset {
	return rateReset{
		marketObject: r.strOr(generic.AttrMarketObjectCodeOfRateReset, ""),
		spread:       r.decOr(generic.AttrRateSpread, generic.Zero),
		multiplier:   r.decOr(generic.AttrRateMultiplier, generic.One),
		periodCap:    r.optDec(generic.AttrPeriodCap),
		periodFloor:  r.optDec(generic.AttrPeriodFloor),
		lifeCap:      r.optDec(generic.AttrLifeCap),
		lifeFloor:    r.optDec(generic.AttrLifeFloor),
		next:         r.optDec(generic.AttrNextResetRate),
	}
}

// apply returns the new rate from an observation: multiplier and spread,
// then the per-period change bounds, then the lifetime bounds.
func (rr rateReset) apply(current, observed decimal.Decimal) decimal.Decimal {
	delta := observed.Mul(rr.multiplier).Add(rr.spread).Sub(current)
	if c, ok := rr.periodCap.Get(); ok {
		delta = generic.MinDecimal(delta, c)
	}
	if f, ok := rr.periodFloor.Get(); ok {
		delta = generic.MaxDecimal(delta, f)
	}
	rate := current.Add(delta)
	if c, ok := rr.lifeCap.Get(); ok {
		rate = generic.MinDecimal(rate, c)
	}
	if f, ok := rr.lifeFloor.Get(); ok {
		rate = generic.MaxDecimal(rate, f)
	}
	return rate
}

// observe reads the reference rate at t.
func (rr rateReset) observe(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
	if rr.marketObject == "" {
		return generic.Zero, &generic.AttributeError{
			Attribute: generic.AttrMarketObjectCodeOfRateReset,
			Want:      generic.KindString,
			Reason:    "required by a rate reset schedule",
		}
	}
	return env.Observe(rr.marketObject, t, s, terms)
}

// =============================================================================
// LOAN
// =============================================================================

// loan is the resolved terms of a lending contract.
type loan struct {
	id         generic.ContractID
	role       decimal.Decimal
	statusDate time.Time
	ied        generic.Optional[time.Time]
	maturity   generic.Optional[time.Time]

	notional   decimal.Decimal
	rate       decimal.Decimal
	accrued    decimal.Decimal
	premium    decimal.Decimal
	feeRate    decimal.Decimal
	feeBasis   string
	feeAccrued decimal.Decimal

	// payment is the unsigned installment; zero for bullet contracts.
	payment   decimal.Decimal
	base      string
	baseValue generic.Optional[decimal.Decimal]

	purchasePrice    decimal.Decimal
	terminationPrice decimal.Decimal
	penaltyType      string
	penaltyRate      decimal.Decimal
	performance      generic.Performance

	reset rateReset

	scalingEffect string
	scalingIndex  decimal.Decimal
	scalingObject string
}

func readLoan(terms *generic.Terms) (loan, error) {
	r := read(terms)
	l := loan{
		id:         terms.ContractID(),
		role:       r.roleSign(),
		statusDate: r.statusDate(),
		ied:        r.optDate(generic.AttrInitialExchangeDate),
		maturity:   r.optDate(generic.AttrMaturityDate),

		notional:   r.dec(generic.AttrNotionalPrincipal),
		rate:       r.decOr(generic.AttrNominalInterestRate, generic.Zero),
		accrued:    r.decOr(generic.AttrAccruedInterest, generic.Zero),
		premium:    r.decOr(generic.AttrPremiumDiscountAtIED, generic.Zero),
		feeRate:    r.decOr(generic.AttrFeeRate, generic.Zero),
		feeBasis:   r.strOr(generic.AttrFeeBasis, FeeNotional),
		feeAccrued: r.decOr(generic.AttrFeeAccrued, generic.Zero),

		payment:   r.decOr(generic.AttrNextPrincipalRedemptionPayment, generic.Zero).Abs(),
		base:      r.strOr(generic.AttrInterestCalculationBase, BaseNotional),
		baseValue: r.optDec(generic.AttrInterestCalculationBaseAmount),

		purchasePrice:    r.decOr(generic.AttrPriceAtPurchaseDate, generic.Zero),
		terminationPrice: r.decOr(generic.AttrPriceAtTerminationDate, generic.Zero),
		penaltyType:      r.strOr(generic.AttrPenaltyType, PenaltyNone),
		penaltyRate:      r.decOr(generic.AttrPenaltyRate, generic.Zero),
		performance:      r.performance(),

		reset: readRateReset(r),

		scalingEffect: r.strOr(generic.AttrScalingEffect, ""),
		scalingIndex:  r.decOr(generic.AttrScalingIndexAtStatusDate, generic.One),
		scalingObject: r.strOr(generic.AttrMarketObjectCodeOfScalingIndex, ""),
	}
	if r.err != nil {
		return loan{}, r.err
	}
	switch l.feeBasis {
	case FeeAbsolute, FeeNotional:
	default:
		return loan{}, &generic.AttributeError{Attribute: generic.AttrFeeBasis, Want: generic.KindString, Reason: "want A or N"}
	}
	switch l.base {
	case BaseNotional, BaseNotionalAtIED, BaseNotionalLagged:
	default:
		return loan{}, &generic.AttributeError{Attribute: generic.AttrInterestCalculationBase, Want: generic.KindString, Reason: "want NT, NTIED or NTL"}
	}
	return l, nil
}

// start is the initial exchange date, or the status date when the contract
// has no exchange.
func (l loan) start() time.Time {
	return l.ied.OrElse(l.statusDate)
}

// accrue brings interest and notional-based fees forward to t.
func (l loan) accrue(t time.Time, s generic.StateSpace, env generic.Environment) generic.StateSpace {
	y := yearFraction(env, s.StatusDate, t)
	s.AccruedInterest = s.AccruedInterest.Add(y.Mul(s.NominalInterestRate).Mul(s.InterestCalculationBaseAmount))
	if l.feeBasis == FeeNotional {
		s.FeeAccrued = s.FeeAccrued.Add(y.Mul(l.feeRate).Mul(s.NotionalPrincipal))
	}
	s.StatusDate = generic.MaxTime(s.StatusDate, t)
	return s
}

// followNotional keeps the calculation base in step with the notional
// unless the base is fixed or lagged.
func (l loan) followNotional(s generic.StateSpace) generic.StateSpace {
	if l.base == BaseNotional {
		s.InterestCalculationBaseAmount = s.NotionalPrincipal
	}
	return s
}

// open is the state right after the initial exchange.
func (l loan) open(t time.Time, s generic.StateSpace) generic.StateSpace {
	s.StatusDate = t
	s.NotionalPrincipal = l.role.Mul(l.notional)
	s.NominalInterestRate = l.rate
	s.AccruedInterest = l.role.Mul(l.accrued)
	s.FeeAccrued = l.role.Mul(l.feeAccrued)
	s.InterestCalculationBaseAmount = s.NotionalPrincipal
	if v, ok := l.baseValue.Get(); ok && l.base != BaseNotional {
		s.InterestCalculationBaseAmount = l.role.Mul(v)
	}
	s.NextPrincipalRedemptionPayment = l.role.Mul(l.payment)
	return s
}

// closed is the state after maturity or termination.
func closed(t time.Time, s generic.StateSpace) generic.StateSpace {
	s.StatusDate = t
	s.NotionalPrincipal = generic.Zero
	s.AccruedInterest = generic.Zero
	s.AccruedInterest2 = generic.Zero
	s.FeeAccrued = generic.Zero
	s.InterestCalculationBaseAmount = generic.Zero
	s.NextPrincipalRedemptionPayment = generic.Zero
	return s
}

// initialState is the state as of the status date: open when the exchange
// already happened, empty otherwise.
func (l loan) initialState(*generic.Terms, generic.Environment) (generic.StateSpace, error) {
	s := generic.NewStateSpace(l.statusDate, l.role)
	s.ContractPerformance = l.performance
	s.MaturityDate = l.maturity.OrElse(time.Time{})
	if ied, ok := l.ied.Get(); !ok || ied.Before(l.statusDate) {
		s = l.open(l.statusDate, s)
	}
	return s, nil
}

// =============================================================================
// LOAN BINDINGS
// =============================================================================

func (l loan) analysis() generic.Binding {
	return generic.Binding{
		Name: "accrue",
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			return l.accrue(t, s, env), nil
		},
	}
}

func (l loan) initialExchange() generic.Binding {
	return generic.Binding{
		Name: "exchange-notional",
		Payoff: func(time.Time, generic.StateSpace, *generic.Terms, generic.Environment) (decimal.Decimal, error) {
			return l.role.Mul(l.notional.Add(l.premium)).Neg(), nil
		},
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (generic.StateSpace, error) {
			return l.open(t, s), nil
		},
	}
}

func (l loan) interestPayment() generic.Binding {
	return performing(generic.Binding{
		Name: "pay-interest",
		Payoff: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
			s = l.accrue(t, s, env)
			return s.InterestScalingMultiplier.Mul(s.AccruedInterest), nil
		},
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			s = l.accrue(t, s, env)
			s.AccruedInterest = generic.Zero
			return s, nil
		},
	})
}

func (l loan) capitalization() generic.Binding {
	return generic.Binding{
		Name: "capitalize-interest",
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			s = l.accrue(t, s, env)
			s.NotionalPrincipal = s.NotionalPrincipal.Add(s.AccruedInterest)
			if l.base == BaseNotional {
				s.InterestCalculationBaseAmount = s.NotionalPrincipal
			} else {
				s.InterestCalculationBaseAmount = s.InterestCalculationBaseAmount.Add(s.AccruedInterest)
			}
			s.AccruedInterest = generic.Zero
			return s, nil
		},
	}
}

func (l loan) feePayment() generic.Binding {
	return performing(generic.Binding{
		Name: "pay-fee",
		Payoff: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
			if l.feeBasis == FeeAbsolute {
				return l.role.Mul(l.feeRate), nil
			}
			return l.accrue(t, s, env).FeeAccrued, nil
		},
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			s = l.accrue(t, s, env)
			s.FeeAccrued = generic.Zero
			return s, nil
		},
	})
}

func (l loan) maturityRedemption() generic.Binding {
	return performing(generic.Binding{
		Name: "redeem-at-maturity",
		Payoff: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
			s = l.accrue(t, s, env)
			return s.NotionalScalingMultiplier.Mul(s.NotionalPrincipal).
				Add(s.InterestScalingMultiplier.Mul(s.AccruedInterest)).
				Add(s.FeeAccrued), nil
		},
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (generic.StateSpace, error) {
			return closed(t, s), nil
		},
	})
}

func (l loan) purchase() generic.Binding {
	return generic.Binding{
		Name: "purchase",
		Payoff: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
			s = l.accrue(t, s, env)
			return l.role.Mul(l.purchasePrice).Add(s.AccruedInterest).Neg(), nil
		},
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			return l.accrue(t, s, env), nil
		},
	}
}

func (l loan) termination() generic.Binding {
	return generic.Binding{
		Name: "terminate",
		Payoff: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
			s = l.accrue(t, s, env)
			return l.role.Mul(l.terminationPrice).Add(s.AccruedInterest), nil
		},
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (generic.StateSpace, error) {
			return closed(t, s), nil
		},
	}
}

// prepaid returns the signed amount a prepayment at t repays: the observed
// amount of the contract's PP series, or the whole notional when the series
// has no observation.
func (l loan) prepaid(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
	amount, err := env.Observe(generic.EventSeries(l.id, generic.EventPP), t, s, terms)
	if errors.Is(err, generic.ErrMissingObservation) {
		return s.NotionalPrincipal, nil
	}
	if err != nil {
		return generic.Zero, err
	}
	return capAt(l.role.Mul(amount.Abs()), s.NotionalPrincipal), nil
}

// capAt limits a redemption to the outstanding notional.
func capAt(amount, outstanding decimal.Decimal) decimal.Decimal {
	if amount.Sign() == outstanding.Sign() && amount.Abs().GreaterThan(outstanding.Abs()) {
		return outstanding
	}
	return amount
}

func (l loan) prepayment() generic.Binding {
	return generic.Binding{
		Name: "prepay",
		Payoff: func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
			s = l.accrue(t, s, env)
			amount, err := l.prepaid(t, s, terms, env)
			return s.NotionalScalingMultiplier.Mul(amount), err
		},
		Transition: func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			s = l.accrue(t, s, env)
			amount, err := l.prepaid(t, s, terms, env)
			if err != nil {
				return s, err
			}
			s.NotionalPrincipal = s.NotionalPrincipal.Sub(amount)
			return l.followNotional(s), nil
		},
	}
}

func (l loan) penalty() generic.Binding {
	return generic.Binding{
		Name: "prepayment-penalty",
		Payoff: func(time.Time, generic.StateSpace, *generic.Terms, generic.Environment) (decimal.Decimal, error) {
			if l.penaltyType == PenaltyAbsolute {
				return l.role.Mul(l.penaltyRate), nil
			}
			return generic.Zero, nil
		},
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			return l.accrue(t, s, env), nil
		},
	}
}

// notionalPenalty charges the penalty rate on the notional outstanding
// before the prepayment it follows.
func (l loan) notionalPenalty(prepaid decimal.Decimal) generic.Binding {
	b := l.penalty()
	b.Name = "prepayment-penalty-notional"
	b.Payoff = func(time.Time, generic.StateSpace, *generic.Terms, generic.Environment) (decimal.Decimal, error) {
		return l.penaltyRate.Mul(prepaid), nil
	}
	return b
}

// rateResetWith resets the nominal rate from the reference rate, then runs
// after (may be nil) on the new state.
func (l loan) rateResetWith(after func(t time.Time, s generic.StateSpace, env generic.Environment) generic.StateSpace) generic.Binding {
	return generic.Binding{
		Name: "reset-rate",
		Transition: func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			s = l.accrue(t, s, env)
			obs, err := l.reset.observe(t, s, terms, env)
			if err != nil {
				return s, err
			}
			s.NominalInterestRate = l.reset.apply(s.NominalInterestRate, obs)
			if after != nil {
				s = after(t, s, env)
			}
			return s, nil
		},
	}
}

func (l loan) fixedRateReset(after func(t time.Time, s generic.StateSpace, env generic.Environment) generic.StateSpace) generic.Binding {
	return generic.Binding{
		Name: "reset-rate-fixed",
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			s = l.accrue(t, s, env)
			next, ok := l.reset.next.Get()
			if !ok {
				return s, &generic.AttributeError{Attribute: generic.AttrNextResetRate, Want: generic.KindDecimal, Reason: "missing"}
			}
			s.NominalInterestRate = next
			if after != nil {
				s = after(t, s, env)
			}
			return s, nil
		},
	}
}

func (l loan) scalingRevision() generic.Binding {
	return generic.Binding{
		Name: "scale",
		Transition: func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			s = l.accrue(t, s, env)
			if l.scalingIndex.IsZero() {
				return s, &generic.AttributeError{Attribute: generic.AttrScalingIndexAtStatusDate, Want: generic.KindDecimal, Reason: "must not be zero"}
			}
			obs, err := env.Observe(l.scalingObject, t, s, terms)
			if err != nil {
				return s, err
			}
			ratio := obs.Div(l.scalingIndex)
			if strings.Contains(l.scalingEffect, "I") {
				s.InterestScalingMultiplier = ratio
			}
			if strings.Contains(l.scalingEffect, "N") {
				s.NotionalScalingMultiplier = ratio
			}
			return s, nil
		},
	}
}

func (l loan) baseRevision() generic.Binding {
	return generic.Binding{
		Name: "revise-calculation-base",
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			s = l.accrue(t, s, env)
			s.InterestCalculationBaseAmount = s.NotionalPrincipal
			return s, nil
		},
	}
}

// creditEvent marks the contract as defaulted; performing-dependent
// payoffs are zero from here on.
func (l loan) creditEvent() generic.Binding {
	return generic.Binding{
		Name: "default",
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			s = l.accrue(t, s, env)
			s.ContractPerformance = generic.PerformanceDefault
			s.NonPerformingDate = t
			return s, nil
		},
	}
}

// bindings is the table shared by every lending contract. Amortizers add
// their principal redemption binding on top.
func (l loan) bindings() generic.BindingTable {
	return generic.BindingTable{
		generic.EventAD:   l.analysis(),
		generic.EventIED:  l.initialExchange(),
		generic.EventIP:   l.interestPayment(),
		generic.EventIPCI: l.capitalization(),
		generic.EventRR:   l.rateResetWith(nil),
		generic.EventRRF:  l.fixedRateReset(nil),
		generic.EventFP:   l.feePayment(),
		generic.EventSC:   l.scalingRevision(),
		generic.EventIPCB: l.baseRevision(),
		generic.EventPRD:  l.purchase(),
		generic.EventTD:   l.termination(),
		generic.EventMD:   l.maturityRedemption(),
		generic.EventPP:   l.prepayment(),
		generic.EventPY:   l.penalty(),
		generic.EventCE:   l.creditEvent(),
	}
}

// =============================================================================
// LOAN SCHEDULES AND REWRITES
// =============================================================================

// scheduleCommon adds the sub-schedules every lending contract shares, up
// to end: interest, rate resets, fees, scaling and the purchase.
func (l loan) scheduleCommon(b *generic.Builder, end time.Time) error {
	start := l.start()
	if err := b.CycleFrom(generic.EventIP, generic.AttrCycleAnchorDateOfInterestPayment, generic.AttrCycleOfInterestPayment, start, end, true); err != nil {
		return err
	}
	if err := b.CycleFrom(generic.EventRR, generic.AttrCycleAnchorDateOfRateReset, generic.AttrCycleOfRateReset, start, end, false); err != nil {
		return err
	}
	if !l.feeRate.IsZero() {
		if err := b.CycleFrom(generic.EventFP, generic.AttrCycleAnchorDateOfFee, generic.AttrCycleOfFee, start, end, true); err != nil {
			return err
		}
	}
	if strings.ContainsAny(l.scalingEffect, "IN") {
		if err := b.CycleFrom(generic.EventSC, generic.AttrCycleAnchorDateOfScalingIndex, generic.AttrCycleOfScalingIndex, start, end, false); err != nil {
			return err
		}
	}
	if l.base == BaseNotionalLagged {
		if err := b.CycleFrom(generic.EventIPCB, generic.AttrCycleAnchorDateOfInterestCalculationBase, generic.AttrCycleOfInterestCalculationBase, start, end, false); err != nil {
			return err
		}
	}
	prd, err := b.Terms.OptDate(generic.AttrPurchaseDate)
	if err != nil {
		return err
	}
	if t, ok := prd.Get(); ok {
		return b.At(generic.EventPRD, t)
	}
	return nil
}

// penalizePrepayments adds a penalty event next to every prepayment when
// the terms declare a penalty. Notional penalties are charged on the
// notional the prepayment repays, read from the contract's PP series.
func (l loan) penalizePrepayments() generic.Rewrite {
	return func(events []generic.ContractEvent, rc generic.RewriteContext) ([]generic.ContractEvent, error) {
		if l.penaltyType != PenaltyAbsolute && l.penaltyType != PenaltyNotional {
			return events, nil
		}
		out := append([]generic.ContractEvent(nil), events...)
		for _, e := range events {
			if e.Type != generic.EventPP {
				continue
			}
			bind := l.penalty()
			if l.penaltyType == PenaltyNotional {
				amount, err := rc.Env.Observe(generic.EventSeries(l.id, generic.EventPP), e.ScheduleTime, generic.StateSpace{}, rc.Terms)
				if err != nil && !errors.Is(err, generic.ErrMissingObservation) {
					return nil, err
				}
				if err != nil {
					amount = l.notional
				}
				bind = l.notionalPenalty(l.role.Mul(amount.Abs()))
			}
			// The penalty shares the prepayment's schedule and event times,
			// adjusted or not, and its contingent flag.
			out = append(out, e.Retype(generic.EventPY, bind))
		}
		return out, nil
	}
}
