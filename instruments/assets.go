package instruments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-engine/generic"
)

// Delivery settlement modes.
const (
	SettlementDelivery = "D"
	SettlementNet      = "S"
)

// position is the resolved terms of a contract held as a quantity of an
// asset: stocks, commodities, options and futures.
type position struct {
	role        decimal.Decimal
	statusDate  time.Time
	quantity    decimal.Decimal
	performance generic.Performance

	purchasePrice    decimal.Decimal
	terminationPrice decimal.Decimal
	termination      generic.Optional[time.Time]
}

func readPosition(r *termReader) position {
	return position{
		role:             r.roleSign(),
		statusDate:       r.statusDate(),
		quantity:         r.decOr(generic.AttrQuantity, generic.One),
		performance:      r.performance(),
		purchasePrice:    r.decOr(generic.AttrPriceAtPurchaseDate, generic.Zero),
		terminationPrice: r.decOr(generic.AttrPriceAtTerminationDate, generic.Zero),
		termination:      r.optDate(generic.AttrTerminationDate),
	}
}

func (p position) initialState(*generic.Terms, generic.Environment) (generic.StateSpace, error) {
	s := generic.NewStateSpace(p.statusDate, p.role)
	s.ContractPerformance = p.performance
	s.NotionalPrincipal = p.role.Mul(p.quantity)
	return s, nil
}

func (p position) purchase() generic.Binding {
	return generic.Binding{
		Name: "purchase-position",
		Payoff: func(time.Time, generic.StateSpace, *generic.Terms, generic.Environment) (decimal.Decimal, error) {
			return p.role.Mul(p.purchasePrice).Mul(p.quantity).Neg(), nil
		},
	}
}

func (p position) terminate() generic.Binding {
	return generic.Binding{
		Name: "terminate-position",
		Payoff: func(time.Time, generic.StateSpace, *generic.Terms, generic.Environment) (decimal.Decimal, error) {
			return p.role.Mul(p.terminationPrice).Mul(p.quantity), nil
		},
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (generic.StateSpace, error) {
			return closed(t, s), nil
		},
	}
}

// end is the termination date, else the analysis horizon.
func (p position) end(req Request) time.Time {
	return p.termination.OrElse(req.horizon())
}

func schedulePurchase(b *generic.Builder) error {
	prd, err := b.Terms.OptDate(generic.AttrPurchaseDate)
	if err != nil {
		return err
	}
	if t, ok := prd.Get(); ok {
		return b.At(generic.EventPRD, t)
	}
	return nil
}

// =============================================================================
// CSH - Cash
// =============================================================================

func cshRecipe(req Request) (generic.Recipe, error) {
	r := read(req.Terms)
	role := r.roleSign()
	sd := r.statusDate()
	notional := r.dec(generic.AttrNotionalPrincipal)
	if r.err != nil {
		return generic.Recipe{}, r.err
	}
	return generic.Recipe{
		Name: CSH.String(),
		Bindings: generic.BindingTable{
			generic.EventAD: {Name: "observe-balance"},
		},
		InitialState: func(*generic.Terms, generic.Environment) (generic.StateSpace, error) {
			s := generic.NewStateSpace(sd, role)
			s.NotionalPrincipal = role.Mul(notional)
			return s, nil
		},
	}, nil
}

// =============================================================================
// STK - Stock
// =============================================================================

func stkRecipe(req Request) (generic.Recipe, error) {
	r := read(req.Terms)
	p := readPosition(r)
	dividends := r.strOr(generic.AttrMarketObjectCodeOfDividends, "")
	if r.err != nil {
		return generic.Recipe{}, r.err
	}

	dividend := generic.Binding{
		Name: "pay-dividend",
		Payoff: func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
			if dividends == "" {
				return generic.Zero, &generic.AttributeError{
					Attribute: generic.AttrMarketObjectCodeOfDividends,
					Want:      generic.KindString,
					Reason:    "required by a dividend schedule",
				}
			}
			v, err := env.Observe(dividends, t, s, terms)
			return p.role.Mul(p.quantity).Mul(v), err
		},
	}

	end := p.end(req)
	return generic.Recipe{
		Name: STK.String(),
		Bindings: generic.BindingTable{
			generic.EventAD:  {Name: "observe-position"},
			generic.EventPRD: p.purchase(),
			generic.EventDV:  performing(dividend),
			generic.EventTD:  p.terminate(),
		},
		Schedule: func(b *generic.Builder) error {
			if err := schedulePurchase(b); err != nil {
				return err
			}
			if end.IsZero() {
				return nil
			}
			return b.CycleFrom(generic.EventDV, generic.AttrCycleAnchorDateOfDividend, generic.AttrCycleOfDividend, p.statusDate, end, false)
		},
		Contingent:   true,
		InitialState: p.initialState,
	}, nil
}

// =============================================================================
// COM - Commodity
// =============================================================================

func comRecipe(req Request) (generic.Recipe, error) {
	r := read(req.Terms)
	p := readPosition(r)
	if r.err != nil {
		return generic.Recipe{}, r.err
	}
	return generic.Recipe{
		Name: COM.String(),
		Bindings: generic.BindingTable{
			generic.EventAD:  {Name: "observe-position"},
			generic.EventPRD: p.purchase(),
			generic.EventTD:  p.terminate(),
		},
		Schedule:     schedulePurchase,
		Contingent:   true,
		InitialState: p.initialState,
	}, nil
}

// =============================================================================
// FXOUT - Foreign exchange outright
// =============================================================================

// fxSeries names the rate series quoting one unit of base in quote
// currency, e.g. "USD/EUR".
func fxSeries(base, quote string) string {
	return base + "/" + quote
}

type fxOutright struct {
	position
	currency   string
	currency2  string
	notional   decimal.Decimal
	notional2  decimal.Decimal
	maturity   time.Time
	settlement string
}

func readFXOutright(terms *generic.Terms) (fxOutright, error) {
	r := read(terms)
	fx := fxOutright{
		position:   readPosition(r),
		currency:   r.str(generic.AttrCurrency),
		currency2:  r.str(generic.AttrCurrency2),
		notional:   r.dec(generic.AttrNotionalPrincipal),
		notional2:  r.dec(generic.AttrNotionalPrincipal2),
		maturity:   r.date(generic.AttrMaturityDate),
		settlement: r.strOr(generic.AttrDeliverySettlement, SettlementDelivery),
	}
	if r.err != nil {
		return fxOutright{}, r.err
	}
	if fx.settlement != SettlementDelivery && fx.settlement != SettlementNet {
		return fxOutright{}, &generic.AttributeError{Attribute: generic.AttrDeliverySettlement, Want: generic.KindString, Reason: "want D or S"}
	}
	return fx, nil
}

// leg exchanges one side of the outright in its own currency. The first leg
// is received, the second paid.
func (fx fxOutright) leg(name string, amount decimal.Decimal) generic.Binding {
	return performing(generic.Binding{
		Name: name,
		Payoff: func(time.Time, generic.StateSpace, *generic.Terms, generic.Environment) (decimal.Decimal, error) {
			return fx.role.Mul(amount), nil
		},
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (generic.StateSpace, error) {
			return closed(t, s), nil
		},
	})
}

// netSettlement pays the difference of both legs in the first currency.
func (fx fxOutright) netSettlement() generic.Binding {
	return performing(generic.Binding{
		Name: "settle-net",
		Payoff: func(t time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (decimal.Decimal, error) {
			rate, err := env.Observe(fxSeries(fx.currency2, fx.currency), t, s, terms)
			if err != nil {
				return generic.Zero, err
			}
			return fx.role.Mul(fx.notional.Sub(fx.notional2.Mul(rate))), nil
		},
		Transition: func(t time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (generic.StateSpace, error) {
			return closed(t, s), nil
		},
	})
}

func fxoutRecipe(req Request) (generic.Recipe, error) {
	fx, err := readFXOutright(req.Terms)
	if err != nil {
		return generic.Recipe{}, err
	}
	first := fx.leg("deliver-first-currency", fx.notional)
	second := fx.leg("deliver-second-currency", fx.notional2.Neg())

	return generic.Recipe{
		Name: FXOUT.String(),
		Bindings: generic.BindingTable{
			generic.EventAD:  {Name: "observe-position"},
			generic.EventPRD: fx.purchase(),
			generic.EventTD:  fx.terminate(),
			generic.EventMD:  first,
			generic.EventSTD: fx.netSettlement(),
		},
		Schedule: func(b *generic.Builder) error {
			if err := schedulePurchase(b); err != nil {
				return err
			}
			if fx.settlement == SettlementNet {
				at := fx.maturity
				period, err := b.Terms.OptCycle(generic.AttrSettlementPeriod)
				if err != nil {
					return err
				}
				if p, ok := period.Get(); ok {
					if at, err = b.Env.Schedules.Advance(at, p, 1); err != nil {
						return err
					}
				}
				return b.At(generic.EventSTD, at)
			}
			if err := b.At(generic.EventMD, fx.maturity); err != nil {
				return err
			}
			return b.Add(generic.MakeAdjusted(fx.maturity, generic.EventMD, fx.currency2, second, b.Env.Adjuster))
		},
		Contingent: true,
		InitialState: func(*generic.Terms, generic.Environment) (generic.StateSpace, error) {
			s := generic.NewStateSpace(fx.statusDate, fx.role)
			s.ContractPerformance = fx.performance
			s.NotionalPrincipal = fx.role.Mul(fx.notional)
			s.MaturityDate = fx.maturity
			return s, nil
		},
	}, nil
}
