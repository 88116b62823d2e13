package generic_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashflow-engine/generic"
)

func run(t *testing.T, r generic.Recipe, terms *generic.Terms, env generic.Environment, analysis ...time.Time) []generic.ContractEvent {
	t.Helper()
	events, err := generic.Drive(r, generic.DriveInput{Terms: terms, Environment: env, AnalysisTimes: analysis})
	require.NoError(t, err)
	return events
}

// =============================================================================
// END-TO-END
// =============================================================================

func TestDrive_SinglePeriodBullet(t *testing.T) {
	// GIVEN: 1000 at 5%, status date T, one interest payment at T+1 year
	T := day(2024, time.January, 1)
	T1 := day(2025, time.January, 1)
	terms := loanTerms().
		MustSet(generic.AttrMaturityDate, T1).
		MustSet(generic.AttrCycleAnchorDateOfInterestPayment, T1)
	env := testEnv()

	// WHEN: evaluated without contingent events
	events := run(t, loanRecipe(), terms, env)

	// THEN: exchange, interest, maturity in that order
	require.Equal(t, []generic.EventType{generic.EventIED, generic.EventIP, generic.EventMD}, types(events))

	// AND: the interest matches rate x notional x year fraction
	want := env.DayCounter.YearFraction(T, T1).Mul(generic.Dec("0.05")).Mul(generic.Dec("1000"))
	assert.True(t, events[1].Payoff().Equal(want), "got %s want %s", events[1].Payoff(), want)
	assert.True(t, events[0].Payoff().Equal(generic.Dec("-1000")))
	assert.True(t, events[2].Payoff().Equal(generic.Dec("1000")))
}

func TestDrive_StateIsThreadedUnchanged(t *testing.T) {
	// GIVEN: a three-event timeline whose transitions record their input
	var consumed []generic.StateSpace
	r := loanRecipe()
	for typ, b := range r.Bindings {
		inner := b.Transition
		b.Transition = func(at time.Time, s generic.StateSpace, terms *generic.Terms, env generic.Environment) (generic.StateSpace, error) {
			consumed = append(consumed, s)
			if inner == nil {
				s.StatusDate = at
				return s, nil
			}
			return inner(at, s, terms, env)
		}
		r.Bindings[typ] = b
	}
	terms := loanTerms().
		MustSet(generic.AttrMaturityDate, day(2025, time.January, 1)).
		MustSet(generic.AttrCycleAnchorDateOfInterestPayment, day(2025, time.January, 1))

	// WHEN
	events := run(t, r, terms, testEnv())

	// THEN: event i+1 consumes exactly the state event i produced
	require.Len(t, events, 3)
	require.Len(t, consumed, 3)
	assert.Equal(t, events[0].State(), consumed[1])
	assert.Equal(t, events[1].State(), consumed[2])
}

// =============================================================================
// TRUNCATION
// =============================================================================

func TestDrive_TerminationTruncates(t *testing.T) {
	// GIVEN: a two-year loan terminated mid-way
	td := day(2025, time.March, 15)
	terms := loanTerms().MustSet(generic.AttrTerminationDate, td)

	// WHEN
	events := run(t, loanRecipe(), terms, testEnv(), day(2025, time.December, 1))

	// THEN: nothing after the termination other than the termination itself
	last := events[len(events)-1]
	assert.Equal(t, generic.EventTD, last.Type)
	assert.Equal(t, td, last.EventTime)
	for _, e := range events[:len(events)-1] {
		assert.False(t, e.EventTime.After(td), "%s at %s", e.Type, e.EventTime)
		assert.NotEqual(t, generic.EventMD, e.Type)
	}
	assert.True(t, last.Payoff().Equal(generic.Dec("1000")))
}

func TestDrive_StatusDateDropsEarlierEvents(t *testing.T) {
	// GIVEN: status date after the first interest payment; terms already
	// carry the outstanding notional
	sd := day(2025, time.June, 1)
	terms := loanTerms().MustSet(generic.AttrStatusDate, sd)
	r := loanRecipe()
	r.InitialState = func(*generic.Terms, generic.Environment) (generic.StateSpace, error) {
		s := generic.NewStateSpace(sd, generic.One)
		s.NotionalPrincipal = generic.Dec("1000")
		s.NominalInterestRate = generic.Dec("0.05")
		return s, nil
	}

	// WHEN
	events := run(t, r, terms, testEnv(), sd)

	// THEN: only events at or after the status date, including one exactly at it
	require.NotEmpty(t, events)
	for _, e := range events {
		assert.False(t, e.EventTime.Before(sd))
	}
	assert.Equal(t, generic.EventAD, events[0].Type)
	assert.Equal(t, []generic.EventType{generic.EventAD, generic.EventIP, generic.EventMD}, types(events))
}

func TestDrive_PurchaseDateDropsEarlierEventsAfterEvaluation(t *testing.T) {
	prd := day(2025, time.June, 1)
	terms := loanTerms().MustSet(generic.AttrPurchaseDate, prd)

	events := run(t, loanRecipe(), terms, testEnv(), day(2024, time.June, 1))

	// the analysis event before the purchase survives; IED and the first IP do not
	assert.Equal(t, []generic.EventType{generic.EventAD, generic.EventIP, generic.EventMD}, types(events))
	// state still reflects the dropped exchange
	assert.True(t, events[1].State().NotionalPrincipal.Equal(generic.Dec("1000")))

	kept, err := generic.Drive(loanRecipe(), generic.DriveInput{Terms: terms, Environment: testEnv(), KeepPrePurchase: true})
	require.NoError(t, err)
	assert.Equal(t, generic.EventIED, kept[0].Type)
}

func TestDrive_PurchaseOnCouponDateDropsThatCoupon(t *testing.T) {
	// GIVEN: a purchase on the first coupon date
	terms := loanTerms().MustSet(generic.AttrPurchaseDate, day(2025, time.January, 1))

	// WHEN
	events := run(t, loanRecipe(), terms, testEnv())

	// THEN: the coupon sorts before the purchase and belongs to the seller
	assert.Equal(t, []generic.EventType{generic.EventIP, generic.EventMD}, types(events))
	assert.Equal(t, day(2026, time.January, 1), events[0].EventTime)
}

// =============================================================================
// REWRITES AND CONTINGENT EVENTS
// =============================================================================

func TestDrive_CapitalizationRewrite(t *testing.T) {
	terms := loanTerms().MustSet(generic.AttrCapitalizationEndDate, day(2025, time.January, 1))

	events := run(t, loanRecipe(), terms, testEnv())

	assert.Equal(t, []generic.EventType{generic.EventIED, generic.EventIPCI, generic.EventIP, generic.EventMD}, types(events))
	assert.True(t, events[1].Payoff().IsZero())
	assert.True(t, events[1].State().NotionalPrincipal.GreaterThan(generic.Dec("1000")))
}

func TestDrive_FirstResetUsesKnownRate(t *testing.T) {
	terms := loanTerms().
		MustSet(generic.AttrCycleAnchorDateOfRateReset, day(2024, time.July, 1)).
		MustSet(generic.AttrCycleOfRateReset, "P6ML0").
		MustSet(generic.AttrNextResetRate, generic.Dec("0.07"))

	events := run(t, loanRecipe(), terms, testEnv())

	resets := generic.OfTypes(events, generic.EventRR, generic.EventRRF)
	require.Len(t, resets, 3)
	assert.Equal(t, generic.EventRRF, resets[0].Type)
	assert.True(t, resets[0].State().NominalInterestRate.Equal(generic.Dec("0.07")))
	assert.Equal(t, generic.EventRR, resets[1].Type)
}

func TestDrive_ContingentEventsAreBoundAndFiltered(t *testing.T) {
	// GIVEN: a prepayment and a category this recipe cannot compute
	pp := generic.Make(day(2025, time.June, 1), generic.EventPP, "USD", generic.Binding{})
	dv := generic.Make(day(2025, time.July, 1), generic.EventDV, "USD", generic.Binding{})
	env := testEnv()
	env.RiskFactors = &fakeObserver{events: []generic.ContractEvent{pp, dv}}

	// WHEN
	events := run(t, loanRecipe(), loanTerms(), env)

	// THEN: the prepayment is evaluated with this instrument's binding
	prepays := generic.OfTypes(events, generic.EventPP)
	require.Len(t, prepays, 1)
	assert.True(t, prepays[0].Contingent())
	assert.True(t, prepays[0].Payoff().Equal(generic.Dec("1000")))
	assert.Empty(t, generic.OfTypes(events, generic.EventDV))

	// AND: the non-contingent prefix stops right before it
	prefix := generic.BeforeFirstContingent(events)
	assert.Equal(t, []generic.EventType{generic.EventIED, generic.EventIP}, types(prefix))

	// AND: without a risk-factor source nothing is injected
	plain := run(t, loanRecipe(), loanTerms(), env.NonContingent())
	assert.Empty(t, generic.OfTypes(plain, generic.EventPP))
}

func TestDrive_RejectConflictsFailsTheRun(t *testing.T) {
	// GIVEN: two differently bound interest payments on the same key
	r := loanRecipe()
	r.Conflicts = generic.RejectConflicts
	r.Schedule = func(b *generic.Builder) error {
		at := day(2025, time.January, 1)
		if err := b.At(generic.EventIP, at); err != nil {
			return err
		}
		return b.Add(generic.Make(at, generic.EventIP, "USD", generic.Binding{Name: "rogue"}))
	}

	_, err := generic.Drive(r, generic.DriveInput{Terms: loanTerms(), Environment: testEnv()})
	assert.ErrorIs(t, err, generic.ErrEventConflict)
}

// =============================================================================
// FAILURES
// =============================================================================

func TestDrive_FailsFastWithoutPartialResult(t *testing.T) {
	boom := errors.New("formula failed")
	r := loanRecipe()
	ip := r.Bindings[generic.EventIP]
	ip.Payoff = func(time.Time, generic.StateSpace, *generic.Terms, generic.Environment) (decimal.Decimal, error) {
		return generic.Zero, boom
	}
	r.Bindings[generic.EventIP] = ip

	events, err := generic.Drive(r, generic.DriveInput{Terms: loanTerms(), Environment: testEnv()})

	assert.Nil(t, events)
	assert.ErrorIs(t, err, boom)
	var ee *generic.EvaluationError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, generic.EventIP, ee.Type)
	assert.Equal(t, generic.ContractID("loan-1"), ee.ContractID)
}

func TestDrive_MissingRequiredTerm(t *testing.T) {
	terms := generic.NewTerms().MustSet(generic.AttrContractType, "PAM")

	_, err := generic.Drive(loanRecipe(), generic.DriveInput{Terms: terms, Environment: testEnv()})

	assert.ErrorIs(t, err, generic.ErrAttributeConversion)
}

func TestDrive_BadCycleIsScheduleFailure(t *testing.T) {
	terms := loanTerms().MustSet(generic.AttrCycleOfInterestPayment, "P0YL0")

	_, err := generic.Drive(loanRecipe(), generic.DriveInput{Terms: terms, Environment: testEnv()})

	assert.ErrorIs(t, err, generic.ErrScheduleConstruction)
}

// =============================================================================
// OUTPUT FILTERS
// =============================================================================

func TestFilter_NextEventsKeepsBoundaryState(t *testing.T) {
	// GIVEN: the full timeline
	full := run(t, loanRecipe(), loanTerms(), testEnv())
	from := day(2025, time.June, 1)

	// WHEN: asking for the next two events from mid-life
	next := generic.Filter{From: from, Limit: 2}.Apply(full)

	// THEN: the first returned event carries the state of the full run
	require.Len(t, next, 2)
	assert.Equal(t, generic.EventIP, next[0].Type)
	assert.Equal(t, day(2026, time.January, 1), next[0].EventTime)
	var same generic.ContractEvent
	for _, e := range full {
		if e.Compare(next[0]) == 0 {
			same = e
		}
	}
	assert.True(t, same.State().Equal(next[0].State()))
	assert.True(t, next[0].State().NotionalPrincipal.Equal(generic.Dec("1000")))
}

func TestFilter_Variants(t *testing.T) {
	full := run(t, loanRecipe(), loanTerms(), testEnv(), day(2024, time.June, 1))

	payoffs := generic.Filter{PayoffOnly: true}.Apply(full)
	assert.NotContains(t, types(payoffs), generic.EventAD)

	window := generic.Filter{Window: generic.Period{Start: day(2024, time.June, 1), End: day(2025, time.January, 1)}}.Apply(full)
	assert.Equal(t, []generic.EventType{generic.EventAD, generic.EventIP}, types(window))

	only := generic.Filter{Types: []generic.EventType{generic.EventMD}}.Apply(full)
	assert.Equal(t, []generic.EventType{generic.EventMD}, types(only))

	assert.Len(t, generic.Filter{}.Apply(full), len(full))
}
