package generic_test

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashflow-engine/generic"
)

// =============================================================================
// SEQUENCE TABLE
// =============================================================================

func TestSequence_OffsetsStayBelowOneDay(t *testing.T) {
	for _, typ := range generic.AllEventTypes() {
		assert.GreaterOrEqual(t, typ.Offset(), int64(0), typ.String())
		assert.Less(t, typ.Offset(), generic.SecondsPerDay, typ.String())
	}
}

func TestSequence_RepresentativeOffsets(t *testing.T) {
	want := map[generic.EventType]int64{
		generic.EventIED: 20, generic.EventPR: 30, generic.EventIP: 40, generic.EventIPCI: 40,
		generic.EventIPFL: 45, generic.EventFP: 60, generic.EventDV: 70, generic.EventMR: 80,
		generic.EventRR: 100, generic.EventRRF: 100, generic.EventPRF: 105, generic.EventSC: 110,
		generic.EventIPCB: 120, generic.EventPRD: 130, generic.EventTD: 140, generic.EventMD: 150,
		generic.EventXD: 160, generic.EventSTD: 170, generic.EventAD: 950,
	}
	for typ, off := range want {
		assert.Equal(t, off, typ.Offset(), typ.String())
	}
}

func TestSequence_ParseRoundTrip(t *testing.T) {
	for _, typ := range generic.AllEventTypes() {
		parsed, err := generic.ParseEventType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}
	_, err := generic.ParseEventType("NOPE")
	assert.Error(t, err)
}

// =============================================================================
// TOTAL ORDER
// =============================================================================

func TestOrder_SameDayCategoryOrder(t *testing.T) {
	// GIVEN: events on the same date, inserted in reverse processing order
	at := day(2024, time.March, 1)
	events := []generic.ContractEvent{
		generic.Make(at, generic.EventAD, "USD", generic.Binding{}),
		generic.Make(at, generic.EventMD, "USD", generic.Binding{}),
		generic.Make(at, generic.EventIP, "USD", generic.Binding{}),
		generic.Make(at, generic.EventPR, "USD", generic.Binding{}),
		generic.Make(at, generic.EventIED, "USD", generic.Binding{}),
	}

	// WHEN: sorted
	generic.SortEvents(events)

	// THEN: exchange, redemption, interest, maturity, analysis
	assert.Equal(t, []generic.EventType{
		generic.EventIED, generic.EventPR, generic.EventIP, generic.EventMD, generic.EventAD,
	}, types(events))
}

func TestOrder_OffsetsNeverCrossDays(t *testing.T) {
	late := generic.Make(day(2024, time.March, 1), generic.EventAD, "USD", generic.Binding{})
	early := generic.Make(day(2024, time.March, 2), generic.EventIED, "USD", generic.Binding{})
	assert.Negative(t, late.Compare(early))
}

func TestOrder_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	n := len(generic.AllEventTypes())
	base := day(2020, time.January, 1)
	mk := func(days int, typ int) generic.ContractEvent {
		return generic.Make(base.AddDate(0, 0, days), generic.EventType(typ), "USD", generic.Binding{})
	}
	sign := func(x int) int {
		switch {
		case x < 0:
			return -1
		case x > 0:
			return 1
		}
		return 0
	}

	properties.Property("comparison is antisymmetric and only ties identical keys", prop.ForAll(
		func(d1, t1, d2, t2 int) bool {
			a, b := mk(d1, t1), mk(d2, t2)
			if d1 == d2 && t1 == t2 {
				return a.Compare(b) == 0
			}
			return a.Compare(b) != 0 && sign(a.Compare(b)) == -sign(b.Compare(a))
		},
		gen.IntRange(0, 10), gen.IntRange(0, n-1), gen.IntRange(0, 10), gen.IntRange(0, n-1),
	))

	properties.Property("comparison is transitive", prop.ForAll(
		func(d1, t1, d2, t2, d3, t3 int) bool {
			a, b, c := mk(d1, t1), mk(d2, t2), mk(d3, t3)
			if a.Compare(b) <= 0 && b.Compare(c) <= 0 {
				return a.Compare(c) <= 0
			}
			return true
		},
		gen.IntRange(0, 5), gen.IntRange(0, n-1), gen.IntRange(0, 5), gen.IntRange(0, n-1),
		gen.IntRange(0, 5), gen.IntRange(0, n-1),
	))

	properties.Property("analysis events sort after every same-time category", prop.ForAll(
		func(d, typ int) bool {
			other := mk(d, typ)
			if other.Type == generic.EventAD {
				return true
			}
			return mk(d, int(generic.EventAD)).Compare(other) > 0
		},
		gen.IntRange(0, 3650), gen.IntRange(0, n-1),
	))

	properties.Property("order does not depend on insertion order", prop.ForAll(
		func(ds []int, ts []int) bool {
			var events []generic.ContractEvent
			for i := 0; i < len(ds) && i < len(ts); i++ {
				events = append(events, mk(ds[i], ts[i]))
			}
			forward := append([]generic.ContractEvent(nil), events...)
			backward := make([]generic.ContractEvent, len(events))
			for i := range events {
				backward[len(events)-1-i] = events[i]
			}
			generic.SortEvents(forward)
			generic.SortEvents(backward)
			for i := range forward {
				if forward[i].Compare(backward[i]) != 0 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 30)), gen.SliceOf(gen.IntRange(0, n-1)),
	))

	properties.TestingRun(t)
}

// =============================================================================
// REWRITES AND EVALUATION
// =============================================================================

func TestRetype_SameCategoryIsNoOp(t *testing.T) {
	ev := generic.Make(day(2024, time.June, 1), generic.EventIP, "USD", generic.Binding{Name: "interest"})

	same := ev.Retype(generic.EventIP, generic.Binding{Name: "other"})

	assert.Equal(t, ev.OrderKey(), same.OrderKey())
	assert.Equal(t, "interest", same.Binding().Name)
}

func TestRetype_RecomputesKeyWithCategory(t *testing.T) {
	ev := generic.Make(day(2024, time.June, 1), generic.EventPR, "USD", generic.Binding{Name: "redeem"})

	md := ev.Retype(generic.EventMD, generic.Binding{Name: "mature"})

	assert.Equal(t, generic.EventMD, md.Type)
	assert.Equal(t, "mature", md.Binding().Name)
	assert.Equal(t, generic.OrderTime(ev.EventTime)+150, md.OrderKey())
	// the original value is untouched
	assert.Equal(t, generic.EventPR, ev.Type)
	assert.Equal(t, "redeem", ev.Binding().Name)
}

func TestMakeAdjusted_KeepsScheduleTime(t *testing.T) {
	saturday := day(2024, time.June, 1)
	for _, code := range []string{"CSF", "SCF"} {
		t.Run(code, func(t *testing.T) {
			ev := generic.MakeAdjusted(saturday, generic.EventIP, "USD", generic.Binding{}, mustAdjuster(code))

			assert.Equal(t, saturday, ev.ScheduleTime)
			assert.Equal(t, day(2024, time.June, 3), ev.EventTime)
			assert.Equal(t, generic.OrderTime(ev.EventTime)+40, ev.OrderKey())
		})
	}

	batch := generic.MakeSchedule([]time.Time{saturday, day(2024, time.June, 4)}, generic.EventIP, "USD", generic.Binding{}, nil)
	require.Len(t, batch, 2)
	assert.Equal(t, batch[0].ScheduleTime, batch[0].EventTime)
}

func TestEvaluate_UsesScheduleTimeAndRunsOnce(t *testing.T) {
	var seen []time.Time
	b := generic.Binding{
		Name: "fee",
		Payoff: func(at time.Time, _ generic.StateSpace, _ *generic.Terms, _ generic.Environment) (decimal.Decimal, error) {
			seen = append(seen, at)
			return generic.Dec("7"), nil
		},
	}
	saturday := day(2024, time.June, 1)
	ev := generic.MakeAdjusted(saturday, generic.EventFP, "USD", b, mustAdjuster("CSF"))

	require.NoError(t, ev.Evaluate(generic.NewStateSpace(saturday, generic.One), nil, generic.Environment{}))
	assert.Equal(t, []time.Time{saturday}, seen)
	assert.True(t, ev.Payoff().Equal(generic.Dec("7")))
	assert.Equal(t, saturday, ev.State().StatusDate, "nil transition only moves the status date")

	err := ev.Evaluate(generic.NewStateSpace(saturday, generic.One), nil, generic.Environment{})
	assert.ErrorIs(t, err, generic.ErrAlreadyEvaluated)
}

func TestEvaluate_PropagatesBindingError(t *testing.T) {
	boom := errors.New("boom")
	ev := generic.Make(day(2024, time.June, 1), generic.EventIP, "USD", generic.Binding{
		Payoff: func(time.Time, generic.StateSpace, *generic.Terms, generic.Environment) (decimal.Decimal, error) {
			return generic.Zero, boom
		},
	})
	err := ev.Evaluate(generic.StateSpace{}, nil, generic.Environment{})
	assert.ErrorIs(t, err, boom)
	assert.False(t, ev.Evaluated())
}

// =============================================================================
// CANDIDATE SET
// =============================================================================

func TestCandidateSet_Policies(t *testing.T) {
	at := day(2024, time.June, 1)
	first := generic.Make(at, generic.EventIP, "USD", generic.Binding{Name: "a"})
	dup := generic.Make(at, generic.EventIP, "USD", generic.Binding{Name: "a"})
	other := generic.Make(at, generic.EventIP, "USD", generic.Binding{Name: "b"})
	otherCurrency := generic.Make(at, generic.EventIP, "EUR", generic.Binding{Name: "b"})

	t.Run("identical bindings collapse under every policy", func(t *testing.T) {
		for _, p := range []generic.ConflictPolicy{generic.LastWriteWins, generic.FirstWriteWins, generic.RejectConflicts} {
			set := generic.NewCandidateSet(p)
			require.NoError(t, set.AddAll([]generic.ContractEvent{first, dup}))
			assert.Equal(t, 1, set.Len(), p.String())
		}
	})

	t.Run("last write wins", func(t *testing.T) {
		set := generic.NewCandidateSet(generic.LastWriteWins)
		require.NoError(t, set.AddAll([]generic.ContractEvent{first, other}))
		require.Equal(t, 1, set.Len())
		assert.Equal(t, "b", set.Events()[0].Binding().Name)
	})

	t.Run("first write wins", func(t *testing.T) {
		set := generic.NewCandidateSet(generic.FirstWriteWins)
		require.NoError(t, set.AddAll([]generic.ContractEvent{first, other}))
		assert.Equal(t, "a", set.Events()[0].Binding().Name)
	})

	t.Run("reject conflicts", func(t *testing.T) {
		set := generic.NewCandidateSet(generic.RejectConflicts)
		require.NoError(t, set.Add(first))
		err := set.Add(other)
		assert.ErrorIs(t, err, generic.ErrEventConflict)
		var ce *generic.ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "a", ce.Existing)
		assert.Equal(t, "b", ce.Incoming)
	})

	t.Run("currency is part of the key", func(t *testing.T) {
		set := generic.NewCandidateSet(generic.RejectConflicts)
		require.NoError(t, set.AddAll([]generic.ContractEvent{first, otherCurrency}))
		assert.Equal(t, 2, set.Len())
	})
}

func TestMakeSchedule_ShiftCalcKeepsWeekendDatesDistinct(t *testing.T) {
	// GIVEN: Saturday, Sunday and Monday all shift onto the same Monday
	dates := []time.Time{day(2024, time.June, 1), day(2024, time.June, 2), day(2024, time.June, 3)}
	events := generic.MakeSchedule(dates, generic.EventIP, "USD", generic.Binding{Name: "interest"}, mustAdjuster("SCF"))

	// WHEN: they go into a set that rejects conflicts
	set := generic.NewCandidateSet(generic.RejectConflicts)
	err := set.AddAll(events)

	// THEN: each unadjusted date stays its own candidate
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())
	for _, e := range events {
		assert.Equal(t, day(2024, time.June, 3), e.EventTime)
	}
}

func TestEnvironment_CalcTimeFollowsConvention(t *testing.T) {
	saturday := day(2024, time.June, 1)

	assert.Equal(t, saturday, generic.Environment{}.CalcTime(saturday))
	assert.Equal(t, saturday, generic.Environment{Adjuster: mustAdjuster("CSF")}.CalcTime(saturday))
	assert.Equal(t, day(2024, time.June, 3), generic.Environment{Adjuster: mustAdjuster("SCF")}.CalcTime(saturday))
}
