package generic_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashflow-engine/generic"
)

func evaluated(t *testing.T, at time.Time, typ generic.EventType, name, payoff, accrued string) generic.ContractEvent {
	t.Helper()
	ev := generic.Make(at, typ, "USD", generic.Binding{
		Name: name,
		Payoff: func(time.Time, generic.StateSpace, *generic.Terms, generic.Environment) (decimal.Decimal, error) {
			return generic.Dec(payoff), nil
		},
		Transition: func(at time.Time, s generic.StateSpace, _ *generic.Terms, _ generic.Environment) (generic.StateSpace, error) {
			s.AccruedInterest = generic.Dec(accrued)
			s.NotionalPrincipal = generic.Dec("100")
			s.StatusDate = at
			return s, nil
		},
	})
	require.NoError(t, ev.Evaluate(generic.NewStateSpace(at, generic.One), nil, generic.Environment{}))
	return ev
}

func TestNet_MergeCompleteness(t *testing.T) {
	t1, t2, t3 := day(2024, time.April, 1), day(2024, time.July, 1), day(2024, time.October, 1)

	// GIVEN: two legs sharing interest dates, each with an event of its own
	first := []generic.ContractEvent{
		evaluated(t, t1, generic.EventIP, "fixed", "10", "1"),
		evaluated(t, t2, generic.EventIP, "fixed", "10", "1"),
		evaluated(t, t2, generic.EventMD, "fixed-md", "100", "0"),
	}
	second := []generic.ContractEvent{
		evaluated(t, t1, generic.EventIP, "float", "-7", "2"),
		evaluated(t, t2, generic.EventIP, "float", "-8", "2"),
		evaluated(t, t3, generic.EventPR, "float-pr", "-50", "0"),
	}

	// WHEN: netting interest payments
	net, err := generic.Net(first, second, generic.NettingRule{Name: "net-ip", Categories: []generic.EventType{generic.EventIP}})
	require.NoError(t, err)

	// THEN: one event per distinct (time, category) key of the union
	require.Equal(t, []generic.EventType{generic.EventIP, generic.EventIP, generic.EventMD, generic.EventPR}, types(net))

	// AND: matched keys are synthesized with the combined payoff and state
	assert.Equal(t, "net-ip", net[0].Binding().Name)
	assert.True(t, net[0].Payoff().Equal(generic.Dec("3")))
	assert.True(t, net[1].Payoff().Equal(generic.Dec("2")))
	assert.True(t, net[0].State().AccruedInterest.Equal(generic.Dec("3")))
	assert.True(t, net[0].Evaluated())

	// AND: single-stream keys pass through unmodified
	assert.Equal(t, first[2].Binding().Name, net[2].Binding().Name)
	assert.True(t, first[2].Payoff().Equal(net[2].Payoff()))
	assert.Equal(t, first[2].State(), net[2].State())
	assert.Equal(t, second[2].Binding().Name, net[3].Binding().Name)
}

func TestNet_SharedKeyOutsideRuleKeepsFirst(t *testing.T) {
	at := day(2024, time.July, 1)
	first := []generic.ContractEvent{evaluated(t, at, generic.EventMD, "a", "100", "0")}
	second := []generic.ContractEvent{evaluated(t, at, generic.EventMD, "b", "-100", "0")}

	net, err := generic.Net(first, second, generic.NettingRule{Name: "net", Categories: []generic.EventType{generic.EventIP}})
	require.NoError(t, err)
	require.Len(t, net, 1)
	assert.Equal(t, "a", net[0].Binding().Name)

	all, err := generic.Net(first, second, generic.NettingRule{Name: "net", All: true})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Payoff().IsZero())
}

func TestNet_CustomCombine(t *testing.T) {
	at := day(2024, time.July, 1)
	uncapped := []generic.ContractEvent{evaluated(t, at, generic.EventIP, "u", "12", "0")}
	capped := []generic.ContractEvent{evaluated(t, at, generic.EventIP, "c", "10", "0")}

	net, err := generic.Net(uncapped, capped, generic.NettingRule{
		Name:       "cap",
		Categories: []generic.EventType{generic.EventIP},
		Combine:    func(a, b decimal.Decimal) decimal.Decimal { return a.Sub(b) },
	})
	require.NoError(t, err)
	assert.True(t, net[0].Payoff().Equal(generic.Dec("2")))
}

func TestNet_RequiresEvaluatedStreams(t *testing.T) {
	raw := []generic.ContractEvent{generic.Make(day(2024, time.July, 1), generic.EventIP, "USD", generic.Binding{})}

	_, err := generic.Net(raw, nil, generic.NettingRule{Name: "net", All: true})

	assert.ErrorIs(t, err, generic.ErrNotEvaluated)
}
