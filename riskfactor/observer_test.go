package riskfactor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cashflow-engine/generic"
	"github.com/warp/cashflow-engine/riskfactor"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestObserver_StepInterpolation(t *testing.T) {
	// GIVEN: a rate series observed out of order
	o := riskfactor.NewObserver()
	o.Add("USD.SOFR", day(2024, time.July, 1), generic.Dec("0.04"))
	o.Add("USD.SOFR", day(2024, time.January, 1), generic.Dec("0.05"))

	// THEN: values hold until the next observation
	v, err := o.ValueAt("USD.SOFR", day(2024, time.March, 15), generic.StateSpace{}, nil)
	require.NoError(t, err)
	assert.True(t, v.Equal(generic.Dec("0.05")))

	v, err = o.ValueAt("USD.SOFR", day(2024, time.July, 1), generic.StateSpace{}, nil)
	require.NoError(t, err)
	assert.True(t, v.Equal(generic.Dec("0.04")))

	assert.Equal(t, []time.Time{day(2024, time.January, 1), day(2024, time.July, 1)}, o.Times("USD.SOFR"))
	assert.Equal(t, []string{"USD.SOFR"}, o.Keys())
}

func TestObserver_MissingObservation(t *testing.T) {
	o := riskfactor.NewObserver()
	o.Add("USD.SOFR", day(2024, time.July, 1), generic.Dec("0.04"))

	_, err := o.ValueAt("USD.SOFR", day(2024, time.January, 1), generic.StateSpace{}, nil)
	assert.ErrorIs(t, err, generic.ErrMissingObservation)

	_, err = o.ValueAt("EUR.ESTR", day(2024, time.July, 1), generic.StateSpace{}, nil)
	assert.ErrorIs(t, err, generic.ErrMissingObservation)
}

func TestObserver_ReplacesSameTime(t *testing.T) {
	o := riskfactor.NewObserver()
	o.Add("X", day(2024, time.January, 1), generic.Dec("1"))
	o.Add("X", day(2024, time.January, 1), generic.Dec("2"))

	v, err := o.ValueAt("X", day(2024, time.January, 1), generic.StateSpace{}, nil)
	require.NoError(t, err)
	assert.True(t, v.Equal(generic.Dec("2")))
	assert.Len(t, o.Times("X"), 1)
}

func TestObserver_UnscheduledEvents(t *testing.T) {
	// GIVEN
	o := riskfactor.NewObserver()
	require.NoError(t, o.AddEvent(riskfactor.ContingentEvent{ContractID: "loan-1", At: day(2024, time.June, 1), Type: generic.EventPP}))
	require.NoError(t, o.AddEvent(riskfactor.ContingentEvent{ContractID: "loan-1", At: day(2024, time.March, 1), Type: generic.EventCE}))
	require.NoError(t, o.AddEvent(riskfactor.ContingentEvent{ContractID: "loan-2", At: day(2024, time.March, 1), Type: generic.EventPP}))
	terms := generic.NewTerms().
		MustSet(generic.AttrContractID, "loan-1").
		MustSet(generic.AttrCurrency, "EUR")

	// WHEN
	evs, err := o.UnscheduledEvents(terms)

	// THEN: only this contract's events, time ordered, in the contract currency
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, generic.EventCE, evs[0].Type)
	assert.Equal(t, generic.EventPP, evs[1].Type)
	assert.Equal(t, "EUR", evs[1].Currency)
	assert.Empty(t, evs[1].Binding().Name)
}

func TestParse_Document(t *testing.T) {
	doc := `
observations:
  - {series: USD.SOFR, at: 2024-01-01, value: 0.05}
  - {series: USD.SOFR, at: "2024-07-01", value: "0.045"}
events:
  - {contract_id: loan-1, at: 2024-06-01, type: pp}
`
	o, err := riskfactor.Parse([]byte(doc))
	require.NoError(t, err)

	v, err := o.ValueAt("USD.SOFR", day(2024, time.December, 31), generic.StateSpace{}, nil)
	require.NoError(t, err)
	assert.True(t, v.Equal(generic.Dec("0.045")))

	evs, err := o.UnscheduledEvents(generic.NewTerms().MustSet(generic.AttrContractID, "loan-1"))
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, generic.EventPP, evs[0].Type)

	_, err = riskfactor.Parse([]byte(`events: [{contract_id: a, at: 2024-01-01, type: ZZ}]`))
	assert.Error(t, err)
}

type fakeSource struct {
	obs []riskfactor.Observation
	evs []riskfactor.ContingentEvent
	err error
}

func (f fakeSource) ListObservations(context.Context) ([]riskfactor.Observation, error) {
	return f.obs, f.err
}

func (f fakeSource) ListContingentEvents(context.Context) ([]riskfactor.ContingentEvent, error) {
	return f.evs, nil
}

func TestLoad(t *testing.T) {
	src := fakeSource{
		obs: []riskfactor.Observation{{Series: "AAPL", At: day(2024, time.January, 2), Value: generic.Dec("185.64")}},
		evs: []riskfactor.ContingentEvent{{ContractID: "opt-1", At: day(2024, time.March, 1), Type: generic.EventXD}},
	}

	o, err := riskfactor.Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, o.Keys())

	boom := errors.New("boom")
	_, err = riskfactor.Load(context.Background(), fakeSource{err: boom})
	assert.ErrorIs(t, err, boom)
}
