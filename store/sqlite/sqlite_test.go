package sqlite_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cashflow-engine/conventions"
	"github.com/warp/cashflow-engine/generic"
	"github.com/warp/cashflow-engine/riskfactor"
	"github.com/warp/cashflow-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func day(y int, m time.Month, d int) time.Time {
	return generic.Date(y, m, d)
}

func TestContracts_SaveReplaceAndGet(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	// GIVEN: a stored contract
	require.NoError(t, s.SaveContract(ctx, sqlite.ContractRecord{
		ID: "loan-1", ContractType: "PAM", Terms: json.RawMessage(`{"contractType":"PAM"}`),
	}))

	// WHEN: it is saved again with new terms
	require.NoError(t, s.SaveContract(ctx, sqlite.ContractRecord{
		ID: "loan-1", ContractType: "LAM", Terms: json.RawMessage(`{"contractType":"LAM"}`),
	}))

	// THEN: the latest terms win
	got, err := s.GetContract(ctx, "loan-1")
	require.NoError(t, err)
	assert.Equal(t, "LAM", got.ContractType)
	assert.JSONEq(t, `{"contractType":"LAM"}`, string(got.Terms))

	all, err := s.ListContracts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestContracts_NotFound(t *testing.T) {
	_, err := newStore(t).GetContract(context.Background(), "missing")

	assert.ErrorIs(t, err, generic.ErrContractNotFound)
	assert.True(t, generic.IsNotFound(err))
}

func TestObservations_LatestValueWins(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	// GIVEN: the same point written twice and a second point
	require.NoError(t, s.AddObservations(ctx, []riskfactor.Observation{
		{Series: "USD.SOFR", At: day(2024, time.January, 1), Value: generic.Dec("0.05")},
		{Series: "USD.SOFR", At: day(2024, time.July, 1), Value: generic.Dec("0.04")},
	}))
	require.NoError(t, s.AddObservations(ctx, []riskfactor.Observation{
		{Series: "USD.SOFR", At: day(2024, time.January, 1), Value: generic.Dec("0.051")},
	}))

	// WHEN: listed
	obs, err := s.ListObservations(ctx)
	require.NoError(t, err)

	// THEN: two points, ordered, with the replaced value
	require.Len(t, obs, 2)
	assert.Equal(t, "0.051", obs[0].Value.String())
	assert.True(t, obs[0].At.Equal(day(2024, time.January, 1)))
	assert.Equal(t, "0.04", obs[1].Value.String())
}

func TestObservations_RejectedBatchWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	err := s.AddObservations(ctx, []riskfactor.Observation{
		{Series: "A", At: day(2024, time.January, 1), Value: generic.One},
		{Series: "", At: day(2024, time.January, 2), Value: generic.One},
	})
	require.Error(t, err)

	obs, err := s.ListObservations(ctx)
	require.NoError(t, err)
	assert.Empty(t, obs)
}

func TestContingentEvents_LoadIntoObserver(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	// GIVEN: a prepayment recorded twice and its amount
	ev := riskfactor.ContingentEvent{ContractID: "loan-1", At: day(2024, time.June, 1), Type: generic.EventPP}
	require.NoError(t, s.AddContingentEvents(ctx, []riskfactor.ContingentEvent{ev, ev}))
	require.NoError(t, s.AddObservations(ctx, []riskfactor.Observation{
		{Series: "loan-1:PP", At: day(2024, time.June, 1), Value: generic.Dec("100")},
	}))

	// WHEN: an observer is loaded from the store
	o, err := riskfactor.Load(ctx, s)
	require.NoError(t, err)

	// THEN: the event is there once and the series is readable
	terms := generic.NewTerms().
		MustSet(generic.AttrContractID, "loan-1").
		MustSet(generic.AttrCurrency, "USD")
	events, err := o.UnscheduledEvents(terms)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, generic.EventPP, events[0].Type)

	v, err := o.ValueAt("loan-1:PP", day(2024, time.June, 2), generic.StateSpace{}, terms)
	require.NoError(t, err)
	assert.Equal(t, "100", v.String())
}

func TestContingentEvents_RejectInvalid(t *testing.T) {
	err := newStore(t).AddContingentEvents(context.Background(), []riskfactor.ContingentEvent{
		{At: day(2024, time.June, 1), Type: generic.EventPP},
	})
	assert.Error(t, err)
}

func TestHolidays_LoadCalendars(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	// GIVEN: a stored calendar with New Year's Day
	require.NoError(t, s.SaveHoliday(ctx, "TARGET", day(2024, time.January, 1), "New Year"))

	// WHEN: loaded into a registry
	reg := conventions.NewRegistry()
	require.NoError(t, s.LoadCalendars(ctx, reg))

	// THEN: the calendar knows the holiday
	cal, err := reg.Lookup("TARGET")
	require.NoError(t, err)
	assert.False(t, cal.IsBusinessDay(day(2024, time.January, 1)))
	assert.True(t, cal.IsBusinessDay(day(2024, time.January, 2)))
}

func TestRuns_AppendOnly(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	// GIVEN: a run with one evaluated event
	run := generic.Run{
		ID:            "run-1",
		ContractID:    "loan-1",
		ContractType:  "PAM",
		CreatedAt:     time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		AnalysisTimes: []time.Time{day(2024, time.June, 30)},
		Events: []generic.EventRecord{{
			EventTime: day(2024, time.January, 1),
			Type:      generic.EventIED,
			Currency:  "USD",
			Payoff:    generic.Dec("-1000"),
		}},
	}
	require.NoError(t, s.SaveRun(ctx, run))

	// WHEN: the same run is saved again
	err := s.SaveRun(ctx, run)

	// THEN: rejected, and the stored run reads back intact
	assert.ErrorIs(t, err, generic.ErrDuplicateRun)

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, generic.ContractID("loan-1"), got.ContractID)
	require.Len(t, got.Events, 1)
	assert.Equal(t, generic.EventIED, got.Events[0].Type)
	assert.Equal(t, "-1000", got.Events[0].Payoff.String())
	assert.True(t, got.CreatedAt.Equal(run.CreatedAt))
}

func TestRuns_ListOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveRun(ctx, generic.Run{ID: "b", ContractID: "loan-1", CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}))
	require.NoError(t, s.SaveRun(ctx, generic.Run{ID: "a", ContractID: "loan-1", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}))
	require.NoError(t, s.SaveRun(ctx, generic.Run{ID: "c", ContractID: "loan-2", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}))

	runs, err := s.ListRuns(ctx, "loan-1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, generic.RunID("a"), runs[0].ID)

	_, err = s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, generic.ErrRunNotFound)
}

func TestReset_ClearsEverything(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveContract(ctx, sqlite.ContractRecord{ID: "loan-1", ContractType: "PAM", Terms: json.RawMessage(`{}`)}))
	require.NoError(t, s.SaveRun(ctx, generic.Run{ID: "run-1", ContractID: "loan-1", CreatedAt: time.Now()}))

	require.NoError(t, s.Reset(ctx))

	contracts, err := s.ListContracts(ctx)
	require.NoError(t, err)
	assert.Empty(t, contracts)
	_, err = s.GetRun(ctx, "run-1")
	assert.ErrorIs(t, err, generic.ErrRunNotFound)
}
