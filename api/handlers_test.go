/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Contract storage and lookup
- Per-contract, inline and portfolio evaluation
- Risk factor and calendar writes
- Demo scenarios and revaluation
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cashflow-engine/generic"
	"github.com/warp/cashflow-engine/store/sqlite"
)

const bulletLoanJSON = `{
	"contractType": "PAM", "contractID": "loan-1", "contractRole": "RPA",
	"currency": "USD", "statusDate": "2024-01-01",
	"initialExchangeDate": "2024-01-01", "maturityDate": "2026-01-01",
	"notionalPrincipal": "1000", "nominalInterestRate": "0.05",
	"cycleAnchorDateOfInterestPayment": "2025-01-01", "cycleOfInterestPayment": "P1YL0",
	"dayCountConvention": "30E360"
}`

func setupTestServer(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, Options{Workers: 2})
	return h, NewRouter(h)
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func payoffsOf(events []generic.EventRecord) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Payoff.String()
	}
	return out
}

// =============================================================================
// CONTRACTS
// =============================================================================

func TestCreateContract_GeneratesIDAndReadsBack(t *testing.T) {
	_, srv := setupTestServer(t)

	// GIVEN: terms without a contract ID
	rec := do(t, srv, http.MethodPost, "/api/contracts", `{
		"contractType": "pam", "contractRole": "RPA", "statusDate": "2024-01-01",
		"maturityDate": "2025-01-01", "notionalPrincipal": 100
	}`)

	// THEN: stored under a generated ID with the normalized type
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[ContractDTO](t, rec)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "PAM", created.ContractType)

	// AND: readable by that ID with the ID written into the terms
	rec = do(t, srv, http.MethodGet, "/api/contracts/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ContractDTO](t, rec)
	var terms map[string]any
	require.NoError(t, json.Unmarshal(got.Terms, &terms))
	assert.Equal(t, created.ID, terms["contractID"])
}

func TestCreateContract_Rejections(t *testing.T) {
	_, srv := setupTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"unknown type", `{"contractType": "XYZ", "contractID": "x"}`},
		{"missing type", `{"contractID": "x"}`},
		{"bad date", `{"contractType": "PAM", "maturityDate": "someday"}`},
		{"unknown attribute", `{"contractType": "PAM", "colour": "red"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/contracts", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Details)
		})
	}
}

func TestGetContract_NotFound(t *testing.T) {
	_, srv := setupTestServer(t)

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/contracts/missing", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/contracts/missing/runs", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPost, "/api/contracts/missing/evaluate", "").Code)
}

// =============================================================================
// EVALUATION
// =============================================================================

func TestEvaluateContract_RecordsFullRunAndFiltersResponse(t *testing.T) {
	_, srv := setupTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/contracts", bulletLoanJSON).Code)

	// WHEN: evaluated asking for interest payments only
	rec := do(t, srv, http.MethodPost, "/api/contracts/loan-1/evaluate", `{"filter": {"types": ["IP"]}}`)

	// THEN: the response holds the two coupons
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	run := decode[RunDTO](t, rec)
	require.NotEmpty(t, run.RunID)
	assert.Equal(t, []string{"50", "50"}, payoffsOf(run.Events))

	// AND: the recorded run keeps the whole timeline
	rec = do(t, srv, http.MethodGet, "/api/runs/"+run.RunID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decode[RunDTO](t, rec)
	assert.Equal(t, []string{"-1000", "50", "50", "1000"}, payoffsOf(stored.Events))

	// AND: listed under the contract
	rec = do(t, srv, http.MethodGet, "/api/contracts/loan-1/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]RunDTO](t, rec), 1)
}

func TestEvaluateContract_AnalysisDatesAndBadInput(t *testing.T) {
	_, srv := setupTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/contracts", bulletLoanJSON).Code)

	// GIVEN: an analysis date mid-year
	rec := do(t, srv, http.MethodPost, "/api/contracts/loan-1/evaluate",
		`{"analysis_dates": ["2024-07-01"], "filter": {"types": ["AD"]}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	run := decode[RunDTO](t, rec)
	require.Len(t, run.Events, 1)
	assert.Equal(t, "25", run.Events[0].AccruedInterest.String())

	// AND: malformed requests are rejected before evaluation
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/contracts/loan-1/evaluate",
		`{"analysis_dates": ["July"]}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/contracts/loan-1/evaluate",
		`{"filter": {"types": ["NOPE"]}}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPost, "/api/contracts/loan-1/evaluate",
		`{"filter": {"window_start": "2025-01-01", "window_end": "2024-01-01"}}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/contracts/loan-1/evaluate", `{`).Code)
}

func TestEvaluateInline_LayersRequestObservations(t *testing.T) {
	_, srv := setupTestServer(t)

	// GIVEN: option terms and an underlier quote sent with the request
	body := `{
		"terms": {
			"contractType": "OPTNS", "contractID": "opt-1", "contractRole": "LG",
			"currency": "USD", "statusDate": "2024-01-01",
			"purchaseDate": "2024-01-02", "priceAtPurchaseDate": "5", "quantity": "10",
			"optionType": "C", "optionStrike1": "100",
			"optionExerciseEndDate": "2024-06-28", "settlementPeriod": "P3DL0",
			"marketObjectCode": "ACME"
		},
		"observations": [{"series": "ACME", "at": "2024-06-01", "value": "120"}],
		"filter": {"payoff_only": true}
	}`

	rec := do(t, srv, http.MethodPost, "/api/evaluate", body)

	// THEN: premium and settlement cash flows, and nothing recorded
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	run := decode[RunDTO](t, rec)
	assert.Empty(t, run.RunID)
	assert.Equal(t, []string{"-50", "200"}, payoffsOf(run.Events))
}

func TestEvaluateInline_MissingQuoteIsUnprocessable(t *testing.T) {
	_, srv := setupTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/evaluate", `{"terms": {
		"contractType": "OPTNS", "contractRole": "LG", "statusDate": "2024-01-01",
		"optionType": "P", "optionStrike1": "100",
		"optionExerciseEndDate": "2024-06-28", "marketObjectCode": "ACME"
	}}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/evaluate", `{}`).Code)
}

func TestEvaluatePortfolio_GuaranteeSeesDefault(t *testing.T) {
	_, srv := setupTestServer(t)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/scenarios/load",
		`{"scenario_id": "guaranteed-loan"}`).Code)

	// WHEN: only the guarantee is requested
	rec := do(t, srv, http.MethodPost, "/api/portfolio/evaluate",
		`{"contract_ids": ["guarantee-1"], "filter": {"types": ["STD"]}}`)

	// THEN: the covered loan was pulled in and evaluated first
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[PortfolioResponse](t, rec)
	assert.Equal(t, [][]string{{"loan-1"}, {"guarantee-1"}}, resp.Levels)

	// AND: one run, paying half the defaulted notional
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, "guarantee-1", resp.Runs[0].ContractID)
	assert.Equal(t, []string{"500"}, payoffsOf(resp.Runs[0].Events))
}

func TestEvaluatePortfolio_MissingReference(t *testing.T) {
	_, srv := setupTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/contracts", `{
		"contractType": "CEG", "contractID": "g-1", "contractRole": "BUY",
		"currency": "USD", "statusDate": "2024-01-01", "maturityDate": "2026-01-01",
		"coverageOfCreditEnhancement": "0.5",
		"contractStructure": [{"referenceRole": "COVE", "referenceType": "CID", "object": "loan-9"}]
	}`).Code)

	rec := do(t, srv, http.MethodPost, "/api/portfolio/evaluate", `{"contract_ids": ["g-1"]}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/portfolio/evaluate", `{}`).Code)
}

func TestGetRun_NotFound(t *testing.T) {
	_, srv := setupTestServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/runs/missing", "").Code)
}

func TestListContractTypes(t *testing.T) {
	_, srv := setupTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/contract-types", "")

	require.Equal(t, http.StatusOK, rec.Code)
	types := decode[[]ContractTypeDTO](t, rec)
	require.Len(t, types, 19)
	assert.Equal(t, ContractTypeDTO{Code: "PAM", Description: "principal at maturity"}, types[0])
}

// =============================================================================
// RISK FACTORS AND CALENDARS
// =============================================================================

func TestAddObservations(t *testing.T) {
	h, srv := setupTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/observations", `{"observations": [
		{"series": "USD.SOFR", "at": "2024-01-01", "value": "0.053"},
		{"series": "USD.SOFR", "at": "2024-07-01", "value": "0.051"}
	]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[CountResponse](t, rec).Count)

	obs, err := h.Store.ListObservations(t.Context())
	require.NoError(t, err)
	assert.Len(t, obs, 2)

	// AND: a bad entry rejects the batch
	rec = do(t, srv, http.MethodPost, "/api/observations", `{"observations": [
		{"series": "USD.SOFR", "at": "2024-08-01", "value": "0.05"},
		{"series": "", "at": "2024-09-01", "value": "0.05"}
	]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	obs, err = h.Store.ListObservations(t.Context())
	require.NoError(t, err)
	assert.Len(t, obs, 2)
}

func TestAddContingentEvents(t *testing.T) {
	h, srv := setupTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/contingent-events", `{"events": [
		{"contract_id": "loan-1", "at": "2024-06-01", "type": "PP"}
	]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	events, err := h.Store.ListContingentEvents(t.Context())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, generic.EventPP, events[0].Type)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/contingent-events",
		`{"events": [{"contract_id": "loan-1", "at": "2024-06-01", "type": "ZZ"}]}`).Code)
}

func TestAddHoliday_RegistersCalendar(t *testing.T) {
	h, srv := setupTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/calendars/TARGET/holidays", `{"date": "2024-12-25", "name": "Christmas"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, decode[CalendarsResponse](t, rec).Calendars, "TARGET")
	cal, err := h.Calendars.Lookup("TARGET")
	require.NoError(t, err)
	assert.False(t, cal.IsBusinessDay(generic.Date(2024, 12, 25)))

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/calendars/TARGET/holidays", `{"date": "xmas"}`).Code)
}

// =============================================================================
// SCENARIOS AND REVALUATION
// =============================================================================

func TestLoadScenario_EveryScenarioLoads(t *testing.T) {
	h, srv := setupTestServer(t)

	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "`+s.ID+`"}`)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			contracts, err := h.Store.ListContracts(t.Context())
			require.NoError(t, err)
			assert.Len(t, contracts, len(scenarioData[s.ID].contracts))

			rec = do(t, srv, http.MethodGet, "/api/scenarios/current", "")
			assert.Equal(t, s.ID, decode[ScenarioDTO](t, rec).ID)
		})
	}

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "nope"}`).Code)
}

func TestRevalue_RecordsRunPerContract(t *testing.T) {
	h, srv := setupTestServer(t)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/scenarios/load",
		`{"scenario_id": "guaranteed-loan"}`).Code)
	h.now = func() time.Time { return generic.Date(2024, 3, 1) }

	rec := do(t, srv, http.MethodPost, "/api/admin/revalue", "")

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	runs := decode[[]RunDTO](t, rec)
	require.Len(t, runs, 2)
	for _, run := range runs {
		require.Len(t, run.AnalysisTimes, 1)
		assert.True(t, run.AnalysisTimes[0].Equal(generic.Date(2024, 3, 1)))
	}
}

func TestScheduler_StartStop(t *testing.T) {
	h, _ := setupTestServer(t)

	rs := NewRevaluationScheduler(h)
	rs.Start()
	rs.Stop()

	rs.Enabled = true
	rs.Interval = time.Hour
	rs.Start()
	rs.Stop()
	assert.True(t, rs.NextRunTime().After(time.Now()))
}
