/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	contracts and market data. Each scenario stores contract terms, the
	observations their rate resets and exercises read, and the contingent
	events that drive prepayments or defaults.

AVAILABLE SCENARIOS:

	bullet-loan:        Fixed-rate loan repaid at maturity
	floating-rate-loan: Loan resetting semi-annually from a SOFR series
	amortizing-book:    Linear amortizer next to an annuity
	guaranteed-loan:    Loan that defaults, half covered by a guarantee
	equity-option:      European call exercised against stock quotes

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Store contracts via the terms factory
 3. Store observations and contingent events
 4. Reload holiday calendars

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "guaranteed-loan"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add its data to 'scenarioData'

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: saveContract, parseObservations
*/
package api

import (
	"context"
	"fmt"
	"net/http"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "bullet-loan",
		Name:        "Bullet Loan",
		Description: "Fixed-rate loan with annual interest, principal at maturity",
		Category:    "loans",
	},
	{
		ID:          "floating-rate-loan",
		Name:        "Floating-Rate Loan",
		Description: "Semi-annual rate resets from USD.SOFR plus a spread",
		Category:    "loans",
	},
	{
		ID:          "amortizing-book",
		Name:        "Amortizing Book",
		Description: "Linear amortizer and annuity side by side",
		Category:    "loans",
	},
	{
		ID:          "guaranteed-loan",
		Name:        "Guaranteed Loan",
		Description: "Loan defaults in July; a guarantee covers half the exposure",
		Category:    "credit",
	},
	{
		ID:          "equity-option",
		Name:        "Equity Option",
		Description: "European call on ACME exercised at expiry",
		Category:    "derivatives",
	},
}

// scenario is the data one demo scenario stores.
type scenario struct {
	contracts    []string
	observations []ObservationDTO
	events       []ContingentEventDTO
}

var scenarioData = map[string]scenario{
	"bullet-loan": {
		contracts: []string{`{
			"contractType": "PAM", "contractID": "loan-1", "contractRole": "RPA",
			"currency": "USD", "statusDate": "2024-01-01",
			"initialExchangeDate": "2024-01-01", "maturityDate": "2027-01-01",
			"notionalPrincipal": "1000000", "nominalInterestRate": "0.05",
			"cycleAnchorDateOfInterestPayment": "2025-01-01", "cycleOfInterestPayment": "P1YL0",
			"dayCountConvention": "30E360"
		}`},
	},
	"floating-rate-loan": {
		contracts: []string{`{
			"contractType": "PAM", "contractID": "frn-1", "contractRole": "RPA",
			"currency": "USD", "statusDate": "2024-01-01",
			"initialExchangeDate": "2024-01-01", "maturityDate": "2026-01-01",
			"notionalPrincipal": "500000", "nominalInterestRate": "0.053",
			"cycleAnchorDateOfInterestPayment": "2024-07-01", "cycleOfInterestPayment": "P6ML0",
			"cycleAnchorDateOfRateReset": "2024-07-01", "cycleOfRateReset": "P6ML0",
			"marketObjectCodeOfRateReset": "USD.SOFR", "rateSpread": "0.015",
			"dayCountConvention": "A360", "businessDayConvention": "SCF", "calendar": "MF"
		}`},
		observations: []ObservationDTO{
			{Series: "USD.SOFR", At: "2024-01-01", Value: "0.0531"},
			{Series: "USD.SOFR", At: "2024-07-01", Value: "0.0533"},
			{Series: "USD.SOFR", At: "2025-01-01", Value: "0.0431"},
			{Series: "USD.SOFR", At: "2025-07-01", Value: "0.0434"},
		},
	},
	"amortizing-book": {
		contracts: []string{`{
			"contractType": "LAM", "contractID": "lam-1", "contractRole": "RPA",
			"currency": "USD", "statusDate": "2024-01-01",
			"initialExchangeDate": "2024-01-01", "maturityDate": "2026-01-01",
			"notionalPrincipal": "240000", "nominalInterestRate": "0.06",
			"nextPrincipalRedemptionPayment": "30000",
			"cycleAnchorDateOfPrincipalRedemption": "2024-04-01", "cycleOfPrincipalRedemption": "P3ML0",
			"cycleAnchorDateOfInterestPayment": "2024-04-01", "cycleOfInterestPayment": "P3ML0",
			"dayCountConvention": "30E360"
		}`, `{
			"contractType": "ANN", "contractID": "ann-1", "contractRole": "RPA",
			"currency": "USD", "statusDate": "2024-01-01",
			"initialExchangeDate": "2024-01-01", "maturityDate": "2029-01-01",
			"notionalPrincipal": "300000", "nominalInterestRate": "0.045",
			"cycleAnchorDateOfPrincipalRedemption": "2024-02-01", "cycleOfPrincipalRedemption": "P1ML0",
			"dayCountConvention": "30E360"
		}`},
	},
	"guaranteed-loan": {
		contracts: []string{`{
			"contractType": "PAM", "contractID": "loan-1", "contractRole": "RPA",
			"currency": "USD", "statusDate": "2024-01-01",
			"initialExchangeDate": "2024-01-01", "maturityDate": "2026-01-01",
			"notionalPrincipal": "1000", "nominalInterestRate": "0.05",
			"cycleAnchorDateOfInterestPayment": "2025-01-01", "cycleOfInterestPayment": "P1YL0",
			"dayCountConvention": "30E360"
		}`, `{
			"contractType": "CEG", "contractID": "guarantee-1", "contractRole": "BUY",
			"currency": "USD", "statusDate": "2024-01-01", "maturityDate": "2026-01-01",
			"coverageOfCreditEnhancement": "0.5",
			"contractStructure": [{"referenceRole": "COVE", "referenceType": "CID", "object": "loan-1"}]
		}`},
		events: []ContingentEventDTO{
			{ContractID: "loan-1", At: "2024-07-01", Type: "CE"},
		},
	},
	"equity-option": {
		contracts: []string{`{
			"contractType": "OPTNS", "contractID": "opt-1", "contractRole": "LG",
			"currency": "USD", "statusDate": "2024-01-01",
			"purchaseDate": "2024-01-02", "priceAtPurchaseDate": "5", "quantity": "10",
			"optionType": "C", "optionStrike1": "100",
			"optionExerciseEndDate": "2024-06-28", "settlementPeriod": "P3DL0",
			"marketObjectCode": "ACME"
		}`},
		observations: []ObservationDTO{
			{Series: "ACME", At: "2024-01-02", Value: "101"},
			{Series: "ACME", At: "2024-06-28", Value: "120"},
		},
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: h.currentScenario, Name: h.currentScenario})
}

// LoadScenario resets the database and loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	data, ok := scenarioData[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if err := h.loadScenario(ctx, data); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID
	h.Logger.Info("scenario loaded", "scenario", req.ScenarioID, "contracts", len(data.contracts))

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadScenario(ctx context.Context, data scenario) error {
	for i, doc := range data.contracts {
		if _, err := h.saveContract(ctx, []byte(doc)); err != nil {
			return fmt.Errorf("contract %d: %w", i, err)
		}
	}
	obs, err := parseObservations(data.observations)
	if err != nil {
		return err
	}
	if err := h.Store.AddObservations(ctx, obs); err != nil {
		return err
	}
	events, err := parseContingentEvents(data.events)
	if err != nil {
		return err
	}
	if err := h.Store.AddContingentEvents(ctx, events); err != nil {
		return err
	}
	return h.Store.LoadCalendars(ctx, h.Calendars)
}
