package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cashflow-engine/generic"
)

const loanYAML = `
contractType: PAM
contractID: loan-1
contractRole: RPA
currency: USD
statusDate: 2024-01-01
initialExchangeDate: 2024-01-01
maturityDate: 2026-01-01
notionalPrincipal: 1000
nominalInterestRate: 0.05
cycleAnchorDateOfInterestPayment: 2025-01-01
cycleOfInterestPayment: P1YL0
dayCountConvention: "30E360"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_PrintsTable(t *testing.T) {
	terms := writeFile(t, "loan.yaml", loanYAML)
	var out, errOut bytes.Buffer

	require.NoError(t, run([]string{"-terms", terms}, &out, &errOut))

	table := out.String()
	assert.Contains(t, table, "PAYOFF")
	assert.Contains(t, table, "-1000.00")
	assert.Contains(t, table, "2026-01-01")
}

func TestRun_JSONWithObservationsAndFilter(t *testing.T) {
	// GIVEN: a prepayment recorded in the observations file
	terms := writeFile(t, "loan.yaml", loanYAML)
	obs := writeFile(t, "rf.yaml", `
observations:
  - {series: "loan-1:PP", at: 2025-07-01, value: 400}
events:
  - {contract_id: loan-1, at: 2025-07-01, type: PP}
`)
	var out, errOut bytes.Buffer

	// WHEN: only prepayments are printed as JSON
	require.NoError(t, run([]string{"-terms", terms, "-observations", obs, "-types", "PP", "-json"}, &out, &errOut))

	// THEN
	var records []generic.EventRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, generic.EventPP, records[0].Type)
	assert.Equal(t, "400", records[0].Payoff.String())
}

func TestRun_Errors(t *testing.T) {
	var out, errOut bytes.Buffer
	terms := writeFile(t, "loan.yaml", loanYAML)

	assert.Error(t, run(nil, &out, &errOut))
	assert.Error(t, run([]string{"-terms", filepath.Join(t.TempDir(), "missing.json")}, &out, &errOut))
	assert.Error(t, run([]string{"-terms", terms, "-analysis", "soon"}, &out, &errOut))
	assert.Error(t, run([]string{"-terms", terms, "-types", "NOPE"}, &out, &errOut))
}
