package instruments

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/cashflow-engine/conventions"
	"github.com/warp/cashflow-engine/generic"
)

func TestAlgorithms_EveryContractTypeIsBound(t *testing.T) {
	// GIVEN: the closed set of contract types
	// WHEN: each is looked up in the dispatch table
	// THEN: none is missing
	for _, c := range AllContractTypes() {
		assert.NotNil(t, algorithms[c], "no algorithm for %s", c)
	}
	assert.Len(t, AllContractTypes(), int(contractTypeCount))
}

func TestParseContractType(t *testing.T) {
	tests := []struct {
		tag  string
		want ContractType
	}{
		{"PAM", PAM},
		{"pam", PAM},
		{" fxout ", FXOUT},
		{"CEC", CEC},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := ParseContractType(tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseContractType_Unknown(t *testing.T) {
	// GIVEN: a tag outside the enum
	_, err := ParseContractType("XYZ")

	// THEN: the error names the tag and matches the sentinel
	var unknown *generic.UnknownContractTypeError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "XYZ", unknown.Tag)
	assert.ErrorIs(t, err, generic.ErrUnknownContractType)
}

func TestContractType_TextRoundTrip(t *testing.T) {
	b, err := SWAPS.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "SWAPS", string(b))

	var c ContractType
	require.NoError(t, c.UnmarshalText([]byte("capfl")))
	assert.Equal(t, CAPFL, c)
	assert.Equal(t, "cap / floor", c.Description())

	_, err = ContractType(99).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "ContractType(99)", ContractType(99).String())
}

func TestAnnuity_LevelInstallment(t *testing.T) {
	// GIVEN: three monthly periods at 1% per period
	from := generic.Date(2024, time.January, 1)
	dates := []time.Time{
		generic.Date(2024, time.February, 1),
		generic.Date(2024, time.March, 1),
		generic.Date(2024, time.April, 1),
	}

	// WHEN: the installment for 1000 is computed
	a := annuity(generic.Dec("1000"), generic.Dec("0.12"), from, dates, conventions.ThirtyE360{})

	// THEN: it matches the closed form 1000 * r / (1 - (1+r)^-3)
	assert.InDelta(t, 340.0221, a.InexactFloat64(), 1e-4)
}
