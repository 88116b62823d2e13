package generic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cashflow-engine/conventions"
	"github.com/warp/cashflow-engine/generic"
)

func TestAmortizationPeriods_Ceiling(t *testing.T) {
	tests := []struct {
		name                          string
		notional, installment, coupon string
		want                          int64
	}{
		{"exact division", "1000", "100", "0", 10},
		{"exact with coupon", "1000", "120", "20", 10},
		{"rounds up", "1000", "300", "0", 4},
		{"rounds up a tiny remainder", "1000.01", "100", "0", 11},
		{"signs are ignored", "-1000", "-300", "0", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := generic.AmortizationPeriods(generic.Dec(tt.notional), generic.Dec(tt.installment), generic.Dec(tt.coupon))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmortizationPeriods_InstallmentMustExceedCoupon(t *testing.T) {
	_, err := generic.AmortizationPeriods(generic.Dec("1000"), generic.Dec("50"), generic.Dec("50"))
	assert.ErrorIs(t, err, generic.ErrScheduleConstruction)
}

func TestInferMaturity_PastAnchor(t *testing.T) {
	// GIVEN: quarterly redemptions since January, status date in May
	in := generic.MaturityInput{
		StatusDate:  day(2024, time.May, 15),
		Anchor:      day(2024, time.January, 1),
		Cycle:       "P3ML0",
		EOM:         generic.EOMSameDay,
		Notional:    generic.Dec("1000"),
		Installment: generic.Dec("300"),
	}

	// WHEN
	got, err := generic.InferMaturity(in, conventions.Expander{}, conventions.Actual365{})

	// THEN: last redemption 2024-04-01 plus ceil(1000/300) = 4 quarters
	require.NoError(t, err)
	assert.Equal(t, day(2025, time.April, 1), got)
}

func TestInferMaturity_FutureAnchorCountsAsFirstPeriod(t *testing.T) {
	in := generic.MaturityInput{
		StatusDate:  day(2024, time.January, 1),
		Anchor:      day(2024, time.July, 1),
		Cycle:       "P1ML0",
		EOM:         generic.EOMSameDay,
		Notional:    generic.Dec("1000"),
		Installment: generic.Dec("100"),
	}

	got, err := generic.InferMaturity(in, conventions.Expander{}, conventions.Actual365{})

	// ten redemptions, the first on the anchor
	require.NoError(t, err)
	assert.Equal(t, day(2025, time.April, 1), got)
}

func TestInferMaturity_CouponReducesPrincipalPortion(t *testing.T) {
	// GIVEN: a 30E360 year with a 10% rate: one yearly coupon is exactly 100
	in := generic.MaturityInput{
		StatusDate:  day(2024, time.January, 1),
		Anchor:      day(2024, time.January, 1),
		Cycle:       "P1YL0",
		EOM:         generic.EOMSameDay,
		Notional:    generic.Dec("1000"),
		Installment: generic.Dec("300"),
		Rate:        generic.Dec("0.1"),
		WithCoupon:  true,
	}

	got, err := generic.InferMaturity(in, conventions.Expander{}, conventions.ThirtyE360{})

	// THEN: ceil(1000 / (300 - 100)) = 5 years after the anchor
	require.NoError(t, err)
	assert.Equal(t, day(2029, time.January, 1), got)
}
