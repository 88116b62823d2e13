package generic

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATE SPACE - The accumulator threaded through evaluation
// =============================================================================

// Performance is the contract performance status.
type Performance string

const (
	PerformancePerforming Performance = "PF"
	PerformanceDelayed    Performance = "DL"
	PerformanceDelinquent Performance = "DQ"
	PerformanceDefault    Performance = "DF"
)

// ParsePerformance validates a performance code.
func ParsePerformance(s string) (Performance, error) {
	switch p := Performance(s); p {
	case PerformancePerforming, PerformanceDelayed, PerformanceDelinquent, PerformanceDefault:
		return p, nil
	}
	return "", fmt.Errorf("unknown contract performance %q", s)
}

// Performing reports whether scheduled payments are still honoured.
func (p Performance) Performing() bool {
	return p == "" || p == PerformancePerforming
}

// StateSpace is a snapshot of every contract state variable. It is passed
// and returned by value; each event's transition consumes the current
// snapshot and produces the next one. It holds no maps or slices, so a copy
// never aliases its source.
type StateSpace struct {
	StatusDate          time.Time
	ContractPerformance Performance
	NonPerformingDate   time.Time

	// RoleSign is +1 for asset-side roles and -1 for liability-side roles.
	RoleSign decimal.Decimal

	NotionalPrincipal              decimal.Decimal
	NominalInterestRate            decimal.Decimal
	AccruedInterest                decimal.Decimal
	FeeAccrued                     decimal.Decimal
	InterestCalculationBaseAmount  decimal.Decimal
	NextPrincipalRedemptionPayment decimal.Decimal
	NotionalScalingMultiplier      decimal.Decimal
	InterestScalingMultiplier      decimal.Decimal

	// Second leg of a plain vanilla swap.
	NominalInterestRate2 decimal.Decimal
	AccruedInterest2     decimal.Decimal

	MaturityDate   time.Time
	ExerciseDate   time.Time
	ExerciseAmount decimal.Decimal

	// Margining and credit enhancement.
	VariationMargin decimal.Decimal
	MarketValue     decimal.Decimal
	CoveredNotional decimal.Decimal
}

// NewStateSpace returns a performing state with unit scaling multipliers.
func NewStateSpace(statusDate time.Time, roleSign decimal.Decimal) StateSpace {
	return StateSpace{
		StatusDate:                statusDate,
		ContractPerformance:       PerformancePerforming,
		RoleSign:                  roleSign,
		NotionalScalingMultiplier: One,
		InterestScalingMultiplier: One,
	}
}

// Equal reports whether two snapshots hold the same values.
func (s StateSpace) Equal(o StateSpace) bool {
	return s.StatusDate.Equal(o.StatusDate) &&
		s.ContractPerformance == o.ContractPerformance &&
		s.NonPerformingDate.Equal(o.NonPerformingDate) &&
		s.RoleSign.Equal(o.RoleSign) &&
		s.NotionalPrincipal.Equal(o.NotionalPrincipal) &&
		s.NominalInterestRate.Equal(o.NominalInterestRate) &&
		s.AccruedInterest.Equal(o.AccruedInterest) &&
		s.FeeAccrued.Equal(o.FeeAccrued) &&
		s.InterestCalculationBaseAmount.Equal(o.InterestCalculationBaseAmount) &&
		s.NextPrincipalRedemptionPayment.Equal(o.NextPrincipalRedemptionPayment) &&
		s.NotionalScalingMultiplier.Equal(o.NotionalScalingMultiplier) &&
		s.InterestScalingMultiplier.Equal(o.InterestScalingMultiplier) &&
		s.NominalInterestRate2.Equal(o.NominalInterestRate2) &&
		s.AccruedInterest2.Equal(o.AccruedInterest2) &&
		s.MaturityDate.Equal(o.MaturityDate) &&
		s.ExerciseDate.Equal(o.ExerciseDate) &&
		s.ExerciseAmount.Equal(o.ExerciseAmount) &&
		s.VariationMargin.Equal(o.VariationMargin) &&
		s.MarketValue.Equal(o.MarketValue) &&
		s.CoveredNotional.Equal(o.CoveredNotional)
}
