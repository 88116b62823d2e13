package generic

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MATURITY INFERENCE - For amortizers without an explicit maturity date
// =============================================================================

// AmortizationPeriods returns the number of whole redemption cycles needed to
// repay notional at installment per cycle, of which coupon goes to
// interest: ceil(notional / (installment - coupon)). The division is exact;
// any remainder rounds up.
func AmortizationPeriods(notional, installment, coupon decimal.Decimal) (int64, error) {
	principal := installment.Abs().Sub(coupon.Abs())
	if !principal.IsPositive() {
		return 0, fmt.Errorf("installment %s does not exceed coupon %s: %w",
			installment, coupon, ErrScheduleConstruction)
	}
	q, r := notional.Abs().QuoRem(principal, 0)
	periods := q.IntPart()
	if !r.IsZero() {
		periods++
	}
	return periods, nil
}

// MaturityInput describes an amortizing schedule whose end is unknown.
type MaturityInput struct {
	StatusDate  time.Time
	Anchor      time.Time
	Cycle       string
	EOM         EndOfMonthConvention
	Notional    decimal.Decimal
	Installment decimal.Decimal
	// Rate is used for the coupon when WithCoupon is set.
	Rate       decimal.Decimal
	WithCoupon bool
}

// InferMaturity finds the last redemption anchor at or before the status
// date and adds enough cycles to repay the notional. When the first
// redemption is still in the future, it counts as the first period.
func InferMaturity(in MaturityInput, sched ScheduleExpander, dc DayCounter) (time.Time, error) {
	if in.Cycle == "" {
		return time.Time{}, &ScheduleError{Anchor: in.Anchor, Cycle: in.Cycle, Reason: "redemption cycle required to infer maturity"}
	}

	last := in.Anchor
	future := in.Anchor.After(in.StatusDate)
	if !future {
		dates, err := sched.Expand(in.Anchor, in.StatusDate, in.Cycle, in.EOM, false)
		if err != nil {
			return time.Time{}, err
		}
		if n := len(dates); n > 0 {
			last = dates[n-1]
		}
		// Expand stops before the status date and may drop a long stub.
		for {
			next, err := sched.Advance(last, in.Cycle, 1)
			if err != nil {
				return time.Time{}, err
			}
			if next.After(in.StatusDate) {
				break
			}
			last = next
		}
	}

	coupon := Zero
	if in.WithCoupon {
		next, err := sched.Advance(last, in.Cycle, 1)
		if err != nil {
			return time.Time{}, err
		}
		coupon = dc.YearFraction(last, next).Mul(in.Rate).Mul(in.Notional.Abs())
	}

	periods, err := AmortizationPeriods(in.Notional, in.Installment, coupon)
	if err != nil {
		return time.Time{}, err
	}
	if future {
		periods--
	}
	return sched.Advance(last, in.Cycle, int(periods))
}
