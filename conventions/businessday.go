package conventions

import (
	"fmt"
	"time"

	"github.com/warp/cashflow-engine/generic"
)

// =============================================================================
// BUSINESS DAY CONVENTIONS
// =============================================================================

// BusinessDayConvention combines a shift direction with whether
// calculations use the shifted (SC) or the original (CS) date.
type BusinessDayConvention string

const (
	NoShift                    BusinessDayConvention = "NOS"
	ShiftCalcFollowing         BusinessDayConvention = "SCF"
	ShiftCalcModifiedFollowing BusinessDayConvention = "SCMF"
	CalcShiftFollowing         BusinessDayConvention = "CSF"
	CalcShiftModifiedFollowing BusinessDayConvention = "CSMF"
	ShiftCalcPreceding         BusinessDayConvention = "SCP"
	ShiftCalcModifiedPreceding BusinessDayConvention = "SCMP"
	CalcShiftPreceding         BusinessDayConvention = "CSP"
	CalcShiftModifiedPreceding BusinessDayConvention = "CSMP"
)

type shiftRule int

const (
	ruleNone shiftRule = iota
	ruleFollowing
	ruleModifiedFollowing
	rulePreceding
	ruleModifiedPreceding
)

var conventionRules = map[BusinessDayConvention]struct {
	rule      shiftRule
	shiftCalc bool
}{
	NoShift:                    {ruleNone, false},
	ShiftCalcFollowing:         {ruleFollowing, true},
	ShiftCalcModifiedFollowing: {ruleModifiedFollowing, true},
	CalcShiftFollowing:         {ruleFollowing, false},
	CalcShiftModifiedFollowing: {ruleModifiedFollowing, false},
	ShiftCalcPreceding:         {rulePreceding, true},
	ShiftCalcModifiedPreceding: {ruleModifiedPreceding, true},
	CalcShiftPreceding:         {rulePreceding, false},
	CalcShiftModifiedPreceding: {ruleModifiedPreceding, false},
}

// Adjuster implements generic.BusinessDayAdjuster for one convention on one
// calendar.
type Adjuster struct {
	convention BusinessDayConvention
	rule       shiftRule
	shiftCalc  bool
	calendar   Calendar
}

// NewAdjuster returns the adjuster for a convention code. An empty code
// means NOS.
func NewAdjuster(code string, cal Calendar) (*Adjuster, error) {
	if code == "" {
		code = string(NoShift)
	}
	r, ok := conventionRules[BusinessDayConvention(code)]
	if !ok {
		return nil, &generic.AttributeError{
			Attribute: generic.AttrBusinessDayConvention,
			Want:      generic.KindString,
			Reason:    fmt.Sprintf("unknown business day convention %q", code),
		}
	}
	if cal == nil {
		cal = NoCalendar
	}
	return &Adjuster{convention: BusinessDayConvention(code), rule: r.rule, shiftCalc: r.shiftCalc, calendar: cal}, nil
}

func (a *Adjuster) Convention() BusinessDayConvention {
	return a.convention
}

// Shift moves t onto a business day.
func (a *Adjuster) Shift(t time.Time) time.Time {
	switch a.rule {
	case ruleFollowing:
		return a.following(t)
	case ruleModifiedFollowing:
		shifted := a.following(t)
		if shifted.Month() != t.Month() {
			return a.preceding(t)
		}
		return shifted
	case rulePreceding:
		return a.preceding(t)
	case ruleModifiedPreceding:
		shifted := a.preceding(t)
		if shifted.Month() != t.Month() {
			return a.following(t)
		}
		return shifted
	}
	return t
}

// ShiftCalc returns the calculation time: shifted for SC conventions,
// unchanged otherwise.
func (a *Adjuster) ShiftCalc(t time.Time) time.Time {
	if a.shiftCalc {
		return a.Shift(t)
	}
	return t
}

func (a *Adjuster) following(t time.Time) time.Time {
	for !a.calendar.IsBusinessDay(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func (a *Adjuster) preceding(t time.Time) time.Time {
	for !a.calendar.IsBusinessDay(t) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

var _ generic.BusinessDayAdjuster = (*Adjuster)(nil)
