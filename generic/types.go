/*
Package generic provides the contract-agnostic lifecycle engine.

PURPOSE:
  This package contains the machinery every instrument type shares: the
  contract event and its total order, the event factory, the state space
  threaded through evaluation, and the driver that assembles, rewrites,
  truncates, sorts and sequentially evaluates a candidate event set. Whether
  the instrument is a bullet loan, an annuity or a swap, the same driver
  runs; instrument packages only supply the variation points.

KEY CONCEPTS IN THIS FILE (types.go):
  - ContractID / RunID: Type-safe identifiers
  - Binding: A named payoff + state-transition pair bound to a category
  - Environment: The opaque collaborators passed to every binding
  - Decimal helpers shared by payoff formulas

DESIGN PRINCIPLES:
  1. Sequential: a contract's events are evaluated one after the other,
     each consuming the state the previous one produced
  2. Precision: all amounts and rates are decimal.Decimal
  3. Fail fast: malformed terms or schedules abort the run; there is no
     partial result
  4. Pluggable: the engine never inspects payoff formulas, it only
     invokes them in order

USAGE:
  events, err := generic.Drive(recipe, generic.DriveInput{
      Terms:         terms,
      Environment:   env,
      AnalysisTimes: []time.Time{asOf},
  })

SEE ALSO:
  - event.go: ContractEvent and its total order
  - driver.go: The generate/sort/evaluate driver
  - filter.go: Output filters
  - netting.go: Merging two evaluated streams
*/
package generic

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ContractID string
type RunID string

// NewRunID returns a fresh random run identifier.
func NewRunID() RunID {
	return RunID(uuid.NewString())
}

// =============================================================================
// BINDINGS - Pluggable payoff and state-transition computations
// =============================================================================

// PayoffFunction computes the cash flow of an event. It receives the
// schedule time (the unadjusted calculation time), never the adjusted
// event time.
type PayoffFunction func(t time.Time, s StateSpace, terms *Terms, env Environment) (decimal.Decimal, error)

// StateTransitionFunction computes the state after an event from the state
// before it.
type StateTransitionFunction func(t time.Time, s StateSpace, terms *Terms, env Environment) (StateSpace, error)

// Binding is a named payoff/transition pair. The name identifies the
// formula so that candidate collisions can tell a benign duplicate from two
// genuinely different computations.
type Binding struct {
	Name       string
	Payoff     PayoffFunction
	Transition StateTransitionFunction
}

// BindingTable resolves the binding of each category for one instrument
// type. It is looked up once, when the candidate set is assembled.
type BindingTable map[EventType]Binding

// Lookup returns the binding for a category.
func (bt BindingTable) Lookup(typ EventType) (Binding, error) {
	b, ok := bt[typ]
	if !ok {
		return Binding{}, &UnboundCategoryError{Type: typ}
	}
	return b, nil
}

// Supports reports whether the table binds the category.
func (bt BindingTable) Supports(typ EventType) bool {
	_, ok := bt[typ]
	return ok
}

// =============================================================================
// ENVIRONMENT - Opaque collaborators
// =============================================================================

// Environment bundles the collaborators every binding receives. The engine
// passes them through unmodified.
type Environment struct {
	// RiskFactors is nil for a non-contingent run.
	RiskFactors RiskFactorObserver
	DayCounter  DayCounter
	Adjuster    BusinessDayAdjuster
	Schedules   ScheduleExpander

	// Linked holds the evaluated events of contracts this contract depends
	// on (credit enhancement). Empty for stand-alone contracts.
	Linked map[ContractID][]ContractEvent
}

// CalcTime returns the time a schedule time stands for in calculations.
// Only shift-calculate conventions move it.
func (e Environment) CalcTime(t time.Time) time.Time {
	if e.Adjuster == nil {
		return t
	}
	return e.Adjuster.ShiftCalc(t)
}

// NonContingent returns a copy of the environment without a risk-factor
// source.
func (e Environment) NonContingent() Environment {
	e.RiskFactors = nil
	return e
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

var (
	Zero = decimal.Zero
	One  = decimal.NewFromInt(1)
)

// Dec builds a decimal from a literal string. It panics on malformed input
// and is meant for constants and tests.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// MaxDecimal returns the larger of a and b.
func MaxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// MinDecimal returns the smaller of a and b.
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
