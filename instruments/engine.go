/*
Package instruments provides the per-contract-type algorithms and the
dispatcher that selects them.

PURPOSE:
  Every contract type is a variation of the generic driver: a binding
  table, a candidate schedule, rewrites and an initial state. Composite
  types (SWAPS, CAPFL) and credit enhancements (CEG, CEC) additionally
  evaluate the contracts they reference and combine the results.

DISPATCH:
  The contract type tag is parsed into the closed ContractType enum and
  looked up in a table sized by the enum, so adding a type without an
  algorithm is caught by a test instead of a missing switch case.

USAGE:
  events, err := instruments.Evaluate(analysisTimes, terms, observer)

  engine := instruments.NewEngine(calendars, logger)
  events, err := engine.Evaluate(analysisTimes, terms, observer)

SEE ALSO:
  - generic/driver.go: The shared generate/sort/evaluate driver
  - formulas.go: Payoff and state-transition library
*/
package instruments

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/warp/cashflow-engine/conventions"
	"github.com/warp/cashflow-engine/generic"
)

// Request is one contract evaluation as seen by an algorithm.
type Request struct {
	Terms         *generic.Terms
	Env           generic.Environment
	AnalysisTimes []time.Time
}

// horizon is the latest analysis time, used as the schedule end of
// contracts without a maturity.
func (r Request) horizon() time.Time {
	return generic.Latest(r.AnalysisTimes...)
}

type algorithm func(e *Engine, req Request) ([]generic.ContractEvent, error)

// algorithms is filled in init: its entries reach back into the engine for
// composite contracts.
var algorithms [contractTypeCount]algorithm

func init() {
	algorithms = [contractTypeCount]algorithm{
		PAM:   recipeAlgorithm(pamRecipe),
		LAM:   recipeAlgorithm(lamRecipe),
		NAM:   recipeAlgorithm(namRecipe),
		ANN:   recipeAlgorithm(annRecipe),
		CLM:   recipeAlgorithm(clmRecipe),
		UMP:   recipeAlgorithm(umpRecipe),
		CSH:   recipeAlgorithm(cshRecipe),
		STK:   recipeAlgorithm(stkRecipe),
		COM:   recipeAlgorithm(comRecipe),
		FXOUT: recipeAlgorithm(fxoutRecipe),
		SWPPV: recipeAlgorithm(swppvRecipe),
		SWAPS: evaluateSwaps,
		CAPFL: evaluateCapFloor,
		CDS:   linkedAlgorithm(cdsRecipe),
		MAR:   recipeAlgorithm(marRecipe),
		OPTNS: recipeAlgorithm(optnsRecipe),
		FUTUR: recipeAlgorithm(futurRecipe),
		CEG:   linkedAlgorithm(cegRecipe),
		CEC:   linkedAlgorithm(cecRecipe),
	}
}

// recipeAlgorithm runs a recipe built from the request on the driver.
func recipeAlgorithm(build func(Request) (generic.Recipe, error)) algorithm {
	return func(e *Engine, req Request) ([]generic.ContractEvent, error) {
		r, err := build(req)
		if err != nil {
			return nil, err
		}
		return generic.Drive(r, generic.DriveInput{
			Terms:         req.Terms,
			Environment:   req.Env,
			AnalysisTimes: req.AnalysisTimes,
			Logger:        e.logger,
		})
	}
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine resolves conventions and dispatches contracts to algorithms.
type Engine struct {
	calendars *conventions.Registry
	logger    *slog.Logger
}

// NewEngine creates an engine. A nil registry knows the built-in calendars
// only; a nil logger uses slog.Default().
func NewEngine(calendars *conventions.Registry, logger *slog.Logger) *Engine {
	if calendars == nil {
		calendars = conventions.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{calendars: calendars, logger: logger}
}

var defaultEngine = NewEngine(nil, nil)

// Evaluate runs one contract with the default engine.
func Evaluate(analysisTimes []time.Time, terms *generic.Terms, riskFactors generic.RiskFactorObserver) ([]generic.ContractEvent, error) {
	return defaultEngine.Evaluate(analysisTimes, terms, riskFactors)
}

// Evaluate runs one stand-alone contract.
func (e *Engine) Evaluate(analysisTimes []time.Time, terms *generic.Terms, riskFactors generic.RiskFactorObserver) ([]generic.ContractEvent, error) {
	return e.EvaluateLinked(analysisTimes, terms, riskFactors, nil)
}

// EvaluateLinked runs one contract with the evaluated events of the
// contracts it references by ID.
func (e *Engine) EvaluateLinked(analysisTimes []time.Time, terms *generic.Terms, riskFactors generic.RiskFactorObserver, linked map[generic.ContractID][]generic.ContractEvent) ([]generic.ContractEvent, error) {
	env, err := e.Environment(terms, riskFactors)
	if err != nil {
		return nil, err
	}
	env.Linked = linked
	return e.dispatch(Request{Terms: terms, Env: env, AnalysisTimes: analysisTimes})
}

// Environment resolves the conventions declared by the terms.
func (e *Engine) Environment(terms *generic.Terms, riskFactors generic.RiskFactorObserver) (generic.Environment, error) {
	dc, adj, sched, err := conventions.Resolve(terms, e.calendars)
	if err != nil {
		return generic.Environment{}, err
	}
	return generic.Environment{
		RiskFactors: riskFactors,
		DayCounter:  dc,
		Adjuster:    adj,
		Schedules:   sched,
	}, nil
}

// TypeOf reads and parses the contract type tag.
func TypeOf(terms *generic.Terms) (ContractType, error) {
	tag, err := terms.ContractType()
	if err != nil {
		return 0, err
	}
	return ParseContractType(tag)
}

func (e *Engine) dispatch(req Request) ([]generic.ContractEvent, error) {
	ct, err := TypeOf(req.Terms)
	if err != nil {
		return nil, err
	}
	alg := algorithms[ct]
	if alg == nil {
		return nil, fmt.Errorf("%s: %w", ct, generic.ErrUnknownContractType)
	}
	e.logger.Debug("evaluating contract",
		"contract", req.Terms.ContractID(), "type", ct.String(), "analysis_times", len(req.AnalysisTimes))
	return alg(e, req)
}

// child evaluates a referenced contract under its own conventions. Terms it
// leaves unset inherit the parent's status date and currency.
func (e *Engine) child(parent Request, terms *generic.Terms, analysisTimes []time.Time) ([]generic.ContractEvent, error) {
	terms = inherit(parent.Terms, terms)
	env, err := e.Environment(terms, parent.Env.RiskFactors)
	if err != nil {
		return nil, err
	}
	env.Linked = parent.Env.Linked
	return e.dispatch(Request{Terms: terms, Env: env, AnalysisTimes: analysisTimes})
}

func inherit(parent, child *generic.Terms) *generic.Terms {
	out := child.Clone()
	for _, a := range []generic.Attribute{generic.AttrStatusDate, generic.AttrCurrency} {
		if out.Has(a) {
			continue
		}
		if v, ok := parent.Value(a); ok {
			// The value came out of typed terms, so Set cannot fail.
			_ = out.Set(a, v)
		}
	}
	return out
}
