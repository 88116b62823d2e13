/*
Package portfolio evaluates a batch of contracts that may reference each
other.

PURPOSE:
  Credit enhancements, swaps and caps can reference other contracts by ID.
  A referenced contract has to be evaluated first so that its events can
  be handed to the contract that depends on it. The batch is split into
  dependency levels; contracts within a level are independent and run in
  parallel, bounded by a worker limit.

FAILURE:
  A batch either succeeds as a whole or fails as a whole. The first
  failing contract cancels the rest and no partial result is returned.

OBSERVABILITY:
  Each batch and each contract gets a span; evaluated contracts, failures
  and evaluation durations are recorded on otel instruments. Without an
  installed provider these are no-ops.

USAGE:
  runner := portfolio.NewRunner(engine, portfolio.Options{Workers: 4})
  result, err := runner.Evaluate(ctx, contracts, analysisTimes, observer)
*/
package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/warp/cashflow-engine/generic"
)

const instrumentationName = "github.com/warp/cashflow-engine/portfolio"

var (
	attrContractID   = attribute.Key("cashflow.contract.id")
	attrContractType = attribute.Key("cashflow.contract.type")
	attrLevel        = attribute.Key("cashflow.portfolio.level")
	attrBatchSize    = attribute.Key("cashflow.portfolio.size")
)

// Evaluator evaluates one contract given the events of the contracts it
// references by ID. *instruments.Engine implements it.
type Evaluator interface {
	EvaluateLinked(analysisTimes []time.Time, terms *generic.Terms, riskFactors generic.RiskFactorObserver, linked map[generic.ContractID][]generic.ContractEvent) ([]generic.ContractEvent, error)
}

// Options configures a Runner. Zero values pick defaults.
type Options struct {
	// Workers bounds the contracts evaluated at once; <= 0 means 4.
	Workers int
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Meter   metric.Meter
}

// Runner evaluates portfolios.
type Runner struct {
	eval    Evaluator
	workers int
	logger  *slog.Logger
	tracer  trace.Tracer

	evaluated metric.Int64Counter
	failed    metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewRunner creates a runner. Instrument creation errors fall back to no-op
// instruments; metrics never fail an evaluation.
func NewRunner(eval Evaluator, opts Options) *Runner {
	r := &Runner{
		eval:    eval,
		workers: opts.Workers,
		logger:  opts.Logger,
		tracer:  opts.Tracer,
	}
	if r.workers <= 0 {
		r.workers = 4
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(instrumentationName)
	}
	meter := opts.Meter
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	var err error
	if r.evaluated, err = meter.Int64Counter("cashflow.contracts.evaluated",
		metric.WithDescription("Contracts evaluated in portfolio runs"),
		metric.WithUnit("{contract}"),
	); err != nil {
		r.logger.Warn("portfolio metric unavailable", "instrument", "cashflow.contracts.evaluated", "error", err)
	}
	if r.failed, err = meter.Int64Counter("cashflow.contracts.failed",
		metric.WithDescription("Contracts whose evaluation failed"),
		metric.WithUnit("{contract}"),
	); err != nil {
		r.logger.Warn("portfolio metric unavailable", "instrument", "cashflow.contracts.failed", "error", err)
	}
	if r.duration, err = meter.Float64Histogram("cashflow.contract.evaluation.duration",
		metric.WithDescription("Duration of one contract evaluation in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		r.logger.Warn("portfolio metric unavailable", "instrument", "cashflow.contract.evaluation.duration", "error", err)
	}
	return r
}

// Result is the outcome of one portfolio evaluation.
type Result struct {
	// Events holds each contract's evaluated timeline by contract ID.
	Events map[generic.ContractID][]generic.ContractEvent
	// Levels is the evaluation order that was used.
	Levels [][]generic.ContractID
}

// =============================================================================
// DEPENDENCY GRAPH
// =============================================================================

// Graph builds the dependency graph of a batch from the contract-ID
// references in each contract's structure. Every contract needs a unique
// ID.
func Graph(contracts []*generic.Terms) (*generic.DependencyGraph, error) {
	g := generic.NewDependencyGraph()
	seen := make(map[generic.ContractID]bool, len(contracts))
	for i, terms := range contracts {
		id := terms.ContractID()
		if id == "" {
			return nil, &generic.AttributeError{
				Attribute: generic.AttrContractID,
				Want:      generic.KindString,
				Reason:    fmt.Sprintf("contract %d of the portfolio has no ID", i),
			}
		}
		if seen[id] {
			return nil, &generic.AttributeError{
				Attribute: generic.AttrContractID,
				Want:      generic.KindString,
				Reason:    fmt.Sprintf("duplicate contract ID %s", id),
			}
		}
		seen[id] = true

		refs, err := terms.References()
		if err != nil {
			return nil, err
		}
		var deps []generic.ContractID
		for _, ref := range refs {
			if ref.ContractID != "" {
				deps = append(deps, ref.ContractID)
			}
		}
		g.Add(id, deps...)
	}
	return g, nil
}

// =============================================================================
// EVALUATION
// =============================================================================

// Evaluate runs every contract of the batch, referenced contracts first.
func (r *Runner) Evaluate(ctx context.Context, contracts []*generic.Terms, analysisTimes []time.Time, riskFactors generic.RiskFactorObserver) (Result, error) {
	ctx, span := r.tracer.Start(ctx, "portfolio.Evaluate",
		trace.WithAttributes(attrBatchSize.Int(len(contracts))))
	defer span.End()

	result, err := r.evaluate(ctx, contracts, analysisTimes, riskFactors)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	return result, nil
}

func (r *Runner) evaluate(ctx context.Context, contracts []*generic.Terms, analysisTimes []time.Time, riskFactors generic.RiskFactorObserver) (Result, error) {
	g, err := Graph(contracts)
	if err != nil {
		return Result{}, err
	}
	levels, err := g.Levels()
	if err != nil {
		return Result{}, err
	}

	byID := make(map[generic.ContractID]*generic.Terms, len(contracts))
	for _, terms := range contracts {
		byID[terms.ContractID()] = terms
	}

	done := make(map[generic.ContractID][]generic.ContractEvent, len(contracts))

	for n, level := range levels {
		// Inputs come from earlier levels only. They are gathered before
		// any worker starts, and results are merged after the level
		// completes, so done is never touched concurrently.
		linked := make([]map[generic.ContractID][]generic.ContractEvent, len(level))
		for i, id := range level {
			linked[i] = make(map[generic.ContractID][]generic.ContractEvent)
			for _, dep := range g.DependenciesOf(id) {
				linked[i][dep] = done[dep]
			}
		}
		results := make([][]generic.ContractEvent, len(level))

		eg, lctx := errgroup.WithContext(ctx)
		eg.SetLimit(r.workers)
		for i, id := range level {
			terms := byID[id]
			eg.Go(func() error {
				events, err := r.evaluateOne(lctx, n, terms, analysisTimes, riskFactors, linked[i])
				if err != nil {
					return err
				}
				results[i] = events
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return Result{}, err
		}
		for i, id := range level {
			done[id] = results[i]
		}
	}

	r.logger.Info("portfolio evaluated", "contracts", len(contracts), "levels", len(levels))
	return Result{Events: done, Levels: levels}, nil
}

func (r *Runner) evaluateOne(ctx context.Context, level int, terms *generic.Terms, analysisTimes []time.Time, riskFactors generic.RiskFactorObserver, linked map[generic.ContractID][]generic.ContractEvent) ([]generic.ContractEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := terms.ContractID()
	ct, _ := terms.ContractType()
	attrs := []attribute.KeyValue{attrContractType.String(ct)}

	ctx, span := r.tracer.Start(ctx, "portfolio.evaluateContract", trace.WithAttributes(
		attrContractID.String(string(id)),
		attrContractType.String(ct),
		attrLevel.Int(level),
	))
	defer span.End()

	start := time.Now()
	events, err := r.eval.EvaluateLinked(analysisTimes, terms, riskFactors, linked)
	if r.duration != nil {
		r.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
	}
	if err != nil {
		if r.failed != nil {
			r.failed.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("contract evaluation failed", "contract", id, "type", ct, "error", err)
		return nil, fmt.Errorf("contract %s: %w", id, err)
	}
	if r.evaluated != nil {
		r.evaluated.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	r.logger.Debug("contract evaluated", "contract", id, "type", ct, "events", len(events))
	return events, nil
}
