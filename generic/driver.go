/*
driver.go - The generate / sort / evaluate driver shared by every instrument

PURPOSE:
  Every instrument type follows the same shape. Only the variation points
  in Recipe differ:

    V1  Schedule      assemble candidate events from sub-schedules
    V2  Contingent    merge events from the risk-factor source
    V3  Rewrites      retype events before sorting (IP -> IPCI, PR -> MD, ...)
    V4  truncation    termination date, status date (driver-owned)
    V5  InitialState  the state as of the status date

  Then: sort by total order, evaluate sequentially, truncate at the
  purchase date.

FAIL FAST:
  Any error aborts the run and no events are returned. Later filters
  assume the full sorted and evaluated set, so a truncated prefix is
  never handed to the caller.

EXAMPLE:
  events, err := generic.Drive(recipe, generic.DriveInput{
      Terms:         terms,
      Environment:   env,
      AnalysisTimes: []time.Time{asOf},
  })

SEE ALSO:
  - candidates.go: De-duplication
  - filter.go: Output filters applied by callers
*/
package generic

import (
	"fmt"
	"log/slog"
	"time"
)

// =============================================================================
// RECIPE - Per-instrument variation points
// =============================================================================

// Recipe describes how one instrument type generates and evaluates events.
type Recipe struct {
	Name string

	// Bindings are resolved once, while the candidate set is assembled.
	Bindings BindingTable

	// Conflicts decides candidate key collisions. Defaults to LastWriteWins.
	Conflicts ConflictPolicy

	// Schedule adds the instrument's sub-schedules (V1). The driver adds the
	// initial exchange and the analysis events itself.
	Schedule func(b *Builder) error

	// Contingent enables merging events from the risk-factor source (V2).
	Contingent bool

	// Rewrites run in order on the assembled candidates (V3).
	Rewrites []Rewrite

	// InitialState derives the state as of the status date (V5).
	InitialState func(terms *Terms, env Environment) (StateSpace, error)
}

// Rewrite transforms the candidate list before truncation and sorting.
// It must return new event values rather than mutate shared ones.
type Rewrite func(events []ContractEvent, rc RewriteContext) ([]ContractEvent, error)

// RewriteContext is what a rewrite may consult.
type RewriteContext struct {
	Terms      *Terms
	Env        Environment
	Bindings   BindingTable
	StatusDate time.Time
	// Maturity is the explicit or inferred maturity; zero when unknown.
	Maturity time.Time
}

// DriveInput carries the inputs of a single contract evaluation.
type DriveInput struct {
	Terms         *Terms
	Environment   Environment
	AnalysisTimes []time.Time

	// KeepPrePurchase disables dropping events before the purchase date.
	KeepPrePurchase bool

	Logger *slog.Logger
}

// =============================================================================
// BUILDER - Candidate assembly helpers handed to Recipe.Schedule
// =============================================================================

// Builder accumulates candidate events for one run.
type Builder struct {
	Terms      *Terms
	Env        Environment
	StatusDate time.Time

	// Maturity may be set by the recipe once known; rewrites see it.
	Maturity time.Time

	bindings BindingTable
	set      *CandidateSet
	eom      EndOfMonthConvention
}

// Currency returns the contract's settlement currency.
func (b *Builder) Currency() string {
	return b.Terms.Currency()
}

// Binding resolves the binding of a category.
func (b *Builder) Binding(typ EventType) (Binding, error) {
	return b.bindings.Lookup(typ)
}

// Add inserts a ready-made event.
func (b *Builder) Add(e ContractEvent) error {
	return b.set.Add(e)
}

// At adds one business-day-adjusted event in the settlement currency.
func (b *Builder) At(typ EventType, t time.Time) error {
	return b.AtCurrency(typ, t, b.Currency())
}

// AtCurrency adds one business-day-adjusted event in the given currency.
func (b *Builder) AtCurrency(typ EventType, t time.Time, currency string) error {
	bind, err := b.bindings.Lookup(typ)
	if err != nil {
		return err
	}
	return b.set.Add(MakeAdjusted(t, typ, currency, bind, b.Env.Adjuster))
}

// Cycle expands anchor..end by cycle and adds one event per date.
func (b *Builder) Cycle(typ EventType, anchor, end time.Time, cycle string, includeEnd bool) error {
	bind, err := b.bindings.Lookup(typ)
	if err != nil {
		return err
	}
	if b.Env.Schedules == nil {
		return &ScheduleError{Anchor: anchor, End: end, Cycle: cycle, Reason: "no schedule expander"}
	}
	dates, err := b.Env.Schedules.Expand(anchor, end, cycle, b.eom, includeEnd)
	if err != nil {
		return err
	}
	return b.set.AddAll(MakeSchedule(dates, typ, b.Currency(), bind, b.Env.Adjuster))
}

// CycleFrom adds the sub-schedule declared by an anchor/cycle attribute
// pair. With neither attribute present nothing is added. A missing anchor
// defaults to one cycle after fallback; a missing cycle yields the anchor
// alone.
func (b *Builder) CycleFrom(typ EventType, anchorAttr, cycleAttr Attribute, fallback, end time.Time, includeEnd bool) error {
	anchor, err := b.Terms.OptDate(anchorAttr)
	if err != nil {
		return err
	}
	cycle, err := b.Terms.OptCycle(cycleAttr)
	if err != nil {
		return err
	}
	if !anchor.IsSet() && !cycle.IsSet() {
		return nil
	}

	c := cycle.OrElse("")
	start, ok := anchor.Get()
	if !ok {
		if b.Env.Schedules == nil {
			return &ScheduleError{Anchor: fallback, End: end, Cycle: c, Reason: "no schedule expander"}
		}
		start, err = b.Env.Schedules.Advance(fallback, c, 1)
		if err != nil {
			return err
		}
	}
	if c == "" {
		if start.After(end) {
			return nil
		}
		return b.At(typ, start)
	}
	return b.Cycle(typ, start, end, c, includeEnd)
}

// =============================================================================
// DRIVE - The driver
// =============================================================================

// Drive evaluates one contract with the given recipe.
func Drive(r Recipe, in DriveInput) ([]ContractEvent, error) {
	logger := in.Logger
	if logger == nil {
		logger = slog.Default()
	}
	terms := in.Terms
	env := in.Environment
	id := terms.ContractID()

	sd, err := terms.StatusDate()
	if err != nil {
		return nil, err
	}
	eom, err := terms.StringOr(AttrEndOfMonthConvention, string(EOMSameDay))
	if err != nil {
		return nil, err
	}

	b := &Builder{
		Terms:      terms,
		Env:        env,
		StatusDate: sd,
		bindings:   r.Bindings,
		set:        NewCandidateSet(r.Conflicts),
		eom:        EndOfMonthConvention(eom),
	}
	if m, err := terms.OptDate(AttrMaturityDate); err != nil {
		return nil, err
	} else if t, ok := m.Get(); ok {
		b.Maturity = t
	}

	// V1: initial exchange, instrument sub-schedules, analysis points
	if r.Bindings.Supports(EventIED) {
		ied, err := terms.OptDate(AttrInitialExchangeDate)
		if err != nil {
			return nil, err
		}
		if t, ok := ied.Get(); ok {
			if err := b.At(EventIED, t); err != nil {
				return nil, err
			}
		}
	}
	if r.Schedule != nil {
		if err := r.Schedule(b); err != nil {
			return nil, err
		}
	}
	analysis := r.Bindings[EventAD]
	if analysis.Name == "" {
		analysis.Name = "AD"
	}
	for _, t := range in.AnalysisTimes {
		if err := b.set.Add(Make(t, EventAD, terms.Currency(), analysis)); err != nil {
			return nil, err
		}
	}

	// V2: contingent events, rebound to this instrument's computations
	if r.Contingent && env.RiskFactors != nil {
		contingent, err := env.RiskFactors.UnscheduledEvents(terms)
		if err != nil {
			return nil, err
		}
		for _, ev := range contingent {
			bind, ok := r.Bindings[ev.Type]
			if !ok {
				logger.Debug("dropping unsupported contingent event",
					"contract", id, "recipe", r.Name, "type", ev.Type.String(), "at", ev.EventTime)
				continue
			}
			if err := b.set.Add(ev.WithBinding(bind).AsContingent()); err != nil {
				return nil, err
			}
		}
	}

	// V3: rewrites, then de-duplicate again
	events := b.set.Events()
	rc := RewriteContext{Terms: terms, Env: env, Bindings: r.Bindings, StatusDate: sd, Maturity: b.Maturity}
	for _, rw := range r.Rewrites {
		events, err = rw(events, rc)
		if err != nil {
			return nil, err
		}
	}
	rewritten := NewCandidateSet(r.Conflicts)
	if err := rewritten.AddAll(events); err != nil {
		return nil, err
	}
	events = rewritten.Events()

	// V4: termination and status date
	events, err = truncateAtTermination(events, r.Bindings, terms, env)
	if err != nil {
		return nil, err
	}
	events = dropBefore(events, sd)

	SortEvents(events)

	// V5
	state := NewStateSpace(sd, One)
	if r.InitialState != nil {
		state, err = r.InitialState(terms, env)
		if err != nil {
			return nil, err
		}
	}

	for i := range events {
		if err := events[i].Evaluate(state, terms, env); err != nil {
			return nil, &EvaluationError{ContractID: id, Type: events[i].Type, At: events[i].EventTime, Err: err}
		}
		state = events[i].State()
	}

	if !in.KeepPrePurchase {
		events, err = truncateAtPurchase(events, terms, env)
		if err != nil {
			return nil, err
		}
	}

	logger.Debug("contract evaluated",
		"contract", id, "recipe", r.Name, "events", len(events))
	return events, nil
}

func truncateAtTermination(events []ContractEvent, bt BindingTable, terms *Terms, env Environment) ([]ContractEvent, error) {
	td, err := terms.OptDate(AttrTerminationDate)
	if err != nil {
		return nil, err
	}
	t, ok := td.Get()
	if !ok {
		return events, nil
	}
	bind, err := bt.Lookup(EventTD)
	if err != nil {
		return nil, err
	}
	term := MakeAdjusted(t, EventTD, terms.Currency(), bind, env.Adjuster)

	out := make([]ContractEvent, 0, len(events)+1)
	for _, e := range events {
		if e.Type == EventTD {
			continue
		}
		if e.Compare(term) <= 0 {
			out = append(out, e)
		}
	}
	return append(out, term), nil
}

func dropBefore(events []ContractEvent, sd time.Time) []ContractEvent {
	out := events[:0]
	for _, e := range events {
		if !e.EventTime.Before(sd) {
			out = append(out, e)
		}
	}
	return out
}

// truncateAtPurchase drops every event ordered before the purchase, so
// same-day events that sort ahead of PRD go too. Analysis events stay.
func truncateAtPurchase(events []ContractEvent, terms *Terms, env Environment) ([]ContractEvent, error) {
	prd, err := terms.OptDate(AttrPurchaseDate)
	if err != nil {
		return nil, err
	}
	t, ok := prd.Get()
	if !ok {
		return events, nil
	}
	purchase := MakeAdjusted(t, EventPRD, terms.Currency(), Binding{}, env.Adjuster)
	out := make([]ContractEvent, 0, len(events))
	for _, e := range events {
		if e.Type == EventAD || e.Compare(purchase) >= 0 {
			out = append(out, e)
		}
	}
	return out, nil
}

// =============================================================================
// STANDARD REWRITES
// =============================================================================

// RetypeWhere retypes every event of category from that satisfies pred.
func RetypeWhere(from, to EventType, pred func(e ContractEvent, rc RewriteContext) bool) Rewrite {
	return func(events []ContractEvent, rc RewriteContext) ([]ContractEvent, error) {
		var bind Binding
		resolved := false
		out := make([]ContractEvent, len(events))
		for i, e := range events {
			if e.Type != from || !pred(e, rc) {
				out[i] = e
				continue
			}
			if !resolved {
				b, err := rc.Bindings.Lookup(to)
				if err != nil {
					return nil, err
				}
				bind, resolved = b, true
			}
			out[i] = e.Retype(to, bind)
		}
		return out, nil
	}
}

// CapitalizeInterest turns interest payments at or before the
// capitalization end date into capitalization events.
func CapitalizeInterest() Rewrite {
	return func(events []ContractEvent, rc RewriteContext) ([]ContractEvent, error) {
		end, err := rc.Terms.OptDate(AttrCapitalizationEndDate)
		if err != nil {
			return nil, err
		}
		cutoff, ok := end.Get()
		if !ok {
			return events, nil
		}
		return RetypeWhere(EventIP, EventIPCI, func(e ContractEvent, _ RewriteContext) bool {
			return !e.ScheduleTime.After(cutoff)
		})(events, rc)
	}
}

// MatureFinalRedemption turns a principal redemption on the maturity date
// into the maturity event.
func MatureFinalRedemption() Rewrite {
	return RetypeWhere(EventPR, EventMD, func(e ContractEvent, rc RewriteContext) bool {
		return !rc.Maturity.IsZero() && e.ScheduleTime.Equal(rc.Maturity)
	})
}

// FixFirstReset turns the first rate reset after the status date into a
// reset at the known nextResetRate.
func FixFirstReset() Rewrite {
	return func(events []ContractEvent, rc RewriteContext) ([]ContractEvent, error) {
		next, err := rc.Terms.OptDecimal(AttrNextResetRate)
		if err != nil {
			return nil, err
		}
		if !next.IsSet() {
			return events, nil
		}
		first := -1
		for i, e := range events {
			if e.Type != EventRR || !e.ScheduleTime.After(rc.StatusDate) {
				continue
			}
			if first < 0 || e.ScheduleTime.Before(events[first].ScheduleTime) {
				first = i
			}
		}
		if first < 0 {
			return events, nil
		}
		bind, err := rc.Bindings.Lookup(EventRRF)
		if err != nil {
			return nil, err
		}
		out := make([]ContractEvent, len(events))
		copy(out, events)
		out[first] = out[first].Retype(EventRRF, bind)
		return out, nil
	}
}

// SettleAfter adds a settlement event one settlementPeriod after every
// event of category trigger.
func SettleAfter(trigger EventType) Rewrite {
	return func(events []ContractEvent, rc RewriteContext) ([]ContractEvent, error) {
		period, err := rc.Terms.OptCycle(AttrSettlementPeriod)
		if err != nil {
			return nil, err
		}
		var bind Binding
		resolved := false
		out := make([]ContractEvent, 0, len(events)+1)
		out = append(out, events...)
		for _, e := range events {
			if e.Type != trigger {
				continue
			}
			if !resolved {
				b, err := rc.Bindings.Lookup(EventSTD)
				if err != nil {
					return nil, err
				}
				bind, resolved = b, true
			}
			at := e.ScheduleTime
			if p, ok := period.Get(); ok {
				at, err = rc.Env.Schedules.Advance(at, p, 1)
				if err != nil {
					return nil, fmt.Errorf("settlement after %s: %w", trigger, err)
				}
			}
			std := MakeAdjusted(at, EventSTD, e.Currency, bind, rc.Env.Adjuster)
			if e.Contingent() {
				std = std.AsContingent()
			}
			out = append(out, std)
		}
		return out, nil
	}
}
