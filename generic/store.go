/*
store.go - Persistence interface for evaluation runs

PURPOSE:
  Defines the interface between the engine and the database. Every
  evaluation produces a Run: the contract it evaluated, the analysis
  times and the flattened event table. Runs are append-only; re-evaluating
  a contract produces a new run rather than overwriting an old one.

KEY INTERFACES:
  RunStore: Save, fetch and list runs

APPEND-ONLY CONTRACT:
  - SaveRun(): The ONLY write operation
  - A run ID can be saved once; a second save fails with ErrDuplicateRun
  - NO Update() or Delete() methods exist

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - driver.go: Produces the events a run records
*/
package generic

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RUN - A recorded evaluation
// =============================================================================

// EventRecord is the flattened, serializable form of an evaluated event.
type EventRecord struct {
	EventTime    time.Time       `json:"event_time"`
	ScheduleTime time.Time       `json:"schedule_time"`
	Type         EventType       `json:"type"`
	Currency     string          `json:"currency,omitempty"`
	Payoff       decimal.Decimal `json:"payoff"`
	Contingent   bool            `json:"contingent,omitempty"`

	NotionalPrincipal   decimal.Decimal `json:"notional_principal"`
	NominalInterestRate decimal.Decimal `json:"nominal_interest_rate"`
	AccruedInterest     decimal.Decimal `json:"accrued_interest"`
	FeeAccrued          decimal.Decimal `json:"fee_accrued"`
	Performance         Performance     `json:"performance,omitempty"`
}

// NewEventRecord flattens an evaluated event.
func NewEventRecord(e ContractEvent) EventRecord {
	s := e.State()
	return EventRecord{
		EventTime:           e.EventTime,
		ScheduleTime:        e.ScheduleTime,
		Type:                e.Type,
		Currency:            e.Currency,
		Payoff:              e.Payoff(),
		Contingent:          e.Contingent(),
		NotionalPrincipal:   s.NotionalPrincipal,
		NominalInterestRate: s.NominalInterestRate,
		AccruedInterest:     s.AccruedInterest,
		FeeAccrued:          s.FeeAccrued,
		Performance:         s.ContractPerformance,
	}
}

// NewEventRecords flattens a timeline.
func NewEventRecords(events []ContractEvent) []EventRecord {
	out := make([]EventRecord, len(events))
	for i, e := range events {
		out[i] = NewEventRecord(e)
	}
	return out
}

// Run is one recorded evaluation of one contract.
type Run struct {
	ID            RunID         `json:"id"`
	ContractID    ContractID    `json:"contract_id"`
	ContractType  string        `json:"contract_type"`
	CreatedAt     time.Time     `json:"created_at"`
	AnalysisTimes []time.Time   `json:"analysis_times,omitempty"`
	Events        []EventRecord `json:"events"`
}

// NewRun builds a run record with a fresh ID.
func NewRun(id ContractID, contractType string, analysis []time.Time, events []ContractEvent, now time.Time) Run {
	return Run{
		ID:            NewRunID(),
		ContractID:    id,
		ContractType:  contractType,
		CreatedAt:     now,
		AnalysisTimes: analysis,
		Events:        NewEventRecords(events),
	}
}

// =============================================================================
// RUN STORE - Interface for run persistence (append-only)
// =============================================================================

// RunStore persists evaluation runs.
// IMPORTANT: RunStore is APPEND-ONLY. No Update, No Delete.
type RunStore interface {
	// SaveRun persists a run. Returns ErrDuplicateRun if the ID exists.
	SaveRun(ctx context.Context, run Run) error

	// GetRun returns a run by ID, or ErrRunNotFound.
	GetRun(ctx context.Context, id RunID) (Run, error)

	// ListRuns returns the runs of one contract, oldest first.
	ListRuns(ctx context.Context, contractID ContractID) ([]Run, error)
}
