package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskFactorObserver is the read-only source of market and credit
// observations. It is never written to during an evaluation run.
type RiskFactorObserver interface {
	// Keys lists the observable series identifiers.
	Keys() []string
	// Times lists the observation times of one series in ascending order.
	Times(key string) []time.Time
	// ValueAt returns the observation of a series at t. Implementations may
	// use the state and terms for contract-dependent observations.
	ValueAt(key string, t time.Time, s StateSpace, terms *Terms) (decimal.Decimal, error)
	// UnscheduledEvents returns the contingent events of a contract. Their
	// bindings are empty; the driver binds them per instrument.
	UnscheduledEvents(terms *Terms) ([]ContractEvent, error)
}

// EventSeries names the series carrying the amounts of a contract's
// contingent events of one category, e.g. "loan-1:PR".
func EventSeries(id ContractID, typ EventType) string {
	return string(id) + ":" + typ.String()
}

// Observe reads a series from the environment's risk-factor source. A
// missing source is reported as a missing observation.
func (e Environment) Observe(key string, t time.Time, s StateSpace, terms *Terms) (decimal.Decimal, error) {
	if e.RiskFactors == nil {
		return Zero, &ObservationError{Key: key, At: t}
	}
	return e.RiskFactors.ValueAt(key, t, s, terms)
}
