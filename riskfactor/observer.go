/*
Package riskfactor provides the in-memory risk-factor source.

PURPOSE:
  Implements generic.RiskFactorObserver over named observation series and
  per-contract contingent events. An Observer is filled before a run and
  only read during it.

INTERPOLATION:
  Step function: the value at t is the last observation at or before t.
  A series with no observation at or before t is a missing observation.

CONTINGENT EVENTS:
  Prepayments, credit events, exercises and margin calls are not
  scheduled by terms; they are recorded against a contract ID and
  returned unbound to the driver.

SEE ALSO:
  - generic/riskfactor.go: The observer interface
  - store/sqlite: Persistent observations and contingent events
*/
package riskfactor

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/cashflow-engine/generic"
)

// Observation is one value of one series.
type Observation struct {
	Series string          `json:"series"`
	At     time.Time       `json:"at"`
	Value  decimal.Decimal `json:"value"`
}

// ContingentEvent is an unscheduled event recorded against a contract.
type ContingentEvent struct {
	ContractID generic.ContractID `json:"contract_id"`
	At         time.Time          `json:"at"`
	Type       generic.EventType  `json:"type"`
	// Currency defaults to the contract currency when empty.
	Currency string `json:"currency,omitempty"`
}

type point struct {
	at    time.Time
	value decimal.Decimal
}

// Observer implements generic.RiskFactorObserver.
type Observer struct {
	mu     sync.RWMutex
	series map[string][]point
	events map[generic.ContractID][]ContingentEvent
}

func NewObserver() *Observer {
	return &Observer{
		series: make(map[string][]point),
		events: make(map[generic.ContractID][]ContingentEvent),
	}
}

// Add records one observation. A second observation of the same series at
// the same time replaces the first.
func (o *Observer) Add(series string, at time.Time, value decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()

	pts := o.series[series]
	i := sort.Search(len(pts), func(i int) bool { return !pts[i].at.Before(at) })
	if i < len(pts) && pts[i].at.Equal(at) {
		pts[i].value = value
		return
	}
	pts = append(pts, point{})
	copy(pts[i+1:], pts[i:])
	pts[i] = point{at: at, value: value}
	o.series[series] = pts
}

// AddObservations records a batch.
func (o *Observer) AddObservations(obs []Observation) {
	for _, ob := range obs {
		o.Add(ob.Series, ob.At, ob.Value)
	}
}

// AddEvent records a contingent event.
func (o *Observer) AddEvent(ev ContingentEvent) error {
	if !ev.Type.Valid() {
		return fmt.Errorf("contingent event for %s: invalid category %d", ev.ContractID, ev.Type)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events[ev.ContractID] = append(o.events[ev.ContractID], ev)
	return nil
}

// AddEvents records a batch, stopping at the first invalid event.
func (o *Observer) AddEvents(evs []ContingentEvent) error {
	for _, ev := range evs {
		if err := o.AddEvent(ev); err != nil {
			return err
		}
	}
	return nil
}

// Keys lists the series in name order.
func (o *Observer) Keys() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	keys := make([]string, 0, len(o.series))
	for k := range o.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Times lists the observation times of a series.
func (o *Observer) Times(key string) []time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()

	pts := o.series[key]
	out := make([]time.Time, len(pts))
	for i, p := range pts {
		out[i] = p.at
	}
	return out
}

// ValueAt returns the last observation at or before t.
func (o *Observer) ValueAt(key string, t time.Time, _ generic.StateSpace, _ *generic.Terms) (decimal.Decimal, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	pts := o.series[key]
	i := sort.Search(len(pts), func(i int) bool { return pts[i].at.After(t) })
	if i == 0 {
		return generic.Zero, &generic.ObservationError{Key: key, At: t}
	}
	return pts[i-1].value, nil
}

// UnscheduledEvents returns the contract's contingent events in time order,
// unbound.
func (o *Observer) UnscheduledEvents(terms *generic.Terms) ([]generic.ContractEvent, error) {
	o.mu.RLock()
	recorded := append([]ContingentEvent(nil), o.events[terms.ContractID()]...)
	o.mu.RUnlock()

	sort.SliceStable(recorded, func(i, j int) bool { return recorded[i].At.Before(recorded[j].At) })
	out := make([]generic.ContractEvent, 0, len(recorded))
	for _, ev := range recorded {
		ccy := ev.Currency
		if ccy == "" {
			ccy = terms.Currency()
		}
		out = append(out, generic.Make(ev.At, ev.Type, ccy, generic.Binding{}))
	}
	return out, nil
}

var _ generic.RiskFactorObserver = (*Observer)(nil)
