package generic

import (
	"time"
)

// =============================================================================
// CANDIDATE SET - De-duplicated events before sorting
// =============================================================================

// CandidateKey identifies a candidate event. Currency is part of the key so
// the two delivery legs of a multi-currency contract never collapse.
type CandidateKey struct {
	ScheduleTime time.Time
	Type         EventType
	Currency     string
}

// KeyOf returns the candidate key of an event.
func KeyOf(e ContractEvent) CandidateKey {
	return CandidateKey{ScheduleTime: e.ScheduleTime.UTC(), Type: e.Type, Currency: e.Currency}
}

// ConflictPolicy decides what happens when two events share a candidate key
// but are bound to differently named computations. Events bound to the same
// name are duplicates and collapse silently under every policy.
type ConflictPolicy int

const (
	// LastWriteWins keeps the most recently added event.
	LastWriteWins ConflictPolicy = iota
	// FirstWriteWins keeps the first event added.
	FirstWriteWins
	// RejectConflicts fails with a ConflictError.
	RejectConflicts
)

func (p ConflictPolicy) String() string {
	switch p {
	case LastWriteWins:
		return "last-write-wins"
	case FirstWriteWins:
		return "first-write-wins"
	case RejectConflicts:
		return "reject"
	}
	return "unknown"
}

// CandidateSet collects candidate events keyed by CandidateKey. Iteration
// order is insertion order of first appearance.
type CandidateSet struct {
	policy ConflictPolicy
	index  map[CandidateKey]int
	events []ContractEvent
}

// NewCandidateSet returns an empty set using the given policy.
func NewCandidateSet(policy ConflictPolicy) *CandidateSet {
	return &CandidateSet{
		policy: policy,
		index:  make(map[CandidateKey]int),
	}
}

// Add inserts an event, resolving key collisions by the set's policy.
func (c *CandidateSet) Add(e ContractEvent) error {
	k := KeyOf(e)
	i, exists := c.index[k]
	if !exists {
		c.index[k] = len(c.events)
		c.events = append(c.events, e)
		return nil
	}

	existing := c.events[i]
	if existing.binding.Name == e.binding.Name {
		c.events[i] = e
		return nil
	}

	switch c.policy {
	case FirstWriteWins:
		return nil
	case RejectConflicts:
		return &ConflictError{Key: k, Existing: existing.binding.Name, Incoming: e.binding.Name}
	default:
		c.events[i] = e
		return nil
	}
}

// AddAll inserts every event, stopping at the first conflict.
func (c *CandidateSet) AddAll(events []ContractEvent) error {
	for _, e := range events {
		if err := c.Add(e); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of distinct candidates.
func (c *CandidateSet) Len() int {
	return len(c.events)
}

// Events returns a copy of the candidates.
func (c *CandidateSet) Events() []ContractEvent {
	out := make([]ContractEvent, len(c.events))
	copy(out, c.events)
	return out
}
