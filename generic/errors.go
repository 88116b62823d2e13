/*
errors.go - Centralized error types for the lifecycle engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Instrument packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Attribute errors - A required term is missing or has the wrong type
  2. Dispatch errors - No algorithm for the declared contract type
  3. Schedule errors - A cycle/anchor combination cannot produce dates
  4. Evaluation errors - A binding failed while evaluating an event
  5. Store errors - Run persistence failures

All of them are precondition violations: they are surfaced immediately,
never retried, and a run that fails produces no events at all.

USAGE:
  if errors.Is(err, generic.ErrAttributeConversion) {
      // caller supplied bad terms
  }

SEE ALSO:
  - terms.go: Raises AttributeError
  - driver.go: Raises EvaluationError
  - candidates.go: Raises ConflictError
*/
package generic

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAttributeConversion is returned when a required term is missing or
	// cannot be coerced to its expected type.
	ErrAttributeConversion = errors.New("attribute conversion failed")

	// ErrUnknownContractType is returned when no algorithm is registered for
	// the declared contract type.
	ErrUnknownContractType = errors.New("unknown contract type")

	// ErrScheduleConstruction is returned when a cycle/anchor combination
	// cannot produce a valid date set.
	ErrScheduleConstruction = errors.New("schedule construction failed")

	// ErrMissingObservation is returned when a risk-factor series has no
	// observation at or before the requested time.
	ErrMissingObservation = errors.New("missing risk factor observation")

	// ErrUnboundCategory is returned when an instrument has no binding for
	// an event category it was asked to schedule.
	ErrUnboundCategory = errors.New("event category not bound")

	// ErrEventConflict is returned when two different computations collide
	// on the same candidate key under the RejectConflicts policy.
	ErrEventConflict = errors.New("conflicting candidate events")

	// ErrAlreadyEvaluated is returned when an event is evaluated twice.
	ErrAlreadyEvaluated = errors.New("event already evaluated")

	// ErrNotEvaluated is returned when an evaluated result is required but
	// the event has not been evaluated.
	ErrNotEvaluated = errors.New("event not evaluated")

	// ErrDependencyCycle is returned when linked contracts depend on each
	// other circularly.
	ErrDependencyCycle = errors.New("dependency cycle between contracts")

	// ErrMissingDependency is returned when a contract references another
	// contract that is not part of the evaluation batch.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrInvalidPeriod is returned when a window is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrRunNotFound is returned when a stored run doesn't exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrDuplicateRun is returned when a run ID is stored twice.
	ErrDuplicateRun = errors.New("duplicate run id")

	// ErrContractNotFound is returned when stored terms don't exist.
	ErrContractNotFound = errors.New("contract not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AttributeError describes a missing or mistyped contract term.
type AttributeError struct {
	Attribute Attribute
	Want      Kind
	Reason    string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("attribute %s (%s): %s", e.Attribute, e.Want, e.Reason)
}

func (e *AttributeError) Unwrap() error {
	return ErrAttributeConversion
}

// ScheduleError describes a sub-schedule that could not be expanded.
type ScheduleError struct {
	Anchor time.Time
	End    time.Time
	Cycle  string
	Reason string
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("schedule %s from %s to %s: %s",
		e.Cycle, e.Anchor.Format("2006-01-02"), e.End.Format("2006-01-02"), e.Reason)
}

func (e *ScheduleError) Unwrap() error {
	return ErrScheduleConstruction
}

// UnboundCategoryError names the category an instrument cannot compute.
type UnboundCategoryError struct {
	Type EventType
}

func (e *UnboundCategoryError) Error() string {
	return fmt.Sprintf("no binding for event category %s", e.Type)
}

func (e *UnboundCategoryError) Unwrap() error {
	return ErrUnboundCategory
}

// ConflictError describes two different computations on the same key.
type ConflictError struct {
	Key      CandidateKey
	Existing string
	Incoming string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("candidate %s at %s: %q conflicts with %q",
		e.Key.Type, e.Key.ScheduleTime.Format(time.RFC3339), e.Incoming, e.Existing)
}

func (e *ConflictError) Unwrap() error {
	return ErrEventConflict
}

// ObservationError names the series and time that had no observation.
type ObservationError struct {
	Key string
	At  time.Time
}

func (e *ObservationError) Error() string {
	return fmt.Sprintf("no observation of %s at or before %s", e.Key, e.At.Format(time.RFC3339))
}

func (e *ObservationError) Unwrap() error {
	return ErrMissingObservation
}

// EvaluationError locates the event whose binding failed.
type EvaluationError struct {
	ContractID ContractID
	Type       EventType
	At         time.Time
	Err        error
}

// UnknownContractTypeError carries the tag no algorithm is registered for.
type UnknownContractTypeError struct {
	Tag string
}

func (e *UnknownContractTypeError) Error() string {
	return fmt.Sprintf("unknown contract type %q", e.Tag)
}

func (e *UnknownContractTypeError) Unwrap() error {
	return ErrUnknownContractType
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("contract %s: evaluating %s at %s: %v",
		e.ContractID, e.Type, e.At.Format(time.RFC3339), e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrAttributeConversion) ||
		errors.Is(err, ErrUnknownContractType) ||
		errors.Is(err, ErrScheduleConstruction) ||
		errors.Is(err, ErrEventConflict) ||
		errors.Is(err, ErrDependencyCycle) ||
		errors.Is(err, ErrMissingDependency) ||
		errors.Is(err, ErrMissingObservation) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound) || errors.Is(err, ErrContractNotFound)
}
