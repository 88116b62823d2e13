/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's typed terms and events from the external API contract.
  Contract terms travel as raw ACTUS-style JSON documents and are parsed
  by the terms factory; dates in requests are plain strings so clients can
  send "2024-01-01" as well as full timestamps.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Contracts:
    ContractDTO

  Evaluation:
    EvaluateRequest, InlineEvaluateRequest, FilterDTO, RunDTO

  Portfolio:
    PortfolioEvaluateRequest, PortfolioResponse

  Risk factors:
    ObservationDTO, ContingentEventDTO, ObservationsRequest,
    ContingentEventsRequest

  Calendars:
    HolidayRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - generic/store.go: EventRecord and Run
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/warp/cashflow-engine/generic"
)

// =============================================================================
// CONTRACTS
// =============================================================================

// ContractDTO represents a stored contract in API responses.
type ContractDTO struct {
	ID           string          `json:"id"`
	ContractType string          `json:"contract_type"`
	Terms        json.RawMessage `json:"terms"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ContractTypeDTO describes one supported contract type.
type ContractTypeDTO struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// =============================================================================
// EVALUATION
// =============================================================================

// FilterDTO selects the events returned from an evaluation. Stored runs
// always keep the full timeline.
type FilterDTO struct {
	NonContingentPrefix bool     `json:"non_contingent_prefix,omitempty"`
	PayoffOnly          bool     `json:"payoff_only,omitempty"`
	Types               []string `json:"types,omitempty"`
	WindowStart         string   `json:"window_start,omitempty"`
	WindowEnd           string   `json:"window_end,omitempty"`
	From                string   `json:"from,omitempty"`
	Limit               int      `json:"limit,omitempty"`
}

// EvaluateRequest is the body of POST /api/contracts/{id}/evaluate.
type EvaluateRequest struct {
	AnalysisDates []string   `json:"analysis_dates,omitempty"`
	Filter        *FilterDTO `json:"filter,omitempty"`
}

// InlineEvaluateRequest evaluates terms that are not stored. Observations
// and contingent events in the body are layered over the stored ones.
type InlineEvaluateRequest struct {
	Terms            json.RawMessage      `json:"terms"`
	AnalysisDates    []string             `json:"analysis_dates,omitempty"`
	Filter           *FilterDTO           `json:"filter,omitempty"`
	Observations     []ObservationDTO     `json:"observations,omitempty"`
	ContingentEvents []ContingentEventDTO `json:"contingent_events,omitempty"`
}

// RunDTO is an evaluation result. RunID is empty for inline evaluations,
// which are not recorded.
type RunDTO struct {
	RunID         string                `json:"run_id,omitempty"`
	ContractID    string                `json:"contract_id,omitempty"`
	ContractType  string                `json:"contract_type"`
	CreatedAt     time.Time             `json:"created_at"`
	AnalysisTimes []time.Time           `json:"analysis_times,omitempty"`
	Events        []generic.EventRecord `json:"events"`
}

func toRunDTO(run generic.Run) RunDTO {
	events := run.Events
	if events == nil {
		events = []generic.EventRecord{}
	}
	return RunDTO{
		RunID:         string(run.ID),
		ContractID:    string(run.ContractID),
		ContractType:  run.ContractType,
		CreatedAt:     run.CreatedAt,
		AnalysisTimes: run.AnalysisTimes,
		Events:        events,
	}
}

// =============================================================================
// PORTFOLIO
// =============================================================================

// PortfolioEvaluateRequest evaluates stored contracts together. Contracts
// they reference by ID are pulled in automatically.
type PortfolioEvaluateRequest struct {
	ContractIDs   []string   `json:"contract_ids"`
	AnalysisDates []string   `json:"analysis_dates,omitempty"`
	Filter        *FilterDTO `json:"filter,omitempty"`
}

// PortfolioResponse lists one recorded run per requested contract.
type PortfolioResponse struct {
	Levels [][]string `json:"levels"`
	Runs   []RunDTO   `json:"runs"`
}

// =============================================================================
// RISK FACTORS
// =============================================================================

// ObservationDTO is one value of one market series.
type ObservationDTO struct {
	Series string `json:"series"`
	At     string `json:"at"`
	Value  string `json:"value"`
}

// ContingentEventDTO is an unscheduled event for a contract.
type ContingentEventDTO struct {
	ContractID string `json:"contract_id"`
	At         string `json:"at"`
	Type       string `json:"type"`
	Currency   string `json:"currency,omitempty"`
}

// ObservationsRequest is the body of POST /api/observations.
type ObservationsRequest struct {
	Observations []ObservationDTO `json:"observations"`
}

// ContingentEventsRequest is the body of POST /api/contingent-events.
type ContingentEventsRequest struct {
	Events []ContingentEventDTO `json:"events"`
}

// CountResponse reports how many records a write accepted.
type CountResponse struct {
	Count int `json:"count"`
}

// =============================================================================
// CALENDARS
// =============================================================================

// HolidayRequest adds one holiday to a named calendar.
type HolidayRequest struct {
	Date string `json:"date"`
	Name string `json:"name,omitempty"`
}

// CalendarsResponse lists the calendar codes the engine resolves.
type CalendarsResponse struct {
	Calendars []string `json:"calendars"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
